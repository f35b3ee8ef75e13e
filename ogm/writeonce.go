package ogm

import "fmt"

// WriteOnce holds a value that may be assigned exactly once. The zero value
// is usable but reports an empty field name in its errors; use NewWriteOnce.
//
// WriteOnce does no locking. Fields are expected to be filled in while the
// schema is defined, before instances read them concurrently.
type WriteOnce[T any] struct {
	name   string
	value  T
	set    bool
	checks []func(T) error
}

// NewWriteOnce binds a write-once slot called name. Each check runs on the
// first assignment; a failing check leaves the slot unset.
func NewWriteOnce[T any](name string, checks ...func(T) error) WriteOnce[T] {
	return WriteOnce[T]{name: name, checks: checks}
}

// Name returns the field name.
func (w *WriteOnce[T]) Name() string { return w.name }

// IsSet reports whether the slot has been assigned.
func (w *WriteOnce[T]) IsSet() bool { return w.set }

// Set assigns v. It fails with an *ImmutabilityError if the slot already
// holds a value.
func (w *WriteOnce[T]) Set(v T) error {
	if w.set {
		return &ImmutabilityError{Field: w.name}
	}
	for _, check := range w.checks {
		if err := check(v); err != nil {
			return err
		}
	}
	w.value = v
	w.set = true
	return nil
}

// SetAny assigns a dynamically typed value, failing with a *FieldTypeError
// when v is not a T.
func (w *WriteOnce[T]) SetAny(v any) error {
	if w.set {
		return &ImmutabilityError{Field: w.name}
	}
	tv, ok := v.(T)
	if !ok {
		var zero T
		return &FieldTypeError{
			Field: w.name,
			Want:  fmt.Sprintf("%T", &zero)[1:],
			Got:   fmt.Sprintf("%T", v),
		}
	}
	return w.Set(tv)
}

// Get returns the stored value, or a *ConfigurationError if the slot was
// never assigned.
func (w *WriteOnce[T]) Get() (T, error) {
	if !w.set {
		var zero T
		return zero, &ConfigurationError{Field: w.name, Reason: "not set"}
	}
	return w.value, nil
}

func (w *WriteOnce[T]) valueOrZero() T {
	return w.value
}

func nonEmpty(field string) func(string) error {
	return func(s string) error {
		if s == "" {
			return &ConfigurationError{Field: field, Reason: "must not be empty"}
		}
		return nil
	}
}
