package ogm

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors. Every typed error below reports itself as its sentinel
// through errors.Is.
var (
	// ErrImmutable is returned when a write-once field is written twice, or
	// when a derived field (such as a many-to-one backref) is written at all.
	ErrImmutable = errors.New("ogm: field is immutable")

	// ErrConfiguration is returned when relation metadata is missing or
	// invalid. It indicates a bug in the schema definition.
	ErrConfiguration = errors.New("ogm: invalid relation configuration")

	// ErrTypeRestriction is returned when a related object carries none of
	// the labels a relation is restricted to.
	ErrTypeRestriction = errors.New("ogm: related object violates type restriction")

	// ErrCardinality is returned when a lookup that expects exactly one
	// related object finds zero or several.
	ErrCardinality = errors.New("ogm: unexpected number of related objects")

	// ErrFieldType is returned when a dynamically typed value is assigned to
	// a write-once field of another type.
	ErrFieldType = errors.New("ogm: wrong type for field")

	// ErrNotImplemented is returned by CreateBackref on a relation that has
	// no cardinality and therefore no backref policy.
	ErrNotImplemented = errors.New("ogm: backref installation not implemented for generic relation")
)

// ImmutabilityError reports a write to a field that does not accept it.
type ImmutabilityError struct {
	Field    string
	Instance any // nil for class-level fields
}

func (e *ImmutabilityError) Error() string {
	if e.Instance != nil {
		return fmt.Sprintf("ogm: field %q of %v is immutable", e.Field, e.Instance)
	}
	return fmt.Sprintf("ogm: field %q is immutable", e.Field)
}

// Is reports whether target is ErrImmutable.
func (e *ImmutabilityError) Is(target error) bool { return target == ErrImmutable }

// ConfigurationError reports missing or invalid relation metadata.
type ConfigurationError struct {
	Field  string
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return "ogm: configuration: " + e.Reason
	}
	return fmt.Sprintf("ogm: configuration: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrConfiguration.
func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// TypeRestrictionError reports an attempt to relate an object whose labels
// do not intersect the allowed set.
type TypeRestrictionError struct {
	Related any
	Labels  []string // labels carried by Related
	Allowed []string
}

func (e *TypeRestrictionError) Error() string {
	return fmt.Sprintf("ogm: related object is %v but must be one of: %s",
		e.Related, strings.Join(e.Allowed, ", "))
}

// Is reports whether target is ErrTypeRestriction.
func (e *TypeRestrictionError) Is(target error) bool { return target == ErrTypeRestriction }

// CardinalityError reports a reverse lookup that did not yield exactly one
// object. Count is 0 for no match and 2 when more than one was seen; the
// lookup stops at the second result.
type CardinalityError struct {
	Field    string
	EdgeType string
	Count    int
}

func (e *CardinalityError) Error() string {
	var got string
	switch {
	case e.Count == 0:
		got = "no match"
	default:
		got = "more than one match"
	}
	if e.Field == "" {
		return fmt.Sprintf("ogm: expected exactly one %s match, got %s", e.EdgeType, got)
	}
	return fmt.Sprintf("ogm: %s: expected exactly one %s match, got %s", e.Field, e.EdgeType, got)
}

// Is reports whether target is ErrCardinality.
func (e *CardinalityError) Is(target error) bool { return target == ErrCardinality }

// FieldTypeError reports a dynamically typed assignment of the wrong type.
type FieldTypeError struct {
	Field string
	Want  string
	Got   string
}

func (e *FieldTypeError) Error() string {
	return fmt.Sprintf("ogm: field %q expects %s, got %s", e.Field, e.Want, e.Got)
}

// Is reports whether target is ErrFieldType.
func (e *FieldTypeError) Is(target error) bool { return target == ErrFieldType }

// IsImmutable reports whether err is, or wraps, an immutability error.
func IsImmutable(err error) bool { return errors.Is(err, ErrImmutable) }

// IsConfiguration reports whether err is, or wraps, a configuration error.
func IsConfiguration(err error) bool { return errors.Is(err, ErrConfiguration) }

// IsTypeRestriction reports whether err is, or wraps, a type restriction error.
func IsTypeRestriction(err error) bool { return errors.Is(err, ErrTypeRestriction) }

// IsCardinality reports whether err is, or wraps, a cardinality error.
func IsCardinality(err error) bool { return errors.Is(err, ErrCardinality) }
