package ogm

import (
	"context"
	"fmt"
)

// Field is a named accessor declared on a class: a relation, or a backref
// installed by one.
type Field interface {
	Get(ctx context.Context, instance Owner) (any, error)
}

// Assigner is implemented by fields that intercept writes.
type Assigner interface {
	Set(instance Owner, value any) error
	Delete(instance Owner) error
}

// FieldRegistry accepts field declarations. Backrefs are installed through
// it rather than by mutating the related type.
type FieldRegistry interface {
	Declare(name string, f Field) error
}

// FieldLookup is implemented by registries that can report what is already
// declared, such as *Class.
type FieldLookup interface {
	Field(name string) (Field, bool)
}

// Class is a node type: a name, its labels, and the fields declared on it.
type Class struct {
	name   string
	labels []string
	fields map[string]Field
	order  []string
}

// NewClass returns a class with the given labels. Without labels the class
// name is its only label.
func NewClass(name string, labels ...string) *Class {
	if len(labels) == 0 {
		labels = []string{name}
	}
	return &Class{
		name:   name,
		labels: append([]string(nil), labels...),
		fields: make(map[string]Field),
	}
}

// Name returns the class name.
func (c *Class) Name() string { return c.name }

// Labels implements Labeler.
func (c *Class) Labels() []string { return append([]string(nil), c.labels...) }

// NodeType implements NodeTyper. The primary label is the first one.
func (c *Class) NodeType() string { return c.labels[0] }

func (c *Class) String() string { return c.name }

// Declare registers f under name. A name can be declared once.
func (c *Class) Declare(name string, f Field) error {
	if name == "" {
		return &ConfigurationError{Field: c.name, Reason: "field name must not be empty"}
	}
	if existing, ok := c.fields[name]; ok {
		return &ConfigurationError{
			Field:  c.name + "." + name,
			Reason: fmt.Sprintf("already declared as %v", existing),
		}
	}
	c.fields[name] = f
	c.order = append(c.order, name)
	return nil
}

// Field returns the field declared under name.
func (c *Class) Field(name string) (Field, bool) {
	f, ok := c.fields[name]
	return f, ok
}

// Fields returns the declared field names in declaration order.
func (c *Class) Fields() []string { return append([]string(nil), c.order...) }

// Get reads field name of instance. A nil instance reads the class-level
// declaration.
func (c *Class) Get(ctx context.Context, instance Owner, name string) (any, error) {
	f, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return f.Get(ctx, instance)
}

// Relation returns the relation declared under name bound to instance.
func (c *Class) Relation(instance Owner, name string) (*Relation, error) {
	f, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	r, ok := f.(*Relation)
	if !ok {
		return nil, &ConfigurationError{Field: c.name + "." + name, Reason: "not a relation"}
	}
	if instance == nil {
		return r, nil
	}
	return r.Copy(instance), nil
}

// Set writes field name of instance. Fields that do not intercept writes
// are part of the schema and cannot be assigned.
func (c *Class) Set(instance Owner, name string, value any) error {
	f, err := c.lookup(name)
	if err != nil {
		return err
	}
	if a, ok := f.(Assigner); ok {
		return a.Set(instance, value)
	}
	return c.immutable(instance, name)
}

// Delete removes field name from instance, with the same rules as Set.
func (c *Class) Delete(instance Owner, name string) error {
	f, err := c.lookup(name)
	if err != nil {
		return err
	}
	if a, ok := f.(Assigner); ok {
		return a.Delete(instance)
	}
	return c.immutable(instance, name)
}

func (c *Class) lookup(name string) (Field, error) {
	f, ok := c.fields[name]
	if !ok {
		return nil, &ConfigurationError{Field: c.name + "." + name, Reason: "no such field"}
	}
	return f, nil
}

func (c *Class) immutable(instance Owner, name string) error {
	e := &ImmutabilityError{Field: name}
	if instance != nil {
		e.Instance = instance
	}
	return e
}
