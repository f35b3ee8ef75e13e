package ogm

import (
	"fmt"
	"log/slog"
)

type declaration struct {
	owner     *Class
	field     string
	rel       *Relation
	installed bool
}

// Schema is the registry of classes and the relations declared between
// them. Relations are declared first; InstallBackrefs then registers the
// reverse accessors once every class exists.
type Schema struct {
	classes map[string]*Class
	order   []string
	decls   []*declaration
	logger  *slog.Logger
}

// NewSchema returns an empty schema.
func NewSchema(logger *slog.Logger) *Schema {
	if logger == nil {
		logger = slog.Default()
	}
	return &Schema{
		classes: make(map[string]*Class),
		logger:  logger,
	}
}

// Define adds a class. Class names are unique within a schema.
func (s *Schema) Define(name string, labels ...string) (*Class, error) {
	if name == "" {
		return nil, &ConfigurationError{Reason: "class name must not be empty"}
	}
	if _, ok := s.classes[name]; ok {
		return nil, &ConfigurationError{Field: name, Reason: "class already defined"}
	}
	c := NewClass(name, labels...)
	s.classes[name] = c
	s.order = append(s.order, name)
	return c, nil
}

// Lookup returns the class called name.
func (s *Schema) Lookup(name string) (*Class, bool) {
	c, ok := s.classes[name]
	return c, ok
}

// Classes returns the classes in definition order.
func (s *Schema) Classes() []*Class {
	out := make([]*Class, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.classes[name])
	}
	return out
}

// Relate declares rel as field on owner.
func (s *Schema) Relate(owner *Class, field string, rel *Relation) error {
	if rel == nil {
		return &ConfigurationError{Field: owner.Name() + "." + field, Reason: "nil relation"}
	}
	if err := owner.Declare(field, rel); err != nil {
		return err
	}
	s.decls = append(s.decls, &declaration{owner: owner, field: field, rel: rel})
	return nil
}

// InstallBackrefs runs CreateBackref for every declared relation that names
// a backref. The targets are the classes carrying one of the relation's
// restricted labels, or the owning class when the relation is unrestricted.
// Each declaration is installed at most once, so calling it again after
// adding relations only installs the new ones. A declaration is installed
// on all of its targets or on none of them.
func (s *Schema) InstallBackrefs() error {
	for _, d := range s.decls {
		if d.installed || d.rel.Backref() == "" {
			continue
		}
		targets, err := s.targets(d)
		if err != nil {
			return err
		}
		if err := d.checkTargets(targets); err != nil {
			return err
		}
		for _, t := range targets {
			if err := d.rel.CreateBackref(t); err != nil {
				return fmt.Errorf("install backref %s.%s on %s: %w", d.owner.Name(), d.field, t.Name(), err)
			}
			s.logger.Debug("installed backref",
				slog.String("owner", d.owner.Name()),
				slog.String("field", d.field),
				slog.String("target", t.Name()),
				slog.String("backref", d.rel.Backref()),
				slog.String("kind", d.rel.Kind().String()))
		}
		d.installed = true
	}
	return nil
}

func (s *Schema) targets(d *declaration) ([]*Class, error) {
	allowed := d.rel.RestrictedLabels()
	if len(allowed) == 0 {
		return []*Class{d.owner}, nil
	}
	var out []*Class
	for _, c := range s.Classes() {
		if intersects(c.labels, allowed) {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, &ConfigurationError{
			Field:  d.owner.Name() + "." + d.field,
			Reason: fmt.Sprintf("no class carries any of %v", allowed),
		}
	}
	return out, nil
}

// checkTargets fails when any target already holds the backref name with a
// field the relation would not reuse.
func (d *declaration) checkTargets(targets []*Class) error {
	if d.rel.Kind() == Generic {
		return fmt.Errorf("install backref %s.%s: %w", d.owner.Name(), d.field, ErrNotImplemented)
	}
	name := d.rel.Backref()
	for _, t := range targets {
		existing, ok := t.Field(name)
		if !ok || d.rel.backrefPresent(t, name) {
			continue
		}
		return fmt.Errorf("install backref %s.%s on %s: %w", d.owner.Name(), d.field, t.Name(),
			&ConfigurationError{Field: t.Name() + "." + name, Reason: fmt.Sprintf("already declared as %v", existing)})
	}
	return nil
}
