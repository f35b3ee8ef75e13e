// Package schemafile loads class and relation declarations from YAML.
package schemafile

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/jaxbulsara/NeoAlchemy/ogm"
)

// Env names the environment variable holding the schema path.
const Env = "NEOALCHEMY_SCHEMA"

// File is the on-disk schema.
type File struct {
	Classes []ClassDef `yaml:"classes"`
}

// ClassDef declares a node class.
type ClassDef struct {
	Name      string        `yaml:"name"`
	Labels    []string      `yaml:"labels,omitempty"`
	Relations []RelationDef `yaml:"relations,omitempty"`
}

// RelationDef declares a relation field on its class. Restrict entries
// name classes from the same file or raw labels.
type RelationDef struct {
	Field        string   `yaml:"field"`
	Type         string   `yaml:"type"`
	Kind         string   `yaml:"kind"`
	Backref      string   `yaml:"backref,omitempty"`
	Restrict     []string `yaml:"restrict,omitempty"`
	Unbound      *bool    `yaml:"unbound,omitempty"`
	UnboundStart *bool    `yaml:"unbound_start,omitempty"`
	UnboundEnd   *bool    `yaml:"unbound_end,omitempty"`
}

// Parse decodes a schema document. Unknown keys are rejected.
func Parse(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

// LoadFromFile reads and parses the schema at path.
func LoadFromFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return Parse(bytes.NewReader(data))
}

// Load reads the schema at path and builds it.
func Load(path string, logger *slog.Logger) (*ogm.Schema, error) {
	f, err := LoadFromFile(path)
	if err != nil {
		return nil, err
	}
	return f.Build(logger)
}

// Validate checks the document without building it.
func (f *File) Validate() error {
	seen := make(map[string]bool, len(f.Classes))
	for i, c := range f.Classes {
		if c.Name == "" {
			return fmt.Errorf("classes[%d].name is required", i)
		}
		if seen[c.Name] {
			return fmt.Errorf("class %s is declared twice", c.Name)
		}
		seen[c.Name] = true

		fields := make(map[string]bool, len(c.Relations))
		for j, r := range c.Relations {
			where := fmt.Sprintf("%s.relations[%d]", c.Name, j)
			if r.Field == "" {
				return fmt.Errorf("%s.field is required", where)
			}
			if fields[r.Field] {
				return fmt.Errorf("%s.%s is declared twice", c.Name, r.Field)
			}
			fields[r.Field] = true
			if r.Type == "" {
				return fmt.Errorf("%s.type is required", where)
			}
			if _, err := parseKind(r.Kind); err != nil {
				return fmt.Errorf("%s: %w", where, err)
			}
		}
	}
	return nil
}

// Build defines every class, declares the relations and installs their
// backrefs.
func (f *File) Build(logger *slog.Logger) (*ogm.Schema, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	s := ogm.NewSchema(logger)
	classes := make(map[string]*ogm.Class, len(f.Classes))
	for _, def := range f.Classes {
		c, err := s.Define(def.Name, def.Labels...)
		if err != nil {
			return nil, err
		}
		classes[def.Name] = c
	}

	for _, def := range f.Classes {
		for _, rd := range def.Relations {
			rel, err := rd.relation(classes)
			if err != nil {
				return nil, fmt.Errorf("%s.%s: %w", def.Name, rd.Field, err)
			}
			if err := s.Relate(classes[def.Name], rd.Field, rel); err != nil {
				return nil, err
			}
		}
	}

	if err := s.InstallBackrefs(); err != nil {
		return nil, err
	}
	return s, nil
}

func (rd RelationDef) relation(classes map[string]*ogm.Class) (*ogm.Relation, error) {
	kind, err := parseKind(rd.Kind)
	if err != nil {
		return nil, err
	}

	var opts []ogm.Option
	if rd.Backref != "" {
		opts = append(opts, ogm.WithBackref(rd.Backref))
	}
	if len(rd.Restrict) > 0 {
		types := make([]any, 0, len(rd.Restrict))
		for _, name := range rd.Restrict {
			if c, ok := classes[name]; ok {
				types = append(types, c)
				continue
			}
			types = append(types, name)
		}
		opts = append(opts, ogm.RestrictTo(types...))
	}
	if rd.Unbound != nil {
		opts = append(opts, ogm.Unbound(*rd.Unbound))
	}
	if rd.UnboundStart != nil {
		opts = append(opts, ogm.UnboundStart(*rd.UnboundStart))
	}
	if rd.UnboundEnd != nil {
		opts = append(opts, ogm.UnboundEnd(*rd.UnboundEnd))
	}

	switch kind {
	case ogm.OneToMany:
		return ogm.NewOneToMany(rd.Type, opts...)
	default:
		return ogm.NewManyToMany(rd.Type, opts...)
	}
}

func parseKind(s string) (ogm.Kind, error) {
	switch s {
	case ogm.OneToMany.String():
		return ogm.OneToMany, nil
	case ogm.ManyToMany.String():
		return ogm.ManyToMany, nil
	}
	return ogm.Generic, fmt.Errorf("unknown relation kind %q (want %s or %s)", s, ogm.OneToMany, ogm.ManyToMany)
}
