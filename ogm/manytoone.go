package ogm

import (
	"context"
	"errors"
)

// ManyToOne is the reverse side of a one-to-many relation. It is installed
// on the related class and resolves to the single owning object. It cannot
// be assigned or deleted.
type ManyToOne struct {
	name     string
	relation *Relation
}

// NewManyToOne returns the accessor called name for rel. It keeps its own
// copy of rel, so later rebinding of rel is not visible through it.
func NewManyToOne(name string, rel *Relation) *ManyToOne {
	return &ManyToOne{name: name, relation: rel.Copy(nil)}
}

// Name returns the field name.
func (d *ManyToOne) Name() string { return d.name }

// Relation returns the backing relation.
func (d *ManyToOne) Relation() *Relation { return d.relation }

// Get returns the object that owns instance through the backing relation.
// A nil instance is a class-level read and returns the backing relation.
func (d *ManyToOne) Get(ctx context.Context, instance Owner) (any, error) {
	if instance == nil {
		return d.relation, nil
	}
	edgeType := d.relation.EdgeType()
	v, err := instance.MatchRelations(ctx, edgeType, Query{Reverse: true}).One()
	if err != nil {
		var ce *CardinalityError
		if errors.As(err, &ce) {
			return nil, &CardinalityError{Field: d.name, EdgeType: edgeType, Count: ce.Count}
		}
		return nil, err
	}
	return v, nil
}

// Set always fails: the reverse side only reflects edges created from the
// owning side.
func (d *ManyToOne) Set(instance Owner, _ any) error {
	return d.immutable(instance)
}

// Delete always fails.
func (d *ManyToOne) Delete(instance Owner) error {
	return d.immutable(instance)
}

func (d *ManyToOne) immutable(instance Owner) error {
	e := &ImmutabilityError{Field: d.name}
	if instance != nil {
		e.Instance = instance
	}
	return e
}

func (d *ManyToOne) String() string {
	return "many_to_one(" + d.relation.EdgeType() + ")"
}
