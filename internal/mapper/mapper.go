// Package mapper joins a schema and a graph store: nodes are created as
// instances of declared classes and their fields are addressed by name.
package mapper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
	"github.com/jaxbulsara/NeoAlchemy/ogm"
)

// Mapper runs field operations for stored nodes.
type Mapper struct {
	schema *ogm.Schema
	store  *graph.Store
	logger *slog.Logger
}

// New returns a mapper over schema and store.
func New(schema *ogm.Schema, store *graph.Store, logger *slog.Logger) *Mapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mapper{schema: schema, store: store, logger: logger}
}

// Schema returns the mapper's schema.
func (m *Mapper) Schema() *ogm.Schema { return m.schema }

// Store returns the mapper's store.
func (m *Mapper) Store() *graph.Store { return m.store }

// CreateNode saves a new node of the named class.
func (m *Mapper) CreateNode(ctx context.Context, class string, props map[string]any) (*graph.Node, error) {
	c, err := m.class(class)
	if err != nil {
		return nil, err
	}
	n := m.store.NewNode(c.Name(), c.Labels(), props)
	if err := m.store.CreateNode(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

// Node loads a node and resolves its class.
func (m *Mapper) Node(ctx context.Context, id string) (*graph.Node, *ogm.Class, error) {
	n, err := m.store.GetNode(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	c, err := m.class(n.Class)
	if err != nil {
		return nil, nil, err
	}
	return n, c, nil
}

// Relation returns the relation declared as field on the node's class,
// bound to the node.
func (m *Mapper) Relation(ctx context.Context, nodeID, field string) (*ogm.Relation, error) {
	n, c, err := m.Node(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	return c.Relation(n, field)
}

// Relate creates an edge from nodeID to relatedID through field.
func (m *Mapper) Relate(ctx context.Context, nodeID, field, relatedID string) (ogm.Edge, error) {
	rel, related, err := m.pair(ctx, nodeID, field, relatedID)
	if err != nil {
		return ogm.Edge{}, err
	}
	e, err := rel.Create(ctx, related)
	if err != nil {
		return ogm.Edge{}, err
	}
	m.logger.Debug("related", slog.String("field", field), slog.String("edge", e.ID))
	return e, nil
}

// Merge is Relate without duplicates.
func (m *Mapper) Merge(ctx context.Context, nodeID, field, relatedID string) (ogm.Edge, error) {
	rel, related, err := m.pair(ctx, nodeID, field, relatedID)
	if err != nil {
		return ogm.Edge{}, err
	}
	return rel.Merge(ctx, related)
}

// Unrelate removes the edges from nodeID to relatedID through field.
func (m *Mapper) Unrelate(ctx context.Context, nodeID, field, relatedID string) error {
	rel, related, err := m.pair(ctx, nodeID, field, relatedID)
	if err != nil {
		return err
	}
	return rel.Delete(ctx, related)
}

// Match returns the nodes related through field that carry every label and
// property given.
func (m *Mapper) Match(ctx context.Context, nodeID, field string, labels []string, props map[string]any) ([]*graph.Node, error) {
	rel, err := m.Relation(ctx, nodeID, field)
	if err != nil {
		return nil, err
	}
	matches, err := rel.Match(ctx, labels, props)
	if err != nil {
		return nil, err
	}
	return collect(matches)
}

// Get reads field of the node. Relations read as their related nodes and
// backrefs as the single node on the other side.
func (m *Mapper) Get(ctx context.Context, nodeID, field string) (any, error) {
	n, c, err := m.Node(ctx, nodeID)
	if err != nil {
		return nil, err
	}
	v, err := c.Get(ctx, n, field)
	if err != nil {
		return nil, err
	}
	if rel, ok := v.(*ogm.Relation); ok {
		matches, err := rel.Match(ctx, nil, nil)
		if err != nil {
			return nil, err
		}
		return collect(matches)
	}
	return v, nil
}

// Set assigns field of the node. Declared fields are read-only, so this
// reports which rule rejected the write.
func (m *Mapper) Set(ctx context.Context, nodeID, field string, value any) error {
	n, c, err := m.Node(ctx, nodeID)
	if err != nil {
		return err
	}
	return c.Set(n, field, value)
}

// Delete removes field from the node, with the same rules as Set.
func (m *Mapper) Delete(ctx context.Context, nodeID, field string) error {
	n, c, err := m.Node(ctx, nodeID)
	if err != nil {
		return err
	}
	return c.Delete(n, field)
}

func (m *Mapper) pair(ctx context.Context, nodeID, field, relatedID string) (*ogm.Relation, *graph.Node, error) {
	rel, err := m.Relation(ctx, nodeID, field)
	if err != nil {
		return nil, nil, err
	}
	related, err := m.store.GetNode(ctx, relatedID)
	if err != nil {
		return nil, nil, err
	}
	return rel, related, nil
}

func (m *Mapper) class(name string) (*ogm.Class, error) {
	c, ok := m.schema.Lookup(name)
	if !ok {
		return nil, &ogm.ConfigurationError{Field: name, Reason: "no such class"}
	}
	return c, nil
}

func collect(matches ogm.Matches) ([]*graph.Node, error) {
	out := []*graph.Node{}
	for v, err := range matches {
		if err != nil {
			return nil, err
		}
		n, ok := v.(*graph.Node)
		if !ok {
			return nil, fmt.Errorf("unexpected match %T", v)
		}
		out = append(out, n)
	}
	return out, nil
}
