package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/jaxbulsara/NeoAlchemy/ogm"
)

// Node is a stored (or not yet stored) graph node. It implements ogm.Owner,
// so relations bound to it run against its store.
type Node struct {
	ID         string
	Class      string
	Properties map[string]any
	CreatedAt  time.Time

	labels []string
	store  *Store
}

var (
	_ ogm.Owner   = (*Node)(nil)
	_ ogm.Labeler = (*Node)(nil)
)

// Labels implements ogm.Labeler.
func (n *Node) Labels() []string {
	if n == nil {
		return nil
	}
	return append([]string(nil), n.labels...)
}

// Bound reports whether the node has been saved.
func (n *Node) Bound() bool { return n.ID != "" }

func (n *Node) String() string {
	if !n.Bound() {
		return n.Class + "(unbound)"
	}
	return fmt.Sprintf("%s(%s)", n.Class, n.ID)
}

// CreateRelation implements ogm.Owner. The node is the start of the edge
// and related its end. Unbound endpoints are saved with the edge when the
// matching flag allows it.
func (n *Node) CreateRelation(ctx context.Context, edgeType string, related any, unboundStart, unboundEnd bool) (ogm.Edge, error) {
	end, err := n.related(related)
	if err != nil {
		return ogm.Edge{}, err
	}
	return n.store.relate(ctx, edgeType, endpoint{n, unboundStart, "start"}, endpoint{end, unboundEnd, "end"}, false)
}

// MergeRelation implements ogm.Owner. An existing edge of the same type
// between the two nodes is returned instead of creating another.
func (n *Node) MergeRelation(ctx context.Context, edgeType string, related any, unboundStart, unboundEnd bool) (ogm.Edge, error) {
	end, err := n.related(related)
	if err != nil {
		return ogm.Edge{}, err
	}
	return n.store.relate(ctx, edgeType, endpoint{n, unboundStart, "start"}, endpoint{end, unboundEnd, "end"}, true)
}

// DeleteRelation implements ogm.Owner. An unbound endpoint has no edges, so
// when the relation allows it the call does nothing.
func (n *Node) DeleteRelation(ctx context.Context, edgeType string, related any, unboundStart, unboundEnd bool) error {
	end, err := n.related(related)
	if err != nil {
		return err
	}
	for _, ep := range []endpoint{{n, unboundStart, "start"}, {end, unboundEnd, "end"}} {
		if ep.node.Bound() {
			continue
		}
		if ep.allowed {
			return nil
		}
		return fmt.Errorf("%w: %s %v", ErrNodeNotBound, ep.side, ep.node)
	}
	return n.store.deleteEdges(ctx, edgeType, n.ID, end.ID)
}

// MatchRelations implements ogm.Owner. Every iteration queries the store
// again.
func (n *Node) MatchRelations(ctx context.Context, edgeType string, q ogm.Query) ogm.Matches {
	return func(yield func(any, error) bool) {
		if n.store == nil {
			yield(nil, fmt.Errorf("%w: %v", ErrNodeNotBound, n))
			return
		}
		if !n.Bound() {
			return
		}
		nodes, err := n.store.neighbours(ctx, n.ID, edgeType, q)
		if err != nil {
			yield(nil, err)
			return
		}
		for _, m := range nodes {
			if !yield(m, nil) {
				return
			}
		}
	}
}

func (n *Node) related(v any) (*Node, error) {
	if n.store == nil {
		return nil, fmt.Errorf("%w: %v", ErrNodeNotBound, n)
	}
	other, ok := v.(*Node)
	if !ok || other == nil {
		return nil, fmt.Errorf("%w: got %T", ErrForeignNode, v)
	}
	if other.store != nil && other.store != n.store {
		return nil, fmt.Errorf("%w: %v", ErrForeignNode, other)
	}
	return other, nil
}

// Record is the serialisable form of a node.
type Record struct {
	ID         string         `json:"id"`
	Class      string         `json:"class"`
	Labels     []string       `json:"labels"`
	Properties map[string]any `json:"properties"`
	CreatedAt  time.Time      `json:"created_at"`
}

// Record returns n in serialisable form.
func (n *Node) Record() Record {
	return Record{
		ID:         n.ID,
		Class:      n.Class,
		Labels:     n.Labels(),
		Properties: n.Properties,
		CreatedAt:  n.CreatedAt,
	}
}

// Records converts nodes to their serialisable form.
func Records(nodes []*Node) []Record {
	out := make([]Record, len(nodes))
	for i, n := range nodes {
		out[i] = n.Record()
	}
	return out
}

// FromRecord returns a detached node for r, ready for Store.Import.
func FromRecord(r Record) *Node {
	return &Node{
		ID:         r.ID,
		Class:      r.Class,
		Properties: r.Properties,
		CreatedAt:  r.CreatedAt,
		labels:     append([]string(nil), r.Labels...),
	}
}
