package ogm

import (
	"context"
	"iter"
)

// Owner is the store-facing object a relation is bound to. Implementations
// execute the graph operations; the relation layer only validates and
// forwards.
type Owner interface {
	CreateRelation(ctx context.Context, edgeType string, related any, unboundStart, unboundEnd bool) (Edge, error)
	DeleteRelation(ctx context.Context, edgeType string, related any, unboundStart, unboundEnd bool) error
	MatchRelations(ctx context.Context, edgeType string, q Query) Matches
	MergeRelation(ctx context.Context, edgeType string, related any, unboundStart, unboundEnd bool) (Edge, error)
}

// Edge identifies a stored relationship.
type Edge struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	StartID string `json:"start_id"`
	EndID   string `json:"end_id"`
}

// Query filters the objects on the far side of a relation. With Reverse set
// the owner is the end node and the start nodes are returned.
type Query struct {
	Labels     []string
	Properties map[string]any
	Reverse    bool
}

// Matches is a lazy sequence of related objects. Ranging over it again
// re-runs the underlying lookup.
type Matches iter.Seq2[any, error]

// FailedMatches returns a sequence that yields err and stops.
func FailedMatches(err error) Matches {
	return func(yield func(any, error) bool) {
		yield(nil, err)
	}
}

// One returns the only object in the sequence. Zero or several objects
// yield a *CardinalityError; iteration stops at the second object.
func (m Matches) One() (any, error) {
	var (
		found any
		n     int
	)
	for v, err := range m {
		if err != nil {
			return nil, err
		}
		n++
		if n > 1 {
			return nil, &CardinalityError{Count: n}
		}
		found = v
	}
	if n == 0 {
		return nil, &CardinalityError{Count: 0}
	}
	return found, nil
}

// Collect drains the sequence.
func (m Matches) Collect() ([]any, error) {
	var out []any
	for v, err := range m {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}
