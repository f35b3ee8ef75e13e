package ogm

import (
	"context"
)

type call struct {
	op           string
	edgeType     string
	related      any
	unboundStart bool
	unboundEnd   bool
	query        Query
}

// fakeOwner records forwarded calls and serves a fixed match result.
type fakeOwner struct {
	name     string
	calls    []call
	matches  []any
	matchErr error
	runs     int
}

func (f *fakeOwner) CreateRelation(_ context.Context, edgeType string, related any, us, ue bool) (Edge, error) {
	f.calls = append(f.calls, call{op: "create", edgeType: edgeType, related: related, unboundStart: us, unboundEnd: ue})
	return Edge{ID: "e-create", Type: edgeType, StartID: f.name}, nil
}

func (f *fakeOwner) DeleteRelation(_ context.Context, edgeType string, related any, us, ue bool) error {
	f.calls = append(f.calls, call{op: "delete", edgeType: edgeType, related: related, unboundStart: us, unboundEnd: ue})
	return nil
}

func (f *fakeOwner) MatchRelations(_ context.Context, edgeType string, q Query) Matches {
	f.calls = append(f.calls, call{op: "match", edgeType: edgeType, query: q})
	return func(yield func(any, error) bool) {
		f.runs++
		if f.matchErr != nil {
			yield(nil, f.matchErr)
			return
		}
		for _, m := range f.matches {
			if !yield(m, nil) {
				return
			}
		}
	}
}

func (f *fakeOwner) MergeRelation(_ context.Context, edgeType string, related any, us, ue bool) (Edge, error) {
	f.calls = append(f.calls, call{op: "merge", edgeType: edgeType, related: related, unboundStart: us, unboundEnd: ue})
	return Edge{ID: "e-merge", Type: edgeType, StartID: f.name}, nil
}

func (f *fakeOwner) String() string { return f.name }

// pet is a related object that reports its own labels.
type pet struct {
	name   string
	labels []string
}

func (p *pet) Labels() []string { return p.labels }

func (p *pet) String() string { return p.name }
