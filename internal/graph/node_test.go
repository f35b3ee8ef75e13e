package graph

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaxbulsara/NeoAlchemy/ogm"
)

func ids(t *testing.T, m ogm.Matches) []string {
	t.Helper()
	all, err := m.Collect()
	require.NoError(t, err)
	out := make([]string, 0, len(all))
	for _, v := range all {
		out = append(out, v.(*Node).ID)
	}
	return out
}

func TestNode_CreateAndMatch(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	alice := mustCreate(t, store, "Person", map[string]any{"name": "alice"})
	rex := mustCreate(t, store, "Dog", map[string]any{"name": "rex", "age": 3})
	tom := mustCreate(t, store, "Cat", map[string]any{"name": "tom"})

	for _, pet := range []*Node{rex, tom} {
		e, err := alice.CreateRelation(ctx, "OWNS", pet, false, false)
		require.NoError(t, err)
		assert.Equal(t, "OWNS", e.Type)
		assert.Equal(t, alice.ID, e.StartID)
		assert.Equal(t, pet.ID, e.EndID)
	}

	tests := []struct {
		name  string
		owner *Node
		q     ogm.Query
		want  []string
	}{
		{name: "forward", owner: alice, want: []string{rex.ID, tom.ID}},
		{name: "label filter", owner: alice, q: ogm.Query{Labels: []string{"Dog"}}, want: []string{rex.ID}},
		{name: "property filter", owner: alice, q: ogm.Query{Properties: map[string]any{"name": "tom"}}, want: []string{tom.ID}},
		{name: "numeric property", owner: alice, q: ogm.Query{Properties: map[string]any{"age": 3.0}}, want: []string{rex.ID}},
		{name: "no match", owner: alice, q: ogm.Query{Labels: []string{"Fish"}}, want: []string{}},
		{name: "reverse", owner: rex, q: ogm.Query{Reverse: true}, want: []string{alice.ID}},
		{name: "forward from end", owner: rex, want: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ids(t, tt.owner.MatchRelations(ctx, "OWNS", tt.q)))
		})
	}
}

func TestNode_MatchIsRestartable(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	a := mustCreate(t, store, "Person", nil)
	b := mustCreate(t, store, "Person", nil)
	c := mustCreate(t, store, "Person", nil)

	m := a.MatchRelations(ctx, "FRIEND_OF", ogm.Query{})
	_, err := a.CreateRelation(ctx, "FRIEND_OF", b, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids(t, m))

	_, err = a.CreateRelation(ctx, "FRIEND_OF", c, false, false)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID, c.ID}, ids(t, m), "each iteration sees the current graph")
}

func TestNode_Merge(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	a := mustCreate(t, store, "Person", nil)
	b := mustCreate(t, store, "Person", nil)

	first, err := a.MergeRelation(ctx, "FRIEND_OF", b, false, false)
	require.NoError(t, err)
	second, err := a.MergeRelation(ctx, "FRIEND_OF", b, false, false)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	_, edges, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, edges)
}

func TestNode_Delete(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	a := mustCreate(t, store, "Person", nil)
	b := mustCreate(t, store, "Person", nil)
	_, err := a.CreateRelation(ctx, "FRIEND_OF", b, false, false)
	require.NoError(t, err)
	_, err = a.CreateRelation(ctx, "KNOWS", b, false, false)
	require.NoError(t, err)

	require.NoError(t, a.DeleteRelation(ctx, "FRIEND_OF", b, false, false))
	assert.Empty(t, ids(t, a.MatchRelations(ctx, "FRIEND_OF", ogm.Query{})))
	assert.Len(t, ids(t, a.MatchRelations(ctx, "KNOWS", ogm.Query{})), 1, "other edge types are untouched")

	// Deleting a missing edge is not an error.
	require.NoError(t, a.DeleteRelation(ctx, "FRIEND_OF", b, false, false))
}

func TestNode_UnboundEndpoints(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	t.Run("allowed end is created", func(t *testing.T) {
		a := mustCreate(t, store, "Person", nil)
		pup := store.NewNode("Dog", nil, map[string]any{"name": "pup"})
		_, err := a.CreateRelation(ctx, "OWNS", pup, false, true)
		require.NoError(t, err)
		assert.True(t, pup.Bound())
	})

	t.Run("allowed start is created", func(t *testing.T) {
		a := store.NewNode("Person", nil, nil)
		b := mustCreate(t, store, "Person", nil)
		_, err := a.MergeRelation(ctx, "FRIEND_OF", b, true, false)
		require.NoError(t, err)
		assert.True(t, a.Bound())
	})

	t.Run("disallowed end fails", func(t *testing.T) {
		a := mustCreate(t, store, "Person", nil)
		pup := store.NewNode("Dog", nil, nil)
		_, err := a.CreateRelation(ctx, "OWNS", pup, false, false)
		assert.ErrorIs(t, err, ErrNodeNotBound)
		assert.False(t, pup.Bound())
	})

	t.Run("disallowed start fails", func(t *testing.T) {
		a := store.NewNode("Person", nil, nil)
		b := mustCreate(t, store, "Person", nil)
		_, err := a.CreateRelation(ctx, "OWNS", b, false, true)
		assert.ErrorIs(t, err, ErrNodeNotBound)
	})

	t.Run("disallowed end saves neither endpoint", func(t *testing.T) {
		nodesBefore, edgesBefore, err := store.Count(ctx)
		require.NoError(t, err)

		a := store.NewNode("Person", nil, nil)
		b := store.NewNode("Person", nil, nil)
		_, err = a.CreateRelation(ctx, "FRIEND_OF", b, true, false)
		assert.ErrorIs(t, err, ErrNodeNotBound)
		_, err = a.MergeRelation(ctx, "FRIEND_OF", b, true, false)
		assert.ErrorIs(t, err, ErrNodeNotBound)
		assert.False(t, a.Bound())
		assert.False(t, b.Bound())

		nodes, edges, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, nodesBefore, nodes)
		assert.Equal(t, edgesBefore, edges)
	})

	t.Run("unbound self edge saves the node once", func(t *testing.T) {
		nodesBefore, _, err := store.Count(ctx)
		require.NoError(t, err)

		a := store.NewNode("Person", nil, nil)
		e, err := a.CreateRelation(ctx, "FRIEND_OF", a, true, true)
		require.NoError(t, err)
		assert.Equal(t, a.ID, e.StartID)
		assert.Equal(t, a.ID, e.EndID)

		nodes, _, err := store.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, nodesBefore+1, nodes)
	})

	t.Run("delete with allowed unbound is a no-op", func(t *testing.T) {
		a := mustCreate(t, store, "Person", nil)
		pup := store.NewNode("Dog", nil, nil)
		require.NoError(t, a.DeleteRelation(ctx, "OWNS", pup, false, true))
		assert.ErrorIs(t, a.DeleteRelation(ctx, "OWNS", pup, false, false), ErrNodeNotBound)
	})

	t.Run("unbound node has no matches", func(t *testing.T) {
		a := store.NewNode("Person", nil, nil)
		assert.Empty(t, ids(t, a.MatchRelations(ctx, "OWNS", ogm.Query{})))
	})
}

func TestNode_RelatedMustBeNode(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	a := mustCreate(t, store, "Person", nil)
	_, err := a.CreateRelation(ctx, "OWNS", "rex", false, false)
	assert.True(t, errors.Is(err, ErrForeignNode))

	detached := &Node{Class: "Person"}
	_, err = detached.CreateRelation(ctx, "OWNS", a, true, true)
	assert.ErrorIs(t, err, ErrNodeNotBound)
	_, err = detached.MatchRelations(ctx, "OWNS", ogm.Query{}).Collect()
	assert.ErrorIs(t, err, ErrNodeNotBound)
}

func TestNode_WithRelations(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	s := ogm.NewSchema(nil)
	person, _ := s.Define("Person")
	dog, _ := s.Define("Dog")
	cat, _ := s.Define("Cat")
	require.NoError(t, s.Relate(person, "pets", ogm.Must(ogm.NewOneToMany("OWNS", ogm.WithBackref("owner"), ogm.RestrictTo(dog, cat)))))
	require.NoError(t, s.InstallBackrefs())

	alice := mustCreate(t, store, "Person", nil)
	rex := mustCreate(t, store, "Dog", nil)
	fish := mustCreate(t, store, "Fish", nil)

	pets, err := person.Relation(alice, "pets")
	require.NoError(t, err)
	_, err = pets.Create(ctx, rex)
	require.NoError(t, err)

	_, err = pets.Create(ctx, fish)
	assert.True(t, ogm.IsTypeRestriction(err))

	owner, err := dog.Get(ctx, rex, "owner")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, owner.(*Node).ID)

	// A second owner breaks the many-to-one read.
	bob := mustCreate(t, store, "Person", nil)
	bobPets, err := person.Relation(bob, "pets")
	require.NoError(t, err)
	_, err = bobPets.Create(ctx, rex)
	require.NoError(t, err)
	_, err = dog.Get(ctx, rex, "owner")
	assert.True(t, ogm.IsCardinality(err))
}

func TestRecords(t *testing.T) {
	store, cleanup := setupTestStore(t)
	defer cleanup()

	a := mustCreate(t, store, "Person", map[string]any{"name": "a"})
	b := mustCreate(t, store, "Dog", map[string]any{"name": "b"}, "Dog", "Animal")
	recs := Records([]*Node{a, b})
	require.Len(t, recs, 2)
	assert.Equal(t, a.ID, recs[0].ID)
	assert.Equal(t, []string{"Dog", "Animal"}, recs[1].Labels)
	assert.Empty(t, Records(nil))

	var missing *Node
	assert.Nil(t, missing.Labels())
}
