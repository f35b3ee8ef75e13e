package mapper

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaxbulsara/NeoAlchemy/internal/graph"
	"github.com/jaxbulsara/NeoAlchemy/internal/schemafile"
	"github.com/jaxbulsara/NeoAlchemy/ogm"
)

const petsSchema = `
classes:
  - name: Person
    relations:
      - {field: pets, type: OWNS, kind: one_to_many, backref: owner, restrict: [Dog, Cat]}
      - {field: friends, type: FRIEND_OF, kind: many_to_many, backref: friends}
  - name: Dog
  - name: Cat
  - name: Fish
`

func setupMapper(t *testing.T) *Mapper {
	t.Helper()
	f, err := schemafile.Parse(strings.NewReader(petsSchema))
	require.NoError(t, err)
	schema, err := f.Build(nil)
	require.NoError(t, err)

	store, err := graph.Open(filepath.Join(t.TempDir(), graph.DatabaseFile), nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return New(schema, store, nil)
}

func create(t *testing.T, m *Mapper, class, name string) *graph.Node {
	t.Helper()
	n, err := m.CreateNode(context.Background(), class, map[string]any{"name": name})
	require.NoError(t, err)
	return n
}

func nodeIDs(nodes []*graph.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID)
	}
	return out
}

func TestMapper_CreateNode(t *testing.T) {
	m := setupMapper(t)
	ctx := context.Background()

	alice := create(t, m, "Person", "alice")
	n, c, err := m.Node(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "Person", c.Name())
	assert.Equal(t, "alice", n.Properties["name"])

	_, err = m.CreateNode(ctx, "Unicorn", nil)
	assert.True(t, ogm.IsConfiguration(err))

	_, _, err = m.Node(ctx, "missing")
	assert.ErrorIs(t, err, graph.ErrNodeNotFound)
}

func TestMapper_Pets(t *testing.T) {
	m := setupMapper(t)
	ctx := context.Background()

	alice := create(t, m, "Person", "alice")
	rex := create(t, m, "Dog", "rex")
	tom := create(t, m, "Cat", "tom")
	nemo := create(t, m, "Fish", "nemo")

	_, err := m.Relate(ctx, alice.ID, "pets", rex.ID)
	require.NoError(t, err)
	_, err = m.Relate(ctx, alice.ID, "pets", tom.ID)
	require.NoError(t, err)

	_, err = m.Relate(ctx, alice.ID, "pets", nemo.ID)
	require.Error(t, err)
	assert.True(t, ogm.IsTypeRestriction(err))
	assert.Contains(t, err.Error(), "Dog, Cat")

	pets, err := m.Get(ctx, alice.ID, "pets")
	require.NoError(t, err)
	assert.Equal(t, []string{rex.ID, tom.ID}, nodeIDs(pets.([]*graph.Node)))

	dogs, err := m.Match(ctx, alice.ID, "pets", []string{"Dog"}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{rex.ID}, nodeIDs(dogs))

	named, err := m.Match(ctx, alice.ID, "pets", nil, map[string]any{"name": "tom"})
	require.NoError(t, err)
	assert.Equal(t, []string{tom.ID}, nodeIDs(named))

	owner, err := m.Get(ctx, rex.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, owner.(*graph.Node).ID)

	assert.True(t, ogm.IsImmutable(m.Set(ctx, rex.ID, "owner", alice.ID)))
	assert.True(t, ogm.IsImmutable(m.Delete(ctx, rex.ID, "owner")))

	require.NoError(t, m.Unrelate(ctx, alice.ID, "pets", rex.ID))
	_, err = m.Get(ctx, rex.ID, "owner")
	assert.True(t, ogm.IsCardinality(err))
}

func TestMapper_Friends(t *testing.T) {
	m := setupMapper(t)
	ctx := context.Background()

	a := create(t, m, "Person", "a")
	b := create(t, m, "Person", "b")

	first, err := m.Merge(ctx, a.ID, "friends", b.ID)
	require.NoError(t, err)
	again, err := m.Merge(ctx, a.ID, "friends", b.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID)

	rel, err := m.Relation(ctx, b.ID, "friends")
	require.NoError(t, err)
	assert.Equal(t, "FRIEND_OF", rel.EdgeType())

	friends, err := m.Get(ctx, a.ID, "friends")
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, nodeIDs(friends.([]*graph.Node)))
}

func TestMapper_UnknownField(t *testing.T) {
	m := setupMapper(t)
	ctx := context.Background()
	rex := create(t, m, "Dog", "rex")

	_, err := m.Get(ctx, rex.ID, "tail")
	assert.True(t, ogm.IsConfiguration(err))
	_, err = m.Relate(ctx, rex.ID, "owner", rex.ID)
	assert.True(t, ogm.IsConfiguration(err), "backrefs are not relations")
	_, err = m.Relate(ctx, rex.ID, "tail", "missing")
	assert.True(t, ogm.IsConfiguration(err))
}

func TestMapper_Describe(t *testing.T) {
	m := setupMapper(t)
	classes := m.Describe()
	require.Len(t, classes, 4)

	person := classes[0]
	assert.Equal(t, "Person", person.Name)
	require.Len(t, person.Fields, 2)
	assert.Equal(t, FieldInfo{
		Name: "pets", Kind: "one_to_many", Type: "OWNS", Backref: "owner",
		Restrict: []string{"Dog", "Cat"}, ReadOnly: true,
	}, person.Fields[0])

	dog := classes[1]
	require.Len(t, dog.Fields, 1)
	assert.Equal(t, "many_to_one", dog.Fields[0].Kind)
	assert.Equal(t, "OWNS", dog.Fields[0].Type)

	fish := classes[3]
	assert.Empty(t, fish.Fields)
}
