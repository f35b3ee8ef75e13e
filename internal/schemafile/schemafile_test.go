package schemafile

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jaxbulsara/NeoAlchemy/ogm"
)

func TestLoad_Pets(t *testing.T) {
	s, err := Load("testdata/pets.yaml", nil)
	require.NoError(t, err)

	person, ok := s.Lookup("Person")
	require.True(t, ok)
	assert.Equal(t, []string{"pets", "friends"}, person.Fields())

	pets, err := person.Relation(nil, "pets")
	require.NoError(t, err)
	assert.Equal(t, ogm.OneToMany, pets.Kind())
	assert.Equal(t, "OWNS", pets.EdgeType())
	assert.Equal(t, []string{"Dog", "Cat"}, pets.RestrictedLabels())
	assert.False(t, pets.UnboundStart())
	assert.True(t, pets.UnboundEnd())

	for _, name := range []string{"Dog", "Cat"} {
		c, ok := s.Lookup(name)
		require.True(t, ok)
		f, ok := c.Field("owner")
		require.True(t, ok, name)
		assert.IsType(t, &ogm.ManyToOne{}, f)
	}

	friends, err := person.Relation(nil, "friends")
	require.NoError(t, err)
	assert.Equal(t, ogm.ManyToMany, friends.Kind())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{
			name: "unknown kind",
			doc: `
classes:
  - name: Person
    relations:
      - {field: pets, type: OWNS, kind: one_to_one}`,
			want: "unknown relation kind",
		},
		{
			name: "missing type",
			doc: `
classes:
  - name: Person
    relations:
      - {field: pets, kind: one_to_many}`,
			want: "type is required",
		},
		{
			name: "duplicate class",
			doc: `
classes:
  - name: Person
  - name: Person`,
			want: "declared twice",
		},
		{
			name: "duplicate field",
			doc: `
classes:
  - name: Person
    relations:
      - {field: pets, type: OWNS, kind: one_to_many}
      - {field: pets, type: HAS, kind: one_to_many}`,
			want: "Person.pets is declared twice",
		},
		{
			name: "unknown key",
			doc: `
classes:
  - name: Person
    colour: blue`,
			want: "failed to parse schema",
		},
		{
			name: "missing name",
			doc: `
classes:
  - labels: [X]`,
			want: "name is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, f.Classes)
}

func TestBuild_RestrictByLabel(t *testing.T) {
	f, err := Parse(strings.NewReader(`
classes:
  - name: Person
    relations:
      - {field: pets, type: OWNS, kind: one_to_many, backref: owner, restrict: [Animal]}
  - name: Dog
    labels: [Dog, Animal]
`))
	require.NoError(t, err)
	s, err := f.Build(nil)
	require.NoError(t, err)

	dog, _ := s.Lookup("Dog")
	_, ok := dog.Field("owner")
	assert.True(t, ok, "label restriction reaches classes carrying the label")
}

func TestBuild_RestrictionWithoutClass(t *testing.T) {
	f, err := Parse(strings.NewReader(`
classes:
  - name: Person
    relations:
      - {field: pets, type: OWNS, kind: one_to_many, backref: owner, restrict: [Unicorn]}
`))
	require.NoError(t, err)
	_, err = f.Build(nil)
	require.Error(t, err)
	assert.True(t, ogm.IsConfiguration(err))
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile("testdata/missing.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read schema file")
}
