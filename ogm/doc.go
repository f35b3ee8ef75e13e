// Package ogm is the relationship layer of the object-graph mapper.
//
// A Relation declares a typed, directed edge kind on an owning class. Its
// metadata (edge type, backref name, owner, restricted target labels and
// unbound endpoint flags) is held in WriteOnce slots and cannot change once
// assigned. Relations do not talk to a database: Create, Delete, Match and
// Merge validate their input and forward to the Owner they are bound to.
//
// Backrefs are registered rather than injected. A one-to-many relation
// declares a read-only ManyToOne on the related class; a many-to-many
// relation declares a copy of itself there:
//
//	schema := ogm.NewSchema(nil)
//	person, _ := schema.Define("Person")
//	dog, _ := schema.Define("Dog")
//	cat, _ := schema.Define("Cat")
//
//	pets := ogm.Must(ogm.NewOneToMany("OWNS",
//	    ogm.WithBackref("owner"), ogm.RestrictTo(dog, cat)))
//	_ = schema.Relate(person, "pets", pets)
//	_ = schema.InstallBackrefs()
//
//	// rex is an Owner, e.g. a stored node.
//	owner, err := dog.Get(ctx, rex, "owner")
package ogm
