package ogm

import (
	"context"
	"fmt"
	"slices"
)

// Kind is the cardinality of a relation. It decides how the backref is
// installed on the related class.
type Kind int

const (
	// Generic relations have no backref policy.
	Generic Kind = iota
	// OneToMany relations install a read-only ManyToOne on the related class.
	OneToMany
	// ManyToMany relations install a copy of themselves on the related class.
	ManyToMany
)

func (k Kind) String() string {
	switch k {
	case OneToMany:
		return "one_to_many"
	case ManyToMany:
		return "many_to_many"
	default:
		return "generic"
	}
}

// Bindings is the resolved set of unbound flags passed to every store call.
type Bindings struct {
	Unbound      bool
	UnboundStart bool
	UnboundEnd   bool
}

// Relation declares a typed, directed edge kind from an owning object to
// zero or more related objects. Its metadata is write-once.
type Relation struct {
	kind Kind

	edgeType     WriteOnce[string]
	backref      WriteOnce[string]
	owner        WriteOnce[Owner]
	restricted   WriteOnce[[]string]
	unboundStart WriteOnce[bool]
	unboundEnd   WriteOnce[bool]

	bindings Bindings
}

type config struct {
	owner        Owner
	backref      string
	restrict     []any
	unbound      bool
	unboundStart *bool
	unboundEnd   *bool
}

// Option configures a Relation at construction.
type Option func(*config)

// WithOwner binds the relation to the object that executes its operations.
func WithOwner(o Owner) Option {
	return func(c *config) { c.owner = o }
}

// WithBackref names the accessor installed on the related class.
func WithBackref(name string) Option {
	return func(c *config) { c.backref = name }
}

// RestrictTo limits related objects to the given types. Each entry is a
// label string, a NodeTyper or Labeler (such as *Class), a reflect.Type, or
// any other value whose Go type name is used as the label.
func RestrictTo(types ...any) Option {
	return func(c *config) { c.restrict = append(c.restrict, types...) }
}

// Unbound sets the default for both endpoint flags.
func Unbound(v bool) Option {
	return func(c *config) { c.unbound = v }
}

// UnboundStart allows the start node to be missing from the store.
func UnboundStart(v bool) Option {
	return func(c *config) { c.unboundStart = &v }
}

// UnboundEnd allows the end node to be missing from the store.
func UnboundEnd(v bool) Option {
	return func(c *config) { c.unboundEnd = &v }
}

// New declares a generic relation. Generic relations forward operations but
// cannot install a backref.
func New(edgeType string, opts ...Option) (*Relation, error) {
	return newRelation(Generic, edgeType, opts)
}

// NewOneToMany declares a one-to-many relation. The start node is always
// bound: Unbound and UnboundStart options are ignored.
func NewOneToMany(edgeType string, opts ...Option) (*Relation, error) {
	return newRelation(OneToMany, edgeType, opts)
}

// NewManyToMany declares a many-to-many relation.
func NewManyToMany(edgeType string, opts ...Option) (*Relation, error) {
	return newRelation(ManyToMany, edgeType, opts)
}

// Must panics if err is non-nil. It is meant for package-level declarations.
func Must(r *Relation, err error) *Relation {
	if err != nil {
		panic(err)
	}
	return r
}

func newRelation(kind Kind, edgeType string, opts []Option) (*Relation, error) {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	if kind == OneToMany {
		c.unbound = false
		f := false
		c.unboundStart = &f
	}

	b := Bindings{Unbound: c.unbound, UnboundStart: c.unbound, UnboundEnd: c.unbound}
	if c.unboundStart != nil {
		b.UnboundStart = *c.unboundStart
	}
	if c.unboundEnd != nil {
		b.UnboundEnd = *c.unboundEnd
	}

	r := blank(kind, b)
	if err := r.edgeType.Set(edgeType); err != nil {
		return nil, err
	}
	if c.owner != nil {
		if err := r.owner.Set(c.owner); err != nil {
			return nil, err
		}
	}
	if c.backref != "" {
		if err := r.backref.Set(c.backref); err != nil {
			return nil, err
		}
	}
	if err := r.restricted.Set(restrictLabels(c.restrict)); err != nil {
		return nil, err
	}
	if err := r.unboundStart.Set(b.UnboundStart); err != nil {
		return nil, err
	}
	if err := r.unboundEnd.Set(b.UnboundEnd); err != nil {
		return nil, err
	}
	return r, nil
}

func blank(kind Kind, b Bindings) *Relation {
	return &Relation{
		kind:         kind,
		edgeType:     NewWriteOnce("type", nonEmpty("type")),
		backref:      NewWriteOnce("backref", nonEmpty("backref")),
		owner:        NewWriteOnce[Owner]("owner"),
		restricted:   NewWriteOnce[[]string]("restricted_types"),
		unboundStart: NewWriteOnce[bool]("unbound_start"),
		unboundEnd:   NewWriteOnce[bool]("unbound_end"),
		bindings:     b,
	}
}

// Kind returns the relation's cardinality.
func (r *Relation) Kind() Kind { return r.kind }

// EdgeType returns the edge type name.
func (r *Relation) EdgeType() string { return r.edgeType.valueOrZero() }

// Backref returns the backref name, or "" if none was set.
func (r *Relation) Backref() string { return r.backref.valueOrZero() }

// SetBackref assigns the backref name. It can only be assigned once.
func (r *Relation) SetBackref(name string) error { return r.backref.Set(name) }

// Owner returns the object the relation is bound to.
func (r *Relation) Owner() (Owner, error) { return r.owner.Get() }

// SetOwner binds the relation. It can only be bound once; use Copy to bind
// the same declaration to another owner.
func (r *Relation) SetOwner(o Owner) error {
	if o == nil {
		return &ConfigurationError{Field: "owner", Reason: "must not be nil"}
	}
	return r.owner.Set(o)
}

// RestrictedLabels returns the labels related objects must carry one of.
// An empty result means the relation is unrestricted.
func (r *Relation) RestrictedLabels() []string {
	return append([]string(nil), r.restricted.valueOrZero()...)
}

// UnboundStart reports whether the start node may be missing from the store.
func (r *Relation) UnboundStart() bool { return r.unboundStart.valueOrZero() }

// UnboundEnd reports whether the end node may be missing from the store.
func (r *Relation) UnboundEnd() bool { return r.unboundEnd.valueOrZero() }

// Bindings returns the resolved unbound flags.
func (r *Relation) Bindings() Bindings { return r.bindings }

// Copy returns a relation of the same kind and metadata bound to owner, or
// to the original owner when owner is nil.
func (r *Relation) Copy(owner Owner) *Relation {
	if owner == nil {
		owner = r.owner.valueOrZero()
	}
	c := blank(r.kind, r.bindings)
	// The source was validated on construction, so these cannot fail.
	_ = c.edgeType.Set(r.EdgeType())
	if r.backref.IsSet() {
		_ = c.backref.Set(r.Backref())
	}
	if owner != nil {
		_ = c.owner.Set(owner)
	}
	_ = c.restricted.Set(r.RestrictedLabels())
	_ = c.unboundStart.Set(r.UnboundStart())
	_ = c.unboundEnd.Set(r.UnboundEnd())
	return c
}

// Create relates the owner to related, after checking the type restriction.
func (r *Relation) Create(ctx context.Context, related any) (Edge, error) {
	owner, err := r.boundOwner()
	if err != nil {
		return Edge{}, err
	}
	if err := r.checkRestriction(related); err != nil {
		return Edge{}, err
	}
	return owner.CreateRelation(ctx, r.EdgeType(), related, r.UnboundStart(), r.UnboundEnd())
}

// Delete removes the edge between the owner and related. Deletion is never
// type-restricted.
func (r *Relation) Delete(ctx context.Context, related any) error {
	owner, err := r.boundOwner()
	if err != nil {
		return err
	}
	return owner.DeleteRelation(ctx, r.EdgeType(), related, r.UnboundStart(), r.UnboundEnd())
}

// Match returns the objects related to the owner through this edge type,
// filtered by labels and property equality.
func (r *Relation) Match(ctx context.Context, labels []string, properties map[string]any) (Matches, error) {
	owner, err := r.boundOwner()
	if err != nil {
		return nil, err
	}
	return owner.MatchRelations(ctx, r.EdgeType(), Query{Labels: labels, Properties: properties}), nil
}

// Merge relates the owner to related unless an edge already exists, after
// checking the type restriction.
func (r *Relation) Merge(ctx context.Context, related any) (Edge, error) {
	owner, err := r.boundOwner()
	if err != nil {
		return Edge{}, err
	}
	if err := r.checkRestriction(related); err != nil {
		return Edge{}, err
	}
	return owner.MergeRelation(ctx, r.EdgeType(), related, r.UnboundStart(), r.UnboundEnd())
}

// CreateBackref installs the reverse accessor on target. One-to-many
// relations install a ManyToOne; many-to-many relations install a copy of
// themselves. A self-referential many-to-many whose backref is its own
// field is already in place and installs nothing.
func (r *Relation) CreateBackref(target FieldRegistry) error {
	if r.kind == Generic {
		return ErrNotImplemented
	}
	name, err := r.backref.Get()
	if err != nil {
		return err
	}
	switch r.kind {
	case OneToMany:
		return target.Declare(name, NewManyToOne(name, r))
	default:
		if r.backrefPresent(target, name) {
			return nil
		}
		return target.Declare(name, r.Copy(nil))
	}
}

// backrefPresent reports whether target already declares name as a
// many-to-many relation with r's metadata.
func (r *Relation) backrefPresent(target FieldRegistry, name string) bool {
	if r.kind != ManyToMany {
		return false
	}
	lookup, ok := target.(FieldLookup)
	if !ok {
		return false
	}
	f, ok := lookup.Field(name)
	if !ok {
		return false
	}
	prev, ok := f.(*Relation)
	return ok && prev.sameDeclaration(r)
}

// sameDeclaration compares everything but the owner.
func (r *Relation) sameDeclaration(o *Relation) bool {
	if r == o {
		return true
	}
	return r.kind == o.kind &&
		r.EdgeType() == o.EdgeType() &&
		r.Backref() == o.Backref() &&
		r.bindings == o.bindings &&
		slices.Equal(r.RestrictedLabels(), o.RestrictedLabels())
}

// Get implements Field. Without an instance it returns the declaration
// itself; with one it returns a copy bound to the instance.
func (r *Relation) Get(_ context.Context, instance Owner) (any, error) {
	if instance == nil {
		return r, nil
	}
	return r.Copy(instance), nil
}

func (r *Relation) String() string {
	s := fmt.Sprintf("%s(%s)", r.kind, r.EdgeType())
	if ls := r.restricted.valueOrZero(); len(ls) > 0 {
		s += fmt.Sprintf(" -> %v", ls)
	}
	return s
}

func (r *Relation) boundOwner() (Owner, error) {
	owner, err := r.owner.Get()
	if err != nil {
		return nil, &ConfigurationError{Field: "owner", Reason: fmt.Sprintf("relation %s is not bound to an owner", r.EdgeType())}
	}
	return owner, nil
}

func (r *Relation) checkRestriction(related any) error {
	allowed := r.restricted.valueOrZero()
	if len(allowed) == 0 {
		return nil
	}
	labels := labelsOf(related)
	if intersects(labels, allowed) {
		return nil
	}
	return &TypeRestrictionError{
		Related: related,
		Labels:  labels,
		Allowed: append([]string(nil), allowed...),
	}
}
