package model

import "github.com/syssam/gqlpg/columnpath"

// EntityID indexes into a Model's entity slab.
type EntityID int

// FieldID indexes an entity's field slab.
type FieldID int

// Cardinality describes the multiplicity of a OneToMany field's inverse
// side.
type Cardinality int

const (
	CardinalityUnbounded Cardinality = iota
	CardinalityOne
)

// FieldKind discriminates how a Field maps to storage.
type FieldKind int

const (
	FieldScalar FieldKind = iota
	FieldManyToOne
	FieldOneToMany
	FieldEmbedded
)

// Access bundles the per-operation access expressions attached to an
// entity or a field, each an ExprID into the owning Model's shared slab.
// DefaultAccess (every slot NoExpr) means "no restriction declared",
// which Model.Expr resolves to BooleanLiteral(true). A zero-value Access
// is not that: its slots are ExprID 0, the slab's first expression.
type Access struct {
	Creation       ExprID
	Read           ExprID
	UpdatePrecheck ExprID
	UpdateDatabase ExprID
	Delete         ExprID
}

// DefaultAccess returns an Access bundle with every expression set to
// NoExpr (unrestricted).
func DefaultAccess() Access {
	return Access{Creation: NoExpr, Read: NoExpr, UpdatePrecheck: NoExpr, UpdateDatabase: NoExpr, Delete: NoExpr}
}

// Field is a named, typed member of an EntityType.
type Field struct {
	Name string
	Kind FieldKind

	// Column is set for Scalar fields.
	Column columnpath.PhysicalColumn

	// Relation and TargetEntity are set for ManyToOne and OneToMany
	// fields. For ManyToOne, Relation.ColumnPairs maps this entity's
	// FK columns to the target's PK columns. For OneToMany, Relation is
	// the *inverse* ManyToOne link (on TargetEntity) this field mirrors.
	Relation    columnpath.RelationLink
	TargetEntity EntityID
	Cardinality Cardinality

	// Optional/Nullable mirror the source's separation of "required as
	// API input" from "nullable in the database" (spec.md §9 calls
	// this out implicitly via PhysicalColumn.Nullable).
	Optional bool

	Access Access
}

// IsToMany reports whether a OneToMany field can hold more than one row.
func (f Field) IsToMany() bool {
	return f.Kind == FieldOneToMany && f.Cardinality == CardinalityUnbounded
}

// EntityType is a named aggregate backed by a physical table.
type EntityType struct {
	Name   string
	Table  string
	Fields []Field
	// PKFields holds the indices (into Fields) of the primary-key
	// field set, usually a single element.
	PKFields []int
	Access   Access
}

// FieldByName looks up a field by its GraphQL-facing name.
func (e EntityType) FieldByName(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// PrimaryKey returns the entity's primary-key fields, in declared order.
func (e EntityType) PrimaryKey() []Field {
	out := make([]Field, len(e.PKFields))
	for i, idx := range e.PKFields {
		out[i] = e.Fields[idx]
	}
	return out
}

// Model is the precompiled schema: every entity the pipeline can
// resolve against, plus the shared slab of access expressions entities
// and fields reference by ExprID. A Model is built once (by the
// out-of-scope schema builder, or by NewModel and its Add methods for
// tests) and is
// immutable and safely shared by reference across concurrent requests
// from then on.
type Model struct {
	entities []EntityType
	byName   map[string]EntityID
	exprs    []Expression
}

// NewModel constructs an empty, mutable Model; AddExpr, AddEntity and
// SetFieldEntity populate it.
func NewModel() *Model {
	return &Model{byName: make(map[string]EntityID)}
}

// AddExpr interns an Expression into the shared slab and returns its ID.
func (m *Model) AddExpr(e Expression) ExprID {
	m.exprs = append(m.exprs, e)
	return ExprID(len(m.exprs) - 1)
}

// Expr resolves an ExprID to its Expression. A NoExpr ID resolves to an
// implicit BooleanLiteral(true).
func (m *Model) Expr(id ExprID) Expression {
	if id == NoExpr {
		return BooleanLiteral(true)
	}
	return m.exprs[id]
}

// AddEntity registers an entity and returns its ID.
func (m *Model) AddEntity(e EntityType) EntityID {
	id := EntityID(len(m.entities))
	m.entities = append(m.entities, e)
	m.byName[e.Name] = id
	return id
}

// Entity resolves an EntityID.
func (m *Model) Entity(id EntityID) EntityType { return m.entities[id] }

// EntityByName looks up an entity's ID by name.
func (m *Model) EntityByName(name string) (EntityID, bool) {
	id, ok := m.byName[name]
	return id, ok
}

// Entities returns every entity's ID, in declaration order.
func (m *Model) Entities() []EntityID {
	ids := make([]EntityID, len(m.entities))
	for i := range m.entities {
		ids[i] = EntityID(i)
	}
	return ids
}

// SetFieldEntity back-patches a ManyToOne/OneToMany field's
// TargetEntity once the target entity has itself been registered —
// schemas are typically cyclic (Concert -> Venue -> Concert), so this
// two-pass pattern (add all entities, then wire target IDs) is how
// forward references are resolved without needing pointers.
func (m *Model) SetFieldEntity(entity EntityID, fieldIdx int, target EntityID) {
	m.entities[entity].Fields[fieldIdx].TargetEntity = target
}
