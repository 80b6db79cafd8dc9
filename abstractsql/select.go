package abstractsql

import (
	"github.com/syssam/gqlpg/columnpath"
	"github.com/syssam/gqlpg/value"
)

// Cardinality says whether a selection produces one JSON object or a
// JSON array of objects.
type Cardinality int

const (
	CardinalityOne Cardinality = iota
	CardinalityMany
)

// SelectionKind discriminates a Selection node.
type SelectionKind int

const (
	SelectionColumns SelectionKind = iota
	SelectionNested
	SelectionSequence
)

// Selection describes the JSON shape a Select should project. A
// SelectionColumns node lists scalar columns to put straight into the
// jsonb_build_object call; a SelectionNested node recurses into a
// related entity's own Select (embedded as a scalar or aggregated
// subselect, see lower.Lower); SelectionSequence composes several
// selections into one object (used when a field's own selection and an
// access-residue marker need to share a row).
type Selection struct {
	Kind SelectionKind

	// Columns, for SelectionColumns: GraphQL field name -> column.
	Columns []ColumnProjection

	// Nested, for SelectionNested.
	Nested *NestedSelection

	// Sequence, for SelectionSequence.
	Sequence []Selection
}

// ColumnProjection names a single scalar projection.
type ColumnProjection struct {
	Alias  string
	Column columnpath.PhysicalColumn
}

// NestedSelection recurses a Select through a relation link.
type NestedSelection struct {
	Alias       string
	Relation    columnpath.RelationLink
	Cardinality Cardinality
	Select      *Select
}

// Columns constructs a flat column projection.
func Columns(cols ...ColumnProjection) Selection {
	return Selection{Kind: SelectionColumns, Columns: cols}
}

// Nested constructs a single nested-relation projection.
func Nested(n NestedSelection) Selection {
	return Selection{Kind: SelectionNested, Nested: &n}
}

// Sequence composes multiple selections into one JSON object.
func Sequence(parts ...Selection) Selection {
	return Selection{Kind: SelectionSequence, Sequence: parts}
}

// OrderDirection is ascending or descending.
type OrderDirection int

const (
	Asc OrderDirection = iota
	Desc
)

// OrderExpr is one ORDER BY term: either a plain column path or a
// vector-distance expression (spec.md §4.3).
type OrderExpr struct {
	Column    columnpath.Path
	IsVector  bool
	Vector    Predicate // Op == OpVectorDistance
	Direction OrderDirection
}

// Select is an AbstractSelect: a table-aware, declarative SELECT.
type Select struct {
	Table       string
	Alias       string
	Selection   Selection
	Predicate   Predicate
	OrderBy     []OrderExpr
	Offset      *int
	Limit       *int
	Cardinality Cardinality
}

// Insert is an AbstractInsert: one or more rows to insert into Table,
// each row a list of column assignments and/or nested child inserts,
// plus the selection to RETURNING-project after the insert commits.
type Insert struct {
	Table  string
	Rows   []InsertRow
	Select *Select // optional RETURNING projection
}

// InsertRowElem is one element of an insert row: either a direct column
// assignment or a nested insert into a related table.
type InsertRowElem struct {
	// SelfInsert fields (IsNested == false).
	Column columnpath.PhysicalColumn
	Value  value.Value

	// NestedInsert fields (IsNested == true).
	IsNested          bool
	Relation          columnpath.RelationLink
	NestedRows        []InsertRow
	PrecheckPredicates []Predicate
}

// SelfInsert constructs a direct column-assignment element.
func SelfInsert(col columnpath.PhysicalColumn, v value.Value) InsertRowElem {
	return InsertRowElem{Column: col, Value: v}
}

// NestedInsert constructs a nested-relation insert element.
func NestedInsert(rel columnpath.RelationLink, rows []InsertRow, prechecks []Predicate) InsertRowElem {
	return InsertRowElem{IsNested: true, Relation: rel, NestedRows: rows, PrecheckPredicates: prechecks}
}

// InsertRow is one row of an Insert: a list of elements.
type InsertRow struct {
	Elems []InsertRowElem
}

// Assignment is one column = value term of an Update's SET clause.
type Assignment struct {
	Column columnpath.PhysicalColumn
	Value  value.Value
}

// NestedMutation is the create/update/delete trio attached to a
// one-to-many field of an Update (spec.md §4.4).
type NestedMutation struct {
	Relation columnpath.RelationLink
	Create   []InsertRow
	Update   []NestedUpdate
	Delete   []Predicate // one predicate (usually a PK match) per row to delete
}

// NestedUpdate is one element of a one-to-many update list: a predicate
// identifying the child row (its primary key) plus the assignments to
// apply.
type NestedUpdate struct {
	Predicate   Predicate
	Assignments []Assignment
	Nested      []NestedMutation
}

// Update is an AbstractUpdate.
type Update struct {
	Table       string
	Assignments []Assignment
	Predicate   Predicate
	Nested      []NestedMutation
	PrecheckPredicates []Predicate
	Select      *Select
}

// Delete is an AbstractDelete.
type Delete struct {
	Table     string
	Predicate Predicate
	Select    *Select
}
