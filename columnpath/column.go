package columnpath

import "github.com/syssam/gqlpg/value"

// PhysicalColumn is a single column of a physical table: its SQL type
// and the constraint flags that the Data-Param Mappers and SQL Lowerer
// need to decide defaulting, casting, and RETURNING behavior.
type PhysicalColumn struct {
	Table         string
	Name          string
	Type          value.SQLType
	PrimaryKey    bool
	AutoIncrement bool
	Nullable      bool
	Unique        bool
	// Default holds the raw SQL default expression text (e.g.
	// "gen_random_uuid()", "now()"), empty if the column has none.
	Default string
}

// QualifiedName returns "table.name", the form used in generated SQL and
// in error messages.
func (c PhysicalColumn) QualifiedName() string {
	return c.Table + "." + c.Name
}

// ColumnPair is one (self_column, foreign_column) pair of a composite or
// simple foreign key.
type ColumnPair struct {
	Self    PhysicalColumn
	Foreign PhysicalColumn
}

// RelationLink is a typed edge between two tables via one or more column
// pairs. Composite foreign keys are first-class: ColumnPairs may hold
// more than one pair, all self columns sharing SelfTable and all foreign
// columns sharing LinkedTable — enforced by Validate.
type RelationLink struct {
	ColumnPairs []ColumnPair
	SelfTable   string
	LinkedTable string
	// Alias distinguishes multiple foreign keys to the same table, e.g.
	// a Concert with both venue_id and alt_venue_id pointing at venues.
	Alias string
}

// Validate checks the invariant that every self column in ColumnPairs
// shares SelfTable and every foreign column shares LinkedTable.
func (r RelationLink) Validate() error {
	if len(r.ColumnPairs) == 0 {
		return errEmptyRelationLink
	}
	for _, pair := range r.ColumnPairs {
		if pair.Self.Table != r.SelfTable {
			return &RelationLinkError{Link: r, Reason: "self column " + pair.Self.QualifiedName() + " does not belong to self table " + r.SelfTable}
		}
		if pair.Foreign.Table != r.LinkedTable {
			return &RelationLinkError{Link: r, Reason: "foreign column " + pair.Foreign.QualifiedName() + " does not belong to linked table " + r.LinkedTable}
		}
	}
	return nil
}

// LinkedTableName returns the alias if present, otherwise LinkedTable —
// the identifier that should be used to qualify columns reached through
// this link in emitted SQL.
func (r RelationLink) LinkedTableName() string {
	if r.Alias != "" {
		return r.Alias
	}
	return r.LinkedTable
}

// IsToOne reports whether the foreign side of the link is a primary key
// (a many-to-one or one-to-one link), which the SQL Lowerer uses to
// decide between a join and a correlated subselect.
func (r RelationLink) IsToOne() bool {
	for _, pair := range r.ColumnPairs {
		if !pair.Foreign.PrimaryKey {
			return false
		}
	}
	return true
}

// RelationLinkError reports a broken RelationLink invariant.
type RelationLinkError struct {
	Link   RelationLink
	Reason string
}

func (e *RelationLinkError) Error() string {
	return "model: invalid relation link: " + e.Reason
}

var errEmptyRelationLink = &RelationLinkError{Reason: "relation link has no column pairs"}
