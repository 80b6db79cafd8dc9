package columnpath

import (
	"errors"
	"strings"
)

// Link is one element of a Path: either a traversal across a relation,
// or the terminal leaf column.
type Link struct {
	relation *RelationLink
	leaf     *PhysicalColumn
}

// Relation wraps a RelationLink into a non-leaf Link.
func Relation(r RelationLink) Link { return Link{relation: &r} }

// Leaf wraps a PhysicalColumn into a terminal Link.
func Leaf(c PhysicalColumn) Link { return Link{leaf: &c} }

// IsLeaf reports whether the link is a terminal column rather than a
// relation traversal.
func (l Link) IsLeaf() bool { return l.leaf != nil }

// AsRelation returns the relation payload. ok is false for a leaf link.
func (l Link) AsRelation() (RelationLink, bool) {
	if l.relation == nil {
		return RelationLink{}, false
	}
	return *l.relation, true
}

// AsLeaf returns the column payload. ok is false for a relation link.
func (l Link) AsLeaf() (PhysicalColumn, bool) {
	if l.leaf == nil {
		return PhysicalColumn{}, false
	}
	return *l.leaf, true
}

// Path is an ordered sequence of Links; a complete Path ends in a Leaf.
// Construct one with NewLeaf or RelationOnly, then grow it with Push,
// PushLeaf or Join. Those three enforce table-to-table continuity
// between consecutive links. The leaf-last property is not enforced at
// construction (RelationOnly and Push yield paths ending in a relation);
// LeafColumn reports an error for such a path.
type Path struct {
	links []Link
}

// ErrEmptyPath is returned when an operation requires at least one link.
var ErrEmptyPath = errors.New("columnpath: path has no links")

// PathError reports a broken Path invariant.
type PathError struct {
	Reason string
}

func (e *PathError) Error() string { return "columnpath: " + e.Reason }

// NewLeaf constructs a single-element Path rooted directly at column c —
// the base case every Path is eventually built from.
func NewLeaf(c PhysicalColumn) Path {
	return Path{links: []Link{Leaf(c)}}
}

// Links returns the path's links in root-to-leaf order. The returned
// slice must not be mutated.
func (p Path) Links() []Link { return p.links }

// Len returns the number of links in the path.
func (p Path) Len() int { return len(p.links) }

// LeafColumn returns the terminal column of the path.
func (p Path) LeafColumn() (PhysicalColumn, error) {
	if len(p.links) == 0 {
		return PhysicalColumn{}, ErrEmptyPath
	}
	last := p.links[len(p.links)-1]
	col, ok := last.AsLeaf()
	if !ok {
		return PhysicalColumn{}, &PathError{Reason: "last link is not a leaf"}
	}
	return col, nil
}

// RootTable returns the table the path starts at.
func (p Path) RootTable() (string, error) {
	if len(p.links) == 0 {
		return "", ErrEmptyPath
	}
	first := p.links[0]
	if rel, ok := first.AsRelation(); ok {
		return rel.SelfTable, nil
	}
	col, _ := first.AsLeaf()
	return col.Table, nil
}

// lastRelationForeignTable returns the foreign (linked) table of the
// path's last link when that link is a relation; it reports false for an
// empty path or one that ends in a leaf.
func (p Path) lastRelationForeignTable() (string, bool) {
	for i := len(p.links) - 1; i >= 0; i-- {
		if rel, ok := p.links[i].AsRelation(); ok {
			return rel.LinkedTable, true
		}
		return "", false // hit a leaf before any relation
	}
	return "", false
}

// Push appends relation link r to a path that is empty or whose last
// link is itself a relation, building a relation-only prefix that
// PushLeaf or Join later completes. Pushing onto a path that already
// ends in a leaf returns a PathError.
//
// Push enforces invariant (b) of spec.md §3: r's SelfTable must equal
// the foreign table of the path's current last relation (or, if the
// path is empty, Push simply seeds the prefix).
func (p Path) Push(r RelationLink) (Path, error) {
	if err := r.Validate(); err != nil {
		return Path{}, err
	}
	if len(p.links) > 0 {
		last := p.links[len(p.links)-1]
		if leafCol, ok := last.AsLeaf(); ok {
			return Path{}, &PathError{Reason: "cannot push a relation after a leaf column " + leafCol.QualifiedName()}
		}
		if rel, ok := last.AsRelation(); ok && rel.LinkedTable != r.SelfTable {
			return Path{}, &PathError{Reason: "relation self table " + r.SelfTable + " does not match prior relation's foreign table " + rel.LinkedTable}
		}
	}
	links := make([]Link, len(p.links), len(p.links)+1)
	copy(links, p.links)
	links = append(links, Relation(r))
	return Path{links: links}, nil
}

// PushLeaf terminates the path with leaf column c. The path's last link
// must be a relation whose foreign table equals c's table: an empty path
// returns ErrEmptyPath, and a path that already ends in a leaf returns a
// PathError.
func (p Path) PushLeaf(c PhysicalColumn) (Path, error) {
	if len(p.links) == 0 {
		return Path{}, ErrEmptyPath
	}
	last := p.links[len(p.links)-1]
	if _, ok := last.AsLeaf(); ok {
		return Path{}, &PathError{Reason: "path already terminates in a leaf column"}
	}
	rel, _ := last.AsRelation()
	if rel.LinkedTable != c.Table {
		return Path{}, &PathError{Reason: "leaf column table " + c.Table + " does not match relation's foreign table " + rel.LinkedTable}
	}
	links := make([]Link, len(p.links), len(p.links)+1)
	copy(links, p.links)
	links = append(links, Leaf(c))
	return Path{links: links}, nil
}

// RelationOnly builds a single-link Path consisting of just the
// traversal through r, with no terminal leaf yet. It exists so callers
// mapping a relation-valued where/order-by field (e.g. `{venue: {name:
// ...}}`) can recursively map the nested argument into a child Path and
// then prepend their own relation hop with Join, without first having
// to know the child's leaf column. A RelationOnly path violates Path's
// normal "always ends in a leaf" invariant and must always be the left
// operand of Join, never used standalone to address a column.
func RelationOnly(r RelationLink) Path {
	return Path{links: []Link{Relation(r)}}
}

// Join concatenates two paths: self, which must end in a relation,
// followed by all of other's links. If either path is empty, the other
// is returned unchanged. In
// practice Join is used to prepend a PredicateParameter's own
// column_path_link onto a recursively produced child path (spec.md
// §4.2's "prepending the parameter's column_path_link"): self supplies
// the relation traversal, other supplies the rest.
//
// Join enforces the same consecutive-link invariant as Push: self's
// last relation's foreign table must equal other's root table.
func Join(self, other Path) (Path, error) {
	if len(self.links) == 0 {
		return other, nil
	}
	if len(other.links) == 0 {
		return self, nil
	}
	lastRel, ok := self.links[len(self.links)-1].AsRelation()
	if !ok {
		return Path{}, &PathError{Reason: "cannot join: left path does not end in a relation"}
	}
	otherRoot, err := other.RootTable()
	if err != nil {
		return Path{}, err
	}
	if lastRel.LinkedTable != otherRoot {
		return Path{}, &PathError{Reason: "cannot join: left path's foreign table " + lastRel.LinkedTable + " does not match right path's root table " + otherRoot}
	}
	links := make([]Link, 0, len(self.links)+len(other.links))
	links = append(links, self.links...)
	links = append(links, other.links...)
	return Path{links: links}, nil
}

// String renders the path for diagnostics, joining its links with
// " -> ": a leaf as its qualified column name, a relation as
// "self=>linked"; it is not used to emit SQL.
func (p Path) String() string {
	var sb strings.Builder
	for i, l := range p.links {
		if i > 0 {
			sb.WriteString(" -> ")
		}
		if col, ok := l.AsLeaf(); ok {
			sb.WriteString(col.QualifiedName())
		} else if rel, ok := l.AsRelation(); ok {
			sb.WriteString(rel.SelfTable + "=>" + rel.LinkedTableName())
		}
	}
	return sb.String()
}
