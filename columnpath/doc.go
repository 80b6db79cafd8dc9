// Package columnpath represents a chain of relation links from a root
// entity's table down to a leaf column, and the physical building
// blocks (PhysicalColumn, RelationLink) that chain is made of.
//
// A complete Path ends in a Leaf, and every consecutive pair of links
// must line up table-to-table. Push, PushLeaf and Join enforce the
// table-to-table rule at construction time. Paths ending in a relation
// (built by RelationOnly or Push) are allowed as prefixes; the
// leaf-last rule is checked only when LeafColumn is called.
package columnpath
