// Package model holds the precompiled, in-memory schema the rest of the
// pipeline resolves against: entities, their fields, the physical
// columns and relation links those fields map to, and the access
// expressions attached to every entity and field.
//
// A Model is built once by the (external, out-of-scope) schema builder
// and is immutable afterwards — every later reference borrows from it
// for the life of the process. Entities and fields refer to each other
// through slab indices (EntityID, FieldID, ExprID), not pointers, so the
// graph has no cyclic ownership even though entities routinely reference
// one another (a many-to-one field on Concert points at Venue, whose
// one-to-many inverse points back at Concert).
package model
