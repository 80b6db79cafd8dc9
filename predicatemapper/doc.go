// Package predicatemapper turns a GraphQL `where`-style argument tree
// into an abstractsql.Predicate, consulting a PredicateParameter
// description of the argument's shape (spec.md §4.2).
package predicatemapper
