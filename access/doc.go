// Package access implements the Access Solver: partial evaluation of a
// model.Expression against a request context (and, for precheck
// expressions, an input value), producing either a concrete boolean or
// a residual abstractsql.Predicate to be ANDed into the emitted SQL or
// into a transaction step's server-side guard.
package access
