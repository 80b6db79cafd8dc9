// Package resolver implements the Operation Resolver: per spec.md §4.5,
// it orchestrates a single query or mutation end to end — check_access,
// build the abstract operation, AND the access predicate in, lower to
// SQL, execute through txrun, and hand back the JSON-shaped result.
//
// Field-selection and argument-shape information (which columns a
// request projects, the predicatemapper/orderby/dataparam Parameter
// trees describing its where/orderBy/data arguments) is supplied by the
// caller per request — resolver has no schema-compiler of its own. In a
// generated-code framework this wiring is emitted by a codegen pass; here
// it is hand-written once per entity in package examples/concerts, the
// same way gqlgen's generated resolvers call into shared runtime helpers.
package resolver
