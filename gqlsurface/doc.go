// Package gqlsurface implements the external interfaces spec.md §6
// describes: a GraphQL-over-HTTP endpoint, introspection's `__schema`/
// `__type` roots, and an MCP "streamable HTTP" JSON-RPC surface with an
// accompanying OpenRPC document. None of it knows how to build a SQL
// statement — every top-level field is dispatched to a FieldExecutor
// registered in a Registry, which a hand-written per-entity package
// (examples/concerts, in this repo) builds on top of package resolver,
// the same division of labor gqlgen draws between its generated
// executor and the resolvers a project author writes by hand.
package gqlsurface
