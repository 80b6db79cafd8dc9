// Package lower implements the SQL Lowerer: it renders an
// abstractsql.Select/Insert/Update/Delete tree to parameterized
// PostgreSQL text plus an ordered argument list, choosing joins versus
// correlated subselects, projecting JSON via jsonb_build_object and
// jsonb_agg, and composing CTEs for RETURNING-producing statements
// (spec.md §4.6).
package lower
