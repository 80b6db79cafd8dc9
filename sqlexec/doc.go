// Package sqlexec is a thin wrapper over database/sql and lib/pq: it opens
// a Postgres connection, runs a lower.Result's parameterized SQL, and
// decodes the single jsonb column every SELECT/CTE statement produced by
// package lower projects into a value.Value tree (spec.md §4.6/§4.7).
package sqlexec
