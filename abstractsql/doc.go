// Package abstractsql defines the table-aware declarative representation
// of SQL operations — select, insert, update, delete — that the
// Predicate/Order/Limit/Data-Param mappers build and the SQL Lowerer
// turns into text. Trees in this package are created per-request,
// reference the model only by value (columnpath.Path, table/column
// names), and are dropped once lowering has produced SQL text and a
// parameter list.
package abstractsql
