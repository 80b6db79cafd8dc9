// Package orderby implements the Order-By Mapper: it turns a possibly
// nested GraphQL orderBy argument into a sequence of
// abstractsql.OrderExpr terms, checking field-level read access along
// the way (spec.md §4.3).
package orderby
