// Package txrun implements the Transaction Runtime: it executes a
// TransactionScript — an ordered sequence of lower.Result-producing SQL
// steps — inside a single BEGIN…COMMIT block, resolving later steps'
// placeholders against earlier steps' JSON-projected output
// (resolve_value(step_id, row_index, key), spec.md §4.7).
package txrun
