// Package value implements the dynamic value type shared by access
// expressions, mapper inputs, and row projections: arguments arriving
// from GraphQL variables, context values extracted from a request, and
// rows coming back from Postgres all flow through Value so the rest of
// the pipeline never has to special-case "where did this come from".
//
// A Value is a tagged union, not an any: Bool, Number, String, List,
// Object, Binary, Enum, or Null. Number itself carries one of five
// numeric tags (I32, I64, U64, F32, F64) and defines a total ordering
// and equality across tags via explicit widening, never implicit Go
// coercion.
package value
