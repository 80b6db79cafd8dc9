package gqlsurface

import (
	"fmt"

	"github.com/syssam/gqlpg"
	"github.com/vektah/gqlparser/v2/ast"
)

// resolveIntrospection answers the `__typename` and `__schema` roots a
// client issues against Query or Mutation (spec.md §6: "Introspection
// follows the June-2018 spec including __schema and __type roots"). We
// expose the subset a generic GraphQL client actually needs to
// discover field names and argument shapes for our hand-wired
// Registry — a full type-system walk (every GraphQL scalar/object/
// input type our entities could produce) would duplicate the schema a
// real gqlgen-generated server builds from SDL, which this surface
// deliberately does not own (see doc.go); __type(name:) is therefore
// not implemented and returns a Validation error naming the gap.
func (h *Handler) resolveIntrospection(field *ast.Field, op ast.Operation) (any, error) {
	switch field.Name {
	case "__typename":
		if op == ast.Mutation {
			return "Mutation", nil
		}
		return "Query", nil

	case "__schema":
		return h.schemaIntrospection(), nil

	case "__type":
		return nil, gqlpg.NewValidationError("__type", fmt.Errorf("gqlpg: __type(name:) introspection is not implemented by this surface"))

	default:
		return nil, fmt.Errorf("gqlpg: unknown introspection field %q", field.Name)
	}
}

// schemaIntrospection builds a minimal `__Schema` value: enough for a
// client to list the Query/Mutation root fields this Registry serves,
// without a full type graph.
func (h *Handler) schemaIntrospection() map[string]any {
	queryFields := make([]map[string]any, 0, len(h.Registry.Queries))
	for _, name := range sortedKeys(h.Registry.Queries) {
		t := h.Registry.Queries[name]
		queryFields = append(queryFields, map[string]any{"name": t.Name, "description": t.Description})
	}

	schema := map[string]any{
		"queryType": map[string]any{"name": "Query", "fields": queryFields},
		"types":     []any{},
		"directives": []any{},
	}

	if h.Registry.HasMutations() {
		mutationFields := make([]map[string]any, 0, len(h.Registry.Mutations))
		for _, name := range sortedKeys(h.Registry.Mutations) {
			t := h.Registry.Mutations[name]
			mutationFields = append(mutationFields, map[string]any{"name": t.Name, "description": t.Description})
		}
		schema["mutationType"] = map[string]any{"name": "Mutation", "fields": mutationFields}
	} else {
		schema["mutationType"] = nil
	}

	return schema
}
