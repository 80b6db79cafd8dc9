package gqlsurface

import (
	"context"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/gqlpg/value"
)

// FieldExecutor runs one top-level GraphQL field (a Query or Mutation
// root field) end to end and returns its result. field carries the
// field's arguments and nested selection set — the executor (built by
// a hand-written per-entity package on top of package resolver) is
// responsible for turning the selection set into an
// abstractsql.Selection and the arguments into the predicatemapper/
// orderby/dataparam Parameter trees resolver.Retrieve/Create/Update/
// Delete expect. vars holds the operation's resolved GraphQL
// variables, for an executor that needs to dereference a
// `*ast.Value` referencing $var itself.
type FieldExecutor func(ctx context.Context, field *ast.Field, vars map[string]any) (value.Value, error)

// Tool describes a FieldExecutor's MCP/OpenRPC surface: the name tools
// and methods are listed under, a human description, and a JSON Schema
// for its arguments (spec.md §6's "tools/list … with name, description,
// JSON schema").
type Tool struct {
	Name        string
	Description string
	InputSchema map[string]any
	Exec        FieldExecutor
}

// Registry binds GraphQL root field names (and, identically, MCP tool
// names) to the executors that serve them. One Registry instance is
// normally shared by the GraphQL handler and the MCP handler, so a
// query and a tool call for the same operation run the identical code
// path.
type Registry struct {
	Queries   map[string]Tool
	Mutations map[string]Tool
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{Queries: map[string]Tool{}, Mutations: map[string]Tool{}}
}

// RegisterQuery adds a Query-root field.
func (r *Registry) RegisterQuery(t Tool) {
	r.Queries[t.Name] = t
}

// RegisterMutation adds a Mutation-root field.
func (r *Registry) RegisterMutation(t Tool) {
	r.Mutations[t.Name] = t
}

// Lookup finds the executor for name regardless of whether it is a
// query or a mutation, along with which root it was found under.
func (r *Registry) Lookup(name string) (tool Tool, isMutation bool, ok bool) {
	if t, ok := r.Queries[name]; ok {
		return t, false, true
	}
	if t, ok := r.Mutations[name]; ok {
		return t, true, true
	}
	return Tool{}, false, false
}

// HasMutations reports whether any mutation field was registered — the
// introspection Schema root only advertises a Mutation type when this
// is true (spec.md §6: "A Mutation root only if any mutation exists").
func (r *Registry) HasMutations() bool {
	return len(r.Mutations) > 0
}

// AllTools returns every registered Tool across both roots, queries
// first, for tools/list and the OpenRPC document — both want a single
// flat, stably ordered list.
func (r *Registry) AllTools() []Tool {
	out := make([]Tool, 0, len(r.Queries)+len(r.Mutations))
	for _, name := range sortedKeys(r.Queries) {
		out = append(out, r.Queries[name])
	}
	for _, name := range sortedKeys(r.Mutations) {
		out = append(out, r.Mutations[name])
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Small maps (one entry per exposed entity operation); insertion
	// sort keeps this dependency-free and the order stable across runs.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
