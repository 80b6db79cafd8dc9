package gqlsurface

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"

	"github.com/syssam/gqlpg"
)

// request is the standard GraphQL-over-HTTP POST body (spec.md §6).
type request struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName"`
	Variables     map[string]any `json:"variables"`
}

// response is the standard GraphQL-over-HTTP response envelope.
type response struct {
	Data   map[string]any `json:"data,omitempty"`
	Errors gqlerror.List  `json:"errors,omitempty"`
}

// Handler serves the GraphQL endpoint at a configurable path (the
// caller mounts it with http.Handle or a router of its choice).
type Handler struct {
	Registry             *Registry
	IntrospectionEnabled bool
}

// NewHandler returns a Handler dispatching to reg.
func NewHandler(reg *Registry, introspectionEnabled bool) *Handler {
	return &Handler{Registry: reg, IntrospectionEnabled: introspectionEnabled}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "gqlpg: GraphQL endpoint only accepts POST", http.StatusMethodNotAllowed)
		return
	}

	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeResponse(w, response{Errors: gqlerror.List{gqlerror.Errorf("gqlpg: malformed request body: %v", err)}})
		return
	}

	doc, gqlErr := parser.ParseQuery(&ast.Source{Input: req.Query})
	if gqlErr != nil {
		writeResponse(w, response{Errors: gqlerror.List{gqlErr}})
		return
	}

	op := selectOperation(doc, req.OperationName)
	if op == nil {
		writeResponse(w, response{Errors: gqlerror.List{gqlerror.Errorf("gqlpg: no operation found matching %q", req.OperationName)}})
		return
	}

	data, errs := h.execute(r.Context(), op, req.Variables)
	writeResponse(w, response{Data: data, Errors: errs})
}

func selectOperation(doc *ast.QueryDocument, name string) *ast.OperationDefinition {
	if len(doc.Operations) == 1 {
		return doc.Operations[0]
	}
	for _, op := range doc.Operations {
		if op.Name == name {
			return op
		}
	}
	return nil
}

// execute dispatches every top-level field in op's selection set to
// the Registry sequentially. gqlgen's generated executors resolve
// sibling fields concurrently via errgroup; we deliberately keep this
// single-threaded — each field already runs its own transaction via
// txrun.Run, and interleaving independent transactions buys nothing
// for a resolver whose whole cost is one round trip to Postgres.
func (h *Handler) execute(ctx context.Context, op *ast.OperationDefinition, vars map[string]any) (map[string]any, gqlerror.List) {
	if op.Operation == ast.Subscription {
		return nil, gqlerror.List{gqlerror.Errorf("gqlpg: subscriptions are not supported")}
	}

	data := make(map[string]any, len(op.SelectionSet))
	var errs gqlerror.List

	for _, sel := range op.SelectionSet {
		field, ok := sel.(*ast.Field)
		if !ok {
			continue
		}
		key := field.Alias
		if key == "" {
			key = field.Name
		}

		if strings.HasPrefix(field.Name, "__") {
			if !h.IntrospectionEnabled {
				errs = append(errs, gqlerror.Errorf("gqlpg: introspection is disabled"))
				continue
			}
			v, err := h.resolveIntrospection(field, op.Operation)
			if err != nil {
				errs = append(errs, &gqlerror.Error{Message: gqlpg.ExplicitMessage(err), Path: ast.Path{ast.PathName(key)}})
				continue
			}
			data[key] = v
			continue
		}

		tool, _, ok := h.Registry.Lookup(field.Name)
		if !ok {
			errs = append(errs, &gqlerror.Error{
				Message: "gqlpg: unknown field \"" + field.Name + "\"",
				Path:    ast.Path{ast.PathName(key)},
			})
			continue
		}
		v, err := tool.Exec(ctx, field, vars)
		if err != nil {
			errs = append(errs, &gqlerror.Error{
				Message: gqlpg.ExplicitMessage(err),
				Path:    ast.Path{ast.PathName(key)},
			})
			data[key] = nil
			continue
		}
		data[key] = v.GoString()
	}
	return data, errs
}

func writeResponse(w http.ResponseWriter, resp response) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
