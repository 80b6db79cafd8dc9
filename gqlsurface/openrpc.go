package gqlsurface

import (
	"encoding/json"
	"net/http"
)

// OpenRPCHandler serves a static OpenRPC document describing every
// tool in the Registry as a JSON-RPC method — supplemented from
// original_source/'s openrpc.rs, which pairs the MCP surface with a
// machine-readable method catalog for tooling that predates MCP's own
// discovery protocol.
type OpenRPCHandler struct {
	Registry    *Registry
	ServerName  string
	ServerVer   string
}

// NewOpenRPCHandler returns an OpenRPCHandler describing reg.
func NewOpenRPCHandler(reg *Registry, serverName, serverVersion string) *OpenRPCHandler {
	return &OpenRPCHandler{Registry: reg, ServerName: serverName, ServerVer: serverVersion}
}

func (h *OpenRPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(h.document())
}

func (h *OpenRPCHandler) document() map[string]any {
	methods := make([]map[string]any, 0, len(h.Registry.Queries)+len(h.Registry.Mutations))
	for _, t := range h.Registry.AllTools() {
		methods = append(methods, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"params":      schemaToParamList(t.InputSchema),
			"result":      map[string]any{"name": t.Name + "Result", "schema": map[string]any{"type": "object"}},
		})
	}
	return map[string]any{
		"openrpc": "1.2.6",
		"info":    map[string]any{"title": h.ServerName, "version": h.ServerVer},
		"methods": methods,
	}
}

// schemaToParamList flattens a JSON-Schema-shaped InputSchema
// ({"properties": {...}, "required": [...]}) into OpenRPC's list-of-
// named-params form.
func schemaToParamList(schema map[string]any) []map[string]any {
	if schema == nil {
		return nil
	}
	props, _ := schema["properties"].(map[string]any)
	required := map[string]bool{}
	if list, ok := schema["required"].([]string); ok {
		for _, name := range list {
			required[name] = true
		}
	}
	params := make([]map[string]any, 0, len(props))
	for _, name := range sortedMapKeysAny(props) {
		params = append(params, map[string]any{
			"name":     name,
			"schema":   props[name],
			"required": required[name],
		})
	}
	return params
}

func sortedMapKeysAny(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}
