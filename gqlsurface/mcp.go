package gqlsurface

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/vektah/gqlparser/v2/ast"

	"github.com/syssam/gqlpg"
)

// defaultProtocolVersion is echoed back to a client that doesn't name
// one (spec.md §6: "Echo client's protocolVersion if supported
// (default 2024-11-05)").
const defaultProtocolVersion = "2024-11-05"

type rpcRequest struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      any             `json:"id,omitempty"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string     `json:"jsonrpc"`
	ID      any        `json:"id,omitempty"`
	Result  any        `json:"result,omitempty"`
	Error   *rpcError  `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
)

// MCPHandler implements the subset of the MCP "streamable HTTP"
// transport spec.md §6 tabulates: initialize, tools/list, tools/call,
// the initialized/cancelled notifications, and empty prompts/list and
// resources/list shims for client compatibility.
type MCPHandler struct {
	Registry        *Registry
	ServerName      string
	ServerVersion   string
}

// NewMCPHandler returns an MCPHandler serving reg's tools.
func NewMCPHandler(reg *Registry, serverName, serverVersion string) *MCPHandler {
	return &MCPHandler{Registry: reg, ServerName: serverName, ServerVersion: serverVersion}
}

func (h *MCPHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req rpcRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", Error: &rpcError{Code: codeParseError, Message: "parse error: " + err.Error()}})
		return
	}
	if req.JSONRPC != "2.0" || req.Method == "" {
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeInvalidRequest, Message: "invalid request"}})
		return
	}

	switch req.Method {
	case "initialize":
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: h.initialize(req.Params)})
	case "tools/list":
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: h.toolsList()})
	case "tools/call":
		result, err := h.toolsCall(r.Context(), req.Params)
		if err != nil {
			writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{
				"content": []map[string]any{{"type": "text", "text": gqlpg.ExplicitMessage(err)}},
				"isError": true,
			}})
			return
		}
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: result})
	case "notifications/initialized", "notifications/cancelled":
		w.WriteHeader(http.StatusNoContent)
	case "prompts/list":
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"prompts": []any{}}})
	case "resources/list":
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]any{"resources": []any{}}})
	default:
		writeRPC(w, rpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &rpcError{Code: codeMethodNotFound, Message: "method not found: " + req.Method}})
	}
}

func (h *MCPHandler) initialize(params json.RawMessage) map[string]any {
	var body struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	_ = json.Unmarshal(params, &body)
	version := body.ProtocolVersion
	if version == "" {
		version = defaultProtocolVersion
	}
	return map[string]any{
		"protocolVersion": version,
		"capabilities":    map[string]any{"tools": map[string]any{}},
		"serverInfo":      map[string]any{"name": h.ServerName, "version": h.ServerVersion},
	}
}

func (h *MCPHandler) toolsList() map[string]any {
	tools := make([]map[string]any, 0, len(h.Registry.Queries)+len(h.Registry.Mutations))
	for _, t := range h.Registry.AllTools() {
		tools = append(tools, map[string]any{
			"name":        t.Name,
			"description": t.Description,
			"inputSchema": t.InputSchema,
		})
	}
	return map[string]any{"tools": tools}
}

func (h *MCPHandler) toolsCall(ctx context.Context, params json.RawMessage) (map[string]any, error) {
	var body struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	}
	if err := json.Unmarshal(params, &body); err != nil {
		return nil, gqlpg.NewValidationError("params", err)
	}
	tool, _, ok := h.Registry.Lookup(body.Name)
	if !ok {
		return nil, gqlpg.NewValidationError("name", fmt.Errorf("unknown tool %q", body.Name))
	}
	v, err := tool.Exec(ctx, toolCallField(body.Name, body.Arguments), body.Arguments)
	if err != nil {
		return nil, err
	}
	text, err := json.Marshal(v.GoString())
	if err != nil {
		return nil, gqlpg.NewInternalError(err)
	}
	return map[string]any{
		"content": []map[string]any{{"type": "text", "text": string(text)}},
		"isError": false,
	}, nil
}

// toolCallField synthesizes an *ast.Field so an MCP tools/call request
// can run through the exact same FieldExecutor a GraphQL query uses:
// each JSON argument becomes a Variable-kind ast.Value referencing its
// own name, resolved against the arguments map passed as vars — the
// same mechanism gqlparser uses to resolve a real `$var` reference.
func toolCallField(name string, arguments map[string]any) *ast.Field {
	args := make(ast.ArgumentList, 0, len(arguments))
	for k := range arguments {
		args = append(args, &ast.Argument{Name: k, Value: &ast.Value{Kind: ast.Variable, Raw: k}})
	}
	return &ast.Field{Name: name, Arguments: args}
}

func writeRPC(w http.ResponseWriter, resp rpcResponse) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}
