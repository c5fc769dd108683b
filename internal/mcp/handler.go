package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"kvdoc/internal/logging"
	"kvdoc/internal/tools"
)

// ProtocolVersion is the tool protocol revision this server speaks.
const ProtocolVersion = "2024-11-05"

const instructions = "Tools for navigating key/value stores of JSON documents"

var logger = logging.For("mcp")

// Handler routes JSON-RPC requests to a tool registry.
type Handler struct {
	reg     *tools.Registry
	name    string
	version string
}

// NewHandler creates a Handler serving reg. name and version are reported
// to clients by initialize.
func NewHandler(reg *tools.Registry, name, version string) *Handler {
	return &Handler{reg: reg, name: name, version: version}
}

// Registry returns the registry the handler serves.
func (h *Handler) Registry() *tools.Registry {
	return h.reg
}

// Dispatch routes an RPC request to the correct method. ok is false for
// notifications, which get no response.
func (h *Handler) Dispatch(ctx context.Context, req Request) (resp Response, ok bool) {
	if req.JSONRPC != "2.0" {
		return errResponse(req.ID, CodeInvalidRequest, "jsonrpc must be '2.0'"), true
	}
	if req.IsNotification() {
		logger.Debug("notification", "method", req.Method)
		return Response{}, false
	}

	switch req.Method {
	case "initialize":
		return okResponse(req.ID, map[string]any{
			"protocolVersion": ProtocolVersion,
			"capabilities":    map[string]any{"tools": map[string]any{}},
			"serverInfo":      map[string]any{"name": h.name, "version": h.version},
			"instructions":    instructions,
		}), true

	case "ping":
		return okResponse(req.ID, map[string]any{}), true

	case "tools/list":
		return okResponse(req.ID, map[string]any{"tools": h.listTools()}), true

	case "tools/call":
		return h.callTool(ctx, req), true

	default:
		return errResponse(req.ID, CodeMethodNotFound, fmt.Sprintf("method %q not found", req.Method)), true
	}
}

func (h *Handler) listTools() []ToolInfo {
	list := h.reg.List()
	out := make([]ToolInfo, 0, len(list))
	for _, t := range list {
		out = append(out, ToolInfo{Name: t.Name, Description: t.Help, InputSchema: t.Schema()})
	}
	return out
}

func (h *Handler) callTool(ctx context.Context, req Request) Response {
	var params struct {
		Name      string          `json:"name"`
		Arguments json.RawMessage `json:"arguments"`
	}
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return errResponse(req.ID, CodeInvalidParams, "params: "+err.Error())
	}
	if params.Name == "" {
		return errResponse(req.ID, CodeInvalidParams, "params: missing tool name")
	}

	res, err := h.reg.Call(ctx, params.Name, params.Arguments)
	switch {
	case errors.Is(err, tools.ErrUnknownTool):
		return errResponse(req.ID, CodeMethodNotFound, err.Error())
	case errors.Is(err, tools.ErrInvalidParams):
		return errResponse(req.ID, CodeInvalidParams, err.Error())
	case err != nil:
		return okResponse(req.ID, CallResult{
			Content: []Content{{Type: "text", Text: err.Error()}},
			IsError: true,
		})
	}

	text, err := json.Marshal(res)
	if err != nil {
		return errResponse(req.ID, CodeInternalError, "encoding result: "+err.Error())
	}
	return okResponse(req.ID, CallResult{
		Content:           []Content{{Type: "text", Text: string(text)}},
		StructuredContent: json.RawMessage(text),
	})
}
