// Package tools implements the MCP tool handlers for the requirement store.
//
// Each tool follows the same pattern:
// - A struct with dependencies (the service) injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() processes the request and returns a result
//
// Store errors are user errors: they come back as tool result errors with
// the store's message, never as transport failures.
package tools

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/docstore"
	"github.com/reqwire/reqwire/internal/model"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing or not a number (JSON numbers are float64).
func intArg(req mcp.CallToolRequest, key string, defaultVal int) int {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return defaultVal
	}
	return int(v)
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// stringListArg parses an argument passed as a JSON string array, e.g.
// ["safety", "verified"]. An empty string yields nil.
func stringListArg(req mcp.CallToolRequest, key string) ([]string, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return nil, nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, fmt.Errorf("'%s' must be a JSON string array: %w", key, err)
	}
	return list, nil
}

// mapArg parses an argument passed as a JSON object string. An empty string
// yields nil.
func mapArg(req mcp.CallToolRequest, key string) (map[string]any, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("'%s' must be a JSON object: %w", key, err)
	}
	return m, nil
}

// stringMapArg parses an argument passed as a JSON object of strings.
func stringMapArg(req mcp.CallToolRequest, key string) (map[string]string, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		return nil, fmt.Errorf("'%s' must be a JSON object of strings: %w", key, err)
	}
	return m, nil
}

// requirementJSON serializes a requirement for tool output, adding the
// derived rid and document prefix the stored payload omits.
func requirementJSON(req *model.Requirement) map[string]any {
	m := model.RequirementToMap(req)
	m["rid"] = req.RID
	m["doc_prefix"] = req.DocPrefix
	return m
}

// pageJSON serializes a requirement page for tool output.
func pageJSON(page *docstore.RequirementPage) map[string]any {
	items := make([]any, len(page.Items))
	for i, req := range page.Items {
		items[i] = requirementJSON(req)
	}
	return map[string]any{
		"items":    items,
		"total":    page.Total,
		"page":     page.Page,
		"per_page": page.PerPage,
	}
}

// jsonResult renders any value as an indented JSON tool result.
func jsonResult(v any) *mcp.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encoding result: %v", err))
	}
	return mcp.NewToolResultText(string(data))
}
