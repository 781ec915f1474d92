package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/docstore"
	"github.com/reqwire/reqwire/internal/service"
)

// SearchRequirementsTool handles the req_search MCP tool.
type SearchRequirementsTool struct {
	svc *service.Service
}

// NewSearchRequirementsTool creates a SearchRequirementsTool.
func NewSearchRequirementsTool(svc *service.Service) *SearchRequirementsTool {
	return &SearchRequirementsTool{svc: svc}
}

// Definition returns the MCP tool definition for req_search.
func (t *SearchRequirementsTool) Definition() mcp.Tool {
	return mcp.NewTool("req_search",
		mcp.WithDescription(
			"Search requirements by free text and filters. Text matching is "+
				"case-insensitive substring over title, statement, acceptance, "+
				"source, owner and notes unless 'fields' narrows the set.",
		),
		mcp.WithString("query",
			mcp.Description("Free-text query matched against the searchable fields"),
		),
		mcp.WithString("fields",
			mcp.Description(`JSON string array restricting which fields the query searches. Example: ["title","statement"]`),
		),
		mcp.WithString("field_queries",
			mcp.Description(`JSON object of per-field substring queries, all of which must match. Example: {"owner":"alice"}`),
		),
		mcp.WithString("status",
			mcp.Description("Keep only requirements with this status"),
		),
		mcp.WithString("labels",
			mcp.Description("JSON string array of labels; a requirement must carry all of them"),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number, starting at 1 (default 1)"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Page size (default 50)"),
		),
	)
}

// Handle processes the req_search tool call.
func (t *SearchRequirementsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	labels, err := stringListArg(req, "labels")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fields, err := stringListArg(req, "fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	fieldQueries, err := stringMapArg(req, "field_queries")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := t.svc.SearchRequirements(docstore.SearchOptions{
		Page:         intArg(req, "page", 1),
		PerPage:      intArg(req, "per_page", 50),
		Status:       req.GetString("status", ""),
		Labels:       labels,
		Query:        req.GetString("query", ""),
		Fields:       fields,
		FieldQueries: fieldQueries,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(pageJSON(page)), nil
}
