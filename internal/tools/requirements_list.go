package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/docstore"
	"github.com/reqwire/reqwire/internal/service"
)

// ListRequirementsTool handles the req_list MCP tool.
type ListRequirementsTool struct {
	svc *service.Service
}

// NewListRequirementsTool creates a ListRequirementsTool.
func NewListRequirementsTool(svc *service.Service) *ListRequirementsTool {
	return &ListRequirementsTool{svc: svc}
}

// Definition returns the MCP tool definition for req_list.
func (t *ListRequirementsTool) Definition() mcp.Tool {
	return mcp.NewTool("req_list",
		mcp.WithDescription(
			"List requirements across all documents with optional status and "+
				"label filters, paginated. Returns items plus total count.",
		),
		mcp.WithString("status",
			mcp.Description("Keep only requirements with this status (draft, in_review, approved, baselined, retired)"),
		),
		mcp.WithString("labels",
			mcp.Description(`JSON string array of labels; a requirement must carry all of them. Example: ["safety","verified"]`),
		),
		mcp.WithNumber("page",
			mcp.Description("Page number, starting at 1 (default 1)"),
		),
		mcp.WithNumber("per_page",
			mcp.Description("Page size (default 50)"),
		),
	)
}

// Handle processes the req_list tool call.
func (t *ListRequirementsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	labels, err := stringListArg(req, "labels")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	page, err := t.svc.ListRequirements(docstore.ListOptions{
		Page:    intArg(req, "page", 1),
		PerPage: intArg(req, "per_page", 50),
		Status:  req.GetString("status", ""),
		Labels:  labels,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(pageJSON(page)), nil
}
