package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/service"
)

// DeleteDocumentTool handles the doc_delete MCP tool.
type DeleteDocumentTool struct {
	svc *service.Service
}

// NewDeleteDocumentTool creates a DeleteDocumentTool.
func NewDeleteDocumentTool(svc *service.Service) *DeleteDocumentTool {
	return &DeleteDocumentTool{svc: svc}
}

// Definition returns the MCP tool definition for doc_delete.
func (t *DeleteDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_delete",
		mcp.WithDescription(
			"Delete a document and its entire subtree: descendant documents "+
				"first, then every contained requirement (scrubbing links to "+
				"them), then the directories. Set dry_run to preview the "+
				"cascade without deleting anything.",
		),
		mcp.WithString("prefix",
			mcp.Required(),
			mcp.Description("Prefix of the document to delete"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Preview the cascade without writing (default false)"),
		),
	)
}

// Handle processes the doc_delete tool call.
func (t *DeleteDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := req.GetString("prefix", "")
	if prefix == "" {
		return mcp.NewToolResultError("'prefix' is required"), nil
	}
	if boolArg(req, "dry_run", false) {
		plan, err := t.svc.PlanDeleteDocument(prefix)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"documents":   plan.Prefixes,
			"items":       plan.Items,
			"referencing": plan.Referencing,
		}), nil
	}
	removed, err := t.svc.DeleteDocument(prefix)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"deleted": removed}), nil
}
