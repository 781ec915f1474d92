package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/service"
)

// DeleteRequirementTool handles the req_delete MCP tool.
type DeleteRequirementTool struct {
	svc *service.Service
}

// NewDeleteRequirementTool creates a DeleteRequirementTool.
func NewDeleteRequirementTool(svc *service.Service) *DeleteRequirementTool {
	return &DeleteRequirementTool{svc: svc}
}

// Definition returns the MCP tool definition for req_delete.
func (t *DeleteRequirementTool) Definition() mcp.Tool {
	return mcp.NewTool("req_delete",
		mcp.WithDescription(
			"Delete a requirement and scrub references to it from every other "+
				"requirement's links. 'revision' must equal the stored "+
				"revision. Set dry_run to preview which requirements would "+
				"lose a link without deleting anything.",
		),
		mcp.WithString("rid",
			mcp.Required(),
			mcp.Description("Requirement identifier, e.g. HLR12"),
		),
		mcp.WithNumber("revision",
			mcp.Description("The revision the caller believes is current (required unless dry_run)"),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Preview the cascade without writing (default false)"),
		),
	)
}

// Handle processes the req_delete tool call.
func (t *DeleteRequirementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rid := req.GetString("rid", "")
	if rid == "" {
		return mcp.NewToolResultError("'rid' is required"), nil
	}
	if boolArg(req, "dry_run", false) {
		plan, err := t.svc.PlanDeleteRequirement(rid)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(map[string]any{
			"rid":         plan.RID,
			"referencing": plan.Referencing,
		}), nil
	}
	revision := intArg(req, "revision", 0)
	if revision < 1 {
		return mcp.NewToolResultError("'revision' is required and must be a positive integer"), nil
	}
	canonical, err := t.svc.DeleteRequirement(rid, revision)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{"deleted": canonical}), nil
}
