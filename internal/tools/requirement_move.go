package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/service"
)

// MoveRequirementTool handles the req_move MCP tool.
type MoveRequirementTool struct {
	svc *service.Service
}

// NewMoveRequirementTool creates a MoveRequirementTool.
func NewMoveRequirementTool(svc *service.Service) *MoveRequirementTool {
	return &MoveRequirementTool{svc: svc}
}

// Definition returns the MCP tool definition for req_move.
func (t *MoveRequirementTool) Definition() mcp.Tool {
	return mcp.NewTool("req_move",
		mcp.WithDescription(
			"Move a requirement into another document. It receives the next "+
				"free id there and every requirement linking to it is "+
				"rewritten to the new identifier. The move is refused when a "+
				"referencing requirement's document would no longer satisfy "+
				"the ancestor rule.",
		),
		mcp.WithString("rid",
			mcp.Required(),
			mcp.Description("Requirement identifier to move, e.g. HLR12"),
		),
		mcp.WithString("new_prefix",
			mcp.Required(),
			mcp.Description("Destination document prefix"),
		),
		mcp.WithString("overrides",
			mcp.Description("Optional JSON object of fields to change during the move"),
		),
	)
}

// Handle processes the req_move tool call.
func (t *MoveRequirementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rid := req.GetString("rid", "")
	if rid == "" {
		return mcp.NewToolResultError("'rid' is required"), nil
	}
	newPrefix := req.GetString("new_prefix", "")
	if newPrefix == "" {
		return mcp.NewToolResultError("'new_prefix' is required"), nil
	}
	overrides, err := mapArg(req, "overrides")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	r, err := t.svc.MoveRequirement(rid, newPrefix, overrides)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(requirementJSON(r)), nil
}
