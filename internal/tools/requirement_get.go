package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/service"
)

// GetRequirementTool handles the req_get MCP tool.
type GetRequirementTool struct {
	svc *service.Service
}

// NewGetRequirementTool creates a GetRequirementTool.
func NewGetRequirementTool(svc *service.Service) *GetRequirementTool {
	return &GetRequirementTool{svc: svc}
}

// Definition returns the MCP tool definition for req_get.
func (t *GetRequirementTool) Definition() mcp.Tool {
	return mcp.NewTool("req_get",
		mcp.WithDescription(
			"Fetch one requirement by its identifier (e.g. HLR12) with link "+
				"suspicion state freshly recomputed.",
		),
		mcp.WithString("rid",
			mcp.Required(),
			mcp.Description("Requirement identifier: document prefix plus number, e.g. SYS3"),
		),
	)
}

// Handle processes the req_get tool call.
func (t *GetRequirementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rid := req.GetString("rid", "")
	if rid == "" {
		return mcp.NewToolResultError("'rid' is required"), nil
	}
	r, err := t.svc.GetRequirement(rid)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(requirementJSON(r)), nil
}
