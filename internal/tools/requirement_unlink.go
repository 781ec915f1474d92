package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/service"
)

// UnlinkRequirementTool handles the req_unlink MCP tool.
type UnlinkRequirementTool struct {
	svc *service.Service
}

// NewUnlinkRequirementTool creates an UnlinkRequirementTool.
func NewUnlinkRequirementTool(svc *service.Service) *UnlinkRequirementTool {
	return &UnlinkRequirementTool{svc: svc}
}

// Definition returns the MCP tool definition for req_unlink.
func (t *UnlinkRequirementTool) Definition() mcp.Tool {
	return mcp.NewTool("req_unlink",
		mcp.WithDescription(
			"Remove the link from a requirement to a parent requirement. "+
				"Fails when no such link exists.",
		),
		mcp.WithString("source_rid",
			mcp.Required(),
			mcp.Description("The requirement carrying the link, e.g. HLR12"),
		),
		mcp.WithString("target_rid",
			mcp.Required(),
			mcp.Description("The link target to remove, e.g. SYS3"),
		),
		mcp.WithNumber("revision",
			mcp.Required(),
			mcp.Description("The source requirement's current revision"),
		),
	)
}

// Handle processes the req_unlink tool call.
func (t *UnlinkRequirementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceRID := req.GetString("source_rid", "")
	targetRID := req.GetString("target_rid", "")
	if sourceRID == "" || targetRID == "" {
		return mcp.NewToolResultError("'source_rid' and 'target_rid' are required"), nil
	}
	revision := intArg(req, "revision", 0)
	if revision < 1 {
		return mcp.NewToolResultError("'revision' is required and must be a positive integer"), nil
	}
	r, err := t.svc.UnlinkRequirements(sourceRID, targetRID, revision)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(requirementJSON(r)), nil
}
