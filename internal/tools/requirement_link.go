package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/service"
)

// LinkRequirementTool handles the req_link MCP tool.
type LinkRequirementTool struct {
	svc *service.Service
}

// NewLinkRequirementTool creates a LinkRequirementTool.
func NewLinkRequirementTool(svc *service.Service) *LinkRequirementTool {
	return &LinkRequirementTool{svc: svc}
}

// Definition returns the MCP tool definition for req_link.
func (t *LinkRequirementTool) Definition() mcp.Tool {
	return mcp.NewTool("req_link",
		mcp.WithDescription(
			"Link a requirement to a parent requirement it traces to. The "+
				"target must exist in the same document or an ancestor "+
				"document. Linking an already linked target refreshes the "+
				"stored fingerprint and clears the suspect flag.",
		),
		mcp.WithString("source_rid",
			mcp.Required(),
			mcp.Description("The derived (child) requirement, e.g. HLR12"),
		),
		mcp.WithString("target_rid",
			mcp.Required(),
			mcp.Description("The parent requirement it traces to, e.g. SYS3"),
		),
		mcp.WithNumber("revision",
			mcp.Required(),
			mcp.Description("The source requirement's current revision"),
		),
	)
}

// Handle processes the req_link tool call.
func (t *LinkRequirementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sourceRID := req.GetString("source_rid", "")
	targetRID := req.GetString("target_rid", "")
	if sourceRID == "" || targetRID == "" {
		return mcp.NewToolResultError("'source_rid' and 'target_rid' are required"), nil
	}
	revision := intArg(req, "revision", 0)
	if revision < 1 {
		return mcp.NewToolResultError("'revision' is required and must be a positive integer"), nil
	}
	r, err := t.svc.LinkRequirements(sourceRID, targetRID, revision)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(requirementJSON(r)), nil
}
