package tools

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/service"
)

// PatchRequirementTool handles the req_patch MCP tool.
type PatchRequirementTool struct {
	svc *service.Service
}

// NewPatchRequirementTool creates a PatchRequirementTool.
func NewPatchRequirementTool(svc *service.Service) *PatchRequirementTool {
	return &PatchRequirementTool{svc: svc}
}

// Definition returns the MCP tool definition for req_patch.
func (t *PatchRequirementTool) Definition() mcp.Tool {
	return mcp.NewTool("req_patch",
		mcp.WithDescription(
			"Apply an RFC 6902 JSON patch to a requirement. 'revision' must "+
				"equal the stored revision or the call fails with a revision "+
				"mismatch — reload the requirement and resubmit. Patching id "+
				"or links is rejected; use the link tools for links. The "+
				"revision does not bump automatically: include a replace op "+
				"on /revision to advance it.",
		),
		mcp.WithString("rid",
			mcp.Required(),
			mcp.Description("Requirement identifier, e.g. HLR12"),
		),
		mcp.WithString("patch",
			mcp.Required(),
			mcp.Description(`JSON patch array. Example: [{"op":"replace","path":"/status","value":"approved"},{"op":"replace","path":"/revision","value":3}]`),
		),
		mcp.WithNumber("revision",
			mcp.Required(),
			mcp.Description("The revision the caller believes is current"),
		),
	)
}

// Handle processes the req_patch tool call.
func (t *PatchRequirementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rid := req.GetString("rid", "")
	if rid == "" {
		return mcp.NewToolResultError("'rid' is required"), nil
	}
	patch := req.GetString("patch", "")
	if patch == "" {
		return mcp.NewToolResultError("'patch' is required"), nil
	}
	revision := intArg(req, "revision", 0)
	if revision < 1 {
		return mcp.NewToolResultError("'revision' is required and must be a positive integer"), nil
	}
	r, err := t.svc.PatchRequirement(rid, json.RawMessage(patch), revision)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(requirementJSON(r)), nil
}
