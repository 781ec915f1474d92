package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/service"
)

// CreateRequirementTool handles the req_create MCP tool.
type CreateRequirementTool struct {
	svc *service.Service
}

// NewCreateRequirementTool creates a CreateRequirementTool.
func NewCreateRequirementTool(svc *service.Service) *CreateRequirementTool {
	return &CreateRequirementTool{svc: svc}
}

// Definition returns the MCP tool definition for req_create.
func (t *CreateRequirementTool) Definition() mcp.Tool {
	return mcp.NewTool("req_create",
		mcp.WithDescription(
			"Create a requirement under a document. The next free numeric id "+
				"is allocated automatically; revision starts at 1. Required "+
				"payload fields: title, statement, type, status, owner, "+
				"priority, source, verification. Links may reference only "+
				"existing requirements in ancestor documents.",
		),
		mcp.WithString("prefix",
			mcp.Required(),
			mcp.Description("Document prefix the requirement belongs to, e.g. HLR"),
		),
		mcp.WithString("data",
			mcp.Required(),
			mcp.Description(`JSON object with the requirement fields. Example: {"title":"...","statement":"...","type":"requirement","status":"draft","owner":"alice","priority":"high","source":"workshop","verification":"test"}`),
		),
	)
}

// Handle processes the req_create tool call.
func (t *CreateRequirementTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := req.GetString("prefix", "")
	if prefix == "" {
		return mcp.NewToolResultError("'prefix' is required"), nil
	}
	data, err := mapArg(req, "data")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if data == nil {
		return mcp.NewToolResultError("'data' is required"), nil
	}
	r, err := t.svc.CreateRequirement(prefix, data)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(requirementJSON(r)), nil
}
