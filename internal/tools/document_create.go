package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/service"
)

// CreateDocumentTool handles the doc_create MCP tool.
type CreateDocumentTool struct {
	svc *service.Service
}

// NewCreateDocumentTool creates a CreateDocumentTool.
func NewCreateDocumentTool(svc *service.Service) *CreateDocumentTool {
	return &CreateDocumentTool{svc: svc}
}

// Definition returns the MCP tool definition for doc_create.
func (t *CreateDocumentTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_create",
		mcp.WithDescription(
			"Create a new document. The prefix becomes the directory name and "+
				"the leading part of every requirement identifier in it, so "+
				"it must be uppercase-led letters/digits/underscores and must "+
				"not end in a digit. A parent makes this document's "+
				"requirements linkable to the parent chain.",
		),
		mcp.WithString("prefix",
			mcp.Required(),
			mcp.Description("Document prefix, e.g. HLR"),
		),
		mcp.WithString("title",
			mcp.Description("Human-readable title (defaults to the prefix)"),
		),
		mcp.WithString("parent",
			mcp.Description("Prefix of the parent document, if any"),
		),
	)
}

// Handle processes the doc_create tool call.
func (t *CreateDocumentTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	prefix := req.GetString("prefix", "")
	if prefix == "" {
		return mcp.NewToolResultError("'prefix' is required"), nil
	}
	doc, err := t.svc.CreateDocument(prefix, req.GetString("title", ""), req.GetString("parent", ""))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"prefix": doc.Prefix,
		"title":  doc.Title,
		"parent": doc.Parent,
	}), nil
}
