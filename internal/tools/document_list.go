package tools

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/docstore"
	"github.com/reqwire/reqwire/internal/service"
)

// ListDocumentsTool handles the doc_list MCP tool.
type ListDocumentsTool struct {
	svc *service.Service
}

// NewListDocumentsTool creates a ListDocumentsTool.
func NewListDocumentsTool(svc *service.Service) *ListDocumentsTool {
	return &ListDocumentsTool{svc: svc}
}

// Definition returns the MCP tool definition for doc_list.
func (t *ListDocumentsTool) Definition() mcp.Tool {
	return mcp.NewTool("doc_list",
		mcp.WithDescription(
			"List all documents in the store with their titles, parents and "+
				"inherited label vocabularies, sorted by prefix.",
		),
	)
}

// Handle processes the doc_list tool call.
func (t *ListDocumentsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	docs, err := t.svc.ListDocuments()
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	prefixes := make([]string, 0, len(docs))
	for prefix := range docs {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)
	out := make([]any, 0, len(prefixes))
	for _, prefix := range prefixes {
		defs, freeform := docstore.CollectLabelDefs(prefix, docs)
		labels := make([]any, len(defs))
		for i, def := range defs {
			labels[i] = map[string]any{"key": def.Key, "title": def.Title, "color": def.Color}
		}
		doc := docs[prefix]
		out = append(out, map[string]any{
			"prefix":         doc.Prefix,
			"title":          doc.Title,
			"parent":         doc.Parent,
			"labels":         labels,
			"allow_freeform": freeform,
		})
	}
	return jsonResult(out), nil
}
