package tools

import (
	"context"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/audit"
	"github.com/reqwire/reqwire/internal/service"
)

// AuditLogTool handles the req_audit_log MCP tool.
type AuditLogTool struct {
	svc *service.Service
}

// NewAuditLogTool creates an AuditLogTool.
func NewAuditLogTool(svc *service.Service) *AuditLogTool {
	return &AuditLogTool{svc: svc}
}

// Definition returns the MCP tool definition for req_audit_log.
func (t *AuditLogTool) Definition() mcp.Tool {
	return mcp.NewTool("req_audit_log",
		mcp.WithDescription(
			"Show recent store mutations from the audit log, newest first. "+
				"Pass 'subject' (a rid or document prefix) to see the history "+
				"of one requirement or document.",
		),
		mcp.WithString("subject",
			mcp.Description("Requirement identifier or document prefix to filter by"),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum entries to return (default 20)"),
		),
	)
}

// Handle processes the req_audit_log tool call.
func (t *AuditLogTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	limit := intArg(req, "limit", 20)
	subject := req.GetString("subject", "")
	var (
		entries []audit.Entry
		err     error
	)
	if subject != "" {
		entries, err = t.svc.AuditHistory(subject, limit)
	} else {
		entries, err = t.svc.AuditRecent(limit)
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if entries == nil {
		return mcp.NewToolResultText("No audit entries recorded."), nil
	}
	return jsonResult(entries), nil
}
