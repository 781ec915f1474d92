// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it creates the service over the configured
// requirements root, attaches the optional audit log and filesystem
// watcher, and registers every tool. No business logic lives here — only
// wiring.
package server

import (
	"log"

	"github.com/mark3labs/mcp-go/server"

	"github.com/reqwire/reqwire/internal/audit"
	"github.com/reqwire/reqwire/internal/config"
	"github.com/reqwire/reqwire/internal/service"
	"github.com/reqwire/reqwire/internal/tools"
	"github.com/reqwire/reqwire/internal/watch"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New creates and configures the MCP server with all tools registered.
//
// The returned cleanup function stops the watcher and closes the audit
// database and must be called on shutdown (typically via defer). It is
// always non-nil and safe to call even when those components failed to
// initialize.
func New(cfg config.Config) (*server.MCPServer, func(), error) {
	svc := service.New(cfg.Root)
	cleanup := noop

	if cfg.AuditEnabled {
		auditor, err := audit.Open(cfg.AuditPath)
		if err != nil {
			// The store works without its audit trail; don't refuse to start.
			log.Printf("WARNING: audit log disabled: %v", err)
		} else {
			svc.AttachAudit(auditor)
			cleanup = chain(cleanup, func() {
				if err := auditor.Close(); err != nil {
					log.Printf("WARNING: closing audit log: %v", err)
				}
			})
		}
	}

	if cfg.Watch {
		watcher, err := watch.New(cfg.Root)
		if err == nil {
			err = watcher.Start()
		}
		if err != nil {
			log.Printf("WARNING: filesystem watcher disabled: %v", err)
		} else {
			svc.AttachWatcher(watcher)
			cleanup = chain(cleanup, watcher.Stop)
		}
	}

	s := server.NewMCPServer(
		"reqwire",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	listReqs := tools.NewListRequirementsTool(svc)
	s.AddTool(listReqs.Definition(), listReqs.Handle)

	searchReqs := tools.NewSearchRequirementsTool(svc)
	s.AddTool(searchReqs.Definition(), searchReqs.Handle)

	getReq := tools.NewGetRequirementTool(svc)
	s.AddTool(getReq.Definition(), getReq.Handle)

	createReq := tools.NewCreateRequirementTool(svc)
	s.AddTool(createReq.Definition(), createReq.Handle)

	patchReq := tools.NewPatchRequirementTool(svc)
	s.AddTool(patchReq.Definition(), patchReq.Handle)

	deleteReq := tools.NewDeleteRequirementTool(svc)
	s.AddTool(deleteReq.Definition(), deleteReq.Handle)

	moveReq := tools.NewMoveRequirementTool(svc)
	s.AddTool(moveReq.Definition(), moveReq.Handle)

	linkReq := tools.NewLinkRequirementTool(svc)
	s.AddTool(linkReq.Definition(), linkReq.Handle)

	unlinkReq := tools.NewUnlinkRequirementTool(svc)
	s.AddTool(unlinkReq.Definition(), unlinkReq.Handle)

	listDocs := tools.NewListDocumentsTool(svc)
	s.AddTool(listDocs.Definition(), listDocs.Handle)

	createDoc := tools.NewCreateDocumentTool(svc)
	s.AddTool(createDoc.Definition(), createDoc.Handle)

	deleteDoc := tools.NewDeleteDocumentTool(svc)
	s.AddTool(deleteDoc.Definition(), deleteDoc.Handle)

	matrix := tools.NewTraceMatrixTool(svc)
	s.AddTool(matrix.Definition(), matrix.Handle)

	auditLog := tools.NewAuditLogTool(svc)
	s.AddTool(auditLog.Definition(), auditLog.Handle)

	return s, cleanup, nil
}

func noop() {}

func chain(first, second func()) func() {
	return func() {
		second()
		first()
	}
}

func serverInstructions() string {
	return `reqwire manages a filesystem-backed requirements store: documents
form a hierarchy (each document is a directory with a document.json and an
items/ directory of requirement files), and requirements link upward to the
parent requirements they trace to.

Working rules:
- Every write to a requirement is gated by its revision: read it first
  (req_get), pass that revision, and on a mismatch re-read and retry.
- Links only point to requirements in the same document or an ancestor
  document. A link becomes "suspect" when its target changed since the
  link was made; re-link to clear it.
- Use req_trace_matrix to audit coverage between two document levels and
  find orphan requirements.
- Deletes cascade: removing a requirement scrubs links to it everywhere,
  removing a document removes its whole subtree. Use dry_run first.`
}
