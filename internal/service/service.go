// Package service is the coordination layer between the store packages and
// the outer surfaces (MCP tools, CLI commands). It serializes mutations
// under a single-writer lock, keeps the document map cached between calls,
// reloads it when the filesystem watcher reports changes, and records every
// successful mutation in the audit log when one is attached.
package service

import (
	"encoding/json"
	"fmt"
	"log"
	"path/filepath"
	"regexp"
	"sync"

	"github.com/reqwire/reqwire/internal/audit"
	"github.com/reqwire/reqwire/internal/docstore"
	"github.com/reqwire/reqwire/internal/model"
	"github.com/reqwire/reqwire/internal/trace"
	"github.com/reqwire/reqwire/internal/watch"
)

// prefixRE matches valid document prefixes. A trailing digit is forbidden:
// it would make rid parsing ambiguous.
var prefixRE = regexp.MustCompile(`^[A-Z][A-Z0-9_]*$`)

// Service exposes the store operations used by tools and commands.
type Service struct {
	mu      sync.Mutex
	root    string
	docs    map[string]*docstore.Document
	auditor *audit.Log
	watcher *watch.Watcher
}

// New creates a service over a requirements root directory.
func New(root string) *Service {
	return &Service{root: root}
}

// Root returns the requirements root directory.
func (s *Service) Root() string { return s.root }

// AttachAudit enables mutation logging. Nil detaches it.
func (s *Service) AttachAudit(l *audit.Log) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auditor = l
}

// AttachWatcher enables cache invalidation from filesystem events. The
// watcher must already be started. Nil detaches it.
func (s *Service) AttachWatcher(w *watch.Watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.watcher = w
}

// documents returns the cached document map, reloading it when the cache is
// cold or the watcher saw changes. Callers must hold s.mu.
func (s *Service) documents() (map[string]*docstore.Document, error) {
	if s.docs != nil && (s.watcher == nil || !s.watcher.Dirty()) {
		return s.docs, nil
	}
	docs, err := docstore.LoadDocuments(s.root)
	if err != nil {
		return nil, err
	}
	s.docs = docs
	if s.watcher != nil {
		if err := s.watcher.Refresh(); err != nil {
			log.Printf("WARNING: refreshing watcher: %v", err)
		}
	}
	return docs, nil
}

// invalidate drops the cached document map. Callers must hold s.mu.
func (s *Service) invalidate() {
	s.docs = nil
}

// record logs a mutation best-effort: an audit failure never fails the
// operation that already succeeded on disk.
func (s *Service) record(operation, subject, detail string) {
	if s.auditor == nil {
		return
	}
	if err := s.auditor.Record(operation, subject, detail); err != nil {
		log.Printf("WARNING: %v", err)
	}
}

// --- Documents ---

// ListDocuments returns the current document map.
func (s *Service) ListDocuments() (map[string]*docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documents()
}

// GetDocument returns one document by prefix.
func (s *Service) GetDocument(prefix string) (*docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	doc, ok := docs[prefix]
	if !ok {
		return nil, &docstore.DocumentNotFoundError{Prefix: prefix}
	}
	return doc, nil
}

// CreateDocument creates a new document directory with its document.json.
// The prefix must be uppercase-led letters/digits/underscores, must not end
// in a digit, and must not already exist; a parent must name an existing
// document.
func (s *Service) CreateDocument(prefix, title, parent string) (*docstore.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	if !prefixRE.MatchString(prefix) || (prefix[len(prefix)-1] >= '0' && prefix[len(prefix)-1] <= '9') {
		return nil, &docstore.ValidationError{Reason: fmt.Sprintf("invalid document prefix: %s", prefix)}
	}
	if _, ok := docs[prefix]; ok {
		return nil, &docstore.ValidationError{Reason: fmt.Sprintf("document already exists: %s", prefix)}
	}
	if parent != "" {
		if _, ok := docs[parent]; !ok {
			return nil, &docstore.DocumentNotFoundError{Prefix: parent}
		}
	}
	if title == "" {
		title = prefix
	}
	doc := &docstore.Document{Prefix: prefix, Title: title, Parent: parent, Attributes: map[string]any{}}
	if _, err := docstore.SaveDocument(filepath.Join(s.root, prefix), doc); err != nil {
		return nil, err
	}
	s.invalidate()
	s.record("document.create", prefix, title)
	return doc, nil
}

// DeleteDocument removes a document subtree and returns the removed
// prefixes in deletion order.
func (s *Service) DeleteDocument(prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	removed, err := docstore.DeleteDocument(s.root, prefix, docs)
	if err != nil {
		return removed, err
	}
	s.invalidate()
	s.record("document.delete", prefix, fmt.Sprintf("removed %d documents", len(removed)))
	return removed, nil
}

// PlanDeleteDocument previews a document deletion without writing.
func (s *Service) PlanDeleteDocument(prefix string) (*docstore.DocumentDeletePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	return docstore.PlanDeleteDocument(s.root, prefix, docs)
}

// CollectLabelDefs resolves the inherited label vocabulary for a document.
func (s *Service) CollectLabelDefs(prefix string) ([]docstore.LabelDef, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, false, err
	}
	if _, ok := docs[prefix]; !ok {
		return nil, false, &docstore.DocumentNotFoundError{Prefix: prefix}
	}
	defs, freeform := docstore.CollectLabelDefs(prefix, docs)
	return defs, freeform, nil
}

// IsAncestor answers an ancestor-chain query over the current hierarchy.
func (s *Service) IsAncestor(childPrefix, ancestorPrefix string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return false, err
	}
	return docstore.IsAncestor(childPrefix, ancestorPrefix, docs), nil
}

// --- Requirements ---

// ListRequirements returns a filtered, paginated requirement listing.
func (s *Service) ListRequirements(opt docstore.ListOptions) (*docstore.RequirementPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	return docstore.ListRequirements(s.root, opt, docs)
}

// SearchRequirements returns a text-searched, paginated requirement listing.
func (s *Service) SearchRequirements(opt docstore.SearchOptions) (*docstore.RequirementPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	return docstore.SearchRequirements(s.root, opt, docs)
}

// GetRequirement loads one requirement by rid.
func (s *Service) GetRequirement(rid string) (*model.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	return docstore.GetRequirement(s.root, rid, docs)
}

// CreateRequirement creates a requirement under a document.
func (s *Service) CreateRequirement(prefix string, data map[string]any) (*model.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	req, err := docstore.CreateRequirement(s.root, prefix, data, docs)
	if err != nil {
		return nil, err
	}
	s.record("requirement.create", req.RID, req.Title)
	return req, nil
}

// PatchRequirement applies a JSON patch gated by the expected revision.
func (s *Service) PatchRequirement(rid string, patch json.RawMessage, expectedRevision int) (*model.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	req, err := docstore.PatchRequirement(s.root, rid, patch, expectedRevision, docs)
	if err != nil {
		return nil, err
	}
	s.record("requirement.patch", req.RID, fmt.Sprintf("revision %d", req.Revision))
	return req, nil
}

// DeleteRequirement deletes a requirement gated by the expected revision,
// scrubbing references to it store-wide.
func (s *Service) DeleteRequirement(rid string, expectedRevision int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return "", err
	}
	canonical, err := docstore.DeleteRequirement(s.root, rid, expectedRevision, docs)
	if err != nil {
		return "", err
	}
	s.record("requirement.delete", canonical, "")
	return canonical, nil
}

// MoveRequirement relocates a requirement under another document.
func (s *Service) MoveRequirement(rid, newPrefix string, overrides map[string]any) (*model.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	req, err := docstore.MoveRequirement(s.root, rid, newPrefix, overrides, docs)
	if err != nil {
		return nil, err
	}
	s.record("requirement.move", rid, "to "+req.RID)
	return req, nil
}

// PlanDeleteRequirement previews a requirement deletion without writing.
func (s *Service) PlanDeleteRequirement(rid string) (*docstore.ItemDeletePlan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	return docstore.PlanDeleteItem(s.root, rid, docs)
}

// --- Links ---

// LinkRequirements creates a parent link between two requirements.
func (s *Service) LinkRequirements(sourceRID, targetRID string, expectedRevision int) (*model.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	req, err := docstore.LinkRequirements(s.root, sourceRID, targetRID, docstore.LinkTypeParent, expectedRevision, docs)
	if err != nil {
		return nil, err
	}
	s.record("link.create", req.RID, "to "+targetRID)
	return req, nil
}

// UnlinkRequirements removes a parent link between two requirements.
func (s *Service) UnlinkRequirements(sourceRID, targetRID string, expectedRevision int) (*model.Requirement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	req, err := docstore.UnlinkRequirements(s.root, sourceRID, targetRID, expectedRevision, docs)
	if err != nil {
		return nil, err
	}
	s.record("link.delete", req.RID, "to "+targetRID)
	return req, nil
}

// IterLinks enumerates every link edge in the store.
func (s *Service) IterLinks() ([]docstore.LinkRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	return docstore.IterLinks(s.root, docs)
}

// --- Trace matrix ---

// BuildTraceMatrix computes a traceability matrix over the current store.
func (s *Service) BuildTraceMatrix(cfg trace.Config) (*trace.Matrix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	docs, err := s.documents()
	if err != nil {
		return nil, err
	}
	return trace.BuildTraceMatrix(s.root, cfg, docs)
}

// --- Audit ---

// AuditRecent returns the latest audit entries, newest first. Returns nil
// without error when no audit log is attached.
func (s *Service) AuditRecent(limit int) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditor == nil {
		return nil, nil
	}
	return s.auditor.Recent(limit)
}

// AuditHistory returns audit entries for one rid or prefix, newest first.
func (s *Service) AuditHistory(subject string, limit int) ([]audit.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditor == nil {
		return nil, nil
	}
	return s.auditor.History(subject, limit)
}
