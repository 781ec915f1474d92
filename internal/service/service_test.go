package service

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"

	"github.com/reqwire/reqwire/internal/audit"
	"github.com/reqwire/reqwire/internal/docstore"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	return New(t.TempDir())
}

func testPayload(title string) map[string]any {
	return map[string]any{
		"title":        title,
		"statement":    "The system shall " + title + ".",
		"type":         "requirement",
		"status":       "draft",
		"owner":        "alice",
		"priority":     "medium",
		"source":       "review",
		"verification": "test",
	}
}

func TestCreateDocument_PrefixValidation(t *testing.T) {
	svc := newTestService(t)

	bad := []string{"hlr", "1SYS", "SY-S", "SYS1", ""}
	for _, prefix := range bad {
		var verr *docstore.ValidationError
		_, err := svc.CreateDocument(prefix, "", "")
		if !errors.As(err, &verr) {
			t.Errorf("CreateDocument(%q): error = %v, want ValidationError", prefix, err)
		}
	}

	doc, err := svc.CreateDocument("SYS_V2X", "", "")
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if doc.Title != "SYS_V2X" {
		t.Errorf("empty title should default to the prefix, got %q", doc.Title)
	}
}

func TestCreateDocument_ParentAndDuplicates(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateDocument("SYS", "System", ""); err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	if _, err := svc.CreateDocument("SYS", "Again", ""); err == nil {
		t.Error("duplicate prefix should fail")
	}
	var nf *docstore.DocumentNotFoundError
	if _, err := svc.CreateDocument("HLR", "", "NOPE"); !errors.As(err, &nf) {
		t.Errorf("missing parent: error = %v, want DocumentNotFoundError", err)
	}
	if _, err := svc.CreateDocument("HLR", "High level", "SYS"); err != nil {
		t.Fatalf("CreateDocument with parent failed: %v", err)
	}

	// The cache must see the new documents without a restart.
	docs, err := svc.ListDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 2 {
		t.Errorf("documents = %d, want 2", len(docs))
	}
	ok, err := svc.IsAncestor("HLR", "SYS")
	if err != nil || !ok {
		t.Errorf("IsAncestor(HLR, SYS) = %v, %v", ok, err)
	}
}

func TestRequirementLifecycle(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateDocument("SYS", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateDocument("HLR", "", "SYS"); err != nil {
		t.Fatal(err)
	}

	parent, err := svc.CreateRequirement("SYS", testPayload("hold altitude"))
	if err != nil {
		t.Fatalf("CreateRequirement failed: %v", err)
	}
	child, err := svc.CreateRequirement("HLR", testPayload("derive altitude"))
	if err != nil {
		t.Fatalf("CreateRequirement failed: %v", err)
	}

	if _, err := svc.LinkRequirements(child.RID, parent.RID, 1); err != nil {
		t.Fatalf("LinkRequirements failed: %v", err)
	}
	got, err := svc.GetRequirement(child.RID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Links) != 1 || got.Links[0].RID != parent.RID {
		t.Errorf("links = %+v", got.Links)
	}

	patched, err := svc.PatchRequirement(parent.RID,
		json.RawMessage(`[{"op":"replace","path":"/statement","value":"changed"},
			{"op":"replace","path":"/revision","value":2}]`), 1)
	if err != nil {
		t.Fatalf("PatchRequirement failed: %v", err)
	}
	if patched.Revision != 2 {
		t.Errorf("revision = %d, want 2", patched.Revision)
	}
	var mismatch *docstore.RevisionMismatchError
	if _, err := svc.PatchRequirement(parent.RID,
		json.RawMessage(`[{"op":"replace","path":"/statement","value":"again"}]`), 1); !errors.As(err, &mismatch) {
		t.Errorf("stale revision: error = %v, want RevisionMismatchError", err)
	}

	canonical, err := svc.DeleteRequirement(child.RID, 1)
	if err != nil {
		t.Fatalf("DeleteRequirement failed: %v", err)
	}
	if canonical != child.RID {
		t.Errorf("canonical = %s, want %s", canonical, child.RID)
	}
	if _, err := svc.GetRequirement(child.RID); err == nil {
		t.Error("deleted requirement should not resolve")
	}
}

func TestAuditRecording(t *testing.T) {
	svc := newTestService(t)
	l, err := audit.Open(filepath.Join(t.TempDir(), "audit.db"))
	if err != nil {
		t.Fatalf("audit.Open failed: %v", err)
	}
	defer l.Close()
	svc.AttachAudit(l)

	if _, err := svc.CreateDocument("SYS", "", ""); err != nil {
		t.Fatal(err)
	}
	req, err := svc.CreateRequirement("SYS", testPayload("record me"))
	if err != nil {
		t.Fatal(err)
	}

	entries, err := svc.AuditRecent(10)
	if err != nil {
		t.Fatalf("AuditRecent failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("entries = %d, want 2", len(entries))
	}
	if entries[0].Operation != "requirement.create" || entries[0].Subject != req.RID {
		t.Errorf("newest entry = %+v", entries[0])
	}

	history, err := svc.AuditHistory(req.RID, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 1 {
		t.Errorf("history = %+v, want one entry", history)
	}
}

func TestAuditWithoutLog(t *testing.T) {
	svc := newTestService(t)
	entries, err := svc.AuditRecent(10)
	if err != nil || entries != nil {
		t.Errorf("AuditRecent without a log = %v, %v; want nil, nil", entries, err)
	}
}

func TestDeleteDocumentCascadeThroughService(t *testing.T) {
	svc := newTestService(t)
	if _, err := svc.CreateDocument("SYS", "", ""); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CreateDocument("HLR", "", "SYS"); err != nil {
		t.Fatal(err)
	}

	plan, err := svc.PlanDeleteDocument("SYS")
	if err != nil {
		t.Fatalf("PlanDeleteDocument failed: %v", err)
	}
	if len(plan.Prefixes) != 2 {
		t.Errorf("plan prefixes = %v", plan.Prefixes)
	}

	removed, err := svc.DeleteDocument("SYS")
	if err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if len(removed) != 2 || removed[len(removed)-1] != "SYS" {
		t.Errorf("removed = %v, want children before parent", removed)
	}
	docs, err := svc.ListDocuments()
	if err != nil {
		t.Fatal(err)
	}
	if len(docs) != 0 {
		t.Errorf("documents = %v, want empty store", docs)
	}
}
