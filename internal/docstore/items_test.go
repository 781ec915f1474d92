package docstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestCreateAndGetRequirement(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "HLR", "")
	docs := loadTestDocuments(t, root)

	req, err := CreateRequirement(root, "HLR", testPayload("hold altitude"), docs)
	if err != nil {
		t.Fatalf("CreateRequirement failed: %v", err)
	}
	if req.RID != "HLR1" || req.Revision != 1 {
		t.Errorf("created %s r%d, want HLR1 r1", req.RID, req.Revision)
	}

	got, err := GetRequirement(root, "HLR1", docs)
	if err != nil {
		t.Fatalf("GetRequirement failed: %v", err)
	}
	if got.Title != "hold altitude" {
		t.Errorf("Title = %s", got.Title)
	}

	if _, err := GetRequirement(root, "HLR99", docs); err == nil {
		t.Error("missing requirement should fail")
	}
	var nf *RequirementNotFoundError
	_, err = GetRequirement(root, "HLR99", docs)
	if !errors.As(err, &nf) {
		t.Errorf("error type = %T, want RequirementNotFoundError", err)
	}
}

func TestCreateRequirement_UnknownDocument(t *testing.T) {
	root := t.TempDir()
	docs := loadTestDocuments(t, root)
	var dnf *DocumentNotFoundError
	_, err := CreateRequirement(root, "HLR", testPayload("x"), docs)
	if !errors.As(err, &dnf) {
		t.Fatalf("error = %v, want DocumentNotFoundError", err)
	}
}

func TestCreateRequirement_SequentialIDs(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "HLR", "")
	docs := loadTestDocuments(t, root)

	for i, want := range []string{"HLR1", "HLR2", "HLR3"} {
		req, err := CreateRequirement(root, "HLR", testPayload("item"), docs)
		if err != nil {
			t.Fatalf("create %d failed: %v", i, err)
		}
		if req.RID != want {
			t.Errorf("rid = %s, want %s", req.RID, want)
		}
	}
}

func TestCreateRequirement_LabelValidation(t *testing.T) {
	root := t.TempDir()
	doc := &Document{
		Prefix: "HLR",
		Labels: DocumentLabels{Defs: []LabelDef{{Key: "safety", Title: "Safety"}}},
	}
	if _, err := SaveDocument(filepath.Join(root, "HLR"), doc); err != nil {
		t.Fatal(err)
	}
	docs := loadTestDocuments(t, root)

	payload := testPayload("labeled")
	payload["labels"] = []any{"safety"}
	if _, err := CreateRequirement(root, "HLR", payload, docs); err != nil {
		t.Fatalf("known label failed: %v", err)
	}

	payload = testPayload("bad label")
	payload["labels"] = []any{"unknown"}
	if _, err := CreateRequirement(root, "HLR", payload, docs); err == nil {
		t.Error("unknown label should be rejected")
	}

	payload = testPayload("bad type")
	payload["labels"] = "safety"
	if _, err := CreateRequirement(root, "HLR", payload, docs); err == nil {
		t.Error("non-list labels should be rejected")
	}
}

func patchJSON(t *testing.T, ops string) json.RawMessage {
	t.Helper()
	return json.RawMessage(ops)
}

func TestPatchRequirement_HappyPath(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "HLR", "")
	docs := loadTestDocuments(t, root)
	if _, err := CreateRequirement(root, "HLR", testPayload("original"), docs); err != nil {
		t.Fatal(err)
	}

	req, err := PatchRequirement(root, "HLR1",
		patchJSON(t, `[{"op":"replace","path":"/title","value":"updated"}]`), 1, docs)
	if err != nil {
		t.Fatalf("PatchRequirement failed: %v", err)
	}
	if req.Title != "updated" {
		t.Errorf("Title = %s, want updated", req.Title)
	}
	// The revision never bumps on its own.
	if req.Revision != 1 {
		t.Errorf("Revision = %d, want 1 (no auto-increment)", req.Revision)
	}

	req, err = PatchRequirement(root, "HLR1",
		patchJSON(t, `[{"op":"replace","path":"/revision","value":2}]`), 1, docs)
	if err != nil {
		t.Fatalf("revision patch failed: %v", err)
	}
	if req.Revision != 2 {
		t.Errorf("Revision = %d, want 2", req.Revision)
	}
}

func TestPatchRequirement_RevisionMismatch(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "HLR", "")
	docs := loadTestDocuments(t, root)
	if _, err := CreateRequirement(root, "HLR", testPayload("x"), docs); err != nil {
		t.Fatal(err)
	}

	_, err := PatchRequirement(root, "HLR1",
		patchJSON(t, `[{"op":"replace","path":"/title","value":"y"}]`), 5, docs)
	var mismatch *RevisionMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want RevisionMismatchError", err)
	}
	if mismatch.Expected != 5 || mismatch.Actual != 1 {
		t.Errorf("mismatch = %+v, want expected=5 actual=1", mismatch)
	}

	// The failed patch must not have written anything.
	got, err := GetRequirement(root, "HLR1", docs)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "x" {
		t.Errorf("Title = %s, mismatch must not write", got.Title)
	}
}

func TestPatchRequirement_ForbiddenPaths(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "HLR", "")
	docs := loadTestDocuments(t, root)
	if _, err := CreateRequirement(root, "HLR", testPayload("x"), docs); err != nil {
		t.Fatal(err)
	}

	cases := []string{
		`[{"op":"replace","path":"/id","value":9}]`,
		`[{"op":"add","path":"/links/-","value":"SYS1"}]`,
		`[{"op":"remove","path":"/links"}]`,
		`[{"op":"add","path":"/made_up","value":"x"}]`,
		`[{"op":"move","from":"/id","path":"/notes"}]`,
	}
	for _, ops := range cases {
		_, err := PatchRequirement(root, "HLR1", patchJSON(t, ops), 1, docs)
		var verr *ValidationError
		if !errors.As(err, &verr) {
			t.Errorf("patch %s: error = %v, want ValidationError", ops, err)
		}
	}
}

func TestPatchRequirement_RevisionMustStayPositive(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "HLR", "")
	docs := loadTestDocuments(t, root)
	if _, err := CreateRequirement(root, "HLR", testPayload("x"), docs); err != nil {
		t.Fatal(err)
	}
	_, err := PatchRequirement(root, "HLR1",
		patchJSON(t, `[{"op":"replace","path":"/revision","value":0}]`), 1, docs)
	if err == nil {
		t.Fatal("revision 0 should be rejected")
	}
}

func TestDeleteRequirement_Cascade(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "SYS", "")
	newTestDocument(t, root, "HLR", "SYS")
	docs := loadTestDocuments(t, root)

	if _, err := CreateRequirement(root, "SYS", testPayload("parent"), docs); err != nil {
		t.Fatal(err)
	}
	child := testPayload("child")
	child["links"] = []any{"SYS1"}
	if _, err := CreateRequirement(root, "HLR", child, docs); err != nil {
		t.Fatal(err)
	}

	canonical, err := DeleteRequirement(root, "SYS1", 1, docs)
	if err != nil {
		t.Fatalf("DeleteRequirement failed: %v", err)
	}
	if canonical != "SYS1" {
		t.Errorf("deleted %s, want SYS1", canonical)
	}

	// The child must no longer reference SYS1.
	got, err := GetRequirement(root, "HLR1", docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Links) != 0 {
		t.Errorf("links = %+v, want scrubbed", got.Links)
	}
}

func TestDeleteRequirement_RevisionGate(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "HLR", "")
	docs := loadTestDocuments(t, root)
	if _, err := CreateRequirement(root, "HLR", testPayload("x"), docs); err != nil {
		t.Fatal(err)
	}
	var mismatch *RevisionMismatchError
	_, err := DeleteRequirement(root, "HLR1", 3, docs)
	if !errors.As(err, &mismatch) {
		t.Fatalf("error = %v, want RevisionMismatchError", err)
	}
	if _, err := GetRequirement(root, "HLR1", docs); err != nil {
		t.Errorf("item should survive a gated delete: %v", err)
	}
}

func TestLegacyFile_ReadAndRewriteMigrates(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "HLR", "")
	docs := loadTestDocuments(t, root)

	payload := testPayload("legacy item")
	payload["id"] = 2
	payload["revision"] = 1
	writeRawItem(t, root, "HLR", "HLR002.json", payload)

	// Legacy zero-padded rid and filename still resolve.
	got, err := GetRequirement(root, "HLR002", docs)
	if err != nil {
		t.Fatalf("legacy read failed: %v", err)
	}
	if got.RID != "HLR2" {
		t.Errorf("RID = %s, want canonical HLR2", got.RID)
	}

	// A rewrite lands on the canonical path and removes the legacy file.
	if _, err := PatchRequirement(root, "HLR2",
		patchJSON(t, `[{"op":"replace","path":"/title","value":"migrated"}]`), 1, docs); err != nil {
		t.Fatalf("patch failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "HLR", ItemsDir, "2.json")); err != nil {
		t.Errorf("canonical file missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, "HLR", ItemsDir, "HLR002.json")); !os.IsNotExist(err) {
		t.Error("legacy file should be removed after rewrite")
	}
}

func TestListRequirements_FilterAndPaginate(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "HLR", "")
	docs := loadTestDocuments(t, root)

	for i := 0; i < 5; i++ {
		payload := testPayload("item")
		if i%2 == 0 {
			payload["status"] = "approved"
		}
		if _, err := CreateRequirement(root, "HLR", payload, docs); err != nil {
			t.Fatal(err)
		}
	}

	page, err := ListRequirements(root, ListOptions{Status: "approved", Page: 1, PerPage: 2}, docs)
	if err != nil {
		t.Fatalf("ListRequirements failed: %v", err)
	}
	if page.Total != 3 || len(page.Items) != 2 {
		t.Errorf("total=%d len=%d, want total=3 len=2", page.Total, len(page.Items))
	}

	// Page and size clamp to 1; an out-of-range page is empty but valid.
	page, err = ListRequirements(root, ListOptions{Page: -2, PerPage: 0}, docs)
	if err != nil {
		t.Fatal(err)
	}
	if page.Page != 1 || page.PerPage != 1 || len(page.Items) != 1 {
		t.Errorf("clamped page = %+v", page)
	}
	page, err = ListRequirements(root, ListOptions{Page: 99, PerPage: 10}, docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(page.Items) != 0 || page.Total != 5 {
		t.Errorf("out-of-range page = %+v", page)
	}
}

func TestSearchRequirements(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "HLR", "")
	docs := loadTestDocuments(t, root)

	a := testPayload("altitude hold")
	a["owner"] = "alice"
	b := testPayload("battery monitor")
	b["owner"] = "bob"
	for _, payload := range []map[string]any{a, b} {
		if _, err := CreateRequirement(root, "HLR", payload, docs); err != nil {
			t.Fatal(err)
		}
	}

	page, err := SearchRequirements(root, SearchOptions{Query: "ALTITUDE", Page: 1, PerPage: 10}, docs)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].Title != "altitude hold" {
		t.Errorf("query result = %+v", page)
	}

	page, err = SearchRequirements(root, SearchOptions{
		FieldQueries: map[string]string{"owner": "bob"}, Page: 1, PerPage: 10,
	}, docs)
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 1 || page.Items[0].Owner != "bob" {
		t.Errorf("field query result = %+v", page)
	}
}

func TestMoveRequirement(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "SYS", "")
	newTestDocument(t, root, "HLR", "SYS")
	docs := loadTestDocuments(t, root)

	if _, err := CreateRequirement(root, "SYS", testPayload("target"), docs); err != nil {
		t.Fatal(err)
	}
	// Occupy SYS2 so the moved item gets SYS3.
	if _, err := CreateRequirement(root, "SYS", testPayload("other"), docs); err != nil {
		t.Fatal(err)
	}
	child := testPayload("movable")
	child["links"] = []any{"SYS1"}
	if _, err := CreateRequirement(root, "HLR", child, docs); err != nil {
		t.Fatal(err)
	}
	referrer := testPayload("referrer")
	referrer["links"] = []any{"SYS1"}
	if _, err := CreateRequirement(root, "HLR", referrer, docs); err != nil {
		t.Fatal(err)
	}

	moved, err := MoveRequirement(root, "SYS1", "SYS", nil, docs)
	if err == nil {
		t.Fatal("move to the same document should fail")
	}
	_ = moved

	// Move HLR1 into SYS. Its own link to SYS1 stays valid (same doc is
	// ancestor-or-self).
	moved, err = MoveRequirement(root, "HLR1", "SYS", nil, docs)
	if err != nil {
		t.Fatalf("MoveRequirement failed: %v", err)
	}
	if moved.RID != "SYS3" {
		t.Errorf("moved rid = %s, want SYS3", moved.RID)
	}
	if _, err := GetRequirement(root, "HLR1", docs); err == nil {
		t.Error("source item should be gone after move")
	}
}

func TestLoadRequirements_Selection(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "SYS", "")
	newTestDocument(t, root, "HLR", "SYS")
	docs := loadTestDocuments(t, root)
	if _, err := CreateRequirement(root, "SYS", testPayload("s"), docs); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateRequirement(root, "HLR", testPayload("h"), docs); err != nil {
		t.Fatal(err)
	}

	all, err := LoadRequirements(root, nil, docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 || all[0].RID != "HLR1" || all[1].RID != "SYS1" {
		t.Errorf("default order = %v, want sorted prefixes", ridsOf(all))
	}

	only, err := LoadRequirements(root, []string{"SYS", "SYS"}, docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(only) != 1 || only[0].RID != "SYS1" {
		t.Errorf("selection = %v", ridsOf(only))
	}

	var dnf *DocumentNotFoundError
	_, err = LoadRequirements(root, []string{"NOPE"}, docs)
	if !errors.As(err, &dnf) {
		t.Errorf("error = %v, want DocumentNotFoundError", err)
	}
}
