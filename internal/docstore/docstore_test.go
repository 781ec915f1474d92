package docstore

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/reqwire/reqwire/internal/model"
)

// newTestDocument writes a document.json under root and returns the loaded map.
func newTestDocument(t *testing.T, root, prefix, parent string) *Document {
	t.Helper()
	doc := &Document{Prefix: prefix, Title: prefix + " document", Parent: parent, Attributes: map[string]any{}}
	if _, err := SaveDocument(filepath.Join(root, prefix), doc); err != nil {
		t.Fatalf("SaveDocument(%s) failed: %v", prefix, err)
	}
	return doc
}

// loadTestDocuments reloads the document map from root.
func loadTestDocuments(t *testing.T, root string) map[string]*Document {
	t.Helper()
	docs, err := LoadDocuments(root)
	if err != nil {
		t.Fatalf("LoadDocuments failed: %v", err)
	}
	return docs
}

// ridsOf extracts rids for order assertions.
func ridsOf(reqs []*model.Requirement) []string {
	rids := make([]string, len(reqs))
	for i, req := range reqs {
		rids[i] = req.RID
	}
	return rids
}

// testPayload builds a minimal valid requirement payload.
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

// writeRawItem writes an item file directly, bypassing validation, for
// legacy-format and corruption scenarios.
func writeRawItem(t *testing.T, root, prefix, filename string, payload map[string]any) {
	t.Helper()
	dir := filepath.Join(root, prefix, ItemsDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, filename), data, 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}
