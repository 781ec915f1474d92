package docstore

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// linkedFixture builds SYS <- HLR with one requirement in each.
func linkedFixture(t *testing.T) (string, map[string]*Document) {
	t.Helper()
	root := t.TempDir()
	newTestDocument(t, root, "SYS", "")
	newTestDocument(t, root, "HLR", "SYS")
	docs := loadTestDocuments(t, root)
	if _, err := CreateRequirement(root, "SYS", testPayload("parent"), docs); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateRequirement(root, "HLR", testPayload("child"), docs); err != nil {
		t.Fatal(err)
	}
	return root, docs
}

func TestLinkRequirements_HappyPath(t *testing.T) {
	root, docs := linkedFixture(t)

	req, err := LinkRequirements(root, "HLR1", "SYS1", LinkTypeParent, 1, docs)
	if err != nil {
		t.Fatalf("LinkRequirements failed: %v", err)
	}
	if len(req.Links) != 1 || req.Links[0].RID != "SYS1" {
		t.Fatalf("links = %+v", req.Links)
	}
	if req.Links[0].Fingerprint == "" {
		t.Error("link should adopt the target fingerprint")
	}
	if req.Links[0].Suspect {
		t.Error("fresh link should not be suspect")
	}

	// Idempotent: linking again refreshes rather than duplicating.
	req, err = LinkRequirements(root, "HLR1", "SYS1", LinkTypeParent, 1, docs)
	if err != nil {
		t.Fatalf("relink failed: %v", err)
	}
	if len(req.Links) != 1 {
		t.Errorf("links = %+v, want one entry", req.Links)
	}
}

func TestLinkRequirements_Rules(t *testing.T) {
	root, docs := linkedFixture(t)

	if _, err := LinkRequirements(root, "HLR1", "SYS1", "sibling", 1, docs); err == nil {
		t.Error("unsupported link type should fail")
	}
	if _, err := LinkRequirements(root, "HLR1", "HLR1", LinkTypeParent, 1, docs); err == nil {
		t.Error("self link should fail")
	}
	// Links only point up the hierarchy: SYS -> HLR is downward.
	if _, err := LinkRequirements(root, "SYS1", "HLR1", LinkTypeParent, 1, docs); err == nil {
		t.Error("downward link should violate the ancestor rule")
	}
	var nf *RequirementNotFoundError
	_, err := LinkRequirements(root, "HLR1", "SYS9", LinkTypeParent, 1, docs)
	if !errors.As(err, &nf) {
		t.Errorf("missing target: error = %v, want RequirementNotFoundError", err)
	}
	var mismatch *RevisionMismatchError
	_, err = LinkRequirements(root, "HLR1", "SYS1", LinkTypeParent, 7, docs)
	if !errors.As(err, &mismatch) {
		t.Errorf("stale revision: error = %v, want RevisionMismatchError", err)
	}
}

func TestSuspectDetection(t *testing.T) {
	root, docs := linkedFixture(t)
	if _, err := LinkRequirements(root, "HLR1", "SYS1", LinkTypeParent, 1, docs); err != nil {
		t.Fatal(err)
	}

	// Changing the target's content makes the link suspect on the next read.
	if _, err := PatchRequirement(root, "SYS1",
		json.RawMessage(`[{"op":"replace","path":"/statement","value":"changed"}]`), 1, docs); err != nil {
		t.Fatal(err)
	}
	req, err := GetRequirement(root, "HLR1", docs)
	if err != nil {
		t.Fatal(err)
	}
	if !req.Links[0].Suspect {
		t.Error("link should be suspect after the target changed")
	}

	// Re-linking adopts the new fingerprint and clears suspicion.
	if _, err := LinkRequirements(root, "HLR1", "SYS1", LinkTypeParent, 1, docs); err != nil {
		t.Fatal(err)
	}
	req, err = GetRequirement(root, "HLR1", docs)
	if err != nil {
		t.Fatal(err)
	}
	if req.Links[0].Suspect {
		t.Error("re-linked target should not be suspect")
	}
}

func TestSuspect_MissingTargetKeepsFingerprint(t *testing.T) {
	root, docs := linkedFixture(t)
	if _, err := LinkRequirements(root, "HLR1", "SYS1", LinkTypeParent, 1, docs); err != nil {
		t.Fatal(err)
	}
	// Remove the target file behind the store's back.
	if err := os.Remove(filepath.Join(root, "SYS", ItemsDir, "1.json")); err != nil {
		t.Fatal(err)
	}
	req, err := GetRequirement(root, "HLR1", docs)
	if err != nil {
		t.Fatalf("read must degrade, not fail: %v", err)
	}
	if !req.Links[0].Suspect {
		t.Error("unresolvable target should mark the link suspect")
	}
	if req.Links[0].Fingerprint == "" {
		t.Error("stored fingerprint should survive an unresolvable target")
	}
}

func TestUnlinkRequirements(t *testing.T) {
	root, docs := linkedFixture(t)
	if _, err := LinkRequirements(root, "HLR1", "SYS1", LinkTypeParent, 1, docs); err != nil {
		t.Fatal(err)
	}
	req, err := UnlinkRequirements(root, "HLR1", "SYS1", 1, docs)
	if err != nil {
		t.Fatalf("UnlinkRequirements failed: %v", err)
	}
	if len(req.Links) != 0 {
		t.Errorf("links = %+v, want none", req.Links)
	}
	if _, err := UnlinkRequirements(root, "HLR1", "SYS1", 1, docs); err == nil {
		t.Error("removing an absent link should fail")
	}
}

func TestValidateItemLinks_AtWrite(t *testing.T) {
	root, docs := linkedFixture(t)
	newTestDocument(t, root, "TST", "")
	docs = loadTestDocuments(t, root)

	// Dangling target.
	payload := testPayload("bad")
	payload["links"] = []any{"SYS42"}
	if _, err := CreateRequirement(root, "HLR", payload, docs); err == nil {
		t.Error("dangling link target should fail the write")
	}
	// Target in a non-ancestor document.
	if _, err := CreateRequirement(root, "TST", testPayload("t"), docs); err != nil {
		t.Fatal(err)
	}
	payload = testPayload("cross")
	payload["links"] = []any{"TST1"}
	if _, err := CreateRequirement(root, "HLR", payload, docs); err == nil {
		t.Error("link outside the ancestor chain should fail the write")
	}
	// Unknown document prefix.
	payload = testPayload("ghost")
	payload["links"] = []any{"NOPE1"}
	if _, err := CreateRequirement(root, "HLR", payload, docs); err == nil {
		t.Error("unknown target document should fail the write")
	}
}

func TestStoredLinks_SortedAndDeduplicated(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "SYS", "")
	newTestDocument(t, root, "HLR", "SYS")
	docs := loadTestDocuments(t, root)
	for i := 0; i < 3; i++ {
		if _, err := CreateRequirement(root, "SYS", testPayload("p"), docs); err != nil {
			t.Fatal(err)
		}
	}
	payload := testPayload("child")
	payload["links"] = []any{"SYS2", "SYS1", "SYS2", "SYS3"}
	req, err := CreateRequirement(root, "HLR", payload, docs)
	if err != nil {
		t.Fatal(err)
	}
	got, err := GetRequirement(root, req.RID, docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Links) != 3 {
		t.Fatalf("links = %+v, want 3 deduplicated", got.Links)
	}
	for i, want := range []string{"SYS1", "SYS2", "SYS3"} {
		if got.Links[i].RID != want {
			t.Errorf("links[%d] = %s, want %s", i, got.Links[i].RID, want)
		}
	}
}

func TestDeleteDocument_Cascade(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "SYS", "")
	newTestDocument(t, root, "HLR", "SYS")
	newTestDocument(t, root, "LLR", "HLR")
	docs := loadTestDocuments(t, root)
	if _, err := CreateRequirement(root, "SYS", testPayload("s"), docs); err != nil {
		t.Fatal(err)
	}
	payload := testPayload("h")
	payload["links"] = []any{"SYS1"}
	if _, err := CreateRequirement(root, "HLR", payload, docs); err != nil {
		t.Fatal(err)
	}

	removed, err := DeleteDocument(root, "HLR", docs)
	if err != nil {
		t.Fatalf("DeleteDocument failed: %v", err)
	}
	if len(removed) != 2 || removed[0] != "LLR" || removed[1] != "HLR" {
		t.Errorf("removed = %v, want children before parent [LLR HLR]", removed)
	}
	if _, err := os.Stat(filepath.Join(root, "HLR")); !os.IsNotExist(err) {
		t.Error("document directory should be gone")
	}
	if _, err := GetRequirement(root, "SYS1", docs); err != nil {
		t.Errorf("unrelated document must survive: %v", err)
	}
}

func TestPlanDeleteItem(t *testing.T) {
	root, docs := linkedFixture(t)
	if _, err := LinkRequirements(root, "HLR1", "SYS1", LinkTypeParent, 1, docs); err != nil {
		t.Fatal(err)
	}
	plan, err := PlanDeleteItem(root, "SYS1", docs)
	if err != nil {
		t.Fatalf("PlanDeleteItem failed: %v", err)
	}
	if plan.RID != "SYS1" || len(plan.Referencing) != 1 || plan.Referencing[0] != "HLR1" {
		t.Errorf("plan = %+v", plan)
	}
	// A plan never writes.
	if _, err := GetRequirement(root, "SYS1", docs); err != nil {
		t.Errorf("planned item must survive: %v", err)
	}
}

func TestPlanDeleteDocument(t *testing.T) {
	root, docs := linkedFixture(t)
	if _, err := LinkRequirements(root, "HLR1", "SYS1", LinkTypeParent, 1, docs); err != nil {
		t.Fatal(err)
	}
	plan, err := PlanDeleteDocument(root, "SYS", docs)
	if err != nil {
		t.Fatalf("PlanDeleteDocument failed: %v", err)
	}
	// The HLR subtree hangs off SYS, so it is inside the cascade.
	if len(plan.Prefixes) != 2 || plan.Prefixes[0] != "HLR" || plan.Prefixes[1] != "SYS" {
		t.Errorf("prefixes = %v", plan.Prefixes)
	}
	if len(plan.Items) != 2 {
		t.Errorf("items = %v", plan.Items)
	}
	if len(plan.Referencing) != 0 {
		t.Errorf("referencing = %v, want none (referrer is inside the subtree)", plan.Referencing)
	}
}

func TestIterLinks_DeterministicOrder(t *testing.T) {
	root := t.TempDir()
	newTestDocument(t, root, "SYS", "")
	newTestDocument(t, root, "HLR", "SYS")
	docs := loadTestDocuments(t, root)
	if _, err := CreateRequirement(root, "SYS", testPayload("a"), docs); err != nil {
		t.Fatal(err)
	}
	if _, err := CreateRequirement(root, "SYS", testPayload("b"), docs); err != nil {
		t.Fatal(err)
	}
	payload := testPayload("child")
	payload["links"] = []any{"SYS2", "SYS1"}
	if _, err := CreateRequirement(root, "HLR", payload, docs); err != nil {
		t.Fatal(err)
	}

	records, err := IterLinks(root, docs)
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %+v", records)
	}
	if records[0].TargetRID != "SYS1" || records[1].TargetRID != "SYS2" {
		t.Errorf("order = %+v, want targets sorted", records)
	}
}
