package model

import "testing"

func TestFingerprint_IgnoresLinksAndDerivedFields(t *testing.T) {
	base := validPayload()
	withExtras := validPayload()
	withExtras["links"] = []any{"SYS1"}
	withExtras["doc_prefix"] = "HLR"
	withExtras["rid"] = "HLR3"

	if RequirementFingerprint(base) != RequirementFingerprint(withExtras) {
		t.Error("links, doc_prefix and rid must not affect the fingerprint")
	}
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	a := validPayload()
	b := validPayload()
	b["statement"] = "The system shall hold altitude within 1m."
	if RequirementFingerprint(a) == RequirementFingerprint(b) {
		t.Error("different statements must fingerprint differently")
	}
}

func TestFingerprint_StableAcrossNumberRepresentations(t *testing.T) {
	a := validPayload()
	a["id"] = 3
	b := validPayload()
	b["id"] = float64(3)
	if RequirementFingerprint(a) != RequirementFingerprint(b) {
		t.Error("int and whole float ids must fingerprint identically")
	}
}

func TestFingerprint_DoesNotMutateInput(t *testing.T) {
	payload := validPayload()
	payload["links"] = []any{"SYS1"}
	RequirementFingerprint(payload)
	if _, ok := payload["links"]; !ok {
		t.Error("fingerprinting must not strip fields from the caller's map")
	}
}
