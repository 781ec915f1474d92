package model

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// fingerprintExcluded holds payload keys with no bearing on a requirement's
// content identity. Links are excluded so that editing one link on a target
// does not flip every other link pointing at it to suspect.
var fingerprintExcluded = []string{"links", "doc_prefix", "rid"}

// RequirementFingerprint returns a stable hash over the semantically
// significant fields of an item payload. The payload is canonicalized by
// marshaling a pruned copy with encoding/json, which emits object keys in
// sorted order at every nesting level.
func RequirementFingerprint(data map[string]any) string {
	pruned := make(map[string]any, len(data))
	for key, value := range data {
		pruned[key] = value
	}
	for _, key := range fingerprintExcluded {
		delete(pruned, key)
	}
	canonical, err := json.Marshal(pruned)
	if err != nil {
		// Payloads reaching this point were decoded from JSON or built
		// from RequirementToMap, both of which marshal cleanly.
		return ""
	}
	digest := sha256.Sum256(canonical)
	return hex.EncodeToString(digest[:])
}
