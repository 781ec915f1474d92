package docstore

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DocumentFile is the metadata filename stored in each document directory.
const DocumentFile = "document.json"

func readJSONFile(path string) (map[string]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return data, nil
}

// writeJSONFile persists data with sorted keys and 2-space indentation so
// version-control diffs stay minimal.
func writeJSONFile(path string, data map[string]any) error {
	payload, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	return os.WriteFile(path, append(payload, '\n'), 0o644)
}

// LoadDocument reads document configuration from a single document directory.
func LoadDocument(directory string) (*Document, error) {
	prefix := filepath.Base(filepath.Clean(directory))
	data, err := readJSONFile(filepath.Join(directory, DocumentFile))
	if err != nil {
		return nil, err
	}
	return DocumentFromMap(prefix, data)
}

// LoadDocuments scans the immediate subdirectories of root for document.json
// files and returns the prefix-keyed document map. Directories without one
// are ignored; grandchildren are never visited. A cyclic parent graph fails
// the load outright — a cycle can only come from hand-edited files and every
// ancestor walk in the store would misbehave on it.
func LoadDocuments(root string) (map[string]*Document, error) {
	docs := map[string]*Document{}
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return docs, nil
		}
		return nil, fmt.Errorf("reading root %s: %w", root, err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		directory := filepath.Join(root, entry.Name())
		if _, err := os.Stat(filepath.Join(directory, DocumentFile)); err != nil {
			continue
		}
		doc, err := LoadDocument(directory)
		if err != nil {
			return nil, fmt.Errorf("loading document %s: %w", entry.Name(), err)
		}
		docs[doc.Prefix] = doc
	}
	if prefix, ok := findParentCycle(docs); ok {
		return nil, validationErrorf("document parent cycle detected at %s", prefix)
	}
	return docs, nil
}

// findParentCycle walks every document's parent chain and returns a prefix
// on a cycle, if any exists.
func findParentCycle(docs map[string]*Document) (string, bool) {
	for prefix := range docs {
		seen := map[string]bool{}
		current := prefix
		for {
			if seen[current] {
				return current, true
			}
			seen[current] = true
			doc, ok := docs[current]
			if !ok || doc.Parent == "" {
				break
			}
			current = doc.Parent
		}
	}
	return "", false
}

// SaveDocument persists doc into directory and returns the written path.
// The directory name is authoritative: a document whose prefix disagrees
// is refused.
func SaveDocument(directory string, doc *Document) (string, error) {
	expected := filepath.Base(filepath.Clean(directory))
	if doc.Prefix != expected {
		return "", validationErrorf(
			"document prefix mismatch: directory %q != document %q", expected, doc.Prefix)
	}
	path := filepath.Join(directory, DocumentFile)
	if err := writeJSONFile(path, doc.ToMap()); err != nil {
		return "", err
	}
	return path, nil
}

// IsAncestor reports whether ancestorPrefix lies on the parent chain of
// childPrefix, reflexively. The walk is bounded by the number of known
// documents, so a parent cycle introduced after load terminates instead of
// spinning.
func IsAncestor(childPrefix, ancestorPrefix string, docs map[string]*Document) bool {
	if childPrefix == ancestorPrefix {
		return true
	}
	current := docs[childPrefix]
	for steps := 0; current != nil && current.Parent != "" && steps < len(docs); steps++ {
		if current.Parent == ancestorPrefix {
			return true
		}
		current = docs[current.Parent]
	}
	return false
}

// StableColor returns a pastel color generated deterministically from name,
// so the same label key always renders the same color.
func StableColor(name string) string {
	digest := sha256.Sum256([]byte(name))
	r := (int(digest[0]) + 0xAA) / 2
	g := (int(digest[1]) + 0xAA) / 2
	b := (int(digest[2]) + 0xAA) / 2
	return fmt.Sprintf("#%02x%02x%02x", r, g, b)
}

// LabelColor returns the label's explicit color or a generated one.
func LabelColor(def LabelDef) string {
	if def.Color != "" {
		return def.Color
	}
	return StableColor(def.Key)
}

// CollectLabelDefs resolves the label vocabulary for a document by walking
// its ancestor chain. Definitions are ordered root-to-leaf, each with its
// effective color resolved; freeform is allowed if any document on the
// chain allows it.
func CollectLabelDefs(prefix string, docs map[string]*Document) ([]LabelDef, bool) {
	var chain []*Document
	allowFreeform := false
	current := docs[prefix]
	for steps := 0; current != nil && steps <= len(docs); steps++ {
		chain = append(chain, current)
		allowFreeform = allowFreeform || current.Labels.AllowFreeform
		if current.Parent == "" {
			break
		}
		current = docs[current.Parent]
	}
	var defs []LabelDef
	for i := len(chain) - 1; i >= 0; i-- {
		for _, def := range chain[i].Labels.Defs {
			defs = append(defs, LabelDef{Key: def.Key, Title: def.Title, Color: LabelColor(def)})
		}
	}
	return defs, allowFreeform
}

// CollectLabels returns the allowed label keys and freeform flag for prefix.
func CollectLabels(prefix string, docs map[string]*Document) (map[string]bool, bool) {
	defs, freeform := CollectLabelDefs(prefix, docs)
	allowed := make(map[string]bool, len(defs))
	for _, def := range defs {
		allowed[def.Key] = true
	}
	return allowed, freeform
}

// ValidateLabels checks proposed labels for items under the given document.
// With freeform disallowed, every label must appear in the inherited
// vocabulary; the first unknown label is reported. An empty label list is
// always valid.
func ValidateLabels(prefix string, labels []string, docs map[string]*Document) error {
	if len(labels) == 0 {
		return nil
	}
	allowed, freeform := CollectLabels(prefix, docs)
	if freeform {
		return nil
	}
	for _, label := range labels {
		if !allowed[label] {
			return validationErrorf("unknown label: %s", label)
		}
	}
	return nil
}
