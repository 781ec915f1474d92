package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// ItemsDir is the subdirectory of a document directory holding item files.
const ItemsDir = "items"

// ridRE matches requirement identifiers: an uppercase-led prefix of
// letters, digits and underscores, ending in the numeric id.
var ridRE = regexp.MustCompile(`^([A-Z][A-Z0-9_]*?)(\d+)$`)

// ParseRID splits a requirement identifier into document prefix and numeric
// id. Malformed identifiers yield a ValidationError.
func ParseRID(rid string) (string, int, error) {
	match := ridRE.FindStringSubmatch(rid)
	if match == nil {
		return "", 0, validationErrorf("invalid requirement id: %s", rid)
	}
	id, err := strconv.Atoi(match[2])
	if err != nil {
		return "", 0, validationErrorf("invalid requirement id: %s", rid)
	}
	return match[1], id, nil
}

// RIDFor formats the requirement identifier for an item within doc. The
// current convention is the bare prefix plus the unpadded number.
func RIDFor(doc *Document, id int) string {
	return fmt.Sprintf("%s%d", doc.Prefix, id)
}

// canonicalItemName is the current on-disk filename for an item id.
func canonicalItemName(id int) string {
	return strconv.Itoa(id) + ".json"
}

// ItemPath returns the canonical path for an item id inside a document
// directory. Writes always target this path.
func ItemPath(directory string, id int) string {
	return filepath.Join(directory, ItemsDir, canonicalItemName(id))
}

// legacyItemPath looks for a legacy-named file for the given id: the full
// rid embedded in the filename, with or without zero padding. Returns the
// path and whether one exists.
func legacyItemPath(directory string, doc *Document, id int) (string, bool) {
	itemsDir := filepath.Join(directory, ItemsDir)
	entries, err := os.ReadDir(itemsDir)
	if err != nil {
		return "", false
	}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		legacyID, ok := legacyStemID(entry.Name(), doc.Prefix)
		if ok && legacyID == id {
			return filepath.Join(itemsDir, entry.Name()), true
		}
	}
	return "", false
}

// legacyStemID parses a legacy filename of the form <PREFIX><digits>.json,
// tolerating zero padding. Reports false for canonical or foreign names.
func legacyStemID(name, prefix string) (int, bool) {
	stem, ok := strings.CutSuffix(name, ".json")
	if !ok {
		return 0, false
	}
	digits, ok := strings.CutPrefix(stem, prefix)
	if !ok || digits == "" {
		return 0, false
	}
	id, err := strconv.Atoi(digits)
	if err != nil || id < 0 {
		return 0, false
	}
	return id, true
}

// resolveItemPath finds the on-disk file for an item id: the canonical path
// first, then the legacy fallback. Reports false when neither exists.
func resolveItemPath(directory string, doc *Document, id int) (string, bool) {
	canonical := ItemPath(directory, id)
	if _, err := os.Stat(canonical); err == nil {
		return canonical, true
	}
	return legacyItemPath(directory, doc, id)
}

// itemExists reports whether an item file (canonical or legacy) exists.
func itemExists(directory string, doc *Document, id int) bool {
	_, ok := resolveItemPath(directory, doc, id)
	return ok
}

// ListItemIDs returns the numeric ids of the items present in a document
// directory, covering both canonical and legacy filenames. Non-numeric
// stems are silently skipped.
func ListItemIDs(directory string, doc *Document) []int {
	itemsDir := filepath.Join(directory, ItemsDir)
	entries, err := os.ReadDir(itemsDir)
	if err != nil {
		return nil
	}
	seen := map[int]bool{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		stem, ok := strings.CutSuffix(entry.Name(), ".json")
		if !ok {
			continue
		}
		if id, err := strconv.Atoi(stem); err == nil {
			seen[id] = true
			continue
		}
		if id, ok := legacyStemID(entry.Name(), doc.Prefix); ok {
			seen[id] = true
		}
	}
	ids := make([]int, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// NextItemID allocates the next free numeric id for a document: max
// existing id plus one, never gap-filling, 1 on an empty document.
func NextItemID(directory string, doc *Document) int {
	max := 0
	for _, id := range ListItemIDs(directory, doc) {
		if id > max {
			max = id
		}
	}
	return max + 1
}
