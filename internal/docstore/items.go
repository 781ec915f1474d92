package docstore

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/reqwire/reqwire/internal/model"
	"github.com/reqwire/reqwire/internal/search"
)

// RequirementPage is a paginated slice of requirements.
type RequirementPage struct {
	Items   []*model.Requirement
	Total   int
	Page    int
	PerPage int
}

// ListOptions select and page requirements for ListRequirements.
type ListOptions struct {
	Page    int
	PerPage int
	Status  string
	Labels  []string
}

// SearchOptions extend ListOptions with free-text search parameters.
type SearchOptions struct {
	Page         int
	PerPage      int
	Status       string
	Labels       []string
	Query        string
	Fields       []string
	FieldQueries map[string]string
}

func ensureDocuments(root string, docs map[string]*Document) (map[string]*Document, error) {
	if docs != nil {
		return docs, nil
	}
	return LoadDocuments(root)
}

// LoadItem reads one item payload from a document directory, trying the
// canonical path first and the legacy filename second. Returns the payload
// and the file's modification time.
func LoadItem(directory string, doc *Document, id int) (map[string]any, time.Time, error) {
	path, ok := resolveItemPath(directory, doc, id)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("item %d in %s: %w", id, directory, os.ErrNotExist)
	}
	data, err := readJSONFile(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, time.Time{}, err
	}
	return data, info.ModTime(), nil
}

// saveItem validates outgoing links, refreshes their fingerprints, and
// writes the payload to the canonical path. A surviving legacy-named file
// for the same id is removed afterwards so exactly one file per item
// remains.
func saveItem(root, directory string, doc *Document, data map[string]any, docs map[string]*Document) (string, error) {
	payload := make(map[string]any, len(data))
	for key, value := range data {
		payload[key] = value
	}
	if err := validateItemLinks(root, doc, payload, docs); err != nil {
		return "", err
	}
	if err := prepareLinksForStorage(root, docs, payload); err != nil {
		return "", err
	}
	id, err := model.IntValue(payload["id"])
	if err != nil {
		return "", validationErrorf("id must be an integer")
	}
	path := ItemPath(directory, id)
	if err := writeJSONFile(path, payload); err != nil {
		return "", err
	}
	if legacy, ok := legacyItemPath(directory, doc, id); ok && legacy != path {
		if err := os.Remove(legacy); err != nil && !os.IsNotExist(err) {
			return "", fmt.Errorf("removing legacy item file %s: %w", legacy, err)
		}
	}
	return path, nil
}

// SaveItem persists an item payload within a document directory. The root
// is the directory's parent; the current document map is re-read so link
// validation sees the latest hierarchy.
func SaveItem(directory string, doc *Document, data map[string]any) (string, error) {
	root := filepath.Dir(filepath.Clean(directory))
	docs, err := LoadDocuments(root)
	if err != nil {
		return "", err
	}
	return saveItem(root, directory, doc, data, docs)
}

// resolveRequirement locates the item a rid refers to and returns its
// document, directory, raw payload, and canonical rid.
func resolveRequirement(root, rid string, docs map[string]*Document) (doc *Document, directory string, id int, data map[string]any, canonical string, err error) {
	prefix, id, err := ParseRID(rid)
	if err != nil {
		return nil, "", 0, nil, "", err
	}
	doc, ok := docs[prefix]
	if !ok {
		return nil, "", 0, nil, "", &RequirementNotFoundError{RID: rid}
	}
	directory = filepath.Join(root, doc.Prefix)
	data, _, err = LoadItem(directory, doc, id)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, "", 0, nil, "", &RequirementNotFoundError{RID: rid}
		}
		return nil, "", 0, nil, "", err
	}
	return doc, directory, id, data, RIDFor(doc, id), nil
}

// iterRequirements loads every item under the selected documents in
// deterministic order and refreshes link suspicion flags with a shared
// fingerprint cache, so one pass never re-reads the same target twice.
// allDocs is the full document map used to resolve link targets that live
// outside the selection.
func iterRequirements(root string, selected []string, docs, allDocs map[string]*Document) ([]*model.Requirement, error) {
	var reqs []*model.Requirement
	cache := newFingerprintCache()
	for _, prefix := range selected {
		doc := docs[prefix]
		directory := filepath.Join(root, prefix)
		for _, id := range ListItemIDs(directory, doc) {
			data, _, err := LoadItem(directory, doc, id)
			if err != nil {
				return nil, err
			}
			rid := RIDFor(doc, id)
			cache.put(rid, model.RequirementFingerprint(data))
			req, err := model.RequirementFromMap(data, prefix, rid)
			if err != nil {
				return nil, validationErrorf("%s: %v", rid, err)
			}
			reqs = append(reqs, req)
		}
	}
	for _, req := range reqs {
		refreshLinkSuspicions(root, allDocs, req, cache)
	}
	return reqs, nil
}

// LoadRequirements returns requirements for the selected document prefixes,
// in the given order with duplicates dropped. A nil selection loads every
// document sorted by prefix. Link suspicion state is refreshed the same way
// ListRequirements and SearchRequirements do it.
func LoadRequirements(root string, prefixes []string, docs map[string]*Document) ([]*model.Requirement, error) {
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return nil, err
	}
	var selected []string
	if prefixes == nil {
		for prefix := range docs {
			selected = append(selected, prefix)
		}
		sort.Strings(selected)
	} else {
		seen := map[string]bool{}
		for _, prefix := range prefixes {
			if _, ok := docs[prefix]; !ok {
				return nil, &DocumentNotFoundError{Prefix: prefix}
			}
			if seen[prefix] {
				continue
			}
			seen[prefix] = true
			selected = append(selected, prefix)
		}
	}
	return iterRequirements(root, selected, docs, docs)
}

func paginate(reqs []*model.Requirement, page, perPage int) *RequirementPage {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 1
	}
	total := len(reqs)
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return &RequirementPage{Items: reqs[start:end], Total: total, Page: page, PerPage: perPage}
}

// ListRequirements loads every requirement under docs, applies status and
// label filters, and paginates. Page numbers and sizes clamp to 1.
func ListRequirements(root string, opt ListOptions, docs map[string]*Document) (*RequirementPage, error) {
	reqs, err := LoadRequirements(root, nil, docs)
	if err != nil {
		return nil, err
	}
	reqs = search.FilterByStatus(reqs, opt.Status)
	reqs = search.FilterByLabels(reqs, opt.Labels, true)
	return paginate(reqs, opt.Page, opt.PerPage), nil
}

// SearchRequirements is ListRequirements plus free-text filtering.
func SearchRequirements(root string, opt SearchOptions, docs map[string]*Document) (*RequirementPage, error) {
	reqs, err := LoadRequirements(root, nil, docs)
	if err != nil {
		return nil, err
	}
	reqs = search.FilterByStatus(reqs, opt.Status)
	reqs = search.Search(reqs, search.Options{
		Labels:       opt.Labels,
		MatchAll:     true,
		Query:        opt.Query,
		Fields:       opt.Fields,
		FieldQueries: opt.FieldQueries,
	})
	return paginate(reqs, opt.Page, opt.PerPage), nil
}

// GetRequirement loads a single requirement by rid with suspicion state
// refreshed.
func GetRequirement(root, rid string, docs map[string]*Document) (*model.Requirement, error) {
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return nil, err
	}
	doc, _, id, data, canonical, err := resolveRequirement(root, rid, docs)
	if err != nil {
		return nil, err
	}
	req, err := model.RequirementFromMap(data, doc.Prefix, canonical)
	if err != nil {
		return nil, validationErrorf("%s: %v", RIDFor(doc, id), err)
	}
	refreshLinkSuspicions(root, docs, req, nil)
	return req, nil
}

// normalizeLabels checks that a raw labels value is a list of strings.
func normalizeLabels(raw any, present bool) ([]string, error) {
	if !present {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, validationErrorf("labels must be a list of strings")
	}
	labels := make([]string, 0, len(list))
	for _, entry := range list {
		label, ok := entry.(string)
		if !ok {
			return nil, validationErrorf("labels must be a list of strings")
		}
		labels = append(labels, label)
	}
	return labels, nil
}

// currentRevision extracts the stored revision, which must be a positive
// integer for any revision-gated write to proceed.
func currentRevision(data map[string]any) (int, error) {
	raw, ok := data["revision"]
	if !ok || raw == nil {
		return 1, nil
	}
	revision, err := model.IntValue(raw)
	if err != nil {
		return 0, validationErrorf("revision must be an integer")
	}
	if revision <= 0 {
		return 0, validationErrorf("revision must be positive")
	}
	return revision, nil
}

// CreateRequirement allocates the next free id in the document, validates
// labels against the inherited vocabulary, resolves link fingerprints, and
// persists the new item. Revision defaults to 1.
func CreateRequirement(root, prefix string, data map[string]any, docs map[string]*Document) (*model.Requirement, error) {
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return nil, err
	}
	doc, ok := docs[prefix]
	if !ok {
		return nil, &DocumentNotFoundError{Prefix: prefix}
	}
	payload := make(map[string]any, len(data))
	for key, value := range data {
		payload[key] = value
	}
	rawLabels, present := payload["labels"]
	labels, err := normalizeLabels(rawLabels, present)
	if err != nil {
		return nil, err
	}
	if err := ValidateLabels(prefix, labels, docs); err != nil {
		return nil, err
	}

	directory := filepath.Join(root, prefix)
	id := NextItemID(directory, doc)
	payload["id"] = id
	if _, ok := payload["revision"]; !ok {
		payload["revision"] = 1
	}
	req, err := model.RequirementFromMap(payload, prefix, RIDFor(doc, id))
	if err != nil {
		return nil, validationErrorf("%v", err)
	}
	refreshLinkSuspicions(root, docs, req, nil)
	if _, err := saveItem(root, directory, doc, model.RequirementToMap(req), docs); err != nil {
		return nil, err
	}
	return req, nil
}

type patchOperation struct {
	Op   string `json:"op"`
	Path string `json:"path"`
	From string `json:"from,omitempty"`
}

// patchTargetField extracts the top-level field a JSON pointer addresses.
func patchTargetField(pointer string) string {
	trimmed := strings.TrimPrefix(pointer, "/")
	if idx := strings.IndexByte(trimmed, '/'); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	trimmed = strings.ReplaceAll(trimmed, "~1", "/")
	return strings.ReplaceAll(trimmed, "~0", "~")
}

// validatePatchTargets rejects operations that address id or links (both
// read-only through this path; links have dedicated operations) or any
// field outside the requirement's known field set.
func validatePatchTargets(ops []patchOperation) error {
	for _, op := range ops {
		pointers := []string{op.Path}
		if op.From != "" {
			pointers = append(pointers, op.From)
		}
		for _, pointer := range pointers {
			field := patchTargetField(pointer)
			if field == "" {
				return validationErrorf("patch path must target a requirement field")
			}
			if field == "id" || field == "links" {
				return validationErrorf("field is read-only: %s", field)
			}
			if !model.KnownFields[field] {
				return validationErrorf("unknown field: %s", field)
			}
		}
	}
	return nil
}

// PatchRequirement applies an RFC 6902 patch to a requirement, gated by the
// revision the caller believes is current. A mismatch is a hard error with
// no merge and no retry — the caller reloads and resubmits. The stored
// revision never auto-increments: it changes only when the patch itself
// replaces it, and the patched value must remain a positive integer.
func PatchRequirement(root, rid string, patch json.RawMessage, expectedRevision int, docs map[string]*Document) (*model.Requirement, error) {
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return nil, err
	}
	doc, directory, id, data, canonical, err := resolveRequirement(root, rid, docs)
	if err != nil {
		return nil, err
	}
	current, err := currentRevision(data)
	if err != nil {
		return nil, err
	}
	if current != expectedRevision {
		return nil, &RevisionMismatchError{Expected: expectedRevision, Actual: current}
	}

	var ops []patchOperation
	if err := json.Unmarshal(patch, &ops); err != nil {
		return nil, validationErrorf("patch must be a list of operations: %v", err)
	}
	if err := validatePatchTargets(ops); err != nil {
		return nil, err
	}
	decoded, err := jsonpatch.DecodePatch(patch)
	if err != nil {
		return nil, validationErrorf("invalid patch: %v", err)
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", canonical, err)
	}
	patched, err := decoded.Apply(encoded)
	if err != nil {
		return nil, validationErrorf("applying patch: %v", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(patched, &payload); err != nil {
		return nil, validationErrorf("patch result is not an object: %v", err)
	}

	payload["id"] = id
	if _, ok := payload["revision"]; !ok {
		payload["revision"] = current
	}
	if _, err := currentRevision(payload); err != nil {
		return nil, err
	}
	rawLabels, present := payload["labels"]
	labels, err := normalizeLabels(rawLabels, present)
	if err != nil {
		return nil, err
	}
	if err := ValidateLabels(doc.Prefix, labels, docs); err != nil {
		return nil, err
	}
	req, err := model.RequirementFromMap(payload, doc.Prefix, canonical)
	if err != nil {
		return nil, validationErrorf("%v", err)
	}
	refreshLinkSuspicions(root, docs, req, nil)
	if _, err := saveItem(root, directory, doc, model.RequirementToMap(req), docs); err != nil {
		return nil, err
	}
	return req, nil
}

// DeleteRequirement removes a requirement, gated by the caller's expected
// revision, and scrubs its rid from every other item's links across the
// whole store. The cascade touches one file at a time and is not atomic;
// an interrupted cascade leaves the surviving references suspect rather
// than broken.
func DeleteRequirement(root, rid string, expectedRevision int, docs map[string]*Document) (string, error) {
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return "", err
	}
	_, _, _, data, canonical, err := resolveRequirement(root, rid, docs)
	if err != nil {
		return "", err
	}
	current, err := currentRevision(data)
	if err != nil {
		return "", err
	}
	if current != expectedRevision {
		return "", &RevisionMismatchError{Expected: expectedRevision, Actual: current}
	}
	deleted, err := DeleteItem(root, canonical, docs)
	if err != nil {
		return "", err
	}
	if !deleted {
		return "", &RequirementNotFoundError{RID: canonical}
	}
	return canonical, nil
}

// MoveRequirement relocates a requirement under another document, assigning
// the next free id there and rewriting every referencing link store-wide.
// A referencing item whose document would no longer satisfy the ancestor
// rule after the move blocks the whole operation.
func MoveRequirement(root, rid, newPrefix string, overrides map[string]any, docs map[string]*Document) (*model.Requirement, error) {
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return nil, err
	}
	srcDoc, srcDirectory, srcID, data, canonical, err := resolveRequirement(root, rid, docs)
	if err != nil {
		return nil, err
	}
	if newPrefix == srcDoc.Prefix {
		return nil, validationErrorf("requirement already belongs to the specified document")
	}
	current, err := currentRevision(data)
	if err != nil {
		return nil, err
	}
	dstDoc, ok := docs[newPrefix]
	if !ok {
		return nil, &DocumentNotFoundError{Prefix: newPrefix}
	}

	dstDirectory := filepath.Join(root, newPrefix)
	newID := NextItemID(dstDirectory, dstDoc)
	newRID := RIDFor(dstDoc, newID)
	if itemExists(dstDirectory, dstDoc, newID) {
		return nil, &RequirementIDCollisionError{Prefix: newPrefix, ID: newID, RID: newRID}
	}

	payload := make(map[string]any, len(data))
	for key, value := range data {
		payload[key] = value
	}
	for key, value := range overrides {
		payload[key] = value
	}
	payload["id"] = newID
	if _, ok := payload["revision"]; !ok {
		payload["revision"] = current
	}
	rawLabels, present := payload["labels"]
	labels, err := normalizeLabels(rawLabels, present)
	if err != nil {
		return nil, err
	}
	if err := ValidateLabels(newPrefix, labels, docs); err != nil {
		return nil, err
	}

	// Collect every referencing item before touching anything, so the
	// ancestor-rule check can veto the move without partial writes.
	type referencingUpdate struct {
		directory string
		doc       *Document
		payload   map[string]any
	}
	var updates []referencingUpdate
	for prefix, other := range docs {
		otherDirectory := filepath.Join(root, prefix)
		for _, otherID := range ListItemIDs(otherDirectory, other) {
			if prefix == srcDoc.Prefix && otherID == srcID {
				continue
			}
			itemData, _, err := LoadItem(otherDirectory, other, otherID)
			if err != nil {
				return nil, err
			}
			rawLinks, ok := itemData["links"].([]any)
			if !ok {
				continue
			}
			changed := false
			rewritten := make([]any, 0, len(rawLinks))
			for _, entry := range rawLinks {
				link, err := model.LinkFromAny(entry)
				if err != nil {
					rewritten = append(rewritten, entry)
					continue
				}
				if link.RID == canonical {
					if !IsAncestor(other.Prefix, newPrefix, docs) {
						return nil, validationErrorf(
							"cannot move %s: link from %s would violate document hierarchy",
							canonical, RIDFor(other, otherID))
					}
					link.RID = newRID
					link.Fingerprint = ""
					link.Suspect = false
					changed = true
				}
				rewritten = append(rewritten, link.ToMap())
			}
			if changed {
				updated := make(map[string]any, len(itemData))
				for key, value := range itemData {
					updated[key] = value
				}
				updated["links"] = rewritten
				updates = append(updates, referencingUpdate{otherDirectory, other, updated})
			}
		}
	}

	req, err := model.RequirementFromMap(payload, newPrefix, newRID)
	if err != nil {
		return nil, validationErrorf("%v", err)
	}
	refreshLinkSuspicions(root, docs, req, nil)
	if _, err := saveItem(root, dstDirectory, dstDoc, model.RequirementToMap(req), docs); err != nil {
		return nil, err
	}
	for _, update := range updates {
		if _, err := saveItem(root, update.directory, update.doc, update.payload, docs); err != nil {
			return nil, err
		}
	}
	if path, ok := resolveItemPath(srcDirectory, srcDoc, srcID); ok {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("removing moved item %s: %w", path, err)
		}
	}
	return req, nil
}
