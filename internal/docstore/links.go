package docstore

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/reqwire/reqwire/internal/model"
)

// LinkTypeParent is the only supported link type: a link always points from
// a derived requirement to the requirement it traces to, and the target must
// live in an ancestor document (or the same one).
const LinkTypeParent = "parent"

// fingerprintCache memoizes target fingerprints within one operation, so a
// pass that refreshes many links never reads the same target file twice.
// Missing targets are cached too.
type fingerprintCache struct {
	entries map[string]fingerprintEntry
}

type fingerprintEntry struct {
	fingerprint string
	found       bool
}

func newFingerprintCache() *fingerprintCache {
	return &fingerprintCache{entries: map[string]fingerprintEntry{}}
}

func (c *fingerprintCache) put(rid, fingerprint string) {
	c.entries[rid] = fingerprintEntry{fingerprint: fingerprint, found: true}
}

// fingerprintForRID computes the content fingerprint of the item a rid
// points at. Reports false when the target cannot be resolved or loaded.
func fingerprintForRID(root string, docs map[string]*Document, rid string, cache *fingerprintCache) (string, bool) {
	prefix, id, err := ParseRID(rid)
	if err != nil {
		return "", false
	}
	doc, ok := docs[prefix]
	if !ok {
		return "", false
	}
	canonical := RIDFor(doc, id)
	if cache != nil {
		if entry, ok := cache.entries[canonical]; ok {
			return entry.fingerprint, entry.found
		}
	}
	data, _, err := LoadItem(filepath.Join(root, prefix), doc, id)
	if err != nil {
		if cache != nil {
			cache.entries[canonical] = fingerprintEntry{}
		}
		return "", false
	}
	fingerprint := model.RequirementFingerprint(data)
	if cache != nil {
		cache.put(canonical, fingerprint)
	}
	return fingerprint, true
}

// refreshLinkSuspicions recomputes the suspect flag on every link of req.
// A link with no stored fingerprint adopts the target's current one; a
// stored fingerprint that no longer matches marks the link suspect; an
// unresolvable target marks the link suspect while keeping the stored
// fingerprint for later reconciliation.
func refreshLinkSuspicions(root string, docs map[string]*Document, req *model.Requirement, cache *fingerprintCache) {
	for _, link := range req.Links {
		fingerprint, found := fingerprintForRID(root, docs, link.RID, cache)
		if !found {
			link.Suspect = true
			continue
		}
		if link.Fingerprint == "" {
			link.Fingerprint = fingerprint
			link.Suspect = false
			continue
		}
		link.Suspect = link.Fingerprint != fingerprint
	}
}

// validateItemLinks enforces referential integrity for an outgoing payload:
// every link target must parse, must not be the item itself, must live in a
// known document that is an ancestor of (or the same as) the source
// document, and must exist on disk. Any violation fails the write.
func validateItemLinks(root string, doc *Document, payload map[string]any, docs map[string]*Document) error {
	rawLinks, ok := payload["links"]
	if !ok || rawLinks == nil {
		return nil
	}
	list, ok := rawLinks.([]any)
	if !ok {
		return validationErrorf("links must be a list")
	}
	sourceID, err := model.IntValue(payload["id"])
	if err != nil {
		return validationErrorf("id must be an integer")
	}
	for i, entry := range list {
		link, err := model.LinkFromAny(entry)
		if err != nil {
			return validationErrorf("links[%d]: %v", i, err)
		}
		targetPrefix, targetID, err := ParseRID(link.RID)
		if err != nil {
			return validationErrorf("links[%d]: %v", i, err)
		}
		if targetPrefix == doc.Prefix && targetID == sourceID {
			return validationErrorf("link target %s is the item itself", link.RID)
		}
		targetDoc, ok := docs[targetPrefix]
		if !ok {
			return validationErrorf("link target %s: unknown document %s", link.RID, targetPrefix)
		}
		if !IsAncestor(doc.Prefix, targetPrefix, docs) {
			return validationErrorf(
				"link target %s: document %s is not an ancestor of %s",
				link.RID, targetPrefix, doc.Prefix)
		}
		if !itemExists(filepath.Join(root, targetPrefix), targetDoc, targetID) {
			return validationErrorf("link target %s does not exist", link.RID)
		}
	}
	return nil
}

// prepareLinksForStorage normalizes the links of an outgoing payload:
// canonical rids, deduplicated, sorted lexicographically, fingerprints
// adopted for links that never recorded one. An empty list is dropped from
// the payload entirely.
func prepareLinksForStorage(root string, docs map[string]*Document, payload map[string]any) error {
	rawLinks, ok := payload["links"]
	if !ok || rawLinks == nil {
		return nil
	}
	list, ok := rawLinks.([]any)
	if !ok {
		return validationErrorf("links must be a list")
	}
	cache := newFingerprintCache()
	byRID := map[string]*model.Link{}
	for i, entry := range list {
		link, err := model.LinkFromAny(entry)
		if err != nil {
			return validationErrorf("links[%d]: %v", i, err)
		}
		prefix, id, err := ParseRID(link.RID)
		if err != nil {
			return validationErrorf("links[%d]: %v", i, err)
		}
		if doc, ok := docs[prefix]; ok {
			link.RID = RIDFor(doc, id)
		}
		if link.Fingerprint == "" {
			if fingerprint, found := fingerprintForRID(root, docs, link.RID, cache); found {
				link.Fingerprint = fingerprint
				link.Suspect = false
			} else {
				link.Suspect = true
			}
		}
		byRID[link.RID] = link
	}
	if len(byRID) == 0 {
		delete(payload, "links")
		return nil
	}
	rids := make([]string, 0, len(byRID))
	for rid := range byRID {
		rids = append(rids, rid)
	}
	sort.Strings(rids)
	links := make([]any, len(rids))
	for i, rid := range rids {
		links[i] = byRID[rid].ToMap()
	}
	payload["links"] = links
	return nil
}

// LinkRequirements creates (or refreshes) a parent link from source to
// target, gated by the source's expected revision. Linking an already
// linked target is idempotent: the stored fingerprint is re-adopted from
// the target's current content and the suspect flag cleared.
func LinkRequirements(root, sourceRID, targetRID, linkType string, expectedRevision int, docs map[string]*Document) (*model.Requirement, error) {
	if linkType != LinkTypeParent {
		return nil, validationErrorf("unsupported link type: %s", linkType)
	}
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return nil, err
	}
	doc, directory, _, data, canonical, err := resolveRequirement(root, sourceRID, docs)
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

	targetPrefix, targetID, err := ParseRID(targetRID)
	if err != nil {
		return nil, err
	}
	targetDoc, ok := docs[targetPrefix]
	if !ok {
		return nil, &DocumentNotFoundError{Prefix: targetPrefix}
	}
	canonicalTarget := RIDFor(targetDoc, targetID)
	if canonicalTarget == canonical {
		return nil, validationErrorf("cannot link %s to itself", canonical)
	}
	if !IsAncestor(doc.Prefix, targetPrefix, docs) {
		return nil, validationErrorf(
			"link target %s: document %s is not an ancestor of %s",
			canonicalTarget, targetPrefix, doc.Prefix)
	}
	if !itemExists(filepath.Join(root, targetPrefix), targetDoc, targetID) {
		return nil, &RequirementNotFoundError{RID: canonicalTarget}
	}

	req, err := model.RequirementFromMap(data, doc.Prefix, canonical)
	if err != nil {
		return nil, validationErrorf("%s: %v", canonical, err)
	}
	fingerprint, _ := fingerprintForRID(root, docs, canonicalTarget, nil)
	updated := false
	for _, link := range req.Links {
		if link.RID == canonicalTarget {
			link.Fingerprint = fingerprint
			link.Suspect = false
			updated = true
			break
		}
	}
	if !updated {
		req.Links = append(req.Links, &model.Link{RID: canonicalTarget, Fingerprint: fingerprint})
	}
	req.SortLinks()
	refreshLinkSuspicions(root, docs, req, nil)
	if _, err := saveItem(root, directory, doc, model.RequirementToMap(req), docs); err != nil {
		return nil, err
	}
	return req, nil
}

// UnlinkRequirements removes the link from source to target, gated by the
// source's expected revision. Removing a link that does not exist is an
// error so callers notice stale assumptions.
func UnlinkRequirements(root, sourceRID, targetRID string, expectedRevision int, docs map[string]*Document) (*model.Requirement, error) {
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return nil, err
	}
	doc, directory, _, data, canonical, err := resolveRequirement(root, sourceRID, docs)
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

	targetPrefix, targetID, err := ParseRID(targetRID)
	if err != nil {
		return nil, err
	}
	wantRID := targetRID
	if targetDoc, ok := docs[targetPrefix]; ok {
		wantRID = RIDFor(targetDoc, targetID)
	}

	req, err := model.RequirementFromMap(data, doc.Prefix, canonical)
	if err != nil {
		return nil, validationErrorf("%s: %v", canonical, err)
	}
	kept := req.Links[:0]
	removed := false
	for _, link := range req.Links {
		if link.RID == wantRID {
			removed = true
			continue
		}
		kept = append(kept, link)
	}
	if !removed {
		return nil, validationErrorf("%s has no link to %s", canonical, wantRID)
	}
	req.Links = kept
	refreshLinkSuspicions(root, docs, req, nil)
	if _, err := saveItem(root, directory, doc, model.RequirementToMap(req), docs); err != nil {
		return nil, err
	}
	return req, nil
}

// removeItemFiles deletes both the canonical and any legacy file for an id.
func removeItemFiles(directory string, doc *Document, id int) (bool, error) {
	removed := false
	canonical := ItemPath(directory, id)
	if err := os.Remove(canonical); err == nil {
		removed = true
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("removing %s: %w", canonical, err)
	}
	if legacy, ok := legacyItemPath(directory, doc, id); ok {
		if err := os.Remove(legacy); err == nil {
			removed = true
		} else if !os.IsNotExist(err) {
			return false, fmt.Errorf("removing %s: %w", legacy, err)
		}
	}
	return removed, nil
}

// DeleteItem removes the item a rid refers to and scrubs references to it
// from every other item's links, store-wide. Returns false when the item
// does not exist. The scrub rewrites one file at a time; it is not atomic.
func DeleteItem(root, rid string, docs map[string]*Document) (bool, error) {
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return false, err
	}
	prefix, id, err := ParseRID(rid)
	if err != nil {
		return false, err
	}
	doc, ok := docs[prefix]
	if !ok {
		return false, nil
	}
	removed, err := removeItemFiles(filepath.Join(root, prefix), doc, id)
	if err != nil || !removed {
		return false, err
	}

	for otherPrefix, other := range docs {
		directory := filepath.Join(root, otherPrefix)
		for _, otherID := range ListItemIDs(directory, other) {
			data, _, err := LoadItem(directory, other, otherID)
			if err != nil {
				return true, err
			}
			rawLinks, ok := data["links"].([]any)
			if !ok {
				continue
			}
			kept := make([]any, 0, len(rawLinks))
			changed := false
			for _, entry := range rawLinks {
				link, err := model.LinkFromAny(entry)
				if err == nil {
					linkPrefix, linkID, perr := ParseRID(link.RID)
					if perr == nil && linkPrefix == prefix && linkID == id {
						changed = true
						continue
					}
				}
				kept = append(kept, entry)
			}
			if !changed {
				continue
			}
			data["links"] = kept
			if _, err := saveItem(root, directory, other, data, docs); err != nil {
				return true, err
			}
		}
	}
	return true, nil
}

// childDocuments returns the prefixes whose parent is the given prefix,
// sorted for deterministic traversal.
func childDocuments(prefix string, docs map[string]*Document) []string {
	var children []string
	for other, doc := range docs {
		if doc.Parent == prefix {
			children = append(children, other)
		}
	}
	sort.Strings(children)
	return children
}

// DeleteDocument removes a document and its entire subtree, depth-first so
// children go before their parent. Every contained item is deleted through
// DeleteItem, cascading the link scrub to surviving documents. Returns the
// removed prefixes in deletion order.
func DeleteDocument(root, prefix string, docs map[string]*Document) ([]string, error) {
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return nil, err
	}
	if _, ok := docs[prefix]; !ok {
		return nil, &DocumentNotFoundError{Prefix: prefix}
	}
	var removed []string
	for _, child := range childDocuments(prefix, docs) {
		childRemoved, err := DeleteDocument(root, child, docs)
		if err != nil {
			return removed, err
		}
		removed = append(removed, childRemoved...)
	}
	doc := docs[prefix]
	directory := filepath.Join(root, prefix)
	for _, id := range ListItemIDs(directory, doc) {
		if _, err := DeleteItem(root, RIDFor(doc, id), docs); err != nil {
			return removed, err
		}
	}
	if err := os.RemoveAll(directory); err != nil {
		return removed, fmt.Errorf("removing document directory %s: %w", directory, err)
	}
	delete(docs, prefix)
	removed = append(removed, prefix)
	return removed, nil
}

// ItemDeletePlan previews a DeleteItem cascade.
type ItemDeletePlan struct {
	RID         string
	Referencing []string
}

// PlanDeleteItem reports which items currently link to rid, without
// modifying anything. Referencing rids come back sorted.
func PlanDeleteItem(root, rid string, docs map[string]*Document) (*ItemDeletePlan, error) {
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return nil, err
	}
	prefix, id, err := ParseRID(rid)
	if err != nil {
		return nil, err
	}
	doc, ok := docs[prefix]
	if !ok {
		return nil, &RequirementNotFoundError{RID: rid}
	}
	canonical := RIDFor(doc, id)
	if !itemExists(filepath.Join(root, prefix), doc, id) {
		return nil, &RequirementNotFoundError{RID: canonical}
	}
	var referencing []string
	records, err := IterLinks(root, docs)
	if err != nil {
		return nil, err
	}
	for _, record := range records {
		if record.TargetRID == canonical {
			referencing = append(referencing, record.SourceRID)
		}
	}
	sort.Strings(referencing)
	return &ItemDeletePlan{RID: canonical, Referencing: referencing}, nil
}

// DocumentDeletePlan previews a DeleteDocument cascade.
type DocumentDeletePlan struct {
	Prefixes    []string
	Items       []string
	Referencing []string
}

// PlanDeleteDocument reports what DeleteDocument would remove: the subtree
// prefixes in deletion order, every contained item's rid, and the rids of
// items outside the subtree that link into it.
func PlanDeleteDocument(root, prefix string, docs map[string]*Document) (*DocumentDeletePlan, error) {
	docs, err := ensureDocuments(root, docs)
	if err != nil {
		return nil, err
	}
	if _, ok := docs[prefix]; !ok {
		return nil, &DocumentNotFoundError{Prefix: prefix}
	}
	plan := &DocumentDeletePlan{}
	var collect func(current string)
	collect = func(current string) {
		for _, child := range childDocuments(current, docs) {
			collect(child)
		}
		doc := docs[current]
		directory := filepath.Join(root, current)
		for _, id := range ListItemIDs(directory, doc) {
			plan.Items = append(plan.Items, RIDFor(doc, id))
		}
		plan.Prefixes = append(plan.Prefixes, current)
	}
	collect(prefix)

	inSubtree := map[string]bool{}
	for _, p := range plan.Prefixes {
		inSubtree[p] = true
	}
	records, err := IterLinks(root, docs)
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	for _, record := range records {
		targetPrefix, _, err := ParseRID(record.TargetRID)
		if err != nil || !inSubtree[targetPrefix] {
			continue
		}
		sourcePrefix, _, err := ParseRID(record.SourceRID)
		if err != nil || inSubtree[sourcePrefix] {
			continue
		}
		if !seen[record.SourceRID] {
			seen[record.SourceRID] = true
			plan.Referencing = append(plan.Referencing, record.SourceRID)
		}
	}
	sort.Strings(plan.Referencing)
	return plan, nil
}

// LinkRecord is one edge in the store's link graph.
type LinkRecord struct {
	SourceRID string
	TargetRID string
	Suspect   bool
}

// IterLinks enumerates every link in the store, ordered by source rid then
// target rid, with suspicion state refreshed.
func IterLinks(root string, docs map[string]*Document) ([]LinkRecord, error) {
	reqs, err := LoadRequirements(root, nil, docs)
	if err != nil {
		return nil, err
	}
	var records []LinkRecord
	for _, req := range reqs {
		for _, link := range req.Links {
			records = append(records, LinkRecord{
				SourceRID: req.RID,
				TargetRID: link.RID,
				Suspect:   link.Suspect,
			})
		}
	}
	sort.Slice(records, func(i, j int) bool {
		if records[i].SourceRID != records[j].SourceRID {
			return records[i].SourceRID < records[j].SourceRID
		}
		return records[i].TargetRID < records[j].TargetRID
	})
	return records, nil
}
