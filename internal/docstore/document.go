package docstore

import (
	"fmt"
	"log"
)

// LabelDef defines one label available to a document's items. Key must be
// unique within the label vocabulary resolved over the document's ancestor
// chain. Color is optional; an empty color falls back to a deterministic
// pastel derived from the key.
type LabelDef struct {
	Key   string
	Title string
	Color string
}

// DocumentLabels is a document's label configuration.
type DocumentLabels struct {
	AllowFreeform bool
	Defs          []LabelDef
}

// Document describes one document in the hierarchy. Prefix is immutable and
// always equals the directory name; Parent optionally names another document
// prefix, forming a forest.
type Document struct {
	Prefix     string
	Title      string
	Parent     string
	Labels     DocumentLabels
	Attributes map[string]any
}

func labelDefFromMap(raw map[string]any) (LabelDef, error) {
	key, ok := raw["key"].(string)
	if !ok || key == "" {
		return LabelDef{}, validationErrorf("label definition missing key")
	}
	title, ok := raw["title"].(string)
	if !ok {
		return LabelDef{}, validationErrorf("label definition missing title")
	}
	def := LabelDef{Key: key, Title: title}
	switch color := raw["color"].(type) {
	case nil:
	case string:
		def.Color = color
	default:
		return LabelDef{}, validationErrorf("label color must be a string or null")
	}
	return def, nil
}

func documentLabelsFromMap(raw map[string]any) (DocumentLabels, error) {
	labels := DocumentLabels{}
	if allow, ok := raw["allowFreeform"]; ok {
		b, ok := allow.(bool)
		if !ok {
			return labels, validationErrorf("labels.allowFreeform must be a boolean")
		}
		labels.AllowFreeform = b
	}
	rawDefs, ok := raw["defs"]
	if !ok || rawDefs == nil {
		return labels, nil
	}
	list, ok := rawDefs.([]any)
	if !ok {
		return labels, validationErrorf("labels.defs must be a list")
	}
	for i, entry := range list {
		m, ok := entry.(map[string]any)
		if !ok {
			return labels, validationErrorf("labels.defs[%d] must be an object", i)
		}
		def, err := labelDefFromMap(m)
		if err != nil {
			return labels, err
		}
		labels.Defs = append(labels.Defs, def)
	}
	return labels, nil
}

// DocumentFromMap builds a Document from raw document.json data. The
// directory name is authoritative for the prefix: a stored prefix that
// disagrees is a hard error. Unknown keys are ignored for forward
// compatibility; the retired "digits" padding-width key is accepted with a
// deprecation warning and never re-emitted.
func DocumentFromMap(prefix string, data map[string]any) (*Document, error) {
	if stored, ok := data["prefix"].(string); ok && stored != prefix {
		return nil, validationErrorf(
			"document prefix mismatch: directory %q != stored %q", prefix, stored)
	}
	if _, ok := data["digits"]; ok {
		log.Printf("WARNING: document %s: deprecated 'digits' field ignored", prefix)
	}

	doc := &Document{Prefix: prefix, Title: prefix, Attributes: map[string]any{}}
	switch title := data["title"].(type) {
	case nil:
	case string:
		doc.Title = title
	default:
		doc.Title = fmt.Sprintf("%v", title)
	}
	switch parent := data["parent"].(type) {
	case nil:
	case string:
		doc.Parent = parent
	default:
		return nil, validationErrorf("parent must be a string or null")
	}
	switch labels := data["labels"].(type) {
	case nil:
	case map[string]any:
		parsed, err := documentLabelsFromMap(labels)
		if err != nil {
			return nil, err
		}
		doc.Labels = parsed
	default:
		return nil, validationErrorf("labels must be an object")
	}
	switch attributes := data["attributes"].(type) {
	case nil:
	case map[string]any:
		for key, value := range attributes {
			doc.Attributes[key] = value
		}
	default:
		return nil, validationErrorf("attributes must be an object")
	}
	return doc, nil
}

// ToMap serializes the document configuration for document.json. The parent
// is emitted as null when absent and defs always as a list, so the file
// shape stays stable across edits.
func (d *Document) ToMap() map[string]any {
	defs := make([]any, len(d.Labels.Defs))
	for i, def := range d.Labels.Defs {
		entry := map[string]any{"key": def.Key, "title": def.Title}
		if def.Color != "" {
			entry["color"] = def.Color
		} else {
			entry["color"] = nil
		}
		defs[i] = entry
	}
	var parent any
	if d.Parent != "" {
		parent = d.Parent
	}
	attributes := map[string]any{}
	for key, value := range d.Attributes {
		attributes[key] = value
	}
	return map[string]any{
		"title":  d.Title,
		"parent": parent,
		"labels": map[string]any{
			"allowFreeform": d.Labels.AllowFreeform,
			"defs":          defs,
		},
		"attributes": attributes,
	}
}
