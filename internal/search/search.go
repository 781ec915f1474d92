// Package search provides in-memory predicate composition over loaded
// requirements: status and label filters plus case-insensitive free-text
// matching over an allow-listed field set. All functions are pure and
// operate on slices already loaded by the repository.
package search

import (
	"strings"

	"github.com/reqwire/reqwire/internal/model"
)

// SearchableFields is the allow-list of requirement fields usable for text
// search. Fields outside this set are ignored by every text filter.
var SearchableFields = map[string]bool{
	"title":     true,
	"statement": true,
	"acceptance": true,
	"source":    true,
	"owner":     true,
	"notes":     true,
}

// fieldValue resolves one searchable field on a requirement.
func fieldValue(req *model.Requirement, field string) string {
	switch field {
	case "title":
		return req.Title
	case "statement":
		return req.Statement
	case "acceptance":
		return req.Acceptance
	case "source":
		return req.Source
	case "owner":
		return req.Owner
	case "notes":
		return req.Notes
	default:
		return ""
	}
}

// FilterByStatus keeps requirements whose status matches. An empty status
// keeps everything.
func FilterByStatus(reqs []*model.Requirement, status string) []*model.Requirement {
	if status == "" {
		return reqs
	}
	var out []*model.Requirement
	for _, req := range reqs {
		if string(req.Status) == status {
			out = append(out, req)
		}
	}
	return out
}

// FilterByLabels keeps requirements matching the given labels. With
// matchAll, every label must be present; otherwise one suffices. An empty
// label list keeps everything.
func FilterByLabels(reqs []*model.Requirement, labels []string, matchAll bool) []*model.Requirement {
	if len(labels) == 0 {
		return reqs
	}
	var out []*model.Requirement
	for _, req := range reqs {
		if matchAll {
			all := true
			for _, label := range labels {
				if !req.HasLabel(label) {
					all = false
					break
				}
			}
			if all {
				out = append(out, req)
			}
			continue
		}
		for _, label := range labels {
			if req.HasLabel(label) {
				out = append(out, req)
				break
			}
		}
	}
	return out
}

// SearchText performs a case-insensitive substring search across the given
// fields. Unknown fields are dropped; with no usable fields or an empty
// query the input is returned unchanged.
func SearchText(reqs []*model.Requirement, query string, fields []string) []*model.Requirement {
	if query == "" {
		return reqs
	}
	var usable []string
	for _, field := range fields {
		if SearchableFields[field] {
			usable = append(usable, field)
		}
	}
	if len(usable) == 0 {
		return reqs
	}
	needle := strings.ToLower(query)
	var out []*model.Requirement
	for _, req := range reqs {
		for _, field := range usable {
			if value := fieldValue(req, field); value != "" &&
				strings.Contains(strings.ToLower(value), needle) {
				out = append(out, req)
				break
			}
		}
	}
	return out
}

// FilterTextFields narrows by per-field substring queries; a requirement
// must satisfy all of them. Empty queries and unknown fields are ignored.
func FilterTextFields(reqs []*model.Requirement, queries map[string]string) []*model.Requirement {
	out := reqs
	for field, query := range queries {
		if query == "" || !SearchableFields[field] {
			continue
		}
		needle := strings.ToLower(query)
		var kept []*model.Requirement
		for _, req := range out {
			if strings.Contains(strings.ToLower(fieldValue(req, field)), needle) {
				kept = append(kept, req)
			}
		}
		out = kept
	}
	return out
}

// Options bundles the composed search parameters.
type Options struct {
	Labels       []string
	MatchAll     bool
	Query        string
	Fields       []string
	FieldQueries map[string]string
}

// Search applies label filtering, free-text search, and per-field queries
// in that order. Query fields default to the full searchable set.
func Search(reqs []*model.Requirement, opt Options) []*model.Requirement {
	out := FilterByLabels(reqs, opt.Labels, opt.MatchAll)
	if opt.Query != "" {
		fields := opt.Fields
		if len(fields) == 0 {
			fields = DefaultFields()
		}
		out = SearchText(out, opt.Query, fields)
	}
	if len(opt.FieldQueries) > 0 {
		out = FilterTextFields(out, opt.FieldQueries)
	}
	return out
}

// DefaultFields returns the full searchable field set in stable order.
func DefaultFields() []string {
	return []string{"title", "statement", "acceptance", "source", "owner", "notes"}
}
