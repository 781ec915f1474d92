// Package trace builds traceability matrices: bipartite views of the link
// graph between two filtered requirement selections, with coverage and
// orphan statistics. Matrix construction is a pure read — it performs no
// writes and can run concurrently with other readers.
package trace

import (
	"sort"

	"github.com/reqwire/reqwire/internal/docstore"
	"github.com/reqwire/reqwire/internal/model"
	"github.com/reqwire/reqwire/internal/search"
)

// Direction selects which axis is treated as the link source. Links always
// point child to parent, so the direction only swaps the matching side.
type Direction string

const (
	ChildToParent Direction = "child_to_parent"
	ParentToChild Direction = "parent_to_child"
)

// AxisConfig selects and filters the requirements on one matrix axis.
// Filters apply in a fixed order: statuses, types, labelsAll, labelsAny,
// free-text query, per-field queries.
type AxisConfig struct {
	Documents          []string
	IncludeDescendants bool
	Statuses           []string
	Types              []string
	LabelsAll          []string
	LabelsAny          []string
	Query              string
	QueryFields        []string
	FieldQueries       map[string]string
}

// Config describes a full matrix build.
type Config struct {
	Rows      AxisConfig
	Columns   AxisConfig
	Direction Direction
}

// AxisEntry pairs a resolved requirement with its owning document.
type AxisEntry struct {
	Requirement *model.Requirement
	Document    *docstore.Document
}

// LinkView is one link as it appears inside a matrix cell.
type LinkView struct {
	SourceRID   string
	TargetRID   string
	Fingerprint string
	Suspect     bool
	Revision    int
}

// CellKey addresses one cell by row and column rid.
type CellKey struct {
	RowRID    string
	ColumnRID string
}

// Summary carries the coverage statistics of a built matrix.
type Summary struct {
	TotalRows      int
	TotalColumns   int
	TotalPairs     int
	LinkedPairs    int
	LinkCount      int
	RowCoverage    float64
	ColumnCoverage float64
	PairCoverage   float64
	OrphanRows     []string
	OrphanColumns  []string
}

// Matrix is the immutable result of one build.
type Matrix struct {
	Direction Direction
	Rows      []AxisEntry
	Columns   []AxisEntry
	Cells     map[CellKey][]LinkView
	Summary   Summary
}

// resolveAxisDocuments expands an axis's explicit document list with every
// transitive descendant when requested, visiting candidates in sorted order
// and de-duplicating. An empty resolved set is a configuration error.
func resolveAxisDocuments(axis AxisConfig, docs map[string]*docstore.Document) ([]string, error) {
	var resolved []string
	inSet := map[string]bool{}
	for _, prefix := range axis.Documents {
		if _, ok := docs[prefix]; !ok {
			return nil, &docstore.DocumentNotFoundError{Prefix: prefix}
		}
		if inSet[prefix] {
			continue
		}
		inSet[prefix] = true
		resolved = append(resolved, prefix)
	}
	if axis.IncludeDescendants {
		all := make([]string, 0, len(docs))
		for prefix := range docs {
			all = append(all, prefix)
		}
		sort.Strings(all)
		for added := true; added; {
			added = false
			for _, prefix := range all {
				if inSet[prefix] {
					continue
				}
				if parent := docs[prefix].Parent; parent != "" && inSet[parent] {
					inSet[prefix] = true
					resolved = append(resolved, prefix)
					added = true
				}
			}
		}
	}
	if len(resolved) == 0 {
		return nil, &docstore.ValidationError{Reason: "matrix axis resolves to no documents"}
	}
	return resolved, nil
}

func filterByStatuses(reqs []*model.Requirement, statuses []string) []*model.Requirement {
	if len(statuses) == 0 {
		return reqs
	}
	allowed := map[string]bool{}
	for _, status := range statuses {
		allowed[status] = true
	}
	var out []*model.Requirement
	for _, req := range reqs {
		if allowed[string(req.Status)] {
			out = append(out, req)
		}
	}
	return out
}

func filterByTypes(reqs []*model.Requirement, types []string) []*model.Requirement {
	if len(types) == 0 {
		return reqs
	}
	allowed := map[string]bool{}
	for _, t := range types {
		allowed[t] = true
	}
	var out []*model.Requirement
	for _, req := range reqs {
		if allowed[string(req.Type)] {
			out = append(out, req)
		}
	}
	return out
}

// resolveAxis loads and filters one axis's requirements and pairs each with
// its owning document.
func resolveAxis(root string, axis AxisConfig, docs map[string]*docstore.Document) ([]AxisEntry, error) {
	prefixes, err := resolveAxisDocuments(axis, docs)
	if err != nil {
		return nil, err
	}
	reqs, err := docstore.LoadRequirements(root, prefixes, docs)
	if err != nil {
		return nil, err
	}
	reqs = filterByStatuses(reqs, axis.Statuses)
	reqs = filterByTypes(reqs, axis.Types)
	reqs = search.FilterByLabels(reqs, axis.LabelsAll, true)
	reqs = search.FilterByLabels(reqs, axis.LabelsAny, false)
	if axis.Query != "" {
		fields := axis.QueryFields
		if len(fields) == 0 {
			fields = search.DefaultFields()
		}
		reqs = search.SearchText(reqs, axis.Query, fields)
	}
	reqs = search.FilterTextFields(reqs, axis.FieldQueries)

	entries := make([]AxisEntry, 0, len(reqs))
	for _, req := range reqs {
		doc, ok := docs[req.DocPrefix]
		if !ok {
			return nil, &docstore.DocumentNotFoundError{Prefix: req.DocPrefix}
		}
		entries = append(entries, AxisEntry{Requirement: req, Document: doc})
	}
	return entries, nil
}

func linkView(source string, link *model.Link) LinkView {
	return LinkView{
		SourceRID:   source,
		TargetRID:   link.RID,
		Fingerprint: link.Fingerprint,
		Suspect:     link.Suspect,
		Revision:    link.Revision,
	}
}

func sortCell(views []LinkView) {
	sort.Slice(views, func(i, j int) bool {
		a, b := views[i], views[j]
		if a.SourceRID != b.SourceRID {
			return a.SourceRID < b.SourceRID
		}
		if a.TargetRID != b.TargetRID {
			return a.TargetRID < b.TargetRID
		}
		if a.Revision != b.Revision {
			return a.Revision < b.Revision
		}
		return !a.Suspect && b.Suspect
	})
}

// BuildTraceMatrix resolves both axes, collects the links between them per
// the configured direction, and computes coverage statistics. A nil docs
// map is loaded from root.
func BuildTraceMatrix(root string, cfg Config, docs map[string]*docstore.Document) (*Matrix, error) {
	if cfg.Direction == "" {
		cfg.Direction = ChildToParent
	}
	if cfg.Direction != ChildToParent && cfg.Direction != ParentToChild {
		return nil, &docstore.ValidationError{Reason: "unknown matrix direction: " + string(cfg.Direction)}
	}
	if docs == nil {
		loaded, err := docstore.LoadDocuments(root)
		if err != nil {
			return nil, err
		}
		docs = loaded
	}

	rows, err := resolveAxis(root, cfg.Rows, docs)
	if err != nil {
		return nil, err
	}
	columns, err := resolveAxis(root, cfg.Columns, docs)
	if err != nil {
		return nil, err
	}

	rowIndex := map[string]bool{}
	for _, entry := range rows {
		rowIndex[entry.Requirement.RID] = true
	}
	columnIndex := map[string]bool{}
	for _, entry := range columns {
		columnIndex[entry.Requirement.RID] = true
	}

	cells := map[CellKey][]LinkView{}
	switch cfg.Direction {
	case ChildToParent:
		for _, row := range rows {
			for _, link := range row.Requirement.Links {
				if columnIndex[link.RID] {
					key := CellKey{RowRID: row.Requirement.RID, ColumnRID: link.RID}
					cells[key] = append(cells[key], linkView(row.Requirement.RID, link))
				}
			}
		}
	case ParentToChild:
		for _, column := range columns {
			for _, link := range column.Requirement.Links {
				if rowIndex[link.RID] {
					key := CellKey{RowRID: link.RID, ColumnRID: column.Requirement.RID}
					cells[key] = append(cells[key], linkView(column.Requirement.RID, link))
				}
			}
		}
	}
	for key := range cells {
		sortCell(cells[key])
	}

	matrix := &Matrix{Direction: cfg.Direction, Rows: rows, Columns: columns, Cells: cells}
	matrix.Summary = summarize(matrix)
	return matrix, nil
}

func summarize(m *Matrix) Summary {
	s := Summary{
		TotalRows:    len(m.Rows),
		TotalColumns: len(m.Columns),
		TotalPairs:   len(m.Rows) * len(m.Columns),
		LinkedPairs:  len(m.Cells),
	}
	linkedRows := map[string]bool{}
	linkedColumns := map[string]bool{}
	for key, views := range m.Cells {
		s.LinkCount += len(views)
		linkedRows[key.RowRID] = true
		linkedColumns[key.ColumnRID] = true
	}
	if s.TotalRows > 0 {
		s.RowCoverage = float64(len(linkedRows)) / float64(s.TotalRows)
	}
	if s.TotalColumns > 0 {
		s.ColumnCoverage = float64(len(linkedColumns)) / float64(s.TotalColumns)
	}
	if s.TotalPairs > 0 {
		s.PairCoverage = float64(s.LinkedPairs) / float64(s.TotalPairs)
	}
	for _, entry := range m.Rows {
		if !linkedRows[entry.Requirement.RID] {
			s.OrphanRows = append(s.OrphanRows, entry.Requirement.RID)
		}
	}
	for _, entry := range m.Columns {
		if !linkedColumns[entry.Requirement.RID] {
			s.OrphanColumns = append(s.OrphanColumns, entry.Requirement.RID)
		}
	}
	return s
}
