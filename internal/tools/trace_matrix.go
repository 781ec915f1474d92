package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/reqwire/reqwire/internal/service"
	"github.com/reqwire/reqwire/internal/trace"
)

// TraceMatrixTool handles the req_trace_matrix MCP tool.
type TraceMatrixTool struct {
	svc *service.Service
}

// NewTraceMatrixTool creates a TraceMatrixTool.
func NewTraceMatrixTool(svc *service.Service) *TraceMatrixTool {
	return &TraceMatrixTool{svc: svc}
}

// axisArg is the JSON shape of one axis configuration argument.
type axisArg struct {
	Documents          []string          `json:"documents"`
	IncludeDescendants bool              `json:"include_descendants"`
	Statuses           []string          `json:"statuses"`
	Types              []string          `json:"types"`
	LabelsAll          []string          `json:"labels_all"`
	LabelsAny          []string          `json:"labels_any"`
	Query              string            `json:"query"`
	QueryFields        []string          `json:"query_fields"`
	FieldQueries       map[string]string `json:"field_queries"`
}

func (a axisArg) toConfig() trace.AxisConfig {
	return trace.AxisConfig{
		Documents:          a.Documents,
		IncludeDescendants: a.IncludeDescendants,
		Statuses:           a.Statuses,
		Types:              a.Types,
		LabelsAll:          a.LabelsAll,
		LabelsAny:          a.LabelsAny,
		Query:              a.Query,
		QueryFields:        a.QueryFields,
		FieldQueries:       a.FieldQueries,
	}
}

func axisArgFrom(req mcp.CallToolRequest, key string) (trace.AxisConfig, error) {
	raw := req.GetString(key, "")
	if raw == "" {
		return trace.AxisConfig{}, fmt.Errorf("'%s' is required", key)
	}
	var arg axisArg
	if err := json.Unmarshal([]byte(raw), &arg); err != nil {
		return trace.AxisConfig{}, fmt.Errorf("'%s' must be a JSON axis object: %w", key, err)
	}
	return arg.toConfig(), nil
}

// Definition returns the MCP tool definition for req_trace_matrix.
func (t *TraceMatrixTool) Definition() mcp.Tool {
	return mcp.NewTool("req_trace_matrix",
		mcp.WithDescription(
			"Build a traceability matrix between two requirement selections "+
				"and report coverage: linked pairs, row/column coverage "+
				"ratios, and orphans on each axis. Each axis is a JSON "+
				"object selecting documents and filters.",
		),
		mcp.WithString("rows",
			mcp.Required(),
			mcp.Description(`Row axis config. Example: {"documents":["HLR"],"include_descendants":true,"statuses":["approved"]}`),
		),
		mcp.WithString("columns",
			mcp.Required(),
			mcp.Description(`Column axis config. Example: {"documents":["SYS"]}`),
		),
		mcp.WithString("direction",
			mcp.Description("child_to_parent (default; rows carry the links) or parent_to_child (columns carry the links)"),
		),
	)
}

// Handle processes the req_trace_matrix tool call.
func (t *TraceMatrixTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	rows, err := axisArgFrom(req, "rows")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	columns, err := axisArgFrom(req, "columns")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matrix, err := t.svc.BuildTraceMatrix(trace.Config{
		Rows:      rows,
		Columns:   columns,
		Direction: trace.Direction(req.GetString("direction", "")),
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(matrixJSON(matrix)), nil
}

func axisEntriesJSON(entries []trace.AxisEntry) []any {
	out := make([]any, len(entries))
	for i, entry := range entries {
		out[i] = map[string]any{
			"rid":      entry.Requirement.RID,
			"title":    entry.Requirement.Title,
			"status":   string(entry.Requirement.Status),
			"document": entry.Document.Prefix,
		}
	}
	return out
}

func matrixJSON(m *trace.Matrix) map[string]any {
	keys := make([]trace.CellKey, 0, len(m.Cells))
	for key := range m.Cells {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].RowRID != keys[j].RowRID {
			return keys[i].RowRID < keys[j].RowRID
		}
		return keys[i].ColumnRID < keys[j].ColumnRID
	})
	cells := make([]any, 0, len(keys))
	for _, key := range keys {
		links := make([]any, 0, len(m.Cells[key]))
		for _, view := range m.Cells[key] {
			link := map[string]any{
				"source_rid": view.SourceRID,
				"target_rid": view.TargetRID,
				"suspect":    view.Suspect,
			}
			if view.Revision > 0 {
				link["revision"] = view.Revision
			}
			links = append(links, link)
		}
		cells = append(cells, map[string]any{
			"row":    key.RowRID,
			"column": key.ColumnRID,
			"links":  links,
		})
	}
	return map[string]any{
		"direction": string(m.Direction),
		"rows":      axisEntriesJSON(m.Rows),
		"columns":   axisEntriesJSON(m.Columns),
		"cells":     cells,
		"summary": map[string]any{
			"total_rows":      m.Summary.TotalRows,
			"total_columns":   m.Summary.TotalColumns,
			"total_pairs":     m.Summary.TotalPairs,
			"linked_pairs":    m.Summary.LinkedPairs,
			"link_count":      m.Summary.LinkCount,
			"row_coverage":    m.Summary.RowCoverage,
			"column_coverage": m.Summary.ColumnCoverage,
			"pair_coverage":   m.Summary.PairCoverage,
			"orphan_rows":     m.Summary.OrphanRows,
			"orphan_columns":  m.Summary.OrphanColumns,
		},
	}
}
