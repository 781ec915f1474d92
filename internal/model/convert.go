package model

import (
	"fmt"
	"math"
)

// requiredFields must be present in every stored item payload.
var requiredFields = []string{
	"id", "title", "statement", "type", "status",
	"owner", "priority", "source", "verification",
}

// KnownFields is the set of field names a requirement payload may carry.
// Patch operations reject paths outside this set.
var KnownFields = map[string]bool{
	"id": true, "title": true, "statement": true, "type": true,
	"status": true, "owner": true, "priority": true, "source": true,
	"verification": true, "acceptance": true, "conditions": true,
	"rationale": true, "assumptions": true, "notes": true,
	"modified_at": true, "approved_at": true, "revision": true,
	"labels": true, "attachments": true, "links": true,
}

// IntValue coerces a raw JSON value to an int. Accepts native ints and
// whole-number floats, which is what encoding/json hands back for numbers.
func IntValue(raw any) (int, error) {
	return intFromAny(raw)
}

func intFromAny(raw any) (int, error) {
	switch v := raw.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("not an integer: %v", v)
		}
		return int(v), nil
	default:
		return 0, fmt.Errorf("not an integer: %v", raw)
	}
}

func stringField(data map[string]any, key string) (string, error) {
	raw, ok := data[key]
	if !ok || raw == nil {
		return "", nil
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("%s must be a string", key)
	}
	return s, nil
}

// RequirementFromMap builds a Requirement from a raw JSON payload. Missing
// optional fields fall back to defaults; malformed fields are errors. The
// legacy "text" and "tags" keys are rejected outright — stores carrying them
// predate the current format and need migration, not silent acceptance.
func RequirementFromMap(data map[string]any, docPrefix, rid string) (*Requirement, error) {
	for _, key := range requiredFields {
		if _, ok := data[key]; !ok {
			return nil, fmt.Errorf("missing required field: %s", key)
		}
	}
	for _, key := range []string{"text", "tags"} {
		if _, ok := data[key]; ok {
			return nil, fmt.Errorf("unsupported field: %s", key)
		}
	}

	id, err := intFromAny(data["id"])
	if err != nil {
		return nil, fmt.Errorf("id must be an integer")
	}

	req := &Requirement{
		ID:        id,
		DocPrefix: docPrefix,
		RID:       rid,
	}
	for key, dst := range map[string]*string{
		"title":       &req.Title,
		"statement":   &req.Statement,
		"owner":       &req.Owner,
		"source":      &req.Source,
		"acceptance":  &req.Acceptance,
		"conditions":  &req.Conditions,
		"rationale":   &req.Rationale,
		"assumptions": &req.Assumptions,
		"notes":       &req.Notes,
		"modified_at": &req.ModifiedAt,
		"approved_at": &req.ApprovedAt,
	} {
		value, err := stringField(data, key)
		if err != nil {
			return nil, err
		}
		*dst = value
	}

	req.Type = RequirementType(fmt.Sprintf("%v", data["type"]))
	if err := ValidateType(req.Type); err != nil {
		return nil, err
	}
	req.Status = Status(fmt.Sprintf("%v", data["status"]))
	if err := ValidateStatus(req.Status); err != nil {
		return nil, err
	}
	req.Priority = Priority(fmt.Sprintf("%v", data["priority"]))
	if err := ValidatePriority(req.Priority); err != nil {
		return nil, err
	}
	req.Verification = Verification(fmt.Sprintf("%v", data["verification"]))
	if err := ValidateVerification(req.Verification); err != nil {
		return nil, err
	}

	revision := 1
	if raw, ok := data["revision"]; ok && raw != nil {
		revision, err = intFromAny(raw)
		if err != nil {
			return nil, fmt.Errorf("revision must be an integer")
		}
	}
	if revision <= 0 {
		return nil, fmt.Errorf("revision must be positive")
	}
	req.Revision = revision

	if raw, ok := data["labels"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("labels must be a list")
		}
		for _, entry := range list {
			label, ok := entry.(string)
			if !ok {
				return nil, fmt.Errorf("labels must be a list of strings")
			}
			req.Labels = append(req.Labels, label)
		}
	}

	if raw, ok := data["attachments"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("attachments must be a list")
		}
		for _, entry := range list {
			m, ok := entry.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("attachment entries must be objects")
			}
			path, err := stringField(m, "path")
			if err != nil {
				return nil, err
			}
			note, err := stringField(m, "note")
			if err != nil {
				return nil, err
			}
			req.Attachments = append(req.Attachments, Attachment{Path: path, Note: note})
		}
	}

	if raw, ok := data["links"]; ok && raw != nil {
		list, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("links must be a list")
		}
		for i, entry := range list {
			link, err := LinkFromAny(entry)
			if err != nil {
				return nil, fmt.Errorf("links[%d]: %w", i, err)
			}
			req.Links = append(req.Links, link)
		}
	}

	return req, nil
}

// RequirementToMap converts a requirement into the plain map persisted as
// JSON. Empty optional fields are omitted; enum fields serialize to their
// string values; doc prefix and rid are derived from the file location and
// never stored.
func RequirementToMap(req *Requirement) map[string]any {
	data := map[string]any{
		"id":           req.ID,
		"title":        req.Title,
		"statement":    req.Statement,
		"type":         string(req.Type),
		"status":       string(req.Status),
		"owner":        req.Owner,
		"priority":     string(req.Priority),
		"source":       req.Source,
		"verification": string(req.Verification),
		"revision":     req.Revision,
	}
	for key, value := range map[string]string{
		"acceptance":  req.Acceptance,
		"conditions":  req.Conditions,
		"rationale":   req.Rationale,
		"assumptions": req.Assumptions,
		"notes":       req.Notes,
		"modified_at": req.ModifiedAt,
		"approved_at": req.ApprovedAt,
	} {
		if value != "" {
			data[key] = value
		}
	}
	if len(req.Labels) > 0 {
		labels := make([]any, len(req.Labels))
		for i, l := range req.Labels {
			labels[i] = l
		}
		data["labels"] = labels
	}
	if len(req.Attachments) > 0 {
		attachments := make([]any, len(req.Attachments))
		for i, a := range req.Attachments {
			attachments[i] = map[string]any{"path": a.Path, "note": a.Note}
		}
		data["attachments"] = attachments
	}
	if len(req.Links) > 0 {
		links := make([]any, len(req.Links))
		for i, l := range req.Links {
			links[i] = l.ToMap()
		}
		data["links"] = links
	}
	return data
}
