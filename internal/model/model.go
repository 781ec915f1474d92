// Package model defines the requirement domain entities: the Requirement
// itself, its nested value objects (links, attachments), and the enumerated
// field vocabularies. Conversion to and from the on-disk JSON shape lives in
// convert.go; the content fingerprint used for suspect-link detection lives
// in fingerprint.go.
package model

import (
	"fmt"
	"sort"
)

// --- Requirement type enum ---

// RequirementType categorizes what kind of statement a requirement makes.
type RequirementType string

const (
	TypeRequirement RequirementType = "requirement"
	TypeConstraint  RequirementType = "constraint"
	TypeInterface   RequirementType = "interface"
)

var validTypes = map[RequirementType]bool{
	TypeRequirement: true,
	TypeConstraint:  true,
	TypeInterface:   true,
}

// ValidateType returns an error if the requirement type is not recognized.
func ValidateType(t RequirementType) error {
	if !validTypes[t] {
		return fmt.Errorf("invalid requirement type %q: must be one of: requirement, constraint, interface", t)
	}
	return nil
}

// --- Status enum ---

// Status tracks a requirement through its review lifecycle.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusInReview  Status = "in_review"
	StatusApproved  Status = "approved"
	StatusBaselined Status = "baselined"
	StatusRetired   Status = "retired"
)

var validStatuses = map[Status]bool{
	StatusDraft:     true,
	StatusInReview:  true,
	StatusApproved:  true,
	StatusBaselined: true,
	StatusRetired:   true,
}

// ValidateStatus returns an error if the status is not recognized.
func ValidateStatus(s Status) error {
	if !validStatuses[s] {
		return fmt.Errorf("invalid status %q: must be one of: draft, in_review, approved, baselined, retired", s)
	}
	return nil
}

// --- Priority enum ---

// Priority ranks the importance of a requirement.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var validPriorities = map[Priority]bool{
	PriorityLow:    true,
	PriorityMedium: true,
	PriorityHigh:   true,
}

// ValidatePriority returns an error if the priority is not recognized.
func ValidatePriority(p Priority) error {
	if !validPriorities[p] {
		return fmt.Errorf("invalid priority %q: must be one of: low, medium, high", p)
	}
	return nil
}

// --- Verification enum ---

// Verification names the method used to verify a requirement.
type Verification string

const (
	VerifyInspection    Verification = "inspection"
	VerifyAnalysis      Verification = "analysis"
	VerifyDemonstration Verification = "demonstration"
	VerifyTest          Verification = "test"
)

var validVerifications = map[Verification]bool{
	VerifyInspection:    true,
	VerifyAnalysis:      true,
	VerifyDemonstration: true,
	VerifyTest:          true,
}

// ValidateVerification returns an error if the verification method is not recognized.
func ValidateVerification(v Verification) error {
	if !validVerifications[v] {
		return fmt.Errorf("invalid verification %q: must be one of: inspection, analysis, demonstration, test", v)
	}
	return nil
}

// --- Value objects ---

// Attachment is a file referenced by a requirement, with an optional note.
type Attachment struct {
	Path string `json:"path"`
	Note string `json:"note"`
}

// Link points from a requirement to a target requirement in an ancestor
// document. Fingerprint records the target's content hash at link creation
// or last validation time; Suspect is recomputed on every load and becomes
// true when the stored fingerprint no longer matches the target — or when
// the target cannot be resolved at all.
//
// Revision is an optional field older stores recorded on link entries. It is
// preserved on rewrite and surfaces in traceability matrix views, but new
// links never set it.
type Link struct {
	RID         string
	Fingerprint string
	Suspect     bool
	Revision    int
}

// LinkFromAny builds a Link from a raw JSON value: either a bare rid string
// or an object with rid/fingerprint/suspect/revision keys.
func LinkFromAny(raw any) (*Link, error) {
	switch v := raw.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("link rid must not be empty")
		}
		return &Link{RID: v}, nil
	case map[string]any:
		rid, ok := v["rid"].(string)
		if !ok || rid == "" {
			return nil, fmt.Errorf("link entry missing rid")
		}
		link := &Link{RID: rid}
		switch fp := v["fingerprint"].(type) {
		case nil:
		case string:
			link.Fingerprint = fp
		default:
			return nil, fmt.Errorf("link fingerprint must be a string or null")
		}
		if suspect, ok := v["suspect"]; ok {
			b, ok := suspect.(bool)
			if !ok {
				return nil, fmt.Errorf("link suspect must be a boolean")
			}
			link.Suspect = b
		}
		if rev, ok := v["revision"]; ok && rev != nil {
			n, err := intFromAny(rev)
			if err != nil {
				return nil, fmt.Errorf("link revision must be an integer")
			}
			link.Revision = n
		}
		return link, nil
	default:
		return nil, fmt.Errorf("link entry must be a string or an object")
	}
}

// ToMap serializes the link for JSON storage. An empty fingerprint is
// emitted as null so the "never validated" state survives a round trip.
func (l *Link) ToMap() map[string]any {
	m := map[string]any{
		"rid":     l.RID,
		"suspect": l.Suspect,
	}
	if l.Fingerprint != "" {
		m["fingerprint"] = l.Fingerprint
	} else {
		m["fingerprint"] = nil
	}
	if l.Revision > 0 {
		m["revision"] = l.Revision
	}
	return m
}

// --- Requirement ---

// Requirement is a single requirement record. DocPrefix and RID are derived
// from the file location and never serialized.
type Requirement struct {
	ID           int
	Title        string
	Statement    string
	Type         RequirementType
	Status       Status
	Owner        string
	Priority     Priority
	Source       string
	Verification Verification
	Acceptance   string
	Conditions   string
	Rationale    string
	Assumptions  string
	Notes        string
	ModifiedAt   string
	ApprovedAt   string
	Revision     int
	Labels       []string
	Attachments  []Attachment
	Links        []*Link

	DocPrefix string
	RID       string
}

// HasLabel reports whether the requirement carries the given label.
func (r *Requirement) HasLabel(label string) bool {
	for _, l := range r.Labels {
		if l == label {
			return true
		}
	}
	return false
}

// SortLinks orders the requirement's links lexicographically by target rid.
// Link order carries no meaning, but a deterministic order keeps stored
// files diff-friendly.
func (r *Requirement) SortLinks() {
	sort.Slice(r.Links, func(i, j int) bool { return r.Links[i].RID < r.Links[j].RID })
}
