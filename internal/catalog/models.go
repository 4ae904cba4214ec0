// Package catalog holds the review rulebook: document types with their
// normalized fields and validation rules, and products with their document
// requirements and cross-document rules. Case evaluation always runs against
// a point-in-time Snapshot so that a rule toggle mid-evaluation cannot mix
// two rulebook versions inside one verdict.
package catalog

import (
	"context"
	"time"
)

// RuleKind selects the check a validation rule performs. The validation
// engine keeps a registry keyed by kind; an unknown kind fails the rule
// rather than the evaluation.
type RuleKind string

const (
	// RuleFieldPresent passes when the effective value is non-empty.
	RuleFieldPresent RuleKind = "field_present"
	// RuleFieldEquals passes when the effective value equals Params["value"].
	RuleFieldEquals RuleKind = "field_equals"
	// RuleFieldMatches passes when the effective value matches the regular
	// expression in Params["pattern"].
	RuleFieldMatches RuleKind = "field_matches"
	// RuleNumericMin passes when the effective value parses as a number
	// greater than or equal to Params["min"].
	RuleNumericMin RuleKind = "numeric_min"
	// RuleDateWithinDays passes when the effective value parses as a date
	// no older than Params["days"] days before the evaluation time.
	RuleDateWithinDays RuleKind = "date_within_days"
	// RuleFieldsConsistent passes when every field listed in Fields carries
	// the same effective value. Used for cross-document rules, where each
	// entry is qualified as "DOCCODE.field".
	RuleFieldsConsistent RuleKind = "fields_consistent"
)

// ValidationRule is one check against a document field (or, for cross rules,
// a set of qualified fields). Enabled and Required are the only mutable
// flags: a disabled rule is still evaluated and reported but never affects
// the verdict; an enabled optional rule contributes to the pass count but
// not to validity.
type ValidationRule struct {
	ID       string            `json:"id"`
	Name     string            `json:"name"`
	Kind     RuleKind          `json:"kind"`
	Field    string            `json:"field,omitempty"`
	Fields   []string          `json:"fields,omitempty"`
	Params   map[string]string `json:"params,omitempty"`
	Enabled  bool              `json:"enabled"`
	Required bool              `json:"required"`
}

// FieldSpec describes one normalized field a document type yields after OCR.
// Level grades how reliably OCR extracts the field: 1 is machine-readable,
// 3 usually needs a human correction.
type FieldSpec struct {
	Name  string `json:"name"`
	Label string `json:"label"`
	Level int    `json:"level"`
}

// DocumentType is one version of a document definition. Versions of the same
// Code are distinguished by VersionDate; at most one version per code is
// active, and in-flight cases keep evaluating against the version they were
// created with.
type DocumentType struct {
	ID          string           `json:"id"`
	Code        string           `json:"code"`
	Name        string           `json:"name"`
	VersionDate time.Time        `json:"version_date"`
	Active      bool             `json:"active"`
	Fields      []FieldSpec      `json:"fields"`
	Rules       []ValidationRule `json:"rules"`
}

// Rule returns the rule with the given ID, if present.
func (d DocumentType) Rule(ruleID string) (ValidationRule, bool) {
	for _, r := range d.Rules {
		if r.ID == ruleID {
			return r, true
		}
	}
	return ValidationRule{}, false
}

// Product describes what an application of this product must supply and
// which cross-document rules apply to it.
type Product struct {
	ID           string           `json:"id"`
	Code         string           `json:"code"`
	Name         string           `json:"name"`
	Kind         string           `json:"kind"`
	Active       bool             `json:"active"`
	RequiredDocs []string         `json:"required_docs"`
	OptionalDocs []string         `json:"optional_docs"`
	CrossRules   []ValidationRule `json:"cross_rules"`
}

// Snapshot is a point-in-time view of the catalog. Documents and Products
// are keyed by code and hold only active versions. Snapshots are immutable
// once built; callers must not mutate them.
type Snapshot struct {
	Documents   map[string]DocumentType `json:"documents"`
	Products    map[string]Product      `json:"products"`
	GeneratedAt time.Time               `json:"generated_at"`
}

// Document returns the active document type for the code, if any.
func (s *Snapshot) Document(code string) (DocumentType, bool) {
	d, ok := s.Documents[code]
	return d, ok
}

// Product returns the active product for the code, if any.
func (s *Snapshot) Product(code string) (Product, bool) {
	p, ok := s.Products[code]
	return p, ok
}

// Source supplies catalog snapshots. The memory store and the redis cache
// both satisfy it, so evaluation code does not care whether a snapshot was
// cached.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}
