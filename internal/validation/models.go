// Package validation evaluates case documents against the catalog rulebook
// and produces verdicts. Evaluation is pure: the same snapshot, inputs, and
// clock always yield the same verdict, so re-running it on an unchanged case
// is safe and idempotent.
package validation

import (
	"time"

	"docgate/internal/catalog"
)

// Field is one normalized field of a submitted document. ManualOverride is
// set when a reviewer corrected the OCR value; the override wins wherever a
// rule reads the field.
type Field struct {
	Name           string  `json:"name"`
	OCRValue       string  `json:"ocr_value"`
	ManualOverride *string `json:"manual_override,omitempty"`
}

// EffectiveValue returns the manual override when present, otherwise the
// OCR value. An override set to the empty string still wins.
func (f Field) EffectiveValue() string {
	if f.ManualOverride != nil {
		return *f.ManualOverride
	}
	return f.OCRValue
}

// DocumentInput is one submitted document keyed by its document type code.
type DocumentInput struct {
	Code   string  `json:"code"`
	Fields []Field `json:"fields"`
}

func (d DocumentInput) field(name string) (string, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f.EffectiveValue(), true
		}
	}
	return "", false
}

// RuleVerdict records the outcome of one rule, enabled or not. Disabled
// rules are evaluated and reported so the review console can show what a
// toggle would change, but they never gate Valid. Confidence is a 0-100
// score of how much information the rule had; it is independent of Passed
// and never acts as a threshold.
type RuleVerdict struct {
	RuleID     string           `json:"rule_id"`
	Name       string           `json:"name"`
	Kind       catalog.RuleKind `json:"kind"`
	Field      string           `json:"field,omitempty"`
	Enabled    bool             `json:"enabled"`
	Required   bool             `json:"required"`
	Passed     bool             `json:"passed"`
	Confidence float64          `json:"confidence"`
	Detail     string           `json:"detail,omitempty"`
}

// DocumentVerdict is the per-document outcome. Passed and Total count every
// evaluated rule, disabled included, matching the review console's pass
// count; Valid means every enabled required rule passed.
type DocumentVerdict struct {
	DocumentCode string        `json:"document_code"`
	Rules        []RuleVerdict `json:"rules"`
	Passed       int           `json:"passed"`
	Total        int           `json:"total"`
	Valid        bool          `json:"valid"`
}

// CrossVerdict is the outcome of a product's cross-document rules.
type CrossVerdict struct {
	Rules  []RuleVerdict `json:"rules"`
	Passed int           `json:"passed"`
	Total  int           `json:"total"`
	Valid  bool          `json:"valid"`
}

// CaseVerdict aggregates everything: per-document verdicts in input order,
// the cross-document verdict, and required documents the case has not
// supplied. Valid requires every document verdict valid, the cross verdict
// valid, and no missing required documents.
type CaseVerdict struct {
	Documents           []DocumentVerdict `json:"documents"`
	Cross               CrossVerdict      `json:"cross"`
	MissingRequiredDocs []string          `json:"missing_required_docs,omitempty"`
	Valid               bool              `json:"valid"`
	EvaluatedAt         time.Time         `json:"evaluated_at"`
}
