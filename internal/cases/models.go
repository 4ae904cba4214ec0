// Package cases owns the review case lifecycle: intake, evaluation results,
// reviewer corrections, and the guarded status transitions to submission,
// supplement, or rejection. Every mutation goes through a versioned store
// write, so concurrent reviewers cannot silently overwrite each other.
package cases

import (
	"strings"
	"time"

	"docgate/internal/validation"
)

// Status is the case's position in the review workflow. Submitted and
// Rejected are terminal.
type Status string

const (
	StatusPendingReview     Status = "pending_review"
	StatusPendingSupplement Status = "pending_supplement"
	StatusSubmitted         Status = "submitted"
	StatusRejected          Status = "rejected"
)

// Terminal reports whether no further transitions are allowed.
func (s Status) Terminal() bool {
	return s == StatusSubmitted || s == StatusRejected
}

// CaseType distinguishes first submissions from supplement rounds.
type CaseType string

const (
	TypeNew        CaseType = "new"
	TypeSupplement CaseType = "supplement"
)

// OCRField is one extracted field plus any reviewer correction. Corrected
// mirrors ManualOverride != nil and is kept explicit for the wire format.
type OCRField struct {
	Name           string  `json:"name"`
	OCRValue       string  `json:"ocr_value"`
	ManualOverride *string `json:"manual_override,omitempty"`
	Corrected      bool    `json:"corrected"`
}

// EffectiveValue returns the override when present, otherwise the OCR value.
func (f OCRField) EffectiveValue() string {
	if f.ManualOverride != nil {
		return *f.ManualOverride
	}
	return f.OCRValue
}

// PageImage is one scanned page of a document. Invalid pages are
// re-requested from the applicant during a supplement round.
type PageImage struct {
	ID       string `json:"id"`
	FileName string `json:"file_name"`
	Invalid  bool   `json:"invalid"`
}

// Document is one submitted document with its pages and extracted fields.
// Invariant: NeedsSupplement implies a non-empty SupplementNote, and
// clearing the flag clears the note.
type Document struct {
	ID              string      `json:"id"`
	TypeCode        string      `json:"type_code"`
	Pages           []PageImage `json:"pages"`
	Fields          []OCRField  `json:"fields"`
	NeedsSupplement bool        `json:"needs_supplement"`
	SupplementNote  string      `json:"supplement_note,omitempty"`
}

func (d Document) field(name string) (OCRField, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return OCRField{}, false
}

// HistoryEntry is one line of the case's audit trail as shown to reviewers.
// Transitions append exactly one entry in the same store write that changes
// the status.
type HistoryEntry struct {
	At        time.Time `json:"at"`
	ActorID   string    `json:"actor_id"`
	ActorName string    `json:"actor_name"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
	Result    string    `json:"result,omitempty"`
}

// Case is the aggregate root. Version backs optimistic concurrency: every
// store write carries the version the writer read, and a mismatch fails the
// write instead of clobbering a concurrent change.
type Case struct {
	ID            string                  `json:"id"`
	Type          CaseType                `json:"type"`
	ProductCode   string                  `json:"product_code"`
	ApplicantName string                  `json:"applicant_name"`
	ApplicantID   string                  `json:"applicant_id"`
	Status        Status                  `json:"status"`
	HandlerCode   string                  `json:"handler_code"`
	HandlerName   string                  `json:"handler_name"`
	Documents     []Document              `json:"documents"`
	Verdict       *validation.CaseVerdict `json:"verdict,omitempty"`
	History       []HistoryEntry          `json:"history"`
	SubmitDate    time.Time               `json:"submit_date"`
	UpdateDate    time.Time               `json:"update_date"`
	Version       int64                   `json:"version"`
}

// ProcessingDuration reports how long the case has been, or was, in review.
// Terminal cases measure intake to their closing update; open cases measure
// intake to now.
func (c *Case) ProcessingDuration(now time.Time) time.Duration {
	if c.Status.Terminal() {
		return c.UpdateDate.Sub(c.SubmitDate)
	}
	return now.Sub(c.SubmitDate)
}

// document returns a pointer into Documents for in-place edits.
func (c *Case) document(docID string) (*Document, bool) {
	for i := range c.Documents {
		if c.Documents[i].ID == docID {
			return &c.Documents[i], true
		}
	}
	return nil, false
}

// hasSupplementTarget reports whether at least one document is flagged for
// supplement with a note, so the applicant always learns what to fix.
func (c *Case) hasSupplementTarget() bool {
	for _, d := range c.Documents {
		if d.NeedsSupplement && d.SupplementNote != "" {
			return true
		}
	}
	return false
}

// supplementSummary lists the flagged documents and their notes for the
// history entry of a supplement request.
func (c *Case) supplementSummary() string {
	var sb strings.Builder
	for _, d := range c.Documents {
		if !d.NeedsSupplement {
			continue
		}
		if sb.Len() > 0 {
			sb.WriteString("; ")
		}
		sb.WriteString(d.TypeCode)
		sb.WriteString(": ")
		sb.WriteString(d.SupplementNote)
	}
	return sb.String()
}

// validationInputs converts the case documents into engine inputs.
func (c *Case) validationInputs() []validation.DocumentInput {
	inputs := make([]validation.DocumentInput, 0, len(c.Documents))
	for _, d := range c.Documents {
		in := validation.DocumentInput{Code: d.TypeCode}
		for _, f := range d.Fields {
			in.Fields = append(in.Fields, validation.Field{
				Name:           f.Name,
				OCRValue:       f.OCRValue,
				ManualOverride: f.ManualOverride,
			})
		}
		inputs = append(inputs, in)
	}
	return inputs
}

// appendHistory records one trail entry and bumps the update date.
func (c *Case) appendHistory(at time.Time, actorID, actorName, action, detail, result string) {
	c.History = append(c.History, HistoryEntry{
		At:        at,
		ActorID:   actorID,
		ActorName: actorName,
		Action:    action,
		Detail:    detail,
		Result:    result,
	})
	c.UpdateDate = at
}

// Clone deep-copies the case so store implementations can hand out
// detached values.
func (c *Case) Clone() *Case {
	out := *c
	out.Documents = make([]Document, len(c.Documents))
	for i, d := range c.Documents {
		out.Documents[i] = d
		out.Documents[i].Pages = append([]PageImage(nil), d.Pages...)
		out.Documents[i].Fields = make([]OCRField, len(d.Fields))
		for j, f := range d.Fields {
			out.Documents[i].Fields[j] = f
			if f.ManualOverride != nil {
				v := *f.ManualOverride
				out.Documents[i].Fields[j].ManualOverride = &v
			}
		}
	}
	out.History = append([]HistoryEntry(nil), c.History...)
	if c.Verdict != nil {
		v := *c.Verdict
		out.Verdict = &v
	}
	return &out
}
