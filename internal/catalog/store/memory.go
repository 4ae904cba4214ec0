// Package store provides catalog persistence: an in-memory rulebook that
// owns the mutable flags plus a redis snapshot cache layered in front of it.
package store

import (
	"context"
	"sync"
	"time"

	"docgate/internal/catalog"
	dErrors "docgate/pkg/domain-errors"
)

// Memory is the authoritative in-memory rulebook. Mutations go through
// explicit per-flag commands rather than whole-document writes, so a rule
// toggle can never clobber a concurrent edit to a different rule.
type Memory struct {
	mu        sync.RWMutex
	documents []catalog.DocumentType
	products  []catalog.Product
	now       func() time.Time
}

// NewMemory returns a store pre-loaded with the given rulebook.
func NewMemory(documents []catalog.DocumentType, products []catalog.Product) *Memory {
	m := &Memory{now: time.Now}
	m.documents = append(m.documents, documents...)
	m.products = append(m.products, products...)
	return m
}

// Snapshot builds a point-in-time view holding only active document
// versions and active products. The returned snapshot shares no mutable
// state with the store.
func (m *Memory) Snapshot(ctx context.Context) (*catalog.Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := &catalog.Snapshot{
		Documents:   make(map[string]catalog.DocumentType),
		Products:    make(map[string]catalog.Product),
		GeneratedAt: m.now().UTC(),
	}
	for _, d := range m.documents {
		if !d.Active {
			continue
		}
		snap.Documents[d.Code] = copyDocument(d)
	}
	for _, p := range m.products {
		if !p.Active {
			continue
		}
		snap.Products[p.Code] = copyProduct(p)
	}
	return snap, nil
}

// AddDocumentVersion registers a new version of a document type. When the
// new version is active, any previously active version of the same code is
// superseded; cases already holding a snapshot keep the old version.
func (m *Memory) AddDocumentVersion(ctx context.Context, doc catalog.DocumentType) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, d := range m.documents {
		if d.ID == doc.ID {
			return dErrors.Newf(dErrors.CodeConflict, "document version %s already exists", doc.ID)
		}
	}
	if doc.Active {
		for i := range m.documents {
			if m.documents[i].Code == doc.Code {
				m.documents[i].Active = false
			}
		}
	}
	m.documents = append(m.documents, copyDocument(doc))
	return nil
}

// SetDocumentRuleEnabled flips the enabled flag of one rule on the active
// version of the document type.
func (m *Memory) SetDocumentRuleEnabled(ctx context.Context, docCode, ruleID string, enabled bool) error {
	return m.updateDocumentRule(docCode, ruleID, func(r *catalog.ValidationRule) {
		r.Enabled = enabled
	})
}

// SetDocumentRuleRequired flips the required flag of one rule on the active
// version of the document type.
func (m *Memory) SetDocumentRuleRequired(ctx context.Context, docCode, ruleID string, required bool) error {
	return m.updateDocumentRule(docCode, ruleID, func(r *catalog.ValidationRule) {
		r.Required = required
	})
}

// SetProductRuleEnabled flips the enabled flag of one cross-document rule.
func (m *Memory) SetProductRuleEnabled(ctx context.Context, productCode, ruleID string, enabled bool) error {
	return m.updateProductRule(productCode, ruleID, func(r *catalog.ValidationRule) {
		r.Enabled = enabled
	})
}

// SetProductRuleRequired flips the required flag of one cross-document rule.
func (m *Memory) SetProductRuleRequired(ctx context.Context, productCode, ruleID string, required bool) error {
	return m.updateProductRule(productCode, ruleID, func(r *catalog.ValidationRule) {
		r.Required = required
	})
}

// SetDocumentTypeActive activates or retires one document type version,
// addressed by version ID. Activating a version supersedes any sibling
// version of the same code, mirroring AddDocumentVersion.
func (m *Memory) SetDocumentTypeActive(ctx context.Context, docID string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.documents {
		if m.documents[i].ID != docID {
			continue
		}
		if active {
			for j := range m.documents {
				if m.documents[j].Code == m.documents[i].Code {
					m.documents[j].Active = false
				}
			}
		}
		m.documents[i].Active = active
		return nil
	}
	return dErrors.Newf(dErrors.CodeNotFound, "document version %s not found", docID)
}

// SetProductActive opens or closes a product for intake. Existing cases keep
// their snapshot and are unaffected.
func (m *Memory) SetProductActive(ctx context.Context, productCode string, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.products {
		if m.products[i].Code == productCode {
			m.products[i].Active = active
			return nil
		}
	}
	return dErrors.Newf(dErrors.CodeNotFound, "product %s not found", productCode)
}

// ListDocumentTypes returns every version, newest first within a code.
func (m *Memory) ListDocumentTypes(ctx context.Context) ([]catalog.DocumentType, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]catalog.DocumentType, 0, len(m.documents))
	for _, d := range m.documents {
		out = append(out, copyDocument(d))
	}
	return out, nil
}

// ListProducts returns every product, active or not.
func (m *Memory) ListProducts(ctx context.Context) ([]catalog.Product, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]catalog.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, copyProduct(p))
	}
	return out, nil
}

func (m *Memory) updateDocumentRule(docCode, ruleID string, apply func(*catalog.ValidationRule)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.documents {
		if m.documents[i].Code != docCode || !m.documents[i].Active {
			continue
		}
		for j := range m.documents[i].Rules {
			if m.documents[i].Rules[j].ID == ruleID {
				apply(&m.documents[i].Rules[j])
				return nil
			}
		}
		return dErrors.Newf(dErrors.CodeNotFound, "rule %s not found on document type %s", ruleID, docCode)
	}
	return dErrors.Newf(dErrors.CodeNotFound, "no active document type %s", docCode)
}

func (m *Memory) updateProductRule(productCode, ruleID string, apply func(*catalog.ValidationRule)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.products {
		if m.products[i].Code != productCode {
			continue
		}
		for j := range m.products[i].CrossRules {
			if m.products[i].CrossRules[j].ID == ruleID {
				apply(&m.products[i].CrossRules[j])
				return nil
			}
		}
		return dErrors.Newf(dErrors.CodeNotFound, "rule %s not found on product %s", ruleID, productCode)
	}
	return dErrors.Newf(dErrors.CodeNotFound, "product %s not found", productCode)
}

func copyDocument(d catalog.DocumentType) catalog.DocumentType {
	out := d
	out.Fields = append([]catalog.FieldSpec(nil), d.Fields...)
	out.Rules = copyRules(d.Rules)
	return out
}

func copyProduct(p catalog.Product) catalog.Product {
	out := p
	out.RequiredDocs = append([]string(nil), p.RequiredDocs...)
	out.OptionalDocs = append([]string(nil), p.OptionalDocs...)
	out.CrossRules = copyRules(p.CrossRules)
	return out
}

func copyRules(rules []catalog.ValidationRule) []catalog.ValidationRule {
	out := make([]catalog.ValidationRule, len(rules))
	for i, r := range rules {
		out[i] = r
		out[i].Fields = append([]string(nil), r.Fields...)
		if r.Params != nil {
			out[i].Params = make(map[string]string, len(r.Params))
			for k, v := range r.Params {
				out[i].Params[k] = v
			}
		}
	}
	return out
}
