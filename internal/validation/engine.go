package validation

import (
	"context"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"docgate/internal/catalog"
	dErrors "docgate/pkg/domain-errors"
)

// EvaluateDocument runs every rule of the document type against the input,
// disabled rules included. Rule verdicts appear in rulebook order.
func EvaluateDocument(doc catalog.DocumentType, input DocumentInput, now time.Time) DocumentVerdict {
	verdict := DocumentVerdict{
		DocumentCode: input.Code,
		Rules:        make([]RuleVerdict, 0, len(doc.Rules)),
		Valid:        true,
	}
	resolve := func(ref string) (string, bool) { return input.field(ref) }

	for _, rule := range doc.Rules {
		rv := evalRule(rule, resolve, now)
		verdict.Rules = append(verdict.Rules, rv)
		verdict.Total++
		if rv.Passed {
			verdict.Passed++
		}
		if rule.Enabled && rule.Required && !rv.Passed {
			verdict.Valid = false
		}
	}
	return verdict
}

// EvaluateCross runs the product's cross-document rules against the merged
// field map of all supplied documents.
func EvaluateCross(product catalog.Product, inputs []DocumentInput, now time.Time) CrossVerdict {
	verdict := CrossVerdict{
		Rules: make([]RuleVerdict, 0, len(product.CrossRules)),
		Valid: true,
	}

	byCode := make(map[string]DocumentInput, len(inputs))
	for _, in := range inputs {
		byCode[in.Code] = in
	}
	resolve := func(ref string) (string, bool) {
		code, field, ok := splitFieldRef(ref)
		if !ok {
			return "", false
		}
		doc, ok := byCode[code]
		if !ok {
			return "", false
		}
		return doc.field(field)
	}

	for _, rule := range product.CrossRules {
		rv := evalRule(rule, resolve, now)
		verdict.Rules = append(verdict.Rules, rv)
		verdict.Total++
		if rv.Passed {
			verdict.Passed++
		}
		if rule.Enabled && rule.Required && !rv.Passed {
			verdict.Valid = false
		}
	}
	return verdict
}

// EvaluateCase produces the full verdict for one case. Document evaluations
// run concurrently; the result keeps input order regardless.
func EvaluateCase(ctx context.Context, snap *catalog.Snapshot, productCode string, inputs []DocumentInput, now time.Time) (CaseVerdict, error) {
	product, ok := snap.Product(productCode)
	if !ok {
		return CaseVerdict{}, dErrors.Newf(dErrors.CodeNotFound, "unknown product %s", productCode)
	}

	verdict := CaseVerdict{
		Documents:   make([]DocumentVerdict, len(inputs)),
		EvaluatedAt: now,
	}

	g, _ := errgroup.WithContext(ctx)
	for i, input := range inputs {
		doc, ok := snap.Document(input.Code)
		if !ok {
			return CaseVerdict{}, dErrors.Newf(dErrors.CodeValidation, "unknown document type %s", input.Code)
		}
		g.Go(func() error {
			verdict.Documents[i] = EvaluateDocument(doc, input, now)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CaseVerdict{}, err
	}

	verdict.Cross = EvaluateCross(product, inputs, now)

	supplied := make(map[string]bool, len(inputs))
	for _, in := range inputs {
		supplied[in.Code] = true
	}
	for _, code := range product.RequiredDocs {
		if !supplied[code] {
			verdict.MissingRequiredDocs = append(verdict.MissingRequiredDocs, code)
		}
	}
	sort.Strings(verdict.MissingRequiredDocs)

	verdict.Valid = verdict.Cross.Valid && len(verdict.MissingRequiredDocs) == 0
	for _, dv := range verdict.Documents {
		if !dv.Valid {
			verdict.Valid = false
		}
	}
	return verdict, nil
}

func splitFieldRef(ref string) (code, field string, ok bool) {
	for i := 0; i < len(ref); i++ {
		if ref[i] == '.' {
			return ref[:i], ref[i+1:], i > 0 && i < len(ref)-1
		}
	}
	return "", "", false
}
