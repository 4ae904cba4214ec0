package validation

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"docgate/internal/catalog"
)

// dateLayout is the wire format OCR normalizes dates to.
const dateLayout = "2006-01-02"

// Confidence grades for rule verdicts, on a 0-100 scale. Pass/fail is a
// separate boolean; confidence says how much information the rule had.
const (
	confidenceNone    = 0   // rule could not run at all (bad params, unknown kind)
	confidenceMissing = 50  // verdict rests on a missing or unparseable input
	confidencePartial = 75  // verdict rests on a single corroborating source
	confidenceFull    = 100 // verdict computed from complete inputs
)

// lookup resolves a field reference to its effective value. Document rules
// resolve bare names against their own document; cross rules resolve
// "DOCCODE.field" references against the whole case.
type lookup func(ref string) (string, bool)

// ruleFunc evaluates one rule. It returns pass/fail, a confidence grade,
// and a human-readable detail for the review console. It must not panic on
// malformed params or missing fields; those are failures with a detail.
type ruleFunc func(rule catalog.ValidationRule, resolve lookup, now time.Time) (bool, float64, string)

var ruleFuncs = map[catalog.RuleKind]ruleFunc{
	catalog.RuleFieldPresent:     evalFieldPresent,
	catalog.RuleFieldEquals:      evalFieldEquals,
	catalog.RuleFieldMatches:     evalFieldMatches,
	catalog.RuleNumericMin:       evalNumericMin,
	catalog.RuleDateWithinDays:   evalDateWithinDays,
	catalog.RuleFieldsConsistent: evalFieldsConsistent,
}

// evalRule runs one rule and produces its verdict. Unknown kinds fail with
// confidence zero instead of erroring, so a rulebook entry the engine does
// not understand can never sneak a case through.
func evalRule(rule catalog.ValidationRule, resolve lookup, now time.Time) RuleVerdict {
	verdict := RuleVerdict{
		RuleID:   rule.ID,
		Name:     rule.Name,
		Kind:     rule.Kind,
		Field:    rule.Field,
		Enabled:  rule.Enabled,
		Required: rule.Required,
	}

	fn, ok := ruleFuncs[rule.Kind]
	if !ok {
		verdict.Detail = fmt.Sprintf("unknown rule kind %q", rule.Kind)
		return verdict
	}

	verdict.Passed, verdict.Confidence, verdict.Detail = fn(rule, resolve, now)
	return verdict
}

func evalFieldPresent(rule catalog.ValidationRule, resolve lookup, _ time.Time) (bool, float64, string) {
	value, ok := resolve(rule.Field)
	if !ok || strings.TrimSpace(value) == "" {
		return false, confidenceFull, fmt.Sprintf("field %s is empty", rule.Field)
	}
	return true, confidenceFull, ""
}

func evalFieldEquals(rule catalog.ValidationRule, resolve lookup, _ time.Time) (bool, float64, string) {
	want, ok := rule.Params["value"]
	if !ok {
		return false, confidenceNone, "rule has no value param"
	}
	got, ok := resolve(rule.Field)
	if !ok {
		return false, confidenceMissing, fmt.Sprintf("field %s is missing", rule.Field)
	}
	if got != want {
		return false, confidenceFull, fmt.Sprintf("field %s is %q, want %q", rule.Field, got, want)
	}
	return true, confidenceFull, ""
}

func evalFieldMatches(rule catalog.ValidationRule, resolve lookup, _ time.Time) (bool, float64, string) {
	pattern, ok := rule.Params["pattern"]
	if !ok {
		return false, confidenceNone, "rule has no pattern param"
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, confidenceNone, fmt.Sprintf("invalid pattern: %v", err)
	}
	value, ok := resolve(rule.Field)
	if !ok {
		return false, confidenceMissing, fmt.Sprintf("field %s is missing", rule.Field)
	}
	if !re.MatchString(value) {
		return false, confidenceFull, fmt.Sprintf("field %s does not match %s", rule.Field, pattern)
	}
	return true, confidenceFull, ""
}

func evalNumericMin(rule catalog.ValidationRule, resolve lookup, _ time.Time) (bool, float64, string) {
	min, err := strconv.ParseFloat(rule.Params["min"], 64)
	if err != nil {
		return false, confidenceNone, "rule has no numeric min param"
	}
	raw, ok := resolve(rule.Field)
	if !ok {
		return false, confidenceMissing, fmt.Sprintf("field %s is missing", rule.Field)
	}
	value, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
	if err != nil {
		return false, confidenceMissing, fmt.Sprintf("field %s is not numeric: %q", rule.Field, raw)
	}
	if value < min {
		return false, confidenceFull, fmt.Sprintf("field %s is %v, below minimum %v", rule.Field, value, min)
	}
	return true, confidenceFull, ""
}

func evalDateWithinDays(rule catalog.ValidationRule, resolve lookup, now time.Time) (bool, float64, string) {
	days, err := strconv.Atoi(rule.Params["days"])
	if err != nil {
		return false, confidenceNone, "rule has no days param"
	}
	raw, ok := resolve(rule.Field)
	if !ok {
		return false, confidenceMissing, fmt.Sprintf("field %s is missing", rule.Field)
	}
	date, err := time.Parse(dateLayout, raw)
	if err != nil {
		return false, confidenceMissing, fmt.Sprintf("field %s is not a date: %q", rule.Field, raw)
	}
	if date.After(now) {
		return false, confidenceFull, fmt.Sprintf("field %s is in the future", rule.Field)
	}
	if now.Sub(date) > time.Duration(days)*24*time.Hour {
		return false, confidenceFull, fmt.Sprintf("field %s is older than %d days", rule.Field, days)
	}
	return true, confidenceFull, ""
}

func evalFieldsConsistent(rule catalog.ValidationRule, resolve lookup, _ time.Time) (bool, float64, string) {
	if len(rule.Fields) == 0 {
		return false, confidenceNone, "rule lists no fields"
	}

	// Fields on documents the case did not supply are skipped; consistency
	// is judged across what is actually present.
	var first string
	var firstRef string
	seen := 0
	for _, ref := range rule.Fields {
		value, ok := resolve(ref)
		if !ok {
			continue
		}
		seen++
		if seen == 1 {
			first, firstRef = value, ref
			continue
		}
		if value != first {
			return false, confidenceFull, fmt.Sprintf("%s and %s disagree", firstRef, ref)
		}
	}
	switch seen {
	case 0:
		return false, confidenceMissing, "none of the referenced fields are present"
	case 1:
		return true, confidencePartial, ""
	default:
		return true, confidenceFull, ""
	}
}
