package cases

import (
	"strings"
	"time"
)

// SortField selects the ordering of a case query.
type SortField string

const (
	SortBySubmitDate SortField = "submit_date"
	SortByUpdateDate SortField = "update_date"
)

// Filter narrows a case query. Zero-valued members match everything, so an
// empty filter lists the whole queue.
type Filter struct {
	SubmitFrom  *time.Time
	SubmitTo    *time.Time
	Statuses    []Status
	Types       []CaseType
	HandlerCode string
	// Keyword matches the case ID, applicant name, or applicant ID,
	// case-insensitively.
	Keyword    string
	SortBy     SortField
	Descending bool
}

// Matches reports whether the case satisfies every set criterion. Store
// implementations that cannot push a predicate down use it directly.
func (f Filter) Matches(c *Case) bool {
	if f.SubmitFrom != nil && c.SubmitDate.Before(*f.SubmitFrom) {
		return false
	}
	if f.SubmitTo != nil && c.SubmitDate.After(*f.SubmitTo) {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, c.Status) {
		return false
	}
	if len(f.Types) > 0 && !containsType(f.Types, c.Type) {
		return false
	}
	if f.HandlerCode != "" && c.HandlerCode != f.HandlerCode {
		return false
	}
	if f.Keyword != "" && !matchesKeyword(c, f.Keyword) {
		return false
	}
	return true
}

// Less orders two cases per the filter's sort settings. Ties fall back to
// the case ID so query results are stable.
func (f Filter) Less(a, b *Case) bool {
	var at, bt time.Time
	switch f.SortBy {
	case SortByUpdateDate:
		at, bt = a.UpdateDate, b.UpdateDate
	default:
		at, bt = a.SubmitDate, b.SubmitDate
	}
	if !at.Equal(bt) {
		if f.Descending {
			return at.After(bt)
		}
		return at.Before(bt)
	}
	return a.ID < b.ID
}

func containsStatus(list []Status, s Status) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func containsType(list []CaseType, t CaseType) bool {
	for _, v := range list {
		if v == t {
			return true
		}
	}
	return false
}

func matchesKeyword(c *Case, keyword string) bool {
	k := strings.ToLower(keyword)
	return strings.Contains(strings.ToLower(c.ID), k) ||
		strings.Contains(strings.ToLower(c.ApplicantName), k) ||
		strings.Contains(strings.ToLower(c.ApplicantID), k)
}
