package summary

import (
	"sort"
	"strings"

	"github.com/dvloznov/finance-dashboard/internal/domain"
)

// Kind selects records by amount sign.
type Kind string

const (
	KindAll     Kind = "all"
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

// Filter narrows a record set. Empty fields match everything.
type Filter struct {
	Query string
	Kind  Kind
	Month string // MM/YYYY
}

// Months returns the distinct MM/YYYY values present, newest first.
func Months(records []domain.TransactionRecord) []string {
	seen := make(map[string]struct{})
	months := []string{}
	for _, r := range records {
		m := r.Month()
		if len(m) != 7 {
			continue
		}
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool {
		return monthKey(months[i]) > monthKey(months[j])
	})
	return months
}

// FilterMonth keeps records dated in month. An empty month or "all" keeps
// everything.
func FilterMonth(records []domain.TransactionRecord, month string) []domain.TransactionRecord {
	if month == "" || month == string(KindAll) {
		return records
	}
	out := []domain.TransactionRecord{}
	for _, r := range records {
		if r.Month() == month {
			out = append(out, r)
		}
	}
	return out
}

// Apply returns matching records, newest date first. The query matches the
// description or the category, ignoring case.
func (f Filter) Apply(records []domain.TransactionRecord) []domain.TransactionRecord {
	query := strings.ToLower(strings.TrimSpace(f.Query))

	out := []domain.TransactionRecord{}
	for _, r := range FilterMonth(records, f.Month) {
		if query != "" &&
			!strings.Contains(strings.ToLower(r.Description), query) &&
			!strings.Contains(strings.ToLower(r.Category), query) {
			continue
		}
		switch f.Kind {
		case KindIncome:
			if !r.Amount.IsPositive() {
				continue
			}
		case KindExpense:
			if !r.Amount.IsNegative() {
				continue
			}
		}
		out = append(out, r)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return dateKey(out[i].Date) > dateKey(out[j].Date)
	})
	return out
}

func monthKey(month string) string {
	return month[3:] + month[:2]
}
