// Package summary derives totals and breakdowns from a set of records. All
// functions are pure.
package summary

import (
	"sort"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Summary holds the headline figures of a record set.
type Summary struct {
	TotalIncome      decimal.Decimal `json:"totalIncome"`
	TotalExpenses    decimal.Decimal `json:"totalExpenses"`
	Balance          decimal.Decimal `json:"balance"`
	TransactionCount int             `json:"transactionCount"`
}

// Bucket is one entry of a grouped breakdown.
type Bucket struct {
	Label      string          `json:"label"`
	Value      decimal.Decimal `json:"value"`
	Percentage decimal.Decimal `json:"percentage"`
}

// Summarize totals positive and negative amounts. Balance is the signed sum.
func Summarize(records []domain.TransactionRecord) Summary {
	var income, expenses decimal.Decimal
	for _, r := range records {
		switch r.Amount.Sign() {
		case 1:
			income = income.Add(r.Amount)
		case -1:
			expenses = expenses.Add(r.Amount)
		}
	}
	return Summary{
		TotalIncome:      income,
		TotalExpenses:    expenses.Abs(),
		Balance:          income.Add(expenses),
		TransactionCount: len(records),
	}
}

// ByDate sums signed amounts per date, oldest first. Percentages are
// relative to the sum of absolute per-date totals.
func ByDate(records []domain.TransactionRecord) []Bucket {
	sums := make(map[string]decimal.Decimal)
	var order []string
	for _, r := range records {
		if _, ok := sums[r.Date]; !ok {
			order = append(order, r.Date)
		}
		sums[r.Date] = sums[r.Date].Add(r.Amount)
	}

	buckets := make([]Bucket, 0, len(order))
	var total decimal.Decimal
	for _, date := range order {
		total = total.Add(sums[date].Abs())
		buckets = append(buckets, Bucket{Label: date, Value: sums[date]})
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return dateKey(buckets[i].Label) < dateKey(buckets[j].Label)
	})
	for i := range buckets {
		buckets[i].Percentage = percentage(buckets[i].Value.Abs(), total)
	}
	return buckets
}

// ExpensesByCategory sums the absolute value of negative amounts per
// category, largest first. Percentages are relative to total expenses.
func ExpensesByCategory(records []domain.TransactionRecord) []Bucket {
	sums := make(map[string]decimal.Decimal)
	var order []string
	var total decimal.Decimal
	for _, r := range records {
		if !r.Amount.IsNegative() {
			continue
		}
		if _, ok := sums[r.Category]; !ok {
			order = append(order, r.Category)
		}
		sums[r.Category] = sums[r.Category].Add(r.Amount.Abs())
		total = total.Add(r.Amount.Abs())
	}

	buckets := make([]Bucket, 0, len(order))
	for _, category := range order {
		buckets = append(buckets, Bucket{
			Label:      category,
			Value:      sums[category],
			Percentage: percentage(sums[category], total),
		})
	}
	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Value.GreaterThan(buckets[j].Value)
	})
	return buckets
}

// percentage returns part/total*100 rounded to two places, zero when total
// is zero.
func percentage(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(hundred).Round(2)
}

// dateKey turns DD/MM/YYYY into a sortable YYYYMMDD. Other shapes sort
// before every valid date.
func dateKey(date string) string {
	if len(date) != 10 {
		return ""
	}
	return date[6:] + date[3:5] + date[:2]
}
