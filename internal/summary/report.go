package summary

import (
	"sort"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/shopspring/decimal"
)

// topExpensesLimit is how many single expenses a report lists.
const topExpensesLimit = 5

// noDescription labels records with an empty description.
const noDescription = "Sem descrição"

// DescriptionStat aggregates records sharing a description.
type DescriptionStat struct {
	Name     string          `json:"name"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
	IsIncome bool            `json:"isIncome"`
}

// Report is the month report shown on the reports page.
type Report struct {
	Month        string                     `json:"month"`
	Summary      Summary                    `json:"summary"`
	Descriptions []DescriptionStat          `json:"descriptions"`
	Categories   []Bucket                   `json:"categories"`
	TopExpenses  []domain.TransactionRecord `json:"topExpenses"`
	SavingsRate  decimal.Decimal            `json:"savingsRate"`
}

// BuildReport computes the report for month ("" or "all" for every record).
func BuildReport(records []domain.TransactionRecord, month string) Report {
	if month == "" {
		month = string(KindAll)
	}
	selected := FilterMonth(records, month)
	sum := Summarize(selected)

	return Report{
		Month:        month,
		Summary:      sum,
		Descriptions: describe(selected),
		Categories:   ExpensesByCategory(selected),
		TopExpenses:  topExpenses(selected, topExpensesLimit),
		SavingsRate:  SavingsRate(sum),
	}
}

// SavingsRate is balance over income as a percentage with one decimal,
// zero without income.
func SavingsRate(s Summary) decimal.Decimal {
	if !s.TotalIncome.IsPositive() {
		return decimal.Zero
	}
	return s.Balance.Div(s.TotalIncome).Mul(hundred).Round(1)
}

// describe groups by description. The income flag comes from the first
// record of each group. Largest absolute amount first.
func describe(records []domain.TransactionRecord) []DescriptionStat {
	index := make(map[string]int)
	stats := []DescriptionStat{}
	for _, r := range records {
		name := r.Description
		if name == "" {
			name = noDescription
		}
		i, ok := index[name]
		if !ok {
			i = len(stats)
			index[name] = i
			stats = append(stats, DescriptionStat{Name: name, IsIncome: r.Amount.IsPositive()})
		}
		stats[i].Amount = stats[i].Amount.Add(r.Amount)
		stats[i].Count++
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].Amount.Abs().GreaterThan(stats[j].Amount.Abs())
	})
	return stats
}

// topExpenses returns the n most negative records.
func topExpenses(records []domain.TransactionRecord, n int) []domain.TransactionRecord {
	out := []domain.TransactionRecord{}
	for _, r := range records {
		if r.Amount.IsNegative() {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Amount.LessThan(out[j].Amount)
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}
