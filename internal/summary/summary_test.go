package summary

import (
	"testing"

	"github.com/dvloznov/finance-dashboard/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func rec(date, desc, category, amount string) domain.TransactionRecord {
	return domain.TransactionRecord{Date: date, Description: desc, Category: category, Amount: d(amount)}
}

var sample = []domain.TransactionRecord{
	rec("01/03/2025", "Pix recebido", "Income", "1000.00"),
	rec("01/03/2025", "Mercado", "Food", "-150.25"),
	rec("02/03/2025", "Netflix", "Leisure", "-39.90"),
	rec("15/02/2025", "Mercado", "Food", "-49.75"),
	rec("15/02/2025", "Ajuste", "Other", "0"),
	rec("10/01/2024", "Vendas", "Income", "200"),
}

func TestSummarize(t *testing.T) {
	s := Summarize(sample)

	assert.True(t, s.TotalIncome.Equal(d("1200")), s.TotalIncome.String())
	assert.True(t, s.TotalExpenses.Equal(d("239.90")), s.TotalExpenses.String())
	assert.True(t, s.Balance.Equal(d("960.10")), s.Balance.String())
	assert.Equal(t, 6, s.TransactionCount)
}

func TestSummarize_BalanceIsSignedSum(t *testing.T) {
	sets := [][]domain.TransactionRecord{
		nil,
		sample,
		{rec("01/01/2025", "a", "x", "-0.01")},
		{rec("01/01/2025", "a", "x", "0.1"), rec("01/01/2025", "b", "x", "0.2"), rec("01/01/2025", "c", "x", "-0.3")},
	}
	for _, set := range sets {
		s := Summarize(set)
		var sum decimal.Decimal
		for _, r := range set {
			sum = sum.Add(r.Amount)
		}
		assert.True(t, s.TotalIncome.Sub(s.TotalExpenses).Equal(s.Balance))
		assert.True(t, s.Balance.Equal(sum))
	}
}

func TestByDate(t *testing.T) {
	buckets := ByDate(sample)
	require.Len(t, buckets, 4)

	assert.Equal(t, []string{"10/01/2024", "15/02/2025", "01/03/2025", "02/03/2025"},
		[]string{buckets[0].Label, buckets[1].Label, buckets[2].Label, buckets[3].Label})
	assert.True(t, buckets[1].Value.Equal(d("-49.75")))
	assert.True(t, buckets[2].Value.Equal(d("849.75")))

	// 200 + 49.75 + 849.75 + 39.90 = 1139.40
	assert.True(t, buckets[0].Percentage.Equal(d("17.55")), buckets[0].Percentage.String())
}

func TestExpensesByCategory(t *testing.T) {
	buckets := ExpensesByCategory(sample)
	require.Len(t, buckets, 2)

	assert.Equal(t, "Food", buckets[0].Label)
	assert.True(t, buckets[0].Value.Equal(d("200")))
	assert.True(t, buckets[0].Percentage.Equal(d("83.37")), buckets[0].Percentage.String())
	assert.Equal(t, "Leisure", buckets[1].Label)
	assert.True(t, buckets[1].Value.Equal(d("39.90")))
}

func TestExpensesByCategory_NoExpenses(t *testing.T) {
	buckets := ExpensesByCategory([]domain.TransactionRecord{rec("01/01/2025", "Vendas", "Income", "10")})
	assert.NotNil(t, buckets)
	assert.Empty(t, buckets)
}

func TestMonths(t *testing.T) {
	records := append([]domain.TransactionRecord{rec("bad", "x", "x", "1")}, sample...)
	assert.Equal(t, []string{"03/2025", "02/2025", "01/2024"}, Months(records))
	assert.Empty(t, Months(nil))
}

func TestFilterMonth(t *testing.T) {
	assert.Len(t, FilterMonth(sample, "03/2025"), 3)
	assert.Len(t, FilterMonth(sample, "all"), len(sample))
	assert.Len(t, FilterMonth(sample, ""), len(sample))
	assert.Empty(t, FilterMonth(sample, "12/1999"))
}

func TestFilter_Apply(t *testing.T) {
	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all newest first", Filter{}, []string{"Netflix", "Pix recebido", "Mercado", "Mercado", "Ajuste", "Vendas"}},
		{"query on description", Filter{Query: "MERCADO"}, []string{"Mercado", "Mercado"}},
		{"query on category", Filter{Query: "leis"}, []string{"Netflix"}},
		{"income", Filter{Kind: KindIncome}, []string{"Pix recebido", "Vendas"}},
		{"expense in month", Filter{Kind: KindExpense, Month: "03/2025"}, []string{"Netflix", "Mercado"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, r := range tt.filter.Apply(sample) {
				got = append(got, r.Description)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildReport(t *testing.T) {
	r := BuildReport(sample, "03/2025")

	assert.Equal(t, "03/2025", r.Month)
	assert.Equal(t, 3, r.Summary.TransactionCount)
	require.Len(t, r.Descriptions, 3)
	assert.Equal(t, "Pix recebido", r.Descriptions[0].Name)
	assert.True(t, r.Descriptions[0].IsIncome)
	require.Len(t, r.TopExpenses, 2)
	assert.Equal(t, "Mercado", r.TopExpenses[0].Description)
	// (1000 - 190.15) / 1000
	assert.True(t, r.SavingsRate.Equal(d("81")), r.SavingsRate.String())
}

func TestBuildReport_AllMonths(t *testing.T) {
	r := BuildReport(sample, "")

	assert.Equal(t, "all", r.Month)
	require.Len(t, r.Descriptions, 5)
	mercado := r.Descriptions[1]
	assert.Equal(t, "Mercado", mercado.Name)
	assert.Equal(t, 2, mercado.Count)
	assert.True(t, mercado.Amount.Equal(d("-200")))
}

func TestBuildReport_TopExpensesLimit(t *testing.T) {
	var records []domain.TransactionRecord
	for i := 1; i <= 8; i++ {
		records = append(records, rec("01/01/2025", "", "Other", decimal.NewFromInt(int64(-i)).String()))
	}
	r := BuildReport(records, "all")

	require.Len(t, r.TopExpenses, 5)
	assert.True(t, r.TopExpenses[0].Amount.Equal(d("-8")))
	assert.Equal(t, noDescription, r.Descriptions[0].Name)
	assert.True(t, r.SavingsRate.IsZero())
}

func TestFormatBRL(t *testing.T) {
	assert.Equal(t, "R$ 1.234,56", FormatBRL(d("1234.56")))
	assert.Equal(t, "-R$ 10,00", FormatBRL(d("-10")))
	assert.Equal(t, "R$ 0,00", FormatBRL(decimal.Zero))
}
