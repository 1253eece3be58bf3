package data

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	TrendUp      = "up"
	TrendDown    = "down"
	TrendNeutral = "neutral"
)

// Summary holds the headline figures of the dashboard.
type Summary struct {
	TotalIncome            decimal.Decimal `json:"total_income"`
	TotalExpenses          decimal.Decimal `json:"total_expenses"`
	TotalRefunds           decimal.Decimal `json:"total_refunds"`
	NetSavings             decimal.Decimal `json:"net_savings"`
	MonthlyAverageIncome   decimal.Decimal `json:"monthly_average_income"`
	MonthlyAverageExpenses decimal.Decimal `json:"monthly_average_expenses"`
	PeriodMonths           int             `json:"period_months"`
	ExpenseCount           int             `json:"expense_count"`
	IncomeCount            int             `json:"income_count"`
	RefundCount            int             `json:"refund_count"`
}

type Trend struct {
	Direction  string          `json:"direction"`
	Percentage decimal.Decimal `json:"percentage"`
}

// TransactionFilter narrows a transaction list. Empty fields match everything.
type TransactionFilter struct {
	Month    string
	Category string
	Search   string
}

func Summarize(c Collections, periodMonths int) Summary {
	income := Total(c.Income)
	expenses := Total(c.Expenses)
	return Summary{
		TotalIncome:            income,
		TotalExpenses:          expenses,
		TotalRefunds:           Total(c.Refunds),
		NetSavings:             income.Sub(expenses),
		MonthlyAverageIncome:   DivideOrZero(income, periodMonths),
		MonthlyAverageExpenses: DivideOrZero(expenses, periodMonths),
		PeriodMonths:           periodMonths,
		ExpenseCount:           len(c.Expenses),
		IncomeCount:            len(c.Income),
		RefundCount:            len(c.Refunds),
	}
}

// CalculateTrend compares current to previous. A zero previous value is neutral.
func CalculateTrend(current, previous decimal.Decimal) Trend {
	if previous.IsZero() {
		return Trend{Direction: TrendNeutral, Percentage: decimal.Zero}
	}
	change := current.Sub(previous).Div(previous).Mul(hundred)
	trend := Trend{Direction: TrendNeutral, Percentage: change.Abs().Round(1)}
	switch change.Sign() {
	case 1:
		trend.Direction = TrendUp
	case -1:
		trend.Direction = TrendDown
	}
	return trend
}

// CalculatePercentage returns value as a share of total, rounded to one decimal.
func CalculatePercentage(value, total decimal.Decimal) decimal.Decimal {
	if !total.IsPositive() {
		return decimal.Zero
	}
	return value.Div(total).Mul(hundred).Round(1)
}

func FilterTransactions(txs []Transaction, filter TransactionFilter) []Transaction {
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	filtered := []Transaction{}
	for _, tx := range txs {
		if filter.Month != "" && MonthKey(tx.Date) != filter.Month {
			continue
		}
		if filter.Category != "" && tx.Category != filter.Category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(tx.Description), search) {
			continue
		}
		filtered = append(filtered, tx)
	}
	return filtered
}

// FormatCurrency renders an amount as euros with two decimals, e.g. €1234.50.
func FormatCurrency(amount decimal.Decimal) string {
	if amount.IsNegative() {
		return "-€" + amount.Abs().StringFixed(2)
	}
	return "€" + amount.StringFixed(2)
}

// MonthLabel turns a "YYYY-MM" key into "January 2024". Unknown keys are returned as is.
func MonthLabel(monthKey string) string {
	t, err := time.Parse("2006-01", monthKey)
	if err != nil {
		return monthKey
	}
	return t.Format("January 2006")
}
