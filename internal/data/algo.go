package data

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultPeriodMonths is the span of data the feed is assumed to cover when
// turning totals into monthly figures.
const DefaultPeriodMonths = 3

// Savings scenario rates applied to discretionary spending.
var (
	ConservativeSavingsRate = decimal.NewFromFloat(0.15)
	ModerateSavingsRate     = decimal.NewFromFloat(0.25)
	AggressiveSavingsRate   = decimal.NewFromFloat(0.35)
)

// Anomaly thresholds: the latest month is flagged once it exceeds the
// historical average by these ratios.
var (
	DefaultOverallAnomalyRatio  = decimal.NewFromFloat(1.3)
	DefaultCategoryAnomalyRatio = decimal.NewFromFloat(1.5)
)

// DefaultDiscretionaryCategories are the non-essential expense categories.
var DefaultDiscretionaryCategories = []string{"Entertainment", "Shopping", "Food & Groceries"}

var hundred = decimal.NewFromInt(100)

// CategoryAggregate is the total and count of the transactions in one category.
type CategoryAggregate struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

// MonthlyAggregate is the expense and income total for a "YYYY-MM" month.
type MonthlyAggregate struct {
	MonthKey string          `json:"month_key"`
	Expenses decimal.Decimal `json:"expenses"`
	Income   decimal.Decimal `json:"income"`
}

// SavingsScenarios are the monthly savings reachable by cutting discretionary
// spending at the conservative, moderate and aggressive rates.
type SavingsScenarios struct {
	Conservative decimal.Decimal `json:"conservative"`
	Moderate     decimal.Decimal `json:"moderate"`
	Aggressive   decimal.Decimal `json:"aggressive"`
}

// Progress describes how far a goal is from its target.
// Percent is not capped and Remaining turns negative once the goal is overshot.
type Progress struct {
	Percent    decimal.Decimal `json:"percent"`
	Remaining  decimal.Decimal `json:"remaining"`
	MonthsLeft int             `json:"months_left"`
	Reached    bool            `json:"reached"`
}

// Anomaly records a month whose spending ran above its historical average.
type Anomaly struct {
	Scope             string          `json:"scope"`
	Category          string          `json:"category,omitempty"`
	MonthKey          string          `json:"month_key"`
	Current           decimal.Decimal `json:"current"`
	HistoricalAverage decimal.Decimal `json:"historical_average"`
	Ratio             decimal.Decimal `json:"threshold_ratio"`
}

const (
	AnomalyScopeOverall  = "overall"
	AnomalyScopeCategory = "category"
)

// MonthKey returns the UTC "YYYY-MM" bucket of t.
func MonthKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// Total sums the amounts of txs.
func Total(txs []Transaction) decimal.Decimal {
	total := decimal.Zero
	for _, tx := range txs {
		total = total.Add(tx.Amount)
	}
	return total
}

// DivideOrZero divides by a month or item count, returning zero when n is not positive.
func DivideOrZero(value decimal.Decimal, n int) decimal.Decimal {
	if n <= 0 {
		return decimal.Zero
	}
	return value.Div(decimal.NewFromInt(int64(n)))
}

// AggregateByCategory groups txs by category, sorted by total descending.
// Equal totals keep the order in which their categories first appeared.
func AggregateByCategory(txs []Transaction) []CategoryAggregate {
	aggregates := []CategoryAggregate{}
	position := make(map[string]int)
	for _, tx := range txs {
		i, ok := position[tx.Category]
		if !ok {
			i = len(aggregates)
			position[tx.Category] = i
			aggregates = append(aggregates, CategoryAggregate{Category: tx.Category, Total: decimal.Zero})
		}
		aggregates[i].Total = aggregates[i].Total.Add(tx.Amount)
		aggregates[i].Count++
	}
	sort.SliceStable(aggregates, func(a, b int) bool {
		return aggregates[a].Total.GreaterThan(aggregates[b].Total)
	})
	return aggregates
}

// AggregateByMonth buckets expenses and income by month key, ascending. A month
// seen on one side only reports zero for the other.
func AggregateByMonth(expenses, income []Transaction) []MonthlyAggregate {
	months := make(map[string]*MonthlyAggregate)
	bucket := func(key string) *MonthlyAggregate {
		m, ok := months[key]
		if !ok {
			m = &MonthlyAggregate{MonthKey: key, Expenses: decimal.Zero, Income: decimal.Zero}
			months[key] = m
		}
		return m
	}
	for _, tx := range expenses {
		m := bucket(MonthKey(tx.Date))
		m.Expenses = m.Expenses.Add(tx.Amount)
	}
	for _, tx := range income {
		m := bucket(MonthKey(tx.Date))
		m.Income = m.Income.Add(tx.Amount)
	}

	aggregates := make([]MonthlyAggregate, 0, len(months))
	for _, m := range months {
		aggregates = append(aggregates, *m)
	}
	sort.Slice(aggregates, func(a, b int) bool {
		return aggregates[a].MonthKey < aggregates[b].MonthKey
	})
	return aggregates
}

// DiscretionarySpending is the monthly spend across categories over periodMonths.
func DiscretionarySpending(expenses []Transaction, categories []string, periodMonths int) decimal.Decimal {
	wanted := make(map[string]struct{}, len(categories))
	for _, c := range categories {
		wanted[c] = struct{}{}
	}
	total := decimal.Zero
	for _, tx := range expenses {
		if _, ok := wanted[tx.Category]; ok {
			total = total.Add(tx.Amount)
		}
	}
	return DivideOrZero(total, periodMonths)
}

func CalculateSavingsScenarios(discretionary decimal.Decimal) SavingsScenarios {
	return SavingsScenarios{
		Conservative: discretionary.Mul(ConservativeSavingsRate),
		Moderate:     discretionary.Mul(ModerateSavingsRate),
		Aggressive:   discretionary.Mul(AggressiveSavingsRate),
	}
}

// GoalProgress computes percent, remaining amount and the months left until
// the deadline, counting both the current and the deadline month.
func GoalProgress(goal SavingsGoal, now time.Time) Progress {
	progress := Progress{
		Percent:   decimal.Zero,
		Remaining: goal.TargetAmount.Sub(goal.CurrentAmount),
	}
	if goal.TargetAmount.IsPositive() {
		progress.Percent = goal.CurrentAmount.Div(goal.TargetAmount).Mul(hundred)
	}
	progress.Reached = progress.Percent.GreaterThanOrEqual(hundred)
	if deadline, err := ParseDate(goal.Deadline); err == nil {
		progress.MonthsLeft = max(MonthsBetween(now, deadline), 0)
	}
	return progress
}

// MonthsBetween counts calendar months from start to end inclusive.
func MonthsBetween(start, end time.Time) int {
	return (end.Year()-start.Year())*12 + int(end.Month()) - int(start.Month()) + 1
}

// DetectAnomaly reports whether current exceeds historicalAverage by more than ratio.
func DetectAnomaly(current, historicalAverage, ratio decimal.Decimal) bool {
	return current.GreaterThan(historicalAverage.Mul(ratio))
}

// DetectSpendingAnomalies compares the latest month against the average of the
// earlier months, overall and per category. It needs at least two months.
func DetectSpendingAnomalies(expenses []Transaction, overallRatio, categoryRatio decimal.Decimal) []Anomaly {
	anomalies := []Anomaly{}
	months := AggregateByMonth(expenses, nil)
	if len(months) < 2 {
		return anomalies
	}
	latest := months[len(months)-1]
	history := months[:len(months)-1]

	historyTotal := decimal.Zero
	for _, m := range history {
		historyTotal = historyTotal.Add(m.Expenses)
	}
	historyAverage := DivideOrZero(historyTotal, len(history))
	if DetectAnomaly(latest.Expenses, historyAverage, overallRatio) {
		anomalies = append(anomalies, Anomaly{
			Scope:             AnomalyScopeOverall,
			MonthKey:          latest.MonthKey,
			Current:           latest.Expenses,
			HistoricalAverage: historyAverage,
			Ratio:             overallRatio,
		})
	}

	var current, previous []Transaction
	for _, tx := range expenses {
		if MonthKey(tx.Date) == latest.MonthKey {
			current = append(current, tx)
		} else {
			previous = append(previous, tx)
		}
	}
	previousByCategory := make(map[string]decimal.Decimal)
	for _, agg := range AggregateByCategory(previous) {
		previousByCategory[agg.Category] = agg.Total
	}
	for _, agg := range AggregateByCategory(current) {
		average := DivideOrZero(previousByCategory[agg.Category], len(history))
		if DetectAnomaly(agg.Total, average, categoryRatio) {
			anomalies = append(anomalies, Anomaly{
				Scope:             AnomalyScopeCategory,
				Category:          agg.Category,
				MonthKey:          latest.MonthKey,
				Current:           agg.Total,
				HistoricalAverage: average,
				Ratio:             categoryRatio,
			})
		}
	}
	return anomalies
}
