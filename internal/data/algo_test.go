package data

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func day(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func expense(category, amount string, date time.Time) Transaction {
	return Transaction{Description: category + " purchase", Category: category, Amount: d(amount), Date: date}
}

func TestAggregateByCategory(t *testing.T) {
	txs := []Transaction{
		expense("Food", "10", day(2024, 1, 2)),
		expense("Rent", "500", day(2024, 1, 3)),
		expense("Food", "20", day(2024, 1, 4)),
		expense("Fun", "30", day(2024, 1, 5)),
	}
	tests := []struct {
		name string
		txs  []Transaction
		want []CategoryAggregate
	}{
		{
			name: "empty",
			txs:  nil,
			want: []CategoryAggregate{},
		},
		{
			name: "sorted by total with ties in first seen order",
			txs:  txs,
			want: []CategoryAggregate{
				{Category: "Rent", Total: d("500"), Count: 1},
				{Category: "Food", Total: d("30"), Count: 2},
				{Category: "Fun", Total: d("30"), Count: 1},
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateByCategory(tt.txs)
			if len(got) != len(tt.want) {
				t.Fatalf("AggregateByCategory() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i].Category != tt.want[i].Category || got[i].Count != tt.want[i].Count || !got[i].Total.Equal(tt.want[i].Total) {
					t.Errorf("AggregateByCategory()[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAggregateByMonth(t *testing.T) {
	expenses := []Transaction{
		expense("Food", "10", day(2024, 1, 10)),
		expense("Food", "20", day(2024, 2, 10)),
	}
	income := []Transaction{
		expense("Income", "100", day(2024, 2, 1)),
		expense("Income", "50", day(2024, 3, 1)),
	}
	want := []MonthlyAggregate{
		{MonthKey: "2024-01", Expenses: d("10"), Income: d("0")},
		{MonthKey: "2024-02", Expenses: d("20"), Income: d("100")},
		{MonthKey: "2024-03", Expenses: d("0"), Income: d("50")},
	}
	got := AggregateByMonth(expenses, income)
	if len(got) != len(want) {
		t.Fatalf("AggregateByMonth() = %v, want %v", got, want)
	}
	for i := range got {
		if got[i].MonthKey != want[i].MonthKey || !got[i].Expenses.Equal(want[i].Expenses) || !got[i].Income.Equal(want[i].Income) {
			t.Errorf("AggregateByMonth()[%d] = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDivideOrZero(t *testing.T) {
	tests := []struct {
		name  string
		value decimal.Decimal
		n     int
		want  decimal.Decimal
	}{
		{name: "divides", value: d("9"), n: 3, want: d("3")},
		{name: "zero divisor", value: d("9"), n: 0, want: decimal.Zero},
		{name: "negative divisor", value: d("9"), n: -2, want: decimal.Zero},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DivideOrZero(tt.value, tt.n); !got.Equal(tt.want) {
				t.Errorf("DivideOrZero() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDiscretionarySpendingAndScenarios(t *testing.T) {
	expenses := []Transaction{
		expense("Entertainment", "30", day(2024, 1, 1)),
		expense("Shopping", "60", day(2024, 2, 1)),
		expense("Rent", "900", day(2024, 3, 1)),
	}
	discretionary := DiscretionarySpending(expenses, DefaultDiscretionaryCategories, 3)
	if !discretionary.Equal(d("30")) {
		t.Fatalf("DiscretionarySpending() = %v, want 30", discretionary)
	}

	got := CalculateSavingsScenarios(d("100"))
	if !got.Conservative.Equal(d("15")) || !got.Moderate.Equal(d("25")) || !got.Aggressive.Equal(d("35")) {
		t.Errorf("CalculateSavingsScenarios() = %+v, want 15/25/35", got)
	}
}

func TestGoalProgress(t *testing.T) {
	now := day(2024, 1, 15)
	tests := []struct {
		name string
		goal SavingsGoal
		want Progress
	}{
		{
			name: "in progress",
			goal: SavingsGoal{TargetAmount: d("1000"), CurrentAmount: d("250"), Deadline: "2024-06-30"},
			want: Progress{Percent: d("25"), Remaining: d("750"), MonthsLeft: 6},
		},
		{
			name: "overshot",
			goal: SavingsGoal{TargetAmount: d("1000"), CurrentAmount: d("1200"), Deadline: "2024-01-31"},
			want: Progress{Percent: d("120"), Remaining: d("-200"), MonthsLeft: 1, Reached: true},
		},
		{
			name: "deadline passed",
			goal: SavingsGoal{TargetAmount: d("1000"), CurrentAmount: d("0"), Deadline: "2023-01-01"},
			want: Progress{Percent: d("0"), Remaining: d("1000"), MonthsLeft: 0},
		},
		{
			name: "zero target",
			goal: SavingsGoal{TargetAmount: d("0"), CurrentAmount: d("10"), Deadline: "2024-03-01"},
			want: Progress{Percent: d("0"), Remaining: d("-10"), MonthsLeft: 3},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := GoalProgress(tt.goal, now)
			if !got.Percent.Equal(tt.want.Percent) || !got.Remaining.Equal(tt.want.Remaining) ||
				got.MonthsLeft != tt.want.MonthsLeft || got.Reached != tt.want.Reached {
				t.Errorf("GoalProgress() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestMonthsBetween(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{name: "same month", start: day(2024, 5, 1), end: day(2024, 5, 31), want: 1},
		{name: "across a year", start: day(2024, 11, 20), end: day(2025, 2, 1), want: 4},
		{name: "end before start", start: day(2024, 5, 1), end: day(2024, 3, 1), want: -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MonthsBetween(tt.start, tt.end); got != tt.want {
				t.Errorf("MonthsBetween() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectAnomaly(t *testing.T) {
	tests := []struct {
		name    string
		current string
		average string
		want    bool
	}{
		{name: "above threshold", current: "131", average: "100", want: true},
		{name: "at threshold", current: "130", average: "100", want: false},
		{name: "below", current: "90", average: "100", want: false},
		{name: "no history", current: "1", average: "0", want: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectAnomaly(d(tt.current), d(tt.average), DefaultOverallAnomalyRatio); got != tt.want {
				t.Errorf("DetectAnomaly() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDetectSpendingAnomalies(t *testing.T) {
	t.Run("needs two months", func(t *testing.T) {
		got := DetectSpendingAnomalies([]Transaction{expense("Food", "10", day(2024, 1, 1))}, DefaultOverallAnomalyRatio, DefaultCategoryAnomalyRatio)
		if len(got) != 0 {
			t.Errorf("DetectSpendingAnomalies() = %v, want none", got)
		}
	})

	t.Run("latest month spike", func(t *testing.T) {
		expenses := []Transaction{
			expense("Food", "100", day(2024, 1, 5)),
			expense("Food", "100", day(2024, 2, 5)),
			expense("Food", "200", day(2024, 3, 5)),
			expense("Rent", "10", day(2024, 1, 1)),
			expense("Rent", "10", day(2024, 2, 1)),
			expense("Rent", "10", day(2024, 3, 1)),
		}
		got := DetectSpendingAnomalies(expenses, DefaultOverallAnomalyRatio, DefaultCategoryAnomalyRatio)
		if len(got) != 2 {
			t.Fatalf("DetectSpendingAnomalies() = %+v, want 2 anomalies", got)
		}
		if got[0].Scope != AnomalyScopeOverall || got[0].MonthKey != "2024-03" || !got[0].HistoricalAverage.Equal(d("110")) {
			t.Errorf("overall anomaly = %+v", got[0])
		}
		if got[1].Scope != AnomalyScopeCategory || got[1].Category != "Food" || !got[1].Current.Equal(d("200")) {
			t.Errorf("category anomaly = %+v", got[1])
		}
	})
}
