package main

import (
	"net/http"
	"regexp"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/Blue-Davinci/SmartSave/internal/validator"
	"github.com/shopspring/decimal"
)

var monthKeyRX = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

// categoryBreakdown is a category aggregate with its share of total spending.
type categoryBreakdown struct {
	data.CategoryAggregate
	Percentage decimal.Decimal `json:"percentage"`
}

type monthlyOverview struct {
	data.MonthlyAggregate
	Label string          `json:"label"`
	Net   decimal.Decimal `json:"net"`
}

// getDashboardSummaryHandler() returns the summary cards together with the
// month over month trend of expenses between the two latest months.
func (app *application) getDashboardSummaryHandler(w http.ResponseWriter, r *http.Request) {
	collections, loadedAt, _ := app.dataset.snapshot()
	summary := data.Summarize(collections, app.config.feed.periodMonths)

	trend := data.Trend{Direction: data.TrendNeutral, Percentage: decimal.Zero}
	months := data.AggregateByMonth(collections.Expenses, collections.Income)
	if len(months) >= 2 {
		trend = data.CalculateTrend(months[len(months)-1].Expenses, months[len(months)-2].Expenses)
	}

	err := app.writeJSON(w, http.StatusOK, envelope{
		"summary":       summary,
		"expense_trend": trend,
		"loaded_at":     loadedAt.UTC().Format(time.RFC3339),
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// getCategoryBreakdownHandler() returns expense totals per category, largest
// first, each with its percentage of all expenses.
func (app *application) getCategoryBreakdownHandler(w http.ResponseWriter, r *http.Request) {
	collections, _, _ := app.dataset.snapshot()
	total := data.Total(collections.Expenses)

	aggregates := data.AggregateByCategory(collections.Expenses)
	categories := make([]categoryBreakdown, 0, len(aggregates))
	for _, aggregate := range aggregates {
		categories = append(categories, categoryBreakdown{
			CategoryAggregate: aggregate,
			Percentage:        data.CalculatePercentage(aggregate.Total, total),
		})
	}
	err := app.writeJSON(w, http.StatusOK, envelope{"categories": categories, "total": total}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// getMonthlyOverviewHandler() returns income and expenses per month in
// ascending order with a display label.
func (app *application) getMonthlyOverviewHandler(w http.ResponseWriter, r *http.Request) {
	collections, _, _ := app.dataset.snapshot()

	aggregates := data.AggregateByMonth(collections.Expenses, collections.Income)
	months := make([]monthlyOverview, 0, len(aggregates))
	for _, aggregate := range aggregates {
		months = append(months, monthlyOverview{
			MonthlyAggregate: aggregate,
			Label:            data.MonthLabel(aggregate.MonthKey),
			Net:              aggregate.Income.Sub(aggregate.Expenses),
		})
	}
	err := app.writeJSON(w, http.StatusOK, envelope{"monthly": months}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// getFilteredTransactionsHandler() lists expenses filtered by the month,
// category and search query parameters. A positive limit keeps the first
// matches only.
func (app *application) getFilteredTransactionsHandler(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()
	filter := data.TransactionFilter{
		Month:    app.readString(qs, "month", ""),
		Category: app.readString(qs, "category", ""),
		Search:   app.readString(qs, "search", ""),
	}
	v := validator.New()
	limit := app.readInt(qs, "limit", 0, v)
	v.Check(limit >= 0, "limit", "must not be negative")
	if filter.Month != "" {
		v.Check(validator.Matches(filter.Month, monthKeyRX), "month", "must be in the format YYYY-MM")
	}
	v.Check(len(filter.Search) <= 100, "search", "must not be more than 100 bytes long")
	if !v.Valid() {
		app.failedValidationResponse(w, r, v.Errors)
		return
	}

	collections, _, _ := app.dataset.snapshot()
	transactions := data.FilterTransactions(collections.Expenses, filter)
	if limit > 0 && len(transactions) > limit {
		transactions = transactions[:limit]
	}
	err := app.writeJSON(w, http.StatusOK, envelope{
		"transactions": transactions,
		"count":        len(transactions),
		"total":        data.Total(transactions),
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
