package main

import (
	"net/http"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/data"
)

// getSavingsAnalysisHandler() returns the monthly discretionary spending, the
// savings reachable under each scenario and the spending anomalies of the
// latest month.
func (app *application) getSavingsAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	collections, _, _ := app.dataset.snapshot()

	discretionary := data.DiscretionarySpending(collections.Expenses, data.DefaultDiscretionaryCategories, app.config.feed.periodMonths)
	anomalies := data.DetectSpendingAnomalies(collections.Expenses, data.DefaultOverallAnomalyRatio, data.DefaultCategoryAnomalyRatio)

	err := app.writeJSON(w, http.StatusOK, envelope{
		"discretionary_categories": data.DefaultDiscretionaryCategories,
		"discretionary_monthly":    discretionary.Round(2),
		"scenarios":                data.CalculateSavingsScenarios(discretionary),
		"anomalies":                anomalies,
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// getRecommendationsHandler() runs the recommendation rules over the loaded
// expenses and the stored goals.
func (app *application) getRecommendationsHandler(w http.ResponseWriter, r *http.Request) {
	collections, _, _ := app.dataset.snapshot()
	goals, err := app.models.Goals.List(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	opts := data.DefaultRecommendationOptions()
	opts.PeriodMonths = app.config.feed.periodMonths

	recommendations := data.DetectRecommendations(collections.Expenses, goals, opts, time.Now())
	err = app.writeJSON(w, http.StatusOK, envelope{"recommendations": recommendations}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// refreshDatasetHandler() refetches every collection from the feed. It is the
// retry path for clients that received a 503.
func (app *application) refreshDatasetHandler(w http.ResponseWriter, r *http.Request) {
	err := app.refreshDataset(r.Context())
	if err != nil {
		app.feedUnavailableResponse(w, r, err)
		return
	}
	collections, loadedAt, _ := app.dataset.snapshot()
	err = app.writeJSON(w, http.StatusOK, envelope{
		"loaded_at": loadedAt.UTC().Format(time.RFC3339),
		"counts": map[string]int{
			"expenses": len(collections.Expenses),
			"income":   len(collections.Income),
			"refunds":  len(collections.Refunds),
		},
	}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}
