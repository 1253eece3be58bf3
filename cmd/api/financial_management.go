package main

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// getAllGoalsWithProgressHandler() lists every savings goal with its progress.
func (app *application) getAllGoalsWithProgressHandler(w http.ResponseWriter, r *http.Request) {
	goals, err := app.models.Goals.List(r.Context())
	if err != nil {
		app.serverErrorResponse(w, r, err)
		return
	}
	err = app.writeJSON(w, http.StatusOK, envelope{"goals": data.EnrichGoals(goals, time.Now())}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// createNewGoalHandler() creates a new savings goal. The id is optional and
// generated when absent; the priority defaults to medium.
func (app *application) createNewGoalHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ID            string           `json:"id"`
		Name          string           `json:"name"`
		TargetAmount  decimal.Decimal  `json:"targetAmount"`
		CurrentAmount *decimal.Decimal `json:"currentAmount"`
		Deadline      string           `json:"deadline"`
		Priority      string           `json:"priority"`
	}
	err := app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	goal := &data.SavingsGoal{
		ID:            input.ID,
		Name:          app.sanitize(input.Name),
		TargetAmount:  input.TargetAmount,
		CurrentAmount: decimal.Zero,
		Deadline:      input.Deadline,
		Priority:      input.Priority,
	}
	if input.CurrentAmount != nil {
		goal.CurrentAmount = *input.CurrentAmount
	}

	err = app.models.Goals.Create(r.Context(), goal, time.Now())
	if err != nil {
		app.goalErrorResponse(w, r, err)
		return
	}
	headers := make(http.Header)
	headers.Set("Location", fmt.Sprintf("/v1/goals/%s", goal.ID))
	enriched := data.EnrichGoals([]data.SavingsGoal{*goal}, time.Now())[0]
	err = app.writeJSON(w, http.StatusCreated, envelope{"goal": enriched}, headers)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

func (app *application) getGoalHandler(w http.ResponseWriter, r *http.Request) {
	goalID, err := app.readIDParam(r, "goalID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	goal, err := app.models.Goals.Get(r.Context(), goalID)
	if err != nil {
		app.goalErrorResponse(w, r, err)
		return
	}
	enriched := data.EnrichGoals([]data.SavingsGoal{*goal}, time.Now())[0]
	err = app.writeJSON(w, http.StatusOK, envelope{"goal": enriched}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// deleteGoalHandler() removes a goal. Deleting an unknown id succeeds.
func (app *application) deleteGoalHandler(w http.ResponseWriter, r *http.Request) {
	goalID, err := app.readIDParam(r, "goalID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	err = app.models.Goals.Delete(r.Context(), goalID)
	if err != nil {
		app.goalErrorResponse(w, r, err)
		return
	}
	err = app.writeJSON(w, http.StatusOK, envelope{"message": "goal deleted successfully"}, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// addGoalProgressHandler() adds an amount to a goal. An optional version makes
// the update conditional on the goal not having changed since it was read.
// When the update crosses a milestone a notification is dispatched in the
// background.
func (app *application) addGoalProgressHandler(w http.ResponseWriter, r *http.Request) {
	goalID, err := app.readIDParam(r, "goalID")
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}
	var input struct {
		Amount  decimal.Decimal `json:"amount"`
		Version int64           `json:"version"`
	}
	err = app.readJSON(w, r, &input)
	if err != nil {
		app.badRequestResponse(w, r, err)
		return
	}

	now := time.Now()
	before, after, err := app.models.Goals.AddProgress(r.Context(), goalID, input.Amount, input.Version, now)
	if err != nil {
		app.goalErrorResponse(w, r, err)
		return
	}

	env := envelope{"goal": data.EnrichGoals([]data.SavingsGoal{*after}, now)[0]}
	if milestone, ok := data.DetectMilestone(*before, *after); ok {
		notification := data.NewMilestoneNotification(milestone, *after, now)
		env["milestone"] = notification
		app.background(func() {
			app.dispatchNotification(notification)
		})
	}
	err = app.writeJSON(w, http.StatusOK, env, nil)
	if err != nil {
		app.serverErrorResponse(w, r, err)
	}
}

// goalErrorResponse() maps goal store errors onto HTTP responses.
func (app *application) goalErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	var validationErr *data.ValidationError
	switch {
	case errors.As(err, &validationErr):
		app.failedValidationResponse(w, r, validationErr.Errors)
	case errors.Is(err, data.ErrDuplicateGoalName):
		app.duplicateGoalResponse(w, r, "name")
	case errors.Is(err, data.ErrDuplicateGoalID):
		app.duplicateGoalResponse(w, r, "id")
	case errors.Is(err, data.ErrGeneralRecordNotFound):
		app.notFoundResponse(w, r)
	case errors.Is(err, data.ErrGeneralEditConflict):
		app.editConflictResponse(w, r)
	default:
		app.logger.Error("goal store failure", zap.Error(err))
		app.serverErrorResponse(w, r, err)
	}
}
