package data

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/kvstore"
	"github.com/Blue-Davinci/SmartSave/internal/validator"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SavingsGoalsKey is the storage key holding the JSON array of goals.
const SavingsGoalsKey = "savingsGoals"

const (
	GoalPriorityLow    = "low"
	GoalPriorityMedium = "medium"
	GoalPriorityHigh   = "high"
)

// SavingsGoal is a user defined savings target. The JSON layout is the
// persisted layout under SavingsGoalsKey.
type SavingsGoal struct {
	ID            string          `json:"id"`
	Name          string          `json:"name"`
	TargetAmount  decimal.Decimal `json:"targetAmount"`
	CurrentAmount decimal.Decimal `json:"currentAmount"`
	Deadline      string          `json:"deadline"`
	Priority      string          `json:"priority"`
	CreatedAt     time.Time       `json:"createdAt"`
	LastUpdated   *time.Time      `json:"lastUpdated,omitempty"`
	Version       int64           `json:"version"`
}

// EnrichedGoal pairs a goal with its computed progress.
type EnrichedGoal struct {
	SavingsGoal
	Progress Progress `json:"progress"`
}

// GoalManagerModel persists savings goals through the key-value store.
// Mutations are optimistic read-modify-write cycles on a single key.
type GoalManagerModel struct {
	Store kvstore.Store
}

func ValidateGoalName(v *validator.Validator, name string) {
	v.Check(strings.TrimSpace(name) != "", "name", "must be provided")
	v.Check(len(name) <= 255, "name", "must not be more than 255 bytes long")
}

func ValidateGoalTargetAmount(v *validator.Validator, amount decimal.Decimal) {
	v.Check(amount.GreaterThan(decimal.Zero), "targetAmount", "must be greater than zero")
}

func ValidateGoalDeadline(v *validator.Validator, deadline string, now time.Time) {
	v.Check(deadline != "", "deadline", "must be provided")
	if deadline == "" {
		return
	}
	v.Check(validator.Matches(deadline, validator.DateRX), "deadline", "must be a date in YYYY-MM-DD format")
	parsed, err := time.Parse("2006-01-02", deadline)
	if err != nil {
		v.AddError("deadline", "must be a valid date")
		return
	}
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	v.Check(parsed.After(today), "deadline", "must be in the future")
}

func ValidateGoalPriority(v *validator.Validator, priority string) {
	v.Check(validator.PermittedValue(priority, GoalPriorityLow, GoalPriorityMedium, GoalPriorityHigh), "priority", "must be one of low, medium or high")
}

// ValidateProgressAmount checks an amount added to a goal.
func ValidateProgressAmount(v *validator.Validator, amount decimal.Decimal) {
	v.Check(amount.GreaterThan(decimal.Zero), "amount", "must be greater than zero")
}

// ValidateSavingsGoal runs every check that applies to a new goal.
func ValidateSavingsGoal(v *validator.Validator, goal *SavingsGoal, now time.Time) {
	ValidateGoalName(v, goal.Name)
	ValidateGoalTargetAmount(v, goal.TargetAmount)
	ValidateGoalDeadline(v, goal.Deadline, now)
	if goal.Priority != "" {
		ValidateGoalPriority(v, goal.Priority)
	}
	v.Check(!goal.CurrentAmount.IsNegative(), "currentAmount", "must not be negative")
}

// List returns every stored goal, or an empty slice when none are stored.
func (m GoalManagerModel) List(ctx context.Context) ([]SavingsGoal, error) {
	ctx, cancel := contextGenerator(ctx, DefaultStoreContextTimeout)
	defer cancel()

	goals, err := kvstore.GetJSON(ctx, m.Store, SavingsGoalsKey, []SavingsGoal{})
	if err != nil {
		return nil, err
	}
	if goals == nil {
		goals = []SavingsGoal{}
	}
	return goals, nil
}

// Get returns the goal with the given id or ErrGeneralRecordNotFound.
func (m GoalManagerModel) Get(ctx context.Context, id string) (*SavingsGoal, error) {
	goals, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range goals {
		if goals[i].ID == id {
			return &goals[i], nil
		}
	}
	return nil, ErrGeneralRecordNotFound
}

// Create validates and stores goal, filling in its id, priority, timestamps and
// version. Names must be unique ignoring case.
func (m GoalManagerModel) Create(ctx context.Context, goal *SavingsGoal, now time.Time) error {
	goal.Name = strings.TrimSpace(goal.Name)
	v := validator.New()
	if ValidateSavingsGoal(v, goal, now); !v.Valid() {
		return newValidationError(v)
	}
	if goal.ID == "" {
		goal.ID = uuid.NewString()
	}
	if goal.Priority == "" {
		goal.Priority = GoalPriorityMedium
	}
	goal.CreatedAt = now.UTC()
	goal.LastUpdated = nil
	goal.Version = 1

	ctx, cancel := contextGenerator(ctx, DefaultStoreContextTimeout)
	defer cancel()

	_, err := kvstore.UpdateJSON(ctx, m.Store, SavingsGoalsKey, []SavingsGoal{}, func(goals []SavingsGoal) ([]SavingsGoal, error) {
		for _, existing := range goals {
			if existing.ID == goal.ID {
				return nil, fmt.Errorf("%w: %s", ErrDuplicateGoalID, goal.ID)
			}
			if strings.EqualFold(existing.Name, goal.Name) {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateGoalName, goal.Name)
			}
		}
		return append(goals, *goal), nil
	})
	return mapStoreError(err)
}

// Delete removes the goal with the given id. Unknown ids are ignored.
func (m GoalManagerModel) Delete(ctx context.Context, id string) error {
	ctx, cancel := contextGenerator(ctx, DefaultStoreContextTimeout)
	defer cancel()

	_, err := kvstore.UpdateJSON(ctx, m.Store, SavingsGoalsKey, []SavingsGoal{}, func(goals []SavingsGoal) ([]SavingsGoal, error) {
		kept := make([]SavingsGoal, 0, len(goals))
		for _, goal := range goals {
			if goal.ID != id {
				kept = append(kept, goal)
			}
		}
		if len(kept) == len(goals) {
			return goals, kvstore.ErrNoChange
		}
		return kept, nil
	})
	return mapStoreError(err)
}

// AddProgress adds amount to the goal's current amount and stamps LastUpdated.
// When expectedVersion is positive it must match the stored goal version.
// It returns the goal as it was before and after the update. On any error the
// stored goals are left untouched.
func (m GoalManagerModel) AddProgress(ctx context.Context, id string, amount decimal.Decimal, expectedVersion int64, now time.Time) (before, after *SavingsGoal, err error) {
	v := validator.New()
	if ValidateProgressAmount(v, amount); !v.Valid() {
		return nil, nil, newValidationError(v)
	}

	ctx, cancel := contextGenerator(ctx, DefaultStoreContextTimeout)
	defer cancel()

	var previous, updated SavingsGoal
	_, err = kvstore.UpdateJSON(ctx, m.Store, SavingsGoalsKey, []SavingsGoal{}, func(goals []SavingsGoal) ([]SavingsGoal, error) {
		for i := range goals {
			if goals[i].ID != id {
				continue
			}
			if expectedVersion > 0 && goals[i].Version != expectedVersion {
				return nil, ErrGeneralEditConflict
			}
			previous = goals[i]
			stamp := now.UTC()
			goals[i].CurrentAmount = goals[i].CurrentAmount.Add(amount)
			goals[i].LastUpdated = &stamp
			goals[i].Version++
			updated = goals[i]
			return goals, nil
		}
		return nil, ErrGeneralRecordNotFound
	})
	if err != nil {
		return nil, nil, mapStoreError(err)
	}
	return &previous, &updated, nil
}

// EnrichGoals attaches progress figures to every goal.
func EnrichGoals(goals []SavingsGoal, now time.Time) []EnrichedGoal {
	enriched := make([]EnrichedGoal, 0, len(goals))
	for _, goal := range goals {
		enriched = append(enriched, EnrichedGoal{SavingsGoal: goal, Progress: GoalProgress(goal, now)})
	}
	return enriched
}
