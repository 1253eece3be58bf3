package data

import (
	"context"
	"errors"
	"testing"

	"github.com/Blue-Davinci/SmartSave/internal/kvstore"
)

func newGoal(name, target, deadline string) *SavingsGoal {
	return &SavingsGoal{Name: name, TargetAmount: d(target), Deadline: deadline}
}

func TestGoalManagerModel_Create(t *testing.T) {
	ctx := context.Background()
	now := day(2024, 1, 15)
	m := GoalManagerModel{Store: kvstore.NewMemoryStore()}

	goal := newGoal("  Holiday ", "1500", "2024-08-01")
	if err := m.Create(ctx, goal, now); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if goal.ID == "" || goal.Name != "Holiday" || goal.Priority != GoalPriorityMedium || goal.Version != 1 {
		t.Errorf("Create() goal = %+v", goal)
	}
	if !goal.CreatedAt.Equal(now) {
		t.Errorf("Create() createdAt = %v, want %v", goal.CreatedAt, now)
	}

	tests := []struct {
		name       string
		goal       *SavingsGoal
		wantErr    error
		wantFields []string
	}{
		{
			name:    "duplicate name ignores case",
			goal:    newGoal("HOLIDAY", "10", "2024-08-01"),
			wantErr: ErrDuplicateGoalName,
		},
		{
			name:    "duplicate id",
			goal:    &SavingsGoal{ID: goal.ID, Name: "Other", TargetAmount: d("10"), Deadline: "2024-08-01"},
			wantErr: ErrDuplicateGoalID,
		},
		{
			name:       "empty name and zero target",
			goal:       newGoal(" ", "0", "2024-08-01"),
			wantFields: []string{"name", "targetAmount"},
		},
		{
			name:       "deadline in the past",
			goal:       newGoal("Car", "10", "2023-12-31"),
			wantFields: []string{"deadline"},
		},
		{
			name:       "deadline today",
			goal:       newGoal("Car", "10", "2024-01-15"),
			wantFields: []string{"deadline"},
		},
		{
			name:       "malformed deadline",
			goal:       newGoal("Car", "10", "31/12/2024"),
			wantFields: []string{"deadline"},
		},
		{
			name:       "unknown priority",
			goal:       &SavingsGoal{Name: "Car", TargetAmount: d("10"), Deadline: "2024-08-01", Priority: "urgent"},
			wantFields: []string{"priority"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := m.Create(ctx, tt.goal, now)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Create() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("Create() error = %v, want ValidationError", err)
			}
			for _, field := range tt.wantFields {
				if _, ok := verr.Errors[field]; !ok {
					t.Errorf("Create() errors = %v, missing %q", verr.Errors, field)
				}
			}
		})
	}

	goals, err := m.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(goals) != 1 {
		t.Errorf("List() = %d goals, want 1", len(goals))
	}
}

func TestGoalManagerModel_GetDelete(t *testing.T) {
	ctx := context.Background()
	now := day(2024, 1, 15)
	m := GoalManagerModel{Store: kvstore.NewMemoryStore()}

	goals, err := m.List(ctx)
	if err != nil || goals == nil || len(goals) != 0 {
		t.Fatalf("List() = %v, %v, want empty slice", goals, err)
	}
	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrGeneralRecordNotFound) {
		t.Errorf("Get() error = %v, want ErrGeneralRecordNotFound", err)
	}

	first := newGoal("Holiday", "1500", "2024-08-01")
	second := newGoal("Car", "5000", "2025-08-01")
	for _, g := range []*SavingsGoal{first, second} {
		if err := m.Create(ctx, g, now); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}
	got, err := m.Get(ctx, second.ID)
	if err != nil || got.Name != "Car" {
		t.Fatalf("Get() = %+v, %v", got, err)
	}

	if err := m.Delete(ctx, "missing"); err != nil {
		t.Errorf("Delete() missing error = %v", err)
	}
	if err := m.Delete(ctx, first.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	goals, _ = m.List(ctx)
	if len(goals) != 1 || goals[0].ID != second.ID {
		t.Errorf("List() after delete = %+v", goals)
	}
}

func TestGoalManagerModel_AddProgress(t *testing.T) {
	ctx := context.Background()
	now := day(2024, 1, 15)
	later := day(2024, 2, 1)
	m := GoalManagerModel{Store: kvstore.NewMemoryStore()}

	goal := newGoal("Holiday", "1000", "2024-08-01")
	if err := m.Create(ctx, goal, now); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	var verr *ValidationError
	if _, _, err := m.AddProgress(ctx, goal.ID, d("0"), 0, later); !errors.As(err, &verr) {
		t.Errorf("AddProgress() zero amount error = %v, want ValidationError", err)
	}
	if _, _, err := m.AddProgress(ctx, "missing", d("10"), 0, later); !errors.Is(err, ErrGeneralRecordNotFound) {
		t.Errorf("AddProgress() missing error = %v, want ErrGeneralRecordNotFound", err)
	}
	if _, _, err := m.AddProgress(ctx, goal.ID, d("10"), 7, later); !errors.Is(err, ErrGeneralEditConflict) {
		t.Errorf("AddProgress() stale version error = %v, want ErrGeneralEditConflict", err)
	}
	unchanged, _ := m.Get(ctx, goal.ID)
	if !unchanged.CurrentAmount.IsZero() || unchanged.Version != 1 || unchanged.LastUpdated != nil {
		t.Fatalf("failed AddProgress() changed the goal: %+v", unchanged)
	}

	before, after, err := m.AddProgress(ctx, goal.ID, d("250.50"), 1, later)
	if err != nil {
		t.Fatalf("AddProgress() error = %v", err)
	}
	if !before.CurrentAmount.IsZero() || !after.CurrentAmount.Equal(d("250.5")) {
		t.Errorf("AddProgress() amounts = %v -> %v", before.CurrentAmount, after.CurrentAmount)
	}
	if after.Version != 2 || after.LastUpdated == nil || !after.LastUpdated.Equal(later) {
		t.Errorf("AddProgress() after = %+v", after)
	}

	stored, _ := m.Get(ctx, goal.ID)
	if !stored.CurrentAmount.Equal(d("250.5")) || stored.Version != 2 {
		t.Errorf("stored goal = %+v", stored)
	}
}

func TestEnrichGoals(t *testing.T) {
	goals := []SavingsGoal{{ID: "a", TargetAmount: d("200"), CurrentAmount: d("50"), Deadline: "2024-03-01"}}
	got := EnrichGoals(goals, day(2024, 1, 15))
	if len(got) != 1 || got[0].ID != "a" || !got[0].Progress.Percent.Equal(d("25")) || got[0].Progress.MonthsLeft != 3 {
		t.Errorf("EnrichGoals() = %+v", got)
	}
}
