package data

import (
	"strings"
	"testing"
)

func TestDetectMilestone(t *testing.T) {
	tests := []struct {
		name   string
		before string
		after  string
		target string
		want   string
		wantOk bool
	}{
		{name: "crosses 80", before: "70", after: "85", target: "100", want: Milestone80, wantOk: true},
		{name: "lands on 80", before: "70", after: "80", target: "100", want: Milestone80, wantOk: true},
		{name: "already past 80", before: "85", after: "90", target: "100"},
		{name: "reaches target", before: "90", after: "100", target: "100", want: MilestoneGoalReached, wantOk: true},
		{name: "jumps past both", before: "10", after: "120", target: "100", want: MilestoneGoalReached, wantOk: true},
		{name: "already reached", before: "100", after: "110", target: "100"},
		{name: "below 80", before: "10", after: "20", target: "100"},
		{name: "zero target", before: "0", after: "20", target: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := SavingsGoal{TargetAmount: d(tt.target), CurrentAmount: d(tt.before)}
			after := SavingsGoal{TargetAmount: d(tt.target), CurrentAmount: d(tt.after)}
			got, ok := DetectMilestone(before, after)
			if got != tt.want || ok != tt.wantOk {
				t.Errorf("DetectMilestone() = %q, %v, want %q, %v", got, ok, tt.want, tt.wantOk)
			}
		})
	}
}

func TestNewMilestoneNotification(t *testing.T) {
	goal := SavingsGoal{ID: "g1", Name: "Holiday", TargetAmount: d("1000")}
	tests := []struct {
		milestone string
		want      string
	}{
		{milestone: MilestoneGoalReached, want: "Congratulations! You've reached your savings goal of €1000.00!"},
		{milestone: Milestone80, want: "You're more than 80% of the way to your goal of €1000.00! Keep it up!"},
	}
	for _, tt := range tests {
		t.Run(tt.milestone, func(t *testing.T) {
			n := NewMilestoneNotification(tt.milestone, goal, day(2024, 5, 1))
			if n.Message != tt.want {
				t.Errorf("Message = %q, want %q", n.Message, tt.want)
			}
			if n.ID == "" || n.GoalID != "g1" || n.Type != NotificationTypeMilestone {
				t.Errorf("NewMilestoneNotification() = %+v", n)
			}
			payload, err := n.MarshalPayload()
			if err != nil || !strings.Contains(string(payload), `"milestone":"`+tt.milestone+`"`) {
				t.Errorf("MarshalPayload() = %s, %v", payload, err)
			}
		})
	}
}
