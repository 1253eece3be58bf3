package data

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	RedisNotManPendingNotificationKey = "pending_notifications"
	RedisNotManNotificationKey        = "notifications"
)

const (
	DefaultNotificationTimeout          = 30 * time.Second
	DefaultRedisNotificationTTLDuration = 10 * time.Minute
)

const (
	NotificationTypeDefault   = "default"
	NotificationTypeMilestone = "goal_milestone"
)

const (
	MilestoneGoalReached = "goal_reached"
	Milestone80          = "milestone_80"
)

var milestone80Percent = decimal.NewFromInt(80)

// Notification is a message raised by the system, for now only goal milestones.
type Notification struct {
	ID        string    `json:"id"`
	Type      string    `json:"notification_type"`
	Milestone string    `json:"milestone,omitempty"`
	GoalID    string    `json:"goal_id,omitempty"`
	GoalName  string    `json:"goal_name,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// MarshalPayload encodes n for the redis and amqp transports.
func (n Notification) MarshalPayload() ([]byte, error) {
	return json.Marshal(n)
}

// DetectMilestone reports which milestone, if any, was crossed going from
// before to after. Each milestone fires only on the update that crosses it.
func DetectMilestone(before, after SavingsGoal) (string, bool) {
	if !after.TargetAmount.IsPositive() {
		return "", false
	}
	previous := before.CurrentAmount.Div(after.TargetAmount).Mul(hundred)
	current := after.CurrentAmount.Div(after.TargetAmount).Mul(hundred)
	switch {
	case current.GreaterThanOrEqual(hundred) && previous.LessThan(hundred):
		return MilestoneGoalReached, true
	case current.GreaterThanOrEqual(milestone80Percent) && current.LessThan(hundred) && previous.LessThan(milestone80Percent):
		return Milestone80, true
	}
	return "", false
}

// MilestoneMessage is the user facing text for a milestone on goal.
func MilestoneMessage(milestone string, goal SavingsGoal) string {
	target := FormatCurrency(goal.TargetAmount)
	switch milestone {
	case MilestoneGoalReached:
		return fmt.Sprintf("Congratulations! You've reached your savings goal of %s!", target)
	case Milestone80:
		return fmt.Sprintf("You're more than 80%% of the way to your goal of %s! Keep it up!", target)
	}
	return ""
}

func NewMilestoneNotification(milestone string, goal SavingsGoal, now time.Time) Notification {
	return Notification{
		ID:        uuid.NewString(),
		Type:      NotificationTypeMilestone,
		Milestone: milestone,
		GoalID:    goal.ID,
		GoalName:  goal.Name,
		Message:   MilestoneMessage(milestone, goal),
		CreatedAt: now.UTC(),
	}
}
