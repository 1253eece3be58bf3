package notifier

import (
	"context"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/shopspring/decimal"
)

const milestoneTemplate = "goal_milestone.tmpl"

// Sender is satisfied by mailer.Mailer.
type Sender interface {
	Send(recipient, templateFile string, data any) error
}

// GoalLookup resolves the goal a notification refers to.
type GoalLookup func(ctx context.Context, id string) (*data.SavingsGoal, error)

// MailNotifier emails milestone notifications to a single recipient.
type MailNotifier struct {
	sender    Sender
	recipient string
	lookup    GoalLookup
}

func NewMailNotifier(sender Sender, recipient string, lookup GoalLookup) *MailNotifier {
	return &MailNotifier{sender: sender, recipient: recipient, lookup: lookup}
}

func (m *MailNotifier) Notify(ctx context.Context, n data.Notification) error {
	if m.recipient == "" || n.Type != data.NotificationTypeMilestone {
		return nil
	}
	payload := map[string]any{
		"GoalName":      n.GoalName,
		"Message":       n.Message,
		"CurrentAmount": data.FormatCurrency(decimal.Zero),
		"TargetAmount":  "",
		"Deadline":      "",
	}
	if m.lookup != nil {
		if goal, err := m.lookup(ctx, n.GoalID); err == nil {
			payload["CurrentAmount"] = data.FormatCurrency(goal.CurrentAmount)
			payload["TargetAmount"] = data.FormatCurrency(goal.TargetAmount)
			payload["Deadline"] = goal.Deadline
		}
	}
	return m.sender.Send(m.recipient, milestoneTemplate, payload)
}
