package notifier

import (
	"context"
	"errors"

	"github.com/Blue-Davinci/SmartSave/internal/data"
)

// Notifier delivers a notification over one channel.
type Notifier interface {
	Notify(ctx context.Context, n data.Notification) error
}

// Multi fans a notification out to every notifier, joining their errors.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n data.Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
