package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"go.uber.org/zap"
)

const sseKeepAliveInterval = 30 * time.Second

// ServeSSE streams notifications to a single client. With Redis enabled the
// notifications that were raised while no client was connected are replayed
// first.
func (app *application) ServeSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		app.serverErrorResponse(w, r, errors.New("streaming unsupported by the response writer"))
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	clientID, messages := app.broadcaster.Subscribe()
	defer app.broadcaster.Unsubscribe(clientID)
	app.logger.Info("SSE client connected", zap.String("client_id", clientID))

	if app.redisNotifier != nil {
		app.sendPendingNotifications(r.Context(), w, flusher)
	}

	keepAlive := time.NewTicker(sseKeepAliveInterval)
	defer keepAlive.Stop()
	for {
		select {
		case msg, ok := <-messages:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		case <-keepAlive.C:
			fmt.Fprint(w, ": keep-alive\n\n")
			flusher.Flush()
		case <-r.Context().Done():
			app.logger.Info("SSE client disconnected", zap.String("client_id", clientID))
			return
		}
	}
}

// sendPendingNotifications() writes the unacknowledged notifications stored in
// Redis to the stream and acknowledges them.
func (app *application) sendPendingNotifications(ctx context.Context, w http.ResponseWriter, flusher http.Flusher) {
	pending, err := app.redisNotifier.Pending(ctx)
	if err != nil {
		app.logger.Info("Error loading notifications from Redis", zap.Error(err))
		return
	}
	ids := make([]string, 0, len(pending))
	for _, notification := range pending {
		payload, err := notification.MarshalPayload()
		if err != nil {
			continue
		}
		fmt.Fprintf(w, "data: %s\n\n", payload)
		ids = append(ids, notification.ID)
	}
	flusher.Flush()
	if err := app.redisNotifier.Acknowledge(ctx, ids...); err != nil {
		app.logger.Error("Error acknowledging pending notifications", zap.Error(err))
	}
}

// dispatchNotification() hands a notification to every configured notifier.
func (app *application) dispatchNotification(notification data.Notification) {
	ctx, cancel := context.WithTimeout(context.Background(), data.DefaultNotificationTimeout)
	defer cancel()

	err := app.notifier.Notify(ctx, notification)
	if err != nil {
		app.logger.Error("Error dispatching notification",
			zap.String("notification_id", notification.ID),
			zap.String("goal_id", notification.GoalID),
			zap.Error(err))
		return
	}
	app.logger.Info("notification dispatched",
		zap.String("notification_id", notification.ID),
		zap.String("milestone", notification.Milestone))
}

// listenForNotifications() relays the Redis notification channel to the SSE
// broadcaster until ctx is cancelled. A notification that reached at least one
// client is acknowledged; the others stay pending for the next connection.
func (app *application) listenForNotifications(ctx context.Context) {
	for {
		err := app.redisNotifier.Listen(ctx, func(notification data.Notification, payload string) {
			if app.broadcaster.Broadcast(payload) == 0 {
				return
			}
			if err := app.redisNotifier.Acknowledge(ctx, notification.ID); err != nil {
				app.logger.Error("Error acknowledging notification", zap.Error(err))
			}
		})
		if ctx.Err() != nil {
			return
		}
		app.logger.Error("Redis notification listener stopped, restarting", zap.Error(err))
		select {
		case <-time.After(5 * time.Second):
		case <-ctx.Done():
			return
		}
	}
}
