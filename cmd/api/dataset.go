package main

import (
	"context"
	"sync"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"go.uber.org/zap"
)

// DefaultDatasetRefreshTimeout bounds a single FetchAll.
const DefaultDatasetRefreshTimeout = 60 * time.Second

// dataset holds the last successfully fetched collections. A failed refresh
// keeps the previous collections and only records the error.
type dataset struct {
	mu          sync.RWMutex
	collections data.Collections
	loadedAt    time.Time
	loaded      bool
	lastErr     error
}

func (d *dataset) snapshot() (data.Collections, time.Time, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.collections, d.loadedAt, d.loaded
}

func (d *dataset) set(collections data.Collections, now time.Time) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.collections = collections
	d.loadedAt = now
	d.loaded = true
	d.lastErr = nil
}

func (d *dataset) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.lastErr = err
}

func (d *dataset) err() error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.lastErr
}

// refreshDataset() fetches every collection and swaps it in on success.
func (app *application) refreshDataset(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, DefaultDatasetRefreshTimeout)
	defer cancel()

	collections, err := app.fetcher.FetchAll(ctx)
	if err != nil {
		app.dataset.fail(err)
		app.logger.Error("unable to refresh dataset", zap.Error(err))
		return err
	}
	app.dataset.set(collections, time.Now())
	app.logger.Info("dataset refreshed",
		zap.Int("expenses", len(collections.Expenses)),
		zap.Int("income", len(collections.Income)),
		zap.Int("refunds", len(collections.Refunds)))
	return nil
}

// loadDatasetWithRetry() is the startup load. Attempts are spaced with a
// linear backoff; once they are exhausted the API keeps answering 503 until
// a scheduled or manual refresh succeeds.
func (app *application) loadDatasetWithRetry(ctx context.Context) {
	attempts := max(app.config.scheduler.startupRetries, 1)
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := app.refreshDataset(ctx); err == nil {
			return
		}
		if attempt == attempts {
			break
		}
		wait := app.config.scheduler.startupBackoff * time.Duration(attempt)
		app.logger.Info("retrying dataset load", zap.Int("attempt", attempt), zap.Duration("wait", wait))
		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return
		}
	}
	app.logger.Warn("dataset could not be loaded at startup", zap.Int("attempts", attempts))
}
