package main

import (
	"context"
	"time"

	"go.uber.org/zap"
)

func (app *application) startSchedulers() {
	app.refreshDatasetScheduleHandler()
}

// refreshDatasetScheduleHandler() is a cronjob method that refreshes the
// transaction dataset on the configured interval. The startup load runs in
// the background so the server can come up (and serve its own ledger feed)
// while it retries.
func (app *application) refreshDatasetScheduleHandler() {
	app.logger.Info("Starting the dataset refresh handler..", zap.String("interval", app.config.scheduler.refreshInterval))

	_, err := app.config.scheduler.refreshDatasetCron.AddFunc(app.config.scheduler.refreshInterval, app.refreshDatasetJob)
	if err != nil {
		app.logger.Error("Error adding [refreshDataset] to scheduler", zap.Error(err))
	}
	// Run the load first before starting the cron
	app.background(func() {
		app.loadDatasetWithRetry(context.Background())
	})
	app.config.scheduler.refreshDatasetCron.Start()
}

// refreshDatasetJob() is the method called by the cronjob to refetch the feed.
func (app *application) refreshDatasetJob() {
	app.logger.Info("Refreshing dataset", zap.String("time", time.Now().String()))
	// errors are recorded on the dataset and logged by refreshDataset
	_ = app.refreshDataset(context.Background())
}
