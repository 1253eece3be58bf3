package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func (app *application) server() error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", app.config.port),
		Handler:      app.routes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	// listenCtx is cancelled on shutdown so that the long lived listeners
	// (redis pub/sub, SSE streams) let go.
	listenCtx, stopListening := context.WithCancel(context.Background())
	defer stopListening()
	wsSrv := app.newWSServer(listenCtx)

	shutdownChan := make(chan error)
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		s := <-quit
		app.logger.Info("shutting down server", zap.String("signal", s.String()))
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		stopListening()
		if err := wsSrv.Shutdown(ctx); err != nil {
			app.logger.Error("error shutting down websocket server", zap.Error(err))
		}
		app.logger.Info("completing background tasks...", zap.String("addr", srv.Addr))
		app.stopCronJobs(app.config.scheduler.refreshDatasetCron)
		// Call Shutdown() on our server, passing in the context we just made.
		err := srv.Shutdown(ctx)
		app.wg.Wait()
		shutdownChan <- err
	}()

	if app.redisNotifier != nil {
		app.background(func() {
			app.listenForNotifications(listenCtx)
		})
	}
	go app.serveWS(wsSrv)

	app.logger.Info("starting server", zap.String("addr", srv.Addr), zap.String("env", app.config.env))
	if err := srv.ListenAndServe(); err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}
	err := <-shutdownChan
	if err != nil {
		return err
	}
	app.logger.Info("stopped server", zap.String("addr", srv.Addr))
	return nil
}

// stopCronJobs() stops all the cron jobs that are running in the application
func (app *application) stopCronJobs(cronJobs ...*cron.Cron) {
	app.logger.Info("stopping cron jobs..", zap.Int("count", len(cronJobs)))
	for _, cronJob := range cronJobs {
		if cronJob == nil {
			continue
		}
		ctx := cronJob.Stop()
		<-ctx.Done()
	}
}

// serveWS() launches the long lived server hosting the SSE and websocket routes.
func (app *application) serveWS(server *http.Server) {
	app.logger.Info("starting websocket server", zap.String("addr", server.Addr))
	err := server.ListenAndServe()
	if err != nil {
		if !errors.Is(err, http.ErrServerClosed) {
			app.logger.Error("error starting websocket server", zap.Error(err))
		}
	}
}

// newWSServer() builds the long lived SSE and websocket server. Every request
// context derives from listenCtx, so cancelling it ends the open streams and
// lets Shutdown complete.
func (app *application) newWSServer(listenCtx context.Context) *http.Server {
	return &http.Server{
		Addr:        fmt.Sprintf(":%d", app.config.ws.port),
		Handler:     app.wsRoutes(),
		IdleTimeout: time.Minute,
		ReadTimeout: 10 * time.Second,
		// streams stay open
		WriteTimeout: 0,
		BaseContext: func(net.Listener) context.Context {
			return listenCtx
		},
	}
}
