package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Blue-Davinci/SmartSave/internal/assistant"
	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/Blue-Davinci/SmartSave/internal/fetcher"
	"github.com/Blue-Davinci/SmartSave/internal/httpclient"
	"github.com/Blue-Davinci/SmartSave/internal/kvstore"
	"github.com/Blue-Davinci/SmartSave/internal/notifier"
	"github.com/microcosm-cc/bluemonday"
	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// newTestApplication returns an application backed by a memory store with
// no dataset loaded, no rate limiting and no assistant credential.
func newTestApplication(t *testing.T) *application {
	t.Helper()
	var cfg config
	cfg.env = "testing"
	cfg.feed.periodMonths = data.DefaultPeriodMonths
	cfg.feed.strictDates = true
	cfg.limiter.enabled = false
	cfg.ws.MaxConcurrentConnections = 5
	cfg.scheduler.startupRetries = 1
	cfg.scheduler.refreshDatasetCron = cron.New()

	store := kvstore.NewMemoryStore()
	client := httpclient.New(2*time.Second, 0)
	broadcaster := notifier.NewBroadcaster()
	app := &application{
		config:      cfg,
		logger:      zap.NewNop(),
		models:      data.NewModels(store, nil, 0),
		store:       store,
		dataset:     &dataset{},
		fetcher:     fetcher.New(client, "http://127.0.0.1:1", true, zap.NewNop()),
		assistant:   assistant.NewClient(client, "http://127.0.0.1:1"),
		broadcaster: broadcaster,
		notifier:    notifier.Multi{broadcaster},
		sanitizer:   bluemonday.StrictPolicy(),
	}
	app.WebSocketUpgrader.CheckOrigin = app.checkWebSocketOrigin
	t.Cleanup(func() {
		app.wg.Wait()
		store.Close()
	})
	return app
}

func d(value string) decimal.Decimal {
	return decimal.RequireFromString(value)
}

func day(year int, month time.Month, dayOfMonth int) time.Time {
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

func tx(id, description, category, amount string, date time.Time) data.Transaction {
	return data.Transaction{
		ID:          id,
		Description: description,
		Category:    category,
		Amount:      d(amount),
		Date:        date,
		DateStr:     date.Format("2006-01-02"),
	}
}

// sampleCollections spans January and February 2024.
func sampleCollections() data.Collections {
	return data.Collections{
		Expenses: []data.Transaction{
			tx("1", "LIDL 1042", "Food & Groceries", "30", day(2024, time.January, 10)),
			tx("2", "ZARA ONLINE", "Shopping", "10", day(2024, time.January, 15)),
			tx("3", "LIDL 1042", "Food & Groceries", "20", day(2024, time.February, 3)),
		},
		Income: []data.Transaction{
			tx("1", "ACME PAYROLL", "Income", "1000", day(2024, time.January, 1)),
			tx("2", "ACME PAYROLL", "Income", "1000", day(2024, time.February, 1)),
		},
		Refunds: []data.Transaction{},
	}
}

// serve sends a request through h and returns the recorded response.
func serve(t *testing.T, h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	r := httptest.NewRequest(method, target, reader)
	if body != "" {
		r.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, r)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, dst any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), dst); err != nil {
		t.Fatalf("decoding response %q: %v", rr.Body.String(), err)
	}
}
