package fetcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Blue-Davinci/SmartSave/internal/data"
	"github.com/Blue-Davinci/SmartSave/internal/httpclient"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var (
	// ErrNetwork covers transport failures, non-2xx statuses and cancellation.
	ErrNetwork = errors.New("fetcher: network error")
	// ErrParse covers malformed bodies and records that cannot be normalized.
	ErrParse = errors.New("fetcher: parse error")
)

// Fetcher pulls the expense, income and refund collections from the feed.
type Fetcher struct {
	client      *httpclient.Client
	baseURL     string
	strictDates bool
	logger      *zap.Logger
}

func New(client *httpclient.Client, baseURL string, strictDates bool, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		client:      client,
		baseURL:     strings.TrimRight(baseURL, "/"),
		strictDates: strictDates,
		logger:      logger,
	}
}

// FetchCollection retrieves and normalizes one collection.
func (f *Fetcher) FetchCollection(ctx context.Context, kind data.TransactionKind) ([]data.Transaction, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown collection %q", ErrParse, kind)
	}
	url := f.baseURL + "/" + string(kind)
	// Only the collection field is decoded; other envelope fields are ignored.
	envelope, err := httpclient.GETRequest[map[string]json.RawMessage](ctx, f.client, url, nil)
	if err != nil {
		if errors.Is(err, httpclient.ErrDecode) {
			return nil, fmt.Errorf("%w: %s: %v", ErrParse, kind, err)
		}
		return nil, fmt.Errorf("%w: %s: %v", ErrNetwork, kind, err)
	}
	field, ok := envelope[string(kind)]
	if !ok {
		return nil, fmt.Errorf("%w: %s: response has no %q field", ErrParse, kind, kind)
	}
	var raws []data.RawTransaction
	if err := json.Unmarshal(field, &raws); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrParse, kind, err)
	}

	txs := make([]data.Transaction, 0, len(raws))
	for i, raw := range raws {
		tx, fellBack, err := data.NormalizeTransaction(raw, i, kind, f.strictDates)
		if err != nil {
			return nil, fmt.Errorf("%w: %s record %d: %v", ErrParse, kind, i, err)
		}
		if fellBack {
			f.logger.Warn("unparseable date, using epoch",
				zap.String("collection", string(kind)),
				zap.String("id", tx.ID),
				zap.String("date_str", raw.DateStr))
		}
		txs = append(txs, tx)
	}
	f.logger.Debug("collection fetched", zap.String("collection", string(kind)), zap.Int("records", len(txs)))
	return txs, nil
}

// FetchAll retrieves the three collections concurrently. The first failure
// cancels the other requests and no partial data is returned.
func (f *Fetcher) FetchAll(ctx context.Context) (data.Collections, error) {
	g, ctx := errgroup.WithContext(ctx)
	results := make([][]data.Transaction, len(data.AllKinds))
	for i, kind := range data.AllKinds {
		g.Go(func() error {
			txs, err := f.FetchCollection(ctx, kind)
			if err != nil {
				return err
			}
			results[i] = txs
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return data.Collections{}, err
	}
	return data.Collections{
		Expenses: results[0],
		Income:   results[1],
		Refunds:  results[2],
	}, nil
}
