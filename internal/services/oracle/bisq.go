package oracle

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/kurs/pkg/retrier"
	"go.uber.org/zap"
)

const defaultBisqAPI = "https://bisq.markets/api"

// BisqMarket reads the BSQ/BTC ticker from the Bisq markets API. BSQ
// trades only there, so it bypasses the generic oracle rotation.
type BisqMarket struct {
	httpClient *http.Client
	baseURL    string
	retrier    *retrier.Retrier
	log        *zap.Logger
}

// NewBisqMarket creates the client. An empty baseURL selects the
// public API.
func NewBisqMarket(log *zap.Logger, baseURL string) *BisqMarket {
	if baseURL == "" {
		baseURL = defaultBisqAPI
	}
	return &BisqMarket{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		retrier:    retrier.New(retrier.WithMaxRetries(2)),
		log:        log,
	}
}

// MarketPrice returns the last BSQ price denominated in BTC.
func (b *BisqMarket) MarketPrice(ctx context.Context) (decimal.Decimal, error) {
	return retrier.DoWithData(b.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/ticker?market=bsq_btc", nil)
		if err != nil {
			return decimal.Zero, err
		}

		resp, err := b.httpClient.Do(req)
		if err != nil {
			return decimal.Zero, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return decimal.Zero, retrier.Permanent(errors.Errorf("bisq API status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return decimal.Zero, errors.Errorf("bisq API status %d", resp.StatusCode)
		}

		var body struct {
			Last json.Number `json:"last"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return decimal.Zero, errors.Wrap(err, "decode bisq ticker")
		}
		return decimal.NewFromString(body.Last.String())
	})
}
