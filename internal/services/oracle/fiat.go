package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/penalty"
	"github.com/vadiminshakov/kurs/pkg/retrier"
	"go.uber.org/zap"
)

const defaultFiatAPI = "https://api.frankfurter.app"

// FiatConverter answers fiat-to-fiat conversions through a public
// exchange-rate API. It is the dedicated collaborator for the fiat
// path, not a member of the crypto oracle rotation.
type FiatConverter struct {
	httpClient *http.Client
	baseURL    string
	retrier    *retrier.Retrier
	policy     *penalty.Policy
	limiter    *penalty.RateLimitTracker
	log        *zap.Logger
}

// NewFiatConverter creates the converter. An empty baseURL selects the
// default public API.
func NewFiatConverter(log *zap.Logger, baseURL string) *FiatConverter {
	if baseURL == "" {
		baseURL = defaultFiatAPI
	}
	return &FiatConverter{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    baseURL,
		retrier:    retrier.New(retrier.WithMaxRetries(2)),
		policy:     penalty.NewPolicy(),
		limiter:    penalty.NewRateLimitTracker(),
		log:        log,
	}
}

// QueryFiatPair returns how much one unit of base is worth in quote.
func (f *FiatConverter) QueryFiatPair(ctx context.Context, base, quote domain.Asset) (domain.Price, domain.CurrentPriceOracleID, error) {
	endpoint := fmt.Sprintf("%s/latest?from=%s&to=%s",
		f.baseURL, url.QueryEscape(base.Symbol), url.QueryEscape(quote.Symbol))

	price, err := f.fetchRate(ctx, endpoint, quote.Symbol)
	if err != nil {
		return domain.ZeroPrice, domain.CurrentOracleFiat, err
	}
	return price, domain.CurrentOracleFiat, nil
}

// QueryHistoricalFiatPair returns the base/quote rate on the given day.
func (f *FiatConverter) QueryHistoricalFiatPair(ctx context.Context, base, quote domain.Asset, at time.Time) (domain.Price, error) {
	endpoint := fmt.Sprintf("%s/%s?from=%s&to=%s",
		f.baseURL, at.UTC().Format("2006-01-02"),
		url.QueryEscape(base.Symbol), url.QueryEscape(quote.Symbol))

	return f.fetchRate(ctx, endpoint, quote.Symbol)
}

// QueryHistoricalPrice serves the historical oracle contract. Only
// fiat pairs are answerable through the exchange-rate API.
func (f *FiatConverter) QueryHistoricalPrice(ctx context.Context, from, to domain.Asset, at time.Time) (domain.Price, error) {
	if !from.IsFiat() || !to.IsFiat() {
		return domain.ZeroPrice, &domain.UnsupportedAssetError{
			Oracle: string(domain.CurrentOracleFiat),
			From:   from.Identifier,
			To:     to.Identifier,
		}
	}
	return f.QueryHistoricalFiatPair(ctx, from, to, at)
}

// IsPenalized reports whether the converter is in a penalty window.
func (f *FiatConverter) IsPenalized() bool { return f.policy.IsPenalized() }

// RateLimitedInLast reports whether the API throttled us within the window.
func (f *FiatConverter) RateLimitedInLast(window time.Duration) bool {
	return f.limiter.LimitedInLast(window)
}

func (f *FiatConverter) fetchRate(ctx context.Context, endpoint, quoteSymbol string) (domain.Price, error) {
	rate, err := retrier.DoWithData(f.retrier, ctx, func(ctx context.Context) (decimal.Decimal, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return decimal.Zero, err
		}

		resp, err := f.httpClient.Do(req)
		if err != nil {
			return decimal.Zero, err
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests {
			f.limiter.Note()
			return decimal.Zero, errors.New("fiat API rate limited")
		}
		if resp.StatusCode >= 400 && resp.StatusCode < 500 {
			return decimal.Zero, retrier.Permanent(errors.Errorf("fiat API status %d", resp.StatusCode))
		}
		if resp.StatusCode != http.StatusOK {
			return decimal.Zero, errors.Errorf("fiat API status %d", resp.StatusCode)
		}

		var body struct {
			Rates map[string]json.Number `json:"rates"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return decimal.Zero, errors.Wrap(err, "decode fiat rates")
		}

		raw, ok := body.Rates[quoteSymbol]
		if !ok {
			return decimal.Zero, errors.Errorf("fiat API has no rate for %s", quoteSymbol)
		}
		return decimal.NewFromString(raw.String())
	})
	if err != nil {
		f.policy.RecordFailure()
		return domain.ZeroPrice, &domain.RemoteError{Oracle: string(domain.CurrentOracleFiat), Err: err}
	}

	f.policy.RecordSuccess()
	return domain.NewPrice(rate), nil
}
