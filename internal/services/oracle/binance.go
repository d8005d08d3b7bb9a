package oracle

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/penalty"
	"go.uber.org/zap"
)

const binanceKlineInterval = "1h"

// Binance serves current and historical prices from the Binance spot API.
type Binance struct {
	client  *binance.Client
	policy  *penalty.Policy
	limiter *penalty.RateLimitTracker
	log     *zap.Logger
}

// NewBinance creates the adapter around an initialized client.
func NewBinance(log *zap.Logger, client *binance.Client) *Binance {
	return &Binance{
		client:  client,
		policy:  penalty.NewPolicy(),
		limiter: penalty.NewRateLimitTracker(),
		log:     log,
	}
}

// QueryCurrentPrice returns the last traded price for the pair symbol.
func (b *Binance) QueryCurrentPrice(ctx context.Context, q Query) (domain.Price, bool, error) {
	symbol := domain.PairSymbol(q.From, q.To)

	prices, err := b.client.NewListPricesService().Symbol(symbol).Do(ctx)
	if err != nil {
		b.noteFailure(err)
		return domain.ZeroPrice, false, &domain.RemoteError{Oracle: string(domain.CurrentOracleBinance), Err: err}
	}
	if len(prices) == 0 {
		return domain.ZeroPrice, false, &domain.UnsupportedAssetError{
			Oracle: string(domain.CurrentOracleBinance),
			From:   q.From.Identifier,
			To:     q.To.Identifier,
		}
	}

	price, err := domain.NewPriceFromString(prices[0].Price)
	if err != nil {
		b.policy.RecordFailure()
		return domain.ZeroPrice, false, &domain.RemoteError{
			Oracle: string(domain.CurrentOracleBinance),
			Err:    errors.Wrapf(err, "unparseable price %q for %s", prices[0].Price, symbol),
		}
	}

	b.policy.RecordSuccess()
	return price, false, nil
}

// QueryHistoricalPrice averages the open and close of the hour candle
// covering the requested timestamp.
func (b *Binance) QueryHistoricalPrice(ctx context.Context, from, to domain.Asset, at time.Time) (domain.Price, error) {
	symbol := domain.PairSymbol(from, to)
	startTime := at.Add(-time.Hour).Unix() * 1000
	endTime := at.Add(time.Hour).Unix() * 1000

	klines, err := b.client.NewKlinesService().Symbol(symbol).
		StartTime(startTime).
		EndTime(endTime).
		Interval(binanceKlineInterval).
		Limit(1).
		Do(ctx)
	if err != nil {
		b.noteFailure(err)
		return domain.ZeroPrice, &domain.RemoteError{Oracle: string(domain.HistoricalOracleBinance), Err: err}
	}
	if len(klines) == 0 {
		return domain.ZeroPrice, &domain.NoPriceForGivenTimestampError{
			From:      from.Identifier,
			To:        to.Identifier,
			Timestamp: at,
		}
	}

	open, err := decimal.NewFromString(klines[0].Open)
	if err != nil {
		return domain.ZeroPrice, errors.Wrap(err, "unparseable kline open")
	}
	closePrice, err := decimal.NewFromString(klines[0].Close)
	if err != nil {
		return domain.ZeroPrice, errors.Wrap(err, "unparseable kline close")
	}

	b.policy.RecordSuccess()
	return domain.NewPrice(open.Add(closePrice).Div(decimal.NewFromInt(2))), nil
}

// IsPenalized reports whether the adapter is in a penalty window.
func (b *Binance) IsPenalized() bool { return b.policy.IsPenalized() }

// RateLimitedInLast reports whether Binance throttled us within the window.
func (b *Binance) RateLimitedInLast(window time.Duration) bool {
	return b.limiter.LimitedInLast(window)
}

func (b *Binance) noteFailure(err error) {
	b.policy.RecordFailure()

	var apiErr *common.APIError
	if errors.As(err, &apiErr) && (apiErr.Code == -1003 || apiErr.Code == -1015) {
		b.limiter.Note()
		b.log.Warn("binance rate limited", zap.Int64("code", apiErr.Code))
	}
}
