package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/penalty"
	"go.uber.org/zap"
)

// Bybit serves current and historical prices from the Bybit V5 spot API.
type Bybit struct {
	client  *bybit.Client
	policy  *penalty.Policy
	limiter *penalty.RateLimitTracker
	log     *zap.Logger
}

// NewBybit creates the adapter around an initialized client.
func NewBybit(log *zap.Logger, client *bybit.Client) *Bybit {
	return &Bybit{
		client:  client,
		policy:  penalty.NewPolicy(),
		limiter: penalty.NewRateLimitTracker(),
		log:     log,
	}
}

// QueryCurrentPrice returns the last traded spot price for the pair.
func (b *Bybit) QueryCurrentPrice(ctx context.Context, q Query) (domain.Price, bool, error) {
	symbol := bybit.SymbolV5(domain.PairSymbol(q.From, q.To))

	result, err := b.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: "spot",
		Symbol:   &symbol,
	})
	if err != nil {
		b.noteFailure(err)
		return domain.ZeroPrice, false, &domain.RemoteError{Oracle: string(domain.CurrentOracleBybit), Err: err}
	}
	if len(result.Result.Spot.List) == 0 {
		return domain.ZeroPrice, false, &domain.UnsupportedAssetError{
			Oracle: string(domain.CurrentOracleBybit),
			From:   q.From.Identifier,
			To:     q.To.Identifier,
		}
	}

	price, err := domain.NewPriceFromString(result.Result.Spot.List[0].LastPrice)
	if err != nil {
		b.policy.RecordFailure()
		return domain.ZeroPrice, false, &domain.RemoteError{
			Oracle: string(domain.CurrentOracleBybit),
			Err:    errors.Wrapf(err, "unparseable price for %s", symbol),
		}
	}

	b.policy.RecordSuccess()
	return price, false, nil
}

// QueryHistoricalPrice averages open and close of the hour candle
// covering the requested timestamp.
func (b *Bybit) QueryHistoricalPrice(ctx context.Context, from, to domain.Asset, at time.Time) (domain.Price, error) {
	start := at.Add(-time.Hour).Unix() * 1000
	end := at.Add(time.Hour).Unix() * 1000

	klines, err := b.client.V5().Market().GetKline(bybit.V5GetKlineParam{
		Category: "spot",
		Symbol:   bybit.SymbolV5(domain.PairSymbol(from, to)),
		Interval: bybit.Interval60,
		Start:    &start,
		End:      &end,
	})
	if err != nil {
		b.noteFailure(err)
		return domain.ZeroPrice, &domain.RemoteError{Oracle: string(domain.HistoricalOracleBybit), Err: err}
	}
	if len(klines.Result.List) == 0 {
		return domain.ZeroPrice, &domain.NoPriceForGivenTimestampError{
			From:      from.Identifier,
			To:        to.Identifier,
			Timestamp: at,
		}
	}

	k := klines.Result.List[0]
	open, err := decimal.NewFromString(k.Open)
	if err != nil {
		return domain.ZeroPrice, errors.Wrap(err, "unparseable kline open")
	}
	closePrice, err := decimal.NewFromString(k.Close)
	if err != nil {
		return domain.ZeroPrice, errors.Wrap(err, "unparseable kline close")
	}

	b.policy.RecordSuccess()
	return domain.NewPrice(open.Add(closePrice).Div(decimal.NewFromInt(2))), nil
}

// IsPenalized reports whether the adapter is in a penalty window.
func (b *Bybit) IsPenalized() bool { return b.policy.IsPenalized() }

// RateLimitedInLast reports whether Bybit throttled us within the window.
func (b *Bybit) RateLimitedInLast(window time.Duration) bool {
	return b.limiter.LimitedInLast(window)
}

func (b *Bybit) noteFailure(err error) {
	b.policy.RecordFailure()

	// retCode 10006 is Bybit's request-per-second throttle.
	msg := err.Error()
	if strings.Contains(msg, "10006") || strings.Contains(strings.ToLower(msg), "too many") {
		b.limiter.Note()
		b.log.Warn("bybit rate limited", zap.Error(err))
	}
}
