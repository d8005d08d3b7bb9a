package oracle

import (
	"context"
	"time"

	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/assets"
	"github.com/vadiminshakov/kurs/internal/storage/manualprices"
	"go.uber.org/zap"
)

// Manual serves user-entered prices. An entry may be denominated in any
// quote asset ("A is worth 2xB"); resolving the quote side goes back
// through the engine, which is where price loops can appear.
type Manual struct {
	store        *manualprices.Store
	resolver     assets.Resolver
	mainCurrency domain.Asset
	finder       PriceFinder
	log          *zap.Logger
}

// NewManual creates the manual oracle. The finder is attached later via
// SetFinder because the engine and this oracle reference each other.
func NewManual(log *zap.Logger, store *manualprices.Store, resolver assets.Resolver, mainCurrency domain.Asset) *Manual {
	return &Manual{
		store:        store,
		resolver:     resolver,
		mainCurrency: mainCurrency,
		log:          log,
	}
}

// SetFinder attaches the engine callback used for relative prices.
func (m *Manual) SetFinder(finder PriceFinder) {
	m.finder = finder
}

// QueryCurrentPrice answers from the latest stored manual price.
func (m *Manual) QueryCurrentPrice(ctx context.Context, q Query) (domain.Price, bool, error) {
	point, ok := m.store.Latest(q.From.Identifier)
	if !ok {
		return domain.ZeroPrice, false, &domain.UnsupportedAssetError{
			Oracle: string(domain.CurrentOracleManual),
			From:   q.From.Identifier,
			To:     q.To.Identifier,
		}
	}

	if q.MatchMainCurrency && point.Quote == m.mainCurrency.Identifier {
		return domain.NewPrice(point.Price), true, nil
	}

	if point.Quote == q.To.Identifier {
		return domain.NewPrice(point.Price), false, nil
	}

	// The stored price is relative to another asset; convert its quote
	// side through the engine, carrying the visited set for loop
	// detection.
	if m.finder == nil {
		return domain.ZeroPrice, false, &domain.UnsupportedAssetError{
			Oracle: string(domain.CurrentOracleManual),
			From:   q.From.Identifier,
			To:     q.To.Identifier,
		}
	}

	quote, err := m.resolver.Resolve(point.Quote)
	if err != nil {
		m.log.Warn("manual price quote asset is unresolvable",
			zap.String("from", q.From.Identifier),
			zap.String("quote", point.Quote),
			zap.Error(err))
		return domain.ZeroPrice, false, &domain.UnsupportedAssetError{
			Oracle: string(domain.CurrentOracleManual),
			From:   q.From.Identifier,
			To:     q.To.Identifier,
		}
	}

	rate, err := m.finder.FindPriceFrom(ctx, quote, q.To, q.Visited.With(q.From.Identifier))
	if err != nil {
		return domain.ZeroPrice, false, err
	}
	if !rate.Known() {
		return domain.ZeroPrice, false, nil
	}

	return rate.MulDecimal(point.Price), false, nil
}

// QueryHistoricalPrice answers from a recorded price near the requested
// timestamp, honoring the store's max allowed distance.
func (m *Manual) QueryHistoricalPrice(ctx context.Context, from, to domain.Asset, at time.Time) (domain.Price, error) {
	point, ok := m.store.AtTimestamp(from.Identifier, to.Identifier, at)
	if !ok {
		return domain.ZeroPrice, &domain.NoPriceForGivenTimestampError{
			From:      from.Identifier,
			To:        to.Identifier,
			Timestamp: at,
		}
	}

	m.log.Debug("got historical manual price",
		zap.String("from", from.Identifier),
		zap.String("to", to.Identifier),
		zap.Time("timestamp", at))
	return domain.NewPrice(point.Price), nil
}
