package engine

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/assets"
	"github.com/vadiminshakov/kurs/internal/services/oracle"
	"github.com/vadiminshakov/kurs/internal/services/penalty"
	"github.com/vadiminshakov/kurs/internal/services/registry"
	"go.uber.org/zap"
)

// HistoricalFiatConverter is the collaborator for fiat rates at a past
// date.
type HistoricalFiatConverter interface {
	QueryHistoricalFiatPair(ctx context.Context, base, quote domain.Asset, at time.Time) (domain.Price, error)
}

// HistoricalEngine resolves prices at a past timestamp. It walks its
// own rotation and keeps no cache: callers are expected to persist
// historical prices themselves.
type HistoricalEngine struct {
	log      *zap.Logger
	resolver assets.Resolver
	registry *registry.Registry
	fiat     HistoricalFiatConverter
	usd      domain.Asset
}

// NewHistorical creates the historical engine. The main fiat currency
// must be resolvable or construction fails.
func NewHistorical(log *zap.Logger, resolver assets.Resolver, reg *registry.Registry, fiat HistoricalFiatConverter) (*HistoricalEngine, error) {
	usd, err := assets.ResolveToFiat(resolver, domain.AssetUSD)
	if err != nil {
		return nil, errors.Wrap(err, "base fiat asset is missing from the registry")
	}
	return &HistoricalEngine{
		log:      log,
		resolver: resolver,
		registry: reg,
		fiat:     fiat,
		usd:      usd,
	}, nil
}

// PriceForSpecialAsset returns the price for assets with fixed
// valuations. The second return is false when the asset has no special
// handling and the generic rotation must be used.
func (h *HistoricalEngine) PriceForSpecialAsset(ctx context.Context, from, to domain.Asset, at time.Time) (domain.Price, bool, error) {
	if from.Identifier != domain.AssetKFEE {
		return domain.ZeroPrice, false, nil
	}

	usdPrice := domain.NewPrice(kfeeUSD)
	if to.Identifier == h.usd.Identifier {
		return usdPrice, true, nil
	}

	rate, err := h.QueryHistoricalPrice(ctx, h.usd, to, at)
	if err != nil {
		return domain.ZeroPrice, true, err
	}
	return rate.MulDecimal(kfeeUSD), true, nil
}

// QueryHistoricalPrice returns the from price in to valuation at the
// given time. Unlike current resolution, exhausting every oracle is a
// hard error.
func (h *HistoricalEngine) QueryHistoricalPrice(ctx context.Context, from, to domain.Asset, at time.Time) (domain.Price, error) {
	h.log.Debug("querying historical price",
		zap.String("from", from.Identifier),
		zap.String("to", to.Identifier),
		zap.Time("at", at))

	if from.Equal(to) {
		return domain.OnePrice(), nil
	}

	if price, handled, err := h.PriceForSpecialAsset(ctx, from, to, at); handled {
		return price, err
	}

	if from.IsFiat() && to.IsFiat() {
		price, err := h.fiat.QueryHistoricalFiatPair(ctx, from, to, at)
		if err == nil && price.Known() {
			return price, nil
		}
		if err != nil {
			h.log.Warn("historical fiat conversion failed, falling back to oracle rotation",
				zap.String("from", from.Identifier),
				zap.String("to", to.Identifier),
				zap.Error(err))
		}
	}

	order, adapters, err := h.registry.HistoricalOrder()
	if err != nil {
		return domain.ZeroPrice, err
	}

	for i, adapter := range adapters {
		id := order[i]

		if rl, ok := adapter.(oracle.RateLimited); ok && rl.RateLimitedInLast(penalty.RateLimitWindow) {
			h.log.Debug("skipping rate limited oracle", zap.String("oracle", string(id)))
			continue
		}
		if pz, ok := adapter.(oracle.Penalizable); ok && pz.IsPenalized() {
			h.log.Debug("skipping penalized oracle", zap.String("oracle", string(id)))
			continue
		}

		price, err := adapter.QueryHistoricalPrice(ctx, from, to, at)
		if err != nil {
			h.log.Warn("historical price oracle failed",
				zap.String("oracle", string(id)),
				zap.String("from", from.Identifier),
				zap.String("to", to.Identifier),
				zap.Error(err))
			continue
		}
		if price.Known() {
			return price, nil
		}
	}

	return domain.ZeroPrice, &domain.NoPriceForGivenTimestampError{
		From:      from.Identifier,
		To:        to.Identifier,
		Timestamp: at,
	}
}
