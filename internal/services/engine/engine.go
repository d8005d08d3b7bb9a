// Package engine orchestrates price discovery: special-case overrides,
// the TTL cache and the ordered oracle rotation.
package engine

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/messages"
	"github.com/vadiminshakov/kurs/internal/services/assets"
	"github.com/vadiminshakov/kurs/internal/services/cache"
	"github.com/vadiminshakov/kurs/internal/services/oracle"
	"github.com/vadiminshakov/kurs/internal/services/penalty"
	"github.com/vadiminshakov/kurs/internal/services/registry"
	"go.uber.org/zap"
)

// FiatConverter is the collaborator for direct fiat-to-fiat rates.
type FiatConverter interface {
	QueryFiatPair(ctx context.Context, base, quote domain.Asset) (domain.Price, domain.CurrentPriceOracleID, error)
}

// BisqTicker is the dedicated market lookup for BSQ, quoted in BTC.
type BisqTicker interface {
	MarketPrice(ctx context.Context) (decimal.Decimal, error)
}

// LPPricer values pool-representation tokens from on-chain state.
type LPPricer interface {
	LPPrice(ctx context.Context, token domain.Asset, priceUSD func(ctx context.Context, identifier string) (domain.Price, error)) (domain.Price, error)
}

// Config wires the engine's collaborators.
type Config struct {
	Resolver assets.Resolver
	Cache    *cache.PriceCache
	Registry *registry.Registry
	Fiat     FiatConverter
	Bisq     BisqTicker
	Defi     LPPricer
	Messages messages.Sink
	// SpecialTokens are identifiers always priced through the on-chain
	// pool computation. Merged with tokens recognized by protocol tag
	// or declared underlying assets.
	SpecialTokens []string
	// LPProtocols overrides the default set of protocol tags treated
	// as pool representations.
	LPProtocols []string
}

// Engine resolves current prices. It is long-lived, shared state:
// orders and the special token set are immutable after configuration,
// the cache and penalty counters synchronize internally.
type Engine struct {
	log           *zap.Logger
	resolver      assets.Resolver
	cache         *cache.PriceCache
	registry      *registry.Registry
	fiat          FiatConverter
	bisq          BisqTicker
	defi          LPPricer
	msgs          messages.Sink
	usd           domain.Asset
	specialTokens map[string]struct{}
	lpProtocols   map[string]struct{}
}

// New creates the engine. The main fiat currency must be resolvable or
// construction fails.
func New(log *zap.Logger, cfg Config) (*Engine, error) {
	usd, err := assets.ResolveToFiat(cfg.Resolver, domain.AssetUSD)
	if err != nil {
		return nil, errors.Wrap(err, "base fiat asset is missing from the registry")
	}

	special := make(map[string]struct{}, len(cfg.SpecialTokens))
	for _, id := range cfg.SpecialTokens {
		special[id] = struct{}{}
	}

	protocols := cfg.LPProtocols
	if protocols == nil {
		protocols = defaultLPProtocols
	}
	lp := make(map[string]struct{}, len(protocols))
	for _, p := range protocols {
		lp[p] = struct{}{}
	}

	return &Engine{
		log:           log,
		resolver:      cfg.Resolver,
		cache:         cfg.Cache,
		registry:      cfg.Registry,
		fiat:          cfg.Fiat,
		bisq:          cfg.Bisq,
		defi:          cfg.Defi,
		msgs:          cfg.Messages,
		usd:           usd,
		specialTokens: special,
		lpProtocols:   lp,
	}, nil
}

// Registry exposes the oracle registry for order configuration.
func (e *Engine) Registry() *registry.Registry { return e.registry }

// FindPrice returns the current price of from in to valuation. All
// provider failures are absorbed; the zero sentinel means every option
// was exhausted. Only a missing oracle configuration errors.
func (e *Engine) FindPrice(ctx context.Context, from, to domain.Asset, ignoreCache, skipOnchain bool) (domain.Price, error) {
	price, _, _, err := e.findPrice(ctx, priceQuery{
		from:        from,
		to:          to,
		ignoreCache: ignoreCache,
		skipOnchain: skipOnchain,
	})
	return price, err
}

// FindPriceWithOracle is FindPrice plus the oracle that answered and
// whether the price is in the deployment's main currency.
func (e *Engine) FindPriceWithOracle(ctx context.Context, from, to domain.Asset, ignoreCache, skipOnchain, matchMainCurrency bool) (domain.Price, domain.CurrentPriceOracleID, bool, error) {
	return e.findPrice(ctx, priceQuery{
		from:        from,
		to:          to,
		ignoreCache: ignoreCache,
		skipOnchain: skipOnchain,
		matchMain:   matchMainCurrency,
	})
}

// FindUSDPrice returns the current USD price of the asset.
func (e *Engine) FindUSDPrice(ctx context.Context, asset domain.Asset, ignoreCache, skipOnchain bool) (domain.Price, error) {
	price, _, _, err := e.findUSDPrice(ctx, priceQuery{
		from:        asset,
		to:          e.usd,
		ignoreCache: ignoreCache,
		skipOnchain: skipOnchain,
	})
	return price, err
}

// FindUSDPriceWithOracle is FindUSDPrice plus resolution provenance.
func (e *Engine) FindUSDPriceWithOracle(ctx context.Context, asset domain.Asset, ignoreCache, skipOnchain, matchMainCurrency bool) (domain.Price, domain.CurrentPriceOracleID, bool, error) {
	return e.findUSDPrice(ctx, priceQuery{
		from:        asset,
		to:          e.usd,
		ignoreCache: ignoreCache,
		skipOnchain: skipOnchain,
		matchMain:   matchMainCurrency,
	})
}

// FindPriceFrom is the callback used by the manual oracle to resolve
// the quote side of relative prices. The visited set carries the assets
// already being resolved up the chain.
func (e *Engine) FindPriceFrom(ctx context.Context, from, to domain.Asset, visited oracle.Visited) (domain.Price, error) {
	price, _, _, err := e.findPrice(ctx, priceQuery{from: from, to: to, visited: visited})
	return price, err
}

// InvalidateAssets drops every cached price mentioning the assets.
func (e *Engine) InvalidateAssets(identifiers ...string) {
	e.cache.InvalidateAssets(identifiers...)
}

type priceQuery struct {
	from        domain.Asset
	to          domain.Asset
	ignoreCache bool
	skipOnchain bool
	matchMain   bool
	visited     oracle.Visited
}

func (e *Engine) findPrice(ctx context.Context, q priceQuery) (domain.Price, domain.CurrentPriceOracleID, bool, error) {
	if q.from.Equal(q.to) {
		return domain.OnePrice(), domain.CurrentOracleManual, false, nil
	}

	if q.visited.Has(q.from.Identifier) {
		return domain.ZeroPrice, domain.CurrentOracleBlockchain, false, &domain.PriceLoopError{
			From: q.from.Identifier,
			To:   q.to.Identifier,
		}
	}

	if q.from.Identifier == domain.AssetKFEE {
		return e.kfeePrice(ctx, q)
	}

	if q.to.Identifier == e.usd.Identifier {
		return e.findUSDPrice(ctx, q)
	}

	if !q.ignoreCache {
		if entry, ok := e.cache.Get(q.from.Identifier, q.to.Identifier, q.matchMain); ok {
			return entry.Price, entry.Oracle, entry.UsedMainCurrency, nil
		}
	}

	return e.queryOracles(ctx, q)
}

func (e *Engine) findUSDPrice(ctx context.Context, q priceQuery) (domain.Price, domain.CurrentPriceOracleID, bool, error) {
	asset := q.from
	if asset.Identifier == e.usd.Identifier {
		return domain.OnePrice(), domain.CurrentOracleFiat, false, nil
	}

	if !q.ignoreCache {
		if entry, ok := e.cache.Get(asset.Identifier, e.usd.Identifier, q.matchMain); ok {
			return entry.Price, entry.Oracle, entry.UsedMainCurrency, nil
		}
	}

	resolved, err := e.resolver.Resolve(asset.Identifier)
	if err != nil {
		e.log.Error("asked for price of an asset missing from the registry",
			zap.String("asset", asset.Identifier), zap.Error(err))
		return domain.ZeroPrice, domain.CurrentOracleFiat, false, nil
	}

	if resolved.IsFiat() {
		price, oracleID, err := e.fiat.QueryFiatPair(ctx, resolved, e.usd)
		if err == nil {
			return price, oracleID, false, nil
		}
		e.log.Warn("fiat conversion failed, falling back to oracle rotation",
			zap.String("asset", resolved.Identifier), zap.Error(err))
	}

	if resolved.IsEvmToken() && e.needsPoolPricing(resolved) {
		price, err := e.defi.LPPrice(ctx, resolved, e.usdPriceFunc(q))
		if err == nil && price.Known() {
			e.cache.Set(resolved.Identifier, e.usd.Identifier, price, domain.CurrentOracleBlockchain, false)
			return price, domain.CurrentOracleBlockchain, false, nil
		}
		e.log.Warn("on-chain pool pricing failed, falling back to oracle rotation",
			zap.String("token", resolved.Identifier), zap.Error(err))
	}

	if resolved.Identifier == domain.AssetBSQ {
		return e.bsqUSDPrice(ctx, q)
	}

	if resolved.Identifier == domain.AssetKFEE {
		price := domain.NewPrice(kfeeUSD)
		e.cache.Set(resolved.Identifier, e.usd.Identifier, price, domain.CurrentOracleFiat, false)
		return price, domain.CurrentOracleFiat, false, nil
	}

	generic := q
	generic.from = resolved
	generic.to = e.usd
	return e.queryOracles(ctx, generic)
}

// queryOracles walks the configured rotation in order: first source
// that answers with a known price wins. The result is cached
// unconditionally, zero sentinel included, so unpriceable assets are
// retried at most once per TTL.
func (e *Engine) queryOracles(ctx context.Context, q priceQuery) (domain.Price, domain.CurrentPriceOracleID, bool, error) {
	order, adapters, err := e.registry.CurrentOrder(q.skipOnchain)
	if err != nil {
		return domain.ZeroPrice, domain.CurrentOracleBlockchain, false, err
	}

	price := domain.ZeroPrice
	queried := domain.CurrentOracleBlockchain
	usedMain := false

	for i, adapter := range adapters {
		id := order[i]

		if rl, ok := adapter.(oracle.RateLimited); ok && rl.RateLimitedInLast(penalty.RateLimitWindow) {
			e.log.Debug("skipping rate limited oracle", zap.String("oracle", string(id)))
			continue
		}
		if pz, ok := adapter.(oracle.Penalizable); ok && pz.IsPenalized() {
			e.log.Debug("skipping penalized oracle", zap.String("oracle", string(id)))
			continue
		}

		p, um, err := adapter.QueryCurrentPrice(ctx, oracle.Query{
			From:              q.from,
			To:                q.to,
			MatchMainCurrency: q.matchMain,
			Visited:           q.visited,
		})
		if err != nil {
			var loopErr *domain.PriceLoopError
			if errors.As(err, &loopErr) {
				if len(q.visited) > 0 {
					// Already inside a manual-price lookup: the loop is
					// fatal for this call.
					return domain.ZeroPrice, queried, false, err
				}
				e.msgs.AddWarning(fmt.Sprintf(
					"was not able to find price from %s to %s since your manual latest prices form a loop; other oracles will be used",
					q.from.Identifier, q.to.Identifier))
				continue
			}

			e.log.Warn("current price oracle failed",
				zap.String("oracle", string(id)),
				zap.String("from", q.from.Identifier),
				zap.String("to", q.to.Identifier),
				zap.Error(err))
			continue
		}

		if p.Known() {
			price, queried, usedMain = p, id, um
			e.log.Debug("current price oracle got price",
				zap.String("oracle", string(id)),
				zap.String("from", q.from.Identifier),
				zap.String("to", q.to.Identifier),
				zap.String("price", p.String()))
			break
		}
	}

	e.cache.Set(q.from.Identifier, q.to.Identifier, price, queried, usedMain)
	return price, queried, usedMain, nil
}

// usdPriceFunc adapts the engine into the callback the LP pricer uses
// for underlying assets.
func (e *Engine) usdPriceFunc(q priceQuery) func(ctx context.Context, identifier string) (domain.Price, error) {
	return func(ctx context.Context, identifier string) (domain.Price, error) {
		a, err := e.resolver.Resolve(identifier)
		if err != nil {
			return domain.ZeroPrice, err
		}
		price, _, _, err := e.findUSDPrice(ctx, priceQuery{
			from:        a,
			to:          e.usd,
			skipOnchain: q.skipOnchain,
			visited:     q.visited,
		})
		return price, err
	}
}
