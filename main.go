package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/hirokisan/bybit/v2"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/kurs/config"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/messages"
	"github.com/vadiminshakov/kurs/internal/services/assets"
	"github.com/vadiminshakov/kurs/internal/services/cache"
	"github.com/vadiminshakov/kurs/internal/services/engine"
	"github.com/vadiminshakov/kurs/internal/services/oracle"
	"github.com/vadiminshakov/kurs/internal/services/registry"
	"github.com/vadiminshakov/kurs/internal/setup"
	"github.com/vadiminshakov/kurs/internal/storage/manualprices"
	"github.com/vadiminshakov/kurs/internal/web"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const hyperliquidAPIURL = "https://api.hyperliquid.xyz"

func main() {
	if len(os.Args) > 1 && os.Args[1] == "setup" {
		if err := setup.RunTUI(); err != nil {
			os.Exit(1)
		}
		return
	}

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.Get()
	if err != nil {
		logger.Fatal("failed to get configuration", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	resolver := assets.NewRegistry(assets.DefaultAssets()...)

	mainCurrency, err := assets.ResolveToFiat(resolver, cfg.MainCurrency)
	if err != nil {
		logger.Fatal("unknown main currency", zap.String("currency", cfg.MainCurrency), zap.Error(err))
	}

	store, err := manualprices.NewStore(cfg.ManualPricesDir, manualprices.DefaultMaxDistance)
	if err != nil {
		logger.Fatal("failed to open manual prices store", zap.Error(err))
	}
	defer store.Close()

	msgs := messages.NewAggregator(logger)
	priceCache := cache.New(cfg.CacheSize, cfg.CacheTTL)
	reg := registry.New()

	binanceAdapter := oracle.NewBinance(logger, binance.NewClient("", ""))
	reg.RegisterCurrent(domain.CurrentOracleBinance, binanceAdapter)
	reg.RegisterHistorical(domain.HistoricalOracleBinance, binanceAdapter)

	bybitAdapter := oracle.NewBybit(logger, bybit.NewClient())
	reg.RegisterCurrent(domain.CurrentOracleBybit, bybitAdapter)
	reg.RegisterHistorical(domain.HistoricalOracleBybit, bybitAdapter)

	info := hyperliquid.NewInfo(ctx, hyperliquidAPIURL, true, nil, nil)
	reg.RegisterCurrent(domain.CurrentOracleHyperliquid, oracle.NewHyperliquid(logger, info))

	manualAdapter := oracle.NewManual(logger, store, resolver, mainCurrency)
	reg.RegisterCurrent(domain.CurrentOracleManual, manualAdapter)
	reg.RegisterHistorical(domain.HistoricalOracleManual, manualAdapter)

	var defi engine.LPPricer
	if cfg.EthRPC != "" {
		ethClient, err := ethclient.Dial(cfg.EthRPC)
		if err != nil {
			logger.Fatal("failed to dial ethereum RPC", zap.String("rpc", cfg.EthRPC), zap.Error(err))
		}
		defer ethClient.Close()

		uniswap, err := oracle.NewUniswapV2(logger, ethClient, resolver, cfg.Pools)
		if err != nil {
			logger.Fatal("failed to create on-chain price reader", zap.Error(err))
		}
		reg.RegisterCurrent(domain.CurrentOracleUniswapV2, uniswap)
		defi = uniswap
	} else {
		logger.Info("no ethereum RPC configured, on-chain pricing disabled")
		defi = unavailableLPPricer{}
	}

	fiat := oracle.NewFiatConverter(logger, cfg.FiatAPIURL)
	reg.RegisterHistorical(domain.HistoricalOracleFiat, fiat)

	bisq := oracle.NewBisqMarket(logger, cfg.BisqAPIURL)

	if err := reg.SetCurrentOrder(currentOrder(logger, reg, cfg.CurrentOracles)); err != nil {
		logger.Fatal("invalid current oracle order", zap.Error(err))
	}
	if err := reg.SetHistoricalOrder(historicalOrder(cfg.HistoricalOracles)); err != nil {
		logger.Fatal("invalid historical oracle order", zap.Error(err))
	}

	eng, err := engine.New(logger, engine.Config{
		Resolver: resolver,
		Cache:    priceCache,
		Registry: reg,
		Fiat:     fiat,
		Bisq:     bisq,
		Defi:     defi,
		Messages: msgs,
	})
	if err != nil {
		logger.Fatal("failed to create price engine", zap.Error(err))
	}
	manualAdapter.SetFinder(eng)
	store.SetInvalidationHook(eng.InvalidateAssets)

	histEng, err := engine.NewHistorical(logger, resolver, reg, fiat)
	if err != nil {
		logger.Fatal("failed to create historical price engine", zap.Error(err))
	}

	server := web.NewServer(logger, cfg.WebAddr, resolver, eng, histEng, store, msgs)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving price API", zap.String("addr", cfg.WebAddr))
		if len(cfg.TLSDomains) > 0 {
			return server.StartWithAutoTLS(gctx, cfg.TLSDomains, cfg.CertCacheDir)
		}
		return server.Start(gctx)
	})
	g.Go(func() error {
		return warmPairs(gctx, logger, resolver, eng, cfg.WarmupPairs, cfg.PollPriceInterval)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		logger.Error(err.Error())
	}
}

// warmPairs keeps the configured pairs resolved so interactive lookups
// hit the cache.
func warmPairs(ctx context.Context, logger *zap.Logger, resolver assets.Resolver, eng *engine.Engine, pairs []config.Pair, interval time.Duration) error {
	if len(pairs) == 0 {
		return nil
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	refresh := func() {
		for _, p := range pairs {
			from, err := resolver.Resolve(p.From)
			if err != nil {
				logger.Warn("skipping unknown warm pair asset", zap.String("asset", p.From))
				continue
			}
			to, err := resolver.Resolve(p.To)
			if err != nil {
				logger.Warn("skipping unknown warm pair asset", zap.String("asset", p.To))
				continue
			}

			price, err := eng.FindPrice(ctx, from, to, true, false)
			if err != nil {
				logger.Warn("warm pair refresh failed", zap.String("pair", p.String()), zap.Error(err))
				continue
			}
			logger.Debug("refreshed pair", zap.String("pair", p.String()), zap.String("price", price.String()))
		}
	}

	refresh()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			refresh()
		}
	}
}

// currentOrder maps configured oracle names onto ids, dropping names
// with no registered adapter so a missing RPC does not make the default
// order unusable.
func currentOrder(logger *zap.Logger, reg *registry.Registry, names []string) []domain.CurrentPriceOracleID {
	ids := make([]domain.CurrentPriceOracleID, 0, len(names))
	for _, name := range names {
		id := domain.CurrentPriceOracleID(name)
		if id == domain.CurrentOracleUniswapV2 && !reg.HasCurrent(id) {
			logger.Warn("dropping on-chain oracle from order, no ethereum RPC configured")
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func historicalOrder(names []string) []domain.HistoricalPriceOracleID {
	ids := make([]domain.HistoricalPriceOracleID, 0, len(names))
	for _, name := range names {
		ids = append(ids, domain.HistoricalPriceOracleID(name))
	}
	return ids
}

// unavailableLPPricer stands in when no ethereum RPC is configured.
type unavailableLPPricer struct{}

func (unavailableLPPricer) LPPrice(ctx context.Context, token domain.Asset, priceUSD func(ctx context.Context, identifier string) (domain.Price, error)) (domain.Price, error) {
	return domain.ZeroPrice, &domain.DefiPoolError{Token: token.Identifier, Reason: "on-chain pricing is not configured"}
}
