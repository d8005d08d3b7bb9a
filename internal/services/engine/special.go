package engine

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/assets"
	"go.uber.org/zap"
)

// kfeeUSD is the fixed USD valuation of one KFEE credit.
var kfeeUSD = decimal.NewFromFloat(0.01)

// btcPerBSQ is the static fallback rate used when the Bisq market is
// unreachable.
var btcPerBSQ = decimal.RequireFromString("0.00000100")

// defaultLPProtocols are the protocol tags whose tokens represent
// two-reserve pair shares and are valued from on-chain reserves. Curve
// pools and Yearn vaults are not pair contracts and need their own
// readers, so their tokens go through the generic rotation.
var defaultLPProtocols = []string{
	"uniswap-v2",
	"sushiswap",
	"velodrome",
}

// needsPoolPricing reports whether the token is valued from on-chain
// pool state: explicitly listed, tagged with a pool protocol, or
// declaring underlying assets.
func (e *Engine) needsPoolPricing(token domain.Asset) bool {
	if _, ok := e.specialTokens[token.Identifier]; ok {
		return true
	}
	if _, ok := e.lpProtocols[token.Protocol]; ok {
		return true
	}
	return len(token.Underlying) > 0
}

// kfeePrice values KFEE at its fixed USD rate, converting to the target
// asset when that is not USD.
func (e *Engine) kfeePrice(ctx context.Context, q priceQuery) (domain.Price, domain.CurrentPriceOracleID, bool, error) {
	if !q.ignoreCache {
		if entry, ok := e.cache.Get(q.from.Identifier, q.to.Identifier, q.matchMain); ok {
			return entry.Price, entry.Oracle, entry.UsedMainCurrency, nil
		}
	}

	usdPrice := domain.NewPrice(kfeeUSD)
	if q.to.Identifier == e.usd.Identifier {
		e.cache.Set(q.from.Identifier, q.to.Identifier, usdPrice, domain.CurrentOracleFiat, false)
		return usdPrice, domain.CurrentOracleFiat, false, nil
	}

	rateQuery := q
	rateQuery.from = e.usd
	rate, oracleID, usedMain, err := e.findPrice(ctx, rateQuery)
	if err != nil {
		return domain.ZeroPrice, oracleID, false, err
	}
	if !rate.Known() {
		return domain.ZeroPrice, oracleID, false, nil
	}

	price := rate.MulDecimal(kfeeUSD)
	e.cache.Set(q.from.Identifier, q.to.Identifier, price, oracleID, usedMain)
	return price, oracleID, usedMain, nil
}

// bsqUSDPrice values BSQ through the Bisq BSQ/BTC market and the
// current BTC price. A dead market degrades to the static rate with a
// user warning instead of failing.
func (e *Engine) bsqUSDPrice(ctx context.Context, q priceQuery) (domain.Price, domain.CurrentPriceOracleID, bool, error) {
	if _, err := assets.ResolveToCrypto(e.resolver, domain.AssetBSQ); err != nil {
		e.log.Error("BSQ is not registered as a crypto asset", zap.Error(err))
		return domain.ZeroPrice, domain.CurrentOracleBlockchain, false, nil
	}

	priceInBTC, err := e.bisq.MarketPrice(ctx)
	if err != nil {
		e.msgs.AddWarning(fmt.Sprintf(
			"could not query the Bisq market for the BSQ price, using the static BTC rate instead: %v", err))
		priceInBTC = btcPerBSQ
	}

	btc, err := assets.ResolveToCrypto(e.resolver, domain.AssetBTC)
	if err != nil {
		e.log.Error("BTC is not registered as a crypto asset", zap.Error(err))
		return domain.ZeroPrice, domain.CurrentOracleBlockchain, false, nil
	}

	btcQuery := q
	btcQuery.from = btc
	btcPrice, oracleID, usedMain, err := e.findUSDPrice(ctx, btcQuery)
	if err != nil {
		return domain.ZeroPrice, oracleID, false, err
	}
	if !btcPrice.Known() {
		return domain.ZeroPrice, oracleID, false, nil
	}

	price := btcPrice.MulDecimal(priceInBTC)
	e.cache.Set(domain.AssetBSQ, e.usd.Identifier, price, oracleID, usedMain)
	return price, oracleID, usedMain, nil
}
