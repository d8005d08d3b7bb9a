package domain

// CurrentPriceOracleID names a configured source of current prices.
type CurrentPriceOracleID string

const (
	CurrentOracleBinance     CurrentPriceOracleID = "binance"
	CurrentOracleBybit       CurrentPriceOracleID = "bybit"
	CurrentOracleHyperliquid CurrentPriceOracleID = "hyperliquid"
	CurrentOracleUniswapV2   CurrentPriceOracleID = "uniswapv2"
	CurrentOracleManual      CurrentPriceOracleID = "manual"
	CurrentOracleFiat        CurrentPriceOracleID = "fiat"
	// CurrentOracleBlockchain tags prices computed from on-chain state
	// outside the generic oracle loop (pool reads, defaults).
	CurrentOracleBlockchain CurrentPriceOracleID = "blockchain"
)

// IsOnchain reports whether the oracle reads prices from chain state
// and should be skipped when on-chain lookups are disabled.
func (id CurrentPriceOracleID) IsOnchain() bool {
	return id == CurrentOracleUniswapV2
}

// HistoricalPriceOracleID names a configured source of historical prices.
type HistoricalPriceOracleID string

const (
	HistoricalOracleBinance HistoricalPriceOracleID = "binance"
	HistoricalOracleBybit   HistoricalPriceOracleID = "bybit"
	HistoricalOracleManual  HistoricalPriceOracleID = "manual"
	HistoricalOracleFiat    HistoricalPriceOracleID = "fiat"
)
