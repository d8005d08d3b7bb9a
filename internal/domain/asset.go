// Package domain defines core data structures used throughout the price engine.
package domain

// Well-known asset identifiers with dedicated pricing rules.
const (
	AssetUSD  = "USD"
	AssetBTC  = "BTC"
	AssetWETH = "WETH"
	// AssetKFEE is the Kraken fee credit unit, fixed at 0.01 USD.
	AssetKFEE = "KFEE"
	// AssetBSQ is the Bisq DAO token, priced through the Bisq market in BTC.
	AssetBSQ = "BSQ"
)

// AssetKind classifies an asset for resolution purposes.
type AssetKind uint8

const (
	KindFiat AssetKind = iota
	KindCrypto
	KindEvmToken
)

// String returns the string representation.
func (k AssetKind) String() string {
	switch k {
	case KindFiat:
		return "fiat"
	case KindCrypto:
		return "crypto"
	case KindEvmToken:
		return "evm-token"
	}
	return "unknown"
}

// ChainID identifies an EVM chain.
type ChainID uint64

// ChainEthereum is the only chain with pool pricing wired by default.
const ChainEthereum ChainID = 1

// Asset is an immutable description of a priceable asset. It is owned
// by the asset resolver and passed around by value; identity is the
// Identifier field alone.
type Asset struct {
	Identifier string
	Symbol     string
	Kind       AssetKind

	// EVM token fields, zero unless Kind == KindEvmToken.
	ChainID  ChainID
	Address  string
	Decimals uint8
	Protocol string
	// Underlying lists identifiers of the assets an LP/derivative
	// token is composed of.
	Underlying []string
}

// Equal reports whether both assets refer to the same identifier.
func (a Asset) Equal(b Asset) bool {
	return a.Identifier == b.Identifier
}

// IsFiat reports whether the asset is a fiat currency.
func (a Asset) IsFiat() bool { return a.Kind == KindFiat }

// IsEvmToken reports whether the asset is an EVM token.
func (a Asset) IsEvmToken() bool { return a.Kind == KindEvmToken }

// PairSymbol returns the concatenated exchange symbol for a pair, e.g. BTCUSDT.
func PairSymbol(from, to Asset) string {
	return from.Symbol + to.Symbol
}
