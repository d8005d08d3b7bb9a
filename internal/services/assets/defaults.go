package assets

import "github.com/vadiminshakov/kurs/internal/domain"

// DefaultAssets is the built-in catalog. Deployments extend it through
// Registry.Add at startup.
func DefaultAssets() []domain.Asset {
	return []domain.Asset{
		{Identifier: "USD", Symbol: "USD", Kind: domain.KindFiat},
		{Identifier: "EUR", Symbol: "EUR", Kind: domain.KindFiat},
		{Identifier: "GBP", Symbol: "GBP", Kind: domain.KindFiat},
		{Identifier: "CHF", Symbol: "CHF", Kind: domain.KindFiat},
		{Identifier: "JPY", Symbol: "JPY", Kind: domain.KindFiat},

		{Identifier: "BTC", Symbol: "BTC", Kind: domain.KindCrypto},
		{Identifier: "ETH", Symbol: "ETH", Kind: domain.KindCrypto},
		{Identifier: "BSQ", Symbol: "BSQ", Kind: domain.KindCrypto},
		{Identifier: "KFEE", Symbol: "KFEE", Kind: domain.KindCrypto},

		{
			Identifier: "WETH",
			Symbol:     "WETH",
			Kind:       domain.KindEvmToken,
			ChainID:    domain.ChainEthereum,
			Address:    "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			Decimals:   18,
		},
		{
			Identifier: "USDT",
			Symbol:     "USDT",
			Kind:       domain.KindEvmToken,
			ChainID:    domain.ChainEthereum,
			Address:    "0xdAC17F958D2ee523a2206206994597C13D831ec7",
			Decimals:   6,
		},
		{
			Identifier: "USDC",
			Symbol:     "USDC",
			Kind:       domain.KindEvmToken,
			ChainID:    domain.ChainEthereum,
			Address:    "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			Decimals:   6,
		},
		{
			Identifier: "DAI",
			Symbol:     "DAI",
			Kind:       domain.KindEvmToken,
			ChainID:    domain.ChainEthereum,
			Address:    "0x6B175474E89094C44Da98b954EedeAC495271d0F",
			Decimals:   18,
		},
		{
			Identifier: "UNI-V2-WETH-USDT",
			Symbol:     "UNI-V2",
			Kind:       domain.KindEvmToken,
			ChainID:    domain.ChainEthereum,
			Address:    "0x0d4a11d5EEaaC28EC3F61d100daF4d40471f1852",
			Decimals:   18,
			Protocol:   "uniswap-v2",
			Underlying: []string{"WETH", "USDT"},
		},
	}
}
