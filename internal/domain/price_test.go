package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZeroPriceIsNotAFreeAsset(t *testing.T) {
	assert.False(t, ZeroPrice.Known())

	free := NewPrice(decimal.Zero)
	assert.True(t, free.Known(), "a legitimately free asset is a known zero, not the sentinel")
	assert.True(t, free.Value().IsZero())
}

func TestPriceMulPropagatesUnknown(t *testing.T) {
	p, err := NewPriceFromString("2.5")
	require.NoError(t, err)

	assert.Equal(t, "5", p.Mul(NewPrice(decimal.NewFromInt(2))).String())
	assert.False(t, p.Mul(ZeroPrice).Known())
	assert.False(t, ZeroPrice.MulDecimal(decimal.NewFromInt(2)).Known())
}

func TestPairSymbol(t *testing.T) {
	btc := Asset{Identifier: "BTC", Symbol: "BTC"}
	usdt := Asset{Identifier: "USDT", Symbol: "USDT"}
	assert.Equal(t, "BTCUSDT", PairSymbol(btc, usdt))
}
