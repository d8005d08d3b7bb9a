package oracle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/kurs/internal/domain"
	"go.uber.org/zap"
)

func TestHyperliquidRejectsNonUSDQuote(t *testing.T) {
	h := NewHyperliquid(zap.NewNop(), nil)

	// Mids are USDC-quoted; a EUR target must not be answered with a
	// USD mid.
	_, _, err := h.QueryCurrentPrice(context.Background(), Query{From: testBTC, To: testEUR})

	var unsupported *domain.UnsupportedAssetError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "BTC", unsupported.From)
	assert.Equal(t, "EUR", unsupported.To)
}

func TestHyperliquidAcceptsUSDQuote(t *testing.T) {
	h := NewHyperliquid(zap.NewNop(), nil)

	// A USD target passes the quote gate and reaches the client.
	_, _, err := h.QueryCurrentPrice(context.Background(), Query{From: testBTC, To: testUSD})

	require.Error(t, err)
	var unsupported *domain.UnsupportedAssetError
	assert.False(t, errors.As(err, &unsupported))
}
