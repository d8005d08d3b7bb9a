package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/kurs/internal/domain"
)

func testPrice(t *testing.T, s string) domain.Price {
	t.Helper()
	p, err := domain.NewPriceFromString(s)
	require.NoError(t, err)
	return p
}

func TestSetAndGet(t *testing.T) {
	c := New(0, 0)
	c.Set("BTC", "USD", testPrice(t, "40000"), domain.CurrentOracleBinance, false)

	entry, ok := c.Get("BTC", "USD", false)
	require.True(t, ok)
	assert.Equal(t, "40000", entry.Price.String())
	assert.Equal(t, domain.CurrentOracleBinance, entry.Oracle)

	_, ok = c.Get("BTC", "EUR", false)
	assert.False(t, ok)
}

func TestMainCurrencyFlagMismatchIsMiss(t *testing.T) {
	c := New(0, 0)
	c.Set("BTC", "USD", testPrice(t, "40000"), domain.CurrentOracleManual, true)

	_, ok := c.Get("BTC", "USD", false)
	assert.False(t, ok)

	_, ok = c.Get("BTC", "USD", true)
	assert.True(t, ok)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := New(0, 100*time.Second)

	base := time.Now()
	c.now = func() time.Time { return base }
	c.Set("BTC", "USD", testPrice(t, "40000"), domain.CurrentOracleBinance, false)

	c.now = func() time.Time { return base.Add(99 * time.Second) }
	_, ok := c.Get("BTC", "USD", false)
	assert.True(t, ok)

	c.now = func() time.Time { return base.Add(101 * time.Second) }
	_, ok = c.Get("BTC", "USD", false)
	assert.False(t, ok)
}

func TestZeroSentinelIsCached(t *testing.T) {
	c := New(0, 0)
	c.Set("OBSCURE", "USD", domain.ZeroPrice, domain.CurrentOracleBlockchain, false)

	entry, ok := c.Get("OBSCURE", "USD", false)
	require.True(t, ok)
	assert.False(t, entry.Price.Known())
}

func TestInvalidateAssets(t *testing.T) {
	c := New(0, 0)
	c.Set("BTC", "USD", testPrice(t, "1"), domain.CurrentOracleBinance, false)
	c.Set("EUR", "BTC", testPrice(t, "2"), domain.CurrentOracleBinance, false)
	c.Set("ETH", "USD", testPrice(t, "3"), domain.CurrentOracleBinance, false)

	c.InvalidateAssets("BTC")

	_, ok := c.Get("BTC", "USD", false)
	assert.False(t, ok, "entries with the asset on the from side must be dropped")
	_, ok = c.Get("EUR", "BTC", false)
	assert.False(t, ok, "entries with the asset on the to side must be dropped")
	_, ok = c.Get("ETH", "USD", false)
	assert.True(t, ok, "unrelated entries must survive")
}

func TestRemove(t *testing.T) {
	c := New(0, 0)
	c.Set("BTC", "USD", testPrice(t, "1"), domain.CurrentOracleBinance, false)

	c.Remove("BTC", "USD")

	_, ok := c.Get("BTC", "USD", false)
	assert.False(t, ok)
	assert.Zero(t, c.Len())
}
