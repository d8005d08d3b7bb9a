package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/assets"
	"github.com/vadiminshakov/kurs/internal/services/oracle"
	"github.com/vadiminshakov/kurs/internal/services/registry"
	"go.uber.org/zap"
)

type fakeHistoricalOracle struct {
	price domain.Price
	err   error
	calls int
}

func (f *fakeHistoricalOracle) QueryHistoricalPrice(ctx context.Context, from, to domain.Asset, at time.Time) (domain.Price, error) {
	f.calls++
	if f.err != nil {
		return domain.ZeroPrice, f.err
	}
	return f.price, nil
}

type fakeHistoricalFiat struct {
	price domain.Price
	err   error
	calls int
}

func (f *fakeHistoricalFiat) QueryHistoricalFiatPair(ctx context.Context, base, quote domain.Asset, at time.Time) (domain.Price, error) {
	f.calls++
	if f.err != nil {
		return domain.ZeroPrice, f.err
	}
	return f.price, nil
}

func newHistoricalEnv(t *testing.T) (*HistoricalEngine, *registry.Registry, *fakeHistoricalFiat) {
	t.Helper()

	resolver := assets.NewRegistry(usd, eur, btc, eth, kfe)
	reg := registry.New()
	fiat := &fakeHistoricalFiat{}

	eng, err := NewHistorical(zap.NewNop(), resolver, reg, fiat)
	require.NoError(t, err)
	return eng, reg, fiat
}

func setHistoricalOrder(t *testing.T, reg *registry.Registry, adapters map[domain.HistoricalPriceOracleID]oracle.HistoricalPriceOracle, order ...domain.HistoricalPriceOracleID) {
	t.Helper()
	for id, adapter := range adapters {
		reg.RegisterHistorical(id, adapter)
	}
	require.NoError(t, reg.SetHistoricalOrder(order))
}

func TestHistoricalIdentity(t *testing.T) {
	eng, _, _ := newHistoricalEnv(t)

	got, err := eng.QueryHistoricalPrice(context.Background(), btc, btc, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "1", got.String())
}

func TestHistoricalFallbackOrder(t *testing.T) {
	eng, reg, _ := newHistoricalEnv(t)
	first := &fakeHistoricalOracle{err: assert.AnError}
	second := &fakeHistoricalOracle{price: price("30000")}
	setHistoricalOrder(t, reg, map[domain.HistoricalPriceOracleID]oracle.HistoricalPriceOracle{
		domain.HistoricalOracleBinance: first,
		domain.HistoricalOracleBybit:   second,
	}, domain.HistoricalOracleBinance, domain.HistoricalOracleBybit)

	got, err := eng.QueryHistoricalPrice(context.Background(), btc, usd, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "30000", got.String())
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
}

func TestHistoricalExhaustionIsHardError(t *testing.T) {
	eng, reg, _ := newHistoricalEnv(t)
	failing := &fakeHistoricalOracle{err: assert.AnError}
	setHistoricalOrder(t, reg, map[domain.HistoricalPriceOracleID]oracle.HistoricalPriceOracle{
		domain.HistoricalOracleBinance: failing,
	}, domain.HistoricalOracleBinance)

	at := time.Date(2023, 5, 1, 12, 0, 0, 0, time.UTC)
	_, err := eng.QueryHistoricalPrice(context.Background(), btc, usd, at)

	var noPrice *domain.NoPriceForGivenTimestampError
	require.ErrorAs(t, err, &noPrice)
	assert.Equal(t, "BTC", noPrice.From)
	assert.Equal(t, "USD", noPrice.To)
	assert.Equal(t, at, noPrice.Timestamp)
}

func TestHistoricalKFEE(t *testing.T) {
	eng, reg, _ := newHistoricalEnv(t)
	rate := &fakeHistoricalOracle{price: price("2")} // USD -> EUR
	setHistoricalOrder(t, reg, map[domain.HistoricalPriceOracleID]oracle.HistoricalPriceOracle{
		domain.HistoricalOracleBinance: rate,
	}, domain.HistoricalOracleBinance)

	got, err := eng.QueryHistoricalPrice(context.Background(), kfe, usd, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "0.01", got.String())
	assert.Zero(t, rate.calls)

	got, err = eng.QueryHistoricalPrice(context.Background(), kfe, eur, time.Now())
	require.NoError(t, err)
	assert.Equal(t, "0.02", got.String())
}

func TestHistoricalFiatPair(t *testing.T) {
	eng, reg, fiat := newHistoricalEnv(t)
	rotation := &fakeHistoricalOracle{price: price("9")}
	setHistoricalOrder(t, reg, map[domain.HistoricalPriceOracleID]oracle.HistoricalPriceOracle{
		domain.HistoricalOracleBinance: rotation,
	}, domain.HistoricalOracleBinance)
	fiat.price = price("1.12")

	got, err := eng.QueryHistoricalPrice(context.Background(), eur, usd, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "1.12", got.String())
	assert.Equal(t, 1, fiat.calls)
	assert.Zero(t, rotation.calls)

	// converter failure degrades to the rotation instead of erroring
	fiat.err = assert.AnError
	got, err = eng.QueryHistoricalPrice(context.Background(), eur, usd, time.Now().Add(-48*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "9", got.String())
	assert.Equal(t, 1, rotation.calls)
}

func TestHistoricalOrderNotSet(t *testing.T) {
	eng, _, _ := newHistoricalEnv(t)

	_, err := eng.QueryHistoricalPrice(context.Background(), btc, usd, time.Now())
	assert.ErrorIs(t, err, domain.ErrOraclesNotSet)
}
