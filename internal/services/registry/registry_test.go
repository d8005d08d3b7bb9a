package registry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/oracle"
)

type stubCurrent struct{}

func (stubCurrent) QueryCurrentPrice(ctx context.Context, q oracle.Query) (domain.Price, bool, error) {
	return domain.ZeroPrice, false, nil
}

type stubHistorical struct{}

func (stubHistorical) QueryHistoricalPrice(ctx context.Context, from, to domain.Asset, at time.Time) (domain.Price, error) {
	return domain.ZeroPrice, nil
}

func TestCurrentOrderBeforeSetFails(t *testing.T) {
	r := New()

	_, _, err := r.CurrentOrder(false)
	assert.ErrorIs(t, err, domain.ErrOraclesNotSet)

	_, _, err = r.HistoricalOrder()
	assert.ErrorIs(t, err, domain.ErrOraclesNotSet)
}

func TestSetCurrentOrderValidation(t *testing.T) {
	r := New()
	r.RegisterCurrent(domain.CurrentOracleBinance, stubCurrent{})

	err := r.SetCurrentOrder(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	err = r.SetCurrentOrder([]domain.CurrentPriceOracleID{
		domain.CurrentOracleBinance, domain.CurrentOracleBinance,
	})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	err = r.SetCurrentOrder([]domain.CurrentPriceOracleID{domain.CurrentOracleBybit})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	err = r.SetCurrentOrder([]domain.CurrentPriceOracleID{domain.CurrentOracleBinance})
	assert.NoError(t, err)
}

func TestCurrentOrderSkipOnchain(t *testing.T) {
	r := New()
	r.RegisterCurrent(domain.CurrentOracleBinance, stubCurrent{})
	r.RegisterCurrent(domain.CurrentOracleUniswapV2, stubCurrent{})
	r.RegisterCurrent(domain.CurrentOracleManual, stubCurrent{})

	require.NoError(t, r.SetCurrentOrder([]domain.CurrentPriceOracleID{
		domain.CurrentOracleBinance,
		domain.CurrentOracleUniswapV2,
		domain.CurrentOracleManual,
	}))

	full, adapters, err := r.CurrentOrder(false)
	require.NoError(t, err)
	assert.Len(t, full, 3)
	assert.Len(t, adapters, 3)

	offchain, adapters, err := r.CurrentOrder(true)
	require.NoError(t, err)
	assert.Equal(t, []domain.CurrentPriceOracleID{
		domain.CurrentOracleBinance,
		domain.CurrentOracleManual,
	}, offchain)
	assert.Len(t, adapters, 2)
}

func TestSetHistoricalOrderValidation(t *testing.T) {
	r := New()
	r.RegisterHistorical(domain.HistoricalOracleBinance, stubHistorical{})

	err := r.SetHistoricalOrder(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	err = r.SetHistoricalOrder([]domain.HistoricalPriceOracleID{domain.HistoricalOracleManual})
	assert.ErrorIs(t, err, domain.ErrInvalidConfiguration)

	err = r.SetHistoricalOrder([]domain.HistoricalPriceOracleID{domain.HistoricalOracleBinance})
	assert.NoError(t, err)

	order, _, err := r.HistoricalOrder()
	require.NoError(t, err)
	assert.Equal(t, []domain.HistoricalPriceOracleID{domain.HistoricalOracleBinance}, order)
}

func TestHasCurrent(t *testing.T) {
	r := New()
	assert.False(t, r.HasCurrent(domain.CurrentOracleBinance))

	r.RegisterCurrent(domain.CurrentOracleBinance, stubCurrent{})
	assert.True(t, r.HasCurrent(domain.CurrentOracleBinance))
}
