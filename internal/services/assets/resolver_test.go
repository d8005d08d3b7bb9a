package assets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/kurs/internal/domain"
)

func TestRegistryResolve(t *testing.T) {
	r := NewRegistry(DefaultAssets()...)

	btc, err := r.Resolve("BTC")
	require.NoError(t, err)
	assert.Equal(t, domain.KindCrypto, btc.Kind)

	_, err = r.Resolve("NOPE")
	var unknown *domain.UnknownAssetError
	require.ErrorAs(t, err, &unknown)
	assert.Equal(t, "NOPE", unknown.Identifier)
}

func TestResolveKindMismatch(t *testing.T) {
	r := NewRegistry(DefaultAssets()...)

	_, err := ResolveToFiat(r, "USD")
	assert.NoError(t, err)

	_, err = ResolveToFiat(r, "BTC")
	var wrongType *domain.WrongAssetTypeError
	require.ErrorAs(t, err, &wrongType)
	assert.Equal(t, domain.KindFiat, wrongType.Expected)
	assert.Equal(t, domain.KindCrypto, wrongType.Actual)

	_, err = ResolveToCrypto(r, "BTC")
	assert.NoError(t, err)

	_, err = ResolveToEvmToken(r, "WETH")
	assert.NoError(t, err)
}

func TestRegistryAddOverrides(t *testing.T) {
	r := NewRegistry()
	r.Add(domain.Asset{Identifier: "XYZ", Symbol: "XYZ", Kind: domain.KindCrypto})
	r.Add(domain.Asset{Identifier: "XYZ", Symbol: "XYZ2", Kind: domain.KindCrypto})

	got, err := r.Resolve("XYZ")
	require.NoError(t, err)
	assert.Equal(t, "XYZ2", got.Symbol)
}
