package oracle

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vadiminshakov/kurs/internal/domain"
	"go.uber.org/zap"
)

func TestFiatHistoricalRejectsNonFiatPair(t *testing.T) {
	f := NewFiatConverter(zap.NewNop(), "http://unreachable.invalid")

	_, err := f.QueryHistoricalPrice(context.Background(), testBTC, testUSD, time.Now())

	var unsupported *domain.UnsupportedAssetError
	require.ErrorAs(t, err, &unsupported)
	assert.Equal(t, "BTC", unsupported.From)
}

func TestFiatHistoricalFetchesDatedRate(t *testing.T) {
	at := time.Date(2023, 5, 1, 15, 0, 0, 0, time.UTC)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/2023-05-01", r.URL.Path)
		assert.Equal(t, "EUR", r.URL.Query().Get("from"))
		assert.Equal(t, "USD", r.URL.Query().Get("to"))
		w.Write([]byte(`{"rates":{"USD":1.08}}`))
	}))
	defer srv.Close()

	f := NewFiatConverter(zap.NewNop(), srv.URL)

	got, err := f.QueryHistoricalPrice(context.Background(), testEUR, testUSD, at)
	require.NoError(t, err)
	assert.Equal(t, "1.08", got.String())
}
