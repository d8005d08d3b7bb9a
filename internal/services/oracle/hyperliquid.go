package oracle

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/penalty"
	"go.uber.org/zap"
)

// Hyperliquid serves current prices from the Hyperliquid public Info
// API. Mids are quoted in USDC, so the adapter only answers queries
// against the main stable/fiat side; anything else is unsupported.
type Hyperliquid struct {
	info    *hyperliquid.Info
	policy  *penalty.Policy
	limiter *penalty.RateLimitTracker
	log     *zap.Logger
}

// NewHyperliquid creates the adapter around an initialized Info client.
func NewHyperliquid(log *zap.Logger, info *hyperliquid.Info) *Hyperliquid {
	return &Hyperliquid{
		info:    info,
		policy:  penalty.NewPolicy(),
		limiter: penalty.NewRateLimitTracker(),
		log:     log,
	}
}

// QueryCurrentPrice returns the mid price for the base coin. Queries
// against anything but the USD/USDC side are rejected so a mid never
// masquerades as a rate in another currency.
func (h *Hyperliquid) QueryCurrentPrice(ctx context.Context, q Query) (domain.Price, bool, error) {
	if !usdcQuoted(q.To) {
		return domain.ZeroPrice, false, &domain.UnsupportedAssetError{
			Oracle: string(domain.CurrentOracleHyperliquid),
			From:   q.From.Identifier,
			To:     q.To.Identifier,
		}
	}

	if h.info == nil {
		return domain.ZeroPrice, false, errors.New("hyperliquid info client is nil")
	}

	mids, err := h.info.AllMids(ctx)
	if err != nil {
		h.noteFailure(err)
		return domain.ZeroPrice, false, &domain.RemoteError{Oracle: string(domain.CurrentOracleHyperliquid), Err: err}
	}

	// Mids are keyed by base coin (e.g. "BTC").
	mid, ok := mids[q.From.Symbol]
	if !ok || mid == "" {
		return domain.ZeroPrice, false, &domain.UnsupportedAssetError{
			Oracle: string(domain.CurrentOracleHyperliquid),
			From:   q.From.Identifier,
			To:     q.To.Identifier,
		}
	}

	price, err := domain.NewPriceFromString(mid)
	if err != nil {
		h.policy.RecordFailure()
		return domain.ZeroPrice, false, &domain.RemoteError{
			Oracle: string(domain.CurrentOracleHyperliquid),
			Err:    errors.Wrapf(err, "unparseable mid %q for %s", mid, q.From.Symbol),
		}
	}

	h.policy.RecordSuccess()
	return price, false, nil
}

// IsPenalized reports whether the adapter is in a penalty window.
func (h *Hyperliquid) IsPenalized() bool { return h.policy.IsPenalized() }

// RateLimitedInLast reports whether Hyperliquid throttled us within the window.
func (h *Hyperliquid) RateLimitedInLast(window time.Duration) bool {
	return h.limiter.LimitedInLast(window)
}

func usdcQuoted(a domain.Asset) bool {
	return a.Identifier == domain.AssetUSD || a.Symbol == "USDC"
}

func (h *Hyperliquid) noteFailure(err error) {
	h.policy.RecordFailure()

	if strings.Contains(err.Error(), "429") {
		h.limiter.Note()
		h.log.Warn("hyperliquid rate limited", zap.Error(err))
	}
}
