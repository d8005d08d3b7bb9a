// Package oracle defines the contract price sources must satisfy and
// the adapters for the configured external providers.
package oracle

import (
	"context"
	"time"

	"github.com/vadiminshakov/kurs/internal/domain"
)

// Visited is the set of asset identifiers currently being resolved up
// the call chain. The manual oracle threads it back into the engine so
// loops in user-entered relative prices are detected as a data-flow
// property instead of blowing the stack.
type Visited map[string]struct{}

// With returns a copy of the set including the identifier.
func (v Visited) With(identifier string) Visited {
	next := make(Visited, len(v)+1)
	for k := range v {
		next[k] = struct{}{}
	}
	next[identifier] = struct{}{}
	return next
}

// Has reports whether the identifier is already being resolved.
func (v Visited) Has(identifier string) bool {
	_, ok := v[identifier]
	return ok
}

// Query is a single current-price resolution request.
type Query struct {
	From domain.Asset
	To   domain.Asset
	// MatchMainCurrency asks the source to answer in the deployment's
	// main currency if it can; the reply flag reports whether it did.
	MatchMainCurrency bool
	Visited           Visited
}

// CurrentPriceOracle answers "what is From worth in To now".
// Provider-level failures are reported as *domain.RemoteError,
// *domain.UnsupportedAssetError or *domain.DefiPoolError; the engine
// absorbs those and advances to the next source.
type CurrentPriceOracle interface {
	QueryCurrentPrice(ctx context.Context, q Query) (price domain.Price, usedMainCurrency bool, err error)
}

// HistoricalPriceOracle answers "what was from worth in to at ts".
type HistoricalPriceOracle interface {
	QueryHistoricalPrice(ctx context.Context, from, to domain.Asset, at time.Time) (domain.Price, error)
}

// Penalizable is the capability an adapter gains by owning a penalty
// policy. The engine only reads IsPenalized; failures are recorded by
// the adapter's own query path.
type Penalizable interface {
	IsPenalized() bool
}

// RateLimited is the capability of tracking provider-side throttling.
type RateLimited interface {
	RateLimitedInLast(window time.Duration) bool
}

// PriceFinder is the callback the manual oracle uses to resolve the
// quote side of a relative price ("A is worth 2xB"). Implemented by
// the current price engine.
type PriceFinder interface {
	FindPriceFrom(ctx context.Context, from, to domain.Asset, visited Visited) (domain.Price, error)
}
