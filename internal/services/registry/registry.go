// Package registry holds the configured, ordered oracle rotations.
package registry

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/kurs/internal/domain"
	"github.com/vadiminshakov/kurs/internal/services/oracle"
)

// Registry maps oracle ids to concrete adapters and keeps the active
// resolution orders. Adapters are registered once at startup; orders
// are validated eagerly so an unknown id fails at configuration time,
// not at query time.
type Registry struct {
	mu sync.RWMutex

	currentAdapters    map[domain.CurrentPriceOracleID]oracle.CurrentPriceOracle
	historicalAdapters map[domain.HistoricalPriceOracleID]oracle.HistoricalPriceOracle

	currentOrder    []domain.CurrentPriceOracleID
	offchainOrder   []domain.CurrentPriceOracleID
	historicalOrder []domain.HistoricalPriceOracleID
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		currentAdapters:    make(map[domain.CurrentPriceOracleID]oracle.CurrentPriceOracle),
		historicalAdapters: make(map[domain.HistoricalPriceOracleID]oracle.HistoricalPriceOracle),
	}
}

// RegisterCurrent makes an adapter available for the current rotation.
func (r *Registry) RegisterCurrent(id domain.CurrentPriceOracleID, adapter oracle.CurrentPriceOracle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentAdapters[id] = adapter
}

// RegisterHistorical makes an adapter available for the historical rotation.
func (r *Registry) RegisterHistorical(id domain.HistoricalPriceOracleID, adapter oracle.HistoricalPriceOracle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.historicalAdapters[id] = adapter
}

// HasCurrent reports whether an adapter is registered for the id.
func (r *Registry) HasCurrent(id domain.CurrentPriceOracleID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.currentAdapters[id]
	return ok
}

// SetCurrentOrder atomically replaces the current-price order and
// recomputes the off-chain subset.
func (r *Registry) SetCurrentOrder(ids []domain.CurrentPriceOracleID) error {
	if len(ids) == 0 {
		return errors.Wrap(domain.ErrInvalidConfiguration, "empty oracle order")
	}

	seen := make(map[domain.CurrentPriceOracleID]struct{}, len(ids))
	offchain := make([]domain.CurrentPriceOracleID, 0, len(ids))

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return errors.Wrapf(domain.ErrInvalidConfiguration, "duplicate oracle %s", id)
		}
		seen[id] = struct{}{}

		if _, ok := r.currentAdapters[id]; !ok {
			return errors.Wrapf(domain.ErrInvalidConfiguration, "no adapter registered for oracle %s", id)
		}
		if !id.IsOnchain() {
			offchain = append(offchain, id)
		}
	}

	r.currentOrder = append([]domain.CurrentPriceOracleID(nil), ids...)
	r.offchainOrder = offchain
	return nil
}

// SetHistoricalOrder atomically replaces the historical-price order.
func (r *Registry) SetHistoricalOrder(ids []domain.HistoricalPriceOracleID) error {
	if len(ids) == 0 {
		return errors.Wrap(domain.ErrInvalidConfiguration, "empty oracle order")
	}

	seen := make(map[domain.HistoricalPriceOracleID]struct{}, len(ids))

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return errors.Wrapf(domain.ErrInvalidConfiguration, "duplicate oracle %s", id)
		}
		seen[id] = struct{}{}

		if _, ok := r.historicalAdapters[id]; !ok {
			return errors.Wrapf(domain.ErrInvalidConfiguration, "no adapter registered for oracle %s", id)
		}
	}

	r.historicalOrder = append([]domain.HistoricalPriceOracleID(nil), ids...)
	return nil
}

// CurrentOrder returns the active rotation, or the off-chain subset
// when on-chain lookups must be skipped. Resolution before an order is
// set fails fast.
func (r *Registry) CurrentOrder(skipOnchain bool) ([]domain.CurrentPriceOracleID, []oracle.CurrentPriceOracle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.currentOrder == nil {
		return nil, nil, domain.ErrOraclesNotSet
	}

	ids := r.currentOrder
	if skipOnchain {
		ids = r.offchainOrder
	}

	order := append([]domain.CurrentPriceOracleID(nil), ids...)
	adapters := make([]oracle.CurrentPriceOracle, len(order))
	for i, id := range order {
		adapters[i] = r.currentAdapters[id]
	}
	return order, adapters, nil
}

// HistoricalOrder returns the active historical rotation.
func (r *Registry) HistoricalOrder() ([]domain.HistoricalPriceOracleID, []oracle.HistoricalPriceOracle, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.historicalOrder == nil {
		return nil, nil, domain.ErrOraclesNotSet
	}

	order := append([]domain.HistoricalPriceOracleID(nil), r.historicalOrder...)
	adapters := make([]oracle.HistoricalPriceOracle, len(order))
	for i, id := range order {
		adapters[i] = r.historicalAdapters[id]
	}
	return order, adapters, nil
}
