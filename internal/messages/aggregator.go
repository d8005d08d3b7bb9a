// Package messages collects user-facing warnings about degraded
// resolution conditions.
package messages

import (
	"sync"

	"go.uber.org/zap"
)

// Sink receives non-fatal warnings meant for the user.
type Sink interface {
	AddWarning(text string)
}

// Aggregator is an in-memory Sink that also logs every warning.
type Aggregator struct {
	mu       sync.Mutex
	warnings []string
	log      *zap.Logger
}

// NewAggregator creates an empty aggregator.
func NewAggregator(log *zap.Logger) *Aggregator {
	return &Aggregator{log: log}
}

// AddWarning records the warning and logs it.
func (a *Aggregator) AddWarning(text string) {
	a.log.Warn(text)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.warnings = append(a.warnings, text)
}

// Warnings drains and returns the accumulated warnings.
func (a *Aggregator) Warnings() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := a.warnings
	a.warnings = nil
	return out
}
