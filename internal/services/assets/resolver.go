// Package assets resolves asset identifiers into typed assets.
package assets

import (
	"sync"

	"github.com/vadiminshakov/kurs/internal/domain"
)

// Resolver maps an asset identifier to a typed asset.
type Resolver interface {
	Resolve(identifier string) (domain.Asset, error)
}

// Registry is an in-memory Resolver seeded at startup.
type Registry struct {
	mu   sync.RWMutex
	byID map[string]domain.Asset
}

// NewRegistry creates a registry pre-populated with the given assets.
func NewRegistry(assets ...domain.Asset) *Registry {
	r := &Registry{byID: make(map[string]domain.Asset, len(assets))}
	for _, a := range assets {
		r.byID[a.Identifier] = a
	}
	return r
}

// Add registers or replaces an asset.
func (r *Registry) Add(a domain.Asset) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[a.Identifier] = a
}

// Resolve returns the asset for the identifier.
func (r *Registry) Resolve(identifier string) (domain.Asset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[identifier]
	if !ok {
		return domain.Asset{}, &domain.UnknownAssetError{Identifier: identifier}
	}
	return a, nil
}

// ResolveToFiat resolves the identifier and requires a fiat asset.
func ResolveToFiat(r Resolver, identifier string) (domain.Asset, error) {
	return resolveKind(r, identifier, domain.KindFiat)
}

// ResolveToCrypto resolves the identifier and requires a crypto asset.
func ResolveToCrypto(r Resolver, identifier string) (domain.Asset, error) {
	return resolveKind(r, identifier, domain.KindCrypto)
}

// ResolveToEvmToken resolves the identifier and requires an EVM token.
func ResolveToEvmToken(r Resolver, identifier string) (domain.Asset, error) {
	return resolveKind(r, identifier, domain.KindEvmToken)
}

func resolveKind(r Resolver, identifier string, kind domain.AssetKind) (domain.Asset, error) {
	a, err := r.Resolve(identifier)
	if err != nil {
		return domain.Asset{}, err
	}
	if a.Kind != kind {
		return domain.Asset{}, &domain.WrongAssetTypeError{
			Identifier: identifier,
			Expected:   kind,
			Actual:     a.Kind,
		}
	}
	return a, nil
}
