package domain

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
)

// Configuration errors are fatal at setup time.
var (
	ErrInvalidConfiguration = errors.New("invalid oracles configuration")
	ErrOraclesNotSet        = errors.New("oracles order is not set")
)

// UnknownAssetError means the asset identifier is not in the registry.
type UnknownAssetError struct {
	Identifier string
}

func (e *UnknownAssetError) Error() string {
	return fmt.Sprintf("unknown asset %s", e.Identifier)
}

// WrongAssetTypeError means an asset resolved to a different kind than
// the caller required.
type WrongAssetTypeError struct {
	Identifier string
	Expected   AssetKind
	Actual     AssetKind
}

func (e *WrongAssetTypeError) Error() string {
	return fmt.Sprintf("asset %s is %s, expected %s", e.Identifier, e.Actual, e.Expected)
}

// RemoteError wraps a provider-side failure. The oracle loop absorbs it
// and advances to the next source.
type RemoteError struct {
	Oracle string
	Err    error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("oracle %s remote error: %v", e.Oracle, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// UnsupportedAssetError means the provider does not list the asset pair.
type UnsupportedAssetError struct {
	Oracle string
	From   string
	To     string
}

func (e *UnsupportedAssetError) Error() string {
	return fmt.Sprintf("oracle %s does not support %s -> %s", e.Oracle, e.From, e.To)
}

// DefiPoolError means an on-chain pool read produced unusable data.
type DefiPoolError struct {
	Token  string
	Reason string
}

func (e *DefiPoolError) Error() string {
	return fmt.Sprintf("pool price for %s failed: %s", e.Token, e.Reason)
}

// PriceLoopError means user-entered manual prices form a cycle
// (A priced in B, B priced in A). Fatal when raised inside a nested
// manual lookup, downgraded to a warning at the top level.
type PriceLoopError struct {
	From string
	To   string
}

func (e *PriceLoopError) Error() string {
	return fmt.Sprintf("manual latest prices form a loop resolving %s -> %s", e.From, e.To)
}

// NoPriceForGivenTimestampError is the hard failure of historical
// resolution: every override and oracle was exhausted. Carries the full
// query triple for diagnostics.
type NoPriceForGivenTimestampError struct {
	From      string
	To        string
	Timestamp time.Time
}

func (e *NoPriceForGivenTimestampError) Error() string {
	return fmt.Sprintf(
		"no historical price for %s -> %s at %d",
		e.From, e.To, e.Timestamp.Unix(),
	)
}
