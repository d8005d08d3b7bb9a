// Package manualprices persists user-entered prices in a WAL and
// serves latest and nearest-timestamp lookups.
package manualprices

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/gowal"
)

const (
	// DefaultDir is where the WAL segments live.
	DefaultDir = "./wal/manualprices"

	// DefaultMaxDistance bounds how far a recorded price may be from a
	// requested historical timestamp before the lookup refuses a match.
	DefaultMaxDistance = 3600 * time.Second

	segmentThreshold = 1000
	maxSegments      = 100

	priceKeyPrefix = "manual_price_"
)

// PricePoint is one user-entered price: From is worth Price units of
// Quote at Timestamp.
type PricePoint struct {
	From      string          `json:"from"`
	Quote     string          `json:"quote"`
	Price     decimal.Decimal `json:"price"`
	Timestamp time.Time       `json:"timestamp"`
}

// Store keeps manual prices in a WAL with an in-memory index. The
// latest entry per from-asset backs the current manual oracle; the full
// history backs historical lookups.
type Store struct {
	mu          sync.RWMutex
	wal         *gowal.Wal
	latest      map[string]PricePoint
	history     map[string][]PricePoint // keyed by "from->quote", append order
	maxDistance time.Duration
	invalidate  func(identifiers ...string)
}

// NewStore opens the WAL in dir and replays it into memory.
func NewStore(dir string, maxDistance time.Duration) (*Store, error) {
	if dir == "" {
		dir = DefaultDir
	}
	if maxDistance <= 0 {
		maxDistance = DefaultMaxDistance
	}

	cfg := gowal.Config{
		Dir:              dir,
		Prefix:           "prices_",
		SegmentThreshold: segmentThreshold,
		MaxSegments:      maxSegments,
		IsInSyncDiskMode: true,
	}

	wal, err := gowal.NewWAL(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "init manual prices WAL")
	}

	s := &Store{
		wal:         wal,
		latest:      make(map[string]PricePoint),
		history:     make(map[string][]PricePoint),
		maxDistance: maxDistance,
	}

	for msg := range wal.Iterator() {
		var p PricePoint
		if err := json.Unmarshal(msg.Value, &p); err != nil {
			continue
		}
		s.index(p)
	}

	return s, nil
}

// SetInvalidationHook registers a callback fired with the asset
// identifiers whose cached prices became stale after an edit.
func (s *Store) SetInvalidationHook(fn func(identifiers ...string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.invalidate = fn
}

// Add appends a manual price and invalidates dependent cache entries.
func (s *Store) Add(p PricePoint) error {
	if p.From == "" || p.Quote == "" {
		return errors.New("manual price needs both from and quote assets")
	}
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}

	payload, err := json.Marshal(p)
	if err != nil {
		return errors.Wrap(err, "marshal manual price")
	}

	s.mu.Lock()
	nextIndex := s.wal.CurrentIndex() + 1
	if err := s.wal.Write(nextIndex, priceKeyPrefix+p.From, payload); err != nil {
		s.mu.Unlock()
		return errors.Wrap(err, "write manual price")
	}
	s.index(p)
	invalidate := s.invalidate
	s.mu.Unlock()

	if invalidate != nil {
		invalidate(p.From, p.Quote)
	}
	return nil
}

// Latest returns the most recent manual price for the asset, in
// whatever quote it was entered.
func (s *Store) Latest(from string) (PricePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.latest[from]
	return p, ok
}

// AtTimestamp returns the recorded price for the pair closest to the
// requested time, if one exists within the max allowed distance.
func (s *Store) AtTimestamp(from, quote string, at time.Time) (PricePoint, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var (
		best  PricePoint
		found bool
	)
	for _, p := range s.history[from+"->"+quote] {
		distance := at.Sub(p.Timestamp)
		if distance < 0 {
			distance = -distance
		}
		if distance > s.maxDistance {
			continue
		}
		if !found || absDuration(at.Sub(best.Timestamp)) > distance {
			best = p
			found = true
		}
	}
	return best, found
}

// Close closes the underlying WAL.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.wal.Close()
}

func (s *Store) index(p PricePoint) {
	if cur, ok := s.latest[p.From]; !ok || !p.Timestamp.Before(cur.Timestamp) {
		s.latest[p.From] = p
	}
	key := p.From + "->" + p.Quote
	s.history[key] = append(s.history[key], p)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
