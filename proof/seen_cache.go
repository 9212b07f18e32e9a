package proof

import (
	"fmt"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto/v2"
)

// SeenCache remembers (id, scope, operand) triples for the lifetime of the
// request window so a captured proof cannot be presented twice. Admission is
// best effort: under heavy memory pressure ristretto may refuse an entry, in
// which case the proof is accepted as it would be without the cache.
type SeenCache struct {
	mu    sync.Mutex
	cache *ristretto.Cache[string, struct{}]
	ttl   time.Duration
}

// NewSeenCache creates a cache that holds entries for twice the window
// tolerance, covering clock skew in both directions.
func NewSeenCache(tolerance time.Duration, maxEntries int64) (*SeenCache, error) {
	if tolerance <= 0 {
		tolerance = DefaultTolerance
	}
	if maxEntries <= 0 {
		maxEntries = 1 << 20
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, struct{}]{
		NumCounters: maxEntries * 10,
		MaxCost:     maxEntries,
		BufferItems: 64,

		IgnoreInternalCost: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize seen-proof cache: %w", err)
	}
	return &SeenCache{cache: c, ttl: 2 * tolerance}, nil
}

// FirstUse records the triple and reports whether it had not been seen before.
func (s *SeenCache) FirstUse(id TokenID, scope, operand string) bool {
	key := id.String() + "|" + scope + "|" + operand

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, seen := s.cache.Get(key); seen {
		return false
	}
	s.cache.SetWithTTL(key, struct{}{}, 1, s.ttl)
	s.cache.Wait()
	return true
}

// Close releases the cache's background goroutines.
func (s *SeenCache) Close() {
	s.cache.Close()
}
