package limiter

import (
	"fmt"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/ghalamif/AegisGate/internal/domain"
	"github.com/ghalamif/AegisGate/internal/ports"
)

// Per-source admission: a token bucket per (ip, port), held in an LRU-bounded
// cache so total state is O(MaxSources) no matter how many sources appear.

// Config controls per-source fairness and bounded state growth.
type Config struct {
	MaxSources   int     // LRU cache capacity
	TokensPerSec float64 // sustained rate (token refill)
	BurstTokens  float64 // max tokens (bucket size)
}

func DefaultConfig() Config {
	return Config{
		MaxSources:   1024,
		TokensPerSec: 100,
		BurstTokens:  200,
	}
}

// Admit is the admission decision.
type Admit uint8

const (
	Allow Admit = iota
	Drop
)

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// SourceLimiter is not thread-safe; one instance per pipeline.
type SourceLimiter struct {
	cfg   Config
	clock ports.Clock
	cache *lru.Cache[domain.SourceKey, *bucket]

	admits    uint64
	drops     uint64
	evictions uint64
}

func New(cfg Config, clock ports.Clock) (*SourceLimiter, error) {
	if cfg.MaxSources <= 0 {
		return nil, fmt.Errorf("limiter: max_sources must be > 0")
	}
	if clock == nil {
		clock = ports.SystemClock{}
	}

	l := &SourceLimiter{cfg: cfg, clock: clock}
	cache, err := lru.NewWithEvict(cfg.MaxSources, func(_ domain.SourceKey, _ *bucket) {
		l.evictions++
	})
	if err != nil {
		return nil, err
	}
	l.cache = cache
	return l, nil
}

// Admit decides whether a datagram from source may proceed, consuming one
// token when it does. A source unseen since its LRU eviction starts over with
// a full burst bucket.
func (l *SourceLimiter) Admit(source domain.SourceKey) Admit {
	now := l.clock.Now()

	b, ok := l.cache.Get(source) // moves the entry to the LRU head
	if !ok {
		b = &bucket{tokens: l.cfg.BurstTokens, lastUpdate: now}
		l.cache.Add(source, b) // evicts the LRU tail when at capacity
	}

	// Refill from elapsed time; a regressing clock must not go negative.
	elapsed := now.Sub(b.lastUpdate).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}
	b.tokens += elapsed * l.cfg.TokensPerSec
	if b.tokens > l.cfg.BurstTokens {
		b.tokens = l.cfg.BurstTokens
	}
	b.lastUpdate = now

	if b.tokens >= 1.0 {
		b.tokens -= 1.0
		l.admits++
		return Allow
	}

	l.drops++
	return Drop
}

// Tracked returns the number of sources currently held, always <= MaxSources.
func (l *SourceLimiter) Tracked() int { return l.cache.Len() }

// IsTracked reports whether source has an entry, without touching recency.
func (l *SourceLimiter) IsTracked(source domain.SourceKey) bool {
	return l.cache.Contains(source)
}

func (l *SourceLimiter) Admits() uint64    { return l.admits }
func (l *SourceLimiter) Drops() uint64     { return l.drops }
func (l *SourceLimiter) Evictions() uint64 { return l.evictions }
