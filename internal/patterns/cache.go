package patterns

import (
	"context"
	"sync"
	"time"

	"github.com/aleister1102/linkscout/internal/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched pattern set stays fresh
const DefaultTTL = 5 * time.Minute

// Source supplies the raw hoster patterns (GET_HOSTS_REGEX)
type Source interface {
	GetHostsRegex(ctx context.Context) ([]string, error)
}

// CacheOptions tunes a Cache
type CacheOptions struct {
	TTL time.Duration
	// Strict discards the whole fetched batch when any entry fails to compile
	Strict  bool
	Clock   clockwork.Clock
	Metrics *metrics.Metrics
}

type entry struct {
	patterns  Set
	fetchedAt time.Time
}

// Cache memoizes the compiled hoster patterns for a TTL. It never returns an
// error: a failed fetch yields an empty set and leaves nothing cached.
type Cache struct {
	source  Source
	ttl     time.Duration
	strict  bool
	clock   clockwork.Clock
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu    sync.RWMutex
	entry *entry
	group singleflight.Group
}

// NewCache creates a pattern cache backed by source
func NewCache(source Source, opts CacheOptions, logger zerolog.Logger) *Cache {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Clock == nil {
		opts.Clock = clockwork.NewRealClock()
	}
	return &Cache{
		source:  source,
		ttl:     opts.TTL,
		strict:  opts.Strict,
		clock:   opts.Clock,
		metrics: opts.Metrics,
		logger:  logger.With().Str("component", "PatternCache").Logger(),
	}
}

// Patterns returns the current pattern set, refetching when the cached one is
// missing or stale. Concurrent refetches share one remote call, which is not
// tied to any single caller's cancellation; a caller whose ctx ends first gets
// an empty set while the others still receive the fetched one.
func (c *Cache) Patterns(ctx context.Context) Set {
	if set, ok := c.fresh(); ok {
		return set
	}

	fetchCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan("patterns", func() (any, error) {
		if set, ok := c.fresh(); ok {
			return set, nil
		}
		return c.refresh(fetchCtx), nil
	})

	select {
	case res := <-ch:
		return res.Val.(Set)
	case <-ctx.Done():
		c.logger.Debug().Err(ctx.Err()).Msg("Gave up waiting for hoster patterns")
		return Set{}
	}
}

// Invalidate drops the cached entry so the next call refetches
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.entry = nil
	c.mu.Unlock()
}

// FetchedAt returns when the cached set was fetched, zero when nothing is cached
func (c *Cache) FetchedAt() time.Time {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return time.Time{}
	}
	return c.entry.fetchedAt
}

func (c *Cache) fresh() (Set, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.entry == nil {
		return nil, false
	}
	if c.clock.Since(c.entry.fetchedAt) >= c.ttl {
		return nil, false
	}
	return c.entry.patterns, true
}

func (c *Cache) refresh(ctx context.Context) Set {
	raw, err := c.source.GetHostsRegex(ctx)
	if err != nil {
		c.metrics.PatternFetch(metrics.OutcomeError)
		c.logger.Warn().Err(err).Msg("Failed to fetch hoster patterns, continuing with none")
		return Set{}
	}

	set, errs := ParseAll(raw)
	for _, perr := range errs {
		c.logger.Warn().Err(perr).Msg("Skipping invalid hoster pattern")
	}

	if len(errs) > 0 && c.strict {
		c.metrics.PatternFetch(metrics.OutcomeInvalid)
		c.logger.Warn().
			Int("invalid", len(errs)).
			Int("total", len(raw)).
			Msg("Discarding hoster pattern batch in strict mode")
		return Set{}
	}

	c.mu.Lock()
	c.entry = &entry{patterns: set, fetchedAt: c.clock.Now()}
	c.mu.Unlock()

	c.metrics.PatternFetch(metrics.OutcomeSuccess)
	c.logger.Debug().
		Int("patterns", len(set)).
		Int("invalid", len(errs)).
		Msg("Hoster patterns refreshed")
	return set
}
