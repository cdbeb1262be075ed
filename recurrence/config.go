package recurrence

import (
	"log/slog"
	"time"
)

// DefaultMaxIterations bounds the point queries (last, next, any without an
// upper bound). It is a safety limit with no deeper meaning; tune it freely.
const DefaultMaxIterations = 10000

// ForeverEnd is the sentinel end of an unbounded recurrence and the far-future
// bound of the last-occurrence search.
var ForeverEnd = time.Date(9999, 12, 31, 23, 59, 59, 0, time.UTC)

// EngineConfig holds configuration options for the recurrence engine
type EngineConfig struct {
	// Cache configuration
	CacheEnabled bool
	CacheConfig  CacheConfig

	// MaxIterations caps the candidates visited by last/next/any queries.
	// Reaching it yields "no answer", never an error.
	MaxIterations int
	// ForeverEnd overrides the package-level sentinel when non-zero.
	ForeverEnd time.Time
}

func (c EngineConfig) maxIterations() int {
	if c.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return c.MaxIterations
}

func (c EngineConfig) foreverEnd() time.Time {
	if c.ForeverEnd.IsZero() {
		return ForeverEnd
	}
	return c.ForeverEnd.UTC()
}

// DefaultEngineConfig provides sensible defaults for production use
var DefaultEngineConfig = EngineConfig{
	CacheEnabled:  true,
	CacheConfig:   DefaultCacheConfig,
	MaxIterations: DefaultMaxIterations,
}

// HighPerformanceConfig is optimized for high-traffic scenarios
var HighPerformanceConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             30 * time.Minute, // Longer cache TTL
		MaxEntries:      5000,             // More cache entries
		CleanupInterval: 10 * time.Minute, // Less frequent cleanup
	},
	MaxIterations: 2000, // Give up sooner on runaway rules
}

// LowMemoryConfig is optimized for memory-constrained environments
var LowMemoryConfig = EngineConfig{
	CacheEnabled: true,
	CacheConfig: CacheConfig{
		TTL:             5 * time.Minute, // Shorter cache TTL
		MaxEntries:      100,             // Fewer cache entries
		CleanupInterval: 2 * time.Minute, // More frequent cleanup
	},
	MaxIterations: DefaultMaxIterations,
}

// DisabledCacheConfig turns off caching entirely
var DisabledCacheConfig = EngineConfig{
	CacheEnabled:  false,
	CacheConfig:   CacheConfig{}, // Not used
	MaxIterations: DefaultMaxIterations,
}

// NewEngineWithConfig creates a new recurrence engine with custom configuration
func NewEngineWithConfig(config EngineConfig) *Engine {
	var cache *RecurrenceCache
	if config.CacheEnabled {
		cache = NewRecurrenceCache(config.CacheConfig)
	}

	return &Engine{
		cache:  cache,
		config: config,
		logger: slog.Default(),
	}
}
