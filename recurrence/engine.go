package recurrence

import (
	"fmt"
	"log/slog"

	"github.com/samber/mo"
)

// Engine builds recurrence instances with shared configuration and memoises
// expansion and existence results
type Engine struct {
	cache  *RecurrenceCache
	config EngineConfig
	logger *slog.Logger
}

// NewEngine creates a new recurrence engine with default configuration
func NewEngine() *Engine {
	return NewEngineWithConfig(DefaultEngineConfig)
}

// WithLogger sets the logger handed to instances built by this engine.
func (e *Engine) WithLogger(logger *slog.Logger) *Engine {
	if logger != nil {
		e.logger = logger
	}
	return e
}

// Config returns the engine configuration.
func (e *Engine) Config() EngineConfig {
	return e.config
}

func (e *Engine) options(opts Options) Options {
	if opts.Config == nil {
		cfg := e.config
		opts.Config = &cfg
	}
	if opts.Logger == nil {
		opts.Logger = e.logger
	}
	return opts
}

// New parses rule lines using the engine's configuration unless opts
// overrides it
func (e *Engine) New(lines []string, opts Options) (*Instance, error) {
	return New(lines, e.options(opts))
}

// Expand expands lines, serving repeated identical requests from the cache
func (e *Engine) Expand(lines []string, opts Options, between mo.Option[Interval]) (Expansion, error) {
	opts = e.options(opts)

	var key string
	if e.cache != nil {
		key = cacheKey("expand", lines, opts, opts.Config.maxIterations(), between)
		if cached, found := e.cache.Get(key); found {
			if exp, ok := cached.(Expansion); ok {
				opts.Logger.Debug("recurrence expansion served from cache", "occurrences", len(exp.Occurrences))
				return copyExpansion(exp), nil
			}
		}
	}

	inst, err := New(lines, opts)
	if err != nil {
		return Expansion{}, fmt.Errorf("failed to build recurrence: %w", err)
	}
	exp, err := inst.Expand(between)
	if err != nil {
		return Expansion{}, err
	}

	if e.cache != nil {
		e.cache.Set(key, copyExpansion(exp))
	}
	return exp, nil
}

// HasOccurrenceInRange checks whether the rule produces any occurrence
// within iv without a full expansion
func (e *Engine) HasOccurrenceInRange(lines []string, opts Options, iv Interval) (bool, error) {
	opts = e.options(opts)

	var key string
	if e.cache != nil {
		key = cacheKey("exists", lines, opts, opts.Config.maxIterations(), mo.Some(iv))
		if cached, found := e.cache.Get(key); found {
			if result, ok := cached.(bool); ok {
				opts.Logger.Debug("recurrence existence served from cache", "result", result)
				return result, nil
			}
		}
	}

	inst, err := New(lines, opts)
	if err != nil {
		return false, fmt.Errorf("failed to build recurrence: %w", err)
	}
	result := inst.ExistsInRange(iv)

	if e.cache != nil {
		e.cache.Set(key, result)
	}
	return result, nil
}

// Stats returns cache statistics; zero when caching is disabled
func (e *Engine) Stats() CacheStats {
	if e.cache == nil {
		return CacheStats{}
	}
	return e.cache.Stats()
}

// Close releases the cache's background goroutine
func (e *Engine) Close() {
	if e.cache != nil {
		e.cache.Close()
	}
}

func copyExpansion(exp Expansion) Expansion {
	occurrences := make([]Occurrence, len(exp.Occurrences))
	copy(occurrences, exp.Occurrences)
	return Expansion{Between: exp.Between, Occurrences: occurrences}
}
