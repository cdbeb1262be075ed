package recurrence

import (
	"errors"
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_HasOccurrenceInRange(t *testing.T) {
	engine := NewEngine()
	defer engine.Close()

	// Daily meeting at 09:00 UTC starting Jan 1, 2024
	start := "DTSTART:20240101T090000Z"

	tests := []struct {
		name     string
		lines    []string
		from     string
		to       string
		expected bool
	}{
		{
			name:     "Non-recurring event in range",
			lines:    []string{start},
			from:     "2023-12-31T00:00:00Z",
			to:       "2024-01-02T00:00:00Z",
			expected: true,
		},
		{
			name:     "Non-recurring event out of range",
			lines:    []string{start},
			from:     "2024-01-02T00:00:00Z",
			to:       "2024-01-03T00:00:00Z",
			expected: false,
		},
		{
			name:     "Daily recurring event with occurrence in range",
			lines:    []string{start, "RRULE:FREQ=DAILY;COUNT=7"},
			from:     "2024-01-03T00:00:00Z",
			to:       "2024-01-04T00:00:00Z",
			expected: true,
		},
		{
			name:     "Daily recurring event with no occurrence in range",
			lines:    []string{start, "RRULE:FREQ=DAILY;COUNT=3"},
			from:     "2024-01-10T00:00:00Z",
			to:       "2024-01-11T00:00:00Z",
			expected: false,
		},
		{
			name:     "Excluded occurrence",
			lines:    []string{start, "RRULE:FREQ=DAILY;COUNT=7", "EXDATE:20240103T090000Z"},
			from:     "2024-01-03T00:00:00Z",
			to:       "2024-01-03T23:59:59Z",
			expected: false,
		},
		{
			name:     "RDATE occurrence in range",
			lines:    []string{start, "RRULE:FREQ=DAILY;COUNT=2", "RDATE:20240115T090000Z"},
			from:     "2024-01-15T00:00:00Z",
			to:       "2024-01-16T00:00:00Z",
			expected: true,
		},
		{
			name:     "Unbounded rule far in the future",
			lines:    []string{start, "RRULE:FREQ=WEEKLY"},
			from:     "2030-01-01T00:00:00Z",
			to:       "2030-01-08T00:00:00Z",
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			iv := Interval{Start: base(tt.from), End: base(tt.to)}
			result, err := engine.HasOccurrenceInRange(tt.lines, Options{}, iv)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, result)

			// Second call is served from the cache
			cached, err := engine.HasOccurrenceInRange(tt.lines, Options{}, iv)
			require.NoError(t, err)
			assert.Equal(t, result, cached)
		})
	}

	stats := engine.Stats()
	assert.Equal(t, len(tests), stats.Hits)
	assert.Equal(t, len(tests), stats.Misses)
}

func TestEngine_ExpandCaches(t *testing.T) {
	engine := NewEngineWithConfig(LowMemoryConfig)
	defer engine.Close()

	opts := Options{Event: Event{ID: "standup", Duration: 15 * time.Minute}}

	first, err := engine.Expand(denverLines, opts, mo.None[Interval]())
	require.NoError(t, err)
	require.Len(t, first.Occurrences, 3)

	// Mutating a result must not leak into the cache
	first.Occurrences[0].EventID = "mutated"

	second, err := engine.Expand(denverLines, opts, mo.None[Interval]())
	require.NoError(t, err)
	assert.Equal(t, "standup", second.Occurrences[0].EventID)
	assert.Equal(t, base("2018-11-02T01:15:00Z"), second.Occurrences[0].End)

	stats := engine.Stats()
	assert.Equal(t, 1, stats.Hits)
	assert.Equal(t, 1, stats.TotalEntries)
}

func TestEngine_DisabledCache(t *testing.T) {
	engine := NewEngineWithConfig(DisabledCacheConfig)
	defer engine.Close()

	_, err := engine.Expand(denverLines, Options{}, mo.None[Interval]())
	require.NoError(t, err)
	_, err = engine.Expand(denverLines, Options{}, mo.None[Interval]())
	require.NoError(t, err)

	assert.Equal(t, CacheStats{}, engine.Stats())
}

func TestEngine_Errors(t *testing.T) {
	engine := NewEngine()
	defer engine.Close()

	_, err := engine.Expand([]string{"DTSTART:20240101T090000Z", "RRULE:FREQ=DAILY"}, Options{}, mo.None[Interval]())
	assert.True(t, errors.Is(err, ErrUnbounded))

	_, err = engine.HasOccurrenceInRange([]string{"RRULE:FREQ=DAILY"}, Options{},
		Interval{Start: base("2024-01-01T00:00:00Z"), End: base("2024-01-02T00:00:00Z")})
	assert.True(t, errors.Is(err, ErrMissingStart))

	assert.Zero(t, engine.Stats().TotalEntries, "errors must not be cached")
}

func TestEngine_ConfigPropagates(t *testing.T) {
	cfg := DisabledCacheConfig
	cfg.MaxIterations = 10
	engine := NewEngineWithConfig(cfg)
	defer engine.Close()

	inst, err := engine.New([]string{"DTSTART:20240101T000000Z", "RRULE:FREQ=HOURLY;COUNT=50"}, Options{})
	require.NoError(t, err)

	assert.Equal(t, mo.Some(base("2024-01-02T00:00:00Z")), inst.NextOccurrence(base("2024-01-02T00:00:00Z")))
	// 50 occurrences do not fit under a cap of 10
	assert.True(t, inst.LastOccurrence().IsAbsent())
	assert.Equal(t, 10, engine.Config().MaxIterations)
}
