// Package recurrence evaluates RFC 5545 recurrence rules in the wall clock of
// a timezone, so occurrences keep their local time across DST transitions.
//
// Rules are built from DTSTART/RRULE/RDATE/EXRULE/EXDATE lines with New, or
// from an iCalendar component with FromComponent. An Engine adds result
// caching on top.
package recurrence

import (
	"log/slog"

	"github.com/samber/mo"

	"github.com/cyp0633/librecur/ruletext"
	"github.com/cyp0633/librecur/timezone"
)

// Instance is a parsed recurrence bound to a reference event. It is immutable
// and safe for concurrent use.
type Instance struct {
	lines []string
	tz    timezone.Source
	event Event
	eval  *evaluator
}

// New parses rule lines and prepares them for evaluation.
func New(lines []string, opts Options) (*Instance, error) {
	cfg := DefaultEngineConfig
	if opts.Config != nil {
		cfg = *opts.Config
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	props, err := ruletext.Parse(lines)
	if err != nil {
		return nil, err
	}

	tz, embedded, err := effectiveTimezone(props, opts.Timezone)
	if err != nil {
		return nil, err
	}

	basic, exclusions, err := ruletext.SeparateProperties(props, tz)
	if err != nil {
		return nil, err
	}
	exclusions.Add(opts.Exclusions...)

	eval, err := newEvaluator(basic, exclusions, tz, embedded, opts, cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Instance{
		lines: ruletext.Serialize(props),
		tz:    tz,
		event: opts.Event,
		eval:  eval,
	}, nil
}

// Expand lists every occurrence, or only those within between. Expanding a
// rule with neither COUNT nor UNTIL without a window is ErrUnbounded.
func (i *Instance) Expand(between mo.Option[Interval]) (Expansion, error) {
	starts, err := i.eval.expand(between)
	if err != nil {
		return Expansion{}, err
	}

	occurrences := make([]Occurrence, len(starts))
	for n, start := range starts {
		occurrences[n] = newOccurrence(i.event, start)
	}
	return Expansion{Between: between, Occurrences: occurrences}, nil
}

// NextOccurrence returns the first occurrence at or after from.
func (i *Instance) NextOccurrence(from timezone.Base) mo.Option[timezone.Base] {
	return i.eval.next(from)
}

// LastOccurrence returns the final occurrence. It is absent for rules that
// never end or whose end is out of reach of the iteration cap.
func (i *Instance) LastOccurrence() mo.Option[timezone.Base] {
	if i.eval.forever {
		return mo.None[timezone.Base]()
	}
	return i.eval.last()
}

// ExistsInRange reports whether any occurrence falls within iv.
func (i *Instance) ExistsInRange(iv Interval) bool {
	return i.eval.exists(iv)
}

// OverallRange reports the span from first to last occurrence.
func (i *Instance) OverallRange() Range {
	return i.eval.overallRange(i.event.Duration)
}

// Timezone returns the effective timezone: the DTSTART TZID if present, else
// the caller's. Nil means UTC.
func (i *Instance) Timezone() timezone.Source {
	return i.tz
}

// Lines returns the rule text in canonical form.
func (i *Instance) Lines() []string {
	out := make([]string, len(i.lines))
	copy(out, i.lines)
	return out
}

// Event returns the reference event.
func (i *Instance) Event() Event {
	return i.event
}
