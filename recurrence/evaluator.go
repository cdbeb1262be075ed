package recurrence

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/mo"
	"github.com/teambition/rrule-go"

	"github.com/cyp0633/librecur/ruletext"
	"github.com/cyp0633/librecur/timezone"
)

// evaluator adapts rrule-go, which only does naive UTC arithmetic, to wall
// clock rules. Everything handed to rrule-go is in the target frame; results
// are converted back to base before leaving. State is fixed at construction.
type evaluator struct {
	set        *rrule.Set
	exrules    []*rrule.RRule
	norm       *timezone.Normalizer
	start      timezone.Target
	exclusions ruletext.ExclusionSet

	forever bool
	// untilBounded is set when the stream ends at an UNTIL (or has no RRULE),
	// so the last-occurrence search needs no iteration cap
	untilBounded bool
	// lastLimit bounds the last-occurrence search: the latest UNTIL or RDATE
	// when the stream is UNTIL-bounded, the far-future sentinel otherwise
	lastLimit timezone.Target

	maxIter    int
	foreverEnd timezone.Base
	logger     *slog.Logger
}

// effectiveTimezone picks the DTSTART TZID over the caller's timezone.
func effectiveTimezone(props []ruletext.Property, fallback timezone.Source) (timezone.Source, bool, error) {
	for _, p := range props {
		if p.Type != ruletext.TypeDTStart {
			continue
		}
		tzid, ok := p.Param(ruletext.ParamTZID)
		if !ok {
			break
		}
		src, err := timezone.Named(tzid)
		if err != nil {
			return nil, false, &ruletext.MalformedRuleTextError{Line: p.String(), Reason: "unknown TZID", Err: err}
		}
		return src, true, nil
	}
	return fallback, false, nil
}

func newEvaluator(basic []ruletext.Property, exclusions ruletext.ExclusionSet, tz timezone.Source, embeddedTZ bool,
	opts Options, cfg EngineConfig, logger *slog.Logger) (*evaluator, error) {

	var (
		dtstart *ruletext.Property
		rrules  []ruletext.Property
		exrules []ruletext.Property
		rdates  []ruletext.Property
	)
	for i := range basic {
		p := basic[i]
		switch p.Type {
		case ruletext.TypeDTStart:
			if dtstart != nil {
				return nil, &ruletext.MalformedRuleTextError{Line: p.String(), Reason: "duplicate DTSTART"}
			}
			dtstart = &p
		case ruletext.TypeRRule:
			// rrule.Set holds a single RRULE, as RFC 5545 recommends
			if len(rrules) > 0 {
				return nil, &ruletext.MalformedRuleTextError{Line: p.String(), Reason: "more than one RRULE"}
			}
			rrules = append(rrules, p)
		case ruletext.TypeExRule:
			exrules = append(exrules, p)
		case ruletext.TypeRDate:
			rdates = append(rdates, p)
		}
	}

	norm := timezone.New(tz)

	// Reconcile the start with rrule-go's naive UTC view
	var start timezone.Target
	switch {
	case dtstart != nil:
		dt, err := ruletext.DecodeDateTime(dtstart.Value)
		if err != nil {
			return nil, &ruletext.MalformedRuleTextError{Line: dtstart.String(), Reason: "invalid DTSTART", Err: err}
		}
		if dt.UTC {
			start = norm.BaseToTarget(timezone.BaseOf(dt.Wall))
		} else {
			// TZID-qualified, floating or date-only: already a wall clock
			start = timezone.TargetOf(dt.Wall)
		}
	case opts.Start.IsPresent():
		start = norm.BaseToTarget(opts.Start.MustGet())
	default:
		return nil, ErrMissingStart
	}
	start = timezone.TargetOf(start.Time().Truncate(time.Second))

	e := &evaluator{
		set:        &rrule.Set{},
		norm:       norm,
		start:      start,
		exclusions: exclusions,
		maxIter:    cfg.maxIterations(),
		foreverEnd: timezone.BaseOf(cfg.foreverEnd()),
		logger:     logger,
	}
	e.lastLimit = timezone.TargetOf(e.foreverEnd.Time())

	var (
		latestUntil timezone.Target
		untilOnly   = len(rrules) > 0
	)
	for _, p := range rrules {
		r, err := e.buildRule(p)
		if err != nil {
			return nil, err
		}
		opt := r.OrigOptions
		switch {
		case opt.Count == 0 && opt.Until.IsZero():
			e.forever = true
			untilOnly = false
		case opt.Count > 0:
			untilOnly = false
		default:
			if until := timezone.TargetOf(opt.Until); until.After(latestUntil) {
				latestUntil = until
			}
		}
		e.set.RRule(r)
	}
	e.untilBounded = untilOnly || len(rrules) == 0

	for _, p := range exrules {
		r, err := e.buildRule(p)
		if err != nil {
			return nil, err
		}
		e.exrules = append(e.exrules, r)
	}

	for _, p := range rdates {
		instants, err := e.decodeRDates(p, tz)
		if err != nil {
			return nil, err
		}
		for _, t := range instants {
			if t.After(latestUntil) {
				latestUntil = t
			}
			e.set.RDate(t.Time())
		}
	}
	if untilOnly {
		e.lastLimit = latestUntil
	}

	// Without an RRULE the start is the only generated instant
	if len(rrules) == 0 {
		e.set.RDate(start.Time())
	}

	logger.Debug("recurrence evaluator ready",
		"timezone", norm.Source().Name(),
		"embedded_tz", embeddedTZ,
		"start", start.String(),
		"forever", e.forever,
		"exclusions", exclusions.Len(),
	)
	return e, nil
}

// buildRule parses an RRULE/EXRULE value anchored at the reconciled start.
func (e *evaluator) buildRule(p ruletext.Property) (*rrule.RRule, error) {
	opt, err := rrule.StrToROptionInLocation(p.Value, time.UTC)
	if err != nil {
		return nil, &Error{Type: ErrMalformedRule, Message: fmt.Sprintf("cannot parse %s", p.String()), Err: err}
	}
	if opt.Count > 0 && !opt.Until.IsZero() {
		return nil, &Error{Type: ErrMalformedRule, Message: fmt.Sprintf("COUNT and UNTIL are mutually exclusive in %s", p.String())}
	}
	// A UTC UNTIL is a true instant; move it to the rule's wall clock
	if !opt.Until.IsZero() && untilIsUTC(p.Value) {
		opt.Until = e.norm.BaseToTarget(timezone.BaseOf(opt.Until)).Time()
	}
	opt.Dtstart = e.start.Time()

	r, err := rrule.NewRRule(*opt)
	if err != nil {
		return nil, &Error{Type: ErrMalformedRule, Message: fmt.Sprintf("cannot build %s", p.String()), Err: err}
	}
	return r, nil
}

func untilIsUTC(value string) bool {
	for _, part := range strings.Split(value, ";") {
		key, val, ok := strings.Cut(part, "=")
		if ok && strings.EqualFold(key, "UNTIL") {
			return strings.HasSuffix(strings.ToUpper(val), "Z")
		}
	}
	return false
}

// decodeRDates converts RDATE values to target wall clocks in the rule's zone.
func (e *evaluator) decodeRDates(p ruletext.Property, tz timezone.Source) ([]timezone.Target, error) {
	src := tz
	if tzid, ok := p.Param(ruletext.ParamTZID); ok {
		named, err := timezone.Named(tzid)
		if err != nil {
			return nil, &ruletext.MalformedRuleTextError{Line: p.String(), Reason: "unknown TZID", Err: err}
		}
		src = named
	}

	out := make([]timezone.Target, 0, len(p.Values()))
	for _, token := range p.Values() {
		dt, err := ruletext.DecodeDateTime(strings.TrimSpace(token))
		if err != nil {
			return nil, &ruletext.MalformedRuleTextError{Line: p.String(), Reason: "invalid RDATE", Err: err}
		}
		switch {
		case dt.UTC:
			out = append(out, e.norm.BaseToTarget(timezone.BaseOf(dt.Wall)))
		case dt.Floating() && !timezone.SameZone(src, e.norm.Source()):
			// wall clock of another zone
			b := timezone.New(src).TargetToBase(timezone.TargetOf(dt.Wall))
			out = append(out, e.norm.BaseToTarget(b))
		default:
			out = append(out, timezone.TargetOf(dt.Wall))
		}
	}
	return out, nil
}

func (e *evaluator) excluded(c timezone.Target) bool {
	return e.exclusions.Len() > 0 && e.exclusions.Contains(e.norm.TargetToBase(c))
}

// exruleCursor tracks an EXRULE alongside the candidate stream. Both only
// move forward, so each check is amortised constant time.
type exruleCursor struct {
	next rrule.Next
	cur  time.Time
	ok   bool
}

func newExruleCursor(r *rrule.RRule) *exruleCursor {
	c := &exruleCursor{next: r.Iterator()}
	c.cur, c.ok = c.next()
	return c
}

// covers reports whether the EXRULE generates t. Calls must be in
// non-decreasing order of t.
func (c *exruleCursor) covers(t time.Time) bool {
	for c.ok && c.cur.Before(t) {
		c.cur, c.ok = c.next()
	}
	return c.ok && c.cur.Equal(t)
}

// window restricts a candidate stream. Raw candidates before from are skipped
// without exclusion checks; the stream ends after to. A positive budget bounds
// the raw candidates examined from from on, excluded ones included.
type window struct {
	from   mo.Option[timezone.Target]
	to     mo.Option[timezone.Target]
	budget int
}

// stream yields non-excluded candidates in ascending order.
type stream struct {
	e       *evaluator
	next    func() (time.Time, bool)
	cursors []*exruleCursor
	w       window

	seen   int
	capped bool
}

func (e *evaluator) iterate(w window) *stream {
	cursors := make([]*exruleCursor, len(e.exrules))
	for i, r := range e.exrules {
		cursors[i] = newExruleCursor(r)
	}
	return &stream{e: e, next: e.set.Iterator(), cursors: cursors, w: w}
}

// Next returns the next candidate, or false when the rule, the window or the
// budget is exhausted.
func (s *stream) Next() (timezone.Target, bool) {
	for {
		t, ok := s.next()
		if !ok {
			return timezone.Target{}, false
		}
		if lo, ok := s.w.from.Get(); ok && t.Before(lo.Time()) {
			continue
		}
		if hi, ok := s.w.to.Get(); ok && t.After(hi.Time()) {
			return timezone.Target{}, false
		}
		if s.w.budget > 0 {
			if s.seen >= s.w.budget {
				s.capped = true
				return timezone.Target{}, false
			}
			s.seen++
		}
		if coveredByAny(s.cursors, t) {
			continue
		}
		c := timezone.TargetOf(t)
		if s.e.excluded(c) {
			continue
		}
		return c, true
	}
}

func coveredByAny(cursors []*exruleCursor, t time.Time) bool {
	covered := false
	for _, c := range cursors {
		// advance every cursor so none falls behind
		if c.covers(t) {
			covered = true
		}
	}
	return covered
}

// walk feeds candidates within w to s until it stops or the stream ends. It
// reports whether the stream ran out of budget.
func (e *evaluator) walk(s strategy, w window) bool {
	st := e.iterate(w)
	for {
		c, ok := st.Next()
		if !ok || !s.accept(c) {
			return st.capped
		}
	}
}

func (e *evaluator) capReached(query string) {
	e.logger.Warn("recurrence iteration cap reached, no answer",
		"query", query,
		"max_iterations", e.maxIter,
		"start", e.start.String(),
	)
}

// next returns the first occurrence at or after from.
func (e *evaluator) next(from timezone.Base) mo.Option[timezone.Base] {
	lo := e.norm.BaseToTarget(from)
	s := &nextStrategy{min: lo, maxIter: e.maxIter}
	if e.walk(s, window{from: mo.Some(lo), budget: e.maxIter}) || s.capped {
		e.capReached("next")
		return mo.None[timezone.Base]()
	}
	return e.toBase(s.found)
}

// first returns the earliest occurrence, which may be an RDATE before the
// start.
func (e *evaluator) first() mo.Option[timezone.Base] {
	s := &nextStrategy{maxIter: e.maxIter}
	if e.walk(s, window{budget: e.maxIter}) || s.capped {
		e.capReached("first")
		return mo.None[timezone.Base]()
	}
	return e.toBase(s.found)
}

// last returns the final occurrence. An UNTIL-bounded stream is walked to its
// end; otherwise the far-future sentinel and the iteration cap apply.
func (e *evaluator) last() mo.Option[timezone.Base] {
	s := &lastStrategy{limit: e.lastLimit, maxIter: e.maxIter}
	w := window{to: mo.Some(e.lastLimit), budget: e.maxIter}
	if e.untilBounded {
		s.maxIter, w.budget = 0, 0
	}
	if e.walk(s, w) || s.capped {
		e.capReached("last")
		return mo.None[timezone.Base]()
	}
	return e.toBase(s.result())
}

// exists reports whether a non-excluded occurrence falls within iv. Both ends
// are known, so no cap applies.
func (e *evaluator) exists(iv Interval) bool {
	lo, hi := e.norm.BaseToTarget(iv.Start), e.norm.BaseToTarget(iv.End)
	s := &anyStrategy{min: mo.Some(lo), max: mo.Some(hi), maxIter: e.maxIter}
	e.walk(s, window{from: mo.Some(lo), to: mo.Some(hi)})
	return s.found
}

// expand returns every non-excluded occurrence, restricted to between when
// given. An unbounded rule must be given a window.
func (e *evaluator) expand(between mo.Option[Interval]) ([]timezone.Base, error) {
	iv, bounded := between.Get()
	if !bounded && e.forever {
		return nil, ErrUnbounded
	}

	var w window
	if bounded {
		w.from = mo.Some(e.norm.BaseToTarget(iv.Start))
		w.to = mo.Some(e.norm.BaseToTarget(iv.End))
	}

	out := []timezone.Base{}
	st := e.iterate(w)
	for {
		c, ok := st.Next()
		if !ok {
			break
		}
		out = append(out, e.norm.TargetToBase(c))
	}
	return out, nil
}

// overallRange reports the first and last occurrence, or forever.
func (e *evaluator) overallRange(duration time.Duration) Range {
	start := e.first().OrElse(e.norm.TargetToBase(e.start))

	if e.forever {
		return Range{Start: start, End: e.foreverEnd, Forever: true}
	}

	last, ok := e.last().Get()
	if !ok {
		return Range{Start: start, End: e.foreverEnd}
	}
	return Range{
		Start:              start,
		End:                last,
		FinalOccurrenceEnd: mo.Some(last.Add(duration)),
	}
}

func (e *evaluator) toBase(o mo.Option[timezone.Target]) mo.Option[timezone.Base] {
	t, ok := o.Get()
	if !ok {
		return mo.None[timezone.Base]()
	}
	return mo.Some(e.norm.TargetToBase(t))
}
