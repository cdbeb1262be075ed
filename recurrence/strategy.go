package recurrence

import (
	"github.com/samber/mo"

	"github.com/cyp0633/librecur/timezone"
)

// strategy visits the evaluator's forward-only occurrence stream one candidate
// at a time. accept returns false to stop iterating. This one shape answers
// backward, point and existence queries without native support from rrule-go.
type strategy interface {
	accept(candidate timezone.Target) bool
}

// lastStrategy remembers the most recent candidate up to limit. Unbounded
// rules have no real last element, so hitting maxIter means "no answer".
// A maxIter of zero disables the cap for streams known to end.
type lastStrategy struct {
	limit   timezone.Target
	maxIter int

	seen   int
	last   mo.Option[timezone.Target]
	capped bool
}

func (s *lastStrategy) accept(c timezone.Target) bool {
	if c.After(s.limit) {
		return false
	}
	if s.maxIter > 0 && s.seen >= s.maxIter {
		s.capped = true
		return false
	}
	s.seen++
	s.last = mo.Some(c)
	return true
}

func (s *lastStrategy) result() mo.Option[timezone.Target] {
	if s.capped {
		return mo.None[timezone.Target]()
	}
	return s.last
}

// nextStrategy stops at the first candidate not before min. Callers start the
// stream at min so the cap only counts candidates from there on.
type nextStrategy struct {
	min     timezone.Target
	maxIter int

	seen   int
	found  mo.Option[timezone.Target]
	capped bool
}

func (s *nextStrategy) accept(c timezone.Target) bool {
	if s.seen >= s.maxIter {
		s.capped = true
		return false
	}
	s.seen++
	if c.Before(s.min) {
		return true
	}
	s.found = mo.Some(c)
	return false
}

// anyStrategy reports whether some candidate falls in [min, max]. Either bound
// may be absent. With a max the stream terminates on its own; without one the
// iteration cap applies.
type anyStrategy struct {
	min     mo.Option[timezone.Target]
	max     mo.Option[timezone.Target]
	maxIter int

	seen   int
	found  bool
	capped bool
}

func (s *anyStrategy) accept(c timezone.Target) bool {
	if s.max.IsAbsent() {
		if s.seen >= s.maxIter {
			s.capped = true
			return false
		}
		s.seen++
	}
	if minT, ok := s.min.Get(); ok && c.Before(minT) {
		return true
	}
	if maxT, ok := s.max.Get(); ok && c.After(maxT) {
		// too late
		return false
	}
	s.found = true
	return false
}
