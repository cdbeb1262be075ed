package ruletext

import (
	"errors"
	"sort"
	"strings"

	"github.com/cyp0633/librecur/timezone"
)

// ExclusionSet holds base instants removed from a generated sequence.
// Membership is exact to the second. The zero value is an empty set.
type ExclusionSet struct {
	m map[int64]timezone.Base
}

// NewExclusionSet returns a set holding instants.
func NewExclusionSet(instants ...timezone.Base) ExclusionSet {
	var s ExclusionSet
	s.Add(instants...)
	return s
}

// Add inserts instants; duplicates collapse.
func (s *ExclusionSet) Add(instants ...timezone.Base) {
	if len(instants) == 0 {
		return
	}
	if s.m == nil {
		s.m = make(map[int64]timezone.Base, len(instants))
	}
	for _, b := range instants {
		s.m[b.Unix()] = b
	}
}

// Merge adds every instant of o.
func (s *ExclusionSet) Merge(o ExclusionSet) {
	for _, b := range o.m {
		s.Add(b)
	}
}

// Contains reports whether b is excluded.
func (s ExclusionSet) Contains(b timezone.Base) bool {
	_, ok := s.m[b.Unix()]
	return ok
}

func (s ExclusionSet) Len() int {
	return len(s.m)
}

// Instants returns the excluded instants in ascending order.
func (s ExclusionSet) Instants() []timezone.Base {
	out := make([]timezone.Base, 0, len(s.m))
	for _, b := range s.m {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}

// ParseExclusionDates decodes every value of an EXDATE property. A TZID
// parameter makes floating tokens wall clocks in that zone; without one they
// fall back to the given source, and fail if it is nil.
func ParseExclusionDates(p Property, fallback timezone.Source) ([]timezone.Base, error) {
	if p.Type != TypeExDate {
		return nil, malformed(p.String(), "expected "+TypeExDate, nil)
	}

	src, err := resolveTZID(p, fallback)
	if err != nil {
		return nil, err
	}

	values := p.Values()
	if len(values) == 0 {
		return nil, malformed(p.String(), "no exclusion dates", nil)
	}

	out := make([]timezone.Base, 0, len(values))
	for _, token := range values {
		b, err := ParseDateTime(strings.TrimSpace(token), src)
		if err != nil {
			var mErr *MalformedRuleTextError
			if errors.As(err, &mErr) {
				return nil, malformed(p.String(), mErr.Reason, mErr.Err)
			}
			return nil, err
		}
		out = append(out, b)
	}
	return out, nil
}

// SeparateLines parses lines and splits them into EXDATE lines, aggregated
// into one ExclusionSet, and every other ("basic") line.
func SeparateLines(lines []string, fallback timezone.Source) ([]Property, ExclusionSet, error) {
	props, err := Parse(lines)
	if err != nil {
		return nil, ExclusionSet{}, err
	}
	return SeparateProperties(props, fallback)
}

// SeparateProperties is SeparateLines for already parsed properties.
func SeparateProperties(props []Property, fallback timezone.Source) ([]Property, ExclusionSet, error) {
	var (
		basic      = make([]Property, 0, len(props))
		exclusions ExclusionSet
	)
	for _, p := range props {
		if p.Type != TypeExDate {
			basic = append(basic, p)
			continue
		}
		instants, err := ParseExclusionDates(p, fallback)
		if err != nil {
			return nil, ExclusionSet{}, err
		}
		exclusions.Add(instants...)
	}
	return basic, exclusions, nil
}
