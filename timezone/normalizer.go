// Package timezone converts instants between three reference frames:
//
//   - Base: the true instant.
//   - Target: the wall clock of a rule's configured timezone, encoded as UTC.
//   - System: the wall clock of the process's local timezone, encoded as UTC.
//
// Each frame has its own type so a Target can never be passed where a Base is
// expected.
package timezone

import "time"

// Normalizer converts instants between frames for one offset source. It holds
// no mutable state and is safe for concurrent use.
type Normalizer struct {
	target Source
	system Source
}

// New returns a normalizer for src. A nil or UTC source disables conversion.
func New(src Source) *Normalizer {
	return NewWithSystem(src, SystemZone())
}

// NewWithSystem is like New but pins the system frame to system instead of the
// runtime's local timezone.
func NewWithSystem(src, system Source) *Normalizer {
	if src == nil {
		src = UTC()
	}
	if system == nil {
		system = UTC()
	}
	return &Normalizer{target: src, system: system}
}

// Source returns the target frame's offset source.
func (n *Normalizer) Source() Source {
	return n.target
}

// HasConversion is false when the target source is absent or UTC. All six
// conversions are then identity, apart from any extra offset.
func (n *Normalizer) HasConversion() bool {
	return !IsUTC(n.target)
}

// BaseToTarget re-encodes a true instant as the target zone's wall clock.
func (n *Normalizer) BaseToTarget(b Base, extra ...time.Duration) Target {
	t := b.t
	if n.HasConversion() {
		t = t.Add(n.target.OffsetAt(t))
	}
	return Target{frame{t.Add(sum(extra))}}
}

// TargetToBase resolves a target wall clock to the true instant.
func (n *Normalizer) TargetToBase(t Target, extra ...time.Duration) Base {
	b := t.t
	if n.HasConversion() {
		b = b.Add(-n.target.OffsetAtWall(b))
	}
	return Base{frame{b.Add(sum(extra))}}
}

// BaseToSystem re-encodes a true instant as the system wall clock.
func (n *Normalizer) BaseToSystem(b Base, extra ...time.Duration) System {
	s := b.t
	if n.HasConversion() {
		s = s.Add(n.system.OffsetAt(s))
	}
	return System{frame{s.Add(sum(extra))}}
}

// SystemToBase resolves a system wall clock to the true instant.
func (n *Normalizer) SystemToBase(s System, extra ...time.Duration) Base {
	b := s.t
	if n.HasConversion() {
		b = b.Add(-n.system.OffsetAtWall(b))
	}
	return Base{frame{b.Add(sum(extra))}}
}

// TargetToSystem moves a target wall clock to the system wall clock.
func (n *Normalizer) TargetToSystem(t Target, extra ...time.Duration) System {
	return n.BaseToSystem(n.TargetToBase(t), extra...)
}

// SystemToTarget moves a system wall clock to the target wall clock.
func (n *Normalizer) SystemToTarget(s System, extra ...time.Duration) Target {
	return n.BaseToTarget(n.SystemToBase(s), extra...)
}

func sum(ds []time.Duration) time.Duration {
	var total time.Duration
	for _, d := range ds {
		total += d
	}
	return total
}
