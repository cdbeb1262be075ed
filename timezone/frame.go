package timezone

import "time"

// frame holds an instant encoded in UTC. Which reference frame it belongs to
// is carried by the wrapping type, never by the value.
type frame struct {
	t time.Time
}

// Time returns the encoded value. It is always in UTC.
func (f frame) Time() time.Time { return f.t }

// Unix returns the encoded value in whole seconds.
func (f frame) Unix() int64 { return f.t.Unix() }

// IsZero reports whether the value is unset.
func (f frame) IsZero() bool { return f.t.IsZero() }

func (f frame) String() string { return f.t.Format(time.RFC3339) }

// Base is a true instant, the storage-neutral form callers persist and exchange.
type Base struct{ frame }

// BaseOf wraps a real instant.
func BaseOf(t time.Time) Base { return Base{frame{t.UTC()}} }

func (b Base) Equal(o Base) bool { return b.t.Equal(o.t) }
func (b Base) Before(o Base) bool { return b.t.Before(o.t) }
func (b Base) After(o Base) bool { return b.t.After(o.t) }
func (b Base) Add(d time.Duration) Base { return Base{frame{b.t.Add(d)}} }

// Target is a wall-clock reading in a rule's timezone, encoded as if it were
// UTC. "19:00 in Denver" is stored as T19:00:00Z, so naive UTC arithmetic in
// the recurrence evaluator never sees a DST shift.
type Target struct{ frame }

// TargetOf interprets the UTC reading of t as a wall clock.
func TargetOf(t time.Time) Target { return Target{frame{t.UTC()}} }

// WallClock builds a Target from calendar fields.
func WallClock(year int, month time.Month, day, hour, minute, sec int) Target {
	return Target{frame{time.Date(year, month, day, hour, minute, sec, 0, time.UTC)}}
}

func (t Target) Equal(o Target) bool { return t.t.Equal(o.t) }
func (t Target) Before(o Target) bool { return t.t.Before(o.t) }
func (t Target) After(o Target) bool { return t.t.After(o.t) }
func (t Target) Add(d time.Duration) Target { return Target{frame{t.t.Add(d)}} }

// System is a wall-clock reading in the process's own timezone, encoded as UTC.
type System struct{ frame }

// SystemOf interprets the UTC reading of t as a system wall clock.
func SystemOf(t time.Time) System { return System{frame{t.UTC()}} }

func (s System) Equal(o System) bool { return s.t.Equal(o.t) }
func (s System) Before(o System) bool { return s.t.Before(o.t) }
func (s System) After(o System) bool { return s.t.After(o.t) }
func (s System) Add(d time.Duration) System { return System{frame{s.t.Add(d)}} }
