package timezone

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Source resolves the UTC offset of a timezone. Named zones resolve the offset
// per instant, so a range crossing a DST transition is handled date by date.
type Source interface {
	// Name returns the identifier written to TZID parameters or config files
	Name() string
	// OffsetAt returns the offset in effect at a true (base frame) instant
	OffsetAt(instant time.Time) time.Duration
	// OffsetAtWall returns the offset in effect for a wall-clock reading.
	// The reading is passed encoded as UTC.
	OffsetAtWall(wall time.Time) time.Duration
}

// UnresolvableTimezoneError is returned when a timezone identifier cannot be
// resolved against the runtime's timezone database
type UnresolvableTimezoneError struct {
	Name string
	Err  error
}

func (e *UnresolvableTimezoneError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("timezone: cannot resolve %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("timezone: cannot resolve %q", e.Name)
}

func (e *UnresolvableTimezoneError) Unwrap() error {
	return e.Err
}

type fixedSource struct {
	offset time.Duration
}

// Fixed returns a source with a constant offset east of UTC.
func Fixed(offset time.Duration) Source {
	return fixedSource{offset: offset.Truncate(time.Second)}
}

// UTC returns the zero-offset source. It is equivalent to no configuration.
func UTC() Source {
	return fixedSource{}
}

func (s fixedSource) Name() string {
	if s.offset == 0 {
		return "UTC"
	}
	return formatOffset(s.offset)
}

func (s fixedSource) OffsetAt(time.Time) time.Duration {
	return s.offset
}

func (s fixedSource) OffsetAtWall(time.Time) time.Duration {
	return s.offset
}

type namedSource struct {
	loc *time.Location
}

// Named resolves an IANA timezone identifier such as "America/Denver".
func Named(name string) (Source, error) {
	if strings.TrimSpace(name) == "" {
		return nil, &UnresolvableTimezoneError{Name: name}
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, &UnresolvableTimezoneError{Name: name, Err: err}
	}
	return namedSource{loc: loc}, nil
}

// FromLocation wraps an already loaded location.
func FromLocation(loc *time.Location) Source {
	if loc == nil {
		return UTC()
	}
	return namedSource{loc: loc}
}

func (s namedSource) Name() string {
	return s.loc.String()
}

func (s namedSource) OffsetAt(instant time.Time) time.Duration {
	_, offset := instant.In(s.loc).Zone()
	return time.Duration(offset) * time.Second
}

func (s namedSource) OffsetAtWall(wall time.Time) time.Duration {
	return wallOffset(wall, s.loc)
}

type systemSource struct{}

// SystemZone returns a source backed by the runtime's local timezone.
func SystemZone() Source {
	return systemSource{}
}

func (systemSource) Name() string {
	return time.Local.String()
}

func (systemSource) OffsetAt(instant time.Time) time.Duration {
	_, offset := instant.In(time.Local).Zone()
	return time.Duration(offset) * time.Second
}

func (systemSource) OffsetAtWall(wall time.Time) time.Duration {
	return wallOffset(wall, time.Local)
}

// wallOffset places the wall reading in loc and reports how far it sits from
// UTC. Readings inside a DST gap or overlap resolve the way time.Date does.
func wallOffset(wall time.Time, loc *time.Location) time.Duration {
	w := wall.UTC()
	local := time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc)
	return w.Sub(local.UTC())
}

// IsUTC reports whether src performs no conversion at all.
func IsUTC(src Source) bool {
	switch s := src.(type) {
	case nil:
		return true
	case fixedSource:
		return s.offset == 0
	case namedSource:
		return s.loc == time.UTC
	}
	return false
}

// SameZone reports whether a and b always agree on the offset. Nil counts as
// UTC.
func SameZone(a, b Source) bool {
	if IsUTC(a) || IsUTC(b) {
		return IsUTC(a) && IsUTC(b)
	}
	fa, aFixed := a.(fixedSource)
	fb, bFixed := b.(fixedSource)
	if aFixed || bFixed {
		return aFixed && bFixed && fa.offset == fb.offset
	}
	return Location(a).String() == Location(b).String()
}

// Location returns a *time.Location equivalent to src, for formatting.
func Location(src Source) *time.Location {
	switch s := src.(type) {
	case nil:
		return time.UTC
	case fixedSource:
		if s.offset == 0 {
			return time.UTC
		}
		return time.FixedZone(s.Name(), int(s.offset/time.Second))
	case namedSource:
		return s.loc
	case systemSource:
		return time.Local
	}
	return time.UTC
}

var offsetReg = regexp.MustCompile(`^([+-])(\d{2}):?(\d{2})$`)

// Parse turns a configuration string into a Source:
//
//   - "", "UTC", "Z": UTC
//   - "local", "system": the runtime timezone
//   - "+05:30", "-0700": a fixed offset
//   - anything else: an IANA identifier
func Parse(value string) (Source, error) {
	value = strings.TrimSpace(value)
	switch strings.ToLower(value) {
	case "", "utc", "z":
		return UTC(), nil
	case "local", "system":
		return SystemZone(), nil
	}

	if m := offsetReg.FindStringSubmatch(value); m != nil {
		hours, _ := strconv.Atoi(m[2])
		minutes, _ := strconv.Atoi(m[3])
		if hours > 23 || minutes > 59 {
			return nil, &UnresolvableTimezoneError{Name: value, Err: fmt.Errorf("offset out of range")}
		}
		offset := time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
		if m[1] == "-" {
			offset = -offset
		}
		return Fixed(offset), nil
	}

	return Named(value)
}

func formatOffset(d time.Duration) string {
	sign := '+'
	if d < 0 {
		sign = '-'
		d = -d
	}
	return fmt.Sprintf("%c%02d:%02d", sign, int(d/time.Hour), int(d%time.Hour/time.Minute))
}
