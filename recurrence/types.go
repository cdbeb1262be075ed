package recurrence

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/cyp0633/librecur/timezone"
)

// Interval is a query window in the base frame, inclusive of both ends
type Interval struct {
	Start timezone.Base
	End   timezone.Base
}

// Range describes the overall extent of a recurrence
type Range struct {
	Start   timezone.Base // First occurrence
	End     timezone.Base // Last occurrence start, or ForeverEnd for unbounded rules
	Forever bool          // True when the rule has neither COUNT nor UNTIL
	// FinalOccurrenceEnd is End plus the reference event's duration. It is
	// absent for forever rules and when the last occurrence could not be found.
	FinalOccurrenceEnd mo.Option[timezone.Base]
}

// Event is the caller's reference event. Only its identity and duration are
// used here; the payload stays with the caller.
type Event struct {
	ID       string
	Duration time.Duration
}

// Occurrence is a single generated instance of an event
type Occurrence struct {
	ID      string // Deterministic per event and start
	EventID string
	Start   timezone.Base
	End     timezone.Base
}

// Expansion is the result of expanding a recurrence
type Expansion struct {
	Between     mo.Option[Interval]
	Occurrences []Occurrence
}

// Starts returns the start instant of every occurrence.
func (e Expansion) Starts() []timezone.Base {
	out := make([]timezone.Base, len(e.Occurrences))
	for i, occ := range e.Occurrences {
		out[i] = occ.Start
	}
	return out
}

// Options controls how rule lines are turned into an Instance
type Options struct {
	// Start is used when the rule text has no DTSTART. It is a true instant.
	Start mo.Option[timezone.Base]
	// Timezone applies when DTSTART carries no TZID. Nil means UTC.
	Timezone timezone.Source
	// Exclusions are merged with the EXDATE lines of the rule text.
	Exclusions []timezone.Base
	// Event supplies the id and duration attached to occurrences.
	Event Event
	// Config overrides DefaultEngineConfig.
	Config *EngineConfig
	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

var occurrenceNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/cyp0633/librecur/occurrence"))

func occurrenceID(eventID string, start timezone.Base) string {
	return uuid.NewSHA1(occurrenceNamespace, []byte(eventID+"@"+strconv.FormatInt(start.Unix(), 10))).String()
}

func newOccurrence(event Event, start timezone.Base) Occurrence {
	return Occurrence{
		ID:      occurrenceID(event.ID, start),
		EventID: event.ID,
		Start:   start,
		End:     start.Add(event.Duration),
	}
}
