// Package render prints expansion results as text, JSON or xCal.
package render

import (
	"fmt"
	"io"
	"time"

	"github.com/samber/mo"

	"github.com/cyp0633/librecur/recurrence"
	"github.com/cyp0633/librecur/timezone"
)

// Item is the result for one event.
type Item struct {
	UID       string
	Summary   string
	Timezone  string
	Expansion recurrence.Expansion
	Range     mo.Option[recurrence.Range]
	Next      mo.Option[timezone.Base]
}

// Renderer writes a batch of items.
type Renderer interface {
	Render(w io.Writer, items []Item) error
}

// Options controls how instants are shown.
type Options struct {
	// Local shows instants as wall clock readings in the process timezone
	// instead of UTC. Only the text renderer honours it; JSON and xCal carry
	// both forms or true instants.
	Local bool
	// System overrides the process timezone; used in tests.
	System timezone.Source
}

// New returns the renderer for format.
func New(format string, opts Options) (Renderer, error) {
	conv := timezone.NewWithSystem(timezone.UTC(), systemSource(opts.System))
	switch format {
	case "text", "":
		return &textRenderer{local: opts.Local, conv: conv}, nil
	case "json":
		return &jsonRenderer{conv: conv}, nil
	case "xcal":
		return &xcalRenderer{}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", format)
}

func systemSource(src timezone.Source) timezone.Source {
	if src == nil {
		return timezone.SystemZone()
	}
	return src
}

const localLayout = "2006-01-02 15:04:05"

// systemWall formats an instant as the process's wall clock reading.
func systemWall(conv *timezone.Normalizer, b timezone.Base) string {
	return conv.BaseToSystem(b).Time().Format(localLayout)
}

func utc(b timezone.Base) string {
	return b.Time().Format(time.RFC3339)
}
