package render

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cyp0633/librecur/timezone"
)

type textRenderer struct {
	local bool
	conv  *timezone.Normalizer
}

func (r *textRenderer) instant(b timezone.Base) string {
	if r.local {
		return systemWall(r.conv, b)
	}
	return utc(b)
}

func (r *textRenderer) Render(w io.Writer, items []Item) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	for i, item := range items {
		if i > 0 {
			fmt.Fprintln(tw)
		}
		title := item.UID
		if item.Summary != "" {
			title += " (" + item.Summary + ")"
		}
		fmt.Fprintf(tw, "%s\t%s\n", title, item.Timezone)

		if rng, ok := item.Range.Get(); ok {
			end := r.instant(rng.End)
			if rng.Forever {
				end = "forever"
			}
			fmt.Fprintf(tw, "  range\t%s\t%s\n", r.instant(rng.Start), end)
		}
		if next, ok := item.Next.Get(); ok {
			fmt.Fprintf(tw, "  next\t%s\n", r.instant(next))
		}

		for _, occ := range item.Expansion.Occurrences {
			fmt.Fprintf(tw, "  \t%s\t%s\n", r.instant(occ.Start), r.instant(occ.End))
		}
		if len(item.Expansion.Occurrences) == 0 && item.Range.IsAbsent() && item.Next.IsAbsent() {
			fmt.Fprintln(tw, "  (no occurrences)")
		}
	}

	return tw.Flush()
}
