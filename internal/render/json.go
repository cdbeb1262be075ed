package render

import (
	"encoding/json"
	"io"

	"github.com/cyp0633/librecur/timezone"
)

type jsonRenderer struct {
	conv *timezone.Normalizer
}

type jsonOccurrence struct {
	ID         string `json:"id"`
	Start      string `json:"start"`
	End        string `json:"end"`
	LocalStart string `json:"local_start"`
}

type jsonRange struct {
	Start              string `json:"start"`
	End                string `json:"end"`
	Forever            bool   `json:"forever"`
	FinalOccurrenceEnd string `json:"final_occurrence_end,omitempty"`
}

type jsonItem struct {
	UID         string           `json:"uid"`
	Summary     string           `json:"summary,omitempty"`
	Timezone    string           `json:"timezone,omitempty"`
	Range       *jsonRange       `json:"range,omitempty"`
	Next        string           `json:"next,omitempty"`
	Occurrences []jsonOccurrence `json:"occurrences"`
}

func (r *jsonRenderer) Render(w io.Writer, items []Item) error {
	out := make([]jsonItem, 0, len(items))
	for _, item := range items {
		ji := jsonItem{
			UID:         item.UID,
			Summary:     item.Summary,
			Timezone:    item.Timezone,
			Occurrences: make([]jsonOccurrence, 0, len(item.Expansion.Occurrences)),
		}
		if rng, ok := item.Range.Get(); ok {
			ji.Range = &jsonRange{Start: utc(rng.Start), End: utc(rng.End), Forever: rng.Forever}
			if end, ok := rng.FinalOccurrenceEnd.Get(); ok {
				ji.Range.FinalOccurrenceEnd = utc(end)
			}
		}
		if next, ok := item.Next.Get(); ok {
			ji.Next = utc(next)
		}
		for _, occ := range item.Expansion.Occurrences {
			ji.Occurrences = append(ji.Occurrences, jsonOccurrence{
				ID:         occ.ID,
				Start:      utc(occ.Start),
				End:        utc(occ.End),
				LocalStart: systemWall(r.conv, occ.Start),
			})
		}
		out = append(out, ji)
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
