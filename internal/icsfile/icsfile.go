package icsfile

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	ics "github.com/arran4/golang-ical"
	"github.com/emersion/go-ical"
)

// Event is one master VEVENT of a calendar file, re-expressed as a go-ical
// component so recurrence.FromComponent can consume it.
type Event struct {
	UID       string
	Summary   string
	Component *ical.Component
}

// Parse reads every master VEVENT from an iCalendar stream. Overrides
// (RECURRENCE-ID) are skipped.
func Parse(r io.Reader, logger *slog.Logger) ([]Event, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("parse calendar: %w", err)
	}

	events := make([]Event, 0)
	for _, ve := range cal.Events() {
		uid := propValue(ve, ics.ComponentPropertyUniqueId)
		if ve.GetProperty(ics.ComponentPropertyRecurrenceId) != nil {
			logger.Debug("skipping recurrence override", "uid", uid)
			continue
		}
		if ve.GetProperty(ics.ComponentPropertyDtStart) == nil {
			logger.Warn("skipping event without DTSTART", "uid", uid)
			continue
		}

		events = append(events, Event{
			UID:       uid,
			Summary:   propValue(ve, ics.ComponentPropertySummary),
			Component: toComponent(ve),
		})
	}

	logger.Debug("calendar parsed", "event_count", len(events))
	return events, nil
}

// ReadFile parses the calendar file at path.
func ReadFile(path string, logger *slog.Logger) ([]Event, error) {
	if path == "" {
		return nil, errors.New("calendar path is empty")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f, logger)
}

func propValue(ve *ics.VEvent, prop ics.ComponentProperty) string {
	if p := ve.GetProperty(prop); p != nil {
		return p.Value
	}
	return ""
}

// toComponent copies every property, parameters included, into a go-ical
// component.
func toComponent(ve *ics.VEvent) *ical.Component {
	comp := ical.NewComponent(ical.CompEvent)
	for _, p := range ve.Properties {
		name := strings.ToUpper(p.IANAToken)
		params := make(ical.Params, len(p.ICalParameters))
		for key, values := range p.ICalParameters {
			params[strings.ToUpper(key)] = append([]string(nil), values...)
		}
		comp.Props[name] = append(comp.Props[name], ical.Prop{Name: name, Params: params, Value: p.Value})
	}
	return comp
}
