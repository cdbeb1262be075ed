package recurrence

import (
	"sort"
	"strings"
	"time"

	"github.com/emersion/go-ical"

	"github.com/cyp0633/librecur/ruletext"
)

// recurrenceProps are the component properties that make up rule text, in
// the order they are emitted
var recurrenceProps = []string{
	ical.PropDateTimeStart,
	ical.PropRecurrenceRule,
	ical.PropRecurrenceDates,
	ruletext.TypeExRule,
	ical.PropExceptionDates,
}

// FromComponent builds an instance from a VEVENT or VTODO. The reference
// event is derived from the component unless opts already names one.
func FromComponent(comp *ical.Component, opts Options) (*Instance, error) {
	event, err := EventFromComponent(comp)
	if err != nil {
		return nil, err
	}
	if opts.Event.ID == "" {
		opts.Event.ID = event.ID
	}
	if opts.Event.Duration == 0 {
		opts.Event.Duration = event.Duration
	}
	return New(LinesFromComponent(comp), opts)
}

// LinesFromComponent extracts the recurrence properties of comp as rule
// lines, parameters included.
func LinesFromComponent(comp *ical.Component) []string {
	var lines []string
	for _, name := range recurrenceProps {
		for _, prop := range comp.Props.Values(name) {
			if strings.TrimSpace(prop.Value) == "" {
				continue
			}
			lines = append(lines, propertyFromICal(prop).String())
		}
	}
	return lines
}

func propertyFromICal(prop ical.Prop) ruletext.Property {
	keys := make([]string, 0, len(prop.Params))
	for key := range prop.Params {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	params := make([]ruletext.Param, 0, len(keys))
	for _, key := range keys {
		values := make([]string, len(prop.Params[key]))
		for i, v := range prop.Params[key] {
			if strings.ContainsAny(v, ":;,") {
				v = `"` + v + `"`
			}
			values[i] = v
		}
		params = append(params, ruletext.Param{Key: strings.ToUpper(key), Value: strings.Join(values, ",")})
	}

	return ruletext.Property{Type: strings.ToUpper(prop.Name), Params: params, Value: prop.Value}
}

// EventFromComponent derives the reference event from a component: UID as
// id, duration from DTEND, DURATION or DUE. All-day events without an end
// last one day; timed ones are instantaneous.
func EventFromComponent(comp *ical.Component) (Event, error) {
	event := Event{}
	if uid := comp.Props.Get(ical.PropUID); uid != nil {
		event.ID = uid.Value
	}

	startProp := comp.Props.Get(ical.PropDateTimeStart)
	if startProp == nil {
		return event, nil
	}
	start, err := startProp.DateTime(time.UTC)
	if err != nil {
		return Event{}, &ruletext.MalformedRuleTextError{Line: propertyFromICal(*startProp).String(), Reason: "invalid DTSTART", Err: err}
	}
	allDay := isDateValue(startProp)

	var duration time.Duration
	if endProp := comp.Props.Get(ical.PropDateTimeEnd); endProp != nil {
		end, err := endProp.DateTime(time.UTC)
		if err != nil {
			return Event{}, &ruletext.MalformedRuleTextError{Line: propertyFromICal(*endProp).String(), Reason: "invalid DTEND", Err: err}
		}
		duration = end.Sub(start)
		// Same-day all-day DTEND means a full day
		if allDay && duration == 0 {
			duration = 24 * time.Hour
		}
	} else if durationProp := comp.Props.Get(ical.PropDuration); durationProp != nil {
		d, err := durationProp.Duration()
		if err != nil {
			return Event{}, &ruletext.MalformedRuleTextError{Line: propertyFromICal(*durationProp).String(), Reason: "invalid DURATION", Err: err}
		}
		duration = d
	} else if allDay {
		duration = 24 * time.Hour
	}

	// For VTODO, a later DUE extends the end
	if comp.Name == ical.CompToDo {
		if dueProp := comp.Props.Get(ical.PropDue); dueProp != nil {
			if due, err := dueProp.DateTime(time.UTC); err == nil && due.After(start.Add(duration)) {
				duration = due.Sub(start)
			}
		}
	}

	if duration < 0 {
		duration = 0
	}
	event.Duration = duration
	return event, nil
}

func isDateValue(prop *ical.Prop) bool {
	if strings.EqualFold(prop.Params.Get(ruletext.ParamValue), "DATE") {
		return true
	}
	return len(strings.TrimSpace(prop.Value)) == 8
}
