package render

import (
	"io"

	"github.com/beevik/etree"

	"github.com/cyp0633/librecur/timezone"
)

// XCal is the RFC 6321 namespace
const XCal = "urn:ietf:params:xml:ns:icalendar-2.0"

// Element names used in the xCal document
const (
	TagICalendar    = "icalendar"
	TagVCalendar    = "vcalendar"
	TagVEvent       = "vevent"
	TagProperties   = "properties"
	TagComponents   = "components"
	TagText         = "text"
	TagDateTime     = "date-time"
	TagUID          = "uid"
	TagSummary      = "summary"
	TagDTStart      = "dtstart"
	TagDTEnd        = "dtend"
	TagRecurrenceID = "recurrence-id"
	TagProdID       = "prodid"
	TagVersion      = "version"
)

const prodID = "-//librecur//recur//EN"

type xcalRenderer struct{}

func (r *xcalRenderer) Render(w io.Writer, items []Item) error {
	doc := ToXML(items)
	doc.Indent(2)
	_, err := doc.WriteTo(w)
	return err
}

// ToXML builds an xCal document with one VEVENT per occurrence. Occurrences
// keep the event UID and are told apart by RECURRENCE-ID.
func ToXML(items []Item) *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)

	root := doc.CreateElement(TagICalendar)
	root.CreateAttr("xmlns", XCal)

	vcal := root.CreateElement(TagVCalendar)
	props := vcal.CreateElement(TagProperties)
	textProp(props, TagProdID, prodID)
	textProp(props, TagVersion, "2.0")

	comps := vcal.CreateElement(TagComponents)
	for _, item := range items {
		for _, occ := range item.Expansion.Occurrences {
			vevent := comps.CreateElement(TagVEvent)
			vprops := vevent.CreateElement(TagProperties)
			textProp(vprops, TagUID, item.UID)
			if item.Summary != "" {
				textProp(vprops, TagSummary, item.Summary)
			}
			dateTimeProp(vprops, TagRecurrenceID, occ.Start)
			dateTimeProp(vprops, TagDTStart, occ.Start)
			dateTimeProp(vprops, TagDTEnd, occ.End)
		}
	}

	return doc
}

func textProp(parent *etree.Element, name, value string) {
	parent.CreateElement(name).CreateElement(TagText).SetText(value)
}

func dateTimeProp(parent *etree.Element, name string, b timezone.Base) {
	parent.CreateElement(name).CreateElement(TagDateTime).SetText(utc(b))
}
