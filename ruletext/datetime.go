package ruletext

import (
	"fmt"
	"strings"
	"time"

	"github.com/cyp0633/librecur/timezone"
)

const (
	dateLayout        = "20060102"
	dateTimeLayout    = "20060102T150405"
	dateTimeUTCLayout = "20060102T150405Z"
)

// DateTime is a decoded DATE or DATE-TIME token. Wall holds the reading
// encoded as UTC; only when UTC is set is it also a true instant.
type DateTime struct {
	Wall     time.Time
	UTC      bool
	DateOnly bool
}

// DecodeDateTime accepts YYYYMMDD, YYYYMMDDTHHMMSS and YYYYMMDDTHHMMSSZ.
func DecodeDateTime(token string) (DateTime, error) {
	switch {
	case len(token) == len(dateLayout):
		t, err := time.Parse(dateLayout, token)
		if err != nil {
			return DateTime{}, malformed(token, "invalid date", err)
		}
		return DateTime{Wall: t, DateOnly: true}, nil
	case len(token) == len(dateTimeUTCLayout) && strings.HasSuffix(token, "Z"):
		t, err := time.Parse(dateTimeUTCLayout, token)
		if err != nil {
			return DateTime{}, malformed(token, "invalid UTC date-time", err)
		}
		return DateTime{Wall: t, UTC: true}, nil
	case len(token) == len(dateTimeLayout):
		t, err := time.Parse(dateTimeLayout, token)
		if err != nil {
			return DateTime{}, malformed(token, "invalid date-time", err)
		}
		return DateTime{Wall: t}, nil
	}
	return DateTime{}, malformed(token, "unrecognised date or date-time", nil)
}

// Floating reports whether the token needs a timezone to become an instant.
func (d DateTime) Floating() bool {
	return !d.UTC && !d.DateOnly
}

// ParseDateTime decodes a token into a base instant. Date-only and Z tokens
// are absolute. A floating date-time is read as a wall clock in src; with no
// src it is an error.
func ParseDateTime(token string, src timezone.Source) (timezone.Base, error) {
	dt, err := DecodeDateTime(token)
	if err != nil {
		return timezone.Base{}, err
	}
	if !dt.Floating() {
		return timezone.BaseOf(dt.Wall), nil
	}
	if src == nil {
		return timezone.Base{}, malformed(token, "floating date-time without TZID or timezone", nil)
	}
	return timezone.New(src).TargetToBase(timezone.TargetOf(dt.Wall)), nil
}

// FormatDateTime writes a base instant as a UTC DATE-TIME token.
func FormatDateTime(b timezone.Base) string {
	return b.Time().Format(dateTimeUTCLayout)
}

// FormatWallClock writes a target wall clock as a floating DATE-TIME token,
// suitable for a TZID-qualified property.
func FormatWallClock(t timezone.Target) string {
	return t.Time().Format(dateTimeLayout)
}

// resolveTZID returns the source named by the property's TZID parameter, or
// fallback when the parameter is absent.
func resolveTZID(p Property, fallback timezone.Source) (timezone.Source, error) {
	tzid, ok := p.Param(ParamTZID)
	if !ok {
		return fallback, nil
	}
	src, err := timezone.Named(tzid)
	if err != nil {
		return nil, malformed(p.String(), fmt.Sprintf("unknown TZID %q", tzid), err)
	}
	return src, nil
}
