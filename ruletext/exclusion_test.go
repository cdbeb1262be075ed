package ruletext

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/librecur/timezone"
)

func utc(y int, m time.Month, d, h, mi, s int) time.Time {
	return time.Date(y, m, d, h, mi, s, 0, time.UTC)
}

func TestDecodeDateTime(t *testing.T) {
	tests := []struct {
		token   string
		want    DateTime
		wantErr bool
	}{
		{token: "20181105", want: DateTime{Wall: utc(2018, 11, 5, 0, 0, 0), DateOnly: true}},
		{token: "20181105T190000", want: DateTime{Wall: utc(2018, 11, 5, 19, 0, 0)}},
		{token: "20181105T190000Z", want: DateTime{Wall: utc(2018, 11, 5, 19, 0, 0), UTC: true}},
		{token: "2018-11-05", wantErr: true},
		{token: "20181345T190000", wantErr: true},
		{token: "20181105T1900", wantErr: true},
		{token: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			got, err := DecodeDateTime(tt.token)
			if tt.wantErr {
				var mErr *MalformedRuleTextError
				require.True(t, errors.As(err, &mErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseExclusionDates(t *testing.T) {
	denver, err := timezone.Named("America/Denver")
	require.NoError(t, err)

	tests := []struct {
		name     string
		line     string
		fallback timezone.Source
		want     []time.Time
		wantErr  bool
	}{
		{
			name: "tzid wall clock converted to base",
			line: "EXDATE;TZID=America/Denver:20181105T190000",
			want: []time.Time{utc(2018, 11, 6, 2, 0, 0)},
		},
		{
			name: "tzid across dst",
			line: "EXDATE;TZID=America/Denver:20181101T190000,20181105T190000",
			want: []time.Time{utc(2018, 11, 2, 1, 0, 0), utc(2018, 11, 6, 2, 0, 0)},
		},
		{
			name: "utc tokens pass through",
			line: "EXDATE:20181105T190000Z",
			want: []time.Time{utc(2018, 11, 5, 19, 0, 0)},
		},
		{
			name: "date only is absolute midnight",
			line: "EXDATE;VALUE=DATE:20181105",
			want: []time.Time{utc(2018, 11, 5, 0, 0, 0)},
		},
		{
			name: "z token ignores tzid",
			line: "EXDATE;TZID=America/Denver:20181105T190000Z",
			want: []time.Time{utc(2018, 11, 5, 19, 0, 0)},
		},
		{
			name:     "floating token uses fallback zone",
			line:     "EXDATE:20181105T190000",
			fallback: denver,
			want:     []time.Time{utc(2018, 11, 6, 2, 0, 0)},
		},
		{name: "floating token without any zone", line: "EXDATE:20181105T190000", wantErr: true},
		{name: "unknown tzid", line: "EXDATE;TZID=Nowhere/Special:20181105T190000", wantErr: true},
		{name: "garbage token", line: "EXDATE:20181105T190000Z,soon", wantErr: true},
		{name: "wrong type", line: "RDATE:20181105T190000Z", wantErr: true},
		{name: "no values", line: "EXDATE:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := ParseProperty(tt.line)
			require.NoError(t, err)

			got, err := ParseExclusionDates(p, tt.fallback)
			if tt.wantErr {
				var mErr *MalformedRuleTextError
				require.True(t, errors.As(err, &mErr), "got %v", err)
				assert.Equal(t, tt.line, mErr.Line)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, len(tt.want))
			for i := range tt.want {
				assert.True(t, tt.want[i].Equal(got[i].Time()), "index %d: want %s got %s", i, tt.want[i], got[i])
			}
		})
	}
}

func TestParseExclusionDates_UnknownTZIDWrapsTimezoneError(t *testing.T) {
	p, err := ParseProperty("EXDATE;TZID=Nowhere/Special:20181105T190000")
	require.NoError(t, err)

	_, err = ParseExclusionDates(p, nil)
	var tzErr *timezone.UnresolvableTimezoneError
	assert.True(t, errors.As(err, &tzErr))
}

func TestSeparateLines(t *testing.T) {
	lines := []string{
		"DTSTART;TZID=America/Denver:20181101T190000",
		"RRULE:FREQ=WEEKLY;BYDAY=MO,WE,TH;INTERVAL=1;COUNT=3",
		"EXDATE;TZID=America/Denver:20181105T190000",
		"EXDATE:20181106T020000Z,20181108T020000Z",
	}

	basic, exclusions, err := SeparateLines(lines, nil)
	require.NoError(t, err)

	assert.Equal(t, lines[:2], Serialize(basic))
	// the first two EXDATE values are the same instant
	assert.Equal(t, 2, exclusions.Len())
	assert.True(t, exclusions.Contains(timezone.BaseOf(utc(2018, 11, 6, 2, 0, 0))))
	assert.True(t, exclusions.Contains(timezone.BaseOf(utc(2018, 11, 8, 2, 0, 0))))
	assert.False(t, exclusions.Contains(timezone.BaseOf(utc(2018, 11, 2, 1, 0, 0))))
}

func TestSeparateLines_Malformed(t *testing.T) {
	_, _, err := SeparateLines([]string{"RRULE:FREQ=DAILY", "EXDATE:20181105T190000"}, nil)
	var mErr *MalformedRuleTextError
	require.True(t, errors.As(err, &mErr))
	assert.Equal(t, "EXDATE:20181105T190000", mErr.Line)
}

func TestExclusionSet(t *testing.T) {
	a := timezone.BaseOf(utc(2020, 1, 1, 10, 0, 0))
	b := timezone.BaseOf(utc(2020, 1, 2, 10, 0, 0))

	var s ExclusionSet
	assert.False(t, s.Contains(a))
	assert.Equal(t, 0, s.Len())

	s.Add(b, a, a)
	assert.Equal(t, 2, s.Len())
	assert.True(t, s.Contains(timezone.BaseOf(utc(2020, 1, 1, 10, 0, 0).Add(300*time.Millisecond))))

	instants := s.Instants()
	require.Len(t, instants, 2)
	assert.True(t, instants[0].Equal(a))
	assert.True(t, instants[1].Equal(b))

	other := NewExclusionSet(timezone.BaseOf(utc(2020, 1, 3, 10, 0, 0)), a)
	s.Merge(other)
	assert.Equal(t, 3, s.Len())
}

func TestFormatDateTime(t *testing.T) {
	b := timezone.BaseOf(utc(2018, 11, 6, 2, 0, 0))
	assert.Equal(t, "20181106T020000Z", FormatDateTime(b))
	assert.Equal(t, "20181105T190000", FormatWallClock(timezone.WallClock(2018, 11, 5, 19, 0, 0)))

	back, err := ParseDateTime(FormatDateTime(b), nil)
	require.NoError(t, err)
	assert.True(t, back.Equal(b))
}
