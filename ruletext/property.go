// Package ruletext reads and writes the line-oriented RFC 5545 rule format:
//
//	DTSTART;TZID=America/Denver:20181101T190000
//	RRULE:FREQ=WEEKLY;BYDAY=MO,WE,TH;INTERVAL=1;COUNT=3
//	EXDATE;TZID=America/Denver:20181105T190000
//
// Each line is TYPE[;PARAM=VALUE...]:VALUE[,VALUE...].
package ruletext

import (
	"fmt"
	"regexp"
	"strings"
)

// Property types handled specially by the recurrence evaluator
const (
	TypeDTStart = "DTSTART"
	TypeRRule   = "RRULE"
	TypeRDate   = "RDATE"
	TypeExDate  = "EXDATE"
	TypeExRule  = "EXRULE"
)

// Common parameter names
const (
	ParamTZID  = "TZID"
	ParamValue = "VALUE"
)

var typeTokenReg = regexp.MustCompile(`^[A-Za-z0-9-]+$`)

// MalformedRuleTextError reports a line or token that could not be parsed.
// There is no partial parse: the whole input is rejected.
type MalformedRuleTextError struct {
	Line   string
	Reason string
	Err    error
}

func (e *MalformedRuleTextError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed rule text %q: %s: %v", e.Line, e.Reason, e.Err)
	}
	return fmt.Sprintf("malformed rule text %q: %s", e.Line, e.Reason)
}

func (e *MalformedRuleTextError) Unwrap() error {
	return e.Err
}

func malformed(line, reason string, err error) *MalformedRuleTextError {
	return &MalformedRuleTextError{Line: line, Reason: reason, Err: err}
}

// Param is a single key=value parameter. Value is kept verbatim, quotes included.
type Param struct {
	Key   string
	Value string
}

// Property is one parsed rule line.
type Property struct {
	Type   string
	Params []Param
	Value  string
}

// ParseProperty splits a line into its type, parameters and raw value. The
// value starts after the first ':' that is neither escaped nor inside a quoted
// parameter value. Only the first '=' of a parameter separates key from value.
func ParseProperty(line string) (Property, error) {
	sep := valueSeparator(line)
	if sep < 0 {
		return Property{}, malformed(line, "missing ':' separator", nil)
	}

	head, value := line[:sep], line[sep+1:]
	parts := splitUnquoted(head, ';')

	typ := strings.ToUpper(parts[0])
	if !typeTokenReg.MatchString(typ) {
		return Property{}, malformed(line, fmt.Sprintf("invalid property type %q", parts[0]), nil)
	}

	params := make([]Param, 0, len(parts)-1)
	for _, part := range parts[1:] {
		key, val, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return Property{}, malformed(line, fmt.Sprintf("parameter %q is not key=value", part), nil)
		}
		params = append(params, Param{Key: key, Value: val})
	}

	return Property{Type: typ, Params: params, Value: value}, nil
}

// String serializes the property back into a single line.
func (p Property) String() string {
	var sb strings.Builder
	sb.WriteString(p.Type)
	for _, param := range p.Params {
		sb.WriteByte(';')
		sb.WriteString(param.Key)
		sb.WriteByte('=')
		sb.WriteString(param.Value)
	}
	sb.WriteByte(':')
	sb.WriteString(p.Value)
	return sb.String()
}

// Param looks a parameter up case-insensitively and strips surrounding quotes.
func (p Property) Param(key string) (string, bool) {
	for _, param := range p.Params {
		if strings.EqualFold(param.Key, key) {
			return strings.Trim(param.Value, `"`), true
		}
	}
	return "", false
}

// Values splits the raw value on ','.
func (p Property) Values() []string {
	if p.Value == "" {
		return nil
	}
	return strings.Split(p.Value, ",")
}

// Parse parses every line, failing on the first malformed one.
func Parse(lines []string) ([]Property, error) {
	props := make([]Property, 0, len(lines))
	for _, line := range lines {
		p, err := ParseProperty(line)
		if err != nil {
			return nil, err
		}
		props = append(props, p)
	}
	return props, nil
}

// Serialize is the inverse of Parse.
func Serialize(props []Property) []string {
	lines := make([]string, 0, len(props))
	for _, p := range props {
		lines = append(lines, p.String())
	}
	return lines
}

func valueSeparator(line string) int {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '\\':
			i++
		case '"':
			inQuote = !inQuote
		case ':':
			if !inQuote {
				return i
			}
		}
	}
	return -1
}

func splitUnquoted(s string, sep byte) []string {
	var parts []string
	inQuote := false
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			inQuote = !inQuote
		case sep:
			if !inQuote {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	return append(parts, s[last:])
}
