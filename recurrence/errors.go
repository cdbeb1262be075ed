package recurrence

import "fmt"

// ErrorType classifies recurrence errors
type ErrorType string

const (
	ErrMissingStartInstant ErrorType = "missing_start_instant"
	ErrUnboundedExpansion  ErrorType = "unbounded_expansion"
	ErrMalformedRule       ErrorType = "malformed_rule"
)

// Error represents a recurrence construction or query error. Malformed rule
// text and unknown timezones surface as *ruletext.MalformedRuleTextError and
// *timezone.UnresolvableTimezoneError instead, possibly wrapped in Err.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type, so errors.Is(err, ErrUnbounded)
// works regardless of message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Type == e.Type
}

// Sentinels for errors.Is
var (
	ErrMissingStart = &Error{Type: ErrMissingStartInstant, Message: "no start instant"}
	ErrUnbounded    = &Error{Type: ErrUnboundedExpansion, Message: "rule has neither COUNT nor UNTIL"}
	ErrMalformed    = &Error{Type: ErrMalformedRule, Message: "recurrence rule rejected"}
)
