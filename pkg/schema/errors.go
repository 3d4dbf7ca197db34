package schema

import (
	"errors"
	"fmt"
	"strings"
)

// ErrTypeMismatch is returned when a value cannot be converted to a port type.
var ErrTypeMismatch = errors.New("type mismatch")

// ValidationError reports a shared value that breaks its declared type.
type ValidationError struct {
	Key    string
	Reason string
	Value  any
}

func (e *ValidationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("value %q: %s", e.Key, e.Reason)
	}
	return fmt.Sprintf("value %q: %s (got %T)", e.Key, e.Reason, e.Value)
}

// AggregateError collects every failure of one Validate call.
type AggregateError struct {
	Errors []error
}

func (e *AggregateError) Error() string {
	if len(e.Errors) == 1 {
		return e.Errors[0].Error()
	}
	lines := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		lines[i] = "  - " + err.Error()
	}
	return fmt.Sprintf("%d invalid values:\n%s", len(e.Errors), strings.Join(lines, "\n"))
}

func (e *AggregateError) Unwrap() []error { return e.Errors }

// ValidationErrors unpacks an AggregateError. Other errors yield nil.
func ValidationErrors(err error) []error {
	var agg *AggregateError
	if errors.As(err, &agg) {
		return agg.Errors
	}
	return nil
}
