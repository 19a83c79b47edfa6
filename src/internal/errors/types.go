package errors

import (
	"fmt"
)

// MethodNotSupportedError reports a request that reached the wrong side of
// the connection, e.g. a server receiving readFile, which only servers send.
type MethodNotSupportedError struct {
	Side       string
	Method     string
	Suggestion string
}

func (e *MethodNotSupportedError) Error() string {
	if e.Suggestion == "" {
		return fmt.Sprintf("%s does not handle '%s'", e.Side, e.Method)
	}
	return fmt.Sprintf("%s does not handle '%s'. %s", e.Side, e.Method, e.Suggestion)
}

// NewMethodNotSupportedError creates a new MethodNotSupportedError
func NewMethodNotSupportedError(side, method, suggestion string) error {
	return &MethodNotSupportedError{
		Side:       side,
		Method:     method,
		Suggestion: suggestion,
	}
}
