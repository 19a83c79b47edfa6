package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"
)

// Kind classifies an extension failure. The set is closed; every kind has a
// stable wire code.
type Kind int

const (
	KindUnknown Kind = iota
	KindInvalidDocument
	KindInvalidRange
	KindInvalidPosition
	KindFileNotFound
	KindPermissionDenied
	KindTimeout
	KindProtocol
)

var kindNames = map[Kind]string{
	KindUnknown:          "unknown error",
	KindInvalidDocument:  "invalid document",
	KindInvalidRange:     "invalid range",
	KindInvalidPosition:  "invalid position",
	KindFileNotFound:     "file not found",
	KindPermissionDenied: "permission denied",
	KindTimeout:          "timeout",
	KindProtocol:         "protocol error",
}

var kindCodes = map[Kind]int{
	KindUnknown:          InternalError,
	KindInvalidDocument:  InvalidTextDocument,
	KindInvalidRange:     InvalidRange,
	KindInvalidPosition:  InvalidPosition,
	KindFileNotFound:     FileNotFound,
	KindPermissionDenied: PermissionDenied,
	KindTimeout:          OperationTimeout,
	KindProtocol:         InvalidParams,
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[KindUnknown]
}

// Code returns the JSON-RPC error code used on the wire
func (k Kind) Code() int {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return InternalError
}

// KindForCode maps a wire code back to its Kind
func KindForCode(code int) Kind {
	switch code {
	case InvalidTextDocument:
		return KindInvalidDocument
	case InvalidRange:
		return KindInvalidRange
	case InvalidPosition:
		return KindInvalidPosition
	case FileNotFound:
		return KindFileNotFound
	case PermissionDenied:
		return KindPermissionDenied
	case OperationTimeout:
		return KindTimeout
	case InvalidParams, ParseError, InvalidRequest:
		return KindProtocol
	default:
		return KindUnknown
	}
}

// ExtensionError is a classified failure of one extension request
type ExtensionError struct {
	Kind    Kind   `json:"kind"`
	Method  string `json:"method,omitempty"`
	Message string `json:"message"`
	Cause   error  `json:"-"`

	// remote is set when the error was decoded from a peer's response; the
	// message then already carries the kind prefix.
	remote bool
}

func (e *ExtensionError) Error() string {
	msg := e.Message
	if !e.remote {
		if msg == "" {
			msg = e.Kind.String()
		} else {
			msg = fmt.Sprintf("%s: %s", e.Kind, msg)
		}
	}
	if e.Method != "" && !e.remote {
		return fmt.Sprintf("%s: %s", e.Method, msg)
	}
	return msg
}

func (e *ExtensionError) Unwrap() error {
	return e.Cause
}

// Is matches sentinel errors by kind, so errors.Is(err, ErrInvalidPosition)
// holds for any invalid-position failure, local or decoded from the wire.
func (e *ExtensionError) Is(target error) bool {
	t, ok := target.(*ExtensionError)
	if !ok {
		return false
	}
	if t.Message == "" && t.Method == "" && t.Cause == nil {
		return t.Kind == e.Kind
	}
	return t == e
}

// Code returns the wire code of the error's kind
func (e *ExtensionError) Code() int {
	return e.Kind.Code()
}

// Sentinels for errors.Is
var (
	ErrInvalidDocument  = &ExtensionError{Kind: KindInvalidDocument}
	ErrInvalidRange     = &ExtensionError{Kind: KindInvalidRange}
	ErrInvalidPosition  = &ExtensionError{Kind: KindInvalidPosition}
	ErrFileNotFound     = &ExtensionError{Kind: KindFileNotFound}
	ErrPermissionDenied = &ExtensionError{Kind: KindPermissionDenied}
	ErrTimeout          = &ExtensionError{Kind: KindTimeout}
	ErrProtocol         = &ExtensionError{Kind: KindProtocol}
)

// Error constructors

// NewInvalidDocumentError reports a document the server does not know
func NewInvalidDocumentError(uri string) *ExtensionError {
	return &ExtensionError{
		Kind:    KindInvalidDocument,
		Message: fmt.Sprintf("document %q is not open", uri),
	}
}

// NewInvalidPositionError reports a position outside the document
func NewInvalidPositionError(line, character uint32, detail string) *ExtensionError {
	msg := fmt.Sprintf("%d:%d", line, character)
	if detail != "" {
		msg = fmt.Sprintf("%s (%s)", msg, detail)
	}
	return &ExtensionError{Kind: KindInvalidPosition, Message: msg}
}

// NewInvalidRangeError reports a range outside the document or inverted
func NewInvalidRangeError(detail string) *ExtensionError {
	return &ExtensionError{Kind: KindInvalidRange, Message: detail}
}

// NewFileNotFoundError reports a readFile target that does not exist
func NewFileNotFoundError(path string, cause error) *ExtensionError {
	return &ExtensionError{Kind: KindFileNotFound, Message: path, Cause: cause}
}

// NewPermissionDeniedError reports a readFile target that cannot be read
func NewPermissionDeniedError(path string, cause error) *ExtensionError {
	return &ExtensionError{Kind: KindPermissionDenied, Message: path, Cause: cause}
}

// NewTimeoutError reports a request that got no answer within timeout
func NewTimeoutError(method string, timeout time.Duration, cause error) *ExtensionError {
	msg := "no response"
	if timeout > 0 {
		msg = fmt.Sprintf("no response within %v", timeout)
	}
	return &ExtensionError{Kind: KindTimeout, Method: method, Message: msg, Cause: cause}
}

// NewProtocolError reports a malformed payload
func NewProtocolError(detail string, cause error) *ExtensionError {
	if cause != nil {
		detail = fmt.Sprintf("%s: %v", detail, cause)
	}
	return &ExtensionError{Kind: KindProtocol, Message: detail, Cause: cause}
}

// WithMethod returns a copy of err tagged with the method that failed.
// Errors that are not ExtensionErrors are wrapped with the method as context.
func WithMethod(method string, err error) error {
	if err == nil {
		return nil
	}
	var ext *ExtensionError
	if stderrors.As(err, &ext) {
		if ext.Method != "" {
			return err
		}
		cp := *ext
		cp.Method = method
		return &cp
	}
	return WrapWithContext(method, err)
}

// KindOf returns the Kind of err, or KindUnknown
func KindOf(err error) Kind {
	var ext *ExtensionError
	if stderrors.As(err, &ext) {
		return ext.Kind
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	return KindUnknown
}

// Error classification functions

// IsTimeoutError checks if the error is a timeout error
func IsTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	return KindOf(err) == KindTimeout
}

// IsCancellationError checks if the error is a cancellation error
func IsCancellationError(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, context.Canceled)
}

// IsProtocolError checks if the error is a malformed-payload error
func IsProtocolError(err error) bool {
	return err != nil && KindOf(err) == KindProtocol
}

// WrapWithContext wraps an error with operation context
func WrapWithContext(operation string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", operation, err)
}
