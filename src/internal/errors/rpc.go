package errors

import (
	"context"
	stderrors "errors"
	"fmt"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
)

// ToRPCError converts a handler error into the error carried by a JSON-RPC
// response. It returns a nil interface for a nil err.
func ToRPCError(err error) error {
	if err == nil {
		return nil
	}

	var rpcErr *jsonrpc2.Error
	if stderrors.As(err, &rpcErr) {
		return rpcErr
	}

	var ext *ExtensionError
	if stderrors.As(err, &ext) {
		return jsonrpc2.NewError(jsonrpc2.Code(ext.Code()), err.Error())
	}

	var unsupported *MethodNotSupportedError
	if stderrors.As(err, &unsupported) {
		return jsonrpc2.NewError(jsonrpc2.MethodNotFound, unsupported.Error())
	}

	switch {
	case stderrors.Is(err, context.Canceled):
		return protocol.ErrRequestCancelled
	case stderrors.Is(err, context.DeadlineExceeded):
		return jsonrpc2.NewError(jsonrpc2.Code(OperationTimeout), err.Error())
	}

	return jsonrpc2.NewError(jsonrpc2.InternalError, err.Error())
}

// FromRPCError converts an error received in a response back into the
// taxonomy, so the caller can test it with errors.Is against the sentinels.
// Codes outside the taxonomy are returned wrapped with the method name.
func FromRPCError(method string, err error) error {
	if err == nil {
		return nil
	}

	var rpcErr *jsonrpc2.Error
	if !stderrors.As(err, &rpcErr) {
		return WrapWithContext(method, err)
	}

	kind := KindForCode(int(rpcErr.Code))
	if kind == KindUnknown {
		return fmt.Errorf("%s: %w", method, rpcErr)
	}

	return &ExtensionError{
		Kind:    kind,
		Method:  method,
		Message: rpcErr.Message,
		Cause:   rpcErr,
		remote:  true,
	}
}

// IsMethodNotFound reports whether err is a MethodNotFound response
func IsMethodNotFound(err error) bool {
	var rpcErr *jsonrpc2.Error
	if stderrors.As(err, &rpcErr) {
		return rpcErr.Code == jsonrpc2.MethodNotFound
	}
	var unsupported *MethodNotSupportedError
	return stderrors.As(err, &unsupported)
}

// IsRequestCancelled reports whether err is a RequestCancelled response
func IsRequestCancelled(err error) bool {
	var rpcErr *jsonrpc2.Error
	if stderrors.As(err, &rpcErr) {
		return rpcErr.Code == protocol.CodeRequestCancelled
	}
	return false
}

// CodeOf returns the wire code carried by err, if it has one
func CodeOf(err error) (int, bool) {
	var ext *ExtensionError
	if stderrors.As(err, &ext) {
		return ext.Code(), true
	}
	var rpcErr *jsonrpc2.Error
	if stderrors.As(err, &rpcErr) {
		return int(rpcErr.Code), true
	}
	var unsupported *MethodNotSupportedError
	if stderrors.As(err, &unsupported) {
		return MethodNotFound, true
	}
	return 0, false
}
