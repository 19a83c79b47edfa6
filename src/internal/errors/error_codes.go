// Package errors provides the error taxonomy shared by both ends of the
// extension protocol, with stable JSON-RPC codes.
package errors

// Standard JSON-RPC error codes as defined in RFC 7309
const (
	ParseError     = -32700 // Invalid JSON was received by the server
	InvalidRequest = -32600 // The JSON sent is not a valid Request object
	MethodNotFound = -32601 // The method does not exist / is not available
	InvalidParams  = -32602 // Invalid method parameter(s)
	InternalError  = -32603 // Internal JSON-RPC error
)

// LSP-specific error codes as defined in the LSP specification
const (
	ServerNotInitialized = -32002 // Server not initialized
	UnknownErrorCode     = -32001 // Unknown error code
	RequestCancelled     = -32800 // Request was cancelled
	ContentModified      = -32801 // Content was modified
)

// Extension error codes (range: -33000 to -33099)
const (
	// Timeout errors
	OperationTimeout = -33011 // No response within the caller's bound

	// Validation errors
	InvalidPosition     = -33021 // Position outside the document
	InvalidTextDocument = -33022 // Unknown or closed document
	InvalidRange        = -33025 // Range outside the document or inverted

	// File resolution errors (readFile)
	FileNotFound     = -33070 // Referenced file does not exist
	PermissionDenied = -33071 // Referenced file is not readable
)

// Error code categories for classification and handling
const (
	CategoryJSONRPC    = "jsonrpc"    // Standard JSON-RPC errors
	CategoryLSP        = "lsp"        // LSP specification errors
	CategoryTimeout    = "timeout"    // Timeout-related errors
	CategoryValidation = "validation" // Document, position and range errors
	CategoryFile       = "file"       // readFile resolution errors
	CategoryUnknown    = "unknown"
)

// GetErrorCodeCategory returns the category for a given error code
func GetErrorCodeCategory(code int) string {
	switch {
	case code >= -32700 && code <= -32600:
		return CategoryJSONRPC
	case code >= -32099 && code <= -32000:
		return CategoryJSONRPC
	case code >= -32899 && code <= -32800:
		return CategoryLSP
	case code >= -33019 && code <= -33010:
		return CategoryTimeout
	case code >= -33029 && code <= -33020:
		return CategoryValidation
	case code >= -33079 && code <= -33070:
		return CategoryFile
	default:
		return CategoryUnknown
	}
}

var errorCodeMessages = map[int]string{
	ParseError:           "Parse error",
	InvalidRequest:       "Invalid Request",
	MethodNotFound:       "Method not found",
	InvalidParams:        "Invalid params",
	InternalError:        "Internal error",
	ServerNotInitialized: "Server not initialized",
	UnknownErrorCode:     "Unknown error code",
	RequestCancelled:     "Request cancelled",
	ContentModified:      "Content modified",
	OperationTimeout:     "Operation timeout",
	InvalidPosition:      "Invalid position",
	InvalidTextDocument:  "Invalid text document",
	InvalidRange:         "Invalid range",
	FileNotFound:         "File not found",
	PermissionDenied:     "Permission denied",
}

// GetErrorCodeMessage returns the standard message for a given error code
func GetErrorCodeMessage(code int) string {
	if msg, ok := errorCodeMessages[code]; ok {
		return msg
	}
	return "Unknown error"
}

// IsRetryableError determines if an error code represents a retryable condition.
// Every extension request is idempotent, so only conditions that may clear up
// on their own are reported.
func IsRetryableError(code int) bool {
	switch code {
	case OperationTimeout, ContentModified, RequestCancelled:
		return true
	default:
		return false
	}
}
