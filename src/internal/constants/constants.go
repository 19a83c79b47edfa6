package constants

import "time"

// Timeout constants for protocol operations
const (
	// DefaultRequestTimeout bounds client→server requests issued by the CLI
	DefaultRequestTimeout = 15 * time.Second
	// OutboundRequestTimeout bounds server→client requests (readFile, requestConfiguration)
	OutboundRequestTimeout = 10 * time.Second
	// ShutdownTimeout bounds the shutdown/exit handshake
	ShutdownTimeout = 5 * time.Second
	// LateResponseWindow is how long an abandoned request ID is remembered
	// so that a late answer is logged as late rather than unknown.
	LateResponseWindow = 30 * time.Second
)

// Resource limits
const (
	// DefaultMaxConcurrentReads bounds readFile requests in flight per fullSource call
	DefaultMaxConcurrentReads = 8
	// DefaultParseCacheBytes is the ristretto MaxCost for parsed documents
	DefaultParseCacheBytes = 32 << 20
	// MaxImportDepth stops recursive #import expansion
	MaxImportDepth = 8
)

// Server identity reported in the initialize result
const (
	ServerName = "shader-lsp"
	// LanguageID is the document language this server analyzes
	LanguageID = "wgsl"
)

// Supported file extensions
var SupportedExtensions = []string{".wgsl", ".shader"}
