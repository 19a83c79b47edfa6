package lspext

import (
	"encoding/json"

	"go.lsp.dev/protocol"
)

// SyntaxTreeParams are the params of wgsl-analyzer/syntaxTree.
// A nil Range asks for the whole document.
type SyntaxTreeParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Range        *protocol.Range                 `json:"range"`
}

// DebugCommandParams are the params of wgsl-analyzer/debugCommand
type DebugCommandParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Position     protocol.Position               `json:"position"`
}

// FullSourceParams are the params of wgsl-analyzer/fullSource
type FullSourceParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
}

// Configuration is the opaque value answered to requestConfiguration.
// Its shape is negotiated out of band; an empty object means no settings.
type Configuration = json.RawMessage

// ReadFileID correlates a readFile answer with its request. It is chosen by
// the server and never interpreted by the client.
type ReadFileID string

// ReadFileParams are the params of wgsl-analyzer/readFile
type ReadFileParams struct {
	Identifier ReadFileID                      `json:"identifier"`
	Filepath   protocol.TextDocumentIdentifier `json:"filepath"`
	Original   protocol.TextDocumentIdentifier `json:"original"`
}

// ReadFileResult is the answer to wgsl-analyzer/readFile
type ReadFileResult struct {
	Identifier ReadFileID                      `json:"identifier"`
	Filepath   protocol.TextDocumentIdentifier `json:"filepath"`
	Original   protocol.TextDocumentIdentifier `json:"original"`
	Source     string                          `json:"source"`
}

// Answer builds the result for p carrying source. The identifier and both
// document references are echoed unchanged.
func (p ReadFileParams) Answer(source string) ReadFileResult {
	return ReadFileResult{
		Identifier: p.Identifier,
		Filepath:   p.Filepath,
		Original:   p.Original,
		Source:     source,
	}
}

// Matches reports whether r answers p
func (r ReadFileResult) Matches(p ReadFileParams) bool {
	return r.Identifier == p.Identifier
}

// InlayHintsParams are the params of experimental/inlayHints. Range is required.
type InlayHintsParams struct {
	TextDocument protocol.TextDocumentIdentifier `json:"textDocument"`
	Range        protocol.Range                  `json:"range"`
}
