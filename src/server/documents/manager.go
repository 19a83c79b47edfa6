// Package documents tracks the text documents the client has opened and
// converts between protocol positions and byte offsets.
package documents

import (
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"shader-lsp/src/internal/common"
	"shader-lsp/src/internal/constants"
	errs "shader-lsp/src/internal/errors"
)

// ContentChange is one textDocument/didChange edit. Range is a pointer so a
// full-text replacement (no range) can be told apart from an edit at 0:0.
type ContentChange struct {
	Range *protocol.Range `json:"range,omitempty"`
	Text  string          `json:"text"`
}

// DidChangeParams mirrors protocol.DidChangeTextDocumentParams with
// ContentChange entries.
type DidChangeParams struct {
	TextDocument   protocol.VersionedTextDocumentIdentifier `json:"textDocument"`
	ContentChanges []ContentChange                          `json:"contentChanges"`
}

// Manager stores open documents by URI
type Manager struct {
	mu   sync.RWMutex
	docs map[uri.URI]*Document
}

// NewManager creates an empty document manager
func NewManager() *Manager {
	return &Manager{docs: make(map[uri.URI]*Document)}
}

// Open stores a new document, replacing any previous one with the same URI
func (m *Manager) Open(item protocol.TextDocumentItem) *Document {
	lang := string(item.LanguageID)
	if lang == "" {
		lang = DetectLanguage(string(item.URI))
	}
	doc := NewDocument(item.URI, lang, item.Version, item.Text)

	m.mu.Lock()
	if _, exists := m.docs[item.URI]; exists {
		common.ServerLogger.Debug("Re-opening %s", item.URI)
	}
	m.docs[item.URI] = doc
	m.mu.Unlock()
	return doc
}

// Change applies edits to an open document
func (m *Manager) Change(id protocol.VersionedTextDocumentIdentifier, changes []ContentChange) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.docs[id.URI]
	if !ok {
		return nil, errs.NewInvalidDocumentError(string(id.URI))
	}
	if id.Version != 0 && id.Version < doc.Version {
		common.ServerLogger.Warn("Out of order change for %s: version %d after %d", id.URI, id.Version, doc.Version)
	}

	next, err := doc.Apply(id.Version, changes)
	if err != nil {
		return nil, err
	}
	m.docs[id.URI] = next
	return next, nil
}

// Close forgets a document
func (m *Manager) Close(u uri.URI) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.docs[u]; !ok {
		return errs.NewInvalidDocumentError(string(u))
	}
	delete(m.docs, u)
	return nil
}

// Get returns the current snapshot of a document
func (m *Manager) Get(u uri.URI) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.docs[u]
	if !ok {
		return nil, errs.NewInvalidDocumentError(string(u))
	}
	return doc, nil
}

// List returns the URIs of all open documents, sorted
func (m *Manager) List() []uri.URI {
	m.mu.RLock()
	out := make([]uri.URI, 0, len(m.docs))
	for u := range m.docs {
		out = append(out, u)
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of open documents
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.docs)
}

// DetectLanguage returns the language ID for a document URI, or "" when the
// extension is not a shader extension.
func DetectLanguage(u string) string {
	ext := strings.ToLower(filepath.Ext(u))
	for _, supported := range constants.SupportedExtensions {
		if ext == supported {
			return constants.LanguageID
		}
	}
	return ""
}
