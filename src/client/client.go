// Package client implements the editor side of the wgsl-analyzer protocol.
// It issues the client→server extension requests and answers the server's
// requestConfiguration and readFile requests.
package client

import (
	"context"
	"encoding/json"
	"io"
	"reflect"
	"time"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"shader-lsp/src/internal/common"
	errs "shader-lsp/src/internal/errors"
	"shader-lsp/src/internal/types"
	"shader-lsp/src/internal/version"
	"shader-lsp/src/lspext"
	"shader-lsp/src/server/documents"
	rpc "shader-lsp/src/server/protocol"
)

// Client is one editor connection to a shader-lsp server
type Client struct {
	conn     *rpc.Conn
	settings SettingsStore
	reader   FileReader
	logger   *common.SafeLogger
	timeout  time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithSettings answers requestConfiguration from store
func WithSettings(store SettingsStore) Option {
	return func(c *Client) { c.settings = store }
}

// WithFileReader answers readFile through r
func WithFileReader(r FileReader) Option {
	return func(c *Client) { c.reader = r }
}

// WithLogger overrides the client logger
func WithLogger(l *common.SafeLogger) Option {
	return func(c *Client) { c.logger = l }
}

// WithRequestTimeout bounds requests whose context has no deadline
func WithRequestTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// New creates a client speaking over rwc. Call Start to begin reading.
func New(rwc io.ReadWriteCloser, opts ...Option) *Client {
	c := &Client{
		settings: NewMemorySettings(nil),
		reader:   &OSFileReader{},
		logger:   common.ClientLogger,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.conn = rpc.NewConn("client", rwc, rpc.HandlerFuncs{
		Request:      c.handleRequest,
		Notification: c.handleNotification,
	}, rpc.WithLogger(c.logger))
	return c
}

// Start runs the read loop in the background until ctx is done
func (c *Client) Start(ctx context.Context) {
	c.conn.Go(ctx)
}

// Close drops the connection without the shutdown handshake
func (c *Client) Close() error {
	return c.conn.Close()
}

// Done is closed when the connection ends
func (c *Client) Done() <-chan struct{} {
	return c.conn.Done()
}

// Settings returns the store answering requestConfiguration
func (c *Client) Settings() SettingsStore {
	return c.settings
}

func (c *Client) handleRequest(ctx context.Context, method string, raw json.RawMessage) (interface{}, error) {
	switch lspext.Method(method) {
	case lspext.MethodRequestConfiguration:
		settings, err := c.settings.Settings(ctx)
		if err != nil {
			return nil, err
		}
		if isNil(settings) {
			return map[string]interface{}{}, nil
		}
		return settings, nil

	case lspext.MethodReadFile:
		var params lspext.ReadFileParams
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, errs.NewProtocolError("decoding readFile params", err)
		}
		source, err := c.reader.ReadFile(ctx, params)
		if err != nil {
			c.logger.Debug("readFile %s (from %s) failed: %v", params.Filepath.URI, params.Original.URI, err)
			return nil, err
		}
		return params.Answer(source), nil
	}
	return nil, errs.NewMethodNotSupportedError("client", method, "")
}

func (c *Client) handleNotification(_ context.Context, method string, _ json.RawMessage) error {
	c.logger.Debug("Ignoring notification %s", method)
	return nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if _, ok := ctx.Deadline(); ok || c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// Call sends an arbitrary request and decodes its result into result
func (c *Client) Call(ctx context.Context, method string, params, result interface{}) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()
	return c.conn.Call(ctx, method, params, result)
}

// Initialize performs the initialize handshake and sends initialized
func (c *Client) Initialize(ctx context.Context, rootURI uri.URI) (*protocol.InitializeResult, error) {
	params := protocol.InitializeParams{
		ClientInfo: &protocol.ClientInfo{Name: "shader-lsp", Version: version.GetVersion()},
		RootURI:    rootURI,
	}
	var result protocol.InitializeResult
	if err := c.Call(ctx, types.MethodInitialize, params, &result); err != nil {
		return nil, err
	}
	if err := c.conn.Notify(ctx, types.MethodInitialized, protocol.InitializedParams{}); err != nil {
		return nil, err
	}
	return &result, nil
}

// Shutdown performs the shutdown/exit handshake
func (c *Client) Shutdown(ctx context.Context) error {
	if err := c.Call(ctx, types.MethodShutdown, nil, nil); err != nil {
		return err
	}
	return c.conn.Notify(ctx, types.MethodExit, nil)
}

// DidOpen opens a document on the server
func (c *Client) DidOpen(ctx context.Context, item protocol.TextDocumentItem) error {
	if item.LanguageID == "" {
		item.LanguageID = protocol.LanguageIdentifier(documents.DetectLanguage(string(item.URI)))
	}
	return c.conn.Notify(ctx, types.MethodTextDocumentDidOpen, protocol.DidOpenTextDocumentParams{TextDocument: item})
}

// DidChange sends edits for an open document
func (c *Client) DidChange(ctx context.Context, id protocol.VersionedTextDocumentIdentifier, changes ...documents.ContentChange) error {
	return c.conn.Notify(ctx, types.MethodTextDocumentDidChange, documents.DidChangeParams{
		TextDocument:   id,
		ContentChanges: changes,
	})
}

// DidClose closes a document on the server
func (c *Client) DidClose(ctx context.Context, u uri.URI) error {
	return c.conn.Notify(ctx, types.MethodTextDocumentDidClose, protocol.DidCloseTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: u},
	})
}

// DidChangeConfiguration tells the server to request configuration again
func (c *Client) DidChangeConfiguration(ctx context.Context) error {
	return c.conn.Notify(ctx, types.MethodWorkspaceDidChangeConfiguration, protocol.DidChangeConfigurationParams{})
}

// SyntaxTree requests wgsl-analyzer/syntaxTree
func (c *Client) SyntaxTree(ctx context.Context, params lspext.SyntaxTreeParams) (string, error) {
	var tree string
	err := c.Call(ctx, string(lspext.MethodSyntaxTree), params, &tree)
	return tree, err
}

// DebugCommand requests wgsl-analyzer/debugCommand
func (c *Client) DebugCommand(ctx context.Context, params lspext.DebugCommandParams) (string, error) {
	var out string
	err := c.Call(ctx, string(lspext.MethodDebugCommand), params, &out)
	return out, err
}

// FullSource requests wgsl-analyzer/fullSource
func (c *Client) FullSource(ctx context.Context, params lspext.FullSourceParams) (string, error) {
	var source string
	err := c.Call(ctx, string(lspext.MethodFullSource), params, &source)
	return source, err
}

// InlayHints requests experimental/inlayHints. Hints of unknown kinds are
// kept and render as "other".
func (c *Client) InlayHints(ctx context.Context, params lspext.InlayHintsParams) ([]lspext.InlayHint, error) {
	var hints []lspext.InlayHint
	if err := c.Call(ctx, string(lspext.MethodInlayHints), params, &hints); err != nil {
		return nil, err
	}
	return hints, nil
}

// isNil reports whether v is nil or a typed nil, which would encode as null
func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Map, reflect.Pointer, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
