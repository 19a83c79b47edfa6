package server

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"

	"shader-lsp/src/analyzer"
	"shader-lsp/src/config"
	"shader-lsp/src/internal/constants"
	errs "shader-lsp/src/internal/errors"
	"shader-lsp/src/internal/types"
	"shader-lsp/src/internal/version"
	"shader-lsp/src/lspext"
	"shader-lsp/src/server/documents"
	"shader-lsp/src/server/metrics"
	rpc "shader-lsp/src/server/protocol"
	"shader-lsp/src/utils/jsonutil"
)

// session is the state of one client connection
type session struct {
	srv  *Server
	conn *rpc.Conn
	docs *documents.Manager

	settingsMu sync.RWMutex
	settings   config.Settings

	initialized  atomic.Bool
	shuttingDown atomic.Bool

	background sync.WaitGroup
}

func newSession(s *Server) *session {
	return &session{
		srv:      s,
		docs:     documents.NewManager(),
		settings: s.cfg.AnalyzerDefaults(),
	}
}

// close waits for background work and releases the session's documents
func (ss *session) close() {
	ss.background.Wait()
	if n := ss.docs.Len(); n > 0 {
		ss.srv.trackDocuments(-n)
	}
}

func (ss *session) currentSettings() config.Settings {
	ss.settingsMu.RLock()
	defer ss.settingsMu.RUnlock()
	return ss.settings
}

func (ss *session) applySettings(s config.Settings) {
	ss.settingsMu.Lock()
	ss.settings = s
	ss.settingsMu.Unlock()

	if ss.srv.onSettings != nil {
		ss.srv.onSettings(s)
	}
}

// HandleRequest answers a client request
func (ss *session) HandleRequest(ctx context.Context, method string, params json.RawMessage) (interface{}, error) {
	switch method {
	case types.MethodInitialize:
		return ss.initialize(params)
	case types.MethodShutdown:
		ss.shuttingDown.Store(true)
		ss.srv.logger.Info("Shutdown requested")
		return nil, nil
	}

	if ss.shuttingDown.Load() {
		return nil, jsonrpc2.Errorf(jsonrpc2.InvalidRequest, "%s: server is shutting down", method)
	}
	if !ss.initialized.Load() {
		return nil, jsonrpc2.Errorf(jsonrpc2.ServerNotInitialized, "%s: server is not initialized", method)
	}

	start := time.Now()
	result, err := ss.dispatch(ctx, lspext.Method(method), params)
	label := method
	if !lspext.IsExtension(method) {
		label = metrics.MethodOther
	}
	ss.srv.metrics.ObserveRequest(label, outcomeOf(err), time.Since(start))
	return result, err
}

func (ss *session) dispatch(ctx context.Context, method lspext.Method, raw json.RawMessage) (interface{}, error) {
	switch method {
	case lspext.MethodSyntaxTree:
		params, err := decodeParams[lspext.SyntaxTreeParams](raw)
		if err != nil {
			return nil, err
		}
		return ss.syntaxTree(params)

	case lspext.MethodDebugCommand:
		params, err := decodeParams[lspext.DebugCommandParams](raw)
		if err != nil {
			return nil, err
		}
		return ss.debugCommand(params)

	case lspext.MethodFullSource:
		params, err := decodeParams[lspext.FullSourceParams](raw)
		if err != nil {
			return nil, err
		}
		return ss.fullSource(ctx, params)

	case lspext.MethodInlayHints:
		params, err := decodeParams[lspext.InlayHintsParams](raw)
		if err != nil {
			return nil, err
		}
		return ss.inlayHints(params)

	}
	if method.Known() && method.Direction() == lspext.ServerToClient {
		return nil, errs.NewMethodNotSupportedError("server", string(method), "It is sent by the server to the client.")
	}
	return nil, errs.NewMethodNotSupportedError("server", string(method), "")
}

// HandleNotification handles lifecycle and document sync notifications
func (ss *session) HandleNotification(ctx context.Context, method string, raw json.RawMessage) error {
	switch method {
	case types.MethodInitialized:
		ss.refreshSettings(ctx, method)

	case types.MethodWorkspaceDidChangeConfiguration:
		ss.refreshSettings(ctx, method)

	case types.MethodExit:
		ss.srv.logger.Info("Exit received, closing session")
		return ss.conn.Close()

	case types.MethodTextDocumentDidOpen:
		params, err := decodeParams[protocol.DidOpenTextDocumentParams](raw)
		if err != nil {
			return err
		}
		before := ss.docs.Len()
		doc := ss.docs.Open(params.TextDocument)
		ss.srv.trackDocuments(ss.docs.Len() - before)
		ss.srv.logger.Debug("Opened %s (version %d, %d bytes)", doc.URI, doc.Version, len(doc.Text))

	case types.MethodTextDocumentDidChange:
		params, err := decodeParams[documents.DidChangeParams](raw)
		if err != nil {
			return err
		}
		if _, err := ss.docs.Change(params.TextDocument, params.ContentChanges); err != nil {
			return err
		}

	case types.MethodTextDocumentDidClose:
		params, err := decodeParams[protocol.DidCloseTextDocumentParams](raw)
		if err != nil {
			return err
		}
		if err := ss.docs.Close(params.TextDocument.URI); err != nil {
			return err
		}
		ss.srv.trackDocuments(-1)

	default:
		ss.srv.logger.Debug("Ignoring notification %s", method)
	}
	return nil
}

func (ss *session) initialize(raw json.RawMessage) (interface{}, error) {
	var params protocol.InitializeParams
	if !jsonutil.IsNull(raw) {
		if err := json.Unmarshal(raw, &params); err != nil {
			return nil, errs.NewProtocolError("decoding initialize params", err)
		}
	}
	if params.ClientInfo != nil {
		ss.srv.logger.Info("Initializing for %s %s", params.ClientInfo.Name, params.ClientInfo.Version)
	}
	ss.initialized.Store(true)

	return protocol.InitializeResult{
		Capabilities: protocol.ServerCapabilities{
			TextDocumentSync: &protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindFull,
			},
			Experimental: experimentalCapabilities(),
		},
		ServerInfo: &protocol.ServerInfo{
			Name:    constants.ServerName,
			Version: version.GetVersion(),
		},
	}, nil
}

// experimentalCapabilities advertises every extension method by name
func experimentalCapabilities() map[string]interface{} {
	caps := make(map[string]interface{})
	for _, spec := range lspext.Catalog() {
		caps[string(spec.Method)] = true
	}
	return caps
}

// refreshSettings asks the client for its configuration in the background.
// Notifications are handled on the read loop, which must stay free to
// deliver the answer.
func (ss *session) refreshSettings(ctx context.Context, reason string) {
	ss.background.Add(1)
	go func() {
		defer ss.background.Done()

		callCtx, cancel := context.WithTimeout(ctx, ss.srv.cfg.Server.OutboundTimeout)
		defer cancel()

		var raw json.RawMessage
		if err := ss.call(callCtx, lspext.MethodRequestConfiguration, nil, &raw); err != nil {
			ss.srv.logger.Warn("Requesting configuration after %s failed, keeping previous settings: %v", reason, err)
			return
		}

		next, err := config.DecodeSettings(raw, ss.srv.cfg.AnalyzerDefaults())
		if err != nil {
			ss.srv.logger.Warn("Ignoring configuration from client: %v", err)
			return
		}
		ss.applySettings(next)
		ss.srv.logger.Debug("Applied settings: %d shader defs, %d custom imports", len(next.ShaderDefs), len(next.CustomImports))
	}()
}

// call sends a request to the client and records its outcome
func (ss *session) call(ctx context.Context, method lspext.Method, params, result interface{}) error {
	err := ss.conn.Call(ctx, string(method), params, result)
	ss.srv.metrics.ObserveOutbound(string(method), outcomeOf(err))
	return err
}

func (ss *session) document(id protocol.TextDocumentIdentifier) (*documents.Document, error) {
	return ss.docs.Get(id.URI)
}

func (ss *session) analyze(doc *documents.Document, settings config.Settings) *analyzer.Analysis {
	return ss.srv.cache.Analyze(string(doc.URI), doc.Version, doc.Text, settings.DefSet())
}

func decodeParams[T any](raw json.RawMessage) (T, error) {
	var params T
	if jsonutil.IsNull(raw) {
		return params, errs.NewProtocolError("missing params", nil)
	}
	if err := json.Unmarshal(raw, &params); err != nil {
		return params, errs.NewProtocolError("decoding params", err)
	}
	return params, nil
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errs.IsTimeoutError(err):
		return metrics.OutcomeTimeout
	case errs.IsCancellationError(err), errs.IsRequestCancelled(err):
		return metrics.OutcomeCancelled
	default:
		return metrics.OutcomeError
	}
}
