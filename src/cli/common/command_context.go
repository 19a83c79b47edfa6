package common

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	"shader-lsp/src/client"
	"shader-lsp/src/config"
	"shader-lsp/src/internal/common"
	"shader-lsp/src/internal/constants"
	"shader-lsp/src/server"
	"shader-lsp/src/server/documents"
	"shader-lsp/src/utils"
	"shader-lsp/src/utils/configloader"
)

// CommandContext is an in-process editor session: a server and a client
// joined by a pipe, both running the real dispatcher.
type CommandContext struct {
	Config  *config.Config
	Server  *server.Server
	Client  *client.Client
	Context context.Context
	Cancel  context.CancelFunc

	serveDone chan error
}

// CommandContextOptions configures CommandContext creation
type CommandContextOptions struct {
	Timeout time.Duration
	// SettingsPath is a YAML file answered to requestConfiguration; empty
	// uses the client settings of the config file.
	SettingsPath string
	Verbose      bool
}

// NewCommandContext loads configuration, starts a server and a client and
// completes the initialize handshake.
func NewCommandContext(configPath string, opts CommandContextOptions) (*CommandContext, error) {
	cfg := LoadConfigForCLI(configPath)
	if opts.Verbose {
		EnableVerbose(cfg)
	}

	settings, err := configloader.LoadClientSettings(opts.SettingsPath, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	raw, err := json.Marshal(settings)
	if err != nil {
		return nil, fmt.Errorf("failed to encode settings: %w", err)
	}
	// The server starts from the settings the client answers.
	seeded, err := config.DecodeSettings(raw, cfg.AnalyzerDefaults())
	if err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}
	cfg.Analyzer = &seeded

	srv, err := server.NewServer(cfg, server.WithLogger(common.ServerLogger))
	if err != nil {
		return nil, err
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = cfg.Server.RequestTimeout
	}
	ctx, cancel := common.CreateContext(timeout)

	serverSide, clientSide := net.Pipe()
	c := &CommandContext{
		Config:    cfg,
		Server:    srv,
		Context:   ctx,
		Cancel:    cancel,
		serveDone: make(chan error, 1),
	}
	go func() {
		c.serveDone <- srv.Serve(ctx, serverSide)
	}()

	var deny []string
	if cfg.Client != nil {
		deny = cfg.Client.DenyPatterns
	}
	c.Client = client.New(clientSide,
		client.WithSettings(client.NewMemorySettings(settings)),
		client.WithFileReader(&client.OSFileReader{Deny: deny}),
		client.WithLogger(common.ClientLogger),
	)
	c.Client.Start(ctx)

	var rootURI uri.URI
	if root, err := common.ValidateAndGetWorkingDir(""); err == nil {
		rootURI = uri.File(root)
	}
	if _, err := c.Client.Initialize(ctx, rootURI); err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("initialize failed: %w", err)
	}
	return c, nil
}

// OpenFile reads path from disk and opens it in the session. The returned
// snapshot mirrors what the server holds.
func (c *CommandContext) OpenFile(path string) (*documents.Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(utils.LongPath(abs))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	u := uri.File(abs)
	doc := documents.NewDocument(u, documents.DetectLanguage(string(u)), 1, string(data))
	err = c.Client.DidOpen(c.Context, protocol.TextDocumentItem{
		URI:        doc.URI,
		LanguageID: protocol.LanguageIdentifier(doc.LanguageID),
		Version:    doc.Version,
		Text:       doc.Text,
	})
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Cleanup performs the shutdown handshake and waits for the server
func (c *CommandContext) Cleanup() {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), constants.ShutdownTimeout)
	defer cancel()

	if err := c.Client.Shutdown(shutdownCtx); err != nil {
		common.CLILogger.Debug("Shutdown handshake: %v", err)
	}
	select {
	case err := <-c.serveDone:
		if err != nil {
			common.CLILogger.Debug("Server session: %v", err)
		}
	case <-shutdownCtx.Done():
		common.CLILogger.Warn("Server did not stop within %v", constants.ShutdownTimeout)
	}

	_ = c.Client.Close()
	c.Cancel()
	c.Server.Close()
}
