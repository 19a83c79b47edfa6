package cli

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"

	clicommon "shader-lsp/src/cli/common"
	"shader-lsp/src/internal/common"
	"shader-lsp/src/server"
	"shader-lsp/src/server/metrics"
	"shader-lsp/src/server/protocol"
)

// ServeOptions configures the serve command
type ServeOptions struct {
	ConfigPath  string
	Listen      string
	MetricsAddr string
	Verbose     bool

	// Stdin and Stdout carry the session when Listen is empty; nil means
	// the process streams.
	Stdin  io.ReadCloser
	Stdout io.WriteCloser
}

// RunServe runs the language server until the client exits, the listener
// fails or the process is interrupted.
func RunServe(ctx context.Context, opts ServeOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := clicommon.LoadConfigForCLI(opts.ConfigPath)
	if opts.Verbose {
		clicommon.EnableVerbose(cfg)
	}

	var serverOpts []server.Option
	if opts.MetricsAddr != "" {
		serverOpts = append(serverOpts, server.WithMetrics(metrics.NewMetrics()))
	}
	srv, err := server.NewServer(cfg, serverOpts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	defer srv.Close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.MetricsAddr != "" {
		gateway, err := server.NewStatusGateway(opts.MetricsAddr, srv)
		if err != nil {
			return fmt.Errorf("failed to create status gateway: %w", err)
		}
		if err := gateway.Start(ctx); err != nil {
			return fmt.Errorf("failed to start status gateway: %w", err)
		}
		defer func() {
			if err := gateway.Stop(); err != nil {
				common.CLILogger.Warn("Status gateway stopped with error: %v", err)
			}
		}()
		common.CLILogger.Info("Metrics endpoint: http://%s/metrics", gateway.Address())
		common.CLILogger.Info("Health check endpoint: http://%s/health", gateway.Address())
	}

	if opts.Listen != "" {
		ln, err := net.Listen("tcp", opts.Listen)
		if err != nil {
			return fmt.Errorf("failed to listen on %s: %w", opts.Listen, err)
		}
		common.CLILogger.Info("shader-lsp listening on %s", ln.Addr())
		return srv.ServeListener(ctx, ln)
	}

	stdin, stdout := opts.Stdin, opts.Stdout
	if stdin == nil {
		stdin = os.Stdin
	}
	if stdout == nil {
		stdout = os.Stdout
	}
	common.CLILogger.Debug("shader-lsp serving on stdio")
	if err := srv.Serve(ctx, protocol.NewStream(stdin, stdout)); err != nil {
		if ctx.Err() != nil {
			common.CLILogger.Info("Received shutdown signal, stopping server")
			return nil
		}
		return err
	}
	return nil
}
