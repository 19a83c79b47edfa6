// Package server implements the analyzer side of the wgsl-analyzer protocol:
// it answers syntaxTree, debugCommand, fullSource and inlayHints and asks the
// client for configuration and imported files.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"
	"sync/atomic"

	"shader-lsp/src/analyzer"
	"shader-lsp/src/config"
	"shader-lsp/src/internal/common"
	"shader-lsp/src/server/metrics"
	"shader-lsp/src/server/protocol"
)

// Server holds what sessions share: configuration, the parse cache and
// metrics. Each connection gets its own session with its own documents and
// settings.
type Server struct {
	cfg     *config.Config
	cache   *analyzer.Cache
	metrics *metrics.Metrics
	logger  *common.SafeLogger

	openDocuments int64
	sessions      sync.WaitGroup

	// onSettings is called after a session applies new settings
	onSettings func(config.Settings)
}

// Option configures a Server
type Option func(*Server)

// WithMetrics records request metrics into m
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger overrides the server logger
func WithLogger(l *common.SafeLogger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a server. A nil cfg uses the defaults.
func NewServer(cfg *config.Config, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.GetDefaultConfig()
	}
	if cfg.Server == nil {
		cfg.Server = config.GetDefaultServerConfig()
	}

	cache, err := analyzer.NewCache(cfg.Server.ParseCacheBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create server: %w", err)
	}

	s := &Server{
		cfg:    cfg,
		cache:  cache,
		logger: common.ServerLogger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Metrics returns the metrics the server records into, or nil
func (s *Server) Metrics() *metrics.Metrics {
	return s.metrics
}

// OpenDocuments returns the number of documents open across sessions
func (s *Server) OpenDocuments() int {
	return int(atomic.LoadInt64(&s.openDocuments))
}

func (s *Server) trackDocuments(delta int) {
	n := atomic.AddInt64(&s.openDocuments, int64(delta))
	s.metrics.SetOpenDocuments(int(n))
}

func (s *Server) newConn(rwc io.ReadWriteCloser, h protocol.Handler) *protocol.Conn {
	opts := []protocol.Option{protocol.WithLogger(s.logger)}
	if w := s.cfg.Server.LateResponseWindow; w > 0 {
		opts = append(opts, protocol.WithLateResponseWindow(w))
	}
	return protocol.NewConn("server", rwc, h, opts...)
}

// Serve runs one session over rwc until the client exits, the stream ends or
// ctx is done.
func (s *Server) Serve(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.sessions.Add(1)
	defer s.sessions.Done()

	sess := newSession(s)
	sess.conn = s.newConn(rwc, sess)

	err := sess.conn.Run(ctx)
	sess.close()
	if err != nil {
		return fmt.Errorf("session ended: %w", err)
	}
	return nil
}

// ServeListener accepts connections from ln and serves each in its own
// session until ctx is done.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("failed to accept connection: %w", err)
		}

		s.logger.Info("Accepted connection from %s", conn.RemoteAddr())
		go func() {
			if err := s.Serve(ctx, conn); err != nil {
				s.logger.Warn("Connection from %s: %v", conn.RemoteAddr(), err)
			}
		}()
	}
}

// Close waits for running sessions and releases the parse cache
func (s *Server) Close() {
	s.sessions.Wait()
	s.cache.Close()
}
