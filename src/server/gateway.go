package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"time"

	"shader-lsp/src/internal/common"
	"shader-lsp/src/internal/version"
	"shader-lsp/src/lspext"
)

// StatusGateway exposes the state of a running Server over HTTP: Prometheus
// metrics, a health document and the extension catalog. It never carries
// protocol traffic.
type StatusGateway struct {
	srv      *Server
	server   *http.Server
	listener net.Listener
}

// NewStatusGateway creates a gateway for srv listening on addr
func NewStatusGateway(addr string, srv *Server) (*StatusGateway, error) {
	if srv == nil {
		return nil, fmt.Errorf("status gateway needs a server")
	}

	g := &StatusGateway{srv: srv}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", g.handleHealth)
	mux.HandleFunc("/methods", g.handleMethods)
	if m := srv.Metrics(); m != nil {
		mux.Handle("/metrics", m.Handler())
	}

	g.server = &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return g, nil
}

// Start binds the listener and serves in the background
func (g *StatusGateway) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", g.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", g.server.Addr, err)
	}
	g.listener = ln

	go func() {
		if err := g.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			common.GatewayLogger.Error("Status server error: %v", err)
		}
	}()
	go func() {
		<-ctx.Done()
		_ = g.Stop()
	}()

	common.GatewayLogger.Info("Status endpoints listening on %s", g.Address())
	return nil
}

// Stop shuts the HTTP server down
func (g *StatusGateway) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := g.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to stop status server: %w", err)
	}
	return nil
}

// Address returns the bound address (host:port). If not yet started, returns configured Addr.
func (g *StatusGateway) Address() string {
	if g.listener != nil {
		return g.listener.Addr().String()
	}
	return g.server.Addr
}

// Port returns the bound TCP port, or 0 before Start
func (g *StatusGateway) Port() int {
	if g.listener == nil {
		return 0
	}
	if addr, ok := g.listener.Addr().(*net.TCPAddr); ok {
		return addr.Port
	}
	return 0
}

func (g *StatusGateway) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	health := map[string]interface{}{
		"status":         "healthy",
		"version":        version.GetVersion(),
		"open_documents": g.srv.OpenDocuments(),
		"metrics":        g.srv.Metrics() != nil,
	}
	writeJSON(w, health)
}

func (g *StatusGateway) handleMethods(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, lspext.Catalog())
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		common.GatewayLogger.Error("Failed to encode response: %v", err)
	}
}
