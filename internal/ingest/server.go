// Package ingest implements the HTTP server that accepts inbound file
// and text transfers: the multipart streaming write path, the consent
// handshake with the Transfer Coordinator, and the info/cancel
// endpoints a sender polls or calls.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/localshare/localshare/internal/metrics"
	"github.com/localshare/localshare/internal/transfer"
)

const protocolVersion = 1

// maxTransferRequestsPerSecond and maxTransferRequestBurst bound how
// fast a single peer address can open new send-file/send-text
// requests. Generous enough for a user sending several small files in
// a row, tight enough to keep one peer from pinning the accept loop.
const (
	maxTransferRequestsPerSecond = 5
	maxTransferRequestBurst      = 10
)

// Server is the Ingest Server: an HTTP listener bound to the
// configured port on all interfaces, backed by a Transfer Coordinator.
type Server struct {
	coordinator *transfer.Coordinator
	downloadDir string
	fingerprint string
	alias       atomic.Value // string

	httpServer *http.Server
	listener   net.Listener
	metrics    *metrics.Metrics
	limiter    *transferRateLimiter
}

// NewServer constructs an Ingest Server. downloadDir is where inbound
// files are staged and finalised; it must already exist.
func NewServer(coordinator *transfer.Coordinator, downloadDir, alias, fingerprint string) *Server {
	s := &Server{
		coordinator: coordinator,
		downloadDir: downloadDir,
		fingerprint: fingerprint,
	}
	s.alias.Store(alias)
	s.limiter = newTransferRateLimiter(rate.Limit(maxTransferRequestsPerSecond), maxTransferRequestBurst)
	return s
}

// SetMetrics attaches a metrics sink. Must be called before Start; nil
// disables instrumentation.
func (s *Server) SetMetrics(m *metrics.Metrics) {
	s.metrics = m
}

// SetAlias updates the alias returned by GET /api/localshare/info,
// reflecting a config-changed event without requiring a server restart.
func (s *Server) SetAlias(alias string) {
	s.alias.Store(alias)
}

// Start binds addr ("host:port") and begins serving in a background
// goroutine. It returns once the listener is open.
func (s *Server) Start(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("ingest: listen %s: %w", addr, err)
	}
	s.listener = listener

	mux := http.NewServeMux()
	s.registerRoutes(mux)

	s.httpServer = &http.Server{
		Handler:      instrumentHandler(mux, s.metrics),
		ReadTimeout:  0, // large file bodies must not be cut off by a fixed read deadline
		WriteTimeout: 0,
	}

	go func() {
		if err := s.httpServer.Serve(listener); err != nil && err != http.ErrServerClosed {
			slog.Error("ingest server error", "error", err)
		}
	}()

	slog.Info("ingest server listening", "addr", listener.Addr().String())
	return nil
}

// Stop gracefully shuts the server down, waiting up to 5s for
// in-flight requests to finish.
func (s *Server) Stop() {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Warn("ingest server shutdown", "error", err)
	}
}

func (s *Server) registerRoutes(mux *http.ServeMux) {
	mux.Handle("POST /api/localshare/send-file", rateLimitMiddleware(http.HandlerFunc(s.handleSendFile), s.limiter))
	mux.Handle("POST /api/localshare/send-text", rateLimitMiddleware(http.HandlerFunc(s.handleSendText), s.limiter))
	mux.HandleFunc("GET /api/localshare/info", s.handleInfo)
	mux.HandleFunc("POST /api/localshare/cancel/{id}", s.handleCancel)
}
