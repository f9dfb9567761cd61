package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/localshare/localshare/internal/audit"
	"github.com/localshare/localshare/internal/config"
	"github.com/localshare/localshare/internal/discovery"
	"github.com/localshare/localshare/internal/hostapi"
	"github.com/localshare/localshare/internal/ingest"
	"github.com/localshare/localshare/internal/metrics"
	"github.com/localshare/localshare/internal/sender"
	"github.com/localshare/localshare/internal/transfer"
)

func runServe(args []string) {
	if err := doServe(args, os.Stdout); err != nil {
		fatal("Error: %v", err)
	}
}

func doServe(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	configFlag := fs.String("config", "", "path to config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	rc, id, err := loadIdentity(*configFlag)
	if err != nil {
		return err
	}

	watcher := config.NewWatcher()
	coordinator := transfer.NewCoordinator()
	ingestServer := ingest.NewServer(coordinator, id.DownloadDir, id.Alias, id.Fingerprint)
	outboundSender := sender.New(coordinator, id.Alias)
	agent := discovery.New(id.Alias, id.Fingerprint, id.Port)

	var m *metrics.Metrics
	var metricsServer *http.Server
	if rc.cfg.MetricsEnabled {
		m = metrics.New(version, runtime.Version())
		ingestServer.SetMetrics(m)
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsServer = &http.Server{
			Addr:         rc.cfg.MetricsListenAddress,
			Handler:      mux,
			ReadTimeout:  5 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		go func() {
			slog.Info("metrics endpoint started", "addr", metricsServer.Addr)
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				slog.Error("metrics endpoint error", "error", err)
			}
		}()
	}

	node := hostapi.New(rc.path, rc.cfg, watcher, id.Fingerprint, agent, coordinator, outboundSender, ingestServer)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var g errgroup.Group
	g.Go(func() error {
		if err := agent.Start(ctx); err != nil {
			return fmt.Errorf("discovery: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		if err := ingestServer.Start(fmt.Sprintf(":%d", id.Port)); err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		agent.Stop()
		ingestServer.Stop()
		return err
	}

	auditLogger := audit.New(slog.Default().Handler())
	go autoRespondToConsent(ctx, coordinator, rc.cfg)
	go runAudit(ctx, node, auditLogger)

	fmt.Fprintf(stdout, "localshare serving as %q on port %d (fingerprint %s)\n", id.Alias, id.Port, id.Fingerprint[:12])

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-ctx.Done():
	}

	fmt.Fprintln(stdout, "shutting down...")
	cancel()
	ingestServer.Stop()
	agent.Stop()
	if metricsServer != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 3*time.Second)
		metricsServer.Shutdown(shutdownCtx)
		shutdownCancel()
	}
	return nil
}

// runAudit drains the host API's merged event stream and writes each
// event to the audit log, until ctx is cancelled. This is the one
// consumer of hostapi.Node.Events in this CLI; a future control API
// (attaching over the same Host interface) would be a second.
func runAudit(ctx context.Context, node *hostapi.Node, auditLogger *audit.Logger) {
	lastAlias := node.GetSettings().Alias
	for e := range node.Events(ctx) {
		switch e.Kind {
		case hostapi.EventFileTransferRequest:
			auditLogger.TransferRequested(e.Transfer.ID, e.Transfer.Peer.Alias, e.Transfer.FileName)
		case hostapi.EventMessageReceived:
			auditLogger.TextReceived(e.Text.SenderAlias, len(e.Text.Content))
		case hostapi.EventAliasChanged:
			auditLogger.AliasChanged(lastAlias, e.Alias)
			lastAlias = e.Alias
		default:
			if e.Transfer != nil && e.Transfer.State.IsTerminal() {
				auditLogger.TransferResolved(e.Transfer.ID, e.Transfer.Direction.String(), e.Transfer.State.String(), e.Transfer.FailReason)
			}
		}
	}
}

// autoRespondToConsent accepts every inbound file transfer request
// immediately when the node's config has consent disabled. When
// consent is required (the default), it only logs the request — this
// process has no GUI to prompt, so the transfer proceeds to its
// ordinary 30s timeout unless some other caller (the host API, a
// future control surface) calls RespondToFileTransfer in time.
func autoRespondToConsent(ctx context.Context, coordinator *transfer.Coordinator, cfg *config.Config) {
	events := coordinator.SubscribeEvents()
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			if e.Kind != transfer.EventFileTransferRequest {
				continue
			}
			if cfg.IsConsentRequired() {
				slog.Info("inbound file transfer pending consent", "id", e.ID, "peer", e.Transfer.Peer.Alias, "file", e.Transfer.FileName)
				continue
			}
			if err := coordinator.Respond(e.ID, true); err != nil {
				slog.Warn("auto-accept failed", "id", e.ID, "error", err)
			}
		}
	}
}
