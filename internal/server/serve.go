package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/pietroferretti/ctftools/internal/config"
	"github.com/pietroferretti/ctftools/internal/logging"
	"github.com/pietroferretti/ctftools/internal/observability/metrics"
	"golang.org/x/net/netutil"
	"google.golang.org/grpc"
)

const (
	gracefulStopTimeout = 2 * time.Second
	metricsStopTimeout  = 5 * time.Second
)

// NewGRPCServer returns a gRPC server exposing analyzer behind the rate
// limiting, metrics and audit interceptors.
func NewGRPCServer(analyzer AnalyzerServer, audit *logging.AuditLogger, cfg config.ServerConfig) *grpc.Server {
	limiter := newLimiter(cfg.RateLimit, cfg.RateBurst)
	srv := grpc.NewServer(
		grpc.ChainUnaryInterceptor(UnaryInterceptor(audit, limiter)),
		grpc.ChainStreamInterceptor(StreamInterceptor(audit, limiter)),
	)
	RegisterAnalyzerServer(srv, analyzer)
	return srv
}

// Serve runs srv on lis until ctx is cancelled. Shutdown is graceful; calls
// still running after two seconds are cut off. maxConns caps concurrent
// connections when positive.
func Serve(ctx context.Context, srv *grpc.Server, lis net.Listener, maxConns int) error {
	if maxConns > 0 {
		lis = netutil.LimitListener(lis, maxConns)
	}

	served := make(chan struct{})
	defer close(served)
	go func() {
		select {
		case <-served:
			return
		case <-ctx.Done():
		}
		done := make(chan struct{})
		go func() {
			srv.GracefulStop()
			close(done)
		}()
		select {
		case <-done:
		case <-time.After(gracefulStopTimeout):
			srv.Stop()
		}
	}()

	if err := srv.Serve(lis); err != nil {
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	}
	return nil
}

// Run listens on cfg.Addr and serves the analyzer until ctx is cancelled.
// When cfg.MetricsAddr is set, Prometheus metrics are exposed on /metrics.
func Run(ctx context.Context, cfg config.ServerConfig, analyzer AnalyzerServer, audit *logging.AuditLogger, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	var metricsErrCh chan error
	if cfg.MetricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		metricsSrv := &http.Server{Addr: cfg.MetricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		metricsErrCh = make(chan error, 1)
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				metricsErrCh <- err
			}
		}()
		logger.Info("metrics listening", "addr", cfg.MetricsAddr)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), metricsStopTimeout)
			defer cancel()
			if err := metricsSrv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics shutdown", "error", err)
			}
		}()
	}

	lis, err := net.Listen("tcp", cfg.Addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", cfg.Addr, err)
	}

	_ = audit.Emit(logging.AuditEvent{
		EventType: logging.EventRPCCall,
		Decision:  logging.DecisionInfo,
		Metadata: map[string]any{
			"phase":   "ready",
			"address": lis.Addr().String(),
		},
	})
	logger.Info("analyzer listening", "addr", lis.Addr().String(), "max_conns", cfg.MaxConns)

	serveCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	srv := NewGRPCServer(analyzer, audit, cfg)
	grpcErrCh := make(chan error, 1)
	go func() {
		grpcErrCh <- Serve(serveCtx, srv, lis, cfg.MaxConns)
	}()

	select {
	case err := <-grpcErrCh:
		return err
	case err := <-metricsErrCh:
		cancel()
		<-grpcErrCh
		return fmt.Errorf("metrics server failed: %w", err)
	}
}
