package myhttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"fleetflow/internal/config"
	"fleetflow/internal/metrics"
	"fleetflow/internal/mylogger"
	"fleetflow/internal/telemetry-service/adapters/driver/myhttp/handle"
	"fleetflow/internal/telemetry-service/adapters/driver/myhttp/middleware"
	"fleetflow/internal/telemetry-service/core/ports"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const WaitTime = 10

// Server is the ingestion gateway plus the polling read API. Store and
// broker are injected, the server owns neither.
type Server struct {
	mux     *http.ServeMux
	cfg     *config.Config
	srv     *http.Server
	mylog   mylogger.Logger
	metrics *metrics.Metrics

	ingestService ports.IIngestService
	scoreService  ports.IScoreService
	dbAlive       func() error
	brokerAlive   func() bool

	ctx context.Context
	mu  sync.Mutex
	wg  sync.WaitGroup
}

func NewServer(ctx context.Context,
	mylog mylogger.Logger,
	cfg *config.Config,
	m *metrics.Metrics,
	ingestService ports.IIngestService,
	scoreService ports.IScoreService,
	dbAlive func() error,
	brokerAlive func() bool,
) *Server {
	return &Server{
		ctx:           ctx,
		cfg:           cfg,
		mylog:         mylog,
		metrics:       m,
		ingestService: ingestService,
		scoreService:  scoreService,
		dbAlive:       dbAlive,
		brokerAlive:   brokerAlive,
		mux:           http.NewServeMux(),
	}
}

// Run initializes routes and starts listening. It returns when the server stops.
func (s *Server) Run() error {
	mylog := s.mylog.Action("server_started")

	s.Configure()

	s.mu.Lock()
	s.srv = &http.Server{
		Addr:    fmt.Sprintf(":%v", s.cfg.Srv.ApiPort),
		Handler: s.mux,
	}
	s.mu.Unlock()

	mylog = mylog.WithGroup("details").With("port", s.cfg.Srv.ApiPort)

	mylog.Info("server is running")
	return s.startHTTPServer()
}

// Stop provides a programmatic shutdown. Accepts a context for timeout control.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.mylog.Info("Shutting down HTTP server...")

	s.wg.Wait()

	if s.srv != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, WaitTime*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			s.mylog.Error("Failed to shut down HTTP server gracefully", err)
			return fmt.Errorf("http server shutdown: %w", err)
		}
	}

	s.mylog.Info("HTTP server shut down gracefully")
	return nil
}

func (s *Server) startHTTPServer() error {
	errCh := make(chan error, 1)

	go func() {
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		} else {
			errCh <- nil
		}
	}()

	select {
	case <-s.ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Configure sets up the HTTP handlers for telemetry ingestion, score lookup, health and metrics.
func (s *Server) Configure() {
	telemetryHandler := handle.NewTelemetryHandler(s.ingestService, s.scoreService, s.metrics, s.mylog)
	authMiddleware := middleware.NewAuthMiddleware(s.cfg.App.JwtSecret)

	s.mux.Handle("POST /api/v1/telemetry", authMiddleware.Wrap(telemetryHandler.IngestTelemetry()))
	s.mux.Handle("GET /api/v1/trip/{trip_id}/score", telemetryHandler.GetTripScore())

	s.mux.HandleFunc("GET /health", s.healthHandler)
	s.mux.Handle("GET /metrics", promhttp.HandlerFor(s.metrics.Registry, promhttp.HandlerOpts{}))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if err := s.dbAlive(); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"unhealthy","reason":"database unreachable"}`)
		return
	}
	if !s.brokerAlive() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintf(w, `{"status":"unhealthy","reason":"message broker unreachable"}`)
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy"}`)
}
