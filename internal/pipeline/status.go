package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/drblury/abrflow/internal/runtime/jsoncodec"
	"github.com/drblury/abrflow/internal/runtime/logging"
)

// NewStatusHandler serves /metrics from gatherer, /stats from m and
// /healthz. A nil gatherer uses the Prometheus default gatherer.
func NewStatusHandler(m *Metrics, gatherer prometheus.Gatherer, logger logging.ServiceLogger) http.Handler {
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	r.Get("/stats", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := jsoncodec.Encode(w, m.Snapshot()); err != nil {
			logger.Error("Failed to encode stats", err, nil)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return r
}

// StatusServer runs the status handler until its context is cancelled.
type StatusServer struct {
	srv    *http.Server
	logger logging.ServiceLogger
}

// NewStatusServer listens on port once Start is called.
func NewStatusServer(port int, handler http.Handler, logger logging.ServiceLogger) *StatusServer {
	return &StatusServer{
		srv: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           handler,
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}
}

// Start serves in the background and shuts down when ctx is done.
func (s *StatusServer) Start(ctx context.Context) {
	go func() {
		s.logger.Info("Status server listening", logging.LogFields{"addr": s.srv.Addr})
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Status server failed", err, logging.LogFields{"addr": s.srv.Addr})
		}
	}()
	go func() {
		<-ctx.Done()
		_ = s.Shutdown()
	}()
}

// Shutdown stops the server, waiting up to five seconds for open requests.
func (s *StatusServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.srv.Shutdown(ctx)
}
