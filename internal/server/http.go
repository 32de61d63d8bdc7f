package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/go-logr/logr"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/fleetcore-io/fleetcore/pkg/options"
)

// HTTPServer serves /metrics, /healthz and /readyz.
type HTTPServer struct {
	server  *http.Server
	options *options.HttpOptions
	log     logr.Logger

	mu   sync.Mutex
	addr net.Addr
}

// NewHTTPServer builds the server. ready backs /readyz; nil means always
// ready. It returns nil when opts disables the endpoint.
func NewHTTPServer(opts *options.HttpOptions, gatherer prometheus.Gatherer, ready func() bool, log logr.Logger) *HTTPServer {
	if !opts.Enabled() {
		return nil
	}

	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if ready != nil && !ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("event stream disconnected"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	return &HTTPServer{
		server:  &http.Server{Addr: opts.Addr, Handler: r},
		options: opts,
		log:     log,
	}
}

// Handler exposes the router.
func (s *HTTPServer) Handler() http.Handler { return s.server.Handler }

// Addr is the bound address once Start is listening, nil before.
func (s *HTTPServer) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Start listens and serves until ctx is done, then shuts down gracefully.
func (s *HTTPServer) Start(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.addr = ln.Addr()
	s.mu.Unlock()
	s.log.Info("Starting metrics server", "addr", ln.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.options.ShutdownTimeout)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
