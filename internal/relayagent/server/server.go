// Package server exposes the local health, readiness and metrics endpoints.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/autopeer-io/cellrelay/internal/pkg/metrics"
	"github.com/autopeer-io/cellrelay/pkg/log"
	"github.com/autopeer-io/cellrelay/pkg/options"
)

// ReadyFunc reports whether the node is ready, with a short reason when it is not.
type ReadyFunc func() (bool, string)

type Server struct {
	server  *http.Server
	options *options.HttpOptions
}

func NewServer(opts *options.HttpOptions, ready ReadyFunc) *Server {
	return &Server{
		server: &http.Server{
			Addr:         opts.Addr,
			Handler:      NewRouter(ready),
			ReadTimeout:  opts.Timeout,
			WriteTimeout: opts.Timeout,
		},
		options: opts,
	}
}

// NewRouter builds the endpoint routes.
func NewRouter(ready ReadyFunc) http.Handler {
	r := mux.NewRouter()

	// Liveness
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	// Readiness follows the link state.
	r.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if ok, reason := ready(); !ok {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(reason))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})).Methods(http.MethodGet)

	return r
}

// Start serves until ctx is done. An empty address disables the endpoint.
func (s *Server) Start(ctx context.Context) error {
	if s.server.Addr == "" {
		log.Info("HTTP endpoint disabled")
		return nil
	}

	ln, err := net.Listen(s.options.Network, s.server.Addr)
	if err != nil {
		return err
	}
	log.Info("Starting HTTP Server", "addr", ln.Addr().String())

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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.server.Shutdown(shutdownCtx)
	}
}
