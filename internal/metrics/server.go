/*
Copyright (c) 2025 Diagrid Inc.
Licensed under the MIT License.
*/

package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/go-logr/logr"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerOptions are the options for the metrics server.
type ServerOptions struct {
	// Log is the logger to use for logging.
	Log logr.Logger

	// Addr is the listen address, for example ":9090".
	Addr string

	// Gatherer is the source of metrics served. Defaults to the default
	// prometheus registry.
	Gatherer prometheus.Gatherer
}

// Server serves metrics over HTTP at /metrics.
type Server struct {
	log     logr.Logger
	addr    string
	handler http.Handler
	readyCh chan net.Addr
}

func NewServer(opts ServerOptions) *Server {
	gatherer := opts.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	return &Server{
		log:     opts.Log.WithName("metrics"),
		addr:    opts.Addr,
		handler: mux,
		readyCh: make(chan net.Addr, 1),
	}
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %q: %w", s.addr, err)
	}

	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.log.Info("Serving metrics", "addr", lis.Addr().String())
	s.readyCh <- lis.Addr()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(lis)
	}()

	select {
	case err = <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err = <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Addr blocks until the server is listening and returns its address.
func (s *Server) Addr(ctx context.Context) (net.Addr, error) {
	select {
	case addr := <-s.readyCh:
		s.readyCh <- addr
		return addr, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
