// Package server exposes the liveness endpoint used by external health
// probes. No state, no parameters.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/syuvi-tf/syuvi/pkg/logx"
)

type Server struct {
	srv *http.Server
	log logx.Logger
}

func New(addr string, log logx.Logger) *Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK"}`))
	})

	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
		log: log,
	}
}

// Start begins serving in the background.
func (s *Server) Start() {
	go func() {
		s.log.Info("status API listening", logx.String("addr", s.srv.Addr))
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("status server failed", logx.Err(err))
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// Handler exposes the mux for tests.
func (s *Server) Handler() http.Handler { return s.srv.Handler }
