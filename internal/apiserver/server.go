package apiserver

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/logger"

	httpopts "github.com/kart-io/mediasearch/pkg/options/http"
)

// Server wraps the HTTP server with graceful shutdown.
type Server struct {
	srv      *http.Server
	opts     *httpopts.Options
	cleanups []func()
}

// NewServer creates the HTTP server around engine.
func NewServer(engine *gin.Engine, opts *httpopts.Options) *Server {
	return &Server{
		srv: &http.Server{
			Addr:         opts.Addr,
			Handler:      engine,
			ReadTimeout:  opts.ReadTimeout,
			WriteTimeout: opts.WriteTimeout,
		},
		opts: opts,
	}
}

// OnShutdown registers a cleanup to run after the listener stops.
func (s *Server) OnShutdown(fn func()) {
	s.cleanups = append(s.cleanups, fn)
}

// Run serves until SIGINT or SIGTERM, then shuts down gracefully.
func (s *Server) Run() error {
	errCh := make(chan error, 1)
	go func() {
		logger.Infow("HTTP server listening", "addr", s.opts.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		logger.Infow("shutting down", "signal", sig.String())
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	err := s.srv.Shutdown(ctx)

	for _, fn := range s.cleanups {
		fn()
	}
	return err
}
