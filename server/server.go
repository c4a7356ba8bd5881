package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
)

// Server serves an http.Handler until Shutdown is called.
type Server struct {
	handler       http.Handler
	listenAddress string
	server        *http.Server

	logger *zerolog.Logger
}

func NewServer(
	listenAddress string,
	handler http.Handler,
	logger *zerolog.Logger,
) (*Server, error) {
	server := &Server{
		handler:       handler,
		listenAddress: listenAddress,
		logger:        logger,
		server: &http.Server{
			Addr:    listenAddress,
			Handler: handler,
		},
	}

	return server, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) Serve() error {
	s.logger.Info().Str("listen_address", s.listenAddress).Msg("Starting HTTP server")

	err := s.server.ListenAndServe()
	if err != http.ErrServerClosed {
		return err
	}

	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info().Msg("Stopping HTTP server")
	s.server.SetKeepAlivesEnabled(false)
	err := s.server.Shutdown(ctx)
	if err != nil {
		return err
	}

	return nil
}
