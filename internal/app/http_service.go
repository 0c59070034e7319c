package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/httpapi"
)

// HTTPService runs the status and control API when enabled.
type HTTPService struct {
	cfg    config.HTTPConfig
	server *httpapi.Server
	hub    *httpapi.Hub
	done   chan struct{}
}

// NewHTTPService creates the service. It does nothing when disabled.
func NewHTTPService(cfg *config.Config, deps httpapi.Deps) *HTTPService {
	s := &HTTPService{cfg: cfg.HTTP, hub: deps.Hub}
	if cfg.HTTP.Enabled {
		s.server = httpapi.NewServer(cfg.HTTP.Host, cfg.HTTP.Port, deps)
	}
	return s
}

// Start serves in the background until ctx is cancelled.
func (s *HTTPService) Start(ctx context.Context, shutdownTimeout config.Duration, onFatalError func(error)) {
	if s.server == nil {
		return
	}

	s.done = make(chan struct{})
	go func() {
		defer close(s.done)
		if err := s.server.Run(ctx, shutdownTimeout.Duration()); err != nil {
			onFatalError(err)
		}
	}()
}

// SetReady marks the API ready once the control loops run.
func (s *HTTPService) SetReady(ready bool) {
	if s.server != nil {
		s.server.SetReady(ready)
	}
}

// Stop waits for the server to shut down and drops WebSocket clients.
func (s *HTTPService) Stop() {
	if s.hub != nil {
		s.hub.Close()
	}
	if s.done != nil {
		<-s.done
		log.Debug().Msg("HTTP API server stopped")
	}
}
