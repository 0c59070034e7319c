// Package httpapi serves health, status and manual control endpoints and
// streams controller events over WebSocket.
package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/control"
	"github.com/dokzlo13/gammad/internal/ledger"
)

// Brightness is the brightness controller surface used by the API.
type Brightness interface {
	Snapshot() control.BrightnessState
	SetTarget(step int) bool
}

// Temperature is the temperature controller surface used by the API.
type Temperature interface {
	Snapshot() control.TemperatureState
	Recheck()
	SetStep(step int) bool
}

// Sampler reports the sampling loop status.
type Sampler interface {
	Status() control.SamplerStatus
}

// History lists recorded transitions.
type History interface {
	Recent(controller string, limit int) ([]*ledger.Entry, error)
}

// Deps are the components the server reads and drives. History may be nil.
type Deps struct {
	Config      *config.Store
	Brightness  Brightness
	Temperature Temperature
	Sampler     Sampler
	History     History
	Hub         *Hub
}

// Server is the HTTP API server.
type Server struct {
	addr     string
	deps     Deps
	ready    atomic.Bool
	upgrader websocket.Upgrader

	httpServer *http.Server
}

// NewServer creates a server listening on host:port.
func NewServer(host string, port int, deps Deps) *Server {
	return &Server{
		addr: fmt.Sprintf("%s:%d", host, port),
		deps: deps,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
}

// SetReady flips the /ready endpoint.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler returns the request router.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /ready", s.handleReady)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /transitions", s.handleTransitions)
	mux.HandleFunc("POST /schedule/recheck", s.handleRecheck)
	mux.HandleFunc("PUT /brightness", s.handleSetBrightness)
	mux.HandleFunc("PUT /temperature", s.handleSetTemperature)
	if s.deps.Hub != nil {
		mux.HandleFunc("GET /ws", s.handleWebSocket)
	}
	return mux
}

// Run serves until ctx is cancelled.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	s.httpServer = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Info().Str("addr", s.addr).Msg("Starting HTTP API server")

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("HTTP API server shutdown error")
		}
	}()

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
