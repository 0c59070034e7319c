package app

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/display"
)

// DisplayService holds the capture source and gamma sink of the selected
// backend.
type DisplayService struct {
	Backend  string
	Capturer display.ScreenCapturer
	Sink     display.GammaSink

	closer io.Closer
}

// NewDisplayService opens the backend named in cfg:
//
//   - x11 captures the root window and sets gamma through RandR
//   - image samples a picture file and logs gamma changes
//   - null produces flat gray frames and logs gamma changes
func NewDisplayService(cfg config.DisplayConfig) (*DisplayService, error) {
	s := &DisplayService{Backend: cfg.Backend}

	switch cfg.Backend {
	case "x11":
		x, err := display.OpenX11(cfg.Name)
		if err != nil {
			return nil, err
		}
		s.Capturer, s.Sink, s.closer = x, x, x
	case "image":
		c, err := display.NewImageCapturer(cfg.Image, cfg.Width, cfg.Height)
		if err != nil {
			return nil, err
		}
		s.Capturer, s.Sink = c, display.NewLogSink()
	case "null":
		s.Capturer = display.NewFlatCapturer(cfg.Width, cfg.Height, byte(cfg.Level))
		s.Sink = display.NewLogSink()
	default:
		return nil, fmt.Errorf("unknown display backend %q", cfg.Backend)
	}

	w, h := s.Capturer.Size()
	log.Info().Str("backend", cfg.Backend).Int("width", w).Int("height", h).Msg("Display opened")
	return s, nil
}

// Close releases the backend connection.
func (s *DisplayService) Close() {
	if s.closer == nil {
		return
	}
	if err := s.closer.Close(); err != nil {
		log.Warn().Err(err).Str("backend", s.Backend).Msg("Failed to close display")
	}
}
