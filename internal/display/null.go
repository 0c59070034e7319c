package display

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"
)

// LogSink records applied values and logs them instead of touching hardware.
type LogSink struct {
	mu                      sync.Mutex
	brightness, temperature int
	applied                 int
}

// NewLogSink creates a LogSink starting at neutral values.
func NewLogSink() *LogSink {
	return &LogSink{brightness: MaxBrightnessStep}
}

// Apply stores and logs the pair.
func (s *LogSink) Apply(brightness, temperature int) error {
	s.mu.Lock()
	s.brightness, s.temperature = brightness, temperature
	s.applied++
	s.mu.Unlock()

	log.Debug().
		Int("brightness", brightness).
		Int("temperature", temperature).
		Int("kelvin", StepToKelvin(temperature)).
		Msg("Gamma applied")
	return nil
}

// Last returns the last applied pair.
func (s *LogSink) Last() (brightness, temperature int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.brightness, s.temperature
}

// FlatCapturer produces uniform gray frames.
type FlatCapturer struct {
	width, height int

	mu    sync.Mutex
	level byte
}

// NewFlatCapturer creates a capturer producing frames of the given gray level.
func NewFlatCapturer(width, height int, level byte) *FlatCapturer {
	return &FlatCapturer{width: width, height: height, level: level}
}

// Size returns the frame size.
func (c *FlatCapturer) Size() (int, int) {
	return c.width, c.height
}

// SetLevel changes the gray level of subsequent frames.
func (c *FlatCapturer) SetLevel(level byte) {
	c.mu.Lock()
	c.level = level
	c.mu.Unlock()
}

// Capture fills buf with the current gray level.
func (c *FlatCapturer) Capture(ctx context.Context, buf []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	level := c.level
	c.mu.Unlock()

	n := c.width * c.height * Channels
	for i := 0; i+3 < n && i+3 < len(buf); i += 4 {
		buf[i], buf[i+1], buf[i+2], buf[i+3] = level, level, level, 255
	}
	return nil
}
