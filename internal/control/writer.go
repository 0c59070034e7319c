package control

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/display"
)

// ErrWriterClosed is returned for writes after Close.
var ErrWriterClosed = errors.New("gamma writer closed")

// Writer serializes gamma applications from both controllers. It combines
// the latest brightness and temperature steps into one sink call.
type Writer struct {
	sink display.GammaSink

	mu          sync.Mutex
	brightness  int
	temperature int
	closed      bool

	closeOnce sync.Once
	closeErr  error
}

// NewWriter creates a writer starting from the given steps. Nothing is
// applied until the first write.
func NewWriter(sink display.GammaSink, brightness, temperature int) *Writer {
	return &Writer{sink: sink, brightness: brightness, temperature: temperature}
}

// SetBrightness applies a new brightness step with the current temperature.
func (w *Writer) SetBrightness(step int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	w.brightness = step
	return w.sink.Apply(w.brightness, w.temperature)
}

// SetTemperature applies a new temperature step with the current brightness.
func (w *Writer) SetTemperature(step int) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	w.temperature = step
	return w.sink.Apply(w.brightness, w.temperature)
}

// Apply pushes the current pair again.
func (w *Writer) Apply() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrWriterClosed
	}
	return w.sink.Apply(w.brightness, w.temperature)
}

// Last returns the last written pair.
func (w *Writer) Last() (brightness, temperature int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.brightness, w.temperature
}

// Close rejects further writes and applies neutral gamma exactly once.
func (w *Writer) Close() error {
	w.closeOnce.Do(func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.closed = true
		w.closeErr = display.Neutral(w.sink)
		if w.closeErr != nil {
			log.Error().Err(w.closeErr).Msg("Failed to restore neutral gamma")
		} else {
			log.Info().Msg("Neutral gamma restored")
		}
	})
	return w.closeErr
}
