// Package display holds the capture and gamma backends and the step scales
// shared by the controllers.
package display

import (
	"context"
	"errors"
	"math"
)

// ErrUnsupported is returned for backends unavailable on this system.
var ErrUnsupported = errors.New("display backend not supported")

// Step scales.
const (
	MaxBrightnessStep  = 100
	MaxTemperatureStep = 100

	MinKelvin = 2000
	MaxKelvin = 6500
)

// Channels is the number of bytes per captured pixel.
const Channels = 4

// ScreenCapturer grabs BGRA frames of a fixed size.
type ScreenCapturer interface {
	// Size returns the frame dimensions. They do not change for the
	// lifetime of the capturer.
	Size() (width, height int)
	// Capture fills buf with width*height*4 bytes. Errors are transient.
	Capture(ctx context.Context, buf []byte) error
}

// GammaSink pushes a brightness/temperature pair to the display.
type GammaSink interface {
	Apply(brightness, temperature int) error
}

// Neutral applies full brightness and the highest color temperature.
func Neutral(sink GammaSink) error {
	return sink.Apply(MaxBrightnessStep, 0)
}

// FrameSize returns the buffer length a capturer needs.
func FrameSize(c ScreenCapturer) int {
	w, h := c.Size()
	return w * h * Channels
}

// Remap linearly maps v from [fromMin, fromMax] onto [toMin, toMax].
func Remap(v, fromMin, fromMax, toMin, toMax float64) float64 {
	if fromMax == fromMin {
		return toMin
	}
	return (v-fromMin)/(fromMax-fromMin)*(toMax-toMin) + toMin
}

// KelvinToStep converts a color temperature to a temperature step. The
// highest temperature maps to step 0.
func KelvinToStep(kelvin int) int {
	kelvin = Clamp(kelvin, MinKelvin, MaxKelvin)
	return int(math.Round(Remap(float64(kelvin), MinKelvin, MaxKelvin, MaxTemperatureStep, 0)))
}

// StepToKelvin is the inverse of KelvinToStep.
func StepToKelvin(step int) int {
	step = Clamp(step, 0, MaxTemperatureStep)
	return int(math.Round(Remap(float64(step), MaxTemperatureStep, 0, MinKelvin, MaxKelvin)))
}

// Clamp bounds v to [lo, hi].
func Clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
