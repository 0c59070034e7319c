// Package luminance reduces captured screen frames to a single brightness value.
package luminance

import (
	"errors"
	"fmt"
)

// ErrShortBuffer is returned when a frame holds fewer bytes than its
// dimensions require.
var ErrShortBuffer = errors.New("pixel buffer shorter than frame size")

// Stride is the pixel subsampling factor. Every Stride-th pixel is read.
const Stride = 16

// Order describes where the color channels sit inside a pixel.
type Order int

const (
	// BGRA is the layout X11 ZPixmap images use on little-endian hosts.
	BGRA Order = iota
	RGBA
)

// Analyze returns the mean Rec.601 luma of frame in the range 0..255.
// The result is deterministic for a given buffer.
func Analyze(pixels []byte, width, height, channels int) (int, error) {
	return AnalyzeOrder(pixels, width, height, channels, BGRA)
}

// AnalyzeOrder is Analyze with an explicit channel order.
func AnalyzeOrder(pixels []byte, width, height, channels int, order Order) (int, error) {
	if width <= 0 || height <= 0 || channels < 3 {
		return 0, fmt.Errorf("invalid frame geometry %dx%dx%d", width, height, channels)
	}
	size := width * height * channels
	if len(pixels) < size {
		return 0, fmt.Errorf("%w: have %d, need %d", ErrShortBuffer, len(pixels), size)
	}

	ri, bi := 2, 0
	if order == RGBA {
		ri, bi = 0, 2
	}

	var sum, n uint64
	step := Stride * channels
	for i := 0; i+channels <= size; i += step {
		r := uint64(pixels[i+ri])
		g := uint64(pixels[i+1])
		b := uint64(pixels[i+bi])
		sum += 299*r + 587*g + 114*b
		n++
	}

	return int(sum / (n * 1000)), nil
}
