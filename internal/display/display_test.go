package display

import (
	"context"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKelvinSteps(t *testing.T) {
	tests := []struct {
		kelvin int
		step   int
	}{
		{kelvin: 6500, step: 0},
		{kelvin: 2000, step: 100},
		{kelvin: 3400, step: 69},
		{kelvin: 4250, step: 50},
		{kelvin: 9000, step: 0},
		{kelvin: 1000, step: 100},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.step, KelvinToStep(tt.kelvin), "kelvin %d", tt.kelvin)
	}

	assert.Equal(t, 6500, StepToKelvin(0))
	assert.Equal(t, 2000, StepToKelvin(100))
}

func TestKelvinToRGB(t *testing.T) {
	r, g, b := KelvinToRGB(6500)
	assert.InDelta(t, 1.0, r, 0.01)
	assert.InDelta(t, 1.0, g, 0.05)
	assert.InDelta(t, 1.0, b, 0.05)

	r, g, b = KelvinToRGB(2000)
	assert.Equal(t, 1.0, r)
	assert.Less(t, g, 0.6)
	assert.Less(t, b, 0.2)
}

func TestRamp(t *testing.T) {
	n := 256
	r, g, b := make([]uint16, n), make([]uint16, n), make([]uint16, n)

	Ramp(r, g, b, MaxBrightnessStep, 0)
	assert.Equal(t, uint16(0), r[0])
	assert.Greater(t, r[n-1], uint16(65000))
	for i := 1; i < n; i++ {
		assert.GreaterOrEqual(t, r[i], r[i-1])
	}

	Ramp(r, g, b, 50, 0)
	assert.InDelta(t, 32767, int(r[n-1]), 300)

	Ramp(r, g, b, MaxBrightnessStep, MaxTemperatureStep)
	assert.Less(t, b[n-1], r[n-1])
}

func TestLogSink(t *testing.T) {
	s := NewLogSink()
	br, temp := s.Last()
	assert.Equal(t, MaxBrightnessStep, br)
	assert.Equal(t, 0, temp)

	require.NoError(t, s.Apply(40, 60))
	br, temp = s.Last()
	assert.Equal(t, 40, br)
	assert.Equal(t, 60, temp)
}

func TestFlatCapturer(t *testing.T) {
	c := NewFlatCapturer(8, 4, 90)
	buf := make([]byte, FrameSize(c))
	require.NoError(t, c.Capture(context.Background(), buf))
	assert.Equal(t, byte(90), buf[0])
	assert.Equal(t, byte(255), buf[3])

	c.SetLevel(10)
	require.NoError(t, c.Capture(context.Background(), buf))
	assert.Equal(t, byte(10), buf[len(buf)-2])
}

func TestImageCapturer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frame.png")
	src := imaging.New(64, 64, color.NRGBA{R: 200, G: 100, B: 50, A: 255})
	require.NoError(t, imaging.Save(src, path))

	c, err := NewImageCapturer(path, 16, 8)
	require.NoError(t, err)

	w, h := c.Size()
	assert.Equal(t, 16, w)
	assert.Equal(t, 8, h)

	buf := make([]byte, FrameSize(c))
	require.NoError(t, c.Capture(context.Background(), buf))
	// BGRA
	assert.InDelta(t, 50, int(buf[0]), 1)
	assert.InDelta(t, 100, int(buf[1]), 1)
	assert.InDelta(t, 200, int(buf[2]), 1)

	_, err = NewImageCapturer(filepath.Join(t.TempDir(), "missing.png"), 4, 4)
	assert.Error(t, err)
}
