// Package policy maps screen luminance to a raw brightness target.
package policy

import (
	"github.com/dokzlo13/gammad/internal/display"
)

// Policy computes an unclamped brightness step for a luminance in 0..255.
type Policy interface {
	BrightnessTarget(luminance, offset int) (int, error)
}

// Linear darkens the display as the screen content gets brighter:
// MaxBrightnessStep - luminance scaled to the step range + offset.
type Linear struct{}

// BrightnessTarget implements Policy.
func (Linear) BrightnessTarget(luminance, offset int) (int, error) {
	scaled := int(display.Remap(float64(luminance), 0, 255, 0, display.MaxBrightnessStep))
	return display.MaxBrightnessStep - scaled + offset, nil
}
