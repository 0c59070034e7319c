package control

import (
	"github.com/dokzlo13/gammad/internal/config"
)

// Debouncer suppresses brightness recomputation until the accumulated
// luminance change exceeds a fixed threshold. The threshold is compared
// as-is; it is not scaled by the animation speed.
type Debouncer struct {
	accumulated int
	force       bool
	primed      bool

	prevLuminance int
	prevMin       int
	prevMax       int
	prevOffset    int
}

// Reset clears the accumulator and forces the next observation to trigger.
func (d *Debouncer) Reset() {
	d.accumulated = 0
	d.force = true
	d.primed = false
}

// Force makes the next observation trigger.
func (d *Debouncer) Force() {
	d.force = true
}

// Accumulated returns the change collected since the last trigger.
func (d *Debouncer) Accumulated() int {
	return d.accumulated
}

// Observe records a luminance sample taken under cfg and reports whether a
// new target should be computed. The first sample after construction or
// Reset only sets the baseline.
func (d *Debouncer) Observe(luminance int, cfg config.BrightnessConfig) bool {
	if d.primed {
		d.accumulated += abs(luminance - d.prevLuminance)
	}

	fire := d.accumulated > cfg.Threshold || d.force
	if fire {
		d.accumulated = 0
		d.force = false
	}

	// Bounds changed since the previous sample: recompute on the next one.
	if d.primed && (cfg.Min != d.prevMin || cfg.Max != d.prevMax || cfg.Offset != d.prevOffset) {
		d.force = true
	}

	d.primed = true
	d.prevLuminance = luminance
	d.prevMin = cfg.Min
	d.prevMax = cfg.Max
	d.prevOffset = cfg.Offset

	return fire
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
