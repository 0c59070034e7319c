package control

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dokzlo13/gammad/internal/config"
)

func TestDebouncerAccumulates(t *testing.T) {
	cfg := config.BrightnessConfig{Threshold: 50, Min: 64, Max: 100, Offset: 70}

	tests := []struct {
		name    string
		samples []int
		fires   []bool
	}{
		{
			name:    "fires_once_change_exceeds_threshold",
			samples: []int{100, 100, 160},
			fires:   []bool{false, false, true},
		},
		{
			name:    "small_changes_add_up",
			samples: []int{100, 120, 100, 120},
			fires:   []bool{false, false, false, true},
		},
		{
			name:    "threshold_is_exclusive",
			samples: []int{100, 150, 150},
			fires:   []bool{false, false, false},
		},
		{
			name:    "resets_after_firing",
			samples: []int{0, 60, 70, 80},
			fires:   []bool{false, true, false, false},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Debouncer
			for i, lum := range tt.samples {
				assert.Equal(t, tt.fires[i], d.Observe(lum, cfg), "sample %d (%d)", i, lum)
			}
		})
	}
}

func TestDebouncerResetFiresNext(t *testing.T) {
	cfg := config.BrightnessConfig{Threshold: 50}

	var d Debouncer
	d.Observe(100, cfg)
	d.Observe(130, cfg)
	assert.Equal(t, 30, d.Accumulated())

	d.Reset()
	assert.Equal(t, 0, d.Accumulated())
	assert.True(t, d.Observe(10, cfg))
	assert.False(t, d.Observe(10, cfg))
}

func TestDebouncerForce(t *testing.T) {
	cfg := config.BrightnessConfig{Threshold: 50}

	var d Debouncer
	d.Observe(100, cfg)
	d.Force()
	assert.True(t, d.Observe(100, cfg))
	assert.False(t, d.Observe(100, cfg))
}

func TestDebouncerBoundsChange(t *testing.T) {
	base := config.BrightnessConfig{Threshold: 50, Min: 64, Max: 100, Offset: 70}

	tests := []struct {
		name   string
		modify func(cfg *config.BrightnessConfig)
	}{
		{name: "min", modify: func(cfg *config.BrightnessConfig) { cfg.Min = 10 }},
		{name: "max", modify: func(cfg *config.BrightnessConfig) { cfg.Max = 90 }},
		{name: "offset", modify: func(cfg *config.BrightnessConfig) { cfg.Offset = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Debouncer
			assert.False(t, d.Observe(100, base))

			changed := base
			tt.modify(&changed)
			assert.False(t, d.Observe(100, changed))
			assert.True(t, d.Observe(100, changed))
			assert.False(t, d.Observe(100, changed))
		})
	}
}
