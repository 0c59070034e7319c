package control

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/display"
	"github.com/dokzlo13/gammad/internal/policy"
)

type failingPolicy struct{}

func (failingPolicy) BrightnessTarget(int, int) (int, error) {
	return 75, errors.New("script failed")
}

func TestTarget(t *testing.T) {
	tests := []struct {
		name   string
		policy policy.Policy
		lum    int
		cfg    config.BrightnessConfig
		want   int
	}{
		{name: "black_screen_clamps_to_max", policy: policy.Linear{}, lum: 0, cfg: config.BrightnessConfig{Min: 64, Max: 100, Offset: 70}, want: 100},
		{name: "white_screen_uses_offset", policy: policy.Linear{}, lum: 255, cfg: config.BrightnessConfig{Min: 64, Max: 100, Offset: 70}, want: 70},
		{name: "white_screen_clamps_to_min", policy: policy.Linear{}, lum: 255, cfg: config.BrightnessConfig{Min: 80, Max: 100, Offset: 70}, want: 80},
		{name: "mid_gray_without_offset", policy: policy.Linear{}, lum: 128, cfg: config.BrightnessConfig{Min: 0, Max: 100}, want: 50},
		{name: "policy_error_keeps_fallback", policy: failingPolicy{}, lum: 0, cfg: config.BrightnessConfig{Min: 0, Max: 100}, want: 75},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Target(tt.policy, tt.lum, tt.cfg))
		})
	}
}

func startSampler(t *testing.T, store *config.Store, capturer display.ScreenCapturer, initial int) (*Sampler, *Brightness) {
	t.Helper()
	b := NewBrightness(store, NewWriter(&fakeSink{}, initial, 0), nil, initial)
	s := NewSampler(store, capturer, b, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{}, 2)
	go func() { b.Run(ctx); done <- struct{}{} }()
	go func() { s.Run(ctx); done <- struct{}{} }()
	t.Cleanup(func() {
		cancel()
		<-done
		<-done
	})
	return s, b
}

func TestSamplerFollowsScreen(t *testing.T) {
	capturer := display.NewFlatCapturer(32, 32, 255)
	s, b := startSampler(t, testStore(nil), capturer, 100)

	require.Eventually(t, func() bool { return b.Current() == 70 }, 2*time.Second, 5*time.Millisecond)

	status := s.Status()
	assert.Equal(t, "SAMPLING", status.State)
	assert.Equal(t, 255, status.Luminance)
	assert.NotEmpty(t, status.History)
	assert.LessOrEqual(t, len(status.History), HistorySize)

	capturer.SetLevel(0)
	require.Eventually(t, func() bool { return b.Current() == 100 }, 2*time.Second, 5*time.Millisecond)
}

func TestSamplerIdleWhenDisabled(t *testing.T) {
	store := testStore(func(cfg *config.Config) {
		cfg.Brightness.Auto = false
	})
	s, b := startSampler(t, store, display.NewFlatCapturer(8, 8, 255), 100)

	require.Eventually(t, func() bool { return s.Status().State == "IDLE" }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return b.Current() != 100 }, 100*time.Millisecond, 10*time.Millisecond)

	store.Update(func(cfg *config.Config) { cfg.Brightness.Auto = true })
	s.Wake()
	require.Eventually(t, func() bool { return b.Current() == 70 }, 2*time.Second, 5*time.Millisecond)

	store.Update(func(cfg *config.Config) { cfg.Brightness.Auto = false })
	require.Eventually(t, func() bool { return s.Status().State == "IDLE" }, time.Second, 5*time.Millisecond)
}

type brokenCapturer struct {
	calls atomic.Int32
}

func (c *brokenCapturer) Size() (int, int) { return 4, 4 }

func (c *brokenCapturer) Capture(context.Context, []byte) error {
	c.calls.Add(1)
	return errors.New("display went away")
}

func TestSamplerRetriesCapture(t *testing.T) {
	store := testStore(func(cfg *config.Config) {
		cfg.Brightness.RetryRate = 50
	})
	capturer := &brokenCapturer{}
	_, b := startSampler(t, store, capturer, 100)

	require.Eventually(t, func() bool { return capturer.calls.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 100, b.Current())
}
