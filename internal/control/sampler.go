package control

import (
	"context"
	"sync"
	"time"

	"github.com/gammazero/deque"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/display"
	"github.com/dokzlo13/gammad/internal/luminance"
	"github.com/dokzlo13/gammad/internal/policy"
)

// HistorySize is the number of luminance samples kept for status reports.
const HistorySize = 64

// SamplerState is the sampling loop state.
type SamplerState int

const (
	SamplerIdle SamplerState = iota
	SamplerSampling
)

func (s SamplerState) String() string {
	if s == SamplerSampling {
		return "SAMPLING"
	}
	return "IDLE"
}

// SamplerStatus is a snapshot of the sampling loop.
type SamplerStatus struct {
	State       string `json:"state"`
	Luminance   int    `json:"luminance"`
	Accumulated int    `json:"accumulated"`
	History     []int  `json:"history"`
}

// Sampler captures the screen while adaptive brightness is enabled and posts
// brightness targets when the content changed enough.
type Sampler struct {
	cfg        *config.Store
	capturer   display.ScreenCapturer
	brightness *Brightness
	policy     policy.Policy
	limiter    *rate.Limiter

	wake chan struct{}
	deb  Debouncer

	mu          sync.Mutex
	state       SamplerState
	last        int
	accumulated int
	history     deque.Deque[int]
}

// NewSampler creates a sampling loop. A nil policy uses policy.Linear.
func NewSampler(cfg *config.Store, capturer display.ScreenCapturer, brightness *Brightness, p policy.Policy) *Sampler {
	if p == nil {
		p = policy.Linear{}
	}
	retry := cfg.Get().Brightness.RetryRate
	return &Sampler{
		cfg:        cfg,
		capturer:   capturer,
		brightness: brightness,
		policy:     p,
		limiter:    rate.NewLimiter(rate.Limit(retry), 1),
		wake:       make(chan struct{}, 1),
	}
}

// Wake makes an idle sampler re-read the configuration.
func (s *Sampler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Status returns a snapshot of the loop.
func (s *Sampler) Status() SamplerStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	history := make([]int, s.history.Len())
	for i := range history {
		history[i] = s.history.At(i)
	}
	return SamplerStatus{
		State:       s.state.String(),
		Luminance:   s.last,
		Accumulated: s.accumulated,
		History:     history,
	}
}

// Run alternates between idle and sampling until ctx is cancelled.
func (s *Sampler) Run(ctx context.Context) {
	log.Debug().Msg("Sampler started")
	defer log.Debug().Msg("Sampler stopped")

	for ctx.Err() == nil {
		if !s.cfg.Get().Brightness.Auto {
			s.setState(SamplerIdle)
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
			}
			continue
		}

		s.setState(SamplerSampling)
		s.sample(ctx)
	}
}

func (s *Sampler) setState(state SamplerState) {
	s.mu.Lock()
	prev := s.state
	s.state = state
	s.mu.Unlock()

	if prev != state {
		log.Info().Str("from", prev.String()).Str("to", state.String()).Msg("Sampler state changed")
	}
}

// sample runs until adaptive brightness is disabled or ctx is cancelled.
func (s *Sampler) sample(ctx context.Context) {
	width, height := s.capturer.Size()
	buf := make([]byte, display.FrameSize(s.capturer))
	s.deb.Reset()

	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	for {
		cfg := s.cfg.Get().Brightness
		if !cfg.Auto {
			return
		}

		if err := s.capturer.Capture(ctx, buf); err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("Screen capture failed, retrying")
			s.limiter.SetLimit(rate.Limit(cfg.RetryRate))
			if err := s.limiter.Wait(ctx); err != nil {
				return
			}
			continue
		}

		timer.Reset(cfg.PollingInterval.Duration())
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		lum, err := luminance.Analyze(buf, width, height, display.Channels)
		if err != nil {
			log.Error().Err(err).Msg("Failed to analyze frame")
			continue
		}

		s.observe(lum)
	}
}

// observe feeds one sample through the debouncer and posts a new target
// when it triggers. The configuration is read once for the whole decision.
func (s *Sampler) observe(lum int) {
	cfg := s.cfg.Get().Brightness

	fire := s.deb.Observe(lum, cfg)

	s.mu.Lock()
	s.last = lum
	s.accumulated = s.deb.Accumulated()
	if s.history.Len() == HistorySize {
		s.history.PopFront()
	}
	s.history.PushBack(lum)
	s.mu.Unlock()

	if !fire {
		return
	}

	target := Target(s.policy, lum, cfg)
	current := s.brightness.Current()
	if target == current {
		log.Debug().Int("luminance", lum).Int("step", target).Msg("Brightness target unchanged")
		return
	}

	if s.brightness.SetTarget(target) {
		log.Info().
			Int("luminance", lum).
			Int("from", current).
			Int("to", target).
			Msg("Brightness target changed")
	}
}

// Target computes the clamped brightness step for a luminance sample.
func Target(p policy.Policy, lum int, cfg config.BrightnessConfig) int {
	raw, err := p.BrightnessTarget(lum, cfg.Offset)
	if err != nil {
		log.Warn().Err(err).Msg("Brightness policy failed, using fallback")
	}
	return display.Clamp(raw, cfg.Min, cfg.Max)
}
