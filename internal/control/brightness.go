package control

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/display"
	"github.com/dokzlo13/gammad/internal/easing"
)

// BrightnessState is a snapshot of the brightness controller.
type BrightnessState struct {
	Current   int  `json:"current"`
	Target    int  `json:"target"`
	Animating bool `json:"animating"`
}

// Brightness owns the current and target brightness steps. Targets are
// posted with SetTarget and animated by Run with an ease-out curve.
type Brightness struct {
	cfg    *config.Store
	writer *Writer
	obs    Observer

	mu        sync.Mutex
	current   int
	target    int
	animating bool

	// notify carries "target changed"; the value itself lives in target.
	notify chan struct{}
}

// NewBrightness creates a controller starting at initial.
func NewBrightness(cfg *config.Store, writer *Writer, obs Observer, initial int) *Brightness {
	if obs == nil {
		obs = NopObserver{}
	}
	initial = display.Clamp(initial, 0, display.MaxBrightnessStep)
	return &Brightness{
		cfg:     cfg,
		writer:  writer,
		obs:     obs,
		current: initial,
		target:  initial,
		notify:  make(chan struct{}, 1),
	}
}

// SetTarget clamps step to the configured bounds and schedules an animation
// towards it. It returns false when nothing needs to change.
func (b *Brightness) SetTarget(step int) bool {
	cfg := b.cfg.Get().Brightness
	step = display.Clamp(step, cfg.Min, cfg.Max)

	b.mu.Lock()
	if step == b.target && (b.animating || step == b.current) {
		b.mu.Unlock()
		return false
	}
	b.target = step
	b.mu.Unlock()

	select {
	case b.notify <- struct{}{}:
	default:
		// Already pending; the animation reads the latest target.
	}
	return true
}

// Current returns the step last written to the display.
func (b *Brightness) Current() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.current
}

// Snapshot returns a consistent view of the controller.
func (b *Brightness) Snapshot() BrightnessState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return BrightnessState{Current: b.current, Target: b.target, Animating: b.animating}
}

// Run animates towards posted targets until ctx is cancelled.
func (b *Brightness) Run(ctx context.Context) {
	log.Debug().Int("step", b.Current()).Msg("Brightness controller started")
	defer log.Debug().Msg("Brightness controller stopped")

	for {
		select {
		case <-ctx.Done():
			return
		case <-b.notify:
			b.animate(ctx)
		}
	}
}

// animate runs jobs until the current target is reached. A target posted
// mid-animation abandons the job and starts a new one from the current value.
func (b *Brightness) animate(ctx context.Context) {
	defer func() {
		b.mu.Lock()
		b.animating = false
		b.mu.Unlock()
	}()

	for {
		cfg := b.cfg.Get().Brightness

		b.mu.Lock()
		start, end := b.current, b.target
		if start == end {
			b.mu.Unlock()
			log.Debug().Int("step", end).Msg("Brightness already at target")
			return
		}
		b.animating = true
		b.mu.Unlock()

		job := NewJob(start, end, cfg.Speed.Duration(), cfg.FPS, easing.OutExpo)
		log.Debug().Int("start", start).Int("end", end).Str("job", job.ID.String()).Msg("Brightness transition")
		notifyTransition(b.obs, newTransition("brightness", job, OutcomeStarted, start))

		outcome, value := b.play(ctx, job)
		notifyTransition(b.obs, newTransition("brightness", job, outcome, value))

		switch outcome {
		case OutcomeCompleted:
			log.Debug().Int("start", start).Int("end", end).Msg("Brightness transition done")
			return
		case OutcomeCancelled:
			return
		}
	}
}

// play drives one job frame by frame.
func (b *Brightness) play(ctx context.Context, job *Job) (Outcome, int) {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	value := job.Start
	for {
		var done bool
		value, done = job.Next()
		b.apply(value)
		if done {
			return OutcomeCompleted, value
		}

		if timer == nil {
			timer = time.NewTimer(job.FramePeriod())
		} else {
			timer.Reset(job.FramePeriod())
		}

		select {
		case <-ctx.Done():
			return OutcomeCancelled, value
		case <-b.notify:
			return OutcomeSuperseded, value
		case <-timer.C:
		}
	}
}

func (b *Brightness) apply(step int) {
	b.mu.Lock()
	changed := step != b.current
	b.current = step
	b.mu.Unlock()

	if err := b.writer.SetBrightness(step); err != nil {
		log.Warn().Err(err).Int("step", step).Msg("Failed to apply brightness")
	}
	if changed {
		b.obs.OnBrightnessStep(step)
	}
}
