package control

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/display"
	"github.com/dokzlo13/gammad/internal/easing"
	"github.com/dokzlo13/gammad/internal/schedule"
)

// Phase is the temperature state machine position.
type Phase int

const (
	PhaseHigh Phase = iota
	PhaseLowering
	PhaseLow
	PhaseIncreasing
	// PhaseManual is an off-bound resting step set while the schedule is disabled.
	PhaseManual
)

func (p Phase) String() string {
	switch p {
	case PhaseHigh:
		return "HIGH"
	case PhaseLowering:
		return "LOWERING"
	case PhaseLow:
		return "LOW"
	case PhaseIncreasing:
		return "INCREASING"
	case PhaseManual:
		return "MANUAL"
	default:
		return "UNKNOWN"
	}
}

// Moving reports whether the phase has an animation in flight.
func (p Phase) Moving() bool {
	return p == PhaseLowering || p == PhaseIncreasing
}

// restingPhase is the phase for a controller idle at current.
func restingPhase(current int, cfg config.TemperatureConfig) Phase {
	switch current {
	case cfg.HighStep():
		return PhaseHigh
	case cfg.LowStep():
		return PhaseLow
	default:
		return PhaseManual
	}
}

// Reason is what caused a schedule evaluation.
type Reason int

const (
	ReasonStartup Reason = iota
	ReasonTick
	ReasonForced
)

func (r Reason) String() string {
	switch r {
	case ReasonStartup:
		return "startup"
	case ReasonTick:
		return "tick"
	default:
		return "forced"
	}
}

// Plan is the outcome of a schedule evaluation.
type Plan struct {
	Phase  Phase
	Target int
	Quick  bool
	// Animate is false when the controller is already at the target.
	Animate bool
}

// Decide applies the temperature state machine. current is the current step,
// low whether the schedule wants the low period.
//
// A forced evaluation finishes quickly when idle or when the animation in
// flight already heads in the wanted direction; a forced reversal runs at full
// speed. Startup evaluations are quick, tick evaluations are not.
func Decide(phase Phase, current, lowStep, highStep int, low bool, reason Reason) Plan {
	target, moving, stable := highStep, PhaseIncreasing, PhaseHigh
	if low {
		target, moving, stable = lowStep, PhaseLowering, PhaseLow
	}

	if current == target {
		return Plan{Phase: stable, Target: target}
	}

	var quick bool
	switch reason {
	case ReasonStartup:
		quick = true
	case ReasonForced:
		quick = !phase.Moving() || phase == moving
	}

	return Plan{Phase: moving, Target: target, Quick: quick, Animate: true}
}

// TemperatureState is a snapshot of the temperature controller.
type TemperatureState struct {
	Current   int    `json:"current"`
	Target    int    `json:"target"`
	Kelvin    int    `json:"kelvin"`
	Phase     string `json:"phase"`
	Animating bool   `json:"animating"`
	Quick     bool   `json:"quick"`
}

// Temperature drives the color temperature from the daily schedule.
type Temperature struct {
	cfg    *config.Store
	writer *Writer
	obs    Observer
	now    func() time.Time

	mu        sync.Mutex
	current   int
	target    int
	phase     Phase
	animating bool
	quick     bool

	recheck chan struct{}
	manual  chan struct{}
	want    int // latest manual step, guarded by mu
}

// NewTemperature creates a controller starting at initial.
func NewTemperature(cfg *config.Store, writer *Writer, obs Observer, initial int) *Temperature {
	if obs == nil {
		obs = NopObserver{}
	}
	initial = display.Clamp(initial, 0, display.MaxTemperatureStep)

	t := &Temperature{
		cfg:     cfg,
		writer:  writer,
		obs:     obs,
		now:     time.Now,
		current: initial,
		target:  initial,
		want:    initial,
		recheck: make(chan struct{}, 1),
		manual:  make(chan struct{}, 1),
		phase:   restingPhase(initial, cfg.Get().Temperature),
	}
	return t
}

// SetClock replaces the wall clock. Call before Run.
func (t *Temperature) SetClock(now func() time.Time) {
	t.now = now
}

// Recheck forces a schedule evaluation, interrupting any animation in flight.
func (t *Temperature) Recheck() {
	select {
	case t.recheck <- struct{}{}:
	default:
	}
}

// SetStep moves to step while the schedule is disabled. It returns false when
// the schedule is in control.
func (t *Temperature) SetStep(step int) bool {
	if t.cfg.Get().Temperature.Auto {
		return false
	}

	t.mu.Lock()
	t.want = display.Clamp(step, 0, display.MaxTemperatureStep)
	t.mu.Unlock()

	select {
	case t.manual <- struct{}{}:
	default:
	}
	return true
}

// Current returns the step last written to the display.
func (t *Temperature) Current() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Phase returns the state machine position.
func (t *Temperature) Phase() Phase {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.phase
}

// Snapshot returns a consistent view of the controller.
func (t *Temperature) Snapshot() TemperatureState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return TemperatureState{
		Current:   t.current,
		Target:    t.target,
		Kelvin:    display.StepToKelvin(t.current),
		Phase:     t.phase.String(),
		Animating: t.animating,
		Quick:     t.quick,
	}
}

// Run evaluates the schedule on every tick and on Recheck until ctx is cancelled.
func (t *Temperature) Run(ctx context.Context) {
	tick := t.cfg.Get().Temperature.Tick.Duration()
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	log.Debug().Int("step", t.Current()).Dur("tick", tick).Msg("Temperature controller started")
	defer log.Debug().Msg("Temperature controller stopped")

	plan, ok := t.evaluate(ReasonStartup)
	for ctx.Err() == nil {
		if ok {
			plan, ok = t.animate(ctx, plan)
			continue
		}

		if next := t.cfg.Get().Temperature.Tick.Duration(); next != tick {
			tick = next
			ticker.Reset(tick)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			plan, ok = t.evaluate(ReasonTick)
		case <-t.recheck:
			plan, ok = t.evaluate(ReasonForced)
		case <-t.manual:
			plan, ok = t.manualPlan()
		}
	}
}

// evaluate reads the schedule and returns a plan when an animation is needed.
func (t *Temperature) evaluate(reason Reason) (Plan, bool) {
	plan, ok, err := t.tryEvaluate(reason)
	if err != nil {
		cfg := t.cfg.Get().Temperature
		log.Warn().Err(err).Str("start", cfg.Start).Str("end", cfg.End).Msg("Failed to evaluate schedule")
	}
	return plan, ok
}

func (t *Temperature) tryEvaluate(reason Reason) (Plan, bool, error) {
	cfg := t.cfg.Get().Temperature
	if !cfg.Auto {
		return Plan{}, false, nil
	}

	low, err := t.isLow(cfg)
	if err != nil {
		return Plan{}, false, err
	}

	t.mu.Lock()
	plan := Decide(t.phase, t.current, cfg.LowStep(), cfg.HighStep(), low, reason)
	prev := t.phase
	t.phase = plan.Phase
	if !plan.Animate {
		t.target = plan.Target
	}
	current := t.current
	t.mu.Unlock()

	if prev != plan.Phase {
		t.notifyPhase(PhaseChange{From: prev, To: plan.Phase, Quick: plan.Quick, Target: plan.Target, Step: current})
		log.Info().
			Str("from", prev.String()).
			Str("to", plan.Phase.String()).
			Str("reason", reason.String()).
			Bool("quick", plan.Quick).
			Msg("Temperature phase changed")
	}
	if !plan.Animate {
		log.Debug().Int("step", current).Int("kelvin", display.StepToKelvin(current)).Msg("Temperature already at target")
	}
	return plan, plan.Animate, nil
}

func (t *Temperature) isLow(cfg config.TemperatureConfig) (bool, error) {
	window, err := schedule.ParseWindow(cfg.Start, cfg.End)
	if err != nil {
		return false, err
	}
	ev := schedule.NewEvaluator(cfg.Latitude, cfg.Longitude, cfg.Timezone)
	return window.IsLow(ev, t.now())
}

func (t *Temperature) manualPlan() (Plan, bool) {
	if t.cfg.Get().Temperature.Auto {
		return Plan{}, false
	}
	t.mu.Lock()
	if t.want == t.current {
		t.mu.Unlock()
		return Plan{}, false
	}
	plan := Plan{Phase: PhaseIncreasing, Target: t.want, Quick: true, Animate: true}
	if t.want > t.current {
		plan.Phase = PhaseLowering
	}
	prev, current := t.phase, t.current
	t.phase = plan.Phase
	t.mu.Unlock()

	if prev != plan.Phase {
		t.notifyPhase(PhaseChange{From: prev, To: plan.Phase, Quick: true, Target: plan.Target, Step: current})
	}
	return plan, true
}

// animate plays plan and returns the follow-up plan when interrupted by a
// recheck or manual step.
func (t *Temperature) animate(ctx context.Context, plan Plan) (Plan, bool) {
	cfg := t.cfg.Get().Temperature
	automatic := cfg.Auto

	duration := cfg.Speed.Duration()
	if plan.Quick {
		duration = cfg.QuickSpeed.Duration()
	}

	t.mu.Lock()
	job := NewJob(t.current, plan.Target, duration, cfg.FPS, easing.InOutQuad)
	t.target = plan.Target
	t.animating = true
	t.quick = plan.Quick
	t.mu.Unlock()

	defer func() {
		t.mu.Lock()
		t.animating = false
		t.quick = false
		t.mu.Unlock()
	}()

	tr := newTransition("temperature", job, OutcomeStarted, job.Start)
	tr.Quick, tr.Phase = plan.Quick, plan.Phase.String()
	notifyTransition(t.obs, tr)

	log.Debug().
		Int("start", job.Start).
		Int("end", job.End).
		Dur("duration", duration).
		Bool("quick", plan.Quick).
		Str("job", job.ID.String()).
		Msg("Temperature transition")

	finish := func(outcome Outcome, value int) {
		tr.Outcome, tr.Value = outcome, value
		notifyTransition(t.obs, tr)
	}

	timer := time.NewTimer(0)
	<-timer.C
	defer timer.Stop()

	for {
		value, done := job.Next()
		t.apply(value)
		if done {
			t.settle(plan.Target)
			finish(OutcomeCompleted, value)
			log.Debug().Int("start", job.Start).Int("end", job.End).Msg("Temperature transition done")
			return Plan{}, false
		}

		timer.Reset(job.FramePeriod())
		select {
		case <-ctx.Done():
			t.settle(-1)
			finish(OutcomeCancelled, value)
			return Plan{}, false
		case <-t.recheck:
			next, ok, err := t.tryEvaluate(ReasonForced)
			if err != nil {
				log.Warn().Err(err).Msg("Failed to re-evaluate schedule, continuing transition")
				continue
			}
			finish(OutcomeSuperseded, value)
			if !ok {
				t.settle(-1)
			}
			return next, ok
		case <-t.manual:
			next, ok := t.manualPlan()
			if !ok {
				continue
			}
			finish(OutcomeSuperseded, value)
			return next, ok
		case <-timer.C:
		}

		if automatic && !t.cfg.Get().Temperature.Auto {
			t.settle(-1)
			finish(OutcomeCancelled, value)
			log.Info().Int("step", value).Msg("Scheduled temperature disabled mid-transition")
			return Plan{}, false
		}
	}
}

// settle fixes the phase once no animation is running. A target of -1
// keeps the controller where it stopped. A moving phase never survives settle.
func (t *Temperature) settle(target int) {
	cfg := t.cfg.Get().Temperature

	t.mu.Lock()
	if target >= 0 {
		t.target = target
	} else {
		t.target = t.current
	}
	prev, current := t.phase, t.current
	t.phase = restingPhase(current, cfg)
	next := t.phase
	t.mu.Unlock()

	if prev != next {
		t.notifyPhase(PhaseChange{From: prev, To: next, Target: current, Step: current})
		log.Info().Str("from", prev.String()).Str("to", next.String()).Int("step", current).Msg("Temperature phase settled")
	}
}

func (t *Temperature) notifyPhase(c PhaseChange) {
	if po, ok := t.obs.(PhaseObserver); ok {
		po.OnPhase(c)
	}
}

func (t *Temperature) apply(step int) {
	t.mu.Lock()
	changed := step != t.current
	t.current = step
	t.mu.Unlock()

	if err := t.writer.SetTemperature(step); err != nil {
		log.Warn().Err(err).Int("step", step).Msg("Failed to apply temperature")
	}
	if changed {
		t.obs.OnTemperatureStep(step)
	}
}
