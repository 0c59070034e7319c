package control

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/gammad/internal/config"
)

func TestDecide(t *testing.T) {
	const low, high = 69, 0

	tests := []struct {
		name    string
		phase   Phase
		current int
		isLow   bool
		reason  Reason
		want    Plan
	}{
		{
			name: "startup_enters_low_quickly", phase: PhaseHigh, current: high, isLow: true, reason: ReasonStartup,
			want: Plan{Phase: PhaseLowering, Target: low, Quick: true, Animate: true},
		},
		{
			name: "tick_enters_low_at_full_speed", phase: PhaseHigh, current: high, isLow: true, reason: ReasonTick,
			want: Plan{Phase: PhaseLowering, Target: low, Animate: true},
		},
		{
			name: "tick_leaves_low_at_full_speed", phase: PhaseLow, current: low, isLow: false, reason: ReasonTick,
			want: Plan{Phase: PhaseIncreasing, Target: high, Animate: true},
		},
		{
			name: "already_low", phase: PhaseLow, current: low, isLow: true, reason: ReasonTick,
			want: Plan{Phase: PhaseLow, Target: low},
		},
		{
			name: "already_high", phase: PhaseHigh, current: high, isLow: false, reason: ReasonForced,
			want: Plan{Phase: PhaseHigh, Target: high},
		},
		{
			name: "forced_from_idle_is_quick", phase: PhaseHigh, current: high, isLow: true, reason: ReasonForced,
			want: Plan{Phase: PhaseLowering, Target: low, Quick: true, Animate: true},
		},
		{
			name: "forced_same_direction_is_quick", phase: PhaseLowering, current: 30, isLow: true, reason: ReasonForced,
			want: Plan{Phase: PhaseLowering, Target: low, Quick: true, Animate: true},
		},
		{
			name: "forced_reversal_is_full_speed", phase: PhaseLowering, current: 30, isLow: false, reason: ReasonForced,
			want: Plan{Phase: PhaseIncreasing, Target: high, Animate: true},
		},
		{
			name: "forced_reversal_while_increasing", phase: PhaseIncreasing, current: 30, isLow: true, reason: ReasonForced,
			want: Plan{Phase: PhaseLowering, Target: low, Animate: true},
		},
		{
			name: "moving_but_already_there", phase: PhaseIncreasing, current: high, isLow: false, reason: ReasonForced,
			want: Plan{Phase: PhaseHigh, Target: high},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decide(tt.phase, tt.current, low, high, tt.isLow, tt.reason))
		})
	}
}

func startTemperature(t *testing.T, store *config.Store, clock *fakeClock, initial int) (*Temperature, *fakeSink, *fakeObserver) {
	t.Helper()
	sink := &fakeSink{}
	obs := &fakeObserver{}
	temp := NewTemperature(store, NewWriter(sink, 100, initial), obs, initial)
	temp.SetClock(clock.Now)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		temp.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return temp, sink, obs
}

func TestTemperatureStartupInLowPeriod(t *testing.T) {
	store := testStore(nil)
	lowStep := store.Get().Temperature.LowStep()
	temp, sink, obs := startTemperature(t, store, newFakeClock(at(22, 0)), 0)

	require.Eventually(t, func() bool {
		return temp.Phase() == PhaseLow && temp.Current() == lowStep
	}, time.Second, 5*time.Millisecond)

	calls := sink.Calls()
	assert.Equal(t, applied{100, lowStep}, calls[len(calls)-1])
	assert.True(t, isMonotonic(append([]int{0}, obs.Temperature()...)))
	assert.Equal(t, []Outcome{OutcomeStarted, OutcomeCompleted}, obs.Outcomes("temperature"))
	assert.Equal(t, []string{"LOWERING", "LOW"}, obs.Phases())
}

func TestTemperatureStartupAtTarget(t *testing.T) {
	temp, sink, _ := startTemperature(t, testStore(nil), newFakeClock(at(12, 0)), 0)

	assert.Eventually(t, func() bool { return temp.Phase() == PhaseHigh }, time.Second, 5*time.Millisecond)
	assert.Never(t, func() bool { return len(sink.Calls()) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestTemperatureForcedSameDirectionIsQuick(t *testing.T) {
	store := testStore(func(cfg *config.Config) {
		cfg.Temperature.Speed = config.Duration(2 * time.Second)
		cfg.Temperature.Tick = config.Duration(30 * time.Millisecond)
	})
	clock := newFakeClock(at(12, 0))
	temp, _, _ := startTemperature(t, store, clock, 0)

	clock.Set(at(22, 0))
	require.Eventually(t, func() bool {
		s := temp.Snapshot()
		return s.Phase == "LOWERING" && s.Animating && !s.Quick
	}, time.Second, 2*time.Millisecond)

	temp.Recheck()
	require.Eventually(t, func() bool {
		return temp.Phase() == PhaseLow
	}, 500*time.Millisecond, 5*time.Millisecond)
	assert.Equal(t, store.Get().Temperature.LowStep(), temp.Current())
}

func TestTemperatureForcedReversalIsFullSpeed(t *testing.T) {
	store := testStore(func(cfg *config.Config) {
		cfg.Temperature.Speed = config.Duration(2 * time.Second)
		cfg.Temperature.Tick = config.Duration(30 * time.Millisecond)
	})
	clock := newFakeClock(at(12, 0))
	temp, _, obs := startTemperature(t, store, clock, 0)

	clock.Set(at(22, 0))
	require.Eventually(t, func() bool { return temp.Current() >= 2 }, 2*time.Second, 5*time.Millisecond)

	clock.Set(at(12, 0))
	temp.Recheck()
	require.Eventually(t, func() bool {
		s := temp.Snapshot()
		return s.Phase == "INCREASING" && s.Animating && !s.Quick && s.Target == 0
	}, time.Second, 2*time.Millisecond)

	require.Eventually(t, func() bool {
		return temp.Phase() == PhaseHigh && temp.Current() == 0
	}, 3*time.Second, 10*time.Millisecond)
	assert.Contains(t, obs.Outcomes("temperature"), OutcomeSuperseded)
}

func TestTemperatureRecheckAfterWindowChange(t *testing.T) {
	store := testStore(nil)
	temp, _, _ := startTemperature(t, store, newFakeClock(at(12, 0)), 0)
	require.Eventually(t, func() bool { return temp.Phase() == PhaseHigh }, time.Second, 5*time.Millisecond)

	store.Update(func(cfg *config.Config) {
		cfg.Temperature.Start = "11:00"
		cfg.Temperature.End = "13:00"
	})
	temp.Recheck()

	require.Eventually(t, func() bool {
		return temp.Phase() == PhaseLow && temp.Current() == store.Get().Temperature.LowStep()
	}, time.Second, 5*time.Millisecond)
}

func TestTemperatureInvalidScheduleKeepsState(t *testing.T) {
	store := testStore(func(cfg *config.Config) {
		cfg.Temperature.Start = "not a time"
	})
	temp, sink, _ := startTemperature(t, store, newFakeClock(at(22, 0)), 0)

	temp.Recheck()
	assert.Never(t, func() bool { return len(sink.Calls()) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
	assert.Equal(t, PhaseHigh, temp.Phase())
}

func TestTemperatureManualStep(t *testing.T) {
	store := testStore(func(cfg *config.Config) {
		cfg.Temperature.Auto = false
	})
	temp, _, obs := startTemperature(t, store, newFakeClock(at(22, 0)), 0)

	require.True(t, temp.SetStep(40))
	require.Eventually(t, func() bool {
		s := temp.Snapshot()
		return s.Current == 40 && !s.Animating
	}, time.Second, 5*time.Millisecond)
	steps := obs.Temperature()
	assert.Equal(t, 40, steps[len(steps)-1])
	assert.Equal(t, "MANUAL", temp.Snapshot().Phase)
	assert.Equal(t, []string{"LOWERING", "MANUAL"}, obs.Phases())

	store.Update(func(cfg *config.Config) { cfg.Temperature.Auto = true })
	assert.False(t, temp.SetStep(10))
}

func TestTemperatureAutoDisabledMidTransition(t *testing.T) {
	store := testStore(func(cfg *config.Config) {
		cfg.Temperature.Speed = config.Duration(5 * time.Second)
		cfg.Temperature.Tick = config.Duration(30 * time.Millisecond)
	})
	clock := newFakeClock(at(12, 0))
	temp, _, obs := startTemperature(t, store, clock, 0)

	clock.Set(at(22, 0))
	require.Eventually(t, func() bool { return temp.Snapshot().Animating }, time.Second, 2*time.Millisecond)

	store.Update(func(cfg *config.Config) { cfg.Temperature.Auto = false })
	require.Eventually(t, func() bool { return !temp.Snapshot().Animating }, time.Second, 5*time.Millisecond)

	assert.Contains(t, obs.Outcomes("temperature"), OutcomeCancelled)
	assert.Less(t, temp.Current(), store.Get().Temperature.LowStep())
	assert.Equal(t, "MANUAL", temp.Snapshot().Phase)
}

func TestTemperatureRestingPhase(t *testing.T) {
	tests := []struct {
		name         string
		initial      int
		initialPhase string
		step         int
		want         string
	}{
		{name: "manual_off_bound", initial: 0, initialPhase: "HIGH", step: 40, want: "MANUAL"},
		{name: "manual_onto_low_bound", initial: 0, initialPhase: "HIGH", step: 69, want: "LOW"},
		{name: "manual_back_to_high_bound", initial: 40, initialPhase: "MANUAL", step: 0, want: "HIGH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := testStore(func(cfg *config.Config) {
				cfg.Temperature.Auto = false
			})
			temp, _, obs := startTemperature(t, store, newFakeClock(at(12, 0)), tt.initial)
			assert.Equal(t, tt.initialPhase, temp.Snapshot().Phase)

			require.True(t, temp.SetStep(tt.step))
			require.Eventually(t, func() bool {
				s := temp.Snapshot()
				return s.Current == tt.step && !s.Animating
			}, time.Second, 5*time.Millisecond)

			assert.Equal(t, tt.want, temp.Snapshot().Phase)
			phases := obs.Phases()
			require.NotEmpty(t, phases)
			assert.Equal(t, tt.want, phases[len(phases)-1])
		})
	}
}
