package control

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dokzlo13/gammad/internal/config"
)

type applied struct {
	brightness  int
	temperature int
}

type fakeSink struct {
	mu    sync.Mutex
	calls []applied
}

func (s *fakeSink) Apply(brightness, temperature int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, applied{brightness, temperature})
	return nil
}

func (s *fakeSink) Calls() []applied {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]applied(nil), s.calls...)
}

func (s *fakeSink) Count(a applied) int {
	n := 0
	for _, c := range s.Calls() {
		if c == a {
			n++
		}
	}
	return n
}

type fakeObserver struct {
	mu          sync.Mutex
	brightness  []int
	temperature []int
	transitions []Transition
	marks       []int // len(brightness) when each transition was seen
	phases      []string
}

func (o *fakeObserver) OnBrightnessStep(step int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.brightness = append(o.brightness, step)
}

func (o *fakeObserver) OnTemperatureStep(step int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.temperature = append(o.temperature, step)
}

func (o *fakeObserver) OnTransition(t Transition) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.transitions = append(o.transitions, t)
	o.marks = append(o.marks, len(o.brightness))
}

func (o *fakeObserver) OnPhase(c PhaseChange) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phases = append(o.phases, c.To.String())
}

func (o *fakeObserver) Phases() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.phases...)
}

// Transitions returns the transitions seen so far with the number of
// brightness steps observed before each one.
func (o *fakeObserver) Transitions() ([]Transition, []int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]Transition(nil), o.transitions...), append([]int(nil), o.marks...)
}

func (o *fakeObserver) Brightness() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.brightness...)
}

func (o *fakeObserver) Temperature() []int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]int(nil), o.temperature...)
}

func (o *fakeObserver) Outcomes(controller string) []Outcome {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []Outcome
	for _, t := range o.transitions {
		if t.Controller == controller {
			out = append(out, t.Outcome)
		}
	}
	return out
}

// testStore returns a store with fast animations.
func testStore(modify func(cfg *config.Config)) *config.Store {
	cfg := config.Default()
	cfg.Brightness.Speed = config.Duration(200 * time.Millisecond)
	cfg.Brightness.FPS = 100
	cfg.Brightness.PollingInterval = config.Duration(5 * time.Millisecond)
	cfg.Temperature.Speed = config.Duration(200 * time.Millisecond)
	cfg.Temperature.QuickSpeed = config.Duration(50 * time.Millisecond)
	cfg.Temperature.FPS = 100
	cfg.Temperature.Timezone = "UTC"
	if modify != nil {
		modify(cfg)
	}
	cfg.Normalize()
	return config.NewStore("", cfg)
}

type fakeClock struct {
	now atomic.Value
}

func newFakeClock(t time.Time) *fakeClock {
	c := &fakeClock{}
	c.now.Store(t)
	return c
}

func (c *fakeClock) Now() time.Time  { return c.now.Load().(time.Time) }
func (c *fakeClock) Set(t time.Time) { c.now.Store(t) }

func at(hour, minute int) time.Time {
	return time.Date(2024, 3, 1, hour, minute, 0, 0, time.UTC)
}

// isMonotonic reports whether steps never change direction.
func isMonotonic(steps []int) bool {
	if len(steps) < 2 {
		return true
	}
	up := steps[len(steps)-1] >= steps[0]
	for i := 1; i < len(steps); i++ {
		if up && steps[i] < steps[i-1] || !up && steps[i] > steps[i-1] {
			return false
		}
	}
	return true
}
