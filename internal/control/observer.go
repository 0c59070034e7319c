package control

import (
	"time"

	"github.com/google/uuid"
)

// Observer receives every step change. Implementations must not block.
type Observer interface {
	OnBrightnessStep(step int)
	OnTemperatureStep(step int)
}

// Outcome describes how a transition ended.
type Outcome string

const (
	OutcomeStarted    Outcome = "started"
	OutcomeCompleted  Outcome = "completed"
	OutcomeSuperseded Outcome = "superseded"
	OutcomeCancelled  Outcome = "cancelled"
)

// Transition describes an animation job for observers that record history.
type Transition struct {
	ID         uuid.UUID
	Controller string
	Outcome    Outcome
	Start      int
	End        int
	Value      int
	Duration   time.Duration
	Quick      bool
	Phase      string
}

// TransitionObserver is optionally implemented by observers interested in
// animation lifecycles.
type TransitionObserver interface {
	OnTransition(t Transition)
}

// PhaseChange describes a move of the temperature state machine.
type PhaseChange struct {
	From   Phase
	To     Phase
	Quick  bool
	Target int
	Step   int
}

// PhaseObserver is optionally implemented by observers interested in
// temperature phase changes, including settling on HIGH or LOW.
type PhaseObserver interface {
	OnPhase(c PhaseChange)
}

// NopObserver ignores everything.
type NopObserver struct{}

func (NopObserver) OnBrightnessStep(int)  {}
func (NopObserver) OnTemperatureStep(int) {}

func notifyTransition(obs Observer, t Transition) {
	if to, ok := obs.(TransitionObserver); ok {
		to.OnTransition(t)
	}
}

func newTransition(controller string, job *Job, outcome Outcome, value int) Transition {
	return Transition{
		ID:         job.ID,
		Controller: controller,
		Outcome:    outcome,
		Start:      job.Start,
		End:        job.End,
		Value:      value,
		Duration:   job.Duration,
	}
}
