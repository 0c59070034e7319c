// Package notify connects the control loops to the event bus and records
// bus traffic in the transition ledger.
package notify

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/control"
	"github.com/dokzlo13/gammad/internal/eventbus"
	"github.com/dokzlo13/gammad/internal/ledger"
)

// BusObserver publishes controller activity to a bus. It never blocks the
// controllers: Publish drops events for subscribers that fall behind.
type BusObserver struct {
	bus *eventbus.Bus
}

// NewBusObserver creates an observer publishing to bus.
func NewBusObserver(bus *eventbus.Bus) *BusObserver {
	return &BusObserver{bus: bus}
}

// OnBrightnessStep implements control.Observer.
func (o *BusObserver) OnBrightnessStep(step int) {
	o.bus.Publish(eventbus.Event{Type: eventbus.EventBrightnessStep, Step: step})
}

// OnTemperatureStep implements control.Observer.
func (o *BusObserver) OnTemperatureStep(step int) {
	o.bus.Publish(eventbus.Event{Type: eventbus.EventTemperatureStep, Step: step})
}

// OnTransition implements control.TransitionObserver.
func (o *BusObserver) OnTransition(t control.Transition) {
	data := map[string]any{
		"job_id":      t.ID.String(),
		"controller":  t.Controller,
		"outcome":     string(t.Outcome),
		"start":       t.Start,
		"end":         t.End,
		"duration_ms": t.Duration.Milliseconds(),
	}
	if t.Phase != "" {
		data["phase"] = t.Phase
		data["quick"] = t.Quick
	}
	o.bus.Publish(eventbus.Event{Type: eventbus.EventTransition, Step: t.Value, Data: data})
}

// OnPhase implements control.PhaseObserver.
func (o *BusObserver) OnPhase(c control.PhaseChange) {
	o.bus.Publish(eventbus.Event{
		Type: eventbus.EventPhase,
		Step: c.Step,
		Data: map[string]any{
			"phase":  c.To.String(),
			"from":   c.From.String(),
			"quick":  c.Quick,
			"target": c.Target,
		},
	})
}

// Recorder appends transition and phase events to the ledger.
type Recorder struct {
	ledger *ledger.Ledger
}

// NewRecorder creates a recorder writing to l.
func NewRecorder(l *ledger.Ledger) *Recorder {
	return &Recorder{ledger: l}
}

// Subscribe registers the recorder on bus.
func (r *Recorder) Subscribe(bus *eventbus.Bus) {
	bus.Subscribe("ledger", r.Handle, eventbus.EventTransition, eventbus.EventPhase)
}

// Handle records one event. Other event types are ignored.
func (r *Recorder) Handle(event eventbus.Event) {
	entry, ok := entryFor(event)
	if !ok {
		return
	}
	if err := r.ledger.Append(entry); err != nil {
		log.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to record event")
	}
}

func entryFor(event eventbus.Event) (ledger.Entry, bool) {
	entry := ledger.Entry{Timestamp: event.Time, Value: event.Step}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	switch event.Type {
	case eventbus.EventTransition:
		outcome, _ := event.Data["outcome"].(string)
		entry.EventType = ledger.EventType(outcome)
		entry.Controller, _ = event.Data["controller"].(string)
		entry.JobID, _ = event.Data["job_id"].(string)
		entry.Start, _ = event.Data["start"].(int)
		entry.End, _ = event.Data["end"].(int)
		if phase, ok := event.Data["phase"].(string); ok {
			entry.Payload = map[string]any{"phase": phase, "quick": event.Data["quick"]}
		}
	case eventbus.EventPhase:
		entry.EventType = ledger.EventPhase
		entry.Controller = "temperature"
		entry.End, _ = event.Data["target"].(int)
		entry.Payload = map[string]any{"phase": event.Data["phase"], "from": event.Data["from"], "quick": event.Data["quick"]}
	default:
		return entry, false
	}
	return entry, true
}
