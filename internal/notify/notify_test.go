package notify

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokzlo13/gammad/internal/control"
	"github.com/dokzlo13/gammad/internal/db"
	"github.com/dokzlo13/gammad/internal/eventbus"
	"github.com/dokzlo13/gammad/internal/ledger"
)

type collector struct {
	mu     sync.Mutex
	events []eventbus.Event
}

func (c *collector) handle(e eventbus.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *collector) types() []eventbus.EventType {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []eventbus.EventType
	for _, e := range c.events {
		out = append(out, e.Type)
	}
	return out
}

func TestBusObserverPublishes(t *testing.T) {
	bus := eventbus.New()
	c := &collector{}
	bus.Subscribe("test", c.handle)

	obs := NewBusObserver(bus)
	obs.OnBrightnessStep(70)
	obs.OnTemperatureStep(12)
	obs.OnTransition(control.Transition{
		ID:         uuid.New(),
		Controller: "temperature",
		Outcome:    control.OutcomeStarted,
		Start:      0,
		End:        69,
		Phase:      "LOWERING",
		Quick:      true,
	})
	obs.OnPhase(control.PhaseChange{From: control.PhaseHigh, To: control.PhaseLowering, Quick: true, Target: 69})
	obs.OnPhase(control.PhaseChange{From: control.PhaseLowering, To: control.PhaseLow, Target: 69, Step: 69})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	bus.Close(ctx)

	assert.Equal(t, []eventbus.EventType{
		eventbus.EventBrightnessStep,
		eventbus.EventTemperatureStep,
		eventbus.EventTransition,
		eventbus.EventPhase,
		eventbus.EventPhase,
	}, c.types())
	assert.Equal(t, 70, c.events[0].Step)
	assert.Equal(t, "LOWERING", c.events[3].Data["phase"])
	assert.Equal(t, true, c.events[3].Data["quick"])
	assert.Equal(t, "LOW", c.events[4].Data["phase"])
	assert.Equal(t, "LOWERING", c.events[4].Data["from"])
	assert.Equal(t, 69, c.events[4].Step)
}

func TestRecorderWritesLedger(t *testing.T) {
	database, err := db.Open(":memory:")
	require.NoError(t, err)
	defer database.Close()
	l := ledger.New(database.DB)

	bus := eventbus.New()
	NewRecorder(l).Subscribe(bus)
	obs := NewBusObserver(bus)

	id := uuid.New()
	obs.OnBrightnessStep(90)
	obs.OnTransition(control.Transition{ID: id, Controller: "brightness", Outcome: control.OutcomeStarted, Start: 100, End: 70, Value: 100})
	obs.OnTransition(control.Transition{ID: id, Controller: "brightness", Outcome: control.OutcomeSuperseded, Start: 100, End: 70, Value: 85})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	bus.Close(ctx)

	entries, err := l.Job(id.String())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, ledger.EventStarted, entries[0].EventType)
	assert.Equal(t, ledger.EventSuperseded, entries[1].EventType)
	assert.Equal(t, 85, entries[1].Value)
	assert.Equal(t, 100, entries[1].Start)
	assert.Equal(t, 70, entries[1].End)
	assert.Equal(t, "brightness", entries[1].Controller)
}

func TestEntryForIgnoresSteps(t *testing.T) {
	_, ok := entryFor(eventbus.Event{Type: eventbus.EventBrightnessStep, Step: 3})
	assert.False(t, ok)
}
