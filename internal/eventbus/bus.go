package eventbus

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// EventType represents the type of event
type EventType string

const (
	EventBrightnessStep  EventType = "brightness_step"
	EventTemperatureStep EventType = "temperature_step"
	EventTransition      EventType = "transition"
	EventPhase           EventType = "phase"
	EventConfigReloaded  EventType = "config_reloaded"
)

// DefaultQueueSize is the per-subscriber queue length.
const DefaultQueueSize = 256

// Event represents an event in the system
type Event struct {
	Type EventType      `json:"type"`
	Time time.Time      `json:"time"`
	Step int            `json:"step"`
	Data map[string]any `json:"data,omitempty"`
}

// Handler is a function that handles events
type Handler func(Event)

// subscription delivers events to one handler in publish order.
type subscription struct {
	types   map[EventType]struct{} // empty means all
	handler Handler
	queue   chan Event
	name    string
}

func (s *subscription) wants(t EventType) bool {
	if len(s.types) == 0 {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Bus fans events out to subscribers. Every subscriber has its own goroutine
// and bounded queue, so a slow subscriber drops its own events without
// delaying publishers or other subscribers.
type Bus struct {
	mu        sync.RWMutex
	subs      []*subscription
	queueSize int
	wg        sync.WaitGroup

	// Shutdown signaling - closing this channel signals publishers to stop
	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a new event bus with default settings
func New() *Bus {
	return NewWithQueueSize(DefaultQueueSize)
}

// NewWithQueueSize creates a bus with a custom per-subscriber queue size
func NewWithQueueSize(queueSize int) *Bus {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus{
		queueSize: queueSize,
		closing:   make(chan struct{}),
	}
}

// Subscribe registers a named handler for the given event types, or for all
// events when none are given.
func (b *Bus) Subscribe(name string, handler Handler, types ...EventType) {
	sub := &subscription{
		types:   make(map[EventType]struct{}, len(types)),
		handler: handler,
		queue:   make(chan Event, b.queueSize),
		name:    name,
	}
	for _, t := range types {
		sub.types[t] = struct{}{}
	}

	b.mu.Lock()
	select {
	case <-b.closing:
		b.mu.Unlock()
		return
	default:
	}
	b.subs = append(b.subs, sub)
	b.wg.Add(1)
	b.mu.Unlock()

	go b.deliver(sub)

	log.Debug().Str("subscriber", name).Int("queue_size", b.queueSize).Msg("Event subscriber registered")
}

func (b *Bus) deliver(sub *subscription) {
	defer b.wg.Done()

	for event := range sub.queue {
		func() {
			defer func() {
				if r := recover(); r != nil {
					log.Error().
						Interface("panic", r).
						Str("event_type", string(event.Type)).
						Str("subscriber", sub.name).
						Msg("Event handler panicked")
				}
			}()
			sub.handler(event)
		}()
	}
}

// Publish sends an event to all interested subscribers.
// Non-blocking: if a subscriber queue is full or the bus is closing, the
// event is dropped for that subscriber.
func (b *Bus) Publish(event Event) {
	if event.Time.IsZero() {
		event.Time = time.Now()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	select {
	case <-b.closing:
		return
	default:
	}

	for _, sub := range b.subs {
		if !sub.wants(event.Type) {
			continue
		}
		select {
		case sub.queue <- event:
		default:
			log.Warn().
				Str("event_type", string(event.Type)).
				Str("subscriber", sub.name).
				Msg("Subscriber queue full, dropping event")
		}
	}
}

// Close stops accepting events and waits for subscribers to drain their queues.
func (b *Bus) Close(ctx context.Context) {
	b.closeOnce.Do(func() {
		b.mu.Lock()
		close(b.closing)
		for _, sub := range b.subs {
			close(sub.queue)
		}
		b.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Debug().Msg("Event bus subscribers stopped gracefully")
	case <-ctx.Done():
		log.Warn().Msg("Event bus shutdown timed out, some events may be lost")
	}
}
