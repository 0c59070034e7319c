package mqtt

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/display"
	"github.com/dokzlo13/gammad/internal/eventbus"
)

// StatusTopic is the retained availability topic.
func StatusTopic(prefix string) string {
	return topic(prefix, "status")
}

func topic(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/" + name
}

type stepPayload struct {
	Step   int  `json:"step"`
	Kelvin *int `json:"kelvin,omitempty"`
}

type phasePayload struct {
	Phase  string `json:"phase"`
	Quick  bool   `json:"quick"`
	Target int    `json:"target"`
}

// Publisher mirrors step and phase events to retained topics. Each topic is
// rate limited; while limited only the newest payload is kept and it is sent
// once the limiter allows.
type Publisher struct {
	client Client
	prefix string
	qos    byte
	limit  rate.Limit

	mu     sync.Mutex
	topics map[string]*topicState
	closed bool
}

type topicState struct {
	limiter *rate.Limiter
	pending []byte
	timer   *time.Timer
}

// NewPublisher creates a publisher for cfg.
func NewPublisher(client Client, cfg config.MQTTConfig) *Publisher {
	limit := rate.Limit(cfg.RateLimit)
	if cfg.RateLimit <= 0 {
		limit = rate.Inf
	}
	return &Publisher{
		client: client,
		prefix: cfg.TopicPrefix,
		qos:    cfg.QoS,
		limit:  limit,
		topics: make(map[string]*topicState),
	}
}

// Subscribe registers the publisher on bus.
func (p *Publisher) Subscribe(bus *eventbus.Bus) {
	bus.Subscribe("mqtt", p.Handle,
		eventbus.EventBrightnessStep, eventbus.EventTemperatureStep, eventbus.EventPhase)
}

// OnRecheck calls fn for every message on "<prefix>/schedule/recheck".
func (p *Publisher) OnRecheck(fn func()) error {
	return p.client.Subscribe(topic(p.prefix, "schedule/recheck"), p.qos, func(t string, _ []byte) {
		log.Info().Str("topic", t).Msg("Schedule recheck requested over MQTT")
		fn()
	})
}

// Handle publishes one bus event.
func (p *Publisher) Handle(event eventbus.Event) {
	var (
		name    string
		payload any
	)
	switch event.Type {
	case eventbus.EventBrightnessStep:
		name, payload = "brightness", stepPayload{Step: event.Step}
	case eventbus.EventTemperatureStep:
		kelvin := display.StepToKelvin(event.Step)
		name, payload = "temperature", stepPayload{Step: event.Step, Kelvin: &kelvin}
	case eventbus.EventPhase:
		phase, _ := event.Data["phase"].(string)
		quick, _ := event.Data["quick"].(bool)
		target, _ := event.Data["target"].(int)
		name, payload = "phase", phasePayload{Phase: phase, Quick: quick, Target: target}
	default:
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("event_type", string(event.Type)).Msg("Failed to marshal MQTT payload")
		return
	}
	p.enqueue(topic(p.prefix, name), data)
}

func (p *Publisher) enqueue(t string, data []byte) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	st, ok := p.topics[t]
	if !ok {
		st = &topicState{limiter: rate.NewLimiter(p.limit, 1)}
		p.topics[t] = st
	}
	st.pending = data
	if st.timer != nil {
		p.mu.Unlock()
		return
	}

	delay := st.limiter.Reserve().Delay()
	if delay > 0 {
		st.timer = time.AfterFunc(delay, func() { p.flush(t) })
		p.mu.Unlock()
		return
	}
	st.pending = nil
	p.mu.Unlock()

	p.publish(t, data)
}

func (p *Publisher) flush(t string) {
	p.mu.Lock()
	st := p.topics[t]
	data := st.pending
	st.pending, st.timer = nil, nil
	closed := p.closed
	p.mu.Unlock()

	if data != nil && !closed {
		p.publish(t, data)
	}
}

func (p *Publisher) publish(t string, data []byte) {
	if err := p.client.Publish(t, p.qos, true, data); err != nil {
		log.Warn().Err(err).Str("topic", t).Msg("Failed to publish MQTT message")
		return
	}
	log.Debug().Str("topic", t).RawJSON("payload", data).Msg("Published MQTT message")
}

// Close drops pending messages and stops timers.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	for _, st := range p.topics {
		if st.timer != nil {
			st.timer.Stop()
		}
	}
}
