package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/eventbus"
	"github.com/dokzlo13/gammad/internal/mqtt"
)

// MQTTService mirrors steps to an MQTT broker when enabled.
type MQTTService struct {
	cfg       config.MQTTConfig
	client    *mqtt.PahoClient
	publisher *mqtt.Publisher
	onRecheck func()
}

// NewMQTTService creates the service and subscribes it to bus.
func NewMQTTService(cfg config.MQTTConfig, bus *eventbus.Bus, onRecheck func()) *MQTTService {
	s := &MQTTService{cfg: cfg, onRecheck: onRecheck}
	if !cfg.Enabled {
		return s
	}

	s.client = mqtt.NewPahoClient(cfg)
	s.publisher = mqtt.NewPublisher(s.client, cfg)
	s.publisher.Subscribe(bus)
	return s
}

// Start connects in the background. Messages published before the connection
// is up are dropped; the retained topics catch up with the next step.
func (s *MQTTService) Start(ctx context.Context) {
	if s.client == nil {
		return
	}

	go func() {
		connectCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout.Duration())
		defer cancel()

		if err := s.client.Connect(connectCtx); err != nil {
			log.Warn().Err(err).Str("broker", s.cfg.Broker).Msg("MQTT broker unavailable, retrying in background")
			return
		}
		if err := s.publisher.OnRecheck(s.onRecheck); err != nil {
			log.Warn().Err(err).Msg("Failed to subscribe to MQTT recheck topic")
		}
	}()
}

// Stop drops pending messages and disconnects.
func (s *MQTTService) Stop() {
	if s.client == nil {
		return
	}
	s.publisher.Close()
	s.client.Disconnect()
}
