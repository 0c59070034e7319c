package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/db"
	"github.com/dokzlo13/gammad/internal/eventbus"
	"github.com/dokzlo13/gammad/internal/httpapi"
	"github.com/dokzlo13/gammad/internal/ledger"
	"github.com/dokzlo13/gammad/internal/notify"
	"github.com/dokzlo13/gammad/internal/storage"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	Config *config.Store

	// Core infrastructure
	DB     *db.DB
	Ledger *ledger.Ledger
	Steps  *storage.StepStore
	Bus    *eventbus.Bus

	Display   *DisplayService
	Control   *ControlService
	HTTP      *HTTPService
	MQTT      *MQTTService
	Retention *RetentionService

	watchDone chan struct{}
}

// NewServices creates all services with their dependencies.
func NewServices(cfgStore *config.Store, opts Options) (*Services, error) {
	cfg := cfgStore.Get()
	s := &Services{Config: cfgStore}

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	s.DB = database

	s.Ledger = ledger.New(database.DB)
	s.Steps = storage.NewStepStore(storage.NewStore(database.DB))
	if opts.ResetState {
		log.Info().Msg("Clearing saved steps (--reset-state)")
		if err := s.Steps.Reset(); err != nil {
			log.Warn().Err(err).Msg("Failed to clear saved steps")
		}
	}

	s.Bus = eventbus.NewWithQueueSize(cfg.EventBus.GetQueueSize())
	notify.NewRecorder(s.Ledger).Subscribe(s.Bus)

	s.Display, err = NewDisplayService(cfg.Display)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.Control, err = NewControlService(cfgStore, s.Display, s.Steps, s.Bus)
	if err != nil {
		s.Close()
		return nil, err
	}

	hub := httpapi.NewHub()
	hub.Subscribe(s.Bus)
	s.HTTP = NewHTTPService(cfg, httpapi.Deps{
		Config:      cfgStore,
		Brightness:  s.Control.Brightness,
		Temperature: s.Control.Temperature,
		Sampler:     s.Control.Sampler,
		History:     s.Ledger,
		Hub:         hub,
	})

	s.MQTT = NewMQTTService(cfg.MQTT, s.Bus, s.Control.Temperature.Recheck)
	s.Retention = NewRetentionService(cfg.Ledger, s.Ledger)

	return s, nil
}

// Start starts all services in dependency order.
func (s *Services) Start(ctx context.Context, onFatalError func(error)) error {
	cfg := s.Config.Get()

	s.watchDone = make(chan struct{})
	go func() {
		defer close(s.watchDone)
		if err := s.Config.Watch(ctx); err != nil {
			log.Warn().Err(err).Msg("Config live reload disabled")
		}
	}()

	s.Control.Start(ctx)
	s.HTTP.Start(ctx, cfg.ShutdownTimeout, onFatalError)
	s.MQTT.Start(ctx)
	s.Retention.Start(ctx)

	s.HTTP.SetReady(true)
	return nil
}

// Stop stops the control loops, which restores neutral gamma, and then the
// remaining services. The context passed to Start must be cancelled first.
func (s *Services) Stop() error {
	err := s.Control.Stop()

	s.HTTP.SetReady(false)
	s.HTTP.Stop()
	s.MQTT.Stop()
	s.Retention.Wait()
	if s.watchDone != nil {
		<-s.watchDone
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.Config.Get().GetShutdownTimeout())
	defer cancel()
	s.Bus.Close(ctx)

	s.Close()
	return err
}

// Close releases the display and the database.
func (s *Services) Close() {
	if s.Display != nil {
		s.Display.Close()
	}
	if s.DB != nil {
		s.DB.Close()
	}
}
