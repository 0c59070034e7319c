package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/gammad/internal/config"
	"github.com/dokzlo13/gammad/internal/control"
	"github.com/dokzlo13/gammad/internal/display"
	"github.com/dokzlo13/gammad/internal/eventbus"
	"github.com/dokzlo13/gammad/internal/notify"
	"github.com/dokzlo13/gammad/internal/policy"
	"github.com/dokzlo13/gammad/internal/storage"
)

// ControlService owns the controllers, the sampling loop and their
// supervisor.
type ControlService struct {
	cfg   *config.Store
	steps *storage.StepStore
	bus   *eventbus.Bus

	Writer      *control.Writer
	Brightness  *control.Brightness
	Temperature *control.Temperature
	Sampler     *control.Sampler
	Supervisor  *control.Supervisor

	lua *policy.Lua
}

// NewControlService builds the control loops, restoring persisted steps.
func NewControlService(cfg *config.Store, disp *DisplayService, steps *storage.StepStore, bus *eventbus.Bus) (*ControlService, error) {
	s := &ControlService{cfg: cfg, steps: steps, bus: bus}
	c := cfg.Get()

	var p policy.Policy = policy.Linear{}
	if c.Brightness.Script != "" {
		lua, err := policy.LoadLua(c.Brightness.Script)
		if err != nil {
			return nil, err
		}
		s.lua, p = lua, lua
	}

	brightness, temperature := s.initialSteps(c)
	obs := notify.NewBusObserver(bus)

	s.Writer = control.NewWriter(disp.Sink, brightness, temperature)
	s.Brightness = control.NewBrightness(cfg, s.Writer, obs, brightness)
	s.Temperature = control.NewTemperature(cfg, s.Writer, obs, temperature)
	s.Sampler = control.NewSampler(cfg, disp.Capturer, s.Brightness, p)

	s.Supervisor = control.NewSupervisor(s.Writer)
	s.Supervisor.Add("brightness", s.Brightness)
	s.Supervisor.Add("temperature", s.Temperature)
	s.Supervisor.Add("sampler", s.Sampler)

	cfg.OnChange(s.onConfigChange)

	return s, nil
}

// initialSteps picks the starting steps. Manual brightness wins when adaptive
// brightness is off; scheduled temperature starts neutral and lets the first
// evaluation move it quickly.
func (s *ControlService) initialSteps(c *config.Config) (brightness, temperature int) {
	brightness, temperature = display.MaxBrightnessStep, c.Temperature.HighStep()

	saved, ok, err := s.steps.Load()
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load saved steps, using defaults")
	} else if ok {
		brightness, temperature = saved.Brightness, saved.Temperature
		log.Info().
			Int("brightness", saved.Brightness).
			Int("temperature", saved.Temperature).
			Time("saved_at", saved.SavedAt).
			Msg("Restored saved steps")
	}

	if !c.Brightness.Auto {
		brightness = c.Brightness.Manual
	}
	if c.Temperature.Auto {
		temperature = c.Temperature.HighStep()
	}
	return brightness, temperature
}

// Start applies the initial steps and launches the loops.
func (s *ControlService) Start(ctx context.Context) {
	if err := s.Writer.Apply(); err != nil {
		log.Warn().Err(err).Msg("Failed to apply initial gamma")
	}
	s.Supervisor.Start(ctx)
}

// Stop joins the loops, restores neutral gamma and saves the last steps.
func (s *ControlService) Stop() error {
	err := s.Supervisor.Stop()

	brightness, temperature := s.Brightness.Current(), s.Temperature.Current()
	if saveErr := s.steps.Save(brightness, temperature); saveErr != nil {
		log.Warn().Err(saveErr).Msg("Failed to save steps")
	} else {
		log.Info().Int("brightness", brightness).Int("temperature", temperature).Msg("Steps saved")
	}

	if s.lua != nil {
		s.lua.Close()
	}
	return err
}

func (s *ControlService) onConfigChange(old, next *config.Config) {
	if old.Temperature != next.Temperature {
		log.Debug().Msg("Temperature settings changed, rechecking schedule")
		s.Temperature.Recheck()
	}

	ob, nb := old.Brightness, next.Brightness
	if ob.Auto != nb.Auto {
		log.Info().Bool("auto", nb.Auto).Msg("Adaptive brightness toggled")
		s.Sampler.Wake()
	}
	if !nb.Auto && (ob.Auto || ob.Manual != nb.Manual) {
		s.Brightness.SetTarget(nb.Manual)
	}

	s.bus.Publish(eventbus.Event{
		Type: eventbus.EventConfigReloaded,
		Data: map[string]any{
			"auto_brightness":  nb.Auto,
			"auto_temperature": next.Temperature.Auto,
		},
	})
}
