package main

import (
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"

	"github.com/dokzlo13/gammad/internal/app"
	"github.com/dokzlo13/gammad/internal/config"
)

func main() {
	configPath := flag.StringP("config", "c", "", "Path to configuration file (defaults are used when empty)")
	logLevel := flag.String("log-level", "", "Override the configured log level (debug, info, warn, error)")
	backend := flag.String("backend", "", "Override the display backend (x11, image, null)")
	resetState := flag.Bool("reset-state", false, "Forget the saved brightness and temperature steps on startup")
	flag.Parse()

	overrides := func(cfg *config.Config) {
		if *logLevel != "" {
			cfg.Log.Level = *logLevel
		}
		if *backend != "" {
			cfg.Display.Backend = *backend
		}
	}

	cfg := config.Default()
	if *configPath != "" {
		var err error
		cfg, err = config.Load(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("config", *configPath).Msg("Failed to load configuration")
		}
	}
	overrides(cfg)

	setupLogging(cfg.Log.GetLevel(), cfg.Log.JSON, cfg.Log.Colors)

	log.Info().Str("config", *configPath).Str("backend", cfg.Display.Backend).Msg("Starting gammad")

	store := config.NewStore(*configPath, cfg)
	store.SetOverride(overrides)

	application, err := app.New(store, app.Options{ResetState: *resetState})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create application")
	}

	ctx := app.SignalContext()

	if err := application.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("Failed to start application")
	}

	application.Wait()

	if err := application.Stop(); err != nil {
		log.Error().Err(err).Msg("Error during shutdown")
		os.Exit(1)
	}
}

func setupLogging(level string, useJSON bool, colors bool) {
	zerolog.TimeFieldFormat = time.RFC3339

	if useJSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: "2006-01-02T15:04:05.000Z07:00",
			NoColor:    !colors,
		})
	}

	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
