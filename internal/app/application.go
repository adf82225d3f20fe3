package app

import (
	"log/slog"

	"transitdecode.org/hafas/internal/backends"
	"transitdecode.org/hafas/internal/metrics"
)

// Application holds the dependencies shared by the HTTP handlers, helpers
// and middleware.
type Application struct {
	Config   Config
	Logger   *slog.Logger
	Backends *backends.Registry
	Metrics  *metrics.Collector
}

// Config holds all the configuration settings for our Application.
// It is read from command-line flags with HAFAS_* environment fallbacks.
type Config struct {
	Port         int
	Env          string
	ApiKeys      []string
	RateLimit    int
	ProfilesPath string
	LogLevel     string
}

// New wires an Application from its configuration. Profiles come from
// ProfilesPath when set and from the built-in set otherwise.
func New(cfg Config, logger *slog.Logger) (*Application, error) {
	profiles := backends.Defaults()
	if cfg.ProfilesPath != "" {
		loaded, err := backends.LoadFile(cfg.ProfilesPath)
		if err != nil {
			return nil, err
		}
		profiles = loaded
	}

	registry, err := backends.NewRegistry(profiles, logger)
	if err != nil {
		return nil, err
	}

	return &Application{
		Config:   cfg,
		Logger:   logger,
		Backends: registry,
		Metrics:  metrics.NewCollector(len(profiles)),
	}, nil
}
