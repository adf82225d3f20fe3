package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"transitdecode.org/hafas/internal/app"
	"transitdecode.org/hafas/internal/logging"
	"transitdecode.org/hafas/internal/restapi"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	cfg, err := loadConfig(os.Args[1:], os.Getenv, os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	logger := logging.NewStructuredLogger(os.Stdout, level)

	if err := run(cfg, logger); err != nil {
		logging.LogError(logger, "server stopped", err)
		os.Exit(1)
	}
}

// loadConfig reads flags, falling back to HAFAS_* environment variables and
// then to built-in defaults.
func loadConfig(args []string, getenv func(string) string, output io.Writer) (app.Config, error) {
	var cfg app.Config
	var apiKeys string

	port, err := envInt(getenv, "HAFAS_PORT", 4000)
	if err != nil {
		return cfg, err
	}
	rateLimit, err := envInt(getenv, "HAFAS_RATE_LIMIT", 100)
	if err != nil {
		return cfg, err
	}

	fs := flag.NewFlagSet("api", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.IntVar(&cfg.Port, "port", port, "API server port")
	fs.StringVar(&cfg.Env, "env", envString(getenv, "HAFAS_ENV", "development"), "Environment (development|staging|production)")
	fs.StringVar(&apiKeys, "api-keys", envString(getenv, "HAFAS_API_KEYS", "test"), "Comma Separated API Keys (test, etc)")
	fs.IntVar(&cfg.RateLimit, "rate-limit", rateLimit, "Requests per second and API key (0 blocks all, negative disables)")
	fs.StringVar(&cfg.ProfilesPath, "profiles", getenv("HAFAS_PROFILES"), "YAML file with backend profiles (built-in set when empty)")
	fs.StringVar(&cfg.LogLevel, "log-level", envString(getenv, "HAFAS_LOG_LEVEL", "info"), "Log level (debug|info|warn|error)")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	for _, key := range strings.Split(apiKeys, ",") {
		if key = strings.TrimSpace(key); key != "" {
			cfg.ApiKeys = append(cfg.ApiKeys, key)
		}
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return cfg, fmt.Errorf("invalid port %d", cfg.Port)
	}
	return cfg, nil
}

func envString(getenv func(string) string, key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(getenv func(string) string, key string, def int) (int, error) {
	v := getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, v, err)
	}
	return n, nil
}

func run(cfg app.Config, logger *slog.Logger) error {
	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}

	api := restapi.NewRestAPI(application)
	defer api.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Routes(),
		IdleTimeout:       time.Minute,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelError),
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logging.LogOperation(logger, "starting_server",
			slog.String("addr", srv.Addr),
			slog.String("env", cfg.Env),
			slog.Int("backends", len(application.Backends.Profiles())))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logging.LogOperation(logger, "shutting_down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
