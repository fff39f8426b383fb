package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/Lumos-Labs-HQ/flashseed/internal/config"
	"github.com/Lumos-Labs-HQ/flashseed/internal/database"
	"github.com/Lumos-Labs-HQ/flashseed/internal/populator"
)

type session struct {
	cfg     *config.Config
	adapter database.DatabaseAdapter
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// openSession loads the config and connects to the configured database, or
// to the saved connection named by --connection.
func openSession(ctx context.Context) (*session, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	dbURL, err := cfg.GetDatabaseURL(connection)
	if err != nil {
		return nil, err
	}

	adapter, err := database.NewAdapter(providerFor(cfg.Database.Provider, dbURL))
	if err != nil {
		return nil, err
	}
	if err := adapter.Connect(ctx, dbURL); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := adapter.Ping(ctx); err != nil {
		adapter.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return &session{cfg: cfg, adapter: adapter}, nil
}

func (s *session) Close() error {
	return s.adapter.Close()
}

func (s *session) options() populator.Options {
	d := s.cfg.Defaults
	return populator.Options{
		NullProbability:   d.NullProbability,
		Seed:              d.Seed,
		SampleLimit:       d.SampleLimit,
		MaxUniqueAttempts: d.MaxUniqueAttempts,
		StrictCycles:      d.StrictCycles,
	}
}

// providerFor lets a saved connection's URL scheme override the configured
// provider, so one config can reach databases of different kinds.
func providerFor(configured, url string) string {
	switch {
	case strings.HasPrefix(url, "postgres://"), strings.HasPrefix(url, "postgresql://"):
		return "postgresql"
	case strings.HasPrefix(url, "mysql://"):
		return "mysql"
	case strings.HasPrefix(url, "sqlite://"), strings.HasPrefix(url, "file:"):
		return "sqlite"
	default:
		return configured
	}
}

// signalContext is cancelled on Ctrl-C so a running population stops between
// batches and still reports what it committed.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
