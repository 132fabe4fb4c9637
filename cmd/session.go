package cmd

import (
	"context"
	"fmt"

	"github.com/mj1618/gridcheck/internal/artifact"
	"github.com/mj1618/gridcheck/internal/config"
	"github.com/mj1618/gridcheck/internal/logging"
	"github.com/mj1618/gridcheck/internal/objrepo"
	"github.com/mj1618/gridcheck/internal/platform"
	"github.com/mj1618/gridcheck/internal/report"
	"github.com/mj1618/gridcheck/internal/steps"
	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
)

// session is one driver connection with the engine wired around it.
type session struct {
	cfg      *config.Config
	logger   arbor.ILogger
	provider *platform.Provider
	store    *artifact.Store
	recorder *report.Recorder
	engine   *steps.Engine
}

// loadConfig reads --config and applies the flag overrides.
func loadConfig() (*config.Config, error) {
	flags := rootCmd.PersistentFlags()
	path, _ := flags.GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}
	if level, _ := flags.GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if driver, _ := flags.GetString("driver"); driver != "" {
		cfg.Driver.Backend = driver
	}
	if doc, _ := flags.GetString("document"); doc != "" {
		cfg.Driver.Document = doc
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSession starts the configured backend and wires the engine.
func openSession(ctx context.Context, cfg *config.Config) (*session, error) {
	logger := logging.New(cfg.Logging)

	repo, err := objrepo.Load(cfg.Repository)
	if err != nil {
		return nil, err
	}
	store, err := artifact.New(cfg.Artifacts.Dir, cfg.Artifacts.MaxWidth, logger)
	if err != nil {
		return nil, err
	}

	provider, err := platform.NewProvider(ctx, cfg.Driver.Backend, platform.Options{
		Headless:      cfg.Driver.Headless,
		WindowWidth:   cfg.Driver.WindowWidth,
		WindowHeight:  cfg.Driver.WindowHeight,
		RemoteURL:     cfg.Driver.RemoteURL,
		Document:      cfg.Driver.Document,
		ActionTimeout: cfg.Timeouts.Action.Std(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start %s driver: %w", cfg.Driver.Backend, err)
	}

	recorder := report.New(provider.Screenshotter, store, logger)
	logger.Info().
		Str("driver", cfg.Driver.Backend).
		Str("run_id", store.RunID()).
		Str("artifacts", store.Dir()).
		Msg("Session started")

	return &session{
		cfg:      cfg,
		logger:   logger,
		provider: provider,
		store:    store,
		recorder: recorder,
		engine:   steps.New(provider, cfg, repo, recorder, logger),
	}, nil
}

func (s *session) Close() error {
	if s.provider.Close == nil {
		return nil
	}
	return s.provider.Close()
}

// withSession loads config, opens a session, runs fn and closes it.
func withSession(cmd *cobra.Command, fn func(*session) error) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openSession(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("Failed to close driver")
		}
	}()
	return fn(s)
}
