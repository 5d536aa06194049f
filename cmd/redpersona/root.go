package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/redpersona/internal/config"
	"github.com/kalambet/redpersona/internal/gateway"
	"github.com/kalambet/redpersona/internal/report"
	"github.com/kalambet/redpersona/internal/storage"
	"github.com/kalambet/redpersona/internal/workflow"
)

var (
	noColor      bool
	baseURLFlag  string
	logLevelFlag string
)

// Swapped by tests.
var (
	loadConfig = config.Load
	now        = time.Now
	closeGrace = 5 * time.Second
)

var rootCmd = &cobra.Command{
	Use:   "redpersona",
	Short: "Build personas from Reddit user profiles",
	Long: `redpersona submits Reddit user profiles to a persona analysis service,
shows the resulting personas and saves their text reports.

Examples:
  redpersona analyze https://www.reddit.com/user/kojied/
  redpersona list
  redpersona export 3f6c9a1e-...
  redpersona ui`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if os.Getenv("NO_COLOR") != "" {
			noColor = true
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&noColor, "no-color", false, "disable colored output")
	pf.StringVar(&baseURLFlag, "base-url", "", "analysis service address (overrides api.base_url)")
	pf.StringVar(&logLevelFlag, "log-level", "", "log level: debug or info (overrides log.level)")

	rootCmd.AddCommand(analyzeCmd, listCmd, showCmd, exportCmd, exportsCmd)
	rootCmd.AddCommand(statusCmd, uiCmd, mcpCmd, stubCmd, configCmd)
}

// effectiveConfig loads the configuration and applies the persistent flags.
func effectiveConfig() (config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return config.Config{}, err
	}
	if baseURLFlag != "" {
		cfg.API.BaseURL = strings.TrimRight(baseURLFlag, "/")
	}
	if logLevelFlag != "" {
		cfg.Log.Level = logLevelFlag
	}
	return cfg, nil
}

func setupLogger(level string) *slog.Logger {
	logLevel := slog.LevelInfo
	if level == "debug" {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return logger
}

// session is one command's wiring: the gateway, the export ledger, the report
// saver and the controller driving them.
type session struct {
	ctx    context.Context
	cfg    config.Config
	logger *slog.Logger
	client *gateway.Client
	store  *storage.Store
	saver  *report.Saver
	ctrl   *workflow.Controller
}

func openSession(ctx context.Context) (*session, error) {
	cfg, err := effectiveConfig()
	if err != nil {
		return nil, err
	}
	logger := setupLogger(cfg.Log.Level)

	store, err := storage.Open(cfg.Storage.DataDir)
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	client := gateway.New(cfg.API.BaseURL).WithToken(cfg.API.Token)
	saver := report.NewSaver(cfg.Export.Dir, store)
	ctrl := workflow.New(client, saver)
	ctrl.SetLogger(logger)

	logger.Debug("session opened", "base_url", client.BaseURL(), "data_dir", cfg.Storage.DataDir)
	return &session{
		ctx:    ctx,
		cfg:    cfg,
		logger: logger,
		client: client,
		store:  store,
		saver:  saver,
		ctrl:   ctrl,
	}, nil
}

// Close gives background tasks up to closeGrace to finish, or no time at all once
// the session context is done, then closes the ledger.
func (s *session) Close() {
	ctx, cancel := context.WithTimeout(s.ctx, closeGrace)
	defer cancel()
	if err := s.ctrl.WaitContext(ctx); err != nil {
		s.logger.Warn("leaving background tasks unfinished", "error", err)
	}
	if err := s.store.Close(); err != nil {
		s.logger.Warn("closing storage", "error", err)
	}
}
