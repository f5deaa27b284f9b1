package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/BeatAlign/pkg/beatalign"
	"github.com/himanishpuri/BeatAlign/pkg/beatalign/quantize"
	"github.com/himanishpuri/BeatAlign/pkg/config"
	"github.com/himanishpuri/BeatAlign/pkg/logger"
)

// app holds the global flags and the configuration they resolve to.
type app struct {
	configPath string
	envFile    string
	dbPath     string
	logLevel   string

	cfg config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "beatalign",
		Short: "Snap rhythm-game annotations to a musical beat grid",
		Long: `BeatAlign aligns hand-placed note annotations to a beat grid built from a
track's tempo, with straight, swing and triplet quantize modes.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load()
		},
		Run: func(cmd *cobra.Command, args []string) {
			printBanner()
			cmd.Help()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "Path to a YAML config file (default $BEATALIGN_CONFIG or beatalign.yaml)")
	pf.StringVar(&a.envFile, "env", ".env", "Path to a .env file")
	pf.StringVar(&a.dbPath, "db", "", "Path to the SQLite database file (overrides config)")
	pf.StringVar(&a.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")

	root.AddCommand(
		newModesCmd(),
		newGridCmd(),
		newAlignCmd(a),
		newProjectCmd(a),
		newAlignAllCmd(a),
	)
	return root
}

func (a *app) load() error {
	cfg, err := config.Load(a.configPath, a.envFile)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	if a.logLevel != "" {
		cfg.LogLevel = a.logLevel
	}
	lvl, ok := logger.ParseLevel(cfg.LogLevel)
	if !ok {
		return fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	logger.SetLevel(lvl)

	a.cfg = cfg
	logger.Debugf("Configuration loaded: db=%s", cfg.DBPath)
	return nil
}

func (a *app) defaults() (quantize.Options, error) {
	opts, err := a.cfg.Align.Options()
	if err != nil {
		return quantize.Options{}, fmt.Errorf("alignment defaults: %w", err)
	}
	return opts, nil
}

// newService creates a BeatAlign service with the configured options
func (a *app) newService(cmd *cobra.Command) (beatalign.Service, error) {
	defaults, err := a.defaults()
	if err != nil {
		return nil, err
	}

	fmt.Fprintln(cmd.ErrOrStderr(), "🔧 Initializing service...")
	svc, err := beatalign.NewService(
		beatalign.WithDBPath(a.cfg.DBPath),
		beatalign.WithCacheSize(a.cfg.CacheSize),
		beatalign.WithDefaults(defaults),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create service: %w", err)
	}
	return svc, nil
}

func newModesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "modes",
		Short: "List quantize modes and swing presets",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			printCatalogue(cmd.OutOrStdout(), quantize.Catalogue())
		},
	}
}
