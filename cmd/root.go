package cmd

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/signalnine/trialbook/internal/config"
	"github.com/signalnine/trialbook/internal/logging"
	"github.com/signalnine/trialbook/internal/store"
)

var (
	cfgFile      string
	flagLogLevel string
)

func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "trialbook",
		Short:        "Tabulate, rank and plot optimization experiments",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultPath, "config file path")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level, overrides the config file")
	root.AddCommand(newTableCmd())
	root.AddCommand(newBestCmd())
	root.AddCommand(newPlotsCmd())
	root.AddCommand(newSuffixesCmd())
	root.AddCommand(newGenrunCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newListCmd())
	root.AddCommand(newValidateCmd())
	return root
}

// env is what every subcommand needs after flag parsing.
type env struct {
	cfg *config.Config
	log *log.Logger
}

func setup(cmd *cobra.Command) (*env, error) {
	cfg, err := config.LoadOrDefault(cfgFile)
	if err != nil {
		return nil, err
	}
	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	logger, err := logging.New(level, cfg.Log.Format, cmd.ErrOrStderr())
	if err != nil {
		return nil, fmt.Errorf("configuring logger: %w", err)
	}
	return &env{cfg: cfg, log: logger}, nil
}

func (e *env) openStore(ctx context.Context) (store.Store, error) {
	s, err := store.New(e.cfg.Store.Backend, e.cfg.Store.Path)
	if err != nil {
		return nil, err
	}
	if err := s.Init(ctx); err != nil {
		return nil, fmt.Errorf("opening %s store: %w", e.cfg.Store.Backend, err)
	}
	return s, nil
}
