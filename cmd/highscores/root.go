package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/highscores/internal/config"
	"github.com/okian/highscores/pkg/logger"
)

// newRootCmd builds the command tree. Running the root command serves.
func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "highscores",
		Short:        "Persistent leaderboard of player highscores",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "",
		"YAML config file (overrides LEADERBOARD_CONFIG)")

	load := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, err := config.Load(cmd.Context(), configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		if err := setupLogging(cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	serve := newServeCmd(load)
	root.RunE = serve.RunE
	root.AddCommand(serve, newInitDBCmd(load), newLoadTestCmd(load))
	return root
}

func setupLogging(cfg *config.Config) error {
	if err := logger.Init(logger.WithFormat(cfg.LogFormat)); err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		logger.Get().Warn(context.Background(), "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	return nil
}

type configLoader func(cmd *cobra.Command) (*config.Config, error)
