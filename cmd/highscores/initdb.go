package main

import (
	"github.com/spf13/cobra"

	"github.com/okian/highscores/internal/adapters/repository"
	service "github.com/okian/highscores/internal/app"
	"github.com/okian/highscores/pkg/logger"
)

func newInitDBCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "initdb",
		Short: "Create the leaderboard schema and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}
			if err := service.InitStore(cmd.Context(), cfg.DBPath,
				repository.WithBusyTimeout(cfg.DBBusyTimeout()),
				repository.WithJournalMode(cfg.DBJournalMode),
			); err != nil {
				return err
			}
			logger.Get().Info(cmd.Context(), "leaderboard schema ready", logger.String("dbPath", cfg.DBPath))
			return nil
		},
	}
}
