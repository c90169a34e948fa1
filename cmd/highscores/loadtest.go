package main

import (
	"context"
	"runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/highscores/internal/loadtest"
)

// Default load test configuration constants.
const (
	defaultPlayers     = 500
	defaultDuplicates  = 2
	defaultUpdates     = 250
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultTestTimeout = 10 * time.Minute
)

func newLoadTestCmd(load configLoader) *cobra.Command {
	cfg := loadtest.Config{}
	var baseURL string

	cmd := &cobra.Command{
		Use:   "loadtest",
		Short: "Drive a running server with concurrent registrations and updates, then verify it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := load(cmd)
			if err != nil {
				return err
			}
			cfg.BaseURL = baseURL
			if cfg.BaseURL == "" {
				cfg.BaseURL = "http://" + sc.Addr()
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), defaultTestTimeout)
			defer cancel()
			_, err = loadtest.Run(ctx, cfg)
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&baseURL, "url", "", "Base URL of the service (default: the configured domain and port)")
	f.IntVar(&cfg.Players, "players", defaultPlayers, "Distinct usernames to register")
	f.IntVar(&cfg.Duplicates, "duplicates", defaultDuplicates, "Extra registration attempts per username")
	f.IntVar(&cfg.Updates, "updates", defaultUpdates, "Score updates to issue")
	f.IntVar(&cfg.Workers, "workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
	f.DurationVar(&cfg.Timeout, "timeout", defaultTimeout, "HTTP request timeout")
	f.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log every request outcome")
	return cmd
}
