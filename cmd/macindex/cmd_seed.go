package main

import (
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/macrolab/macindex/internal/config"
	"github.com/macrolab/macindex/internal/persistence/postgres"
	"github.com/macrolab/macindex/internal/validate"
)

func newSeedCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the crisis event table into Postgres",
		Long: `Loads the labeled crisis events from the YAML table and upserts
them into the crisis_events table, creating the schema if needed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(rootFlags.configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.DSN == "" {
				return fmt.Errorf("seed requires a postgres dsn in the config")
			}

			events, err := validate.LoadEvents(cfg.Tables.Crises)
			if err != nil {
				return err
			}

			db, err := postgres.Connect(postgres.DefaultConfig(cfg.Postgres.DSN))
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.EnsureSchema(db); err != nil {
				return err
			}
			repo := postgres.NewCrisisRepo(db, 30*time.Second)
			if err := repo.Seed(cmd.Context(), events); err != nil {
				return err
			}

			log.Info().Int("events", len(events)).Msg("crisis table seeded")
			return nil
		},
	}
	return cmd
}
