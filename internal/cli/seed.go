package cli

import (
	"errors"

	"trivia-duel/internal/app"
	"trivia-duel/internal/catalog"
	"trivia-duel/internal/config"

	"github.com/spf13/cobra"
)

// NewSeedCmd fills the relational ledger with the bundled catalog and coupons.
func NewSeedCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create ledger tables and load the bundled catalog",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			if cfg.Postgres.URL == "" {
				// seed targets the sql store even when state lives elsewhere
				cfg.State.Backend = config.BackendSQL
			}
			log := newLogger(cfg)
			ctx := cmd.Context()

			b, err := openBackends(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer b.Close()
			if b.ledger == nil {
				return errors.New("no relational store configured")
			}

			static, err := catalog.Default()
			if err != nil {
				return err
			}
			return app.SeedLedger(ctx, b.ledger, static, log)
		},
	}
}
