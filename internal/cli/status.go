package cli

import (
	"fmt"
	"io"

	"trivia-duel/internal/app"
	"trivia-duel/internal/config"
	"trivia-duel/internal/domain"

	"github.com/spf13/cobra"
)

// NewStatusCmd prints the persisted game and settings documents.
func NewStatusCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saved game and token balance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			b, err := openBackends(ctx, cfg, newLogger(cfg))
			if err != nil {
				return err
			}
			defer b.Close()

			game := domain.NewGameSession()
			if _, err := b.store.Load(ctx, app.GameDocumentKey, &game); err != nil {
				return err
			}
			settings := domain.NewEconomyState()
			if _, err := b.store.Load(ctx, app.SettingsDocumentKey, &settings); err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), game, settings)
			return nil
		},
	}
}

func printStatus(w io.Writer, game domain.GameSession, settings domain.EconomyState) {
	fmt.Fprintf(w, "tokens: %d\n", settings.Tokens)
	fmt.Fprintf(w, "dark mode: %t\n", settings.DarkMode)
	fmt.Fprintf(w, "categories: %d/%d\n", len(game.SelectedCategories), domain.MaxCategories)
	fmt.Fprintf(w, "answered: %d\n", len(game.AnsweredQuestions))
	for _, t := range game.Teams {
		fmt.Fprintf(w, "team %s (%s): %d\n", t.ID, t.Name, t.Score)
	}
	if game.GameCompleted {
		fmt.Fprintln(w, "game completed")
	}
}
