package cli

import (
	"context"
	"os/signal"
	"syscall"

	"trivia-duel/internal/config"
	transport "trivia-duel/internal/transport/http"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

// NewServeCmd builds the subcommand that runs the local bridge.
func NewServeCmd(configPath, addrFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the local game bridge",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *addrFlag)
		},
	}
}

func runServer(ctx context.Context, configPath, addrFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addrFlag != "" {
		cfg.Server.Addr = addrFlag
	}
	log := newLogger(cfg)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eng, err := buildEngine(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer eng.Close()

	ws := transport.NewWSHandler(eng.game, eng.economy, log)
	router := transport.NewRouter(log, ws, eng.registry, eng.backends.checkers)
	server := transport.NewServer(cfg.Server.Addr, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down server")
		return server.Shutdown(context.Background())
	})
	return g.Wait()
}
