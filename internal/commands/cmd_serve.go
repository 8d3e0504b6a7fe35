package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskdeck/internal/core/config"
	"github.com/colonyops/taskdeck/internal/deck"
	"github.com/colonyops/taskdeck/internal/profiler"
	"github.com/colonyops/taskdeck/internal/server"
)

// shutdownTimeout bounds graceful HTTP shutdown on exit.
const shutdownTimeout = 5 * time.Second

type ServeCmd struct {
	flags *Flags

	// flags
	port        int
	publicDir   string
	profilePort int
}

// NewServeCmd creates a new serve command.
func NewServeCmd(flags *Flags) *ServeCmd {
	return &ServeCmd{flags: flags}
}

// Register adds the serve command to the application.
func (cmd *ServeCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "serve",
		Usage:     "Run the monitoring daemon",
		UsageText: "taskdeck serve [--port PORT] [--public DIR]",
		Description: `Watches the workspace data directory, rebuilds state from disk, and
serves the JSON API, the WebSocket stream, and the static dashboard.`,
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:        "port",
				Usage:       "HTTP port (overrides config)",
				Destination: &cmd.port,
			},
			&cli.StringFlag{
				Name:        "public",
				Usage:       "static dashboard directory (overrides config)",
				Destination: &cmd.publicDir,
			},
			&cli.IntFlag{
				Name:        "profile-port",
				Usage:       "enable pprof on this port",
				Destination: &cmd.profilePort,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *ServeCmd) run(ctx context.Context, c *cli.Command) error {
	cfg, err := config.Load(cmd.flags.ConfigPath, cmd.flags.DataDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd.port != 0 {
		cfg.HTTP.Port = cmd.port
	}
	if cmd.publicDir != "" {
		cfg.HTTP.PublicDir = cmd.publicDir
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cmd.profilePort > 0 {
		prof := profiler.New(cmd.profilePort)
		if err := prof.Start(ctx); err != nil {
			return fmt.Errorf("start profiler: %w", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = prof.Shutdown(shutdownCtx)
		}()
	}

	svc, err := deck.NewService(cfg, log.Logger)
	if err != nil {
		return fmt.Errorf("create service: %w", err)
	}

	svc.LoadInitial()

	hub := server.NewHub(log.Logger)
	svc.SetBroadcaster(hub)

	srv := server.New(svc, hub, cfg.HTTP.Port, cfg.HTTP.PublicDir, log.Logger)
	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	log.Info().Str("addr", srv.Addr()).Str("data_dir", cfg.DataDir).Msg("taskdeck running")

	runErr := svc.Run(ctx)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}
