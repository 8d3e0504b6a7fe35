package commands

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskdeck/pkg/mirror"
)

type WatchCmd struct {
	flags *Flags

	// flags
	url string
}

// NewWatchCmd creates a new watch command.
func NewWatchCmd(flags *Flags) *WatchCmd {
	return &WatchCmd{flags: flags}
}

// Register adds the watch command to the application.
func (cmd *WatchCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "watch",
		Usage:     "Live terminal view of a running daemon",
		UsageText: "taskdeck watch [--url URL]",
		Description: `Connects to the daemon's WebSocket stream and renders tasks,
workspaces, and recent activity. Reconnects automatically when the
daemon restarts.`,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "url",
				Usage:       "daemon websocket URL",
				Value:       "ws://localhost:3000/ws",
				Destination: &cmd.url,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *WatchCmd) run(ctx context.Context, c *cli.Command) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := mirror.New()
	client := mirror.NewClient(cmd.url, m, log.Logger)

	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error().Err(err).Msg("mirror stopped")
		}
	}()

	model := newWatchModel(m, client.Updates())
	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run viewer: %w", err)
	}
	return nil
}
