package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskdeck/internal/deck"
)

type StatusCmd struct {
	flags *Flags

	// flags
	url string
}

// NewStatusCmd creates a new status command.
func NewStatusCmd(flags *Flags) *StatusCmd {
	return &StatusCmd{flags: flags}
}

// Register adds the status command to the application.
func (cmd *StatusCmd) Register(app *cli.Command) *cli.Command {
	app.Commands = append(app.Commands, &cli.Command{
		Name:      "status",
		Usage:     "Show status of a running daemon",
		UsageText: "taskdeck status [--url URL]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "url",
				Usage:       "daemon base URL",
				Value:       "http://localhost:3000",
				Destination: &cmd.url,
			},
		},
		Action: cmd.run,
	})

	return app
}

func (cmd *StatusCmd) run(ctx context.Context, c *cli.Command) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cmd.url+"/api/status", nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("daemon not reachable at %s: %w", cmd.url, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	var status deck.Status
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return fmt.Errorf("decode status: %w", err)
	}

	w := tabwriter.NewWriter(c.Root().Writer, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintf(w, "status\t%s\n", status.Status)
	_, _ = fmt.Fprintf(w, "uptime\t%s\n", (time.Duration(status.Uptime) * time.Millisecond).Round(time.Second))
	_, _ = fmt.Fprintf(w, "tasks\t%d\n", status.Tasks)
	_, _ = fmt.Fprintf(w, "workspaces\t%d\n", status.Workspaces)
	_, _ = fmt.Fprintf(w, "viewers\t%d\n", status.Clients)
	_, _ = fmt.Fprintf(w, "active\t%s\n", status.Monitoring.ActivePath)
	_, _ = fmt.Fprintf(w, "archive\t%s\n", status.Monitoring.ArchivePath)
	return w.Flush()
}
