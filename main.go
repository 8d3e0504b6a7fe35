package main

import (
	"context"
	"fmt"
	"os"
	"runtime/debug"

	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v3"

	"github.com/colonyops/taskdeck/internal/commands"
	"github.com/colonyops/taskdeck/pkg/logutils"
)

var (
	// Build information. Populated at build-time via -ldflags flag.
	// When installed via `go install module@version`, build() populates
	// these from runtime/debug.BuildInfo instead.
	version = "dev"
	commit  = "HEAD"
	date    = "now"
)

func build() string {
	v, c, d := version, commit, date

	// When installed via `go install module@version`, ldflags aren't set
	// so version remains "dev". Fall back to runtime/debug.BuildInfo which
	// Go populates automatically with the module version and VCS metadata.
	if v == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok {
			if mv := info.Main.Version; mv != "" && mv != "(devel)" {
				v = mv
			}
			for _, s := range info.Settings {
				switch s.Key {
				case "vcs.revision":
					c = s.Value
				case "vcs.time":
					d = s.Value
				}
			}
		}
	}

	short := c
	if len(c) > 7 {
		short = c[:7]
	}

	return fmt.Sprintf("%s (%s) %s", v, short, d)
}

func main() {
	ctx := context.Background()

	var logCloser func()

	flags := &commands.Flags{}

	app := &cli.Command{
		Name:      "taskdeck",
		Usage:     "Monitor markdown task workspaces and stream live state",
		UsageText: "taskdeck [global options] command [command options]",
		Description: `Taskdeck watches a directory of markdown task and progress files,
keeps an in-memory model of active tasks and workspaces, and serves the
result over HTTP and a WebSocket stream.

Run 'taskdeck serve' to start the daemon.
Run 'taskdeck watch' to open the live terminal view against a running daemon.`,
		Version: build(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "log-level",
				Usage:       "log level (debug, info, warn, error, fatal, panic)",
				Sources:     cli.EnvVars("TASKDECK_LOG_LEVEL"),
				Value:       "info",
				Destination: &flags.LogLevel,
			},
			&cli.StringFlag{
				Name:        "log-file",
				Usage:       "path to log file (defaults to stderr)",
				Sources:     cli.EnvVars("TASKDECK_LOG_FILE"),
				Destination: &flags.LogFile,
			},
			&cli.StringFlag{
				Name:        "config",
				Aliases:     []string{"c"},
				Usage:       "path to config file",
				Sources:     cli.EnvVars("TASKDECK_CONFIG"),
				Value:       commands.DefaultConfigPath(),
				Destination: &flags.ConfigPath,
			},
			&cli.StringFlag{
				Name:        "data-dir",
				Usage:       "path to the workspace data directory",
				Sources:     cli.EnvVars("TASKDECK_DATA_DIR"),
				Value:       commands.DefaultDataDir(),
				Destination: &flags.DataDir,
			},
		},
		Before: func(ctx context.Context, c *cli.Command) (context.Context, error) {
			logger, closer, err := logutils.New(flags.LogLevel, flags.LogFile)
			if err != nil {
				return ctx, fmt.Errorf("setup logger: %w", err)
			}
			log.Logger = logger
			logCloser = closer

			return ctx, nil
		},
		After: func(ctx context.Context, c *cli.Command) error {
			if logCloser != nil {
				logCloser()
			}
			return nil
		},
	}

	app = commands.NewServeCmd(flags).Register(app)
	app = commands.NewWatchCmd(flags).Register(app)
	app = commands.NewStatusCmd(flags).Register(app)

	app.Action = func(ctx context.Context, c *cli.Command) error {
		if c.Args().Len() > 0 {
			return fmt.Errorf("unknown command %q. Run 'taskdeck --help' for usage", c.Args().First())
		}
		return cli.ShowSubcommandHelp(c)
	}

	exitCode := 0
	runErr := app.Run(ctx, os.Args)
	if runErr != nil {
		fmt.Println()
		fmt.Println(runErr.Error())
		exitCode = 1
	}

	os.Exit(exitCode)
}
