// submodule cmd contains command definitions
package main

import (
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/scribe/internal/models"
)

// outputFlags are shared by every text operation.
func outputFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Read input text from a file (- for stdin)",
		},
		&cli.StringFlag{
			Name:    "select",
			Aliases: []string{"s"},
			Usage:   "Only transform the rune range start:end of the input",
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Also write the finished run to this file",
		},
		&cli.StringFlag{
			Name:  "format",
			Usage: "Export format for --output: text, markdown or json (default: from extension)",
		},
		&cli.BoolFlag{
			Name:  "json",
			Usage: "Print the finished run as JSON instead of streaming text",
		},
	}
}

// textCommand groups the streaming text operations
func textCommand(r *Runner) *cli.Command {
	commands := []*cli.Command{}
	for _, kind := range []models.Kind{models.Paraphrase, models.Expand, models.Summarize} {
		commands = append(commands, &cli.Command{
			Name:      kind.String(),
			Usage:     kind.Label() + " text, printing output as it streams",
			ArgsUsage: "[text]",
			Arguments: []cli.Argument{&cli.StringArg{Name: "text"}},
			Flags:     outputFlags(),
			Action:    r.TextOperation(kind),
		})
	}

	commands = append(commands, &cli.Command{
		Name:      models.Translate.String(),
		Usage:     "Translate text to english or spanish",
		ArgsUsage: "[text]",
		Arguments: []cli.Argument{&cli.StringArg{Name: "text"}},
		Flags: append(outputFlags(), &cli.StringFlag{
			Name:    "to",
			Aliases: []string{"t"},
			Usage:   "Target language: english or spanish",
			Value:   models.English.String(),
		}),
		Action: r.TextOperation(models.Translate),
	})

	return &cli.Command{
		Name:     "text",
		Aliases:  []string{"t"},
		Usage:    "Transform text",
		Commands: commands,
	}
}

// historyCommand handles local run history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "history",
		Aliases: []string{"hist"},
		Usage:   "Browse and export past runs",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent runs, newest first",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show",
						Value: 20,
					},
					&cli.StringFlag{
						Name:  "kind",
						Usage: "Only show one operation",
					},
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "csv",
						Usage: "Output CSV",
					},
				},
				Action: r.HistoryList,
			},
			{
				Name:      "show",
				Usage:     "Print or export one run by ID or sequence number",
				ArgsUsage: "<id|sequence>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "format",
						Usage: "text, markdown or json",
						Value: "text",
					},
					&cli.StringFlag{
						Name:    "output",
						Aliases: []string{"o"},
						Usage:   "Write to a file instead of stdout",
					},
				},
				Action: r.HistoryShow,
			},
			{
				Name:      "delete",
				Usage:     "Delete one run",
				ArgsUsage: "<id|sequence>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.HistoryDelete,
			},
			{
				Name:   "clear",
				Usage:  "Delete all runs",
				Action: r.HistoryClear,
			},
		},
	}
}

// apiCommand handles direct authorized API calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the backend with the stored credential",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "Authorized GET, prints the response body",
				ArgsUsage: "<path>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print JSON responses",
						Value: true,
					},
				},
				Action: r.APIGet,
			},
			{
				Name:      "post",
				Usage:     "Authorized POST with a JSON body",
				ArgsUsage: "<path>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "path"}},
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "data",
						Aliases:  []string{"d"},
						Usage:    "JSON body to send",
						Required: true,
					},
				},
				Action: r.APIPost,
			},
		},
	}
}

// setupCommand handles setup operations for configuration and the database.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Create config.toml, initialize the database and run migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.BoolFlag{
				Name:  "reset",
				Usage: "Drop and recreate all tables, discarding the stored login and history",
			},
		},
		Action: r.Setup,
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage the stored credential",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Sign in and store the issued token",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "username",
						Aliases:  []string{"u"},
						Usage:    "Account username",
						Required: true,
					},
					&cli.StringFlag{
						Name:    "password",
						Aliases: []string{"p"},
						Usage:   "Account password (prompted when omitted)",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Remove the stored credential",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the session and check the backend's /health",
				Action: r.AuthStatus,
			},
		},
	}
}

// serveCommand runs the local mock backend
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run a local mock of the text backend",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Listen address (default: [mock] addr)",
			},
			&cli.BoolFlag{
				Name:  "framed",
				Usage: `Wrap fragments as {"data": ...}`,
			},
			&cli.DurationFlag{
				Name:  "delay",
				Usage: "Pause between fragments (default: [mock] delay)",
			},
			&cli.StringFlag{
				Name:  "fail-with",
				Usage: "End every stream with this error fragment",
			},
			&cli.IntFlag{
				Name:  "fail-after",
				Usage: "Number of fragments to send before --fail-with",
			},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for the interactive editor.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive editor",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "Where to write logs while the TUI owns the screen",
				Value: "./tmp/scribe-tui.log",
			},
		},
		Action: r.TUI,
	}
}
