package main

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/urfave/cli/v2"

	"github.com/hpungsan/thermap/internal/errors"
	"github.com/hpungsan/thermap/internal/ops"
	"github.com/hpungsan/thermap/internal/report"
	"github.com/hpungsan/thermap/internal/web"
)

// newCLIApp creates the CLI application with all commands.
func newCLIApp(db *sqlx.DB, src *ops.Sources) *cli.App {
	app := &cli.App{
		Name:    "thermap",
		Usage:   "Estimate thermodynamic formation properties of solids",
		Version: Version,
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "data-dir", EnvVars: []string{"THERMAP_DATA_DIR"}, Usage: "Directory holding ElemDB/SpeciesDB sources"},
			&cli.BoolFlag{Name: "verbose", Usage: "Log debug output to stderr"},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("verbose") {
				logLevel.Set(slog.LevelDebug)
			}
			if dir := c.String("data-dir"); dir != "" && src != nil {
				src.Config.DataDir = dir
			}
			return nil
		},
		Commands: []*cli.Command{
			databasesCmd(src),
			speciesCmd(src),
			computeCmd(db, src),
			historyCmd(db),
			showCmd(db, src),
			deleteCmd(db),
			snapshotCmd(src),
			serveCmd(db, src),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

func formatFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Value:   report.FormatText,
		Usage:   "Output format: text|markdown|html|json",
	}
}

// databasesCmd creates the databases command.
func databasesCmd(src *ops.Sources) *cli.Command {
	return &cli.Command{
		Name:  "databases",
		Usage: "List the reference databases in the data directory",
		Action: func(c *cli.Context) error {
			output, err := ops.ListDatabases(src)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// speciesCmd creates the species command.
func speciesCmd(src *ops.Sources) *cli.Command {
	return &cli.Command{
		Name:  "species",
		Usage: "List the elements and species of a database",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "db", Aliases: []string{"d"}, Required: true, Usage: "Database index"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Species(src, ops.SpeciesInput{Database: c.Int("db")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// computeCmd creates the compute command.
func computeCmd(db *sqlx.DB, src *ops.Sources) *cli.Command {
	return &cli.Command{
		Name:      "compute",
		Usage:     "Estimate formation properties of a composition",
		ArgsUsage: "NAME=COEF [NAME=COEF ...]",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "db", Aliases: []string{"d"}, Required: true, Usage: "Database index"},
			formatFlag(),
			&cli.BoolFlag{Name: "no-save", Usage: "Do not record the calculation in history"},
		},
		Action: func(c *cli.Context) error {
			entries, err := parseEntries(c.Args().Slice())
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Compute(c.Context, db, src, ops.ComputeInput{
				Database: c.Int("db"),
				Entries:  entries,
				NoSave:   c.Bool("no-save"),
			})
			if err != nil {
				return outputError(err)
			}

			if c.String("format") == report.FormatJSON {
				return outputJSON(output)
			}
			if err := report.Render(os.Stdout, c.String("format"), output.Report); err != nil {
				return outputError(err)
			}
			if output.ID != "" {
				fmt.Fprintf(os.Stderr, "saved: %s\n", output.ID)
			}
			return nil
		},
	}
}

// historyCmd creates the history command.
func historyCmd(db *sqlx.DB) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List saved calculations, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "db", Aliases: []string{"d"}, Usage: "Filter by database short name"},
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Value: ops.DefaultListLimit, Usage: "Max items"},
			&cli.IntFlag{Name: "offset", Aliases: []string{"o"}, Value: 0, Usage: "Items to skip"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(db, ops.HistoryInput{
				Database: c.String("db"),
				Limit:    c.Int("limit"),
				Offset:   c.Int("offset"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// showCmd creates the show command.
func showCmd(db *sqlx.DB, src *ops.Sources) *cli.Command {
	return &cli.Command{
		Name:      "show",
		Usage:     "Show a saved calculation",
		ArgsUsage: "<id>",
		Flags:     []cli.Flag{formatFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Fetch(db, src.Config, ops.FetchInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			if c.String("format") == report.FormatJSON {
				return outputJSON(output)
			}
			if err := report.Render(os.Stdout, c.String("format"), output.Report); err != nil {
				return outputError(err)
			}
			return nil
		},
	}
}

// deleteCmd creates the delete command.
func deleteCmd(db *sqlx.DB) *cli.Command {
	return &cli.Command{
		Name:      "delete",
		Usage:     "Permanently delete a saved calculation",
		ArgsUsage: "<id>",
		Action: func(c *cli.Context) error {
			output, err := ops.Delete(c.Context, db, ops.DeleteInput{ID: c.Args().First()})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// snapshotCmd creates the snapshot command.
func snapshotCmd(src *ops.Sources) *cli.Command {
	return &cli.Command{
		Name:  "snapshot",
		Usage: "Export a database's species table with element decompositions",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "db", Aliases: []string{"d"}, Required: true, Usage: "Database index"},
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Output file (.txt or .tsv, default: exports directory)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Snapshot(c.Context, src, ops.SnapshotInput{
				Database: c.Int("db"),
				Path:     c.String("path"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(output)
		},
	}
}

// serveCmd creates the serve command.
func serveCmd(db *sqlx.DB, src *ops.Sources) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Start the composition web UI",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "bind", Value: "127.0.0.1", Usage: "Address to bind"},
			&cli.IntFlag{Name: "port", Value: 8321, Usage: "Port to listen on"},
		},
		Action: func(c *cli.Context) error {
			// The web UI keeps its own instrumented cache.
			webSrc := *src
			webSrc.Cache = nil
			srv := web.NewServer(db, &webSrc, Version, c.String("bind"), c.Int("port"))
			return web.Run(srv)
		},
	}
}

// Helper functions

// outputJSON marshals result to stdout as JSON.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	var tErr *errors.ThermapError
	if stderrors.As(err, &tErr) {
		return cli.Exit(fmt.Sprintf("[%s] %s", tErr.Code, tErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// parseEntries splits NAME=COEF arguments into raw coefficient entries.
// Values are left as typed; non-numeric text counts as zero downstream.
func parseEntries(args []string) (map[string]string, error) {
	if len(args) == 0 {
		return nil, errors.NewInvalidRequest("at least one NAME=COEF argument is required")
	}
	entries := make(map[string]string, len(args))
	for _, arg := range args {
		name, value, ok := strings.Cut(arg, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid coefficient %q (want NAME=COEF)", arg))
		}
		entries[name] = strings.TrimSpace(value)
	}
	return entries, nil
}
