package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/thermap/internal/config"
	"github.com/hpungsan/thermap/internal/db"
	"github.com/hpungsan/thermap/internal/mcp"
	"github.com/hpungsan/thermap/internal/ops"
	"github.com/hpungsan/thermap/internal/session"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// logLevel is shared by the default logger so --verbose can raise it after startup.
var logLevel = new(slog.LevelVar)

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"databases": true, "species": true, "compute": true,
	"history": true, "show": true, "delete": true,
	"snapshot": true, "serve": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	// Known subcommand → CLI
	if cliCommands[arg] {
		return true
	}
	// Global flags, --help or --version → CLI
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return arg == "--verbose" || arg == "--data-dir" || strings.HasPrefix(arg, "--data-dir=")
}

// isHelpOrVersion returns true if the user is requesting help or version info.
func isHelpOrVersion() bool {
	if len(os.Args) < 2 {
		return false
	}
	arg := os.Args[1]
	return arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" || arg == "help"
}

// isTerminal returns true if stdin is a terminal (not piped).
func isTerminal() bool {
	stat, _ := os.Stdin.Stat()
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _____ _                         _   ___
  |_   _| |_  ___ _ _ _ __  ___   /_\ | _ \
    | | | ' \/ -_) '_| '  \/ _ \ / _ \|  _/
    |_| |_||_\___|_| |_|_|_\___//_/ \_\_|

  Formation properties of solids from their constituent species

  Usage: thermap <command> [options]
         thermap --help

  MCP server mode requires piped input.`)
}

// setupLogging installs a text slog handler on stderr at the configured level.
func setupLogging(level string) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		l = slog.LevelInfo
	}
	logLevel.Set(l)
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel})))
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before DB init (no DB needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil, nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: could not determine home directory: %v\n", err)
		os.Exit(1)
	}

	baseDir := filepath.Join(homeDir, ".thermap")

	cwd, err := os.Getwd()
	if err != nil {
		cwd = baseDir
	}
	cfg, err := config.LoadWithRepo(baseDir, cwd)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to load config: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.LogLevel)

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		slog.Warn("unknown tools in disabled_tools", "tools", unknown)
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		slog.Warn("unknown types in disabled_types", "types", unknown)
	}

	database, err := db.Init(baseDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to initialize database: %v\n", err)
		os.Exit(1)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	src := &ops.Sources{
		Config:     cfg,
		ExportsDir: db.ExportsDir(baseDir),
		Cache:      session.NewCache(),
	}

	// CLI mode: known subcommand
	if isCLIMode() {
		app := newCLIApp(database, src)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			database.Close()
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'thermap --help' for usage.\n")
		database.Close()
		os.Exit(1)
	}

	// MCP server mode (default)
	slog.Debug("starting MCP server", "data_dir", cfg.DataDir)
	if err := mcp.Run(database, src, Version); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		database.Close()
		os.Exit(1)
	}
}
