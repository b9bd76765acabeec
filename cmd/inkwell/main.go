package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hpungsan/inkwell/internal/config"
	"github.com/hpungsan/inkwell/internal/db"
	"github.com/hpungsan/inkwell/internal/logger"
	"github.com/hpungsan/inkwell/internal/mcp"
	"github.com/hpungsan/inkwell/internal/ops"
)

// Version is set via -ldflags at build time.
var Version = "dev"

// HomeEnv overrides the base directory (default ~/.inkwell).
const HomeEnv = "INKWELL_HOME"

// cliCommands contains known CLI subcommands.
var cliCommands = map[string]bool{
	"save": true, "backup": true, "latest": true, "load": true,
	"history": true, "restore": true, "prune": true,
	"progress": true, "stats": true,
	"export": true, "import": true,
	"help": true,
}

// isCLIMode determines if we should run CLI vs MCP server.
func isCLIMode() bool {
	if len(os.Args) < 2 {
		return false // No args → MCP server
	}
	arg := os.Args[1]
	if cliCommands[arg] {
		return true
	}
	if arg == "--help" || arg == "-h" || arg == "--version" || arg == "-v" {
		return true
	}
	return false
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
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// printBanner displays a friendly banner when run interactively without args.
func printBanner() {
	fmt.Println(`
   _       _                  _ _
  (_)_ __ | | ____      _____| | |
  | | '_ \| |/ /\ \ /\ / / _ \ | |
  | | | | |   <  \ V  V /  __/ | |
  |_|_| |_|_|\_\  \_/\_/ \___|_|_|

  Versioned draft saves and backups

  Usage: inkwell <command> [options]
         inkwell --help

  MCP server mode requires piped input.`)
}

// baseDir returns $INKWELL_HOME or ~/.inkwell.
func baseDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return filepath.Abs(dir)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".inkwell"), nil
}

func main() {
	// No args + interactive terminal → show banner and exit
	if len(os.Args) < 2 && isTerminal() {
		printBanner()
		return
	}

	// Handle --help/--version before any setup (no stores needed)
	if isHelpOrVersion() {
		app := newCLIApp(nil)
		if err := app.Run(os.Args); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	// Unknown argument + terminal → show error (don't start MCP server)
	if !isCLIMode() && len(os.Args) >= 2 && isTerminal() {
		fmt.Fprintf(os.Stderr, "error: unknown command %q\n", os.Args[1])
		fmt.Fprintf(os.Stderr, "Run 'inkwell --help' for usage.\n")
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	dir, err := baseDir()
	if err != nil {
		return err
	}

	cfg, err := config.Load(dir)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.LogLevel, os.Stderr)

	database, err := db.Init(dir)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer database.Close()
	db.ConfigurePool(database, cfg)

	stores, err := ops.Open(database, cfg, log)
	if err != nil {
		return fmt.Errorf("failed to open stores: %w", err)
	}

	if isCLIMode() {
		return newCLIApp(stores).Run(os.Args)
	}

	if unknown := mcp.ValidateDisabledTools(cfg.DisabledTools); len(unknown) > 0 {
		log.Warn().Strs("tools", unknown).Msg("unknown tools in disabled_tools")
	}
	if unknown := mcp.ValidateDisabledTypes(cfg.DisabledTypes); len(unknown) > 0 {
		log.Warn().Strs("types", unknown).Msg("unknown types in disabled_types")
	}

	log.Info().Str("version", Version).Str("base_dir", dir).Msg("starting MCP server")
	return mcp.Run(stores, Version)
}
