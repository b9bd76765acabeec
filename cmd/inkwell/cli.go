package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/hpungsan/inkwell/internal/draft"
	"github.com/hpungsan/inkwell/internal/errors"
	"github.com/hpungsan/inkwell/internal/ops"
)

// maxDraftBytes bounds a draft read from stdin or --file.
const maxDraftBytes = 16 << 20

// newCLIApp creates the CLI application with all commands.
// stores may be nil when only help or version output is needed.
func newCLIApp(stores *ops.Stores) *cli.App {
	app := &cli.App{
		Name:    "inkwell",
		Usage:   "Versioned draft saves and backups",
		Version: Version,
		Commands: []*cli.Command{
			saveCmd(stores),
			backupCmd(stores),
			latestCmd(stores),
			loadCmd(stores),
			historyCmd(stores),
			restoreCmd(stores),
			pruneCmd(stores),
			progressCmd(stores),
			statsCmd(stores),
			exportCmd(stores),
			importCmd(stores),
		},
	}
	// Disable default exit error handler to allow proper error return in tests
	app.ExitErrHandler = func(_ *cli.Context, _ error) {}
	return app
}

// Flags shared by several commands. Each command gets its own instance.

func backupsFlag() cli.Flag {
	return &cli.BoolFlag{Name: "backups", Aliases: []string{"b"}, Usage: "Use the backup store instead of the version store"}
}

func sourceFlag() cli.Flag {
	return &cli.StringFlag{Name: "source", Aliases: []string{"s"}, Value: "manual", Usage: "Who triggered the save"}
}

func fileFlag() cli.Flag {
	return &cli.StringFlag{Name: "file", Aliases: []string{"f"}, Usage: "Read the draft JSON from a file instead of stdin"}
}

// saveCmd creates the save command.
func saveCmd(stores *ops.Stores) *cli.Command {
	return &cli.Command{
		Name:  "save",
		Usage: "Save a draft as the next version (reads draft JSON from stdin or --file)",
		Flags: []cli.Flag{
			sourceFlag(),
			fileFlag(),
			&cli.BoolFlag{Name: "only-if-due", Usage: "Skip unless save_interval has passed since the last save"},
		},
		Action: func(c *cli.Context) error {
			d, err := readDraft(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Save(c.Context, stores, ops.SaveInput{
				Draft:     d,
				Source:    c.String("source"),
				OnlyIfDue: c.Bool("only-if-due"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// backupCmd creates the backup command.
func backupCmd(stores *ops.Stores) *cli.Command {
	return &cli.Command{
		Name:  "backup",
		Usage: "Write a draft into the backup store (reads draft JSON from stdin or --file)",
		Flags: []cli.Flag{sourceFlag(), fileFlag()},
		Action: func(c *cli.Context) error {
			d, err := readDraft(c)
			if err != nil {
				return outputError(err)
			}

			output, err := ops.Backup(c.Context, stores, ops.BackupInput{
				Draft:  d,
				Source: c.String("source"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// latestCmd creates the latest command.
func latestCmd(stores *ops.Stores) *cli.Command {
	return &cli.Command{
		Name:  "latest",
		Usage: "Print the newest snapshot",
		Flags: []cli.Flag{backupsFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Latest(c.Context, stores, ops.LatestInput{Backups: c.Bool("backups")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// loadCmd creates the load command.
func loadCmd(stores *ops.Stores) *cli.Command {
	return &cli.Command{
		Name:  "load",
		Usage: "Print one snapshot by version",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "version", Aliases: []string{"n"}, Required: true, Usage: "Snapshot version"},
			backupsFlag(),
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Load(c.Context, stores, ops.LoadInput{
				Version: c.Int("version"),
				Backups: c.Bool("backups"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// historyCmd creates the history command.
func historyCmd(stores *ops.Stores) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "List snapshot metadata, most recent first",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum entries (default: all retained)"},
			backupsFlag(),
		},
		Action: func(c *cli.Context) error {
			output, err := ops.History(c.Context, stores, ops.HistoryInput{
				Limit:   c.Int("limit"),
				Backups: c.Bool("backups"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// restoreCmd creates the restore command.
func restoreCmd(stores *ops.Stores) *cli.Command {
	return &cli.Command{
		Name:  "restore",
		Usage: "Copy a backup into the version store as a new version",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: "version", Aliases: []string{"n"}, Usage: "Backup version (default: newest backup)"},
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Restore(c.Context, stores, ops.RestoreInput{Version: c.Int("version")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// pruneCmd creates the prune command.
func pruneCmd(stores *ops.Stores) *cli.Command {
	return &cli.Command{
		Name:  "prune",
		Usage: "Apply the retention cap now",
		Flags: []cli.Flag{backupsFlag()},
		Action: func(c *cli.Context) error {
			output, err := ops.Prune(c.Context, stores, ops.PruneInput{Backups: c.Bool("backups")})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// progressCmd creates the progress command.
func progressCmd(stores *ops.Stores) *cli.Command {
	return &cli.Command{
		Name:  "progress",
		Usage: "Show word count, version and save cadence of the newest draft",
		Action: func(c *cli.Context) error {
			output, err := ops.Progress(c.Context, stores)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// statsCmd creates the stats command.
func statsCmd(stores *ops.Stores) *cli.Command {
	return &cli.Command{
		Name:  "stats",
		Usage: "Show writing statistics from the save journal",
		Action: func(c *cli.Context) error {
			output, err := ops.Stats(c.Context, stores)
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// exportCmd creates the export command.
func exportCmd(stores *ops.Stores) *cli.Command {
	return &cli.Command{
		Name:  "export",
		Usage: "Export retained snapshots to a JSONL archive",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Usage: "Archive path (default: ~/.inkwell/exports/<store>-<timestamp>.jsonl)"},
			backupsFlag(),
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Export(c.Context, stores, ops.ExportInput{
				Path:    c.String("path"),
				Backups: c.Bool("backups"),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// importCmd creates the import command.
func importCmd(stores *ops.Stores) *cli.Command {
	return &cli.Command{
		Name:  "import",
		Usage: "Replay a JSONL archive as new versions",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "path", Aliases: []string{"p"}, Required: true, Usage: "Archive path"},
			&cli.StringFlag{Name: "mode", Aliases: []string{"m"}, Value: "error", Usage: "Malformed lines: error|skip"},
			backupsFlag(),
		},
		Action: func(c *cli.Context) error {
			output, err := ops.Import(c.Context, stores, ops.ImportInput{
				Path:    c.String("path"),
				Backups: c.Bool("backups"),
				Mode:    ops.ImportMode(c.String("mode")),
			})
			if err != nil {
				return outputError(err)
			}
			return outputJSON(c, output)
		},
	}
}

// Helper functions

// outputJSON marshals result to the app's writer (stdout) as JSON.
func outputJSON(c *cli.Context, v any) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// outputError formats error for CLI.
func outputError(err error) error {
	if inkErr, ok := errors.As(err); ok {
		return cli.Exit(fmt.Sprintf("[%s] %s", inkErr.Code, inkErr.Message), 1)
	}
	return cli.Exit(err.Error(), 1)
}

// readDraft parses the draft from --file, or from stdin when it is piped.
func readDraft(c *cli.Context) (draft.Draft, error) {
	var (
		data []byte
		err  error
	)
	if path := c.String("file"); path != "" {
		data, err = readFile(path, maxDraftBytes)
	} else {
		if c.App.Reader == os.Stdin && !stdinHasData() {
			return draft.Draft{}, errors.NewInvalidRequest("draft JSON must be piped via stdin or given with --file")
		}
		data, err = readLimited(c.App.Reader, maxDraftBytes)
	}
	if err != nil {
		return draft.Draft{}, err
	}
	if len(data) == 0 {
		return draft.Draft{}, errors.NewInvalidRequest("draft is required")
	}

	d, err := draft.ParseDraft(data)
	if err != nil {
		return draft.Draft{}, errors.NewInvalidRequest(fmt.Sprintf("invalid draft JSON: %v", err))
	}
	return d, nil
}

// stdinHasData returns true if stdin has piped data (not a terminal).
func stdinHasData() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

func readFile(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, errors.NewInvalidRequest(fmt.Sprintf("open %s: %v", path, err))
	}
	defer f.Close()
	return readLimited(f, limit)
}

// readLimited reads at most limit bytes and fails if there is more.
func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if int64(len(data)) > limit {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("draft exceeds %d bytes", limit))
	}
	return data, nil
}
