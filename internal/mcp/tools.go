package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/inkwell/internal/ops"
)

var saveToolDef = mcp.NewTool("draft_save",
	mcp.WithDescription("Save the current draft as the next version. Older versions beyond max_versions are evicted, oldest first."),
	mcp.WithObject("draft",
		mcp.Required(),
		mcp.Description(`Draft object. "content" holds the text; every other field is stored verbatim.`),
	),
	mcp.WithString("source", mcp.Description(`Who triggered the save, e.g. "manual" or "scheduler"`)),
	mcp.WithBoolean("only_if_due", mcp.Description("Skip the save when the newest version is younger than save_interval")),
)

var backupToolDef = mcp.NewTool("backup_create",
	mcp.WithDescription("Write the draft into the backup store. Backups have their own version sequence and cap."),
	mcp.WithObject("draft",
		mcp.Required(),
		mcp.Description(`Draft object. "content" holds the text; every other field is stored verbatim.`),
	),
	mcp.WithString("source", mcp.Description("Who triggered the backup")),
)

func latestToolDef(name, store string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription("Load the newest snapshot from the "+store+" store. Returns item: null when the store is empty."),
	)
}

func loadToolDef(name, store string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription("Load one snapshot from the "+store+" store by version."),
		mcp.WithNumber("version", mcp.Required(), mcp.Min(1), mcp.Description("Snapshot version")),
	)
}

func historyToolDef(name, store string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription("List snapshot metadata in the "+store+" store, most recent first. Payloads are not loaded."),
		mcp.WithNumber("limit", mcp.Min(0), mcp.Description("Maximum entries (default: all retained, max 1000)")),
	)
}

func pruneToolDef(name, store string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription("Apply the "+store+" store's retention cap now. Retries evictions that failed during earlier saves."),
	)
}

func exportToolDef(name, store string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription("Export every retained "+store+" snapshot, oldest first, to a JSONL archive."),
		mcp.WithString("path", mcp.Description("Archive path (default: <export_dir>/<store>-<timestamp>.jsonl)")),
	)
}

func importToolDef(name, store string) mcp.Tool {
	return mcp.NewTool(name,
		mcp.WithDescription("Replay a JSONL archive into the "+store+" store. Each record becomes a new version."),
		mcp.WithString("path", mcp.Required(), mcp.Description("Archive path")),
		mcp.WithString("mode",
			mcp.Enum(string(ops.ImportModeError), string(ops.ImportModeSkip)),
			mcp.Description("error: import nothing if any line is malformed (default); skip: import the valid lines"),
		),
	)
}

var (
	draftLatestToolDef  = latestToolDef("draft_latest", "version")
	draftLoadToolDef    = loadToolDef("draft_load", "version")
	draftHistoryToolDef = historyToolDef("draft_history", "version")
	draftPruneToolDef   = pruneToolDef("draft_prune", "version")
	draftExportToolDef  = exportToolDef("draft_export", "version")
	draftImportToolDef  = importToolDef("draft_import", "version")

	backupLatestToolDef  = latestToolDef("backup_latest", "backup")
	backupLoadToolDef    = loadToolDef("backup_load", "backup")
	backupHistoryToolDef = historyToolDef("backup_history", "backup")
	backupPruneToolDef   = pruneToolDef("backup_prune", "backup")
	backupExportToolDef  = exportToolDef("backup_export", "backup")
	backupImportToolDef  = importToolDef("backup_import", "backup")
)

var restoreToolDef = mcp.NewTool("backup_restore",
	mcp.WithDescription(`Copy a backup into the version store as a new version with source "restore". The backup is kept.`),
	mcp.WithNumber("version", mcp.Min(1), mcp.Description("Backup version (default: newest backup)")),
)

var progressToolDef = mcp.NewTool("draft_progress",
	mcp.WithDescription("Word count, version, last save time, title, outline and save cadence of the newest draft."),
)

var statsToolDef = mcp.NewTool("draft_stats",
	mcp.WithDescription("Writing statistics from the save journal: total saves, writing days, words today and streaks."),
)
