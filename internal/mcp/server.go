package mcp

import (
	"slices"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/inkwell/internal/ops"
)

// KnownTypes lists all valid type names.
var KnownTypes = []string{"draft", "backup"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"draft_save": {
		def:     saveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSave },
	},
	"draft_latest": {
		def:     draftLatestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.latest(false) },
	},
	"draft_load": {
		def:     draftLoadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.load(false) },
	},
	"draft_history": {
		def:     draftHistoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.history(false) },
	},
	"draft_prune": {
		def:     draftPruneToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.prune(false) },
	},
	"draft_progress": {
		def:     progressToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleProgress },
	},
	"draft_stats": {
		def:     statsToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStats },
	},
	"draft_export": {
		def:     draftExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.export(false) },
	},
	"draft_import": {
		def:     draftImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.importArchive(false) },
	},
	"backup_create": {
		def:     backupToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleBackup },
	},
	"backup_latest": {
		def:     backupLatestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.latest(true) },
	},
	"backup_load": {
		def:     backupLoadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.load(true) },
	},
	"backup_history": {
		def:     backupHistoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.history(true) },
	},
	"backup_prune": {
		def:     backupPruneToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.prune(true) },
	},
	"backup_restore": {
		def:     restoreToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRestore },
	},
	"backup_export": {
		def:     backupExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.export(true) },
	},
	"backup_import": {
		def:     backupImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.importArchive(true) },
	},
}

// AllToolNames returns a sorted list of all valid tool names.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if !slices.Contains(KnownTypes, name) {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the type name from a tool name.
// Tool names follow the pattern "type_action" (e.g., "backup_restore" → "backup").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}

	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	slices.Sort(tools)
	return tools
}

// NewServer creates a new MCP server with inkwell tools registered.
// Tools listed in DisabledTools or belonging to DisabledTypes are excluded
// from registration.
func NewServer(stores *ops.Stores, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"inkwell",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(stores)

	// Expand types first, then add individual tools.
	disabled := make(map[string]bool)
	if cfg := stores.Config; cfg != nil {
		for _, tool := range ExpandTypesToTools(cfg.DisabledTypes) {
			disabled[tool] = true
		}
		for _, name := range cfg.DisabledTools {
			disabled[name] = true
		}
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(stores *ops.Stores, version string) error {
	s := NewServer(stores, version)
	return server.ServeStdio(s)
}
