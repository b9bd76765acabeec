package mcp

import (
	"context"
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/inkwell/internal/draft"
	"github.com/hpungsan/inkwell/internal/errors"
	"github.com/hpungsan/inkwell/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	stores *ops.Stores
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(stores *ops.Stores) *Handlers {
	return &Handlers{stores: stores}
}

// Request types for each tool

// SaveRequest represents the arguments for draft_save and backup_create.
type SaveRequest struct {
	Draft     *draft.Draft `json:"draft"`
	Source    string       `json:"source,omitempty"`
	OnlyIfDue bool         `json:"only_if_due,omitempty"`
}

// LoadRequest represents the arguments for draft_load and backup_load.
type LoadRequest struct {
	Version int `json:"version"`
}

// HistoryRequest represents the arguments for the history tools.
type HistoryRequest struct {
	Limit int `json:"limit,omitempty"`
}

// RestoreRequest represents the arguments for backup_restore.
type RestoreRequest struct {
	Version int `json:"version,omitempty"`
}

// ExportRequest represents the arguments for the export tools.
type ExportRequest struct {
	Path string `json:"path,omitempty"`
}

// ImportRequest represents the arguments for the import tools.
type ImportRequest struct {
	Path string `json:"path"`
	Mode string `json:"mode,omitempty"`
}

// Handler implementations

// HandleSave handles the draft_save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Draft == nil {
		return errorResult(errors.NewInvalidRequest("draft is required")), nil
	}

	result, err := ops.Save(ctx, h.stores, ops.SaveInput{
		Draft:     *input.Draft,
		Source:    input.Source,
		OnlyIfDue: input.OnlyIfDue,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleBackup handles the backup_create tool call.
func (h *Handlers) HandleBackup(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Draft == nil {
		return errorResult(errors.NewInvalidRequest("draft is required")), nil
	}

	result, err := ops.Backup(ctx, h.stores, ops.BackupInput{
		Draft:  *input.Draft,
		Source: input.Source,
	})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleRestore handles the backup_restore tool call.
func (h *Handlers) HandleRestore(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RestoreRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.Restore(ctx, h.stores, ops.RestoreInput{Version: input.Version})
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleProgress handles the draft_progress tool call.
func (h *Handlers) HandleProgress(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Progress(ctx, h.stores)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// HandleStats handles the draft_stats tool call.
func (h *Handlers) HandleStats(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Stats(ctx, h.stores)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(result)
}

// The store-generic tools come in pairs; backups selects the Backup Store.

func (h *Handlers) latest(backups bool) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := ops.Latest(ctx, h.stores, ops.LatestInput{Backups: backups})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func (h *Handlers) load(backups bool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := decode[LoadRequest](req)
		if err != nil {
			return errorResult(errors.NewInvalidRequest(err.Error())), nil
		}

		result, err := ops.Load(ctx, h.stores, ops.LoadInput{Version: input.Version, Backups: backups})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func (h *Handlers) history(backups bool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := decode[HistoryRequest](req)
		if err != nil {
			return errorResult(errors.NewInvalidRequest(err.Error())), nil
		}

		result, err := ops.History(ctx, h.stores, ops.HistoryInput{Limit: input.Limit, Backups: backups})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func (h *Handlers) prune(backups bool) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := ops.Prune(ctx, h.stores, ops.PruneInput{Backups: backups})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func (h *Handlers) export(backups bool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := decode[ExportRequest](req)
		if err != nil {
			return errorResult(errors.NewInvalidRequest(err.Error())), nil
		}

		result, err := ops.Export(ctx, h.stores, ops.ExportInput{Path: input.Path, Backups: backups})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

func (h *Handlers) importArchive(backups bool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		input, err := decode[ImportRequest](req)
		if err != nil {
			return errorResult(errors.NewInvalidRequest(err.Error())), nil
		}

		result, err := ops.Import(ctx, h.stores, ops.ImportInput{
			Path:    input.Path,
			Backups: backups,
			Mode:    ops.ImportMode(input.Mode),
		})
		if err != nil {
			return errorResult(err), nil
		}
		return successResult(result)
	}
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Internal error details are not exposed to prevent leaking sensitive info.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	if inkErr, ok := errors.As(err); ok {
		errorObj := map[string]any{
			"code":    inkErr.Code,
			"message": inkErr.Message,
			"status":  inkErr.Status,
		}
		// Details for INTERNAL errors may carry paths or SQL text.
		if inkErr.Code != errors.ErrInternal && inkErr.Details != nil {
			errorObj["details"] = inkErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
