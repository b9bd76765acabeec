package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/rs/zerolog"

	"github.com/hpungsan/inkwell/internal/config"
	"github.com/hpungsan/inkwell/internal/db"
	"github.com/hpungsan/inkwell/internal/errors"
	"github.com/hpungsan/inkwell/internal/ops"
)

// testSetup opens both stores and the journal under a temp base dir.
func testSetup(t *testing.T) *ops.Stores {
	t.Helper()

	tmpDir := t.TempDir()
	database, err := db.Init(tmpDir)
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.MaxVersions = 3
	cfg.MaxBackups = 2
	cfg.ResolveDirs(tmpDir)
	if err := os.MkdirAll(cfg.ExportDir, 0700); err != nil {
		t.Fatalf("failed to create export dir: %v", err)
	}

	stores, err := ops.Open(database, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to open stores: %v", err)
	}
	return stores
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func draftArg(n int) map[string]any {
	return map[string]any{
		"content":    fmt.Sprintf("# Chapter %d\n\nThe tide came in.", n),
		"characters": []any{"Alex"},
	}
}

func TestHandleSave(t *testing.T) {
	h := NewHandlers(testSetup(t))
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError bool
		errorCode string
	}{
		{
			name:      "save draft",
			args:      map[string]any{"draft": draftArg(1), "source": "manual"},
			wantError: false,
		},
		{
			name:      "missing draft",
			args:      map[string]any{"source": "manual"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "draft is not an object",
			args:      map[string]any{"draft": "just text"},
			wantError: true,
			errorCode: "INVALID_REQUEST",
		},
		{
			name:      "only_if_due right after a save",
			args:      map[string]any{"draft": draftArg(2), "only_if_due": true},
			wantError: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleSave(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("handler returned error: %v", err)
			}

			if tt.wantError {
				if !result.IsError {
					t.Errorf("expected error result, got success")
				}
				if tt.errorCode != "" {
					assertErrorCode(t, result, tt.errorCode)
				}
			} else if result.IsError {
				t.Errorf("expected success, got error: %v", extractErrorMessage(result))
			}
		})
	}

	// The only_if_due call above must not have written anything.
	out := parseOutput(t, mustCall(t, h.history(false), nil))
	if items := out["items"].([]any); len(items) != 1 {
		t.Errorf("history has %d items, want 1", len(items))
	}
}

func TestHandleSave_Response(t *testing.T) {
	h := NewHandlers(testSetup(t))

	out := parseOutput(t, mustCall(t, h.HandleSave, map[string]any{"draft": draftArg(1)}))
	if out["saved"] != true {
		t.Errorf("saved = %v, want true", out["saved"])
	}
	if out["version"] != float64(1) {
		t.Errorf("version = %v, want 1", out["version"])
	}
	if out["store"] != "saves" {
		t.Errorf("store = %v, want saves", out["store"])
	}
	if out["word_count"] != float64(7) {
		t.Errorf("word_count = %v, want 7", out["word_count"])
	}
}

func TestHandleLatestAndLoad(t *testing.T) {
	h := NewHandlers(testSetup(t))

	out := parseOutput(t, mustCall(t, h.latest(false), nil))
	if out["item"] != nil {
		t.Fatalf("item = %v, want null on empty store", out["item"])
	}

	for i := 1; i <= 2; i++ {
		mustCall(t, h.HandleSave, map[string]any{"draft": draftArg(i)})
	}

	out = parseOutput(t, mustCall(t, h.latest(false), nil))
	item := out["item"].(map[string]any)
	if item["version"] != float64(2) {
		t.Errorf("latest version = %v, want 2", item["version"])
	}
	payload := item["payload"].(map[string]any)
	if payload["characters"] == nil {
		t.Error("payload lost auxiliary field characters")
	}

	out = parseOutput(t, mustCall(t, h.load(false), map[string]any{"version": 1}))
	if out["version"] != float64(1) {
		t.Errorf("loaded version = %v, want 1", out["version"])
	}

	result, err := h.load(false)(context.Background(), makeRequest(map[string]any{"version": 9}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "NOT_FOUND")

	result, err = h.load(true)(context.Background(), makeRequest(map[string]any{"version": 1}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "NOT_FOUND")
}

func TestHandleHistory_Retention(t *testing.T) {
	h := NewHandlers(testSetup(t))

	for i := 1; i <= 5; i++ {
		mustCall(t, h.HandleSave, map[string]any{"draft": draftArg(i)})
	}

	out := parseOutput(t, mustCall(t, h.history(false), nil))
	items := out["items"].([]any)
	if len(items) != 3 {
		t.Fatalf("history has %d items, want 3", len(items))
	}
	for i, want := range []float64{5, 4, 3} {
		if got := items[i].(map[string]any)["version"]; got != want {
			t.Errorf("items[%d].version = %v, want %v", i, got, want)
		}
	}

	out = parseOutput(t, mustCall(t, h.history(false), map[string]any{"limit": 1}))
	if items := out["items"].([]any); len(items) != 1 {
		t.Errorf("limited history has %d items, want 1", len(items))
	}

	result, err := h.history(false)(context.Background(), makeRequest(map[string]any{"limit": -1}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestHandleBackupAndRestore(t *testing.T) {
	h := NewHandlers(testSetup(t))

	result, err := h.HandleRestore(context.Background(), makeRequest(nil))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "NOT_FOUND")

	out := parseOutput(t, mustCall(t, h.HandleBackup, map[string]any{"draft": draftArg(1)}))
	if out["store"] != "backups" {
		t.Errorf("store = %v, want backups", out["store"])
	}
	mustCall(t, h.HandleSave, map[string]any{"draft": draftArg(7)})

	out = parseOutput(t, mustCall(t, h.HandleRestore, nil))
	if out["from_version"] != float64(1) {
		t.Errorf("from_version = %v, want 1", out["from_version"])
	}
	if out["version"] != float64(2) {
		t.Errorf("version = %v, want 2", out["version"])
	}

	out = parseOutput(t, mustCall(t, h.latest(false), nil))
	item := out["item"].(map[string]any)
	if item["source"] != "restore" {
		t.Errorf("source = %v, want restore", item["source"])
	}

	out = parseOutput(t, mustCall(t, h.latest(true), nil))
	if out["item"] == nil {
		t.Error("backup disappeared after restore")
	}
}

func TestHandlePrune(t *testing.T) {
	h := NewHandlers(testSetup(t))

	mustCall(t, h.HandleBackup, map[string]any{"draft": draftArg(1)})
	out := parseOutput(t, mustCall(t, h.prune(true), nil))
	if out["store"] != "backups" {
		t.Errorf("store = %v, want backups", out["store"])
	}
	if evicted := out["evicted"].([]any); len(evicted) != 0 {
		t.Errorf("evicted = %v, want none", evicted)
	}
}

func TestHandleProgressAndStats(t *testing.T) {
	h := NewHandlers(testSetup(t))

	out := parseOutput(t, mustCall(t, h.HandleProgress, nil))
	if out["has_draft"] != false {
		t.Errorf("has_draft = %v, want false", out["has_draft"])
	}

	mustCall(t, h.HandleSave, map[string]any{"draft": draftArg(1)})

	out = parseOutput(t, mustCall(t, h.HandleProgress, nil))
	if out["title"] != "Chapter 1" {
		t.Errorf("title = %v, want Chapter 1", out["title"])
	}
	if out["characters"] != float64(1) {
		t.Errorf("characters = %v, want 1", out["characters"])
	}

	out = parseOutput(t, mustCall(t, h.HandleStats, nil))
	if out["total_saves"] != float64(1) {
		t.Errorf("total_saves = %v, want 1", out["total_saves"])
	}
}

func TestHandleExportImport(t *testing.T) {
	stores := testSetup(t)
	h := NewHandlers(stores)

	for i := 1; i <= 2; i++ {
		mustCall(t, h.HandleSave, map[string]any{"draft": draftArg(i)})
	}

	path := filepath.Join(stores.Config.ExportDir, "drafts.jsonl")
	out := parseOutput(t, mustCall(t, h.export(false), map[string]any{"path": path}))
	if out["count"] != float64(2) {
		t.Fatalf("count = %v, want 2", out["count"])
	}

	out = parseOutput(t, mustCall(t, h.importArchive(true), map[string]any{"path": path, "mode": "skip"}))
	if out["imported"] != float64(2) {
		t.Errorf("imported = %v, want 2", out["imported"])
	}
	if out["store"] != "backups" {
		t.Errorf("store = %v, want backups", out["store"])
	}

	result, err := h.importArchive(false)(context.Background(), makeRequest(map[string]any{"path": "../escape.jsonl"}))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	assertErrorCode(t, result, "INVALID_REQUEST")
}

func TestServerRegistration(t *testing.T) {
	s := NewServer(testSetup(t), "test")
	tools := s.ListTools()
	if tools == nil {
		t.Fatal("expected tools to be registered, got nil")
	}

	if len(tools) != len(toolRegistry) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry))
	}
	for _, name := range AllToolNames() {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	stores := testSetup(t)
	stores.Config.DisabledTools = []string{"draft_prune", "backup_prune", "draft_prune"}

	tools := NewServer(stores, "test").ListTools()
	if len(tools) != len(toolRegistry)-2 {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(toolRegistry)-2)
	}
	for _, name := range []string{"draft_prune", "backup_prune"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
	if _, ok := tools["draft_save"]; !ok {
		t.Error("core tool draft_save should be registered")
	}
}

func TestServerRegistration_WithDisabledTypes(t *testing.T) {
	stores := testSetup(t)
	stores.Config.DisabledTypes = []string{"backup"}

	tools := NewServer(stores, "test").ListTools()
	for name := range tools {
		if GetTypeForTool(name) == "backup" {
			t.Errorf("tool %q of disabled type should not be registered", name)
		}
	}
	if len(tools) != len(toolRegistry)-len(ExpandTypesToTools([]string{"backup"})) {
		t.Errorf("registered tool count = %d", len(tools))
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	stores := testSetup(t)
	stores.Config.DisabledTools = AllToolNames()

	if tools := NewServer(stores, "test").ListTools(); len(tools) != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", len(tools))
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{"all valid", []string{"draft_prune", "backup_restore"}, 0},
		{"one unknown", []string{"draft_prune", "fake_tool"}, 1},
		{"all unknown", []string{"foo", "bar", "baz"}, 3},
		{"empty list", []string{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if unknown := ValidateDisabledTools(tt.input); len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestValidateDisabledTypes(t *testing.T) {
	if unknown := ValidateDisabledTypes([]string{"draft", "capsule"}); len(unknown) != 1 || unknown[0] != "capsule" {
		t.Errorf("ValidateDisabledTypes() = %v, want [capsule]", unknown)
	}
}

func TestGetTypeForTool(t *testing.T) {
	tests := map[string]string{
		"draft_save":     "draft",
		"backup_restore": "backup",
		"nounderscore":   "",
		"_leading":       "",
	}
	for in, want := range tests {
		if got := GetTypeForTool(in); got != want {
			t.Errorf("GetTypeForTool(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("sql error: open /tmp/secret.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}

	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_NonInternalIncludesDetails(t *testing.T) {
	r := errorResult(errors.NewNotFound("saves", 4))
	errObj := errorObject(t, r)

	if errObj["code"] != string(errors.ErrNotFound) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if _, ok := errObj["details"]; !ok {
		t.Fatal("expected non-INTERNAL errors to include details when present")
	}
}

func TestErrorResult_WrappedError(t *testing.T) {
	r := errorResult(fmt.Errorf("restore: %w", errors.NewNotFound("backups", 0)))
	if code := errorObject(t, r)["code"]; code != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", code, errors.ErrNotFound)
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	r := errorResult(fmt.Errorf("boom"))
	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Errorf("code=%v, want INTERNAL", errObj["code"])
	}
	if errObj["message"] == "boom" {
		t.Error("plain error message should not be exposed")
	}
}

// Helper functions

func mustCall(t *testing.T, handler func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error), args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := handler(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	return result
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(result.Content[0].(mcp.TextContent).Text), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatalf("no error object in payload: %v", payload)
	}
	return errObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	if !result.IsError {
		t.Errorf("expected error result, got success")
		return
	}
	if code := errorObject(t, result)["code"]; code != expectedCode {
		t.Errorf("got error code %v, want %q", code, expectedCode)
	}
}

func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}

	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}

	return text.Text
}
