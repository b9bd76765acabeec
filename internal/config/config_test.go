package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
}

func TestLoad_DefaultWhenMissing(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadWithEnv(tmpDir, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := DefaultConfig()
	if cfg.MaxVersions != def.MaxVersions {
		t.Errorf("MaxVersions = %d, want %d", cfg.MaxVersions, def.MaxVersions)
	}
	if cfg.MaxBackups != def.MaxBackups {
		t.Errorf("MaxBackups = %d, want %d", cfg.MaxBackups, def.MaxBackups)
	}
	if cfg.SaveInterval != 300*time.Second {
		t.Errorf("SaveInterval = %s, want 5m0s", cfg.SaveInterval)
	}
	if cfg.SaveDir != filepath.Join(tmpDir, "saves") {
		t.Errorf("SaveDir = %q, want %q", cfg.SaveDir, filepath.Join(tmpDir, "saves"))
	}
	if cfg.BackupDir != filepath.Join(tmpDir, "backups") {
		t.Errorf("BackupDir = %q, want %q", cfg.BackupDir, filepath.Join(tmpDir, "backups"))
	}
	if cfg.ExportDir != filepath.Join(tmpDir, "exports") {
		t.Errorf("ExportDir = %q, want %q", cfg.ExportDir, filepath.Join(tmpDir, "exports"))
	}
	if cfg.CompressBackups {
		t.Error("CompressBackups = true, want false")
	}
}

func TestLoad_OverridesFromYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), `
max_versions: 3
max_backups: 2
save_interval: 90s
compress_backups: true
save_dir: /var/lib/inkwell/drafts
allowed_paths:
  - /srv/archives
disabled_tools:
  - draft_prune
`)

	cfg, err := LoadWithEnv(tmpDir, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxVersions != 3 {
		t.Errorf("MaxVersions = %d, want 3", cfg.MaxVersions)
	}
	if cfg.MaxBackups != 2 {
		t.Errorf("MaxBackups = %d, want 2", cfg.MaxBackups)
	}
	if cfg.SaveInterval != 90*time.Second {
		t.Errorf("SaveInterval = %s, want 1m30s", cfg.SaveInterval)
	}
	if !cfg.CompressBackups {
		t.Error("CompressBackups = false, want true")
	}
	if cfg.SaveDir != "/var/lib/inkwell/drafts" {
		t.Errorf("SaveDir = %q, want absolute path kept", cfg.SaveDir)
	}
	if len(cfg.DisabledTools) != 1 || cfg.DisabledTools[0] != "draft_prune" {
		t.Errorf("DisabledTools = %v, want [draft_prune]", cfg.DisabledTools)
	}
	if len(cfg.AllowedPaths) != 1 || cfg.AllowedPaths[0] != "/srv/archives" {
		t.Errorf("AllowedPaths = %v, want [/srv/archives]", cfg.AllowedPaths)
	}
}

func TestLoad_OverridesFromJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.json"), `{"max_versions": 7, "disabled_types": ["backup"]}`)

	cfg, err := LoadWithEnv(tmpDir, nil)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxVersions != 7 {
		t.Errorf("MaxVersions = %d, want 7", cfg.MaxVersions)
	}
	if len(cfg.DisabledTypes) != 1 || cfg.DisabledTypes[0] != "backup" {
		t.Errorf("DisabledTypes = %v, want [backup]", cfg.DisabledTypes)
	}
}

func TestLoad_InvalidFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "max_versions: [not, an, int]\n")

	if _, err := LoadWithEnv(tmpDir, nil); err == nil {
		t.Fatal("Load() expected error, got nil")
	}
}

func TestLoad_EnvironmentWins(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "max_versions: 3\n")
	writeFile(t, filepath.Join(tmpDir, ".env"), "INKWELL_MAX_VERSIONS=4\nINKWELL_MAX_BACKUPS=9\n")

	env := map[string]string{
		"INKWELL_MAX_VERSIONS":   "6",
		"INKWELL_SAVE_INTERVAL":  "10m",
		"INKWELL_DISABLED_TOOLS": "draft_prune, backup_restore",
	}

	cfg, err := LoadWithEnv(tmpDir, env)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.MaxVersions != 6 {
		t.Errorf("MaxVersions = %d, want 6 (process env beats .env and file)", cfg.MaxVersions)
	}
	if cfg.MaxBackups != 9 {
		t.Errorf("MaxBackups = %d, want 9 (from .env)", cfg.MaxBackups)
	}
	if cfg.SaveInterval != 10*time.Minute {
		t.Errorf("SaveInterval = %s, want 10m0s", cfg.SaveInterval)
	}
	if len(cfg.DisabledTools) != 2 {
		t.Errorf("DisabledTools = %v, want 2 entries", cfg.DisabledTools)
	}
}

func TestLoad_InvalidEnvironment(t *testing.T) {
	tmpDir := t.TempDir()
	if _, err := LoadWithEnv(tmpDir, map[string]string{"INKWELL_MAX_VERSIONS": "ten"}); err == nil {
		t.Fatal("Load() expected error for non-numeric env, got nil")
	}
}

func TestLoad_RejectsNonPositiveCaps(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"negative versions", "max_versions: -1\n"},
		{"negative backups", "max_backups: -2\n"},
		{"negative interval", "save_interval: -5s\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmpDir := t.TempDir()
			writeFile(t, filepath.Join(tmpDir, "config.yaml"), tt.content)
			if _, err := LoadWithEnv(tmpDir, nil); err == nil {
				t.Fatal("Load() expected validation error, got nil")
			}
		})
	}
}

func TestLoad_RejectsSharedDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "save_dir: store\nbackup_dir: ./store\n")

	if _, err := LoadWithEnv(tmpDir, nil); err == nil {
		t.Fatal("Load() expected error for identical directories, got nil")
	}
}

func TestFindConfigFile_PrefersYAML(t *testing.T) {
	tmpDir := t.TempDir()
	writeFile(t, filepath.Join(tmpDir, "config.json"), `{}`)
	writeFile(t, filepath.Join(tmpDir, "config.yaml"), "{}\n")

	if got := FindConfigFile(tmpDir); got != filepath.Join(tmpDir, "config.yaml") {
		t.Errorf("FindConfigFile() = %q, want config.yaml", got)
	}
	if got := FindConfigFile(t.TempDir()); got != "" {
		t.Errorf("FindConfigFile(empty dir) = %q, want empty", got)
	}
}

func TestMerge(t *testing.T) {
	base := &Config{
		MaxVersions:   10,
		MaxBackups:    5,
		DisabledTools: []string{"draft_prune", "backup_restore"},
	}
	overlay := &Config{
		MaxVersions:     4,
		CompressBackups: true,
		DisabledTools:   []string{" backup_restore ", "draft_stats", ""},
	}

	got := Merge(base, overlay)
	if got.MaxVersions != 4 {
		t.Errorf("MaxVersions = %d, want 4", got.MaxVersions)
	}
	if got.MaxBackups != 5 {
		t.Errorf("MaxBackups = %d, want 5 (base kept)", got.MaxBackups)
	}
	if !got.CompressBackups {
		t.Error("CompressBackups = false, want true")
	}
	want := []string{"draft_prune", "backup_restore", "draft_stats"}
	if len(got.DisabledTools) != len(want) {
		t.Fatalf("DisabledTools = %v, want %v", got.DisabledTools, want)
	}
	for i := range want {
		if got.DisabledTools[i] != want[i] {
			t.Errorf("DisabledTools[%d] = %q, want %q", i, got.DisabledTools[i], want[i])
		}
	}
}

func TestMergeStringSlice_Empty(t *testing.T) {
	if got := mergeStringSlice(nil, []string{" ", ""}); got != nil {
		t.Errorf("mergeStringSlice() = %v, want nil", got)
	}
}
