package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override (e.g. INKWELL_MAX_VERSIONS).
const EnvPrefix = "INKWELL_"

// Config holds application configuration.
type Config struct {
	// SaveDir is the Version Store directory. Relative paths resolve against the base dir.
	SaveDir string `yaml:"save_dir" env:"SAVE_DIR"`

	// BackupDir is the Backup Store directory. Must differ from SaveDir.
	BackupDir string `yaml:"backup_dir" env:"BACKUP_DIR"`

	// ExportDir is where archives are written by default. Archive paths must
	// sit directly in ExportDir or in one of AllowedPaths.
	ExportDir string `yaml:"export_dir" env:"EXPORT_DIR"`

	// AllowedPaths lists extra absolute directories for archive import/export.
	AllowedPaths []string `yaml:"allowed_paths" env:"ALLOWED_PATHS" envSeparator:","`

	// AllowUnsafePaths disables the directory restriction (symlinks stay rejected).
	AllowUnsafePaths bool `yaml:"allow_unsafe_paths" env:"ALLOW_UNSAFE_PATHS"`

	// MaxVersions caps the number of snapshots kept in the Version Store.
	MaxVersions int `yaml:"max_versions" env:"MAX_VERSIONS"`

	// MaxBackups caps the number of snapshots kept in the Backup Store.
	MaxBackups int `yaml:"max_backups" env:"MAX_BACKUPS"`

	// SaveInterval is the advisory save cadence (e.g. "300s").
	// Nothing saves on a timer; schedulers use it through OnlyIfDue.
	SaveInterval time.Duration `yaml:"save_interval" env:"SAVE_INTERVAL"`

	// CompressBackups writes new backup records zstd-compressed.
	CompressBackups bool `yaml:"compress_backups" env:"COMPRESS_BACKUPS"`

	// LogLevel is a zerolog level name (debug, info, warn, error).
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// DBMaxOpenConns limits the maximum number of open database connections.
	// 0 means use sql.DB default. Only set if you experience contention.
	DBMaxOpenConns int `yaml:"db_max_open_conns" env:"DB_MAX_OPEN_CONNS"`

	// DBMaxIdleConns limits the maximum number of idle database connections.
	DBMaxIdleConns int `yaml:"db_max_idle_conns" env:"DB_MAX_IDLE_CONNS"`

	// DisabledTools is a list of MCP tool names to exclude from registration.
	// Unknown tool names are logged as warnings.
	DisabledTools []string `yaml:"disabled_tools" env:"DISABLED_TOOLS" envSeparator:","`

	// DisabledTypes disables every tool of a type ("draft", "backup").
	DisabledTypes []string `yaml:"disabled_types" env:"DISABLED_TYPES" envSeparator:","`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SaveDir:      "saves",
		BackupDir:    "backups",
		ExportDir:    "exports",
		MaxVersions:  10,
		MaxBackups:   5,
		SaveInterval: 300 * time.Second,
		LogLevel:     "info",
	}
}

// configFileNames are tried in order; the first that exists wins.
var configFileNames = []string{"config.yaml", "config.yml", "config.json"}

// Load loads configuration for baseDir: defaults, then the config file, then
// baseDir/.env, then the process environment. Directories are resolved against
// baseDir and the result is validated.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.inkwell.
func Load(baseDir string) (*Config, error) {
	return LoadWithEnv(baseDir, environ())
}

// LoadWithEnv is Load with an explicit environment, so tests do not depend on
// process state.
func LoadWithEnv(baseDir string, environment map[string]string) (*Config, error) {
	file, err := loadFileRaw(FindConfigFile(baseDir))
	if err != nil {
		return nil, err
	}

	dotenv, err := loadDotEnv(filepath.Join(baseDir, ".env"))
	if err != nil {
		return nil, err
	}
	merged := make(map[string]string, len(dotenv)+len(environment))
	maps.Copy(merged, dotenv)
	maps.Copy(merged, environment)

	overlay, err := loadEnvRaw(merged)
	if err != nil {
		return nil, err
	}

	cfg := Merge(Merge(DefaultConfig(), file), overlay)
	cfg.ResolveDirs(baseDir)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FindConfigFile returns the first existing config file in baseDir, or empty string.
func FindConfigFile(baseDir string) string {
	for _, name := range configFileNames {
		p := filepath.Join(baseDir, name)
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

// loadFileRaw loads configuration from a specific file path.
// Returns zero-valued config if the path is empty or missing (not defaults).
// JSON files parse too, since YAML is a superset.
func loadFileRaw(configPath string) (*Config, error) {
	if configPath == "" {
		return &Config{}, nil
	}
	data, err := os.ReadFile(configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &Config{}, nil
		}
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(configPath), err)
	}

	return cfg, nil
}

// loadDotEnv reads a .env file into a map without touching the process environment.
func loadDotEnv(path string) (map[string]string, error) {
	vals, err := godotenv.Read(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return vals, nil
}

// loadEnvRaw parses INKWELL_* variables into a zero-valued overlay.
func loadEnvRaw(environment map[string]string) (*Config, error) {
	cfg := &Config{}
	err := env.ParseWithOptions(cfg, env.Options{
		Prefix:      EnvPrefix,
		Environment: environment,
	})
	if err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

// environ returns the process environment as a map.
func environ() map[string]string {
	out := make(map[string]string)
	for _, kv := range os.Environ() {
		if k, v, ok := strings.Cut(kv, "="); ok {
			out[k] = v
		}
	}
	return out
}

// Merge combines base and overlay configs.
// Overlay values take precedence for scalars; arrays are merged and deduplicated.
func Merge(base, overlay *Config) *Config {
	result := &Config{}

	// Scalars: overlay wins if non-zero, else base
	result.SaveDir = firstNonEmpty(overlay.SaveDir, base.SaveDir)
	result.BackupDir = firstNonEmpty(overlay.BackupDir, base.BackupDir)
	result.ExportDir = firstNonEmpty(overlay.ExportDir, base.ExportDir)
	result.LogLevel = firstNonEmpty(overlay.LogLevel, base.LogLevel)

	result.MaxVersions = overlay.MaxVersions
	if result.MaxVersions == 0 {
		result.MaxVersions = base.MaxVersions
	}

	result.MaxBackups = overlay.MaxBackups
	if result.MaxBackups == 0 {
		result.MaxBackups = base.MaxBackups
	}

	result.SaveInterval = overlay.SaveInterval
	if result.SaveInterval == 0 {
		result.SaveInterval = base.SaveInterval
	}

	result.DBMaxOpenConns = overlay.DBMaxOpenConns
	if result.DBMaxOpenConns == 0 {
		result.DBMaxOpenConns = base.DBMaxOpenConns
	}

	result.DBMaxIdleConns = overlay.DBMaxIdleConns
	if result.DBMaxIdleConns == 0 {
		result.DBMaxIdleConns = base.DBMaxIdleConns
	}

	// Booleans: overlay wins if true, else base
	result.CompressBackups = base.CompressBackups || overlay.CompressBackups
	result.AllowUnsafePaths = base.AllowUnsafePaths || overlay.AllowUnsafePaths

	// Arrays: merge and deduplicate
	result.AllowedPaths = mergeStringSlice(base.AllowedPaths, overlay.AllowedPaths)
	result.DisabledTools = mergeStringSlice(base.DisabledTools, overlay.DisabledTools)
	result.DisabledTypes = mergeStringSlice(base.DisabledTypes, overlay.DisabledTypes)

	return result
}

// ResolveDirs makes SaveDir, BackupDir and ExportDir absolute, relative to baseDir.
func (c *Config) ResolveDirs(baseDir string) {
	c.SaveDir = resolveDir(baseDir, c.SaveDir)
	c.BackupDir = resolveDir(baseDir, c.BackupDir)
	c.ExportDir = resolveDir(baseDir, c.ExportDir)
}

func resolveDir(baseDir, dir string) string {
	if dir == "" {
		return ""
	}
	if filepath.IsAbs(dir) {
		return filepath.Clean(dir)
	}
	return filepath.Join(baseDir, dir)
}

// Validate checks the retention caps, the save interval and the store directories.
func (c *Config) Validate() error {
	if c.MaxVersions <= 0 {
		return fmt.Errorf("max_versions must be positive, got %d", c.MaxVersions)
	}
	if c.MaxBackups <= 0 {
		return fmt.Errorf("max_backups must be positive, got %d", c.MaxBackups)
	}
	if c.SaveInterval <= 0 {
		return fmt.Errorf("save_interval must be positive, got %s", c.SaveInterval)
	}
	if strings.TrimSpace(c.SaveDir) == "" || strings.TrimSpace(c.BackupDir) == "" {
		return errors.New("save_dir and backup_dir are required")
	}
	if filepath.Clean(c.SaveDir) == filepath.Clean(c.BackupDir) {
		return fmt.Errorf("save_dir and backup_dir must differ (both %s)", c.SaveDir)
	}
	return nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

// mergeStringSlice combines two slices, trims whitespace, and removes duplicates.
func mergeStringSlice(a, b []string) []string {
	seen := make(map[string]bool)
	result := make([]string, 0, len(a)+len(b))

	for _, s := range append(append([]string{}, a...), b...) {
		s = strings.TrimSpace(s)
		if s != "" && !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}

	if len(result) == 0 {
		return nil
	}
	return result
}
