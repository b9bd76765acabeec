package ops

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/inkwell/internal/config"
	"github.com/hpungsan/inkwell/internal/errors"
)

// PathCheckMode indicates whether an archive path is about to be read or written.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // import
	PathCheckWrite                      // export
)

// ArchiveExt is the only extension accepted for archive files.
const ArchiveExt = ".jsonl"

// ValidateArchivePath checks an archive path before import or export:
// no ".." components, a .jsonl extension, a parent directory that is exactly
// export_dir or one of allowed_paths, and no symlinks at the parent or the
// file itself. Requiring the file to sit directly in an allowed directory
// leaves no intermediate component to swap between check and open.
func ValidateArchivePath(path string, mode PathCheckMode, cfg *config.Config) error {
	if strings.TrimSpace(path) == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if filepath.Ext(cleaned) != ArchiveExt {
		return errors.NewInvalidRequest("path must have .jsonl extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		allowed, err := allowedDirs(cfg)
		if err != nil {
			return err
		}
		parent := filepath.Dir(absPath)
		if !isDirectlyIn(parent, allowed) {
			return errors.NewInvalidRequest(fmt.Sprintf(
				"file must be directly in an allowed directory (no subdirectories); allowed: %v", allowed))
		}
		if info, err := os.Lstat(parent); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		if mode == PathCheckRead && os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
		return nil
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// allowedDirs returns export_dir plus every absolute allowed_paths entry,
// with symlinked entries resolved to their targets.
func allowedDirs(cfg *config.Config) ([]string, error) {
	var dirs []string
	if cfg != nil {
		if cfg.ExportDir != "" {
			dirs = append(dirs, cfg.ExportDir)
		}
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, p)
			}
		}
	}
	if len(dirs) == 0 {
		return nil, errors.NewInvalidRequest("no archive directory configured")
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		result = append(result, abs)
	}
	return result, nil
}

func isDirectlyIn(parent string, dirs []string) bool {
	parent = filepath.Clean(parent)
	for _, d := range dirs {
		if parent == filepath.Clean(d) {
			return true
		}
	}
	return false
}

// containsTraversal reports whether any component of path is "..".
// Forward slashes are checked on every platform since paths arrive from users.
func containsTraversal(path string) bool {
	for _, part := range strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	}) {
		if part == ".." {
			return true
		}
	}
	return false
}
