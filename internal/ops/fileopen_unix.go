//go:build !windows

package ops

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/inkwell/internal/errors"
)

// openNoFollow opens an archive with O_NOFOLLOW so a symlink planted at the
// final path component after validation is refused. O_CLOEXEC keeps the
// descriptor out of child processes.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	if err != nil {
		if stderrors.Is(err, syscall.ELOOP) {
			return nil, errors.NewInvalidRequest("archive path is a symlink")
		}
		if stderrors.Is(err, syscall.ENOENT) && flag&os.O_CREATE == 0 {
			return nil, errors.NewFileNotFound(path)
		}
		return nil, err
	}
	return os.NewFile(uintptr(fd), path), nil
}
