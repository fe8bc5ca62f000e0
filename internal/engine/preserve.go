//go:build linux || darwin

package engine

import (
	"fmt"
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

// preserveMetadata copies permission bits and access/modification times from
// the source's FileInfo onto the open temp file.
func preserveMetadata(f *os.File, fi os.FileInfo) error {
	if err := unix.Fchmod(int(f.Fd()), uint32(fi.Mode().Perm())); err != nil {
		return fmt.Errorf("fchmod: %w", err)
	}

	atime := fi.ModTime()
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		atime = atimeFromStat(st)
	}
	times := []unix.Timespec{
		unix.NsecToTimespec(atime.UnixNano()),
		unix.NsecToTimespec(fi.ModTime().UnixNano()),
	}
	// Path-based: darwin has no AT_EMPTY_PATH.
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, f.Name(), times, 0); err != nil {
		return fmt.Errorf("utimensat: %w", err)
	}
	return nil
}
