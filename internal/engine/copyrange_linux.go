//go:build linux

package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
	"golang.org/x/time/rate"
)

// copyRange copies [off, off+n) in the kernel with copy_file_range, falling
// back to reads and writes where the filesystem pair does not support it.
func copyRange(ctx context.Context, lim *rate.Limiter, src, dst *os.File, off, n int64) (int64, error) {
	if err := waitN(ctx, lim, n); err != nil {
		return 0, err
	}

	var done int64
	for done < n {
		soff, doff := off+done, off+done
		w, err := unix.CopyFileRange(int(src.Fd()), &soff, int(dst.Fd()), &doff, int(n-done), 0)
		if err != nil {
			if done == 0 && unsupportedCopyRange(err) {
				return readWriteRange(src, dst, off, n)
			}
			return done, fmt.Errorf("copy_file_range: %w", err)
		}
		if w == 0 {
			break
		}
		done += int64(w)
	}
	return done, nil
}

func unsupportedCopyRange(err error) bool {
	return errors.Is(err, unix.EXDEV) ||
		errors.Is(err, unix.ENOSYS) ||
		errors.Is(err, unix.EOPNOTSUPP) ||
		errors.Is(err, unix.EINVAL)
}
