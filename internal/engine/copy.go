package engine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/bamsammich/xcp/internal/event"
)

// ErrVerifyMismatch is returned when a copy's digest differs from its source.
var ErrVerifyMismatch = errors.New("checksum mismatch")

// copyFile copies j into place through a temp file and an atomic rename. It
// returns the bytes it reported as done, even on failure.
func (e *Engine) copyFile(ctx context.Context, j *job) (uint64, error) {
	dst, err := e.destination(j.Entry)
	if err != nil {
		return 0, err
	}

	src, err := os.Open(j.Path)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", j.Path, err)
	}
	defer src.Close()

	fi, err := src.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", j.Path, err)
	}
	if !fi.Mode().IsRegular() {
		return 0, fmt.Errorf("%s is no longer a regular file", j.Path)
	}

	size := fi.Size()
	if size > j.size {
		// Grew since admission.
		if err := e.emit(ctx, event.NewBytesTotal(uint64(size-j.size))); err != nil {
			return 0, err
		}
		j.size = size
	}

	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create parent dir %s: %w", dir, err)
	}

	tmpPath := filepath.Join(dir, fmt.Sprintf(".%s.%s.xcp-tmp", filepath.Base(dst), uuid.New().String()[:8]))
	defer os.Remove(tmpPath) //nolint:errcheck // no-op once renamed

	tmp, err := os.OpenFile(tmpPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, fi.Mode().Perm())
	if err != nil {
		return 0, fmt.Errorf("create tmp %s: %w", tmpPath, err)
	}

	copied, err := e.copyData(ctx, j.Path, src, tmp, size)
	if err != nil {
		tmp.Close()
		return copied, fmt.Errorf("copy %s: %w", j.Path, err)
	}

	if e.cfg.Preserve {
		if err := preserveMetadata(tmp, fi); err != nil {
			tmp.Close()
			return copied, fmt.Errorf("set metadata %s: %w", dst, err)
		}
	}

	if err := tmp.Close(); err != nil {
		return copied, fmt.Errorf("close tmp %s: %w", tmpPath, err)
	}

	if e.cfg.Verify {
		if err := verifyCopy(j.Path, tmpPath); err != nil {
			return copied, err
		}
		e.logger.Debug("verified", "path", dst)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return copied, fmt.Errorf("rename %s -> %s: %w", tmpPath, dst, err)
	}
	return copied, nil
}

// copyData moves size bytes in ChunkSize pieces, reporting each as a Current
// event. An empty file still reports once so the display names it.
func (e *Engine) copyData(ctx context.Context, path string, src, dst *os.File, size int64) (uint64, error) {
	if size == 0 {
		return 0, e.emit(ctx, event.NewCurrent(path, 0, 0, 0))
	}

	var off int64
	for off < size {
		n := min(e.cfg.ChunkSize, size-off)
		w, err := copyRange(ctx, e.limiter, src, dst, off, n)
		if w > 0 {
			off += w
			if eerr := e.emit(ctx, event.NewCurrent(path, uint64(w), uint64(off), uint64(size))); eerr != nil {
				return uint64(off), eerr
			}
		}
		if err != nil {
			return uint64(off), err
		}
		if w < n {
			return uint64(off), fmt.Errorf("short copy at offset %d: file shrank", off)
		}
	}
	return uint64(off), nil
}

// verifyCopy compares the BLAKE3 digests of src and the copy at dst.
func verifyCopy(src, dst string) error {
	want, err := HashFile(src)
	if err != nil {
		return err
	}
	got, err := HashFile(dst)
	if err != nil {
		return err
	}
	if want != got {
		return fmt.Errorf("%w: %s (src %s, dst %s)", ErrVerifyMismatch, src, want[:16], got[:16])
	}
	return nil
}
