package engine

import (
	"io"
	"os"
)

// readWriteRange copies [off, off+n) from src to the same offset in dst with
// plain reads and writes. A short count means src ended early.
func readWriteRange(src, dst *os.File, off, n int64) (int64, error) {
	return io.Copy(io.NewOffsetWriter(dst, off), io.NewSectionReader(src, off, n))
}
