//go:build !linux

package engine

import (
	"context"
	"os"

	"golang.org/x/time/rate"
)

func copyRange(ctx context.Context, lim *rate.Limiter, src, dst *os.File, off, n int64) (int64, error) {
	if err := waitN(ctx, lim, n); err != nil {
		return 0, err
	}
	return readWriteRange(src, dst, off, n)
}
