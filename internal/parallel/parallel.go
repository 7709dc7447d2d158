// Package parallel splits index ranges into contiguous chunks and processes
// them on an errgroup.
package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Workers normalises a worker count: n <= 0 means GOMAXPROCS.
func Workers(n int) int {
	if n <= 0 {
		return runtime.GOMAXPROCS(0)
	}
	return n
}

// Chunks runs fn over [0, n) split into at most workers contiguous ranges
// [lo, hi). Each call owns its range exclusively, so fn may write to slots
// lo..hi-1 of a shared slice without locking. The first error cancels ctx
// for the remaining calls and is returned.
func Chunks(ctx context.Context, n, workers int, fn func(ctx context.Context, lo, hi int) error) error {
	if n == 0 {
		return ctx.Err()
	}
	workers = min(Workers(workers), n)
	size := (n + workers - 1) / workers

	eg, egctx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		eg.Go(func() error {
			if err := egctx.Err(); err != nil {
				return err
			}
			return fn(egctx, lo, hi)
		})
	}
	return eg.Wait()
}
