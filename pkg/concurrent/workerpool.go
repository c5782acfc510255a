// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package concurrent

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// WorkerPool represents a pool of workers that can process jobs concurrently
type WorkerPool struct {
	workerCount int
}

// NewWorkerPool creates a new worker pool with the specified number of workers
func NewWorkerPool(workerCount int) *WorkerPool {
	if workerCount <= 0 {
		workerCount = 1
	}
	return &WorkerPool{
		workerCount: workerCount,
	}
}

// ForEach runs fn for every item, at most workerCount at a time. A failing or
// panicking item does not stop the others. The returned slice holds one
// entry per item, nil on success. Items not started before ctx is done get ctx.Err().
func ForEach[T any](ctx context.Context, wp *WorkerPool, items []T, fn func(context.Context, T) error) []error {
	if len(items) == 0 {
		return nil
	}

	results := make([]error, len(items))

	// Errors are kept per item, so the group itself never fails
	g := new(errgroup.Group)
	g.SetLimit(wp.workerCount)

	for i, item := range items {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					results[i] = fmt.Errorf("worker panic: %v", r)
				}
			}()

			select {
			case <-ctx.Done():
				results[i] = ctx.Err()
				return nil
			default:
			}

			results[i] = fn(ctx, item)
			return nil
		})
	}

	_ = g.Wait()
	return results
}
