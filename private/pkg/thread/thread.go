// Copyright 2020-2024 Buf Technologies, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package thread runs jobs in parallel.
package thread

import (
	"context"
	"runtime"
	"sync"

	"go.uber.org/multierr"
)

var (
	globalParallelism = runtime.GOMAXPROCS(0)
	globalLock        sync.RWMutex
)

// Parallelism gets the current parallelism.
//
// Defaults to runtime.GOMAXPROCS(0).
func Parallelism() int {
	globalLock.RLock()
	defer globalLock.RUnlock()
	return globalParallelism
}

// SetParallelism sets the parallelism.
//
// If parallelism < 1, this sets the parallelism to 1.
func SetParallelism(parallelism int) {
	if parallelism < 1 {
		parallelism = 1
	}
	globalLock.Lock()
	globalParallelism = parallelism
	globalLock.Unlock()
}

// Parallelize runs the jobs in parallel, at most Parallelism() at a time.
//
// Returns the combined error from the jobs. Jobs that have not started when
// the context is done are not run, and the context error is not returned.
func Parallelize(ctx context.Context, jobs []func(context.Context) error, options ...ParallelizeOption) error {
	parallelizeOptions := newParallelizeOptions()
	for _, option := range options {
		option(parallelizeOptions)
	}
	if len(jobs) == 0 {
		return nil
	}
	if parallelizeOptions.cancel != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithCancel(ctx)
		defer cancel()
		*parallelizeOptions.cancel = cancel
	}
	parallelism := Parallelism()
	if parallelism > len(jobs) {
		parallelism = len(jobs)
	}
	semaphoreC := make(chan struct{}, parallelism)
	var retErr error
	var lock sync.Mutex
	var wg sync.WaitGroup
	for _, job := range jobs {
		if ctx.Err() != nil {
			break
		}
		select {
		case <-ctx.Done():
		case semaphoreC <- struct{}{}:
			wg.Add(1)
			go func(job func(context.Context) error) {
				defer func() {
					<-semaphoreC
					wg.Done()
				}()
				if err := job(ctx); err != nil {
					lock.Lock()
					retErr = multierr.Append(retErr, err)
					lock.Unlock()
					if parallelizeOptions.cancelOnFailure && parallelizeOptions.cancel != nil {
						(*parallelizeOptions.cancel)()
					}
				}
			}(job)
		}
	}
	wg.Wait()
	return retErr
}

// ParallelizeOption is an option to Parallelize.
type ParallelizeOption func(*parallelizeOptions)

// ParallelizeWithCancelOnFailure returns a new ParallelizeOption that will
// stop starting jobs once any job fails.
func ParallelizeWithCancelOnFailure() ParallelizeOption {
	return func(parallelizeOptions *parallelizeOptions) {
		parallelizeOptions.cancelOnFailure = true
		parallelizeOptions.cancel = new(context.CancelFunc)
	}
}

type parallelizeOptions struct {
	cancelOnFailure bool
	cancel          *context.CancelFunc
}

func newParallelizeOptions() *parallelizeOptions {
	return &parallelizeOptions{}
}
