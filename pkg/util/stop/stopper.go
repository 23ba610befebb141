// Copyright 2022-present, Shanghai Yunxi Technology Co, Ltd. All rights reserved.
//
// This software (KWDB) is licensed under Mulan PSL v2.
// You can use this software according to the terms and conditions of the Mulan PSL v2.
// You may obtain a copy of Mulan PSL v2 at:
//          http://license.coscl.org.cn/MulanPSL2
// THIS SOFTWARE IS PROVIDED ON AN "AS IS" BASIS, WITHOUT WARRANTIES OF ANY KIND,
// EITHER EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO NON-INFRINGEMENT,
// MERCHANTABILITY OR FIT FOR A PARTICULAR PURPOSE.
// See the Mulan PSL v2 for more details.

// Package stop provides cooperative shutdown for the background tasks the
// manifest subsystem spawns (the checkpointer and the GC loop), in the shape
// of kwbase's pkg/util/stop: callers register async tasks with RunAsyncTask,
// watch ShouldQuiesce() for the shutdown signal, and Stop() blocks until
// every registered task and closer has finished.
package stop

import (
	"context"
	"sync"

	"github.com/cockroachdb/errors"
)

// ErrStopped is returned by RunAsyncTask after the Stopper has begun
// quiescing.
var ErrStopped = errors.New("stopper is stopping")

// Closer is a resource that must be released when the Stopper stops.
type Closer interface {
	Close()
}

// CloserFn adapts a function to the Closer interface.
type CloserFn func()

// Close implements Closer.
func (f CloserFn) Close() { f() }

// Stopper coordinates shutdown of a set of background tasks.
type Stopper struct {
	quiesce chan struct{}
	stopped chan struct{}

	mu struct {
		sync.Mutex
		stopping bool
		closers  []Closer
	}
	tasks sync.WaitGroup
}

// NewStopper constructs a running Stopper.
func NewStopper() *Stopper {
	s := &Stopper{
		quiesce: make(chan struct{}),
		stopped: make(chan struct{}),
	}
	return s
}

// ShouldQuiesce returns a channel that is closed once Stop has been called.
// Long-running loops select on this to know when to exit.
func (s *Stopper) ShouldQuiesce() <-chan struct{} {
	return s.quiesce
}

// RunAsyncTask runs fn in a new goroutine, tracking it so Stop can wait for
// completion. It fails if the Stopper is already stopping.
func (s *Stopper) RunAsyncTask(ctx context.Context, name string, fn func(ctx context.Context)) error {
	s.mu.Lock()
	if s.mu.stopping {
		s.mu.Unlock()
		return errors.Wrapf(ErrStopped, "starting task %q", name)
	}
	s.tasks.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.tasks.Done()
		fn(ctx)
	}()
	return nil
}

// AddCloser registers a Closer to run during Stop, after all tasks have
// exited, in LIFO order (matching kwbase's AddCloser contract used by
// CreateTempDir's lock-file release).
func (s *Stopper) AddCloser(c Closer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mu.closers = append(s.mu.closers, c)
}

// Stop signals every task watching ShouldQuiesce to exit, waits for them,
// then runs registered closers and returns.
func (s *Stopper) Stop(ctx context.Context) {
	s.mu.Lock()
	if s.mu.stopping {
		s.mu.Unlock()
		<-s.stopped
		return
	}
	s.mu.stopping = true
	s.mu.Unlock()

	close(s.quiesce)
	s.tasks.Wait()

	s.mu.Lock()
	closers := s.mu.closers
	s.mu.closers = nil
	s.mu.Unlock()

	for i := len(closers) - 1; i >= 0; i-- {
		closers[i].Close()
	}
	close(s.stopped)
}

// IsStopped reports whether Stop has completed.
func (s *Stopper) IsStopped() bool {
	select {
	case <-s.stopped:
		return true
	default:
		return false
	}
}
