// Copyright 2026 The KGEN Authors
// SPDX-License-Identifier: Apache-2.0

package inject

import (
	"sync"
	"time"
)

// pathLocks serializes injections per absolute target path. Each path
// maps to a one-slot token channel; holding the token is holding the
// lock. Waiters block up to the configured bound and then give up
// with a ConcurrencyError, so a stuck injection cannot wedge every
// later directive on the same file.
type pathLocks struct {
	mu    sync.Mutex
	locks map[string]chan struct{}
}

func newPathLocks() *pathLocks {
	return &pathLocks{locks: make(map[string]chan struct{})}
}

func (p *pathLocks) lockFor(path string) chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[path]
	if !ok {
		lock = make(chan struct{}, 1)
		p.locks[path] = lock
	}
	return lock
}

// acquire takes the lock for path, waiting at most wait. It returns
// the release function, or a ConcurrencyError on timeout.
func (p *pathLocks) acquire(path string, wait time.Duration) (func(), error) {
	lock := p.lockFor(path)

	select {
	case lock <- struct{}{}:
	default:
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case lock <- struct{}{}:
		case <-timer.C:
			return nil, &ConcurrencyError{Path: path, Wait: wait}
		}
	}
	return func() { <-lock }, nil
}
