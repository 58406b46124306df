// Copyright (C) 2025-2026 CardinalHQ, Inc
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, version 3.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <http://www.gnu.org/licenses/>.

package asyncexec

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	"github.com/cardinalhq/bootkit/config"
)

// Pool is a fixed set of core workers fed from a bounded queue. When the
// queue is full, extra workers are started up to MaxPoolSize; beyond that,
// submissions are rejected with ErrRejected.
type Pool struct {
	name  string
	core  int
	queue chan func()
	extra *semaphore.Weighted

	mu      sync.RWMutex
	closed  bool
	started bool

	wg      sync.WaitGroup
	workers atomic.Int64
}

// NewPool builds an unstarted pool. Tasks queued before Start run once the
// core workers are up; extra workers are started on demand regardless.
func NewPool(name string, cfg config.AsyncConfig) (*Pool, error) {
	if cfg.CorePoolSize < 1 {
		return nil, fmt.Errorf("corePoolSize must be at least 1, got %d", cfg.CorePoolSize)
	}
	if cfg.MaxPoolSize < cfg.CorePoolSize {
		return nil, fmt.Errorf("maxPoolSize %d is less than corePoolSize %d", cfg.MaxPoolSize, cfg.CorePoolSize)
	}
	if cfg.QueueCapacity < 0 {
		return nil, fmt.Errorf("queueCapacity must not be negative, got %d", cfg.QueueCapacity)
	}

	p := &Pool{
		name:  name,
		core:  cfg.CorePoolSize,
		queue: make(chan func(), cfg.QueueCapacity),
		extra: semaphore.NewWeighted(int64(cfg.MaxPoolSize - cfg.CorePoolSize)),
	}
	registerPoolGauges(p)
	return p, nil
}

// Start launches the core workers. Calling it more than once is a no-op.
func (p *Pool) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrExecutorClosed
	}
	if p.started {
		return nil
	}
	p.started = true
	for range p.core {
		p.wg.Add(1)
		p.workers.Add(1)
		go p.coreWorker()
	}
	slog.Info("Started executor pool",
		slog.String("pool", p.name),
		slog.Int("corePoolSize", p.core),
		slog.Int("queueCapacity", cap(p.queue)))
	return nil
}

// Execute queues task, starting an extra worker if the queue is full.
func (p *Pool) Execute(task func()) error {
	if task == nil {
		return errors.New("nil task")
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrExecutorClosed
	}

	select {
	case p.queue <- task:
		return nil
	default:
	}

	if !p.extra.TryAcquire(1) {
		recordRejected(p.name)
		slog.Warn("Executor pool saturated, rejecting task", slog.String("pool", p.name))
		return ErrRejected
	}
	p.wg.Add(1)
	p.workers.Add(1)
	go p.extraWorker(task)
	return nil
}

func (p *Pool) coreWorker() {
	defer p.wg.Done()
	defer p.workers.Add(-1)
	for task := range p.queue {
		p.run(task)
	}
}

// extraWorker runs its first task, then helps drain the queue and exits as
// soon as the queue is empty.
func (p *Pool) extraWorker(task func()) {
	defer p.wg.Done()
	defer p.workers.Add(-1)
	defer p.extra.Release(1)
	p.run(task)
	for {
		select {
		case next, ok := <-p.queue:
			if !ok {
				return
			}
			p.run(next)
		default:
			return
		}
	}
}

func (p *Pool) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Task panicked in executor pool",
				slog.String("pool", p.name),
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
		}
	}()
	task()
}

// Close stops accepting work, runs everything already queued and waits for
// the workers to exit.
func (p *Pool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	started := p.started
	close(p.queue)
	p.mu.Unlock()

	if !started {
		// nobody is reading the queue; drain it here
		for task := range p.queue {
			p.run(task)
		}
	}
	p.wg.Wait()
	slog.Info("Executor pool closed", slog.String("pool", p.name))
	return nil
}

// QueueLen reports the number of queued tasks.
func (p *Pool) QueueLen() int {
	return len(p.queue)
}

// Workers reports the number of running workers.
func (p *Pool) Workers() int64 {
	return p.workers.Load()
}
