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

// Package asyncexec runs background work on a bounded goroutine pool and
// decorates executors so task failures never escape into the pool.
package asyncexec

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
)

var (
	// ErrRejected is returned when the queue is full and no more workers may
	// be started.
	ErrRejected = errors.New("task rejected: executor saturated")
	// ErrExecutorClosed is returned for submissions after Close.
	ErrExecutorClosed = errors.New("executor closed")
)

// Executor accepts fire-and-forget work.
type Executor interface {
	Execute(task func()) error
}

// Initializer is implemented by executors that must be started before use.
type Initializer interface {
	Start(ctx context.Context) error
}

// Disposer is implemented by executors holding resources until closed.
type Disposer interface {
	Close() error
}

// PanicError wraps a value recovered from a panicking task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// Unwrap exposes the panic value when it is itself an error.
func (e *PanicError) Unwrap() error {
	err, _ := e.Value.(error)
	return err
}

func callSafely[T any](task func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return task()
}
