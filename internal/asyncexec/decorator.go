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
	"log/slog"
)

// ExceptionHandling decorates an Executor so that task errors and panics are
// logged and never reach the wrapped executor.
//
// Fire-and-forget tasks (Execute) have their failure logged and dropped.
// Value-returning tasks (Submit, SubmitValue) have their failure logged and
// then delivered, unchanged, through the returned Future.
type ExceptionHandling struct {
	delegate Executor
	init     Initializer
	disposer Disposer
}

// NewExceptionHandling wraps delegate. Start and Close are forwarded only if
// delegate implements Initializer or Disposer.
func NewExceptionHandling(delegate Executor) *ExceptionHandling {
	e := &ExceptionHandling{delegate: delegate}
	if init, ok := delegate.(Initializer); ok {
		e.init = init
	}
	if disposer, ok := delegate.(Disposer); ok {
		e.disposer = disposer
	}
	return e
}

// Execute submits a fire-and-forget task. The returned error only reports
// whether the wrapped executor accepted the task.
func (e *ExceptionHandling) Execute(task func() error) error {
	return e.delegate.Execute(func() {
		_, err := callSafely(func() (struct{}, error) {
			return struct{}{}, task()
		})
		if err != nil {
			handle(err, "execute")
		}
	})
}

// Submit runs task and returns a Future for its result.
func (e *ExceptionHandling) Submit(task func() (any, error)) (*Future[any], error) {
	return SubmitValue(e, task)
}

// SubmitValue is the typed form of Submit.
func SubmitValue[T any](e *ExceptionHandling, task func() (T, error)) (*Future[T], error) {
	f := newFuture[T]()
	err := e.delegate.Execute(func() {
		v, err := callSafely(task)
		if err != nil {
			handle(err, "submit")
		}
		f.complete(v, err)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

func handle(err error, kind string) {
	recordFailure(kind)
	attrs := []any{slog.Any("error", err)}
	var pe *PanicError
	if errors.As(err, &pe) {
		attrs = append(attrs, slog.String("stack", string(pe.Stack)))
	}
	slog.Error("Caught async exception", attrs...)
}

// Start forwards to the wrapped executor when it supports initialization.
func (e *ExceptionHandling) Start(ctx context.Context) error {
	if e.init == nil {
		return nil
	}
	return e.init.Start(ctx)
}

// Close forwards to the wrapped executor when it supports disposal.
func (e *ExceptionHandling) Close() error {
	if e.disposer == nil {
		return nil
	}
	return e.disposer.Close()
}
