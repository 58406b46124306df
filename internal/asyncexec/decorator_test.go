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
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// inlineExecutor runs tasks on the caller's goroutine and records anything
// that escapes them.
type inlineExecutor struct {
	mu      sync.Mutex
	calls   int
	escaped []any
}

func (x *inlineExecutor) Execute(task func()) (err error) {
	x.mu.Lock()
	x.calls++
	x.mu.Unlock()
	defer func() {
		if r := recover(); r != nil {
			x.mu.Lock()
			x.escaped = append(x.escaped, r)
			x.mu.Unlock()
		}
	}()
	task()
	return nil
}

type lifecycleExecutor struct {
	inlineExecutor
	started, closed int
}

func (x *lifecycleExecutor) Start(context.Context) error {
	x.started++
	return nil
}

func (x *lifecycleExecutor) Close() error {
	x.closed++
	return nil
}

type rejectingExecutor struct{}

func (rejectingExecutor) Execute(func()) error { return ErrRejected }

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestExecuteSwallowsErrors(t *testing.T) {
	logs := captureLogs(t)
	inner := &inlineExecutor{}
	e := NewExceptionHandling(inner)

	require.NoError(t, e.Execute(func() error { return errors.New("boom") }))
	require.NoError(t, e.Execute(func() error { panic("kaboom") }))
	require.NoError(t, e.Execute(func() error { return nil }))

	assert.Equal(t, 3, inner.calls)
	assert.Empty(t, inner.escaped)
	assert.Equal(t, 2, bytes.Count(logs.Bytes(), []byte("Caught async exception")))
	assert.Contains(t, logs.String(), "boom")
	assert.Contains(t, logs.String(), "kaboom")
}

func TestSubmitDeliversSameError(t *testing.T) {
	logs := captureLogs(t)
	inner := &inlineExecutor{}
	e := NewExceptionHandling(inner)
	boom := errors.New("boom")

	f, err := e.Submit(func() (any, error) { return nil, boom })
	require.NoError(t, err)
	_, err = f.Get(t.Context())
	assert.Same(t, boom, err)
	assert.Contains(t, logs.String(), "Caught async exception")
	assert.Empty(t, inner.escaped)
}

func TestSubmitValue(t *testing.T) {
	e := NewExceptionHandling(&inlineExecutor{})

	f, err := SubmitValue(e, func() (int, error) { return 42, nil })
	require.NoError(t, err)
	v, err := f.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestSubmitPanicBecomesPanicError(t *testing.T) {
	captureLogs(t)
	e := NewExceptionHandling(&inlineExecutor{})
	cause := errors.New("cause")

	f, err := SubmitValue(e, func() (string, error) { panic(cause) })
	require.NoError(t, err)
	_, err = f.Get(t.Context())

	var pe *PanicError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, cause, pe.Value)
	assert.NotEmpty(t, pe.Stack)
	assert.ErrorIs(t, err, cause)
}

func TestSubmitRejected(t *testing.T) {
	e := NewExceptionHandling(rejectingExecutor{})
	f, err := e.Submit(func() (any, error) { return 1, nil })
	assert.ErrorIs(t, err, ErrRejected)
	assert.Nil(t, f)
	assert.ErrorIs(t, e.Execute(func() error { return nil }), ErrRejected)
}

func TestFutureGetHonorsContext(t *testing.T) {
	f := newFuture[int]()
	ctx, cancel := context.WithTimeout(t.Context(), 10*time.Millisecond)
	defer cancel()
	_, err := f.Get(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	f.complete(3, nil)
	f.complete(4, errors.New("ignored"))
	v, err := f.Get(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, v)
}

func TestLifecycleForwarding(t *testing.T) {
	plain := NewExceptionHandling(&inlineExecutor{})
	assert.NoError(t, plain.Start(t.Context()))
	assert.NoError(t, plain.Close())

	inner := &lifecycleExecutor{}
	e := NewExceptionHandling(inner)
	require.NoError(t, e.Start(t.Context()))
	require.NoError(t, e.Close())
	assert.Equal(t, 1, inner.started)
	assert.Equal(t, 1, inner.closed)
}
