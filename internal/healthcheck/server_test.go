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

package healthcheck

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cardinalhq/bootkit/config"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusStarting, "starting"},
		{StatusHealthy, "healthy"},
		{StatusUnhealthy, "unhealthy"},
		{Status(999), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.status.String())
		})
	}
}

func TestNewServerPort(t *testing.T) {
	assert.Equal(t, config.DefaultHealthCheckPort, NewServer(config.ServerConfig{}).port)
	assert.Equal(t, 9090, NewServer(config.ServerConfig{HealthCheckPort: 9090}).port)
}

func get(t *testing.T, h http.Handler, path string) (int, Response) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestHealthEndpoints(t *testing.T) {
	s := NewServer(config.ServerConfig{})
	h := s.Handler()

	code, resp := get(t, h, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "starting", resp.Status)

	code, _ = get(t, h, "/livez")
	assert.Equal(t, http.StatusOK, code)

	s.SetStatus(StatusHealthy)
	code, resp = get(t, h, "/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, resp.Healthy)

	s.SetStatus(StatusUnhealthy)
	code, _ = get(t, h, "/livez")
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestReadyConditions(t *testing.T) {
	s := NewServer(config.ServerConfig{})
	h := s.Handler()

	code, _ := get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)

	s.SetReady(true)
	assert.True(t, s.IsReady())

	s.SetReadyCondition("cache", false)
	code, resp := get(t, h, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, map[string]bool{"cache": false}, resp.Conditions)

	s.SetReadyCondition("cache", true)
	assert.True(t, s.IsReady())

	s.SetReadyCondition("cache", false)
	s.ClearReadyCondition("cache")
	assert.True(t, s.IsReady())
}

func TestReadyWhenDone(t *testing.T) {
	s := NewServer(config.ServerConfig{})
	s.SetReady(true)

	done := make(chan struct{})
	s.ReadyWhenDone(t.Context(), ConditionMigrations, done, func() error { return nil })
	assert.False(t, s.IsReady())

	close(done)
	assert.Eventually(t, s.IsReady, time.Second, 5*time.Millisecond)
}

func TestReadyWhenDoneFailed(t *testing.T) {
	s := NewServer(config.ServerConfig{})
	s.SetReady(true)

	done := make(chan struct{})
	var checked atomic.Bool
	s.ReadyWhenDone(t.Context(), ConditionMigrations, done, func() error {
		checked.Store(true)
		return errors.New("migration failed")
	})

	close(done)
	assert.Eventually(t, checked.Load, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.False(t, s.IsReady())

	_, conditions := s.readiness()
	assert.Equal(t, map[string]bool{ConditionMigrations: false}, conditions)
}

func TestServeStopsWithContext(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	s := NewServer(config.ServerConfig{})
	s.SetStatus(StatusHealthy)

	ctx, cancel := context.WithCancel(t.Context())
	errCh := make(chan error, 1)
	go func() { errCh <- s.Serve(ctx, l) }()

	url := "http://" + l.Addr().String() + "/healthz"
	assert.Eventually(t, func() bool {
		resp, err := http.Get(url)
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
