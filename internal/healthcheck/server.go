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
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cardinalhq/bootkit/config"
)

type Status int32

const (
	StatusStarting Status = iota
	StatusHealthy
	StatusUnhealthy
)

func (s Status) String() string {
	switch s {
	case StatusStarting:
		return "starting"
	case StatusHealthy:
		return "healthy"
	case StatusUnhealthy:
		return "unhealthy"
	default:
		return "unknown"
	}
}

// ConditionMigrations gates readiness on the schema migration runner.
const ConditionMigrations = "migrations"

type Response struct {
	Healthy    bool            `json:"healthy"`
	Status     string          `json:"status"`
	Conditions map[string]bool `json:"conditions,omitempty"`
}

// Server answers /healthz, /readyz and /livez on its own port. Readiness
// requires the base ready flag and every named condition to be true.
type Server struct {
	port   int
	status atomic.Int32
	ready  atomic.Bool

	mu         sync.RWMutex
	conditions map[string]bool

	server *http.Server
}

func NewServer(cfg config.ServerConfig) *Server {
	port := cfg.HealthCheckPort
	if port == 0 {
		port = config.DefaultHealthCheckPort
	}
	return &Server{
		port:       port,
		conditions: map[string]bool{},
	}
}

func (s *Server) SetStatus(status Status) {
	s.status.Store(int32(status))
	slog.Debug("Health check status updated", slog.String("status", status.String()))
}

func (s *Server) GetStatus() Status {
	return Status(s.status.Load())
}

func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
	slog.Debug("Ready status updated", slog.Bool("ready", ready))
}

func (s *Server) SetReadyCondition(name string, ready bool) {
	s.mu.Lock()
	s.conditions[name] = ready
	s.mu.Unlock()
	slog.Debug("Ready condition updated", slog.String("condition", name), slog.Bool("ready", ready))
}

func (s *Server) ClearReadyCondition(name string) {
	s.mu.Lock()
	delete(s.conditions, name)
	s.mu.Unlock()
}

// ReadyWhenDone holds condition name false until done is closed or ctx ends.
// If result is non-nil and reports an error once done is closed, the
// condition stays false.
func (s *Server) ReadyWhenDone(ctx context.Context, name string, done <-chan struct{}, result func() error) {
	s.SetReadyCondition(name, false)
	go func() {
		select {
		case <-done:
			if result != nil {
				if err := result(); err != nil {
					slog.Error("Ready condition failed", slog.String("condition", name), slog.Any("error", err))
					return
				}
			}
			s.SetReadyCondition(name, true)
		case <-ctx.Done():
		}
	}()
}

func (s *Server) IsReady() bool {
	ready, _ := s.readiness()
	return ready
}

func (s *Server) readiness() (bool, map[string]bool) {
	ready := s.ready.Load()
	s.mu.RLock()
	defer s.mu.RUnlock()
	conditions := make(map[string]bool, len(s.conditions))
	for name, ok := range s.conditions {
		conditions[name] = ok
		ready = ready && ok
	}
	return ready, conditions
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.healthzHandler)
	mux.HandleFunc("/readyz", s.readyzHandler)
	mux.HandleFunc("/livez", s.livezHandler)
	return mux
}

// Start serves until ctx is done.
func (s *Server) Start(ctx context.Context) error {
	l, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("start health check server: %w", err)
	}
	return s.Serve(ctx, l)
}

// Serve is Start on an existing listener.
func (s *Server) Serve(ctx context.Context, l net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 2 * time.Second,
	}

	slog.Info("Starting health check server", slog.String("addr", l.Addr().String()))

	go func() {
		if err := s.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Health check server error", slog.Any("error", err))
		}
	}()

	<-ctx.Done()
	return s.Stop()
}

func (s *Server) Stop() error {
	if s.server == nil {
		return nil
	}

	slog.Info("Stopping health check server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.server.Shutdown(ctx)
}

func (s *Server) healthzHandler(w http.ResponseWriter, _ *http.Request) {
	status := s.GetStatus()
	writeResponse(w, Response{Healthy: status == StatusHealthy, Status: status.String()})
}

func (s *Server) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	ready, conditions := s.readiness()
	writeResponse(w, Response{Healthy: ready, Status: s.GetStatus().String(), Conditions: conditions})
}

func (s *Server) livezHandler(w http.ResponseWriter, _ *http.Request) {
	status := s.GetStatus()
	writeResponse(w, Response{Healthy: status != StatusUnhealthy, Status: status.String()})
}

func writeResponse(w http.ResponseWriter, response Response) {
	w.Header().Set("Content-Type", "application/json")
	if response.Healthy {
		w.WriteHeader(http.StatusOK)
	} else {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Failed to encode health check response", slog.Any("error", err))
	}
}
