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

// Package logging builds the process-wide slog handler set from the
// logging configuration group.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"sync"
	"time"

	slogmulti "github.com/samber/slog-multi"
	"go.opentelemetry.io/contrib/bridges/otelslog"

	"github.com/cardinalhq/bootkit/config"
)

// Manager owns the default logger. Apply may be called again when the
// configuration changes; the previous Logstash connection is closed.
type Manager struct {
	service string
	out     io.Writer
	level   slog.Leveler
	otel    bool
	attrs   []slog.Attr

	mu       sync.Mutex
	logstash *LogstashWriter
}

type Option func(*Manager)

// WithOutput replaces stdout as the console destination.
func WithOutput(w io.Writer) Option {
	return func(m *Manager) { m.out = w }
}

func WithLevel(level slog.Leveler) Option {
	return func(m *Manager) { m.level = level }
}

// WithOTel adds the OpenTelemetry log bridge to the handler set.
func WithOTel(enabled bool) Option {
	return func(m *Manager) { m.otel = enabled }
}

// WithAttrs adds attributes to every record, e.g. the instance ID.
func WithAttrs(attrs ...slog.Attr) Option {
	return func(m *Manager) { m.attrs = append(m.attrs, attrs...) }
}

func NewManager(service string, opts ...Option) *Manager {
	m := &Manager{
		service: service,
		out:     os.Stdout,
		level:   LevelFromEnv(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// LevelFromEnv returns debug when DEBUG or BOOTKIT_DEBUG is set.
func LevelFromEnv() slog.Level {
	if os.Getenv("DEBUG") != "" || os.Getenv("BOOTKIT_DEBUG") != "" {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

// Apply builds the handlers described by cfg and installs them as the
// default logger, which is also returned.
func (m *Manager) Apply(cfg config.LoggingConfig) (*slog.Logger, error) {
	custom, err := parseCustomFields(cfg.CustomFields)
	if err != nil {
		return nil, err
	}

	var handlers []slog.Handler
	if cfg.UseJSONFormat {
		handlers = append(handlers, newJSONHandler(m.out, m.level, "timestamp", "message").WithAttrs(custom))
	} else {
		handlers = append(handlers, withoutMetrics(slog.NewTextHandler(m.out, &slog.HandlerOptions{Level: m.level})))
	}

	var logstash *LogstashWriter
	if cfg.Logstash.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Logstash.Host, cfg.Logstash.Port)
		logstash = NewLogstashWriter(addr, cfg.Logstash.QueueSize)
		handlers = append(handlers, newJSONHandler(logstash, m.level, "@timestamp", "message").WithAttrs(custom))
	}

	if m.otel {
		handlers = append(handlers, withoutMetrics(otelslog.NewHandler(m.service)))
	}

	logger := slog.New(slogmulti.Fanout(handlers...)).With(
		slog.String("service", m.service),
	)
	if len(m.attrs) > 0 {
		logger = logger.With(attrsToArgs(m.attrs)...)
	}

	m.mu.Lock()
	previous := m.logstash
	m.logstash = logstash
	m.mu.Unlock()

	slog.SetDefault(logger)
	if previous != nil {
		_ = previous.Close()
	}

	if cfg.UseJSONFormat {
		slog.Info("Initializing JSON console logging")
	}
	if logstash != nil {
		slog.Info("Initializing Logstash logging", slog.String("address", logstash.Addr()))
	}
	return logger, nil
}

// Close releases the Logstash connection, if any.
func (m *Manager) Close() error {
	m.mu.Lock()
	ls := m.logstash
	m.logstash = nil
	m.mu.Unlock()
	if ls == nil {
		return nil
	}
	return ls.Close()
}

// Dropped reports how many records the Logstash queue has discarded.
func (m *Manager) Dropped() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.logstash == nil {
		return 0
	}
	return m.logstash.Dropped()
}

func newJSONHandler(w io.Writer, level slog.Leveler, timeKey, messageKey string) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: level,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return a
			}
			switch a.Key {
			case slog.TimeKey:
				if t, ok := a.Value.Any().(time.Time); ok {
					return slog.String(timeKey, t.UTC().Format(time.RFC3339Nano))
				}
			case slog.MessageKey:
				a.Key = messageKey
			}
			return a
		},
	})
}

// parseCustomFields turns a JSON object into attributes sorted by key.
func parseCustomFields(s string) ([]slog.Attr, error) {
	if s == "" {
		return nil, nil
	}
	var fields map[string]any
	if err := json.Unmarshal([]byte(s), &fields); err != nil {
		return nil, fmt.Errorf("invalid logging.customFields: %w", err)
	}
	attrs := make([]slog.Attr, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		attrs = append(attrs, slog.Any(k, fields[k]))
	}
	return attrs, nil
}

func attrsToArgs(attrs []slog.Attr) []any {
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}
	return args
}
