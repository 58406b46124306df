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

package logging

import (
	"context"
	"log/slog"

	slogmulti "github.com/samber/slog-multi"
)

const (
	MarkerKey     = "marker"
	MarkerMetrics = "metrics"
)

// MetricsMarker tags a record as periodic metrics output. Such records only
// reach the JSON console and Logstash handlers. The attribute must be
// passed on the logging call itself, not through Logger.With.
func MetricsMarker() slog.Attr {
	return slog.String(MarkerKey, MarkerMetrics)
}

func isMetrics(r slog.Record) bool {
	found := false
	r.Attrs(func(a slog.Attr) bool {
		if a.Key == MarkerKey && a.Value.Kind() == slog.KindString && a.Value.String() == MarkerMetrics {
			found = true
			return false
		}
		return true
	})
	return found
}

func withoutMetrics(h slog.Handler) slog.Handler {
	return slogmulti.
		Pipe(slogmulti.NewHandleInlineMiddleware(func(ctx context.Context, record slog.Record, next func(context.Context, slog.Record) error) error {
			if isMetrics(record) {
				return nil
			}
			return next(ctx, record)
		})).
		Handler(h)
}
