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

// Package metricslog periodically writes the registered Prometheus metrics
// to the log, tagged with the metrics marker.
package metricslog

import (
	"context"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/cardinalhq/bootkit/config"
	"github.com/cardinalhq/bootkit/internal/logging"
)

type Reporter struct {
	gatherer prometheus.Gatherer
	interval time.Duration
}

func NewReporter(g prometheus.Gatherer, cfg config.MetricsLogsConfig) *Reporter {
	interval := time.Duration(cfg.ReportFrequency) * time.Second
	if interval <= 0 {
		interval = time.Duration(config.DefaultMetricsLogsReportSeconds) * time.Second
	}
	return &Reporter{gatherer: g, interval: interval}
}

// Run reports every interval until ctx is done.
func (r *Reporter) Run(ctx context.Context) {
	slog.Info("Reporting metrics to the log", slog.Duration("interval", r.interval))
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Report(ctx)
		}
	}
}

// Report logs one record per metric series.
func (r *Reporter) Report(ctx context.Context) {
	families, err := r.gatherer.Gather()
	if err != nil {
		slog.Warn("Gathering metrics failed", slog.Any("error", err))
		if len(families) == 0 {
			return
		}
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			attrs := []slog.Attr{
				logging.MetricsMarker(),
				slog.String("name", mf.GetName()),
				slog.String("type", typeName(mf.GetType())),
			}
			if labels := labelAttrs(m.GetLabel()); len(labels) > 0 {
				attrs = append(attrs, slog.Any("labels", slog.GroupValue(labels...)))
			}
			attrs = append(attrs, valueAttrs(mf.GetType(), m)...)
			slog.LogAttrs(ctx, slog.LevelInfo, "metric", attrs...)
		}
	}
}

func typeName(t dto.MetricType) string {
	switch t {
	case dto.MetricType_COUNTER:
		return "counter"
	case dto.MetricType_GAUGE:
		return "gauge"
	case dto.MetricType_HISTOGRAM, dto.MetricType_GAUGE_HISTOGRAM:
		return "histogram"
	case dto.MetricType_SUMMARY:
		return "summary"
	default:
		return "untyped"
	}
}

func labelAttrs(pairs []*dto.LabelPair) []slog.Attr {
	out := make([]slog.Attr, 0, len(pairs))
	for _, lp := range pairs {
		out = append(out, slog.String(lp.GetName(), lp.GetValue()))
	}
	return out
}

func valueAttrs(t dto.MetricType, m *dto.Metric) []slog.Attr {
	switch t {
	case dto.MetricType_COUNTER:
		return []slog.Attr{slog.Float64("value", m.GetCounter().GetValue())}
	case dto.MetricType_GAUGE:
		return []slog.Attr{slog.Float64("value", m.GetGauge().GetValue())}
	case dto.MetricType_HISTOGRAM, dto.MetricType_GAUGE_HISTOGRAM:
		h := m.GetHistogram()
		return []slog.Attr{
			slog.Uint64("count", h.GetSampleCount()),
			slog.Float64("sum", h.GetSampleSum()),
		}
	case dto.MetricType_SUMMARY:
		s := m.GetSummary()
		return []slog.Attr{
			slog.Uint64("count", s.GetSampleCount()),
			slog.Float64("sum", s.GetSampleSum()),
		}
	default:
		return []slog.Attr{slog.Float64("value", m.GetUntyped().GetValue())}
	}
}
