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
	"log"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/cardinalhq/bootkit/internal/asyncexec"

var (
	taskFailures  metric.Int64Counter
	taskRejected  metric.Int64Counter
	submitKindKey = attribute.Key("kind")
)

func init() {
	meter := otel.Meter(meterName)

	var err error
	taskFailures, err = meter.Int64Counter(
		"bootkit.async.task_failures",
		metric.WithDescription("Number of async tasks that returned an error or panicked"),
	)
	if err != nil {
		log.Fatalf("failed to create async.task_failures counter: %v", err)
	}

	taskRejected, err = meter.Int64Counter(
		"bootkit.async.task_rejected",
		metric.WithDescription("Number of tasks rejected because the pool was saturated"),
	)
	if err != nil {
		log.Fatalf("failed to create async.task_rejected counter: %v", err)
	}
}

func registerPoolGauges(p *Pool) {
	meter := otel.Meter(meterName)
	_, err := meter.Int64ObservableGauge(
		"bootkit.async.queue_depth",
		metric.WithDescription("Number of tasks waiting in the pool queue"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(p.QueueLen()), metric.WithAttributes(attribute.String("pool", p.name)))
			return nil
		}),
	)
	if err != nil {
		log.Fatalf("failed to create async.queue_depth gauge: %v", err)
	}
	_, err = meter.Int64ObservableGauge(
		"bootkit.async.workers",
		metric.WithDescription("Number of running pool workers"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(p.Workers(), metric.WithAttributes(attribute.String("pool", p.name)))
			return nil
		}),
	)
	if err != nil {
		log.Fatalf("failed to create async.workers gauge: %v", err)
	}
}

func recordFailure(kind string) {
	taskFailures.Add(context.Background(), 1, metric.WithAttributes(submitKindKey.String(kind)))
}

func recordRejected(pool string) {
	taskRejected.Add(context.Background(), 1, metric.WithAttributes(attribute.String("pool", pool)))
}
