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

package migrations

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var migrationDuration metric.Float64Histogram

func init() {
	meter := otel.Meter("github.com/cardinalhq/bootkit/migrations")

	var err error
	migrationDuration, err = meter.Float64Histogram(
		"bootkit.migrations.duration",
		metric.WithDescription("Time spent applying schema migrations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		log.Fatalf("failed to create migrations.duration histogram: %v", err)
	}
}

func recordDuration(ctx context.Context, d time.Duration, mode Mode, err error) {
	migrationDuration.Record(context.WithoutCancel(ctx), d.Seconds(),
		metric.WithAttributes(
			attribute.String("mode", mode.String()),
			attribute.Bool("success", err == nil),
		))
}
