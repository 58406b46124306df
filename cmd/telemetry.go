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

package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cardinalhq/oteltools/pkg/telemetry"
	"go.opentelemetry.io/contrib/instrumentation/host"
	iruntime "go.opentelemetry.io/contrib/instrumentation/runtime"

	"github.com/cardinalhq/bootkit/config"
	"github.com/cardinalhq/bootkit/internal/idgen"
	"github.com/cardinalhq/bootkit/internal/logging"
)

// handleSignals returns a context cancelled on SIGINT or SIGTERM so ^C and
// k8s both shut the process down gracefully.
func handleSignals(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

func otlpEnabled() bool {
	return os.Getenv("OTEL_SERVICE_NAME") != "" && os.Getenv("ENABLE_OTLP_TELEMETRY") == "true"
}

// setupTelemetry installs the default logger described by props and, when
// OTLP export is enabled, the OpenTelemetry SDK with runtime and host
// metrics. The returned function flushes and stops both.
func setupTelemetry(ctx context.Context, props *config.Properties) (*logging.Manager, func() error, error) {
	otlp := otlpEnabled()
	mgr := logging.NewManager(serviceName,
		logging.WithOTel(otlp),
		logging.WithAttrs(slog.Int64("instanceID", idgen.InstanceID())),
	)
	if _, err := mgr.Apply(props.Logging); err != nil {
		return nil, nil, err
	}

	shutdown := mgr.Close
	if !otlp {
		return mgr, shutdown, nil
	}

	slog.Info("OpenTelemetry exporting enabled")
	otelShutdown, err := telemetry.SetupOTelSDK(ctx)
	if err != nil {
		_ = mgr.Close()
		return nil, nil, fmt.Errorf("failed to setup OpenTelemetry SDK: %w", err)
	}

	if err := iruntime.Start(iruntime.WithMinimumReadMemStatsInterval(10 * time.Second)); err != nil {
		slog.Warn("failed to start runtime metrics", slog.Any("error", err))
	}
	if err := host.Start(); err != nil {
		slog.Warn("failed to start host metrics", slog.Any("error", err))
	}

	return mgr, func() error {
		slog.Info("Shutting down OpenTelemetry SDK")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := otelShutdown(ctx)
		if cerr := mgr.Close(); err == nil {
			err = cerr
		}
		return err
	}, nil
}
