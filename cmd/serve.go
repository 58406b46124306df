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
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/cardinalhq/bootkit/auditstore"
	"github.com/cardinalhq/bootkit/config"
	"github.com/cardinalhq/bootkit/internal/asyncexec"
	"github.com/cardinalhq/bootkit/internal/cachekey"
	"github.com/cardinalhq/bootkit/internal/dbopen"
	"github.com/cardinalhq/bootkit/internal/debugging"
	"github.com/cardinalhq/bootkit/internal/healthcheck"
	"github.com/cardinalhq/bootkit/internal/httpserver"
	"github.com/cardinalhq/bootkit/internal/metricslog"
	"github.com/cardinalhq/bootkit/internal/security"
	"github.com/cardinalhq/bootkit/migrations"
)

var buildInfoDirs []string

func init() {
	ServeCmd.Flags().StringSliceVar(&buildInfoDirs, "build-info-dir", []string{".", "./config"}, "Directories searched for git.properties and META-INF/build-info.properties")
	rootCmd.AddCommand(ServeCmd)
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server",
	Long:  "Apply schema migrations according to the active profiles and serve the HTTP API and health checks",
	RunE: func(_ *cobra.Command, _ []string) error {
		doneCtx, doneCancel := handleSignals(context.Background())
		defer doneCancel()
		return serve(doneCtx)
	},
}

func serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	loader := newLoader()
	props, err := loader.Load()
	if err != nil {
		return err
	}

	logs, shutdown, err := setupTelemetry(ctx, props)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(); err != nil {
			slog.Error("Telemetry shutdown failed", slog.Any("error", err))
		}
	}()
	loader.Watch(func(p *config.Properties) {
		if _, err := logs.Apply(p.Logging); err != nil {
			slog.Error("Could not apply new logging configuration", slog.Any("error", err))
		}
	})

	active := props.ActiveProfiles()
	slog.Info("Starting", slog.Any("profiles", active))
	if active.Accepts(config.ProfileDevelopment) && active.Accepts(config.ProfileProduction) {
		slog.Error("You have misconfigured your application! It should not run with both the 'dev' and 'prod' profiles at the same time.")
	}

	info, err := config.ReadBuildInfo(buildInfoDirs...)
	if err != nil {
		slog.Warn("Ignoring unreadable build info", slog.Any("error", err))
	}
	info = info.Or(config.BinaryBuildInfo())

	health := healthcheck.NewServer(props.Server)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return health.Start(gctx) })
	g.Go(func() error { return debugging.RunPprof(gctx, props.Server) })
	fail := func(err error) error {
		health.SetStatus(healthcheck.StatusUnhealthy)
		cancel()
		return errors.Join(err, g.Wait())
	}

	appPool, migrator, closeDBs, err := openDatabases(gctx, props)
	if err != nil {
		return fail(err)
	}
	defer closeDBs()

	// Closed before the pools so queued work can still reach the database.
	pool, err := asyncexec.NewPool("async", props.Async)
	if err != nil {
		return fail(err)
	}
	executor := asyncexec.NewExceptionHandling(pool)
	if err := executor.Start(gctx); err != nil {
		return fail(err)
	}
	defer func() {
		if err := executor.Close(); err != nil {
			slog.Error("Executor shutdown failed", slog.Any("error", err))
		}
	}()

	runner := migrations.NewRunner(migrator, migrator, executor, active)
	health.ReadyWhenDone(gctx, healthcheck.ConditionMigrations, runner.Done(), runner.Err)
	if err := runner.Run(gctx); err != nil {
		return fail(err)
	}
	if runner.Mode() == migrations.ModeDisabled {
		if err := migrations.CheckExpectedVersion(gctx, migrator, migrations.WithCheckMode(migrations.CheckModeWarn)); err != nil {
			slog.Warn("Migration version check failed", slog.Any("error", err))
		}
	}

	tokens, err := security.NewTokenProvider(props.Security.Authentication.JWT)
	if err != nil && !errors.Is(err, security.ErrNoSecret) {
		return fail(err)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	store := auditstore.NewStore(appPool)
	srv, err := httpserver.New(httpserver.Options{
		Properties: props,
		Audits:     store,
		AuditLog:   store,
		Executor:   executor,
		Tokens:     tokens,
		Registry:   registry,
		Keys:       cachekey.NewGenerator(info, security.NewRandomSource()),
		BuildInfo:  info,
	})
	if err != nil {
		return fail(err)
	}

	g.Go(func() error { return srv.Run(gctx) })
	g.Go(func() error {
		auditstore.NewPruner(store, executor, props.AuditEvents).Run(gctx)
		return nil
	})
	if props.Metrics.Logs.Enabled {
		g.Go(func() error {
			metricslog.NewReporter(registry, props.Metrics.Logs).Run(gctx)
			return nil
		})
	}

	health.SetStatus(healthcheck.StatusHealthy)
	health.SetReady(true)

	return g.Wait()
}

// openDatabases returns the application pool and a migrator, which shares
// that pool unless the migration group points elsewhere.
func openDatabases(ctx context.Context, props *config.Properties) (*pgxpool.Pool, *migrations.PostgresMigrator, func(), error) {
	appURL, err := dbopen.DatasourceURL(props.Datasource)
	if err != nil {
		return nil, nil, nil, err
	}
	migrationURL, err := dbopen.MigrationURL(props)
	if err != nil {
		return nil, nil, nil, err
	}

	appPool, err := dbopen.NewPool(ctx, appURL, serviceName)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if migrationURL == appURL {
		return appPool, migrations.NewPostgresMigrator(appPool), appPool.Close, nil
	}

	migrationPool, err := dbopen.NewPool(ctx, migrationURL, serviceName+"-migrations")
	if err != nil {
		appPool.Close()
		return nil, nil, nil, fmt.Errorf("failed to open migration database: %w", err)
	}
	closeAll := func() {
		migrationPool.Close()
		appPool.Close()
	}
	return appPool, migrations.NewPostgresMigrator(migrationPool), closeAll, nil
}
