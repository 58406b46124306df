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
	"time"

	"github.com/spf13/cobra"

	"github.com/cardinalhq/bootkit/internal/dbopen"
	"github.com/cardinalhq/bootkit/migrations"
)

var migrateTimeout time.Duration

func init() {
	MigrateCmd.Flags().DurationVar(&migrateTimeout, "timeout", 5*time.Minute, "Give up if migrations have not finished after this long")
	rootCmd.AddCommand(MigrateCmd)
}

var MigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database migrations",
	Long:  "Apply pending schema migrations synchronously and exit, regardless of the active profiles",
	RunE:  migrate,
}

func migrate(_ *cobra.Command, _ []string) error {
	doneCtx, doneCancel := handleSignals(context.Background())
	defer doneCancel()

	props, err := newLoader().Load()
	if err != nil {
		return err
	}
	_, shutdown, err := setupTelemetry(doneCtx, props)
	if err != nil {
		return err
	}
	defer func() { _ = shutdown() }()

	ctx, cancel := context.WithTimeout(doneCtx, migrateTimeout)
	defer cancel()

	url, err := dbopen.MigrationURL(props)
	if err != nil {
		return err
	}
	pool, err := dbopen.NewPool(ctx, url, serviceName+"-migrations")
	if err != nil {
		return fmt.Errorf("failed to open migration database: %w", err)
	}
	defer pool.Close()

	m := migrations.NewPostgresMigrator(pool)
	start := time.Now()
	if err := m.Up(ctx); err != nil {
		return fmt.Errorf("migrations failed: %w", err)
	}
	version, _, err := m.Version(ctx)
	if err != nil {
		return err
	}
	slog.Info("Migrations completed successfully",
		slog.Uint64("version", uint64(version)),
		slog.Duration("duration", time.Since(start)))
	return nil
}
