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
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/pgx"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
)

var ErrDirty = errors.New("migration is dirty, please fix it before proceeding")

// PostgresMigrator applies the embedded migrations to a pgx pool.
type PostgresMigrator struct {
	pool  *pgxpool.Pool
	files fs.FS
	table string
}

func NewPostgresMigrator(pool *pgxpool.Pool) *PostgresMigrator {
	return &PostgresMigrator{pool: pool, files: Files(), table: MigrationsTable}
}

// Ping checks that a connection can be acquired.
func (m *PostgresMigrator) Ping(ctx context.Context) error {
	return m.pool.Ping(ctx)
}

// Up applies every pending migration. A dirty database is an error.
// Cancelling ctx stops after the migration in progress.
func (m *PostgresMigrator) Up(ctx context.Context) error {
	return m.withMigrate(func(mg *migrate.Migrate) error {
		stop := context.AfterFunc(ctx, func() {
			select {
			case mg.GracefulStop <- true:
			default:
			}
		})
		defer stop()

		_, dirty, err := mg.Version()
		if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
			return fmt.Errorf("failed to get current version: %w", err)
		}
		if dirty {
			return ErrDirty
		}
		if err := mg.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("migration failed: %w", err)
		}
		return nil
	})
}

// Version returns the applied version, zero when nothing has run yet.
func (m *PostgresMigrator) Version(_ context.Context) (version uint, dirty bool, err error) {
	err = m.withMigrate(func(mg *migrate.Migrate) error {
		var verr error
		version, dirty, verr = mg.Version()
		if errors.Is(verr, migrate.ErrNilVersion) {
			version, dirty = 0, false
			return nil
		}
		if verr != nil {
			return fmt.Errorf("failed to get current version: %w", verr)
		}
		return nil
	})
	return version, dirty, err
}

func (m *PostgresMigrator) withMigrate(fn func(*migrate.Migrate) error) error {
	sourceDriver, err := iofs.New(m.files, ".")
	if err != nil {
		return fmt.Errorf("failed to create iofs driver: %w", err)
	}

	sqlDB := stdlib.OpenDBFromPool(m.pool)
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Debug("Closing migration sqlDB failed", slog.Any("error", err))
		}
	}()

	dbDriver, err := pgx.WithInstance(sqlDB, &pgx.Config{
		MigrationsTable: m.table,
	})
	if err != nil {
		return fmt.Errorf("failed to create pgx driver: %w", err)
	}
	defer func() {
		_ = dbDriver.Close()
	}()

	mg, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	return fn(mg)
}
