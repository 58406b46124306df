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

package testhelpers

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net/url"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/orlangure/gnomock"
	pgpreset "github.com/orlangure/gnomock/preset/postgres"

	"github.com/cardinalhq/bootkit/migrations"
)

const (
	containerUser     = "postgres"
	containerPassword = "password"
	containerDatabase = "postgres"
)

// SetupTestDB creates a throwaway database, applies the embedded migrations
// and drops it when the test ends. It uses the server named by
// BOOTKIT_TEST_DB_HOST, or starts a Postgres container when
// BOOTKIT_TEST_GNOMOCK=true. Otherwise the test is skipped.
func SetupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	host := os.Getenv("BOOTKIT_TEST_DB_HOST")
	port := getEnvOrDefault("BOOTKIT_TEST_DB_PORT", "5432")
	user := getEnvOrDefault("BOOTKIT_TEST_DB_USER", os.Getenv("USER"))
	baseDB := getEnvOrDefault("BOOTKIT_TEST_DB_NAME", "postgres")
	password := os.Getenv("BOOTKIT_TEST_DB_PASSWORD")

	switch {
	case host != "":
	case os.Getenv("BOOTKIT_TEST_GNOMOCK") == "true":
		container := startPostgres(t)
		host = container.Host
		port = fmt.Sprintf("%d", container.DefaultPort())
		user, password, baseDB = containerUser, containerPassword, containerDatabase
	default:
		t.Skip("BOOTKIT_TEST_DB_HOST not set, skipping database test")
	}

	ctx := context.Background()
	dbName := fmt.Sprintf("test_bootkit_%d_%d", time.Now().Unix(), rand.IntN(10000))

	basePool, err := pgxpool.New(ctx, connString(host, port, user, password, baseDB))
	if err != nil {
		t.Fatalf("Failed to connect to base database: %v", err)
	}

	if _, err := basePool.Exec(ctx, "CREATE DATABASE "+dbName); err != nil {
		basePool.Close()
		t.Fatalf("Failed to create test database %s: %v", dbName, err)
	}

	testPool, err := pgxpool.New(ctx, connString(host, port, user, password, dbName))
	if err != nil {
		basePool.Close()
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	t.Cleanup(func() {
		testPool.Close()
		if _, err := basePool.Exec(context.Background(), "DROP DATABASE IF EXISTS "+dbName); err != nil {
			slog.Error("Failed to drop test database", slog.String("dbName", dbName), slog.Any("error", err))
		}
		basePool.Close()
	})

	if err := migrations.NewPostgresMigrator(testPool).Up(ctx); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return testPool
}

func startPostgres(t *testing.T) *gnomock.Container {
	t.Helper()

	preset := pgpreset.Preset(
		pgpreset.WithDatabase(containerDatabase),
		pgpreset.WithVersion("16"),
	)
	container, err := gnomock.Start(preset)
	if err != nil {
		t.Fatalf("Failed to start Postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := gnomock.Stop(container); err != nil {
			slog.Error("Failed to stop Postgres container", slog.Any("error", err))
		}
	})
	return container
}

func connString(host, port, user, password, dbName string) string {
	u := url.URL{
		Scheme:   "postgresql",
		Host:     host + ":" + port,
		Path:     "/" + dbName,
		RawQuery: "sslmode=disable",
	}
	if password != "" {
		u.User = url.UserPassword(user, password)
	} else {
		u.User = url.User(user)
	}
	return u.String()
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
