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
	"fmt"
	"io/fs"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

// CheckMode controls what CheckExpectedVersion does when the database is
// behind the embedded migrations.
type CheckMode int

const (
	// CheckModeWait polls until the database catches up or the timeout passes.
	CheckModeWait CheckMode = iota
	// CheckModeWarn logs the mismatch once and returns.
	CheckModeWarn
	// CheckModeSkip does nothing.
	CheckModeSkip
)

type checkOptions struct {
	mode          CheckMode
	timeout       time.Duration
	retryInterval time.Duration
	allowDirty    bool
}

type CheckOption func(*checkOptions)

func WithCheckMode(mode CheckMode) CheckOption {
	return func(o *checkOptions) { o.mode = mode }
}

func WithTimeout(d time.Duration) CheckOption {
	return func(o *checkOptions) { o.timeout = d }
}

func WithRetryInterval(d time.Duration) CheckOption {
	return func(o *checkOptions) { o.retryInterval = d }
}

func WithAllowDirty(allow bool) CheckOption {
	return func(o *checkOptions) { o.allowDirty = allow }
}

// VersionReader reports the version applied to a database.
type VersionReader interface {
	Version(ctx context.Context) (version uint, dirty bool, err error)
}

// LatestVersion returns the highest version among the *.up.sql files.
func LatestVersion(files fs.FS) (uint, error) {
	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return 0, fmt.Errorf("failed to read migration directory: %w", err)
	}

	var latest uint64
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".up.sql") {
			continue
		}
		prefix, _, _ := strings.Cut(name, "_")
		v, err := strconv.ParseUint(prefix, 10, 64)
		if err != nil {
			continue
		}
		latest = max(latest, v)
	}
	if latest == 0 {
		return 0, fmt.Errorf("no valid migration files found")
	}
	return uint(latest), nil
}

// CheckExpectedVersion verifies that db has reached the latest embedded
// migration. It is used by instances that do not run migrations themselves.
func CheckExpectedVersion(ctx context.Context, db VersionReader, opts ...CheckOption) error {
	o := checkOptions{
		mode:          CheckModeWait,
		timeout:       60 * time.Second,
		retryInterval: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.mode == CheckModeSkip {
		slog.Debug("Migration version check skipped")
		return nil
	}

	expected, err := LatestVersion(Files())
	if err != nil {
		return err
	}

	slog.Info("Checking migration version",
		slog.Uint64("expected_version", uint64(expected)),
		slog.Duration("timeout", o.timeout))

	deadline := time.Now().Add(o.timeout)
	ticker := time.NewTicker(o.retryInterval)
	defer ticker.Stop()

	for {
		current, dirty, err := db.Version(ctx)
		if err != nil {
			return fmt.Errorf("failed to get current migration version: %w", err)
		}
		if dirty && !o.allowDirty {
			return ErrDirty
		}
		if dirty {
			slog.Warn("Database migration is dirty but allowed to continue")
		}

		switch {
		case current == expected:
			slog.Info("Migration version check passed", slog.Uint64("version", uint64(current)))
			return nil
		case current > expected:
			return fmt.Errorf("database version %d is newer than expected version %d", current, expected)
		case o.mode == CheckModeWarn:
			slog.Warn("Database is behind the expected migration version",
				slog.Uint64("current_version", uint64(current)),
				slog.Uint64("expected_version", uint64(expected)))
			return nil
		case time.Now().After(deadline):
			return fmt.Errorf("timeout waiting for migrations: current version %d, expected %d", current, expected)
		}

		slog.Info("Waiting for migrations to complete",
			slog.Uint64("current_version", uint64(current)),
			slog.Uint64("expected_version", uint64(expected)),
			slog.Duration("remaining_timeout", time.Until(deadline)))

		select {
		case <-ctx.Done():
			return fmt.Errorf("waiting for migrations: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
