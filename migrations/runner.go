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
	"log/slog"
	"sync"
	"time"

	"github.com/cardinalhq/bootkit/config"
)

// SlowThreshold is the duration above which a migration run logs a warning.
const SlowThreshold = 5 * time.Second

// Migrator applies schema migrations.
type Migrator interface {
	Up(ctx context.Context) error
}

// Prober checks that the database is reachable.
type Prober interface {
	Ping(ctx context.Context) error
}

// TaskExecutor runs fire-and-forget work in the background.
type TaskExecutor interface {
	Execute(task func() error) error
}

// Mode is how a Runner applies migrations at startup.
type Mode int

const (
	ModeDisabled Mode = iota
	ModeSync
	ModeAsync
)

func (m Mode) String() string {
	switch m {
	case ModeDisabled:
		return "disabled"
	case ModeSync:
		return "sync"
	case ModeAsync:
		return "async"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ModeFor picks the startup mode for the active profiles. The no-migration
// profile disables migrations; dev and heroku run them in the background so
// the process starts quickly; anything else blocks startup until they finish.
func ModeFor(profiles config.Profiles) Mode {
	switch {
	case profiles.Accepts(config.ProfileNoMigration):
		return ModeDisabled
	case profiles.Accepts(config.ProfileDevelopment, config.ProfileHeroku):
		return ModeAsync
	default:
		return ModeSync
	}
}

// Runner applies migrations once at startup.
type Runner struct {
	migrator  Migrator
	prober    Prober
	executor  TaskExecutor
	mode      Mode
	threshold time.Duration

	done chan struct{}
	once sync.Once
	mu   sync.Mutex
	err  error
}

func NewRunner(migrator Migrator, prober Prober, executor TaskExecutor, profiles config.Profiles) *Runner {
	return &Runner{
		migrator:  migrator,
		prober:    prober,
		executor:  executor,
		mode:      ModeFor(profiles),
		threshold: SlowThreshold,
		done:      make(chan struct{}),
	}
}

func (r *Runner) Mode() Mode {
	return r.mode
}

// Run applies migrations according to the runner's mode.
//
// In sync mode it returns once migrations finish, with their error. In async
// mode it fails fast if the database cannot be reached, then hands the work
// to the executor and returns; a later failure is only logged.
func (r *Runner) Run(ctx context.Context) error {
	switch r.mode {
	case ModeDisabled:
		slog.Debug("Migrations are disabled")
		r.finish(nil)
		return nil

	case ModeAsync:
		if err := r.prober.Ping(ctx); err != nil {
			r.finish(err)
			return fmt.Errorf("database is not reachable: %w", err)
		}
		slog.Warn("Starting migrations asynchronously, your database might not be ready at startup!")
		err := r.executor.Execute(func() error {
			if err := r.migrate(ctx); err != nil {
				slog.Error("Migrations could not start correctly, your database is NOT ready",
					slog.Any("error", err))
			}
			return nil
		})
		if err != nil {
			r.finish(err)
			return fmt.Errorf("failed to schedule migrations: %w", err)
		}
		return nil

	default:
		slog.Debug("Starting migrations synchronously")
		return r.migrate(ctx)
	}
}

func (r *Runner) migrate(ctx context.Context) error {
	start := time.Now()
	err := r.migrator.Up(ctx)
	elapsed := time.Since(start)
	recordDuration(ctx, elapsed, r.mode, err)
	r.finish(err)
	if err != nil {
		return err
	}

	if elapsed > r.threshold {
		slog.Warn("Warning, migrations took more than 5 seconds to start up!",
			slog.Duration("duration", elapsed))
	} else {
		slog.Debug("Migrations updated the database", slog.Duration("duration", elapsed))
	}
	return nil
}

func (r *Runner) finish(err error) {
	r.once.Do(func() {
		r.mu.Lock()
		r.err = err
		r.mu.Unlock()
		close(r.done)
	})
}

// Done is closed when the run has finished, successfully or not.
func (r *Runner) Done() <-chan struct{} {
	return r.done
}

// Err returns the result of a finished run.
func (r *Runner) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}
