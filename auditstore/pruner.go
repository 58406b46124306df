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

package auditstore

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cardinalhq/bootkit/config"
	"github.com/cardinalhq/bootkit/internal/asyncexec"
)

const (
	pruneInterval = 24 * time.Hour
	pruneTimeout  = 5 * time.Minute
)

type Deleter interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner removes audit events older than the retention period. Each pass
// runs on the executor; failures are logged there and never reach the caller.
type Pruner struct {
	store     Deleter
	exec      *asyncexec.ExceptionHandling
	retention time.Duration
	interval  time.Duration
	now       func() time.Time
}

func NewPruner(store Deleter, exec *asyncexec.ExceptionHandling, cfg config.AuditEventsConfig) *Pruner {
	return &Pruner{
		store:     store,
		exec:      exec,
		retention: cfg.Retention(),
		interval:  pruneInterval,
		now:       time.Now,
	}
}

// Prune schedules one pass. It only fails when the executor refuses the task.
func (p *Pruner) Prune(ctx context.Context) error {
	cutoff := p.now().Add(-p.retention)
	taskCtx := context.WithoutCancel(ctx)
	return p.exec.Execute(func() error {
		ctx, cancel := context.WithTimeout(taskCtx, pruneTimeout)
		defer cancel()

		tracer := otel.Tracer("github.com/cardinalhq/bootkit/auditstore")
		ctx, span := tracer.Start(ctx, "auditstore.prune",
			trace.WithAttributes(attribute.String("cutoff", cutoff.UTC().Format(time.RFC3339))))
		defer span.End()

		n, err := p.store.DeleteOlderThan(ctx, cutoff)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "delete failed")
			return err
		}
		span.SetAttributes(attribute.Int64("deleted", n))
		slog.Info("Pruned audit events", slog.Int64("deleted", n), slog.Time("cutoff", cutoff))
		return nil
	})
}

// Run prunes once immediately and then on every interval until ctx is done.
// A non-positive retention disables pruning.
func (p *Pruner) Run(ctx context.Context) {
	if p.retention <= 0 {
		slog.Info("Audit event pruning disabled")
		return
	}
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		if err := p.Prune(ctx); err != nil {
			slog.Warn("Could not schedule audit event pruning", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
