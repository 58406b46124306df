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
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardinalhq/bootkit/internal/webutil"
)

const (
	insertEvent = `INSERT INTO jhi_persistent_audit_event (principal, event_date, event_type)
VALUES ($1, $2, $3)
RETURNING event_id`

	insertEventData = `INSERT INTO jhi_persistent_audit_evt_data (event_id, name, value)
VALUES ($1, $2, $3)`

	selectEvent = `SELECT event_id, principal, event_date, coalesce(event_type, '')
FROM jhi_persistent_audit_event
WHERE event_id = $1`

	selectEventPage = `SELECT event_id, principal, event_date, coalesce(event_type, '')
FROM jhi_persistent_audit_event
ORDER BY event_date DESC, event_id DESC
LIMIT $1 OFFSET $2`

	selectEventData = `SELECT event_id, name, coalesce(value, '')
FROM jhi_persistent_audit_evt_data
WHERE event_id = ANY($1)`

	countEvents = `SELECT count(*) FROM jhi_persistent_audit_event`

	deleteEventsBefore = `DELETE FROM jhi_persistent_audit_event WHERE event_date < $1`
)

// Store provides access to the audit event tables.
type Store struct {
	connPool *pgxpool.Pool
}

func NewStore(connPool *pgxpool.Pool) *Store {
	return &Store{connPool: connPool}
}

// Insert stores e and its data, returning the event with ID set. A zero
// Timestamp is replaced by the current time.
func (s *Store) Insert(ctx context.Context, e Event) (Event, error) {
	if err := e.Validate(); err != nil {
		return Event{}, err
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	e.Timestamp = e.Timestamp.UTC()

	err := s.execTx(ctx, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, insertEvent, e.Principal, e.Timestamp, e.Type).Scan(&e.ID); err != nil {
			return fmt.Errorf("insert audit event: %w", err)
		}
		if len(e.Data) == 0 {
			return nil
		}

		batch := &pgx.Batch{}
		names := make([]string, 0, len(e.Data))
		for name, value := range e.Data {
			names = append(names, name)
			batch.Queue(insertEventData, e.ID, name, truncate(value, MaxDataValueLen))
		}
		results := tx.SendBatch(ctx, batch)
		var errs *multierror.Error
		for _, name := range names {
			if _, err := results.Exec(); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("insert audit data %q: %w", name, err))
			}
		}
		if err := results.Close(); err != nil && errs.ErrorOrNil() == nil {
			errs = multierror.Append(errs, err)
		}
		return errs.ErrorOrNil()
	})
	if err != nil {
		return Event{}, err
	}
	return e, nil
}

// Get returns the event with id. ok is false when it does not exist.
func (s *Store) Get(ctx context.Context, id int64) (e Event, ok bool, err error) {
	err = s.connPool.QueryRow(ctx, selectEvent, id).Scan(&e.ID, &e.Principal, &e.Timestamp, &e.Type)
	if errors.Is(err, pgx.ErrNoRows) {
		return Event{}, false, nil
	}
	if err != nil {
		return Event{}, false, fmt.Errorf("get audit event %d: %w", id, err)
	}
	events := []Event{e}
	if err := s.loadData(ctx, events); err != nil {
		return Event{}, false, err
	}
	return events[0], true, nil
}

// List returns one page of events, newest first.
func (s *Store) List(ctx context.Context, p webutil.Pageable) (webutil.Page[Event], error) {
	total, err := s.Count(ctx)
	if err != nil {
		return webutil.Page[Event]{}, err
	}
	offset := p.Offset()
	if offset < 0 || int64(offset) >= total || p.Size <= 0 {
		return webutil.NewPage[Event](nil, p, total), nil
	}

	rows, err := s.connPool.Query(ctx, selectEventPage, p.Size, offset)
	if err != nil {
		return webutil.Page[Event]{}, fmt.Errorf("list audit events: %w", err)
	}
	events, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Event, error) {
		var e Event
		err := row.Scan(&e.ID, &e.Principal, &e.Timestamp, &e.Type)
		return e, err
	})
	if err != nil {
		return webutil.Page[Event]{}, fmt.Errorf("list audit events: %w", err)
	}
	if err := s.loadData(ctx, events); err != nil {
		return webutil.Page[Event]{}, err
	}
	return webutil.NewPage(events, p, total), nil
}

func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.connPool.QueryRow(ctx, countEvents).Scan(&n); err != nil {
		return 0, fmt.Errorf("count audit events: %w", err)
	}
	return n, nil
}

// DeleteOlderThan removes events dated before cutoff together with their
// data and returns how many events were removed.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.connPool.Exec(ctx, deleteEventsBefore, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("delete audit events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) loadData(ctx context.Context, events []Event) error {
	if len(events) == 0 {
		return nil
	}
	ids := make([]int64, len(events))
	index := make(map[int64]int, len(events))
	for i, e := range events {
		ids[i] = e.ID
		index[e.ID] = i
	}

	rows, err := s.connPool.Query(ctx, selectEventData, ids)
	if err != nil {
		return fmt.Errorf("load audit data: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			id          int64
			name, value string
		)
		if err := rows.Scan(&id, &name, &value); err != nil {
			return fmt.Errorf("load audit data: %w", err)
		}
		e := &events[index[id]]
		if e.Data == nil {
			e.Data = map[string]string{}
		}
		e.Data[name] = value
	}
	return rows.Err()
}

func (s *Store) execTx(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.connPool.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if committed {
			return
		}
		// Never use the caller ctx for cleanup as it may be cancelled.
		rbCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if rbErr := tx.Rollback(rbCtx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
			err = errors.Join(err, fmt.Errorf("rollback failed: %w", rbErr))
		}
	}()

	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}
