package outbox

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/bibbank/settlement/pkg/postgres"
)

// PublishedHook runs inside the claim transaction right after an entry is
// marked published. Services use it to advance aggregate state that depends
// on the event having left the building.
type PublishedHook func(ctx context.Context, tx pgx.Tx, e Entry) error

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPublishedHook registers a hook run for every marked entry.
func WithPublishedHook(h PublishedHook) StoreOption {
	return func(s *Store) { s.onPublished = h }
}

// Store reads and writes one outbox table. The table is expected to have the
// columns id, aggregate_id, event_type, payload, created_at, published_at and
// a monotonically increasing seq.
type Store struct {
	db          postgres.TxBeginner
	table       string
	onPublished PublishedHook
}

var _ Claimer = (*Store)(nil)

// NewStore returns a Store over table. table may be schema qualified.
func NewStore(db postgres.TxBeginner, table string, opts ...StoreOption) *Store {
	s := &Store{
		db:    db,
		table: pgx.Identifier(strings.Split(table, ".")).Sanitize(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Append inserts entries using q, which should be the caller's transaction so
// the events commit or roll back with the state change.
func (s *Store) Append(ctx context.Context, q postgres.Querier, entries ...Entry) error {
	for _, e := range entries {
		_, err := q.Exec(ctx, `
			INSERT INTO `+s.table+` (id, aggregate_id, event_type, payload, created_at)
			VALUES ($1, $2, $3, $4, $5)
		`, e.ID, e.AggregateID, e.EventType, []byte(e.Payload), e.CreatedAt)
		if err != nil {
			return fmt.Errorf("outbox: insert %s event: %w", e.EventType, err)
		}
	}
	return nil
}

// Claim locks up to limit unpublished entries, oldest first, and hands them
// to fn. Marks made through the Marker commit together when fn returns nil;
// if fn returns an error every mark is rolled back. Rows locked by another
// relay are skipped.
func (s *Store) Claim(ctx context.Context, limit int, fn ClaimFunc) error {
	return postgres.WithTransaction(ctx, s.db, func(tx pgx.Tx) error {
		rows, err := tx.Query(ctx, `
			SELECT id, aggregate_id, event_type, payload, created_at
			FROM `+s.table+`
			WHERE published_at IS NULL
			ORDER BY created_at, seq
			LIMIT $1
			FOR UPDATE SKIP LOCKED
		`, limit)
		if err != nil {
			return fmt.Errorf("outbox: select unpublished: %w", err)
		}

		entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
			var e Entry
			err := row.Scan(&e.ID, &e.AggregateID, &e.EventType, &e.Payload, &e.CreatedAt)
			return e, err
		})
		if err != nil {
			return fmt.Errorf("outbox: scan unpublished: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}

		return fn(ctx, entries, &txMarker{store: s, tx: tx})
	})
}

// Pending counts entries not yet published.
func (s *Store) Pending(ctx context.Context, q postgres.Querier) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM `+s.table+` WHERE published_at IS NULL`).Scan(&n); err != nil {
		return 0, fmt.Errorf("outbox: count pending: %w", err)
	}
	return n, nil
}

type txMarker struct {
	store *Store
	tx    pgx.Tx
}

// MarkPublished sets published_at once. A row that is already marked is left untouched.
func (m *txMarker) MarkPublished(ctx context.Context, e Entry, at time.Time) error {
	tag, err := m.tx.Exec(ctx, `
		UPDATE `+m.store.table+` SET published_at = $2
		WHERE id = $1 AND published_at IS NULL
	`, e.ID, at)
	if err != nil {
		return fmt.Errorf("outbox: mark %s published: %w", e.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	if m.store.onPublished != nil {
		if err := m.store.onPublished(ctx, m.tx, e); err != nil {
			return fmt.Errorf("outbox: published hook for %s: %w", e.ID, err)
		}
	}
	return nil
}
