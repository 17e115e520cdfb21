// Package inbox implements the consumer side of exactly-once effect: every
// inbound message is recorded under its id before any business effect runs,
// and a message whose id is already recorded is skipped.
package inbox

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/bibbank/settlement/pkg/postgres"
)

// Record is one row of an inbox table.
type Record struct {
	MessageID   uuid.UUID
	EventType   string
	Payload     json.RawMessage
	ProcessedAt time.Time
}

// Outcome tells the caller what Guard did with a message.
type Outcome int

const (
	// Applied means the message was new and its effect ran.
	Applied Outcome = iota + 1
	// Duplicate means the message id was already recorded; nothing ran.
	Duplicate
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

// Gate admits a record exactly once. Implementations must run inside the
// same transaction as the effect that follows.
type Gate interface {
	Admit(ctx context.Context, rec Record) (bool, error)
}

// GateFunc adapts a transaction-bound admit function to Gate.
type GateFunc func(ctx context.Context, rec Record) (bool, error)

// Admit calls f.
func (f GateFunc) Admit(ctx context.Context, rec Record) (bool, error) {
	return f(ctx, rec)
}

// Guard admits rec through g and runs apply only if rec is new. Both steps
// belong to the caller's transaction, so a failure in apply also undoes the
// admission and the message can be retried.
func Guard(ctx context.Context, g Gate, consumer string, rec Record, apply func(ctx context.Context) error) (Outcome, error) {
	admitted, err := g.Admit(ctx, rec)
	if err != nil {
		return 0, fmt.Errorf("inbox: admit %s: %w", rec.MessageID, err)
	}
	if !admitted {
		duplicatesTotal.WithLabelValues(consumer).Inc()
		return Duplicate, nil
	}

	if err := apply(ctx); err != nil {
		return 0, err
	}
	admittedTotal.WithLabelValues(consumer).Inc()
	return Applied, nil
}

// Store reads and writes one inbox table with columns message_id (primary
// key), event_type, payload and processed_at.
type Store struct {
	table string
}

// NewStore returns a Store over table. table may be schema qualified.
func NewStore(table string) *Store {
	return &Store{table: pgx.Identifier(strings.Split(table, ".")).Sanitize()}
}

// Admit inserts rec and reports whether it was new. The insert uses ON
// CONFLICT DO NOTHING rather than surfacing a unique violation, which would
// abort the surrounding transaction. A concurrent insert of the same id
// waits for the first transaction and then reports a duplicate.
func (s *Store) Admit(ctx context.Context, q postgres.Querier, rec Record) (bool, error) {
	payload := []byte(rec.Payload)
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	tag, err := q.Exec(ctx, `
		INSERT INTO `+s.table+` (message_id, event_type, payload, processed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (message_id) DO NOTHING
	`, rec.MessageID, rec.EventType, payload, rec.ProcessedAt)
	if err != nil {
		return false, fmt.Errorf("inbox: insert %s: %w", rec.MessageID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Count returns how many records exist for id (0 or 1).
func (s *Store) Count(ctx context.Context, q postgres.Querier, id uuid.UUID) (int, error) {
	var n int
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM `+s.table+` WHERE message_id = $1`, id).Scan(&n); err != nil {
		return 0, fmt.Errorf("inbox: count %s: %w", id, err)
	}
	return n, nil
}
