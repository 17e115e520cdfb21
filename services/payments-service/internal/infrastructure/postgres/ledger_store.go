package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/settlement/pkg/inbox"
	"github.com/bibbank/settlement/pkg/money"
	"github.com/bibbank/settlement/pkg/outbox"
	pgpkg "github.com/bibbank/settlement/pkg/postgres"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/model"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/port"
)

// Table names owned by the payments service.
const (
	InboxTable  = "payments_inbox"
	OutboxTable = "payments_outbox"
)

// Compile-time interface check.
var _ port.LedgerStore = (*LedgerStore)(nil)

// LedgerStore implements port.LedgerStore using PostgreSQL. Lock methods use
// SELECT ... FOR UPDATE, so a check and the mutation that depends on it see
// the same row.
type LedgerStore struct {
	pool   *pgxpool.Pool
	inbox  *inbox.Store
	outbox *outbox.Store
}

func NewLedgerStore(pool *pgxpool.Pool) *LedgerStore {
	return &LedgerStore{
		pool:   pool,
		inbox:  inbox.NewStore(InboxTable),
		outbox: outbox.NewStore(pool, OutboxTable),
	}
}

// Outbox exposes the outbox table to the relay.
func (s *LedgerStore) Outbox() *outbox.Store {
	return s.outbox
}

// Inbox exposes the inbox table for inspection.
func (s *LedgerStore) Inbox() *inbox.Store {
	return s.inbox
}

func (s *LedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.LedgerTx) error) error {
	return pgpkg.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &ledgerTx{tx: tx, store: s})
	})
}

func (s *LedgerStore) FindAccount(ctx context.Context, userID uuid.UUID) (model.Account, error) {
	return scanAccount(s.pool.QueryRow(ctx, `
		SELECT user_id, balance, created_at, updated_at
		FROM accounts WHERE user_id = $1
	`, userID), userID)
}

type ledgerTx struct {
	tx    pgx.Tx
	store *LedgerStore
}

func (t *ledgerTx) InsertAccount(ctx context.Context, acc model.Account) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO accounts (user_id, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
	`, acc.UserID(), acc.Balance(), acc.CreatedAt(), acc.UpdatedAt())
	if pgpkg.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", model.ErrAccountExists, acc.UserID())
	}
	if err != nil {
		return fmt.Errorf("insert account: %w", err)
	}
	return nil
}

func (t *ledgerTx) LockAccount(ctx context.Context, userID uuid.UUID) (model.Account, error) {
	return scanAccount(t.tx.QueryRow(ctx, `
		SELECT user_id, balance, created_at, updated_at
		FROM accounts WHERE user_id = $1
		FOR UPDATE
	`, userID), userID)
}

func (t *ledgerTx) UpdateAccount(ctx context.Context, acc model.Account) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE accounts SET balance = $2, updated_at = $3
		WHERE user_id = $1
	`, acc.UserID(), acc.Balance(), acc.UpdatedAt())
	if err != nil {
		return fmt.Errorf("update account: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", model.ErrAccountNotFound, acc.UserID())
	}
	return nil
}

func (t *ledgerTx) InsertHold(ctx context.Context, h model.Hold) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO holds (order_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4)
	`, h.OrderID(), h.UserID(), h.Amount(), h.CreatedAt())
	if pgpkg.IsUniqueViolation(err) {
		return fmt.Errorf("%w: order %s", model.ErrHoldExists, h.OrderID())
	}
	if err != nil {
		return fmt.Errorf("insert hold: %w", err)
	}
	return nil
}

func (t *ledgerTx) LockHold(ctx context.Context, orderID uuid.UUID) (model.Hold, error) {
	var (
		userID                 uuid.UUID
		amount                 money.Amount
		createdAt              time.Time
		releasedAt, capturedAt *time.Time
	)
	err := t.tx.QueryRow(ctx, `
		SELECT user_id, amount, created_at, released_at, captured_at
		FROM holds WHERE order_id = $1
		FOR UPDATE
	`, orderID).Scan(&userID, &amount, &createdAt, &releasedAt, &capturedAt)
	if pgpkg.IsNoRows(err) {
		return model.Hold{}, fmt.Errorf("%w: order %s", model.ErrHoldNotFound, orderID)
	}
	if err != nil {
		return model.Hold{}, fmt.Errorf("lock hold: %w", err)
	}
	return model.ReconstructHold(orderID, userID, amount, createdAt, releasedAt, capturedAt), nil
}

func (t *ledgerTx) UpdateHold(ctx context.Context, h model.Hold) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE holds SET released_at = $2, captured_at = $3
		WHERE order_id = $1
	`, h.OrderID(), h.ReleasedAt(), h.CapturedAt())
	if err != nil {
		return fmt.Errorf("update hold: %w", err)
	}
	return nil
}

func (t *ledgerTx) AdmitInbox(ctx context.Context, rec inbox.Record) (bool, error) {
	return t.store.inbox.Admit(ctx, t.tx, rec)
}

func (t *ledgerTx) AppendOutbox(ctx context.Context, entries ...outbox.Entry) error {
	return t.store.outbox.Append(ctx, t.tx, entries...)
}

func scanAccount(row pgx.Row, userID uuid.UUID) (model.Account, error) {
	var (
		id                   uuid.UUID
		balance              money.Amount
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &balance, &createdAt, &updatedAt)
	if pgpkg.IsNoRows(err) {
		return model.Account{}, fmt.Errorf("%w: %s", model.ErrAccountNotFound, userID)
	}
	if err != nil {
		return model.Account{}, fmt.Errorf("scan account: %w", err)
	}
	return model.ReconstructAccount(id, balance, createdAt, updatedAt), nil
}
