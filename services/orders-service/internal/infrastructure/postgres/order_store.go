package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/money"
	"github.com/bibbank/settlement/pkg/outbox"
	pgpkg "github.com/bibbank/settlement/pkg/postgres"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/model"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/port"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/valueobject"
)

// OutboxTable is the outbox owned by the orders service.
const OutboxTable = "orders_outbox"

const selectOrder = `
	SELECT id, user_id, amount, description, status, created_at, updated_at
	FROM orders`

// Compile-time interface check.
var _ port.OrderStore = (*OrderStore)(nil)

// OrderStore implements port.OrderStore using PostgreSQL.
type OrderStore struct {
	pool   *pgxpool.Pool
	outbox *outbox.Store
}

// NewOrderStore creates the store. marker, when not nil, runs inside the
// relay's claim transaction for every payment request that is marked
// published, so the order moves to PENDING atomically with the mark.
func NewOrderStore(pool *pgxpool.Pool, marker port.PendingMarker) *OrderStore {
	s := &OrderStore{pool: pool}

	var opts []outbox.StoreOption
	if marker != nil {
		opts = append(opts, outbox.WithPublishedHook(func(ctx context.Context, tx pgx.Tx, e outbox.Entry) error {
			if e.EventType != contract.EventPaymentRequested {
				return nil
			}
			return marker(ctx, &orderTx{tx: tx, store: s}, e.AggregateID)
		}))
	}
	s.outbox = outbox.NewStore(pool, OutboxTable, opts...)
	return s
}

// Outbox exposes the outbox table to the relay.
func (s *OrderStore) Outbox() *outbox.Store {
	return s.outbox
}

func (s *OrderStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.OrderTx) error) error {
	return pgpkg.WithTransaction(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &orderTx{tx: tx, store: s})
	})
}

func (s *OrderStore) FindByID(ctx context.Context, id uuid.UUID) (model.Order, error) {
	o, err := scanOrder(s.pool.QueryRow(ctx, selectOrder+` WHERE id = $1`, id))
	if pgpkg.IsNoRows(err) {
		return model.Order{}, fmt.Errorf("%w: %s", model.ErrOrderNotFound, id)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("find order: %w", err)
	}
	return o, nil
}

func (s *OrderStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]model.Order, error) {
	rows, err := s.pool.Query(ctx, selectOrder+` WHERE user_id = $1 ORDER BY created_at DESC, id`, userID)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (model.Order, error) {
		return scanOrder(row)
	})
	if err != nil {
		return nil, fmt.Errorf("scan orders: %w", err)
	}
	return orders, nil
}

type orderTx struct {
	tx    pgx.Tx
	store *OrderStore
}

func (t *orderTx) InsertOrder(ctx context.Context, o model.Order) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO orders (id, user_id, amount, description, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, o.ID(), o.UserID(), o.Amount(), o.Description(), o.Status().String(), o.CreatedAt(), o.UpdatedAt())
	if pgpkg.IsUniqueViolation(err) {
		return fmt.Errorf("%w: %s", model.ErrOrderExists, o.ID())
	}
	if err != nil {
		return fmt.Errorf("insert order: %w", err)
	}
	return nil
}

func (t *orderTx) LockOrder(ctx context.Context, id uuid.UUID) (model.Order, error) {
	o, err := scanOrder(t.tx.QueryRow(ctx, selectOrder+` WHERE id = $1 FOR UPDATE`, id))
	if pgpkg.IsNoRows(err) {
		return model.Order{}, fmt.Errorf("%w: %s", model.ErrOrderNotFound, id)
	}
	if err != nil {
		return model.Order{}, fmt.Errorf("lock order: %w", err)
	}
	return o, nil
}

func (t *orderTx) UpdateOrder(ctx context.Context, o model.Order) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE orders SET status = $2, updated_at = $3
		WHERE id = $1
	`, o.ID(), o.Status().String(), o.UpdatedAt())
	if err != nil {
		return fmt.Errorf("update order: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", model.ErrOrderNotFound, o.ID())
	}
	return nil
}

func (t *orderTx) AppendOutbox(ctx context.Context, entries ...outbox.Entry) error {
	return t.store.outbox.Append(ctx, t.tx, entries...)
}

func scanOrder(row pgx.Row) (model.Order, error) {
	var (
		id, userID           uuid.UUID
		amount               money.Amount
		description, status  string
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&id, &userID, &amount, &description, &status, &createdAt, &updatedAt); err != nil {
		return model.Order{}, err
	}
	st, err := valueobject.NewOrderStatus(status)
	if err != nil {
		return model.Order{}, fmt.Errorf("order %s: %w", id, err)
	}
	return model.ReconstructOrder(id, userID, amount, description, st, createdAt, updatedAt), nil
}
