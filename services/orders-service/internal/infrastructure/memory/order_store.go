// Package memory is an in-process OrderStore. Transactions are serialized
// by one mutex and roll back by restoring a snapshot. The store also acts as
// the outbox claimer, so a real outbox.Relay can drain it in tests.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/outbox"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/model"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/port"
)

var (
	_ port.OrderStore = (*OrderStore)(nil)
	_ outbox.Claimer  = (*OrderStore)(nil)
)

type state struct {
	orders map[uuid.UUID]model.Order
	outbox []outbox.Entry
}

func (s state) clone() state {
	return state{
		orders: maps.Clone(s.orders),
		outbox: slices.Clone(s.outbox),
	}
}

// OrderStore keeps orders and outbox rows in memory.
type OrderStore struct {
	mu     sync.Mutex
	state  state
	marker port.PendingMarker

	// FailOutbox, when set, is returned by AppendOutbox.
	FailOutbox error
}

// NewOrderStore returns an empty store. marker, when not nil, runs for every
// published payment request the same way the Postgres store's hook does.
func NewOrderStore(marker port.PendingMarker) *OrderStore {
	return &OrderStore{
		state:  state{orders: map[uuid.UUID]model.Order{}},
		marker: marker,
	}
}

// WithinTx implements port.OrderStore.
func (s *OrderStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.OrderTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, &orderTx{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// FindByID implements port.OrderStore.
func (s *OrderStore) FindByID(_ context.Context, id uuid.UUID) (model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.state.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("%w: %s", model.ErrOrderNotFound, id)
	}
	return o, nil
}

// ListByUser implements port.OrderStore.
func (s *OrderStore) ListByUser(_ context.Context, userID uuid.UUID) ([]model.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Order
	for _, o := range s.state.orders {
		if o.OwnedBy(userID) {
			out = append(out, o)
		}
	}
	slices.SortFunc(out, func(a, b model.Order) int {
		return b.CreatedAt().Compare(a.CreatedAt())
	})
	return out, nil
}

// Claim implements outbox.Claimer over the in-memory outbox.
func (s *OrderStore) Claim(ctx context.Context, limit int, fn outbox.ClaimFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var batch []outbox.Entry
	for _, e := range s.state.outbox {
		if !e.Published() {
			batch = append(batch, e)
		}
		if len(batch) == limit {
			break
		}
	}
	if len(batch) == 0 {
		return nil
	}

	snapshot := s.state.clone()
	if err := fn(ctx, batch, &marker{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Outbox returns a copy of the appended outbox entries.
func (s *OrderStore) Outbox() []outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.outbox)
}

type marker struct {
	s *OrderStore
}

func (m *marker) MarkPublished(ctx context.Context, e outbox.Entry, at time.Time) error {
	for i := range m.s.state.outbox {
		row := &m.s.state.outbox[i]
		if row.ID != e.ID || row.Published() {
			continue
		}
		row.PublishedAt = &at
		if m.s.marker != nil && e.EventType == contract.EventPaymentRequested {
			return m.s.marker(ctx, &orderTx{s: m.s}, e.AggregateID)
		}
		return nil
	}
	return nil
}

type orderTx struct {
	s *OrderStore
}

func (tx *orderTx) InsertOrder(_ context.Context, o model.Order) error {
	if _, ok := tx.s.state.orders[o.ID()]; ok {
		return fmt.Errorf("%w: %s", model.ErrOrderExists, o.ID())
	}
	tx.s.state.orders[o.ID()] = o
	return nil
}

func (tx *orderTx) LockOrder(_ context.Context, id uuid.UUID) (model.Order, error) {
	o, ok := tx.s.state.orders[id]
	if !ok {
		return model.Order{}, fmt.Errorf("%w: %s", model.ErrOrderNotFound, id)
	}
	return o, nil
}

func (tx *orderTx) UpdateOrder(_ context.Context, o model.Order) error {
	if _, ok := tx.s.state.orders[o.ID()]; !ok {
		return fmt.Errorf("%w: %s", model.ErrOrderNotFound, o.ID())
	}
	tx.s.state.orders[o.ID()] = o
	return nil
}

func (tx *orderTx) AppendOutbox(_ context.Context, entries ...outbox.Entry) error {
	if tx.s.FailOutbox != nil {
		return tx.s.FailOutbox
	}
	tx.s.state.outbox = append(tx.s.state.outbox, entries...)
	return nil
}
