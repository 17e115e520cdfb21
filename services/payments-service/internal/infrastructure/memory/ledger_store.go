// Package memory is an in-process LedgerStore. Transactions are serialized
// by one mutex, which is at least as strict as the row locks of the
// Postgres store, and roll back by restoring a snapshot.
package memory

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/bibbank/settlement/pkg/inbox"
	"github.com/bibbank/settlement/pkg/outbox"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/model"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/port"
)

var _ port.LedgerStore = (*LedgerStore)(nil)

type state struct {
	accounts map[uuid.UUID]model.Account
	holds    map[uuid.UUID]model.Hold
	inbox    map[uuid.UUID]inbox.Record
	outbox   []outbox.Entry
}

func (s state) clone() state {
	return state{
		accounts: maps.Clone(s.accounts),
		holds:    maps.Clone(s.holds),
		inbox:    maps.Clone(s.inbox),
		outbox:   slices.Clone(s.outbox),
	}
}

// LedgerStore keeps accounts, holds, inbox and outbox rows in maps.
type LedgerStore struct {
	mu    sync.Mutex
	state state

	// FailOutbox, when set, is returned by AppendOutbox.
	FailOutbox error
}

// NewLedgerStore returns an empty store.
func NewLedgerStore() *LedgerStore {
	return &LedgerStore{
		state: state{
			accounts: map[uuid.UUID]model.Account{},
			holds:    map[uuid.UUID]model.Hold{},
			inbox:    map[uuid.UUID]inbox.Record{},
		},
	}
}

// WithinTx implements port.LedgerStore.
func (s *LedgerStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx port.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(ctx, &ledgerTx{s: s}); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// FindAccount implements port.LedgerStore.
func (s *LedgerStore) FindAccount(_ context.Context, userID uuid.UUID) (model.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	acc, ok := s.state.accounts[userID]
	if !ok {
		return model.Account{}, fmt.Errorf("%w: %s", model.ErrAccountNotFound, userID)
	}
	return acc, nil
}

// Hold returns the stored hold for orderID.
func (s *LedgerStore) Hold(orderID uuid.UUID) (model.Hold, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h, ok := s.state.holds[orderID]
	return h, ok
}

// InboxCount returns how many inbox records exist for id.
func (s *LedgerStore) InboxCount(id uuid.UUID) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.state.inbox[id]; ok {
		return 1
	}
	return 0
}

// Outbox returns a copy of the appended outbox entries.
func (s *LedgerStore) Outbox() []outbox.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.state.outbox)
}

type ledgerTx struct {
	s *LedgerStore
}

func (tx *ledgerTx) InsertAccount(_ context.Context, acc model.Account) error {
	if _, ok := tx.s.state.accounts[acc.UserID()]; ok {
		return fmt.Errorf("%w: %s", model.ErrAccountExists, acc.UserID())
	}
	tx.s.state.accounts[acc.UserID()] = acc
	return nil
}

func (tx *ledgerTx) LockAccount(_ context.Context, userID uuid.UUID) (model.Account, error) {
	acc, ok := tx.s.state.accounts[userID]
	if !ok {
		return model.Account{}, fmt.Errorf("%w: %s", model.ErrAccountNotFound, userID)
	}
	return acc, nil
}

func (tx *ledgerTx) UpdateAccount(_ context.Context, acc model.Account) error {
	if _, ok := tx.s.state.accounts[acc.UserID()]; !ok {
		return fmt.Errorf("%w: %s", model.ErrAccountNotFound, acc.UserID())
	}
	tx.s.state.accounts[acc.UserID()] = acc
	return nil
}

func (tx *ledgerTx) InsertHold(_ context.Context, h model.Hold) error {
	if _, ok := tx.s.state.holds[h.OrderID()]; ok {
		return fmt.Errorf("%w: order %s", model.ErrHoldExists, h.OrderID())
	}
	tx.s.state.holds[h.OrderID()] = h
	return nil
}

func (tx *ledgerTx) LockHold(_ context.Context, orderID uuid.UUID) (model.Hold, error) {
	h, ok := tx.s.state.holds[orderID]
	if !ok {
		return model.Hold{}, fmt.Errorf("%w: order %s", model.ErrHoldNotFound, orderID)
	}
	return h, nil
}

func (tx *ledgerTx) UpdateHold(_ context.Context, h model.Hold) error {
	tx.s.state.holds[h.OrderID()] = h
	return nil
}

func (tx *ledgerTx) AdmitInbox(_ context.Context, rec inbox.Record) (bool, error) {
	if _, ok := tx.s.state.inbox[rec.MessageID]; ok {
		return false, nil
	}
	tx.s.state.inbox[rec.MessageID] = rec
	return true, nil
}

func (tx *ledgerTx) AppendOutbox(_ context.Context, entries ...outbox.Entry) error {
	if tx.s.FailOutbox != nil {
		return tx.s.FailOutbox
	}
	tx.s.state.outbox = append(tx.s.state.outbox, entries...)
	return nil
}
