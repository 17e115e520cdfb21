package inbox

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memGate is an inbox with transaction-like rollback: an admission becomes
// permanent only when the guarded effect succeeds.
type memGate struct {
	seen    map[uuid.UUID]bool
	pending []uuid.UUID
	err     error
}

func newMemGate() *memGate { return &memGate{seen: map[uuid.UUID]bool{}} }

func (g *memGate) Admit(_ context.Context, rec Record) (bool, error) {
	if g.err != nil {
		return false, g.err
	}
	if g.seen[rec.MessageID] {
		return false, nil
	}
	g.seen[rec.MessageID] = true
	g.pending = append(g.pending, rec.MessageID)
	return true, nil
}

func (g *memGate) rollback() {
	for _, id := range g.pending {
		delete(g.seen, id)
	}
	g.pending = nil
}

func (g *memGate) commit() { g.pending = nil }

func guardTx(t *testing.T, g *memGate, rec Record, apply func(context.Context) error) (Outcome, error) {
	t.Helper()
	out, err := Guard(context.Background(), g, "test", rec, apply)
	if err != nil {
		g.rollback()
	} else {
		g.commit()
	}
	return out, err
}

func TestGuard_SecondDeliveryIsNoOp(t *testing.T) {
	g := newMemGate()
	rec := Record{MessageID: uuid.New(), EventType: "payment_requested"}
	effects := 0
	apply := func(context.Context) error {
		effects++
		return nil
	}

	before := testutil.ToFloat64(duplicatesTotal.WithLabelValues("test"))

	out, err := guardTx(t, g, rec, apply)
	require.NoError(t, err)
	assert.Equal(t, Applied, out)

	out, err = guardTx(t, g, rec, apply)
	require.NoError(t, err)
	assert.Equal(t, Duplicate, out)

	assert.Equal(t, 1, effects)
	assert.Equal(t, before+1, testutil.ToFloat64(duplicatesTotal.WithLabelValues("test")))
}

func TestGuard_FailedEffectLeavesMessageRetryable(t *testing.T) {
	g := newMemGate()
	rec := Record{MessageID: uuid.New(), EventType: "payment_requested"}
	errLocked := errors.New("lock timeout")

	_, err := guardTx(t, g, rec, func(context.Context) error { return errLocked })
	assert.ErrorIs(t, err, errLocked)

	out, err := guardTx(t, g, rec, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, Applied, out, "a rolled back admission must not mark the message as seen")
}

func TestGuard_AdmitError(t *testing.T) {
	g := newMemGate()
	g.err = errors.New("connection refused")
	called := false

	_, err := Guard(context.Background(), g, "test", Record{MessageID: uuid.New()}, func(context.Context) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "applied", Applied.String())
	assert.Equal(t, "duplicate", Duplicate.String())
	assert.Equal(t, "unknown", Outcome(0).String())
}

func TestGateFunc(t *testing.T) {
	var admitted []uuid.UUID
	gate := GateFunc(func(_ context.Context, rec Record) (bool, error) {
		admitted = append(admitted, rec.MessageID)
		return len(admitted) == 1, nil
	})
	rec := Record{MessageID: uuid.New()}

	out, err := Guard(context.Background(), gate, "gate-func", rec, func(context.Context) error { return nil })
	require.NoError(t, err)
	assert.Equal(t, Applied, out)

	out, err = Guard(context.Background(), gate, "gate-func", rec, func(context.Context) error {
		t.Fatal("effect ran for a duplicate")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, Duplicate, out)
	assert.Equal(t, []uuid.UUID{rec.MessageID, rec.MessageID}, admitted)
}
