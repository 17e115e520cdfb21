//go:build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/settlement/pkg/backoff"
	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/events"
	"github.com/bibbank/settlement/pkg/outbox"
	"github.com/bibbank/settlement/pkg/rabbitmq"
	"github.com/bibbank/settlement/pkg/testutil"
	"github.com/bibbank/settlement/services/orders-service/internal/application/dto"
	"github.com/bibbank/settlement/services/orders-service/internal/application/usecase"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/model"
	"github.com/bibbank/settlement/services/orders-service/internal/domain/valueobject"
	"github.com/bibbank/settlement/services/orders-service/internal/infrastructure/postgres"
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	pg := testutil.NewPostgresContainer(ctx, t)
	t.Cleanup(func() { pg.Cleanup(t) })

	pg.RunMigrations(t, postgres.Migrations, postgres.MigrationsDir)

	return pg.Pool
}

func newStore(pool *pgxpool.Pool) *postgres.OrderStore {
	return postgres.NewOrderStore(pool, usecase.NewMarkOrderPending().Apply)
}

func createOrder(t *testing.T, store *postgres.OrderStore, userID uuid.UUID) dto.OrderResponse {
	t.Helper()
	resp, err := usecase.NewCreateOrder(store).Execute(context.Background(), dto.CreateOrderRequest{
		UserID:      userID,
		Amount:      testutil.Amount("40"),
		Description: "integration",
	})
	require.NoError(t, err)
	return resp
}

func TestOrderStore_RoundTrip(t *testing.T) {
	pool := setupTestDB(t)
	store := newStore(pool)
	ctx := context.Background()
	userID := uuid.New()

	first := createOrder(t, store, userID)
	second := createOrder(t, store, userID)
	createOrder(t, store, uuid.New())

	got, err := store.FindByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusNew, got.Status())
	testutil.AssertAmount(t, "40.00", got.Amount())
	assert.Equal(t, "integration", got.Description())

	list, err := store.ListByUser(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.ElementsMatch(t, []uuid.UUID{first.ID, second.ID}, []uuid.UUID{list[0].ID(), list[1].ID()})

	_, err = usecase.NewCreateOrder(store).Execute(ctx, dto.CreateOrderRequest{
		OrderID: first.ID,
		UserID:  userID,
		Amount:  testutil.Amount("1"),
	})
	assert.ErrorIs(t, err, model.ErrOrderExists)

	_, err = store.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, model.ErrOrderNotFound)

	pending, err := store.Outbox().Pending(ctx, pool)
	require.NoError(t, err)
	assert.Equal(t, 3, pending)
}

func TestRelay_MarksOrderPendingInClaimTransaction(t *testing.T) {
	pool := setupTestDB(t)
	store := newStore(pool)
	ctx := context.Background()
	order := createOrder(t, store, uuid.New())

	var sent []events.Message
	publisher := events.PublisherFunc(func(_ context.Context, _ string, msg events.Message) error {
		sent = append(sent, msg)
		return nil
	})
	relay := outbox.NewRelay(outbox.RelayConfig{Name: "orders"}, store.Outbox(), publisher, contract.RoutingKeyFor, testutil.DiscardLogger())

	n, err := relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	require.Len(t, sent, 1)
	assert.Equal(t, order.ID, sent[0].AggregateID)

	got, err := store.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusPending, got.Status())

	n, err = relay.RunOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestApplyPaymentResult_TerminalAbsorbs(t *testing.T) {
	pool := setupTestDB(t)
	store := newStore(pool)
	ctx := context.Background()
	order := createOrder(t, store, uuid.New())
	apply := usecase.NewApplyPaymentResult(store)

	res, err := apply.Execute(ctx, contract.PaymentResult{OrderID: order.ID, Result: contract.ResultFailed, Reason: contract.ReasonNoAccount})
	require.NoError(t, err)
	assert.True(t, res.Changed)

	res, err = apply.Execute(ctx, contract.PaymentResult{OrderID: order.ID, Result: contract.ResultSuccess})
	require.NoError(t, err)
	assert.False(t, res.Changed)

	got, err := store.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, valueobject.OrderStatusCancelled, got.Status())

	_, err = apply.Execute(ctx, contract.PaymentResult{OrderID: uuid.New(), Result: contract.ResultSuccess})
	assert.ErrorIs(t, err, model.ErrOrderNotFound)
}

func TestRelay_PublishesRequestToBroker(t *testing.T) {
	pool := setupTestDB(t)
	store := newStore(pool)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	mq := testutil.NewRabbitMQContainer(ctx, t)
	t.Cleanup(func() { mq.Cleanup(t) })

	client, err := rabbitmq.Connect(ctx, mq.Config, rabbitmq.Options{
		Topology: contract.Topology("topic"),
		Startup:  backoff.Constant(10, time.Second),
		Logger:   testutil.DiscardLogger(),
	})
	require.NoError(t, err)
	defer client.Close()

	order := createOrder(t, store, uuid.New())
	relay := outbox.NewRelay(outbox.RelayConfig{Name: "orders"}, store.Outbox(), client, contract.RoutingKeyFor, testutil.DiscardLogger())
	_, err = relay.RunOnce(ctx)
	require.NoError(t, err)

	consumeCtx, stop := context.WithCancel(ctx)
	defer stop()
	received := make(chan contract.PaymentRequested, 1)
	go func() {
		_ = client.Consume(consumeCtx, rabbitmq.ConsumerConfig{Queue: contract.QueuePaymentRequest}, func(_ context.Context, d rabbitmq.Delivery) error {
			req, err := contract.DecodePaymentRequested(d.Body)
			if err != nil {
				return rabbitmq.Reject(err)
			}
			received <- req
			return nil
		})
	}()

	select {
	case req := <-received:
		assert.Equal(t, order.ID, req.OrderID)
		assert.Equal(t, order.UserID, req.UserID)
		testutil.AssertAmount(t, "40.00", req.Amount)
	case <-ctx.Done():
		t.Fatal("payment request not delivered")
	}
}
