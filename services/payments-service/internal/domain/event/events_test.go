package event_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/settlement/pkg/contract"
	"github.com/bibbank/settlement/pkg/money"
	"github.com/bibbank/settlement/services/payments-service/internal/domain/event"
)

func TestNewPaymentSettled(t *testing.T) {
	result := contract.PaymentResult{
		OrderID: uuid.New(),
		UserID:  uuid.New(),
		Amount:  money.MustParse("40"),
		Result:  contract.ResultFailed,
		Reason:  contract.ReasonInsufficientFunds,
	}

	evt := event.NewPaymentSettled(result, time.Now())

	assert.Equal(t, contract.EventPaymentFailed, evt.EventType())
	assert.Equal(t, result.OrderID, evt.AggregateID())
	assert.Equal(t, event.AggregateTypeOrder, evt.AggregateType())
	assert.NotEqual(t, uuid.Nil, evt.EventID())

	body, err := json.Marshal(evt.Payload())
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"order_id": "`+result.OrderID.String()+`",
		"user_id": "`+result.UserID.String()+`",
		"amount": 40.00,
		"result": "failed",
		"reason": "insufficient_funds"
	}`, string(body))
}
