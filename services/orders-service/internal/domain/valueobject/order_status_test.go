package valueobject_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/settlement/services/orders-service/internal/domain/valueobject"
)

func TestNewOrderStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    valueobject.OrderStatus
		wantErr bool
	}{
		{input: "NEW", want: valueobject.OrderStatusNew},
		{input: "PENDING", want: valueobject.OrderStatusPending},
		{input: "FINISHED", want: valueobject.OrderStatusFinished},
		{input: "CANCELLED", want: valueobject.OrderStatusCancelled},
		{input: "new", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := valueobject.NewOrderStatus(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want))
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestOrderStatus_Transitions(t *testing.T) {
	var (
		newS      = valueobject.OrderStatusNew
		pending   = valueobject.OrderStatusPending
		finished  = valueobject.OrderStatusFinished
		cancelled = valueobject.OrderStatusCancelled
	)

	tests := []struct {
		from, to valueobject.OrderStatus
		want     bool
	}{
		{newS, pending, true},
		{newS, finished, true},
		{newS, cancelled, true},
		{pending, finished, true},
		{pending, cancelled, true},
		{pending, newS, false},
		{pending, pending, false},
		{finished, cancelled, false},
		{finished, pending, false},
		{cancelled, finished, false},
	}

	for _, tt := range tests {
		t.Run(tt.from.String()+"->"+tt.to.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}

	assert.False(t, newS.IsTerminal())
	assert.False(t, pending.IsTerminal())
	assert.True(t, finished.IsTerminal())
	assert.True(t, cancelled.IsTerminal())
}
