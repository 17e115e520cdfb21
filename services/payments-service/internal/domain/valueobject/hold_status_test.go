package valueobject_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bibbank/settlement/services/payments-service/internal/domain/valueobject"
)

func TestNewHoldStatus(t *testing.T) {
	tests := []struct {
		input   string
		want    valueobject.HoldStatus
		wantErr bool
	}{
		{input: "OPEN", want: valueobject.HoldStatusOpen},
		{input: "RELEASED", want: valueobject.HoldStatusReleased},
		{input: "CAPTURED", want: valueobject.HoldStatusCaptured},
		{input: "open", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := valueobject.NewHoldStatus(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, got.IsZero())
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.input, got.String())
		})
	}
}

func TestHoldStatus_IsTerminal(t *testing.T) {
	assert.False(t, valueobject.HoldStatusOpen.IsTerminal())
	assert.True(t, valueobject.HoldStatusReleased.IsTerminal())
	assert.True(t, valueobject.HoldStatusCaptured.IsTerminal())
}
