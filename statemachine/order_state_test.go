package statemachine

import (
	"errors"
	"testing"

	"foodconnect/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    models.OrderStatus
		to      models.OrderStatus
		actor   Actor
		wantErr bool
	}{
		{"vendor accepts", models.StatusPending, models.StatusAccepted, ActorVendor, false},
		{"vendor skips ahead", models.StatusAccepted, models.StatusCompleted, ActorVendor, false},
		{"vendor cancels while preparing", models.StatusPreparing, models.StatusCancelled, ActorVendor, false},
		{"vendor cancels while delivering", models.StatusDelivering, models.StatusCancelled, ActorVendor, false},
		{"vendor moves backwards", models.StatusReady, models.StatusPending, ActorVendor, true},
		{"vendor rewrites same state", models.StatusReady, models.StatusReady, ActorVendor, true},
		{"completed is terminal", models.StatusCompleted, models.StatusCancelled, ActorVendor, true},
		{"cancelled is terminal", models.StatusCancelled, models.StatusPending, ActorVendor, true},
		{"driver picks up", models.StatusReady, models.StatusDelivering, ActorDriver, false},
		{"driver delivers", models.StatusDelivering, models.StatusCompleted, ActorDriver, false},
		{"driver cannot accept", models.StatusPending, models.StatusAccepted, ActorDriver, true},
		{"customer cancels pending", models.StatusPending, models.StatusCancelled, ActorCustomer, false},
		{"customer cancels accepted", models.StatusAccepted, models.StatusCancelled, ActorCustomer, false},
		{"customer too late to cancel", models.StatusPreparing, models.StatusCancelled, ActorCustomer, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CanTransition(tc.from, tc.to, tc.actor)
			if !tc.wantErr {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrIllegalTransition))

			var illegal *IllegalTransitionError
			require.True(t, errors.As(err, &illegal))
			assert.Equal(t, tc.from, illegal.From)
			assert.Equal(t, tc.to, illegal.To)
		})
	}
}

func TestValidTransitionsFrom(t *testing.T) {
	assert.Equal(t, []models.OrderStatus{
		models.StatusAccepted,
		models.StatusPreparing,
		models.StatusReady,
		models.StatusDelivering,
		models.StatusCompleted,
		models.StatusCancelled,
	}, ValidTransitionsFrom(models.StatusPending, ActorVendor))

	assert.Equal(t, []models.OrderStatus{models.StatusCompleted, models.StatusCancelled},
		ValidTransitionsFrom(models.StatusDelivering, ActorVendor))

	assert.Empty(t, ValidTransitionsFrom(models.StatusCompleted, ActorVendor))
	assert.Empty(t, ValidTransitionsFrom(models.StatusCancelled, ActorCustomer))
}

func TestIllegalTransitionMessageNamesTerminalState(t *testing.T) {
	err := CanTransition(models.StatusCompleted, models.StatusPending, ActorVendor)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "none (terminal state)")
}

func TestTransitionsReturnsCopy(t *testing.T) {
	ts := Transitions()
	require.NotEmpty(t, ts)
	ts[0].To = models.StatusCancelled
	assert.Equal(t, models.StatusAccepted, Transitions()[0].To)
}
