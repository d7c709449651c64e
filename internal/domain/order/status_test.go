package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{
		StatusPendingConfirmation, StatusConfirmed, StatusPreparing,
		StatusReady, StatusDelivering, StatusCompleted, StatusCancelled,
	} {
		assert.True(t, s.Valid(), "%s", s)
	}
	assert.False(t, Status("shipped").Valid())
	assert.False(t, Status("").Valid())
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, StatusCompleted.Terminal())
	assert.True(t, StatusCancelled.Terminal())
	assert.False(t, StatusPendingConfirmation.Terminal())
	assert.False(t, StatusDelivering.Terminal())
}

func TestCanAdvanceTo(t *testing.T) {
	assert.True(t, StatusConfirmed.CanAdvanceTo(StatusPreparing))
	assert.True(t, StatusConfirmed.CanAdvanceTo(StatusCompleted), "skipping intermediate steps is allowed")
	assert.True(t, StatusPendingConfirmation.CanAdvanceTo(StatusPreparing))

	assert.False(t, StatusReady.CanAdvanceTo(StatusPreparing), "no backward moves")
	assert.False(t, StatusReady.CanAdvanceTo(StatusReady), "no self transition")
	assert.False(t, StatusCompleted.CanAdvanceTo(StatusDelivering), "terminal states are frozen")
	assert.False(t, StatusCancelled.CanAdvanceTo(StatusConfirmed))
	assert.False(t, StatusConfirmed.CanAdvanceTo(StatusCancelled), "cancellation goes through Cancel")
	assert.False(t, StatusConfirmed.CanAdvanceTo(Status("shipped")))
}

func TestCancellable(t *testing.T) {
	assert.True(t, StatusPendingConfirmation.Cancellable())
	assert.True(t, StatusDelivering.Cancellable())
	assert.False(t, StatusCompleted.Cancellable())
	assert.False(t, StatusCancelled.Cancellable())
}

func TestFormatNumber(t *testing.T) {
	day := time.Date(2026, 3, 15, 10, 30, 0, 0, time.UTC)
	assert.Equal(t, "ORD-20260315-001", FormatNumber("ORD", day, 1))
	assert.Equal(t, "ORD-20260315-042", FormatNumber("ORD", day, 42))
	assert.Equal(t, "ORD-20260315-1205", FormatNumber("ORD", day, 1205), "sequence wider than three digits keeps all digits")
}
