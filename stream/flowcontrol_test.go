package stream

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConsumeRecvBelowThreshold(t *testing.T) {
	fc := NewFlowController(100)
	inc, should, err := fc.ConsumeRecv(10)
	require.NoError(t, err)
	assert.False(t, should)
	assert.Zero(t, inc)
}

func TestConsumeRecvCrossesQuarterThreshold(t *testing.T) {
	fc := NewFlowController(100)
	_, should, err := fc.ConsumeRecv(80)
	require.NoError(t, err)
	assert.True(t, should, "remaining 20 is below the 25-byte quarter threshold")

	inc, should2, err := fc.ConsumeRecv(1)
	require.NoError(t, err)
	assert.False(t, should2, "window was reset to full by the prior feedback")
	assert.Zero(t, inc)
}

func TestConsumeRecvExceedsWindowIsProtocolError(t *testing.T) {
	fc := NewFlowController(100)
	_, _, err := fc.ConsumeRecv(200)
	assert.ErrorIs(t, err, ErrWindowExceeded)
}

func TestDisabledWindowNeverBlocksOrErrors(t *testing.T) {
	fc := NewFlowController(0)
	_, should, err := fc.ConsumeRecv(1 << 20)
	require.NoError(t, err)
	assert.False(t, should)

	err = fc.ReserveSend(context.Background(), 1<<20)
	assert.NoError(t, err)
}

func TestReserveSendBlocksUntilCredited(t *testing.T) {
	fc := NewFlowController(10)
	require.NoError(t, fc.ReserveSend(context.Background(), 10))

	done := make(chan error, 1)
	go func() {
		done <- fc.ReserveSend(context.Background(), 5)
	}()

	select {
	case <-done:
		t.Fatal("ReserveSend should not complete before credit arrives")
	case <-time.After(20 * time.Millisecond):
	}

	fc.CreditSend(5)
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("ReserveSend did not unblock after CreditSend")
	}
}

func TestReserveSendCancelledByContext(t *testing.T) {
	fc := NewFlowController(1)
	require.NoError(t, fc.ReserveSend(context.Background(), 1))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := fc.ReserveSend(ctx, 5)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestCreditSendGrantsFIFO(t *testing.T) {
	fc := NewFlowController(0)
	fc.disabled = false
	fc.sendRemaining = 0

	order := make(chan int, 2)
	go func() {
		_ = fc.ReserveSend(context.Background(), 10)
		order <- 1
	}()
	time.Sleep(10 * time.Millisecond)
	go func() {
		_ = fc.ReserveSend(context.Background(), 10)
		order <- 2
	}()
	time.Sleep(10 * time.Millisecond)

	fc.CreditSend(10)
	first := <-order
	assert.Equal(t, 1, first)

	fc.CreditSend(10)
	second := <-order
	assert.Equal(t, 2, second)
}
