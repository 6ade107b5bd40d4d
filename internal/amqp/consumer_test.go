package amqp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAck struct {
	acked   bool
	nacked  bool
	requeue bool
}

func (f *fakeAck) Ack(bool) error {
	f.acked = true
	return nil
}

func (f *fakeAck) Nack(_ bool, requeue bool) error {
	f.nacked = true
	f.requeue = requeue
	return nil
}

func TestSettle(t *testing.T) {
	valid, err := NewLedgerEvent("ledger.expense.created", []int64{4}, 1).ToJSON()
	require.NoError(t, err)

	tests := []struct {
		name        string
		body        []byte
		handlerErr  error
		wantAck     bool
		wantRequeue bool
	}{
		{"handled", valid, nil, true, false},
		{"handler failure requeues", valid, errors.New("sheet unavailable"), false, true},
		{"malformed body dropped", []byte("{not json"), nil, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ack := &fakeAck{}
			var got *LedgerEvent
			settle(context.Background(), tt.body, ack, func(_ context.Context, e *LedgerEvent) error {
				got = e
				return tt.handlerErr
			})

			assert.Equal(t, tt.wantAck, ack.acked)
			assert.Equal(t, !tt.wantAck, ack.nacked)
			assert.Equal(t, tt.wantRequeue, ack.requeue)
			if tt.name != "malformed body dropped" {
				require.NotNil(t, got)
				assert.Equal(t, []int64{4}, got.ExpenseIDs)
			}
		})
	}
}

func TestConsumeRequiresQueue(t *testing.T) {
	c := &Client{}
	err := c.ConsumeLedgerEvents(context.Background(), func(context.Context, *LedgerEvent) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AMQP_QUEUE")
}
