package events

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewEvent_Decode(t *testing.T) {
	payload := BookingPayload{BookingID: uuid.New(), UserID: uuid.New(), Reason: "customer request"}

	event, err := NewEvent(BookingCancelled, payload)
	require.NoError(t, err)
	assert.NotEmpty(t, event.ID)
	assert.Equal(t, BookingCancelled, event.Type)

	var decoded BookingPayload
	require.NoError(t, event.Decode(&decoded))
	assert.Equal(t, payload, decoded)
}

func TestInlineDispatcher_DeliversAndWaits(t *testing.T) {
	var (
		mu   sync.Mutex
		seen []string
	)
	dispatcher := NewInlineDispatcher(func(ctx context.Context, event Event) error {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, event.Type)
		return nil
	}, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, dispatcher.Publish(ctx, BookingCreated, BookingPayload{BookingID: uuid.New()}))
	require.NoError(t, dispatcher.Publish(ctx, PaymentCompleted, PaymentPayload{PaymentID: uuid.New()}))
	cancel()

	require.NoError(t, dispatcher.Close())
	assert.ElementsMatch(t, []string{BookingCreated, PaymentCompleted}, seen)
}
