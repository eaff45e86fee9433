package compliance

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veritas/pkg/domain"
	audit "veritas/pkg/platform/audit"
	"veritas/pkg/platform/audit/store/memory"
	"veritas/pkg/requestcontext"
)

type failingStore struct{}

func (failingStore) Append(context.Context, audit.Event) error {
	return errors.New("outbox unavailable")
}

func TestPublisher_Emit(t *testing.T) {
	userID := id.UserID(uuid.New())
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	t.Run("enriches from request context", func(t *testing.T) {
		store := memory.NewInMemoryStore()
		pub := New(store)

		ctx := requestcontext.WithTime(context.Background(), now)
		ctx = requestcontext.WithRequestID(ctx, "req-42")
		ctx = requestcontext.WithClientMetadata(ctx, "203.0.113.5", "curl/8.4.0")
		ctx = requestcontext.WithDeviceID(ctx, "6f1c2a4e-8d3b-4c7a-9e21-0b5d7f3a9c14")

		err := pub.Emit(ctx, audit.Event{
			UserID:  userID,
			Action:  string(audit.EventAttemptApproved),
			Subject: "attempt-1",
		})
		require.NoError(t, err)

		events, err := store.ListByUser(ctx, userID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, now, events[0].Timestamp)
		assert.Equal(t, "req-42", events[0].RequestID)
		assert.Equal(t, "203.0.113.5", events[0].ClientIP)
		assert.NotEmpty(t, events[0].Device)
		assert.Equal(t, "6f1c2a4e-8d3b-4c7a-9e21-0b5d7f3a9c14", events[0].DeviceID)
		assert.Equal(t, audit.CategoryCompliance, events[0].Category)

		pending, err := store.FetchPending(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, pending, 1)
	})

	t.Run("rejects events without user", func(t *testing.T) {
		pub := New(memory.NewInMemoryStore())
		err := pub.Emit(context.Background(), audit.Event{Action: string(audit.EventAttemptCreated)})
		require.Error(t, err)
	})

	t.Run("fails closed when the store fails", func(t *testing.T) {
		pub := New(failingStore{})
		err := pub.Emit(context.Background(), audit.Event{UserID: userID, Action: string(audit.EventAttemptDenied)})
		require.Error(t, err)
	})
}
