package security

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "veritas/pkg/domain"
	audit "veritas/pkg/platform/audit"
	"veritas/pkg/platform/audit/store/memory"
	"veritas/pkg/requestcontext"
)

func rejected(subject string) audit.Event {
	return audit.Event{Action: string(audit.EventCallbackRejected), Subject: subject}
}

func TestRingBufferOverwritesOldest(t *testing.T) {
	b := NewRingBuffer(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		b.Enqueue(rejected(s))
	}
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, int64(2), b.Dropped())

	batch := b.DequeueBatch(2)
	require.Len(t, batch, 2)
	assert.Equal(t, "c", batch[0].Subject)
	assert.Equal(t, "d", batch[1].Subject)

	b.Requeue(batch)
	subjects := []string{}
	for _, e := range b.DequeueBatch(10) {
		subjects = append(subjects, e.Subject)
	}
	assert.Equal(t, []string{"c", "d", "e"}, subjects)
	assert.Nil(t, b.DequeueBatch(1))
}

func TestEmitThenFlush(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store)

	now := time.Date(2026, 2, 3, 4, 5, 6, 0, time.UTC)
	ctx := requestcontext.WithClientMetadata(requestcontext.WithTime(context.Background(), now), "198.51.100.9", "")
	ctx = requestcontext.WithDeviceID(ctx, "device-1")
	pub.Emit(ctx, rejected("vendor-callback"))

	pending, err := store.FetchPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending, "emit only buffers")

	n, err := pub.Flush(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	events, err := store.ListByUser(ctx, id.UserID{})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, audit.CategorySecurity, events[0].Category)
	assert.Equal(t, audit.SeverityWarning, events[0].Severity)
	assert.Equal(t, "198.51.100.9", events[0].ClientIP)
	assert.Equal(t, "device-1", events[0].DeviceID)
	assert.Equal(t, now, events[0].Timestamp)
}

type failOnce struct {
	failed bool
	got    []audit.Event
}

func (s *failOnce) Append(_ context.Context, e audit.Event) error {
	if !s.failed {
		s.failed = true
		return errors.New("outbox down")
	}
	s.got = append(s.got, e)
	return nil
}

func TestFlushKeepsEventsOnFailure(t *testing.T) {
	store := &failOnce{}
	pub := New(store)
	pub.Emit(context.Background(), rejected("first"))
	pub.Emit(context.Background(), rejected("second"))

	_, err := pub.Flush(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, pub.buffer.Len())

	n, err := pub.Flush(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, "first", store.got[0].Subject)
}

func TestRunFlushesOnShutdown(t *testing.T) {
	store := memory.NewInMemoryStore()
	pub := New(store, WithInterval(time.Hour))
	pub.Emit(context.Background(), rejected("late"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, pub.Run(ctx), context.Canceled)

	pending, err := store.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}
