package skip

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"veritas/internal/verification/models"
	id "veritas/pkg/domain"
	"veritas/pkg/platform/sentinel"
)

func TestInMemory_UniquePerUserCourse(t *testing.T) {
	ctx := context.Background()
	store := NewInMemory()
	userID := id.NewUserID()
	course := id.CourseID("course-v1:Org+C+1")

	first, err := models.NewSkipRecord(id.NewCheckpointID(), userID, course, time.Now())
	require.NoError(t, err)
	require.NoError(t, store.Create(ctx, first))

	t.Run("second skip in the course conflicts even for another checkpoint", func(t *testing.T) {
		again, err := models.NewSkipRecord(id.NewCheckpointID(), userID, course, time.Now())
		require.NoError(t, err)
		assert.ErrorIs(t, store.Create(ctx, again), sentinel.ErrConflict)
	})

	t.Run("another user may skip", func(t *testing.T) {
		other, err := models.NewSkipRecord(first.CheckpointID, id.NewUserID(), course, time.Now())
		require.NoError(t, err)
		assert.NoError(t, store.Create(ctx, other))
	})

	exists, err := store.Exists(ctx, course, userID)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = store.Exists(ctx, "course-v1:Org+C+2", userID)
	require.NoError(t, err)
	assert.False(t, exists)
}
