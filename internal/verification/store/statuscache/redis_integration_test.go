//go:build integration

package statuscache_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"veritas/internal/verification/models"
	"veritas/internal/verification/store/statuscache"
	id "veritas/pkg/domain"
	"veritas/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache *statuscache.RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.redis = mgr.GetRedis(s.T())
	s.cache = statuscache.NewRedisCache(s.redis.Client.Client, time.Minute)
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
}

func entryKey(userID id.UserID, field string) string {
	return "verification:status:{" + userID.String() + "}:" + field
}

func (s *RedisCacheSuite) TestRoundTripAndInvalidate() {
	ctx := context.Background()
	userID := id.NewUserID()
	windowID := id.NewWindowID()

	_, gen, ok, err := s.cache.Get(ctx, userID, nil)
	s.Require().NoError(err)
	s.False(ok)
	s.Zero(gen)

	denied := models.UserStatus{Tag: models.TagMustReverify, Message: "No photo ID was provided."}
	s.Require().NoError(s.cache.Set(ctx, userID, nil, gen, models.UserStatus{Tag: models.TagApproved}))
	s.Require().NoError(s.cache.Set(ctx, userID, &windowID, gen, denied))

	got, _, ok, err := s.cache.Get(ctx, userID, &windowID)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(denied, got)

	s.Require().NoError(s.cache.Invalidate(ctx, userID))
	for _, w := range []*id.WindowID{nil, &windowID} {
		_, gen, ok, err = s.cache.Get(ctx, userID, w)
		s.Require().NoError(err)
		s.False(ok)
		s.Equal(uint64(1), gen)
	}
}

func (s *RedisCacheSuite) TestEachWindowKeepsItsOwnTTL() {
	ctx := context.Background()
	userID := id.NewUserID()
	windowID := id.NewWindowID()
	cache := statuscache.NewRedisCache(s.redis.Client.Client, 2*time.Second)

	s.Require().NoError(cache.Set(ctx, userID, nil, 0, models.UserStatus{Tag: models.TagApproved}))
	time.Sleep(time.Second)
	s.Require().NoError(cache.Set(ctx, userID, &windowID, 0, models.UserStatus{Tag: models.TagPending}))

	original, err := s.redis.Client.PTTL(ctx, entryKey(userID, "original")).Result()
	s.Require().NoError(err)
	window, err := s.redis.Client.PTTL(ctx, entryKey(userID, windowID.String())).Result()
	s.Require().NoError(err)
	s.Positive(original)
	s.LessOrEqual(original, 1100*time.Millisecond, "writing another window must not extend this one")
	s.Greater(window, original)

	s.Eventually(func() bool {
		_, _, ok, err := cache.Get(ctx, userID, nil)
		return err == nil && !ok
	}, 3*time.Second, 100*time.Millisecond)
}

func (s *RedisCacheSuite) TestInvalidateDuringRecomputeDropsWrite() {
	ctx := context.Background()
	userID := id.NewUserID()

	// A reader misses and starts computing from rows read now.
	_, gen, ok, err := s.cache.Get(ctx, userID, nil)
	s.Require().NoError(err)
	s.Require().False(ok)

	// A write commits and invalidates before the reader stores its result.
	s.Require().NoError(s.cache.Invalidate(ctx, userID))
	s.Require().NoError(s.cache.Set(ctx, userID, nil, gen, models.UserStatus{Tag: models.TagPending}))

	_, current, ok, err := s.cache.Get(ctx, userID, nil)
	s.Require().NoError(err)
	s.False(ok, "status computed before the invalidation must not be served")

	s.Require().NoError(s.cache.Set(ctx, userID, nil, current, models.UserStatus{Tag: models.TagApproved}))
	got, _, ok, err := s.cache.Get(ctx, userID, nil)
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(models.TagApproved, got.Tag)
}

func (s *RedisCacheSuite) TestEntriesFromOlderGenerationsMiss() {
	ctx := context.Background()
	userID := id.NewUserID()

	s.Require().NoError(s.cache.Set(ctx, userID, nil, 0, models.UserStatus{Tag: models.TagApproved}))
	s.Require().NoError(s.cache.Invalidate(ctx, userID))

	exists, err := s.redis.Client.Exists(ctx, entryKey(userID, "original")).Result()
	s.Require().NoError(err)
	s.Equal(int64(1), exists, "old entry remains until its TTL")

	_, _, ok, err := s.cache.Get(ctx, userID, nil)
	s.Require().NoError(err)
	s.False(ok)

	ttl, err := s.redis.Client.TTL(ctx, "verification:status:{"+userID.String()+"}:gen").Result()
	s.Require().NoError(err)
	s.Greater(ttl, time.Minute, "generation outlives entries")
}
