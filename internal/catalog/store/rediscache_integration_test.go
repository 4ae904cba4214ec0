//go:build integration

package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"docgate/internal/catalog"
	"docgate/internal/platform/logger"
	"docgate/pkg/testutil/containers"
)

type RedisCacheSuite struct {
	suite.Suite
	redis  *containers.RedisContainer
	source *Memory
	cache  *RedisCache
}

func TestRedisCacheSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(RedisCacheSuite))
}

func (s *RedisCacheSuite) SetupSuite() {
	s.redis = containers.GetManager().GetRedis(s.T())
}

func (s *RedisCacheSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(context.Background()))
	docs, products := catalog.Seed()
	s.source = NewMemory(docs, products)
	s.cache = NewRedisCache(s.source, s.redis.Client, time.Minute, logger.NewNop())
}

func (s *RedisCacheSuite) TestSnapshotIsCached() {
	ctx := context.Background()

	first, err := s.cache.Snapshot(ctx)
	s.Require().NoError(err)
	s.Len(first.Documents, 4)

	// A toggle on the source is invisible until the cache is dropped.
	s.Require().NoError(s.source.SetDocumentRuleEnabled(ctx, "ID", "r-id-number", false))

	cached, err := s.cache.Snapshot(ctx)
	s.Require().NoError(err)
	rule, ok := cached.Documents["ID"].Rule("r-id-number")
	s.Require().True(ok)
	s.True(rule.Enabled)

	s.cache.Invalidate(ctx)

	fresh, err := s.cache.Snapshot(ctx)
	s.Require().NoError(err)
	rule, ok = fresh.Documents["ID"].Rule("r-id-number")
	s.Require().True(ok)
	s.False(rule.Enabled)
}

func (s *RedisCacheSuite) TestUndecodablePayloadFallsBack() {
	ctx := context.Background()
	s.Require().NoError(s.redis.Client.Set(ctx, "docgate:catalog:snapshot", "{not json", time.Minute).Err())

	snap, err := s.cache.Snapshot(ctx)
	s.Require().NoError(err)
	s.Len(snap.Documents, 4)
}
