//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/fastygo/accounts/domain"
	"github.com/fastygo/accounts/pkg/testutil/containers"
	"github.com/fastygo/accounts/repository"
)

type CacheRepoSuite struct {
	suite.Suite
	redis *containers.RedisContainer
	cache repository.Cache
	ctx   context.Context
}

func TestCacheRepoSuite(t *testing.T) {
	suite.Run(t, new(CacheRepoSuite))
}

func (s *CacheRepoSuite) SetupSuite() {
	s.redis = containers.NewRedisContainer(s.T())
	s.cache = NewCacheRepository(s.redis.Client, time.Second, nil)
	s.ctx = context.Background()
}

func (s *CacheRepoSuite) SetupTest() {
	s.Require().NoError(s.redis.FlushAll(s.ctx))
}

func (s *CacheRepoSuite) TestSetGetInvalidate() {
	s.Equal(domain.CacheMiss, s.cache.Get(s.ctx, "record:1").Status)

	s.Equal(domain.CacheOK, s.cache.Set(s.ctx, "record:1", []byte(`{"id":1}`), time.Minute))
	res := s.cache.Get(s.ctx, "record:1")
	s.True(res.Hit())
	s.JSONEq(`{"id":1}`, string(res.Value))

	ttl, err := s.redis.Client.TTL(s.ctx, "record:1").Result()
	s.Require().NoError(err)
	s.InDelta(time.Minute.Seconds(), ttl.Seconds(), 2)

	s.Equal(domain.CacheOK, s.cache.Invalidate(s.ctx, "record:1"))
	s.Equal(domain.CacheMiss, s.cache.Get(s.ctx, "record:1").Status)

	s.Equal(domain.CacheOK, s.cache.Invalidate(s.ctx, "record:404"), "deleting a missing key is not an error")
}

func (s *CacheRepoSuite) TestDefaultTTL() {
	s.Equal(domain.CacheOK, s.cache.Set(s.ctx, "record:2", []byte("x"), 0))

	ttl, err := s.redis.Client.TTL(s.ctx, "record:2").Result()
	s.Require().NoError(err)
	s.InDelta(repository.DefaultCacheTTL.Seconds(), ttl.Seconds(), 2)
}

func (s *CacheRepoSuite) TestInvalidatePrefixSpansScanBatches() {
	for i := 0; i < scanBatch*2+5; i++ {
		s.Require().Equal(domain.CacheOK, s.cache.Set(s.ctx, fmt.Sprintf("record:%d", i), []byte("x"), time.Minute))
	}
	s.Require().Equal(domain.CacheOK, s.cache.Set(s.ctx, "records:all", []byte("[]"), time.Minute))
	s.Require().NoError(s.redis.Client.Set(s.ctx, "other:1", "keep", time.Minute).Err())

	s.Equal(domain.CacheOK, s.cache.InvalidatePrefix(s.ctx, "record"))

	keys, err := s.redis.Client.Keys(s.ctx, "*").Result()
	s.Require().NoError(err)
	s.Equal([]string{"other:1"}, keys)
}
