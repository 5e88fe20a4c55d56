package snapshot

import (
	"context"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisCache_GetHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, time.Hour)

	key := CacheKey("ted_spread", day(2008, 9, 15))
	mock.ExpectGet(key).SetVal("3.2")

	v, ok := cache.Get(context.Background(), key)
	require.True(t, ok)
	assert.Equal(t, 3.2, v)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_MissAndErrorBothReadAsMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, time.Hour)

	key := CacheKey("ted_spread", day(2008, 9, 15))
	mock.ExpectGet(key).RedisNil()
	_, ok := cache.Get(context.Background(), key)
	assert.False(t, ok)

	mock.ExpectGet(key).SetErr(assert.AnError)
	_, ok = cache.Get(context.Background(), key)
	assert.False(t, ok, "transport error must degrade to a miss, not fail the run")
}

func TestRedisCache_SetStoresFormattedFloat(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, time.Hour)

	key := CacheKey("vix", day(2020, 3, 16))
	mock.ExpectSet(key, "82.69", time.Hour).SetVal("OK")

	cache.Set(context.Background(), key, 82.69)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisCache_CorruptEntryIsDroppedAndMissed(t *testing.T) {
	client, mock := redismock.NewClientMock()
	cache := NewRedisCache(client, time.Hour)

	key := CacheKey("vix", day(2020, 3, 16))
	mock.ExpectGet(key).SetVal("not-a-number")
	mock.ExpectDel(key).SetVal(1)

	_, ok := cache.Get(context.Background(), key)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
