package cache

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDisabledCacheDegradesToMiss(t *testing.T) {
	ctx := context.Background()
	Close()

	SetCached(ctx, "k", []byte("v"), QueueTTL)
	_, ok := GetCached(ctx, "k")
	assert.False(t, ok)
	assert.False(t, IsHealthy())
	InvalidateQueue(ctx)
}

func TestInitWithoutAddress(t *testing.T) {
	assert.Error(t, Init("", "", 0))
}

func TestKeys(t *testing.T) {
	assert.Equal(t, "arremate:fila:polo:recency:2:20", QueueKey("polo", "recency", 2, 20))
	assert.Equal(t, "arremate:pontos:42", PointValueKey(42))
}
