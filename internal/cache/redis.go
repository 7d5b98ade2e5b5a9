package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Finishing floor cache keys
const (
	QueueKeyPrefix   = "arremate:fila:"
	PointValueKeyFmt = "arremate:pontos:%d"
	QueueTTL         = 30 * time.Second
	PointValueTTL    = 10 * time.Minute
	queueKeyPattern  = QueueKeyPrefix + "*"
)

var client *redis.Client

// Init connects to Redis. On failure the package stays disabled and every
// call degrades to a cache miss.
func Init(addr, password string, db int) error {
	if addr == "" {
		return fmt.Errorf("redis address not configured")
	}

	client = redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// Close releases the connection, if any
func Close() {
	if client != nil {
		client.Close()
		client = nil
	}
}

// GetCached returns cached data for a key
func GetCached(ctx context.Context, key string) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// SetCached stores data with a TTL
func SetCached(ctx context.Context, key string, data []byte, ttl time.Duration) {
	if client == nil {
		return
	}
	client.Set(ctx, key, data, ttl)
}

// InvalidatePattern removes all keys matching a glob pattern
func InvalidatePattern(ctx context.Context, pattern string) {
	if client == nil {
		return
	}
	iter := client.Scan(ctx, 0, pattern, 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if iter.Err() == nil && len(keys) > 0 {
		client.Del(ctx, keys...)
	}
}

// QueueKey is the cache key of one queue page
func QueueKey(search, sort string, page, limit int) string {
	return fmt.Sprintf("%s%s:%s:%d:%d", QueueKeyPrefix, search, sort, page, limit)
}

// PointValueKey is the cache key of a product's point value
func PointValueKey(productID int) string {
	return fmt.Sprintf(PointValueKeyFmt, productID)
}

// InvalidateQueue clears every cached queue page.
// Called when: Start, Finish, Cancel, Reverse, RegisterLoss
func InvalidateQueue(ctx context.Context) {
	InvalidatePattern(ctx, queueKeyPattern)
}

// IsHealthy returns true if Redis connection is working
func IsHealthy() bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	return client.Ping(ctx).Err() == nil
}
