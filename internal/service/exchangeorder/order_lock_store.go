package exchangeorder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultOrderLockTTL = 15 * time.Second

var releaseOrderLockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
    return redis.call("DEL", KEYS[1])
else
    return 0
end
`)

type OrderLockStore interface {
	AcquireProcessingLock(ctx context.Context, orderID string, owner string, ttl time.Duration) (bool, error)
	ReleaseProcessingLock(ctx context.Context, orderID string, owner string) error
}

// RedisOrderLockStore serializes work on one order across gateway replicas. The lock expires
// after its ttl so a crashed holder cannot block the order forever.
type RedisOrderLockStore struct {
	client *redis.Client
}

func NewRedisOrderLockStore(client *redis.Client) *RedisOrderLockStore {
	return &RedisOrderLockStore{client: client}
}

func (s *RedisOrderLockStore) AcquireProcessingLock(ctx context.Context, orderID string, owner string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = defaultOrderLockTTL
	}

	acquired, err := s.client.SetNX(ctx, processingLockKey(orderID), owner, ttl).Result()
	if err != nil {
		return false, err
	}

	return acquired, nil
}

// ReleaseProcessingLock deletes the lock only while owner still holds it.
func (s *RedisOrderLockStore) ReleaseProcessingLock(ctx context.Context, orderID string, owner string) error {
	_, err := releaseOrderLockScript.Run(ctx, s.client, []string{processingLockKey(orderID)}, owner).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return err
	}

	return nil
}

func processingLockKey(orderID string) string {
	return fmt.Sprintf("deelrate:exchange_order:%s:processing-lock", orderID)
}
