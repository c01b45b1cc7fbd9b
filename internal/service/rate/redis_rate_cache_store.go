package rate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/krobus00/deelrate-service/internal/entity"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const redisRateKeyPrefix = "deelrate:rate"

type redisRatePayload struct {
	Base      string          `json:"base"`
	Quote     string          `json:"quote"`
	Rate      decimal.Decimal `json:"rate"`
	Timestamp time.Time       `json:"timestamp"`
}

type RedisRateCacheStore struct {
	client *redis.Client
}

func NewRedisRateCacheStore(client *redis.Client) *RedisRateCacheStore {
	return &RedisRateCacheStore{client: client}
}

func (s *RedisRateCacheStore) Get(ctx context.Context, key string) (entity.ExchangeRate, bool, error) {
	raw, err := s.client.Get(ctx, redisRateKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return entity.ExchangeRate{}, false, nil
		}
		return entity.ExchangeRate{}, false, err
	}

	var payload redisRatePayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return entity.ExchangeRate{}, false, fmt.Errorf("decode cached rate %s: %w", key, err)
	}

	rate, err := entity.NewExchangeRate(entity.CurrencyPair{Base: payload.Base, Quote: payload.Quote}, payload.Rate, payload.Timestamp)
	if err != nil {
		return entity.ExchangeRate{}, false, fmt.Errorf("decode cached rate %s: %w", key, err)
	}

	return rate, true, nil
}

func (s *RedisRateCacheStore) Set(ctx context.Context, key string, rate entity.ExchangeRate, ttl time.Duration) error {
	payload, err := json.Marshal(redisRatePayload{
		Base:      rate.Pair().Base,
		Quote:     rate.Pair().Quote,
		Rate:      rate.Rate(),
		Timestamp: rate.Timestamp(),
	})
	if err != nil {
		return err
	}

	return s.client.Set(ctx, redisRateKey(key), payload, ttl).Err()
}

func redisRateKey(key string) string {
	return fmt.Sprintf("%s:%s", redisRateKeyPrefix, key)
}
