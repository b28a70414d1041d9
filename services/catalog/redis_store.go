package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"bookiovoice/models"
)

const catalogKeyPrefix = "catalog:"

// DefaultStoreRetention keeps entries in Redis well past their freshness so a
// replica can still fall back to them during an upstream outage.
const DefaultStoreRetention = 24 * time.Hour

// RedisStore is the shared second tier.
type RedisStore struct {
	client    *redis.Client
	facility  string
	retention time.Duration
}

func NewRedisStore(client *redis.Client, facility string, retention time.Duration) *RedisStore {
	if retention <= 0 {
		retention = DefaultStoreRetention
	}
	return &RedisStore{client: client, facility: facility, retention: retention}
}

func (s *RedisStore) categoriesKey() string {
	return fmt.Sprintf("%s%s:categories", catalogKeyPrefix, s.facility)
}

func (s *RedisStore) servicesKey(categoryID int) string {
	return fmt.Sprintf("%s%s:services:%d", catalogKeyPrefix, s.facility, categoryID)
}

func (s *RedisStore) LoadCategories(ctx context.Context) (models.CatalogEntry[models.Category], bool, error) {
	return load[models.Category](ctx, s.client, s.categoriesKey())
}

func (s *RedisStore) SaveCategories(ctx context.Context, e models.CatalogEntry[models.Category]) error {
	return save(ctx, s.client, s.categoriesKey(), e, s.retention)
}

func (s *RedisStore) LoadServices(ctx context.Context, categoryID int) (models.CatalogEntry[models.Service], bool, error) {
	return load[models.Service](ctx, s.client, s.servicesKey(categoryID))
}

func (s *RedisStore) SaveServices(ctx context.Context, categoryID int, e models.CatalogEntry[models.Service]) error {
	return save(ctx, s.client, s.servicesKey(categoryID), e, s.retention)
}

func load[T any](ctx context.Context, client *redis.Client, key string) (models.CatalogEntry[T], bool, error) {
	var e models.CatalogEntry[T]
	data, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return e, false, nil
	}
	if err != nil {
		return e, false, err
	}
	if err := json.Unmarshal([]byte(data), &e); err != nil {
		return e, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return e, true, nil
}

func save[T any](ctx context.Context, client *redis.Client, key string, e models.CatalogEntry[T], retention time.Duration) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return client.Set(ctx, key, b, retention).Err()
}
