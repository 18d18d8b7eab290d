package services

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
)

// SearchCache кэширует ответы поиска поездок в Redis.
// Кэш короткоживущий: устаревание по TTL, без явной инвалидации.
type SearchCache struct {
	client  *redis.Client
	ttl     time.Duration
	enabled bool
}

// NewSearchCache создает кэш поиска. При client == nil кэширование
// отключено и все операции становятся no-op.
func NewSearchCache(client *redis.Client) *SearchCache {
	if client == nil {
		return &SearchCache{enabled: false}
	}

	ttl := 30 // секунд по умолчанию
	if val, err := strconv.Atoi(os.Getenv("SEARCH_CACHE_TTL")); err == nil && val > 0 {
		ttl = val
	}

	return &SearchCache{
		client:  client,
		ttl:     time.Duration(ttl) * time.Second,
		enabled: true,
	}
}

// Get возвращает закэшированный результат поиска
func (c *SearchCache) Get(ctx context.Context, key string) (*SearchResult, bool) {
	if !c.enabled {
		return nil, false
	}

	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		log.Printf("SearchCache.Get: %v", err)
		return nil, false
	}

	var result SearchResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		log.Printf("SearchCache.Get: некорректные данные в кэше: %v", err)
		return nil, false
	}
	return &result, true
}

// Set сохраняет результат поиска в кэш
func (c *SearchCache) Set(ctx context.Context, key string, result *SearchResult) {
	if !c.enabled {
		return
	}

	raw, err := json.Marshal(result)
	if err != nil {
		log.Printf("SearchCache.Set: %v", err)
		return
	}

	if err := c.client.Set(ctx, key, raw, c.ttl).Err(); err != nil {
		log.Printf("SearchCache.Set: %v", err)
	}
}
