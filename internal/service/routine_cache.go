package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"glow-llm/internal/domain"
)

// RoutineCache guarda resultados de inferencia por hash de perfil con TTL.
type RoutineCache interface {
	Get(ctx context.Context, key string) (domain.InferenceResult, bool, error)
	Set(ctx context.Context, key string, result domain.InferenceResult, ttl time.Duration) error
}

// ProfileCacheKey deriva una llave estable del perfil canonicalizado.
func ProfileCacheKey(profile domain.Profile) string {
	payload, err := json.Marshal(profile)
	if err != nil {
		return "routine:invalid"
	}
	sum := sha256.Sum256(payload)
	return "routine:" + hex.EncodeToString(sum[:])
}

type memoryRoutineCache struct {
	mu    sync.Mutex
	items map[string]memoryCacheEntry
}

type memoryCacheEntry struct {
	result    domain.InferenceResult
	expiresAt time.Time
}

func NewMemoryRoutineCache() RoutineCache {
	return &memoryRoutineCache{items: make(map[string]memoryCacheEntry)}
}

func (c *memoryRoutineCache) Get(_ context.Context, key string) (domain.InferenceResult, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.items[key]
	if !ok || time.Now().After(entry.expiresAt) {
		delete(c.items, key)
		return domain.InferenceResult{}, false, nil
	}
	return entry.result, true, nil
}

func (c *memoryRoutineCache) Set(_ context.Context, key string, result domain.InferenceResult, ttl time.Duration) error {
	if strings.TrimSpace(key) == "" {
		return nil
	}
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[key] = memoryCacheEntry{result: result, expiresAt: time.Now().Add(ttl)}
	return nil
}

type redisRoutineCache struct {
	client redisCacheClient
}

type redisCacheClient interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

func NewRedisRoutineCache(client *redis.Client) RoutineCache {
	if client == nil {
		return nil
	}
	return &redisRoutineCache{client: client}
}

func (c *redisRoutineCache) Get(ctx context.Context, key string) (domain.InferenceResult, bool, error) {
	raw, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return domain.InferenceResult{}, false, nil
	}
	if err != nil {
		return domain.InferenceResult{}, false, err
	}
	var result domain.InferenceResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return domain.InferenceResult{}, false, err
	}
	return result, true, nil
}

func (c *redisRoutineCache) Set(ctx context.Context, key string, result domain.InferenceResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = 30 * time.Minute
	}
	payload, err := json.Marshal(result)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, key, payload, ttl).Err()
}
