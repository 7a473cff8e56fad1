package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"glow-llm/internal/domain"
)

func TestProfileCacheKeyIsStable(t *testing.T) {
	profile := oilyLowBudgetProfile()

	a := ProfileCacheKey(profile)
	b := ProfileCacheKey(profile)
	if a != b {
		t.Fatalf("same profile produced different keys: %s vs %s", a, b)
	}

	other := profile
	other.Budget = domain.BudgetHigh
	if ProfileCacheKey(other) == a {
		t.Fatalf("different profiles share a key")
	}
}

func TestMemoryRoutineCache(t *testing.T) {
	cache := NewMemoryRoutineCache()
	ctx := context.Background()
	result := domain.InferenceResult{Summary: "cached"}

	if _, ok, err := cache.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("expected miss on empty cache: ok=%v err=%v", ok, err)
	}

	if err := cache.Set(ctx, "k", result, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit: ok=%v err=%v", ok, err)
	}
	if got.Summary != "cached" {
		t.Fatalf("summary: %q", got.Summary)
	}
}

func TestMemoryRoutineCacheExpires(t *testing.T) {
	cache := NewMemoryRoutineCache()
	ctx := context.Background()

	if err := cache.Set(ctx, "k", domain.InferenceResult{}, time.Nanosecond); err != nil {
		t.Fatalf("set: %v", err)
	}
	time.Sleep(2 * time.Millisecond)

	if _, ok, _ := cache.Get(ctx, "k"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

// mockRedisCache simula los comandos GET/SET que usa el cache.
type mockRedisCache struct {
	values map[string]string
	ttls   map[string]time.Duration
}

func newMockRedisCache() *mockRedisCache {
	return &mockRedisCache{values: make(map[string]string), ttls: make(map[string]time.Duration)}
}

func (m *mockRedisCache) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx)
	if v, ok := m.values[key]; ok {
		cmd.SetVal(v)
	} else {
		cmd.SetErr(redis.Nil)
	}
	return cmd
}

func (m *mockRedisCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx)
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	m.ttls[key] = expiration
	cmd.SetVal("OK")
	return cmd
}

func TestRedisRoutineCache(t *testing.T) {
	mock := newMockRedisCache()
	cache := &redisRoutineCache{client: mock}
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, "k"); err != nil || ok {
		t.Fatalf("redis.Nil should read as miss: ok=%v err=%v", ok, err)
	}

	result := domain.InferenceResult{Summary: "stored in redis"}
	if err := cache.Set(ctx, "k", result, 10*time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}
	if mock.ttls["k"] != 10*time.Minute {
		t.Fatalf("ttl not forwarded: %v", mock.ttls["k"])
	}

	got, ok, err := cache.Get(ctx, "k")
	if err != nil || !ok {
		t.Fatalf("expected hit: ok=%v err=%v", ok, err)
	}
	if got.Summary != result.Summary {
		t.Fatalf("roundtrip summary: %q", got.Summary)
	}
}

func TestRedisRoutineCacheCorruptPayload(t *testing.T) {
	mock := newMockRedisCache()
	mock.values["k"] = "{not json"
	cache := &redisRoutineCache{client: mock}

	if _, ok, err := cache.Get(context.Background(), "k"); err == nil || ok {
		t.Fatalf("corrupt payload should error: ok=%v err=%v", ok, err)
	}
}

func TestNewRedisRoutineCacheNilClient(t *testing.T) {
	if cache := NewRedisRoutineCache(nil); cache != nil {
		t.Fatalf("nil client should yield nil cache")
	}
}

func TestRedisRoutineCacheStoresJSON(t *testing.T) {
	mock := newMockRedisCache()
	cache := &redisRoutineCache{client: mock}

	result := domain.InferenceResult{Summary: "s", PersonalizedTips: []string{"a"}}
	if err := cache.Set(context.Background(), "k", result, time.Minute); err != nil {
		t.Fatalf("set: %v", err)
	}

	var decoded domain.InferenceResult
	if err := json.Unmarshal([]byte(mock.values["k"]), &decoded); err != nil {
		t.Fatalf("stored payload is not JSON: %v", err)
	}
	if decoded.Summary != "s" {
		t.Fatalf("decoded summary: %q", decoded.Summary)
	}
}
