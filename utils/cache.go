package utils

import (
	"context"
	"encoding/json"
	"time"
)

const (
	defaultCacheTTL = time.Hour
	cacheOpTimeout  = 2 * time.Second
)

// CacheGetJSON decodes the cached value at key into v. Any redis or decode error is a miss.
func CacheGetJSON(ctx context.Context, key string, v interface{}) bool {
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	raw, err := GetRedis().Get(ctx, key).Bytes()
	if err != nil {
		L().Sugar().Debugf("cache miss key=%s err=%v", key, err)
		return false
	}
	return json.Unmarshal(raw, v) == nil
}

// CacheSetJSON stores v as JSON. A non-positive ttl means one hour. Failures are logged and dropped.
func CacheSetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	raw, err := json.Marshal(v)
	if err != nil {
		L().Sugar().Warnf("cache encode key=%s err=%v", key, err)
		return
	}
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	ctx, cancel := context.WithTimeout(ctx, cacheOpTimeout)
	defer cancel()
	if err := GetRedis().Set(ctx, key, raw, ttl).Err(); err != nil {
		L().Sugar().Warnf("cache set failed key=%s err=%v", key, err)
	}
}

// InvalidateByPrefix unlinks every key under prefix. At most 10k keys are visited per call.
func InvalidateByPrefix(ctx context.Context, prefix string) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	rc := GetRedis()
	it := rc.Scan(ctx, 0, prefix+"*", 500).Iterator()
	batch := make([]string, 0, 100)
	for visited := 0; visited < 10000 && it.Next(ctx); visited++ {
		batch = append(batch, it.Val())
		if len(batch) == cap(batch) {
			_ = rc.Unlink(ctx, batch...).Err()
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		_ = rc.Unlink(ctx, batch...).Err()
	}
	if err := it.Err(); err != nil {
		L().Sugar().Debugf("cache invalidate prefix=%s err=%v", prefix, err)
	}
}
