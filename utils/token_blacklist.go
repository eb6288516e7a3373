package utils

import (
	"context"
	"sync"
	"time"
)

const blacklistPrefix = "jwt:blacklist:"

var (
	// revoked is used when redis cannot be reached
	revoked   = map[string]time.Time{}
	revokedMu sync.Mutex
)

// BlacklistToken revokes a token until its natural expiry.
func BlacklistToken(ctx context.Context, token string, expiresAt time.Time) {
	ttl := time.Until(expiresAt)
	if ttl <= 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := GetRedis().Set(ctx, blacklistPrefix+token, "1", ttl).Err()
	if err == nil {
		return
	}
	L().Sugar().Warnf("token blacklist falling back to memory: %v", err)
	revokedMu.Lock()
	revoked[token] = expiresAt
	revokedMu.Unlock()
}

// IsTokenBlacklisted reports whether the token was revoked. Redis errors fail open.
func IsTokenBlacklisted(ctx context.Context, token string) bool {
	revokedMu.Lock()
	exp, ok := revoked[token]
	if ok && time.Now().After(exp) {
		delete(revoked, token)
		ok = false
	}
	revokedMu.Unlock()
	if ok {
		return true
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	n, err := GetRedis().Exists(ctx, blacklistPrefix+token).Result()
	return err == nil && n > 0
}
