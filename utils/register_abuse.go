package utils

import (
	"context"
	"strings"
	"time"

	"github.com/ehudso7/climate-guardian/config"
)

// Signup limits are counted per client IP and fail open when redis is down.

const signupOpTimeout = 500 * time.Millisecond

func signupKey(parts ...string) string {
	return "signup:" + strings.Join(parts, ":")
}

// SignupCooldownTry enforces a short cooldown between attempts per IP.
func SignupCooldownTry(ctx context.Context, ip string) bool {
	sec := config.Get().RegisterAttemptCooldownSec
	if sec <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, signupOpTimeout)
	defer cancel()
	ok, err := GetRedis().SetNX(ctx, signupKey("cooldown", ip), "1", time.Duration(sec)*time.Second).Result()
	if err != nil {
		return true
	}
	return ok
}

// SignupDailyLimitCheck allows up to N successful signups per day per IP.
func SignupDailyLimitCheck(ctx context.Context, ip string) bool {
	limit := config.Get().RegisterMaxPerIPPerDay
	if limit <= 0 {
		return true
	}
	ctx, cancel := context.WithTimeout(ctx, signupOpTimeout)
	defer cancel()
	n, err := GetRedis().Get(ctx, signupKey("day", ip, time.Now().UTC().Format("20060102"))).Int()
	if err != nil {
		// redis.Nil: nothing counted yet today
		return true
	}
	return n < limit
}

// SignupDailyIncrement counts a successful signup for today.
func SignupDailyIncrement(ctx context.Context, ip string) {
	ctx, cancel := context.WithTimeout(ctx, signupOpTimeout)
	defer cancel()
	now := time.Now().UTC()
	key := signupKey("day", ip, now.Format("20060102"))
	cli := GetRedis()
	if err := cli.Incr(ctx, key).Err(); err == nil {
		_ = cli.ExpireAt(ctx, key, now.Truncate(24*time.Hour).Add(24*time.Hour)).Err()
	}
}

// SignupFailRecord counts a failed attempt in the current hour and bans the IP past the threshold.
func SignupFailRecord(ctx context.Context, ip string) {
	cfg := config.Get()
	ctx, cancel := context.WithTimeout(ctx, signupOpTimeout)
	defer cancel()
	cli := GetRedis()
	key := signupKey("fail", ip, time.Now().UTC().Format("2006010215"))
	n, err := cli.Incr(ctx, key).Result()
	if err != nil {
		return
	}
	_ = cli.Expire(ctx, key, time.Hour).Err()
	if cfg.RegisterFailedMaxPerIPPerHour > 0 && int(n) >= cfg.RegisterFailedMaxPerIPPerHour {
		minutes := cfg.RegisterTempBanMinutes
		if minutes <= 0 {
			minutes = 60
		}
		_ = cli.Set(ctx, signupKey("ban", ip), "1", time.Duration(minutes)*time.Minute).Err()
	}
}

// SignupIsBanned checks the temporary ban for IP.
func SignupIsBanned(ctx context.Context, ip string) bool {
	ctx, cancel := context.WithTimeout(ctx, signupOpTimeout)
	defer cancel()
	n, err := GetRedis().Exists(ctx, signupKey("ban", ip)).Result()
	return err == nil && n > 0
}
