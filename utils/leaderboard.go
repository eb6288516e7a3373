package utils

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/ehudso7/climate-guardian/models"
)

// LeaderboardKey is the sorted set of user id -> total points.
const LeaderboardKey = "lb:points"

const leaderboardOpTimeout = time.Second

// ErrLeaderboardUnavailable is returned when no redis client is configured.
var ErrLeaderboardUnavailable = errors.New("leaderboard unavailable")

// LeaderboardEntry is one ranked row read from redis.
type LeaderboardEntry struct {
	UserID uint
	Points int
}

// Leaderboard mirrors total points into a redis sorted set.
// Writes are best effort; the database stays the source of truth and Rebuild repairs drift.
type Leaderboard struct {
	rdb *redis.Client
	key string
	log *zap.Logger
}

// NewLeaderboard returns a leaderboard on rdb. A nil client yields a leaderboard that always reports unavailable.
func NewLeaderboard(rdb *redis.Client, log *zap.Logger) *Leaderboard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Leaderboard{rdb: rdb, key: LeaderboardKey, log: log}
}

// PointsChanged records the user's new total.
func (l *Leaderboard) PointsChanged(ctx context.Context, userID uint, totalPoints int) {
	if l == nil || l.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, leaderboardOpTimeout)
	defer cancel()
	err := l.rdb.ZAdd(ctx, l.key, redis.Z{Score: float64(totalPoints), Member: member(userID)}).Err()
	if err != nil {
		l.log.Warn("leaderboard update failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// UserRemoved drops a deleted account.
func (l *Leaderboard) UserRemoved(ctx context.Context, userID uint) {
	if l == nil || l.rdb == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, leaderboardOpTimeout)
	defer cancel()
	if err := l.rdb.ZRem(ctx, l.key, member(userID)).Err(); err != nil {
		l.log.Warn("leaderboard remove failed", zap.Uint("user_id", userID), zap.Error(err))
	}
}

// Top returns the n highest totals, best first.
func (l *Leaderboard) Top(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if l == nil || l.rdb == nil {
		return nil, ErrLeaderboardUnavailable
	}
	if n <= 0 {
		return nil, nil
	}
	ctx, cancel := context.WithTimeout(ctx, leaderboardOpTimeout)
	defer cancel()
	zs, err := l.rdb.ZRevRangeWithScores(ctx, l.key, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		s, _ := z.Member.(string)
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			continue
		}
		out = append(out, LeaderboardEntry{UserID: uint(id), Points: int(z.Score)})
	}
	return out, nil
}

// Rebuild replaces the set with rows, atomically for readers.
func (l *Leaderboard) Rebuild(ctx context.Context, rows []models.UserProgress) error {
	if l == nil || l.rdb == nil {
		return ErrLeaderboardUnavailable
	}
	tmp := l.key + ":rebuild"
	_, err := l.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, tmp)
		if len(rows) == 0 {
			pipe.Del(ctx, l.key)
			return nil
		}
		zs := make([]redis.Z, 0, len(rows))
		for _, p := range rows {
			zs = append(zs, redis.Z{Score: float64(p.TotalPoints), Member: member(p.UserID)})
		}
		pipe.ZAdd(ctx, tmp, zs...)
		pipe.Rename(ctx, tmp, l.key)
		return nil
	})
	return err
}

func member(userID uint) string {
	return strconv.FormatUint(uint64(userID), 10)
}
