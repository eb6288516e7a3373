package controllers

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ehudso7/climate-guardian/gamification"
	"github.com/ehudso7/climate-guardian/repository"
	"github.com/ehudso7/climate-guardian/utils"
)

const (
	statsCachePrefix = "cache:stats:"
	statsCacheKey    = statsCachePrefix + "totals"
)

// StatsController provides platform statistics and the leaderboard.
type StatsController struct {
	svc      *gamification.Service
	lb       *utils.Leaderboard
	lbSize   int
	cacheTTL time.Duration
}

// NewStatsController creates a new StatsController instance. lb may be nil; the leaderboard then reads the database.
func NewStatsController(svc *gamification.Service, lb *utils.Leaderboard, leaderboardSize int, cacheTTL time.Duration) *StatsController {
	if leaderboardSize <= 0 {
		leaderboardSize = 20
	}
	return &StatsController{svc: svc, lb: lb, lbSize: leaderboardSize, cacheTTL: cacheTTL}
}

// GetStats returns platform-wide impact totals.
func (s *StatsController) GetStats(ctx *gin.Context) {
	rctx := ctx.Request.Context()

	var totals repository.Totals
	if utils.CacheGetJSON(rctx, statsCacheKey, &totals) {
		utils.Success(ctx, totals)
		return
	}

	totals, err := s.svc.Totals(rctx)
	if err != nil {
		respondError(ctx, err, 50040, "failed to load stats")
		return
	}
	utils.CacheSetJSON(rctx, statsCacheKey, totals, s.cacheTTL)
	utils.Success(ctx, totals)
}

// Leaderboard ranks users by points, read from redis with a database fallback.
func (s *StatsController) Leaderboard(ctx *gin.Context) {
	rctx := ctx.Request.Context()
	limit := queryInt(ctx, "limit", s.lbSize, 100)

	entries, err := s.lb.Top(rctx, limit)
	if err == nil && len(entries) > 0 {
		out := make([]gamification.RankedUser, 0, len(entries))
		for i, e := range entries {
			out = append(out, gamification.RankedUser{
				Rank:        i + 1,
				UserID:      e.UserID,
				TotalPoints: e.Points,
				Level:       gamification.LevelFromPoints(e.Points),
			})
		}
		utils.Success(ctx, gin.H{"source": "cache", "entries": out})
		return
	}
	if err != nil {
		utils.L().Debug("leaderboard cache miss", zap.Error(err))
	}

	ranked, err := s.svc.Leaderboard(rctx, limit)
	if err != nil {
		respondError(ctx, err, 50041, "failed to load leaderboard")
		return
	}
	utils.Success(ctx, gin.H{"source": "database", "entries": ranked})
}
