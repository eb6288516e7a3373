package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/ehudso7/climate-guardian/gamification"
	"github.com/ehudso7/climate-guardian/utils"
)

// ProgressController exposes the ledger, badges and referrals of the current user.
type ProgressController struct {
	svc *gamification.Service
}

// NewProgressController creates a new controller instance.
func NewProgressController(svc *gamification.Service) *ProgressController {
	return &ProgressController{svc: svc}
}

// Progress returns the ledger with the level bar.
func (p *ProgressController) Progress(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	view, err := p.svc.Progress(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50030, "failed to load progress")
		return
	}
	utils.Success(ctx, view)
}

// Daily returns the per-day series for ?days=N (default 7).
func (p *ProgressController) Daily(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	days := queryInt(ctx, "days", 7, 366)
	series, err := p.svc.DailyHistory(ctx.Request.Context(), userID, days)
	if err != nil {
		respondError(ctx, err, 50031, "failed to load daily progress")
		return
	}
	utils.Success(ctx, gin.H{"days": series})
}

// Badges lists every active badge with the user's progress towards it.
func (p *ProgressController) Badges(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	board, err := p.svc.BadgeBoard(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50032, "failed to load badges")
		return
	}
	utils.Success(ctx, gin.H{"badges": board})
}

// EvaluateBadges re-runs badge evaluation and returns anything newly earned.
func (p *ProgressController) EvaluateBadges(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	earned, err := p.svc.EvaluateBadges(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50033, "failed to evaluate badges")
		return
	}
	if earned == nil {
		earned = []gamification.EarnedBadge{}
	}
	utils.Success(ctx, gin.H{"new_badges": earned})
}

// Referrals returns the user's code and what it has earned.
func (p *ProgressController) Referrals(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	sum, err := p.svc.ReferralSummary(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50034, "failed to load referrals")
		return
	}
	utils.Success(ctx, sum)
}
