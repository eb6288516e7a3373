package controllers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ehudso7/climate-guardian/gamification"
	"github.com/ehudso7/climate-guardian/middleware"
	"github.com/ehudso7/climate-guardian/utils"
)

// AdminController holds operator-only endpoints.
type AdminController struct {
	svc *gamification.Service
}

// NewAdminController creates a new controller instance.
func NewAdminController(svc *gamification.Service) *AdminController {
	return &AdminController{svc: svc}
}

// GrantPremium marks a user premium and grants the premium badge. It stands in for the billing webhook.
func (a *AdminController) GrantPremium(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	b, err := a.svc.GrantPremium(ctx.Request.Context(), id)
	if err != nil {
		respondError(ctx, err, 50050, "failed to grant premium")
		return
	}
	utils.L().Info("premium granted", zap.Uint("user_id", id), zap.String("by", ctx.GetString(middleware.ContextUsernameKey)))
	utils.Success(ctx, gin.H{"user_id": id, "is_premium": true, "badge": b})
}
