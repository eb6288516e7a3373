package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ehudso7/climate-guardian/gamification"
	"github.com/ehudso7/climate-guardian/middleware"
	"github.com/ehudso7/climate-guardian/models"
	"github.com/ehudso7/climate-guardian/utils"
)

func getUserID(ctx *gin.Context) (uint, bool) {
	id, ok := middleware.CurrentUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
	}
	return id, ok
}

func parseIDParam(ctx *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40010, "invalid "+name)
		return 0, false
	}
	return uint(id), true
}

func queryInt(ctx *gin.Context, name string, def, upper int) int {
	n, err := strconv.Atoi(ctx.Query(name))
	if err != nil || n <= 0 {
		return def
	}
	if n > upper {
		return upper
	}
	return n
}

// respondError maps engine errors to the API envelope. Anything unrecognised is a 500 with code.
func respondError(ctx *gin.Context, err error, code int, message string) {
	switch {
	case errors.Is(err, gamification.ErrAssignmentNotFound):
		utils.Error(ctx, http.StatusNotFound, 40410, "assignment not found")
	case errors.Is(err, gamification.ErrUserNotFound):
		utils.Error(ctx, http.StatusNotFound, 40401, "user not found")
	case errors.Is(err, gamification.ErrBadgeNotFound):
		utils.Error(ctx, http.StatusNotFound, 40420, "badge not found")
	case errors.Is(err, gamification.ErrAlreadyCompleted):
		utils.Error(ctx, http.StatusConflict, 40910, "mission already completed")
	case errors.Is(err, gamification.ErrUsernameTaken):
		utils.Error(ctx, http.StatusConflict, 40901, "username already exists")
	case errors.Is(err, gamification.ErrInvalidTransition):
		utils.Error(ctx, http.StatusUnprocessableEntity, 42210, "mission is no longer pending")
	case errors.Is(err, gamification.ErrNoMissionsAvailable):
		utils.Error(ctx, http.StatusServiceUnavailable, 50310, "no missions available")
	default:
		utils.L().Error(message, zap.String("path", ctx.FullPath()), zap.Error(err))
		utils.Error(ctx, http.StatusInternalServerError, code, message)
	}
}

func userResponse(user models.User, isAdmin bool) gin.H {
	return gin.H{
		"id":            user.ID,
		"username":      user.Username,
		"email":         user.Email,
		"display_name":  user.DisplayName,
		"referral_code": user.ReferralCode,
		"is_premium":    user.IsPremium,
		"is_admin":      isAdmin,
		"created_at":    user.CreatedAt,
	}
}
