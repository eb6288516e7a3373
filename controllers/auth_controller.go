package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/ehudso7/climate-guardian/config"
	"github.com/ehudso7/climate-guardian/gamification"
	"github.com/ehudso7/climate-guardian/middleware"
	"github.com/ehudso7/climate-guardian/models"
	"github.com/ehudso7/climate-guardian/utils"
)

// AuthController handles account endpoints.
type AuthController struct {
	svc *gamification.Service
}

// NewAuthController creates a new controller instance.
func NewAuthController(svc *gamification.Service) *AuthController {
	return &AuthController{svc: svc}
}

func tokenTTL() time.Duration {
	return time.Duration(config.Get().JWTTTLHours) * time.Hour
}

// Register creates an account, seeds its ledger and applies an optional referral code.
func (a *AuthController) Register(ctx *gin.Context) {
	type request struct {
		Username     string `json:"username" binding:"required"`
		Email        string `json:"email"`
		Password     string `json:"password" binding:"required"`
		DisplayName  string `json:"display_name"`
		ReferralCode string `json:"referral_code"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if l := len([]rune(req.Username)); l < 3 || l > 32 {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username must be 3 to 32 characters")
		return
	}
	if !validUsername(req.Username) {
		utils.Error(ctx, http.StatusBadRequest, 40002, "username may only contain letters, digits, '-' and '_'")
		return
	}
	if err := utils.ValidatePassword(req.Password); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, err.Error())
		return
	}

	// Anti-abuse: ban check, cooldown, per-IP daily limit
	ip := ctx.ClientIP()
	rctx := ctx.Request.Context()
	if utils.SignupIsBanned(rctx, ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42920, "signups from this address are temporarily blocked")
		return
	}
	if !utils.SignupCooldownTry(rctx, ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42910, "too many attempts, try again shortly")
		return
	}
	if !utils.SignupDailyLimitCheck(rctx, ip) {
		utils.Error(ctx, http.StatusTooManyRequests, 42921, "daily signup limit reached")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50001, "failed to hash password")
		return
	}

	displayName := utils.SanitizeDisplayName(req.DisplayName)
	if displayName == "" {
		displayName = req.Username
	}
	user := &models.User{
		Username:     req.Username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		DisplayName:  displayName,
		RegisterIP:   ip,
	}

	res, err := a.svc.CreateAccount(rctx, user, req.ReferralCode)
	if err != nil {
		utils.SignupFailRecord(rctx, ip)
		respondError(ctx, err, 50002, "failed to create user")
		return
	}
	utils.SignupDailyIncrement(rctx, ip)

	token, err := utils.GenerateToken(res.User.ID, res.User.Username, tokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50003, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token":         token,
		"user":          userResponse(res.User, config.Get().IsAdmin(res.User.Username)),
		"welcome_badge": res.Welcome,
		"referral":      res.Referral,
	})
}

// Login verifies credentials and issues a JWT.
func (a *AuthController) Login(ctx *gin.Context) {
	type request struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}

	var req request
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40004, "invalid request payload")
		return
	}

	user, err := a.svc.UserByUsername(ctx.Request.Context(), strings.TrimSpace(req.Username))
	if err != nil {
		if errors.Is(err, gamification.ErrUserNotFound) {
			utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
			return
		}
		respondError(ctx, err, 50004, "failed to load user")
		return
	}
	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		utils.Error(ctx, http.StatusUnauthorized, 40106, "invalid username or password")
		return
	}

	token, err := utils.GenerateToken(user.ID, user.Username, tokenTTL())
	if err != nil {
		utils.Error(ctx, http.StatusInternalServerError, 50005, "failed to generate token")
		return
	}

	utils.Success(ctx, gin.H{
		"token": token,
		"user":  userResponse(*user, config.Get().IsAdmin(user.Username)),
	})
}

// Logout invalidates the token by blacklisting it until expiration.
func (a *AuthController) Logout(ctx *gin.Context) {
	revokeCurrentToken(ctx)
	utils.Success(ctx, gin.H{"message": "logged out"})
}

// Me returns the authenticated user with their ledger.
func (a *AuthController) Me(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}

	user, err := a.svc.User(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50006, "failed to load user")
		return
	}
	progress, err := a.svc.Progress(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err, 50007, "failed to load progress")
		return
	}

	utils.Success(ctx, gin.H{
		"user":     userResponse(*user, config.Get().IsAdmin(user.Username)),
		"progress": progress,
	})
}

// DeleteMe removes the account and all of its gamification data.
func (a *AuthController) DeleteMe(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		return
	}
	if err := a.svc.DeleteAccount(ctx.Request.Context(), userID); err != nil {
		respondError(ctx, err, 50008, "failed to delete account")
		return
	}
	revokeCurrentToken(ctx)
	utils.InvalidateByPrefix(ctx.Request.Context(), statsCachePrefix)
	utils.L().Info("account removed via api", zap.Uint("user_id", userID))
	utils.Success(ctx, gin.H{"message": "account deleted"})
}

func revokeCurrentToken(ctx *gin.Context) {
	token := ctx.GetString(middleware.ContextTokenKey)
	if token == "" {
		return
	}
	expiresAt := time.Now().Add(tokenTTL())
	if v, ok := ctx.Get(middleware.ContextClaimsKey); ok {
		if claims, ok := v.(*utils.Claims); ok && claims.ExpiresAt != nil {
			expiresAt = claims.ExpiresAt.Time
		}
	}
	utils.BlacklistToken(ctx.Request.Context(), token, expiresAt)
}

// Allow letters, digits, '-' and '_'
func validUsername(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
