package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/ehudso7/climate-guardian/config"
	"github.com/ehudso7/climate-guardian/controllers"
	"github.com/ehudso7/climate-guardian/gamification"
	"github.com/ehudso7/climate-guardian/metrics"
	"github.com/ehudso7/climate-guardian/middleware"
	"github.com/ehudso7/climate-guardian/utils"
)

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(svc *gamification.Service, lb *utils.Leaderboard) *gin.Engine {
	// Load config and set Gin mode from configuration
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Access log goes to its own rolling file at the application log level
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		// fallback to default recovery if logger failed to init
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}

	if len(cfg.AllowedOrigins) == 0 || (len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*") {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}

	r.Use(cors.New(corsCfg))
	if cfg.MetricsEnabled {
		r.Use(middleware.RequestMetrics())
		r.GET("/metrics", gin.WrapH(metrics.Handler()))
	}

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	authController := controllers.NewAuthController(svc)
	missionController := controllers.NewMissionController(svc)
	progressController := controllers.NewProgressController(svc)
	statsController := controllers.NewStatsController(svc, lb, cfg.LeaderboardSize, time.Duration(cfg.StatsCacheTTLSeconds)*time.Second)
	adminController := controllers.NewAdminController(svc)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware())
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)
	authGroup.DELETE("/me", middleware.AuthRequired(), authController.DeleteMe)

	// Public catalog and platform numbers
	api.GET("/missions", missionController.Catalog)
	api.GET("/stats", statsController.GetStats)
	api.GET("/leaderboard", statsController.Leaderboard)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired(), middleware.RateLimitMiddleware())
	protected.GET("/missions/today", missionController.Today)
	protected.GET("/missions/history", missionController.History)
	protected.POST("/missions/:id/complete", missionController.Complete)
	protected.POST("/missions/:id/skip", missionController.Skip)
	protected.GET("/progress", progressController.Progress)
	protected.GET("/progress/daily", progressController.Daily)
	protected.GET("/badges", progressController.Badges)
	protected.POST("/badges/evaluate", progressController.EvaluateBadges)
	protected.GET("/referrals", progressController.Referrals)

	admin := protected.Group("/admin")
	admin.Use(middleware.AdminRequired())
	admin.POST("/users/:id/premium", adminController.GrantPremium)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "route not found")
	})

	return r
}
