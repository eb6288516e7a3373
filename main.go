package main

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ehudso7/climate-guardian/config"
	"github.com/ehudso7/climate-guardian/gamification"
	"github.com/ehudso7/climate-guardian/jobs"
	"github.com/ehudso7/climate-guardian/repository"
	"github.com/ehudso7/climate-guardian/routes"
	"github.com/ehudso7/climate-guardian/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}

	db, err := config.OpenDatabase(cfg, config.Models()...)
	if err != nil {
		utils.Sugar.Fatalf("database: %v", err)
	}
	store := repository.NewGormStore(db)
	lb := utils.NewLeaderboard(utils.GetRedis(), utils.Logger.Named("leaderboard"))

	svc := gamification.NewService(store,
		gamification.WithLocation(cfg.Location()),
		gamification.WithRecentWindow(cfg.RecentWindowDays),
		gamification.WithLogger(utils.Logger.Named("gamification")),
		gamification.WithPointsObserver(lb),
	)

	if cfg.SeedCatalog {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := svc.SeedCatalog(ctx); err != nil {
			utils.Sugar.Fatalf("seed catalog: %v", err)
		}
		cancel()
	}

	var scheduler *cron.Cron
	if cfg.LeaderboardRebuildCron != "" {
		job := jobs.NewLeaderboardJob(store, lb, utils.Logger.Named("jobs"))
		c, err := jobs.Start(cfg.LeaderboardRebuildCron, job)
		if err != nil {
			utils.Sugar.Fatalf("start leaderboard job: %v", err)
		}
		scheduler = c
	}

	r := routes.SetupRouter(svc, lb)

	srv := utils.NewServer(":"+cfg.AppPort, r, utils.DefaultReadTimeout, utils.DefaultWriteTimeout)
	srv.OnShutdown(func(ctx context.Context) {
		if scheduler != nil {
			select {
			case <-scheduler.Stop().Done():
			case <-ctx.Done():
			}
		}
		_ = utils.Logger.Sync()
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
