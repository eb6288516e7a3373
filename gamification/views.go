package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ehudso7/climate-guardian/models"
	"github.com/ehudso7/climate-guardian/repository"
)

// ProgressView is the ledger together with its level bar.
type ProgressView struct {
	models.UserProgress
	PointsForNextLevel int     `json:"points_for_next_level"`
	CurrentLevelPoints int     `json:"current_level_points"`
	Percent            float64 `json:"percent"`
}

// DayPoint is one day of the history series.
type DayPoint struct {
	Date              time.Time `json:"date"`
	CO2Saved          float64   `json:"co2_saved"`
	MissionsCompleted int       `json:"missions_completed"`
	PointsEarned      int       `json:"points_earned"`
}

// RankedUser is one leaderboard row.
type RankedUser struct {
	Rank        int  `json:"rank"`
	UserID      uint `json:"user_id"`
	TotalPoints int  `json:"total_points"`
	Level       int  `json:"level"`
}

const maxHistoryDays = 366

// Progress returns the user's ledger. Users without one get a zeroed view.
func (s *Service) Progress(ctx context.Context, userID uint) (*ProgressView, error) {
	p, err := s.store.Progress(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		p = newLedger(userID)
	} else if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	bar := ProgressForPoints(p.TotalPoints)
	return &ProgressView{
		UserProgress:       *p,
		PointsForNextLevel: bar.PointsForNextLevel,
		CurrentLevelPoints: bar.CurrentLevelPoints,
		Percent:            bar.Percent,
	}, nil
}

// DailyHistory returns one point per day for the last days days, oldest first, including today.
// Days without activity are zero.
func (s *Service) DailyHistory(ctx context.Context, userID uint, days int) ([]DayPoint, error) {
	if days <= 0 {
		days = 7
	}
	if days > maxHistoryDays {
		days = maxHistoryDays
	}
	to := s.Today()
	from := AddDays(to, -(days - 1))
	rows, err := s.store.DailyProgressBetween(ctx, userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("load daily progress: %w", err)
	}
	byDay := make(map[time.Time]models.DailyProgress, len(rows))
	for _, r := range rows {
		byDay[DateOf(r.Date, time.UTC)] = r
	}
	out := make([]DayPoint, 0, days)
	for d := from; !d.After(to); d = AddDays(d, 1) {
		pt := DayPoint{Date: d}
		if r, ok := byDay[d]; ok {
			pt.CO2Saved = r.CO2Saved
			pt.MissionsCompleted = r.MissionsCompleted
			pt.PointsEarned = r.PointsEarned
		}
		out = append(out, pt)
	}
	return out, nil
}

// Leaderboard ranks users by total points straight from the store.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]RankedUser, error) {
	rows, err := s.store.TopProgress(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("load leaderboard: %w", err)
	}
	out := make([]RankedUser, 0, len(rows))
	for i, p := range rows {
		out = append(out, RankedUser{Rank: i + 1, UserID: p.UserID, TotalPoints: p.TotalPoints, Level: p.Level})
	}
	return out, nil
}

// Totals returns platform-wide counters.
func (s *Service) Totals(ctx context.Context) (repository.Totals, error) {
	return s.store.Totals(ctx)
}
