package gamification

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ehudso7/climate-guardian/metrics"
	"github.com/ehudso7/climate-guardian/models"
	"github.com/ehudso7/climate-guardian/repository"
)

// AssignmentWithMission is an assignment joined with its catalog mission.
type AssignmentWithMission struct {
	Assignment models.UserMission `json:"assignment"`
	Mission    models.Mission     `json:"mission"`
}

// TodayAssignment returns the user's assignment for today, creating it on first call.
// Repeated calls on the same day return the same row.
func (s *Service) TodayAssignment(ctx context.Context, userID uint) (*AssignmentWithMission, error) {
	today := s.Today()

	existing, err := s.store.AssignmentForDate(ctx, userID, today)
	if err == nil {
		return s.withMission(ctx, existing)
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("load today's assignment: %w", err)
	}

	active, err := s.store.ActiveMissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active missions: %w", err)
	}
	if len(active) == 0 {
		return nil, ErrNoMissionsAvailable
	}

	recent, err := s.store.MissionIDsAssignedBetween(ctx, userID, AddDays(today, -s.window), today)
	if err != nil {
		return nil, fmt.Errorf("load recent assignments: %w", err)
	}

	mission := PickMission(active, recent, s.intn)
	a := &models.UserMission{
		UserID:       userID,
		MissionID:    mission.ID,
		AssignedDate: today,
		Status:       models.AssignmentPending,
	}
	if err := s.store.CreateAssignment(ctx, a); err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			return nil, fmt.Errorf("create assignment: %w", err)
		}
		// Lost the insert race; the winner's row is today's assignment.
		winner, rerr := s.store.AssignmentForDate(ctx, userID, today)
		if rerr != nil {
			return nil, fmt.Errorf("reload assignment after conflict: %w", rerr)
		}
		return s.withMission(ctx, winner)
	}

	metrics.AssignmentCreated()
	s.log.Info("mission assigned",
		zap.Uint("user_id", userID),
		zap.Uint("mission_id", mission.ID),
		zap.Time("date", today),
	)
	return &AssignmentWithMission{Assignment: *a, Mission: mission}, nil
}

// PickMission chooses uniformly among active missions not in recent, or among all of them when every one is recent.
// active must not be empty.
func PickMission(active []models.Mission, recent []uint, intn func(n int) int) models.Mission {
	seen := make(map[uint]struct{}, len(recent))
	for _, id := range recent {
		seen[id] = struct{}{}
	}
	fresh := make([]models.Mission, 0, len(active))
	for _, m := range active {
		if _, ok := seen[m.ID]; !ok {
			fresh = append(fresh, m)
		}
	}
	pool := fresh
	if len(pool) == 0 {
		pool = active
	}
	return pool[intn(len(pool))]
}

// AssignmentHistory lists the user's most recent assignments, newest first.
func (s *Service) AssignmentHistory(ctx context.Context, userID uint, limit int) ([]AssignmentWithMission, error) {
	rows, err := s.store.ListAssignments(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	catalog, err := s.store.ListMissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list missions: %w", err)
	}
	byID := make(map[uint]models.Mission, len(catalog))
	for _, m := range catalog {
		byID[m.ID] = m
	}
	out := make([]AssignmentWithMission, 0, len(rows))
	for _, a := range rows {
		out = append(out, AssignmentWithMission{Assignment: a, Mission: byID[a.MissionID]})
	}
	return out, nil
}

func (s *Service) withMission(ctx context.Context, a *models.UserMission) (*AssignmentWithMission, error) {
	m, err := s.store.MissionByID(ctx, a.MissionID)
	if err != nil {
		return nil, fmt.Errorf("load mission %d: %w", a.MissionID, err)
	}
	return &AssignmentWithMission{Assignment: *a, Mission: *m}, nil
}
