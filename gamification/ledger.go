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

// CompletionResult is what a successful completion hands back to the caller.
type CompletionResult struct {
	Assignment   models.UserMission  `json:"assignment"`
	Mission      models.Mission      `json:"mission"`
	Progress     models.UserProgress `json:"progress"`
	PointsEarned int                 `json:"points_earned"`
	CO2Saved     float64             `json:"co2_saved"`
	LeveledUp    bool                `json:"leveled_up"`
	NewBadges    []EarnedBadge       `json:"new_badges"`
}

// CompleteAssignment moves a pending assignment to completed and credits the ledger.
// Streak updates count against today, not the assignment's date.
func (s *Service) CompleteAssignment(ctx context.Context, userID, assignmentID uint) (*CompletionResult, error) {
	var res *CompletionResult
	err := s.withRetry(ctx, func() error {
		res = nil
		return s.store.Transaction(ctx, func(tx repository.Tx) error {
			p, err := s.lockProgress(ctx, tx, userID)
			if err != nil {
				return fmt.Errorf("lock ledger: %w", err)
			}
			a, err := loadAssignment(ctx, tx, userID, assignmentID)
			if err != nil {
				return err
			}
			switch a.Status {
			case models.AssignmentPending:
			case models.AssignmentCompleted:
				return ErrAlreadyCompleted
			default:
				return ErrInvalidTransition
			}
			m, err := tx.MissionByID(ctx, a.MissionID)
			if err != nil {
				return fmt.Errorf("load mission %d: %w", a.MissionID, err)
			}

			now := s.clock.Now()
			today := DateOf(now, s.loc)
			before := p.Level
			ApplyCompletion(p, today, m.CO2Impact, m.Points)
			if err := tx.SaveProgress(ctx, p); err != nil {
				return fmt.Errorf("save ledger: %w", err)
			}
			if err := tx.AddDailyProgress(ctx, userID, today, m.CO2Impact, 1, m.Points); err != nil {
				return fmt.Errorf("log daily progress: %w", err)
			}
			a.Status = models.AssignmentCompleted
			a.CompletedAt = &now
			if err := tx.UpdateAssignment(ctx, a); err != nil {
				return fmt.Errorf("update assignment: %w", err)
			}
			res = &CompletionResult{
				Assignment:   *a,
				Mission:      *m,
				Progress:     *p,
				PointsEarned: m.Points,
				CO2Saved:     m.CO2Impact,
				LeveledUp:    p.Level > before,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	metrics.MissionCompleted(string(res.Mission.Category), res.CO2Saved)
	s.notifyPoints(ctx, userID, res.Progress.TotalPoints)
	s.log.Info("mission completed",
		zap.Uint("user_id", userID),
		zap.Uint("assignment_id", assignmentID),
		zap.Int("streak", res.Progress.CurrentStreak),
		zap.Int("total_points", res.Progress.TotalPoints),
	)

	badges, err := s.EvaluateBadges(ctx, userID)
	if err != nil {
		// The completion is committed; a failed evaluation is picked up by the next one.
		s.log.Warn("badge evaluation failed", zap.Uint("user_id", userID), zap.Error(err))
		return res, nil
	}
	res.NewBadges = badges
	if len(badges) > 0 {
		if p, err := s.store.Progress(ctx, userID); err == nil {
			res.LeveledUp = res.LeveledUp || p.Level > res.Progress.Level
			res.Progress = *p
		}
	}
	return res, nil
}

// SkipAssignment moves a pending assignment to skipped and resets the current streak.
func (s *Service) SkipAssignment(ctx context.Context, userID, assignmentID uint) (*models.UserMission, error) {
	var out *models.UserMission
	err := s.withRetry(ctx, func() error {
		return s.store.Transaction(ctx, func(tx repository.Tx) error {
			p, err := s.lockProgress(ctx, tx, userID)
			if err != nil {
				return fmt.Errorf("lock ledger: %w", err)
			}
			a, err := loadAssignment(ctx, tx, userID, assignmentID)
			if err != nil {
				return err
			}
			if a.Status != models.AssignmentPending {
				return ErrInvalidTransition
			}
			ApplySkip(p)
			if err := tx.SaveProgress(ctx, p); err != nil {
				return fmt.Errorf("save ledger: %w", err)
			}
			now := s.clock.Now()
			a.Status = models.AssignmentSkipped
			a.SkippedAt = &now
			if err := tx.UpdateAssignment(ctx, a); err != nil {
				return fmt.Errorf("update assignment: %w", err)
			}
			out = a
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	metrics.MissionSkipped()
	s.log.Info("mission skipped", zap.Uint("user_id", userID), zap.Uint("assignment_id", assignmentID))
	return out, nil
}

func loadAssignment(ctx context.Context, tx repository.Tx, userID, id uint) (*models.UserMission, error) {
	a, err := tx.AssignmentByID(ctx, userID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAssignmentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load assignment: %w", err)
	}
	return a, nil
}
