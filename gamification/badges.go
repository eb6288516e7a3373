package gamification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ehudso7/climate-guardian/metrics"
	"github.com/ehudso7/climate-guardian/models"
	"github.com/ehudso7/climate-guardian/repository"
)

// Stats is the ledger snapshot badges are measured against.
type Stats struct {
	CO2Saved          float64
	MissionsCompleted int
	Streak            int
	ReferralCount     int
}

// EarnedBadge is a badge newly granted by an evaluation or a direct grant.
type EarnedBadge struct {
	ID     uint   `json:"id"`
	Slug   string `json:"slug"`
	Name   string `json:"name"`
	Points int    `json:"points"`
}

// BadgeStatus is one row of the badge board.
type BadgeStatus struct {
	Badge    models.Badge `json:"badge"`
	Earned   bool         `json:"earned"`
	EarnedAt *time.Time   `json:"earned_at,omitempty"`
	Progress float64      `json:"progress"`
}

// ProgressFor returns the statistic measured by b. ok is false for badges that are only granted directly.
func ProgressFor(b models.Badge, st Stats) (progress float64, ok bool) {
	switch b.RequirementType {
	case models.RequirementMissionsCompleted:
		return float64(st.MissionsCompleted), true
	case models.RequirementCO2Saved:
		return st.CO2Saved, true
	case models.RequirementStreak:
		return float64(st.Streak), true
	case models.RequirementReferrals:
		return float64(st.ReferralCount), true
	case models.RequirementSpecial, models.RequirementPremium:
		return 0, false
	default:
		return 0, false
	}
}

// EvaluateBadges grants every active badge the user now qualifies for.
func (s *Service) EvaluateBadges(ctx context.Context, userID uint) ([]EarnedBadge, error) {
	st, err := s.statsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.Evaluate(ctx, userID, st)
}

// Evaluate grants badges against a caller-supplied snapshot and returns the ones newly earned.
func (s *Service) Evaluate(ctx context.Context, userID uint, st Stats) ([]EarnedBadge, error) {
	catalog, err := s.store.ActiveBadges(ctx)
	if err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	earned, err := s.earnedSet(ctx, userID)
	if err != nil {
		return nil, err
	}

	var out []EarnedBadge
	for _, b := range catalog {
		if _, have := earned[b.ID]; have {
			continue
		}
		progress, ok := ProgressFor(b, st)
		if !ok || progress < b.RequirementValue {
			continue
		}
		inserted, err := s.awardBadge(ctx, userID, b)
		if err != nil {
			return out, fmt.Errorf("award badge %s: %w", b.Slug, err)
		}
		if inserted {
			out = append(out, earnedBadge(b))
		}
	}
	return out, nil
}

// GrantBadge awards a badge by slug regardless of its requirement. Granting twice is a no-op.
func (s *Service) GrantBadge(ctx context.Context, userID uint, slug string) (*EarnedBadge, error) {
	b, err := s.store.BadgeBySlug(ctx, slug)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBadgeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load badge %s: %w", slug, err)
	}
	inserted, err := s.awardBadge(ctx, userID, *b)
	if err != nil {
		return nil, fmt.Errorf("award badge %s: %w", slug, err)
	}
	if !inserted {
		return nil, nil
	}
	eb := earnedBadge(*b)
	return &eb, nil
}

// BadgeBoard lists every active badge with the user's standing on it.
func (s *Service) BadgeBoard(ctx context.Context, userID uint) ([]BadgeStatus, error) {
	catalog, err := s.store.ActiveBadges(ctx)
	if err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	earned, err := s.earnedSet(ctx, userID)
	if err != nil {
		return nil, err
	}
	st, err := s.statsFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	board := make([]BadgeStatus, 0, len(catalog))
	for _, b := range catalog {
		row := BadgeStatus{Badge: b}
		if at, ok := earned[b.ID]; ok {
			at := at
			row.Earned = true
			row.EarnedAt = &at
		}
		if progress, ok := ProgressFor(b, st); ok {
			row.Progress = progress
		}
		board = append(board, row)
	}
	return board, nil
}

// awardBadge inserts the user badge and credits its points in one transaction.
// Points are only added when this call inserted the row.
func (s *Service) awardBadge(ctx context.Context, userID uint, b models.Badge) (bool, error) {
	var inserted bool
	var total int
	err := s.withRetry(ctx, func() error {
		return s.store.Transaction(ctx, func(tx repository.Tx) error {
			p, err := s.lockProgress(ctx, tx, userID)
			if err != nil {
				return fmt.Errorf("lock ledger: %w", err)
			}
			inserted, err = tx.InsertUserBadge(ctx, &models.UserBadge{
				UserID:   userID,
				BadgeID:  b.ID,
				EarnedAt: s.clock.Now(),
			})
			if err != nil || !inserted {
				return err
			}
			AwardPoints(p, b.Points)
			total = p.TotalPoints
			return tx.SaveProgress(ctx, p)
		})
	})
	if err != nil {
		return false, err
	}
	if inserted {
		metrics.BadgeAwarded(b.Slug)
		s.notifyPoints(ctx, userID, total)
		s.log.Info("badge earned", zap.Uint("user_id", userID), zap.String("badge", b.Slug), zap.Int("points", b.Points))
	}
	return inserted, nil
}

func (s *Service) statsFor(ctx context.Context, userID uint) (Stats, error) {
	var st Stats
	p, err := s.store.Progress(ctx, userID)
	switch {
	case err == nil:
		st.CO2Saved = p.TotalCO2Saved
		st.MissionsCompleted = p.TotalMissionsCompleted
		st.Streak = p.CurrentStreak
	case errors.Is(err, repository.ErrNotFound):
	default:
		return st, fmt.Errorf("load ledger: %w", err)
	}
	n, err := s.store.CompletedReferralCount(ctx, userID)
	if err != nil {
		return st, fmt.Errorf("count referrals: %w", err)
	}
	st.ReferralCount = int(n)
	return st, nil
}

func (s *Service) earnedSet(ctx context.Context, userID uint) (map[uint]time.Time, error) {
	rows, err := s.store.EarnedBadges(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load earned badges: %w", err)
	}
	set := make(map[uint]time.Time, len(rows))
	for _, ub := range rows {
		set[ub.BadgeID] = ub.EarnedAt
	}
	return set, nil
}

func earnedBadge(b models.Badge) EarnedBadge {
	return EarnedBadge{ID: b.ID, Slug: b.Slug, Name: b.Name, Points: b.Points}
}
