package gamification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ehudso7/climate-guardian/metrics"
	"github.com/ehudso7/climate-guardian/models"
	"github.com/ehudso7/climate-guardian/repository"
)

// ReferralOutcome says what ApplyReferral did.
type ReferralOutcome string

const (
	ReferralApplied        ReferralOutcome = "applied"
	ReferralIgnored        ReferralOutcome = "ignored"
	ReferralAlreadyApplied ReferralOutcome = "already_applied"
)

// ReferralResult is returned by ApplyReferral.
type ReferralResult struct {
	Outcome    ReferralOutcome `json:"outcome"`
	ReferrerID uint            `json:"referrer_id,omitempty"`
	NewBadges  []EarnedBadge   `json:"new_badges,omitempty"`
}

// ReferralSummary is the user's referral page.
type ReferralSummary struct {
	Code         string `json:"code"`
	Completed    int64  `json:"completed"`
	TreesPlanted int    `json:"trees_planted"`
}

// ApplyReferral credits the owner of code for bringing in newUserID.
// Unknown codes and self-referrals are ignored without error.
func (s *Service) ApplyReferral(ctx context.Context, code string, newUserID uint) (*ReferralResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return &ReferralResult{Outcome: ReferralIgnored}, nil
	}
	referrer, err := s.store.UserByReferralCode(ctx, code)
	if errors.Is(err, repository.ErrNotFound) {
		metrics.ReferralProcessed(string(ReferralIgnored))
		return &ReferralResult{Outcome: ReferralIgnored}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("resolve referral code: %w", err)
	}
	if referrer.ID == newUserID {
		metrics.ReferralProcessed(string(ReferralIgnored))
		return &ReferralResult{Outcome: ReferralIgnored}, nil
	}

	var inserted bool
	var trees int
	err = s.withRetry(ctx, func() error {
		return s.store.Transaction(ctx, func(tx repository.Tx) error {
			p, err := s.lockProgress(ctx, tx, referrer.ID)
			if err != nil {
				return fmt.Errorf("lock referrer ledger: %w", err)
			}
			now := s.clock.Now()
			inserted, err = tx.CreateReferral(ctx, &models.Referral{
				ReferrerID:  referrer.ID,
				ReferredID:  newUserID,
				Status:      models.ReferralCompleted,
				CompletedAt: &now,
			})
			if err != nil {
				return fmt.Errorf("create referral: %w", err)
			}
			if !inserted {
				return nil
			}
			p.TreesPlanted++
			trees = p.TreesPlanted
			return tx.SaveProgress(ctx, p)
		})
	})
	if err != nil {
		return nil, err
	}

	res := &ReferralResult{Outcome: ReferralApplied, ReferrerID: referrer.ID}
	if !inserted {
		res.Outcome = ReferralAlreadyApplied
		metrics.ReferralProcessed(string(res.Outcome))
		return res, nil
	}
	metrics.ReferralProcessed(string(res.Outcome))
	s.log.Info("referral applied",
		zap.Uint("referrer_id", referrer.ID),
		zap.Uint("referred_id", newUserID),
		zap.Int("trees_planted", trees),
	)

	badges, err := s.EvaluateBadges(ctx, referrer.ID)
	if err != nil {
		s.log.Warn("referrer badge evaluation failed", zap.Uint("user_id", referrer.ID), zap.Error(err))
		return res, nil
	}
	res.NewBadges = badges
	return res, nil
}

// ReferralSummary reports the user's code and what it has earned so far.
func (s *Service) ReferralSummary(ctx context.Context, userID uint) (*ReferralSummary, error) {
	u, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	n, err := s.store.CompletedReferralCount(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count referrals: %w", err)
	}
	sum := &ReferralSummary{Code: u.ReferralCode, Completed: n}
	p, err := s.store.Progress(ctx, userID)
	switch {
	case err == nil:
		sum.TreesPlanted = p.TreesPlanted
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return sum, nil
}
