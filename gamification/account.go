package gamification

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ehudso7/climate-guardian/models"
	"github.com/ehudso7/climate-guardian/repository"
)

// ErrUsernameTaken is returned by CreateAccount when the username is in use.
var ErrUsernameTaken = errors.New("username already taken")

const referralCodeAttempts = 3

// SignupResult is what CreateAccount hands back.
type SignupResult struct {
	User     models.User     `json:"user"`
	Welcome  *EarnedBadge    `json:"welcome_badge,omitempty"`
	Referral *ReferralResult `json:"referral,omitempty"`
}

// NewReferralCode returns an 8 character upper-case code.
func NewReferralCode() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// CreateAccount stores u with a fresh referral code and a zeroed ledger, then runs the signup hooks.
// referralCode is the inviter's code and may be empty.
func (s *Service) CreateAccount(ctx context.Context, u *models.User, referralCode string) (*SignupResult, error) {
	if _, err := s.store.UserByUsername(ctx, u.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	referralCode = strings.TrimSpace(referralCode)
	if referralCode != "" {
		if referrer, err := s.store.UserByReferralCode(ctx, referralCode); err == nil {
			id := referrer.ID
			u.ReferredBy = &id
		}
	}

	var err error
	for i := 0; i < referralCodeAttempts; i++ {
		u.ReferralCode = NewReferralCode()
		err = s.store.Transaction(ctx, func(tx repository.Tx) error {
			if err := tx.CreateUser(ctx, u); err != nil {
				return err
			}
			return tx.CreateProgress(ctx, newLedger(u.ID))
		})
		if !errors.Is(err, repository.ErrDuplicate) {
			break
		}
		// Either the username was claimed concurrently or the code collided.
		if _, uerr := s.store.UserByUsername(ctx, u.Username); uerr == nil {
			return nil, ErrUsernameTaken
		}
		u.ID = 0
	}
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}
	s.log.Info("account created", zap.Uint("user_id", u.ID), zap.String("username", u.Username))

	res, err := s.OnSignup(ctx, u.ID, referralCode)
	if err != nil {
		return nil, err
	}
	res.User = *u
	return res, nil
}

// OnSignup makes sure the ledger exists, grants the welcome badge and credits the referrer.
func (s *Service) OnSignup(ctx context.Context, userID uint, referralCode string) (*SignupResult, error) {
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		_, err := s.lockProgress(ctx, tx, userID)
		return err
	})
	if err != nil && !errors.Is(err, repository.ErrConflict) {
		return nil, fmt.Errorf("create ledger: %w", err)
	}

	res := &SignupResult{}
	welcome, err := s.GrantBadge(ctx, userID, WelcomeBadgeSlug)
	switch {
	case err == nil:
		res.Welcome = welcome
	case errors.Is(err, ErrBadgeNotFound):
	default:
		return nil, err
	}

	if referralCode != "" {
		ref, err := s.ApplyReferral(ctx, referralCode, userID)
		if err != nil {
			return nil, err
		}
		res.Referral = ref
	}
	return res, nil
}

// GrantPremium flags the user as premium and grants the premium badge.
func (s *Service) GrantPremium(ctx context.Context, userID uint) (*EarnedBadge, error) {
	if _, err := s.store.UserByID(ctx, userID); errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	} else if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if err := s.store.SetPremium(ctx, userID, true); err != nil {
		return nil, fmt.Errorf("set premium: %w", err)
	}
	b, err := s.GrantBadge(ctx, userID, PremiumBadgeSlug)
	if errors.Is(err, ErrBadgeNotFound) {
		return nil, nil
	}
	return b, err
}

// DeleteAccount removes the user and everything the engine stored for them.
func (s *Service) DeleteAccount(ctx context.Context, userID uint) error {
	if _, err := s.store.UserByID(ctx, userID); errors.Is(err, repository.ErrNotFound) {
		return ErrUserNotFound
	} else if err != nil {
		return fmt.Errorf("load user: %w", err)
	}
	err := s.store.Transaction(ctx, func(tx repository.Tx) error {
		return tx.DeleteUserData(ctx, userID)
	})
	if err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	if r, ok := s.observer.(UserRemover); ok {
		r.UserRemoved(ctx, userID)
	}
	s.log.Info("account deleted", zap.Uint("user_id", userID))
	return nil
}

// UserRemover is implemented by observers that keep per-user state.
type UserRemover interface {
	UserRemoved(ctx context.Context, userID uint)
}

// User loads an account by id.
func (s *Service) User(ctx context.Context, userID uint) (*models.User, error) {
	u, err := s.store.UserByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}

// UserByUsername loads an account for login.
func (s *Service) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	u, err := s.store.UserByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	return u, nil
}
