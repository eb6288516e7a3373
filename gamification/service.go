// Package gamification is the mission, streak, level, badge and referral engine.
//
// Service is the only entry point. It owns every write to assignments, ledgers,
// daily logs, user badges and referrals, and reaches storage only through the
// injected repository.Store.
package gamification

import (
	"context"
	"errors"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/ehudso7/climate-guardian/metrics"
	"github.com/ehudso7/climate-guardian/models"
	"github.com/ehudso7/climate-guardian/repository"
)

// DefaultRecentWindowDays is how many trailing days of assignments are avoided when picking a mission.
const DefaultRecentWindowDays = 7

// PointsObserver is told about every committed change to a user's total points.
type PointsObserver interface {
	PointsChanged(ctx context.Context, userID uint, totalPoints int)
}

// Service runs the engine against a store.
type Service struct {
	store    repository.Store
	clock    Clock
	loc      *time.Location
	window   int
	intn     func(n int) int
	log      *zap.Logger
	observer PointsObserver
}

// Option configures a Service.
type Option func(*Service)

// WithClock replaces the wall clock.
func WithClock(c Clock) Option { return func(s *Service) { s.clock = c } }

// WithLocation sets the timezone that decides where a calendar day starts.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

// WithRecentWindow sets the anti-repeat window in days.
func WithRecentWindow(days int) Option {
	return func(s *Service) {
		if days >= 0 {
			s.window = days
		}
	}
}

// WithRandom replaces the uniform picker; intn must return a value in [0, n).
func WithRandom(intn func(n int) int) Option {
	return func(s *Service) {
		if intn != nil {
			s.intn = intn
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.log = l
		}
	}
}

// WithPointsObserver registers an observer such as the leaderboard.
func WithPointsObserver(o PointsObserver) Option { return func(s *Service) { s.observer = o } }

// NewService builds a Service.
func NewService(store repository.Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		clock:  SystemClock{},
		loc:    time.UTC,
		window: DefaultRecentWindowDays,
		intn:   rand.Intn,
		log:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Today is the current calendar date in the configured timezone.
func (s *Service) Today() time.Time {
	return DateOf(s.clock.Now(), s.loc)
}

// lockProgress reads the ledger under its row lock, creating a zeroed one for users that predate it.
func (s *Service) lockProgress(ctx context.Context, tx repository.Tx, userID uint) (*models.UserProgress, error) {
	p, err := tx.ProgressForUpdate(ctx, userID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	p = newLedger(userID)
	if err := tx.CreateProgress(ctx, p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return tx.ProgressForUpdate(ctx, userID)
}

// withRetry runs fn again once when it lost a lock race.
func (s *Service) withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if errors.Is(err, repository.ErrConflict) && ctx.Err() == nil {
		metrics.TransitionRetried()
		s.log.Debug("retrying ledger transaction after conflict", zap.Error(err))
		err = fn()
	}
	return err
}

func (s *Service) notifyPoints(ctx context.Context, userID uint, total int) {
	if s.observer != nil {
		s.observer.PointsChanged(ctx, userID, total)
	}
}

func newLedger(userID uint) *models.UserProgress {
	return &models.UserProgress{UserID: userID, Level: LevelFromPoints(0)}
}
