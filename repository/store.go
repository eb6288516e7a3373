// Package repository holds the persistence collaborator used by the gamification core.
package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ehudso7/climate-guardian/models"
)

var (
	// ErrNotFound is returned when a point read matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when an insert violates a unique constraint.
	ErrDuplicate = errors.New("duplicate record")
	// ErrConflict is returned when a transaction lost a lock race and may be retried.
	ErrConflict = errors.New("transaction conflict")
)

// Totals aggregates platform-wide counters.
type Totals struct {
	Users             int64   `json:"users"`
	CO2Saved          float64 `json:"co2_saved"`
	MissionsCompleted int64   `json:"missions_completed"`
	TreesPlanted      int64   `json:"trees_planted"`
}

// Tx is the set of reads and writes available both inside and outside a transaction.
type Tx interface {
	ListMissions(ctx context.Context) ([]models.Mission, error)
	ActiveMissions(ctx context.Context) ([]models.Mission, error)
	MissionByID(ctx context.Context, id uint) (*models.Mission, error)
	// SeedMission inserts m unless a mission with the same slug exists.
	SeedMission(ctx context.Context, m *models.Mission) error

	ActiveBadges(ctx context.Context) ([]models.Badge, error)
	BadgeBySlug(ctx context.Context, slug string) (*models.Badge, error)
	// SeedBadge inserts b unless a badge with the same slug exists.
	SeedBadge(ctx context.Context, b *models.Badge) error

	AssignmentForDate(ctx context.Context, userID uint, date time.Time) (*models.UserMission, error)
	// AssignmentByID only matches assignments owned by userID.
	AssignmentByID(ctx context.Context, userID, id uint) (*models.UserMission, error)
	// MissionIDsAssignedBetween returns mission ids assigned in the inclusive date range.
	MissionIDsAssignedBetween(ctx context.Context, userID uint, from, to time.Time) ([]uint, error)
	// CreateAssignment returns ErrDuplicate when the user already has an assignment for that date.
	CreateAssignment(ctx context.Context, a *models.UserMission) error
	UpdateAssignment(ctx context.Context, a *models.UserMission) error
	ListAssignments(ctx context.Context, userID uint, limit int) ([]models.UserMission, error)

	CreateProgress(ctx context.Context, p *models.UserProgress) error
	Progress(ctx context.Context, userID uint) (*models.UserProgress, error)
	// ProgressForUpdate reads the ledger and holds its row lock until the transaction ends.
	ProgressForUpdate(ctx context.Context, userID uint) (*models.UserProgress, error)
	SaveProgress(ctx context.Context, p *models.UserProgress) error
	// AddDailyProgress creates or increments the (userID, date) log row.
	AddDailyProgress(ctx context.Context, userID uint, date time.Time, co2 float64, missions, points int) error
	DailyProgressBetween(ctx context.Context, userID uint, from, to time.Time) ([]models.DailyProgress, error)
	TopProgress(ctx context.Context, limit int) ([]models.UserProgress, error)
	Totals(ctx context.Context) (Totals, error)

	EarnedBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
	// InsertUserBadge is insert-if-absent; inserted is false when the pair already exists.
	InsertUserBadge(ctx context.Context, ub *models.UserBadge) (inserted bool, err error)

	CreateUser(ctx context.Context, u *models.User) error
	UserByID(ctx context.Context, id uint) (*models.User, error)
	UserByUsername(ctx context.Context, username string) (*models.User, error)
	UserByReferralCode(ctx context.Context, code string) (*models.User, error)
	SetPremium(ctx context.Context, userID uint, premium bool) error
	// CreateReferral is insert-if-absent on the referred user.
	CreateReferral(ctx context.Context, r *models.Referral) (inserted bool, err error)
	CompletedReferralCount(ctx context.Context, referrerID uint) (int64, error)

	// DeleteUserData removes the user and every row owned by them.
	DeleteUserData(ctx context.Context, userID uint) error
}

// Store is a Tx that can also open transactions. fn's writes apply atomically or not at all.
type Store interface {
	Tx
	Transaction(ctx context.Context, fn func(tx Tx) error) error
}
