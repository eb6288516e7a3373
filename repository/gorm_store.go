package repository

import (
	"context"
	"errors"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ehudso7/climate-guardian/models"
)

// MySQL server error numbers the store translates.
const (
	mysqlDuplicateEntry  = 1062
	mysqlLockWaitTimeout = 1205
	mysqlDeadlock        = 1213
)

// GormStore implements Store on top of a gorm connection.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps db.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Transaction runs fn inside a database transaction.
func (s *GormStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{db: tx})
	})
	return translate(err)
}

func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

// translate maps driver and gorm errors onto the package sentinels.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrConflict) {
		return err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	var myErr *mysqldrv.MySQLError
	if errors.As(err, &myErr) {
		switch myErr.Number {
		case mysqlDuplicateEntry:
			return ErrDuplicate
		case mysqlDeadlock, mysqlLockWaitTimeout:
			return ErrConflict
		}
	}
	return err
}

func (s *GormStore) ListMissions(ctx context.Context) ([]models.Mission, error) {
	var out []models.Mission
	err := s.conn(ctx).Order("id ASC").Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) ActiveMissions(ctx context.Context) ([]models.Mission, error) {
	var out []models.Mission
	err := s.conn(ctx).Where("active = ?", true).Order("id ASC").Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) MissionByID(ctx context.Context, id uint) (*models.Mission, error) {
	var m models.Mission
	if err := s.conn(ctx).First(&m, id).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (s *GormStore) SeedMission(ctx context.Context, m *models.Mission) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoNothing: true,
	}).Create(m).Error
	return translate(err)
}

func (s *GormStore) ActiveBadges(ctx context.Context) ([]models.Badge, error) {
	var out []models.Badge
	err := s.conn(ctx).Where("active = ?", true).Order("id ASC").Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) BadgeBySlug(ctx context.Context, slug string) (*models.Badge, error) {
	var b models.Badge
	if err := s.conn(ctx).Where("slug = ?", slug).First(&b).Error; err != nil {
		return nil, translate(err)
	}
	return &b, nil
}

func (s *GormStore) SeedBadge(ctx context.Context, b *models.Badge) error {
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "slug"}},
		DoNothing: true,
	}).Create(b).Error
	return translate(err)
}

func (s *GormStore) AssignmentForDate(ctx context.Context, userID uint, date time.Time) (*models.UserMission, error) {
	var a models.UserMission
	if err := s.conn(ctx).Where("user_id = ? AND assigned_date = ?", userID, date).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *GormStore) AssignmentByID(ctx context.Context, userID, id uint) (*models.UserMission, error) {
	var a models.UserMission
	if err := s.conn(ctx).Where("id = ? AND user_id = ?", id, userID).First(&a).Error; err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (s *GormStore) MissionIDsAssignedBetween(ctx context.Context, userID uint, from, to time.Time) ([]uint, error) {
	var ids []uint
	err := s.conn(ctx).Model(&models.UserMission{}).
		Where("user_id = ? AND assigned_date >= ? AND assigned_date <= ?", userID, from, to).
		Pluck("mission_id", &ids).Error
	return ids, translate(err)
}

func (s *GormStore) CreateAssignment(ctx context.Context, a *models.UserMission) error {
	return translate(s.conn(ctx).Create(a).Error)
}

func (s *GormStore) UpdateAssignment(ctx context.Context, a *models.UserMission) error {
	err := s.conn(ctx).Model(&models.UserMission{}).Where("id = ?", a.ID).Updates(map[string]interface{}{
		"status":       a.Status,
		"completed_at": a.CompletedAt,
		"skipped_at":   a.SkippedAt,
	}).Error
	return translate(err)
}

func (s *GormStore) ListAssignments(ctx context.Context, userID uint, limit int) ([]models.UserMission, error) {
	var out []models.UserMission
	q := s.conn(ctx).Where("user_id = ?", userID).Order("assigned_date DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) CreateProgress(ctx context.Context, p *models.UserProgress) error {
	return translate(s.conn(ctx).Create(p).Error)
}

func (s *GormStore) Progress(ctx context.Context, userID uint) (*models.UserProgress, error) {
	var p models.UserProgress
	if err := s.conn(ctx).Where("user_id = ?", userID).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) ProgressForUpdate(ctx context.Context, userID uint) (*models.UserProgress, error) {
	var p models.UserProgress
	err := s.conn(ctx).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).First(&p).Error
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *GormStore) SaveProgress(ctx context.Context, p *models.UserProgress) error {
	err := s.conn(ctx).Model(&models.UserProgress{}).Where("user_id = ?", p.UserID).Updates(map[string]interface{}{
		"total_co2_saved":          p.TotalCO2Saved,
		"total_missions_completed": p.TotalMissionsCompleted,
		"total_missions_skipped":   p.TotalMissionsSkipped,
		"current_streak":           p.CurrentStreak,
		"longest_streak":           p.LongestStreak,
		"streak_last_date":         p.StreakLastDate,
		"total_points":             p.TotalPoints,
		"level":                    p.Level,
		"trees_planted":            p.TreesPlanted,
		"updated_at":               time.Now(),
	}).Error
	return translate(err)
}

func (s *GormStore) AddDailyProgress(ctx context.Context, userID uint, date time.Time, co2 float64, missions, points int) error {
	// Atomic upsert, same shape as a per-day counter
	err := s.conn(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"co2_saved":          gorm.Expr("co2_saved + ?", co2),
			"missions_completed": gorm.Expr("missions_completed + ?", missions),
			"points_earned":      gorm.Expr("points_earned + ?", points),
			"updated_at":         time.Now(),
		}),
	}).Create(&models.DailyProgress{
		UserID:            userID,
		Date:              date,
		CO2Saved:          co2,
		MissionsCompleted: missions,
		PointsEarned:      points,
	}).Error
	return translate(err)
}

func (s *GormStore) DailyProgressBetween(ctx context.Context, userID uint, from, to time.Time) ([]models.DailyProgress, error) {
	var out []models.DailyProgress
	err := s.conn(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, from, to).
		Order("date ASC").Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) TopProgress(ctx context.Context, limit int) ([]models.UserProgress, error) {
	var out []models.UserProgress
	err := s.conn(ctx).Order("total_points DESC, user_id ASC").Limit(limit).Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	if err := s.conn(ctx).Model(&models.User{}).Count(&t.Users).Error; err != nil {
		return t, translate(err)
	}
	var agg struct {
		CO2      float64
		Missions int64
		Trees    int64
	}
	err := s.conn(ctx).Model(&models.UserProgress{}).
		Select("COALESCE(SUM(total_co2_saved),0) AS co2, COALESCE(SUM(total_missions_completed),0) AS missions, COALESCE(SUM(trees_planted),0) AS trees").
		Scan(&agg).Error
	if err != nil {
		return t, translate(err)
	}
	t.CO2Saved = agg.CO2
	t.MissionsCompleted = agg.Missions
	t.TreesPlanted = agg.Trees
	return t, nil
}

func (s *GormStore) EarnedBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	var out []models.UserBadge
	err := s.conn(ctx).Where("user_id = ?", userID).Order("earned_at ASC").Find(&out).Error
	return out, translate(err)
}

func (s *GormStore) InsertUserBadge(ctx context.Context, ub *models.UserBadge) (bool, error) {
	res := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ub)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) CreateUser(ctx context.Context, u *models.User) error {
	return translate(s.conn(ctx).Create(u).Error)
}

func (s *GormStore) UserByID(ctx context.Context, id uint) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).First(&u, id).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) UserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	var u models.User
	if err := s.conn(ctx).Where("referral_code = ?", code).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (s *GormStore) SetPremium(ctx context.Context, userID uint, premium bool) error {
	err := s.conn(ctx).Model(&models.User{}).Where("id = ?", userID).Update("is_premium", premium).Error
	return translate(err)
}

func (s *GormStore) CreateReferral(ctx context.Context, r *models.Referral) (bool, error) {
	res := s.conn(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(r)
	if res.Error != nil {
		return false, translate(res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) CompletedReferralCount(ctx context.Context, referrerID uint) (int64, error) {
	var n int64
	err := s.conn(ctx).Model(&models.Referral{}).
		Where("referrer_id = ? AND status = ?", referrerID, models.ReferralCompleted).
		Count(&n).Error
	return n, translate(err)
}

func (s *GormStore) DeleteUserData(ctx context.Context, userID uint) error {
	db := s.conn(ctx)
	steps := []func() error{
		func() error { return db.Where("user_id = ?", userID).Delete(&models.UserMission{}).Error },
		func() error { return db.Where("user_id = ?", userID).Delete(&models.DailyProgress{}).Error },
		func() error { return db.Where("user_id = ?", userID).Delete(&models.UserBadge{}).Error },
		func() error {
			return db.Where("referrer_id = ? OR referred_id = ?", userID, userID).Delete(&models.Referral{}).Error
		},
		func() error { return db.Where("user_id = ?", userID).Delete(&models.UserProgress{}).Error },
		func() error { return db.Unscoped().Delete(&models.User{}, userID).Error },
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return translate(err)
		}
	}
	return nil
}
