package models

import "time"

// UserProgress is the per-user ledger. It is created zeroed with the account.
type UserProgress struct {
	UserID                 uint       `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	TotalCO2Saved          float64    `gorm:"column:total_co2_saved;not null;default:0" json:"total_co2_saved"`
	TotalMissionsCompleted int        `gorm:"not null;default:0" json:"total_missions_completed"`
	TotalMissionsSkipped   int        `gorm:"not null;default:0" json:"total_missions_skipped"`
	CurrentStreak          int        `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak          int        `gorm:"not null;default:0" json:"longest_streak"`
	StreakLastDate         *time.Time `gorm:"type:date" json:"streak_last_date"`
	TotalPoints            int        `gorm:"index;not null;default:0" json:"total_points"`
	Level                  int        `gorm:"not null;default:1" json:"level"`
	TreesPlanted           int        `gorm:"not null;default:0" json:"trees_planted"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}

// DailyProgress accumulates per-day completion totals for time-series stats.
type DailyProgress struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	UserID            uint      `gorm:"uniqueIndex:idx_daily_user_date,priority:1;not null" json:"user_id"`
	Date              time.Time `gorm:"type:date;uniqueIndex:idx_daily_user_date,priority:2;not null" json:"date"`
	CO2Saved          float64   `gorm:"column:co2_saved;not null;default:0" json:"co2_saved"`
	MissionsCompleted int       `gorm:"not null;default:0" json:"missions_completed"`
	PointsEarned      int       `gorm:"not null;default:0" json:"points_earned"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// TableName keeps the plural table name stable.
func (DailyProgress) TableName() string { return "daily_progress" }

// TableName keeps the ledger table name stable.
func (UserProgress) TableName() string { return "user_progress" }
