package models

import "time"

// RequirementType selects which ledger statistic a badge threshold applies to.
type RequirementType string

const (
	RequirementMissionsCompleted RequirementType = "missions_completed"
	RequirementCO2Saved          RequirementType = "co2_saved"
	RequirementStreak            RequirementType = "streak"
	RequirementReferrals         RequirementType = "referrals"
	// RequirementSpecial badges are granted on signup, never evaluated.
	RequirementSpecial RequirementType = "special"
	// RequirementPremium badges are granted on subscription, never evaluated.
	RequirementPremium RequirementType = "premium"
)

// Valid reports whether t is one of the known requirement types.
func (t RequirementType) Valid() bool {
	switch t {
	case RequirementMissionsCompleted, RequirementCO2Saved, RequirementStreak,
		RequirementReferrals, RequirementSpecial, RequirementPremium:
		return true
	}
	return false
}

// Badge is a catalog achievement.
type Badge struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Slug             string          `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Name             string          `gorm:"size:128;not null" json:"name"`
	Description      string          `gorm:"size:255" json:"description"`
	Icon             string          `gorm:"size:32" json:"icon"`
	RequirementType  RequirementType `gorm:"size:32;index;not null" json:"requirement_type"`
	RequirementValue float64         `gorm:"not null;default:0" json:"requirement_value"`
	Points           int             `gorm:"not null;default:0" json:"points"`
	Active           bool            `gorm:"index;not null" json:"active"`
	CreatedAt        time.Time       `json:"created_at"`
}

// UserBadge records a permanently earned badge. (user_id, badge_id) is unique.
type UserBadge struct {
	ID       uint      `gorm:"primaryKey" json:"id"`
	UserID   uint      `gorm:"uniqueIndex:idx_user_badge,priority:1;not null" json:"user_id"`
	BadgeID  uint      `gorm:"uniqueIndex:idx_user_badge,priority:2;not null" json:"badge_id"`
	EarnedAt time.Time `gorm:"not null" json:"earned_at"`
}
