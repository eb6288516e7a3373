package models

import "time"

// ReferralStatus tracks whether a referral has been credited.
type ReferralStatus string

const (
	ReferralPending   ReferralStatus = "pending"
	ReferralCompleted ReferralStatus = "completed"
)

// Referral links an inviting user to a newly joined user. A user can be referred at most once.
type Referral struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	ReferrerID  uint           `gorm:"index;not null" json:"referrer_id"`
	ReferredID  uint           `gorm:"uniqueIndex;not null" json:"referred_id"`
	Status      ReferralStatus `gorm:"size:16;index;not null" json:"status"`
	CreatedAt   time.Time      `json:"created_at"`
	CompletedAt *time.Time     `json:"completed_at,omitempty"`
}
