package models

import "time"

// AssignmentStatus is the state of a daily mission assignment.
type AssignmentStatus string

const (
	AssignmentPending   AssignmentStatus = "pending"
	AssignmentCompleted AssignmentStatus = "completed"
	AssignmentSkipped   AssignmentStatus = "skipped"
)

// UserMission binds one mission to one user for one calendar day.
// (user_id, assigned_date) is unique.
type UserMission struct {
	ID           uint             `gorm:"primaryKey" json:"id"`
	UserID       uint             `gorm:"uniqueIndex:idx_user_mission_date,priority:1;not null" json:"user_id"`
	MissionID    uint             `gorm:"index;not null" json:"mission_id"`
	AssignedDate time.Time        `gorm:"type:date;uniqueIndex:idx_user_mission_date,priority:2;not null" json:"assigned_date"`
	Status       AssignmentStatus `gorm:"size:16;not null;default:'pending'" json:"status"`
	CompletedAt  *time.Time       `json:"completed_at,omitempty"`
	SkippedAt    *time.Time       `json:"skipped_at,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
}
