package models

import "time"

// MissionCategory groups missions by the kind of habit they target.
type MissionCategory string

const (
	CategoryTransportation MissionCategory = "transportation"
	CategoryEnergy         MissionCategory = "energy"
	CategoryFood           MissionCategory = "food"
	CategoryWater          MissionCategory = "water"
	CategoryConsumption    MissionCategory = "consumption"
)

// Difficulty is the effort level shown next to a mission.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Mission is a catalog entry. Rows are seeded once and never mutated by user actions.
type Mission struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	Slug        string          `gorm:"size:64;uniqueIndex;not null" json:"slug"`
	Title       string          `gorm:"size:128;not null" json:"title"`
	Description string          `gorm:"type:text" json:"description"`
	Category    MissionCategory `gorm:"size:32;index;not null" json:"category"`
	Difficulty  Difficulty      `gorm:"size:16;not null" json:"difficulty"`
	CO2Impact   float64         `gorm:"column:co2_impact;not null" json:"co2_impact"`
	Points      int             `gorm:"not null" json:"points"`
	Active      bool            `gorm:"index;not null" json:"active"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}
