package gamification

import (
	"time"

	"github.com/ehudso7/climate-guardian/models"
)

// NextStreak returns the current streak after a completion on today.
// A gap of two or more days restarts at 1 because the completion itself counts.
func NextStreak(current int, last *time.Time, today time.Time) int {
	if last == nil {
		return 1
	}
	switch {
	case sameDay(*last, AddDays(today, -1)):
		return current + 1
	case sameDay(*last, today):
		return current
	default:
		return 1
	}
}

// ApplyCompletion moves the ledger through a completion on today worth co2 kg and points.
func ApplyCompletion(p *models.UserProgress, today time.Time, co2 float64, points int) {
	streak := NextStreak(p.CurrentStreak, p.StreakLastDate, today)
	p.CurrentStreak = streak
	if streak > p.LongestStreak {
		p.LongestStreak = streak
	}
	p.TotalCO2Saved += co2
	p.TotalMissionsCompleted++
	p.TotalPoints += points
	p.Level = LevelFromPoints(p.TotalPoints)
	d := today
	p.StreakLastDate = &d
}

// ApplySkip breaks the current streak. Longest streak and the last streak date are kept.
func ApplySkip(p *models.UserProgress) {
	p.TotalMissionsSkipped++
	p.CurrentStreak = 0
}

// AwardPoints adds bonus points and keeps the level in step.
func AwardPoints(p *models.UserProgress, points int) {
	p.TotalPoints += points
	p.Level = LevelFromPoints(p.TotalPoints)
}
