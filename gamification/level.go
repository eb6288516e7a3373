package gamification

import "math"

const pointsPerLevelUnit = 100

// LevelFromPoints is floor(sqrt(points/100)) + 1.
func LevelFromPoints(points int) int {
	if points < 0 {
		points = 0
	}
	return isqrt(points/pointsPerLevelUnit) + 1
}

// PointsForLevel is level² × 100.
func PointsForLevel(level int) int {
	return level * level * pointsPerLevelUnit
}

// LevelProgress feeds the progress bar shown next to the level badge.
type LevelProgress struct {
	Level              int     `json:"level"`
	TotalPoints        int     `json:"total_points"`
	PointsForNextLevel int     `json:"points_for_next_level"`
	CurrentLevelPoints int     `json:"current_level_points"`
	Percent            float64 `json:"percent"`
}

// ProgressForPoints derives the bar from total points.
// The span is measured from the current level forward while the floor uses level-1.
func ProgressForPoints(points int) LevelProgress {
	level := LevelFromPoints(points)
	next := PointsForLevel(level+1) - PointsForLevel(level)
	current := points - PointsForLevel(level-1)
	pct := 0.0
	if next > 0 {
		pct = float64(current) / float64(next) * 100
	}
	pct = math.Max(0, math.Min(100, pct))
	return LevelProgress{
		Level:              level,
		TotalPoints:        points,
		PointsForNextLevel: next,
		CurrentLevelPoints: current,
		Percent:            math.Round(pct*10) / 10,
	}
}

func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	r := int(math.Sqrt(float64(n)))
	for r*r > n {
		r--
	}
	for (r+1)*(r+1) <= n {
		r++
	}
	return r
}
