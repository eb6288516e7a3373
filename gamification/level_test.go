package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevelFromPoints(t *testing.T) {
	cases := []struct {
		points int
		level  int
	}{
		{0, 1},
		{99, 1},
		{100, 2},
		{399, 2},
		{400, 3},
		{899, 3},
		{900, 4},
		{8999, 10},
		{-50, 1},
	}
	for _, c := range cases {
		assert.Equal(t, c.level, LevelFromPoints(c.points), "points=%d", c.points)
	}
}

func TestLevelIsMonotonic(t *testing.T) {
	prev := LevelFromPoints(0)
	for p := 1; p <= 20000; p++ {
		l := LevelFromPoints(p)
		assert.GreaterOrEqual(t, l, prev)
		assert.GreaterOrEqual(t, l, 1)
		prev = l
	}
}

func TestPointsForLevel(t *testing.T) {
	assert.Equal(t, 0, PointsForLevel(0))
	assert.Equal(t, 100, PointsForLevel(1))
	assert.Equal(t, 900, PointsForLevel(3))
}

func TestProgressForPoints(t *testing.T) {
	lp := ProgressForPoints(150)
	assert.Equal(t, 2, lp.Level)
	assert.Equal(t, 150, lp.TotalPoints)
	assert.Equal(t, 500, lp.PointsForNextLevel)
	assert.Equal(t, 50, lp.CurrentLevelPoints)
	assert.Equal(t, 10.0, lp.Percent)

	zero := ProgressForPoints(0)
	assert.Equal(t, 1, zero.Level)
	assert.Equal(t, 300, zero.PointsForNextLevel)
	assert.Equal(t, 0, zero.CurrentLevelPoints)
	assert.Equal(t, 0.0, zero.Percent)
}
