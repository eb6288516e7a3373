package gamification

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ehudso7/climate-guardian/models"
)

func TestCompleteAssignmentCreditsLedger(t *testing.T) {
	rec := newPointsRecorder()
	f := newFixture(t, WithPointsObserver(rec))
	f.seedMissions(3, 2.5, 20)
	u := f.user("alice")

	res := f.completeToday(u.ID)

	assert.Equal(t, models.AssignmentCompleted, res.Assignment.Status)
	assert.NotNil(t, res.Assignment.CompletedAt)
	assert.Equal(t, 20, res.PointsEarned)
	assert.Equal(t, 2.5, res.CO2Saved)
	assert.False(t, res.LeveledUp)
	assert.Empty(t, res.NewBadges)

	p := f.progress(u.ID)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 1, p.LongestStreak)
	assert.Equal(t, 1, p.TotalMissionsCompleted)
	assert.Equal(t, 2.5, p.TotalCO2Saved)
	assert.Equal(t, 20, p.TotalPoints)
	assert.Equal(t, 1, p.Level)
	require.NotNil(t, p.StreakLastDate)
	assert.True(t, p.StreakLastDate.Equal(f.svc.Today()))

	today := f.svc.Today()
	daily, err := f.store.DailyProgressBetween(f.ctx, u.ID, today, today)
	require.NoError(t, err)
	require.Len(t, daily, 1)
	assert.Equal(t, 1, daily[0].MissionsCompleted)
	assert.Equal(t, 2.5, daily[0].CO2Saved)
	assert.Equal(t, 20, daily[0].PointsEarned)

	assert.Equal(t, 20, rec.totals[u.ID])
}

func TestCompleteAssignmentReportsLevelUp(t *testing.T) {
	f := newFixture(t)
	f.seedMissions(1, 1, 150)
	u := f.user("alice")

	res := f.completeToday(u.ID)
	assert.True(t, res.LeveledUp)
	assert.Equal(t, 2, res.Progress.Level)
}

func TestCompleteAssignmentTwice(t *testing.T) {
	f := newFixture(t)
	f.seedMissions(3, 1, 10)
	u := f.user("alice")

	res := f.completeToday(u.ID)
	_, err := f.svc.CompleteAssignment(f.ctx, u.ID, res.Assignment.ID)
	assert.ErrorIs(t, err, ErrAlreadyCompleted)

	_, err = f.svc.SkipAssignment(f.ctx, u.ID, res.Assignment.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	assert.Equal(t, 1, f.progress(u.ID).TotalMissionsCompleted)
}

func TestSkippedAssignmentIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.seedMissions(3, 1, 10)
	u := f.user("alice")

	a, err := f.svc.TodayAssignment(f.ctx, u.ID)
	require.NoError(t, err)
	skipped, err := f.svc.SkipAssignment(f.ctx, u.ID, a.Assignment.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AssignmentSkipped, skipped.Status)
	assert.NotNil(t, skipped.SkippedAt)

	_, err = f.svc.CompleteAssignment(f.ctx, u.ID, a.Assignment.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	_, err = f.svc.SkipAssignment(f.ctx, u.ID, a.Assignment.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	p := f.progress(u.ID)
	assert.Equal(t, 1, p.TotalMissionsSkipped)
	assert.Equal(t, 0, p.TotalPoints)
}

func TestAssignmentOfAnotherUserIsNotFound(t *testing.T) {
	f := newFixture(t)
	f.seedMissions(3, 1, 10)
	alice := f.user("alice")
	bob := f.user("bob")

	a, err := f.svc.TodayAssignment(f.ctx, alice.ID)
	require.NoError(t, err)

	_, err = f.svc.CompleteAssignment(f.ctx, bob.ID, a.Assignment.ID)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
	_, err = f.svc.SkipAssignment(f.ctx, bob.ID, a.Assignment.ID)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
	_, err = f.svc.CompleteAssignment(f.ctx, alice.ID, 9999)
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestStreakGrowsOnConsecutiveDays(t *testing.T) {
	f := newFixture(t)
	f.seedMissions(10, 1, 10)
	u := f.user("alice")

	for i := 1; i <= 4; i++ {
		f.completeToday(u.ID)
		assert.Equal(t, i, f.progress(u.ID).CurrentStreak)
		f.nextDay()
	}
	assert.Equal(t, 4, f.progress(u.ID).LongestStreak)
}

func TestGapRestartsStreakAtOne(t *testing.T) {
	f := newFixture(t)
	f.seedMissions(10, 1, 10)
	u := f.user("alice")

	f.completeToday(u.ID)
	f.nextDay()
	f.completeToday(u.ID)
	f.nextDay()
	f.nextDay()
	f.nextDay()
	f.completeToday(u.ID)

	p := f.progress(u.ID)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 2, p.LongestStreak)
}

func TestSkipResetsStreakToZero(t *testing.T) {
	f := newFixture(t)
	f.seedMissions(10, 1, 10)
	u := f.user("alice")

	for i := 0; i < 3; i++ {
		f.completeToday(u.ID)
		f.nextDay()
	}
	lastCompletion := f.progress(u.ID).StreakLastDate

	f.skipToday(u.ID)
	p := f.progress(u.ID)
	assert.Equal(t, 0, p.CurrentStreak)
	assert.Equal(t, 3, p.LongestStreak)
	require.NotNil(t, p.StreakLastDate)
	assert.True(t, p.StreakLastDate.Equal(*lastCompletion))

	f.nextDay()
	f.completeToday(u.ID)
	p = f.progress(u.ID)
	assert.Equal(t, 1, p.CurrentStreak)
	assert.Equal(t, 3, p.LongestStreak)
}

func TestLedgerInvariantsHoldOverMixedHistory(t *testing.T) {
	f := newFixture(t)
	f.seedMissions(4, 1.5, 35)
	u := f.user("alice")

	pattern := "ccsccccsscccccxcc"
	for _, step := range pattern {
		switch step {
		case 'c':
			f.completeToday(u.ID)
		case 's':
			f.skipToday(u.ID)
		}
		p := f.progress(u.ID)
		assert.GreaterOrEqual(t, p.LongestStreak, p.CurrentStreak)
		assert.Equal(t, LevelFromPoints(p.TotalPoints), p.Level)
		f.nextDay()
	}
	p := f.progress(u.ID)
	assert.Equal(t, 13, p.TotalMissionsCompleted)
	assert.Equal(t, 3, p.TotalMissionsSkipped)
	assert.Equal(t, 5, p.LongestStreak)
	assert.Equal(t, 2, p.CurrentStreak)
}

func TestConcurrentCompletionsOfOneAssignment(t *testing.T) {
	f := newFixture(t)
	f.seedMissions(3, 1, 10)
	u := f.user("alice")
	a, err := f.svc.TodayAssignment(f.ctx, u.ID)
	require.NoError(t, err)

	const n = 10
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.CompleteAssignment(f.ctx, u.ID, a.Assignment.ID)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.ErrorIs(t, err, ErrAlreadyCompleted)
	}
	assert.Equal(t, 1, succeeded)

	p := f.progress(u.ID)
	assert.Equal(t, 1, p.TotalMissionsCompleted)
	assert.Equal(t, 10, p.TotalPoints)
}

func TestConcurrentCompletionsAcrossUsers(t *testing.T) {
	f := newFixture(t)
	f.seedMissions(3, 1, 10)
	users := []models.User{f.user("alice"), f.user("bob"), f.user("carol")}

	var wg sync.WaitGroup
	for _, u := range users {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			a, err := f.svc.TodayAssignment(f.ctx, id)
			if !assert.NoError(t, err) {
				return
			}
			_, err = f.svc.CompleteAssignment(f.ctx, id, a.Assignment.ID)
			assert.NoError(t, err)
		}(u.ID)
	}
	wg.Wait()

	for _, u := range users {
		assert.Equal(t, 1, f.progress(u.ID).TotalMissionsCompleted)
	}
}

func TestCompletionEvaluatesBadges(t *testing.T) {
	f := newFixture(t)
	f.seedMissions(3, 2.5, 20)
	f.seedBadges(
		badge("first", models.RequirementMissionsCompleted, 1, 10),
		badge("co2-5", models.RequirementCO2Saved, 5, 30),
	)
	u := f.user("alice")

	res := f.completeToday(u.ID)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, "first", res.NewBadges[0].Slug)
	assert.Equal(t, 30, res.Progress.TotalPoints)

	f.nextDay()
	res = f.completeToday(u.ID)
	require.Len(t, res.NewBadges, 1)
	assert.Equal(t, "co2-5", res.NewBadges[0].Slug)
	assert.Equal(t, 80, f.progress(u.ID).TotalPoints)
}
