package gamification

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ehudso7/climate-guardian/models"
	"github.com/ehudso7/climate-guardian/repository"
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	store *repository.MemoryStore
	svc   *Service
	now   time.Time
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		store: repository.NewMemoryStore(),
		now:   time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC),
	}
	base := []Option{
		WithClock(ClockFunc(func() time.Time { return f.now })),
		WithRandom(func(int) int { return 0 }),
		WithLogger(zaptest.NewLogger(t)),
	}
	f.svc = NewService(f.store, append(base, opts...)...)
	return f
}

func (f *fixture) seedMissions(n int, co2 float64, points int) []models.Mission {
	f.t.Helper()
	out := make([]models.Mission, 0, n)
	for i := 0; i < n; i++ {
		m := models.Mission{
			Slug:       fmt.Sprintf("mission-%d", i+1),
			Title:      fmt.Sprintf("Mission %d", i+1),
			Category:   models.CategoryEnergy,
			Difficulty: models.DifficultyEasy,
			CO2Impact:  co2,
			Points:     points,
			Active:     true,
		}
		require.NoError(f.t, f.store.SeedMission(f.ctx, &m))
		out = append(out, m)
	}
	return out
}

func (f *fixture) seedBadges(badges ...models.Badge) []models.Badge {
	f.t.Helper()
	out := make([]models.Badge, 0, len(badges))
	for _, b := range badges {
		b := b
		require.NoError(f.t, f.store.SeedBadge(f.ctx, &b))
		out = append(out, b)
	}
	return out
}

func (f *fixture) user(name string) models.User {
	f.t.Helper()
	res, err := f.svc.CreateAccount(f.ctx, &models.User{Username: name}, "")
	require.NoError(f.t, err)
	return res.User
}

func (f *fixture) nextDay() { f.now = f.now.Add(24 * time.Hour) }

func (f *fixture) progress(userID uint) models.UserProgress {
	f.t.Helper()
	p, err := f.store.Progress(f.ctx, userID)
	require.NoError(f.t, err)
	return *p
}

// completeToday assigns and completes today's mission for userID.
func (f *fixture) completeToday(userID uint) *CompletionResult {
	f.t.Helper()
	today, err := f.svc.TodayAssignment(f.ctx, userID)
	require.NoError(f.t, err)
	res, err := f.svc.CompleteAssignment(f.ctx, userID, today.Assignment.ID)
	require.NoError(f.t, err)
	return res
}

func (f *fixture) skipToday(userID uint) {
	f.t.Helper()
	today, err := f.svc.TodayAssignment(f.ctx, userID)
	require.NoError(f.t, err)
	_, err = f.svc.SkipAssignment(f.ctx, userID, today.Assignment.ID)
	require.NoError(f.t, err)
}

func badge(slug string, rt models.RequirementType, value float64, points int) models.Badge {
	return models.Badge{Slug: slug, Name: slug, RequirementType: rt, RequirementValue: value, Points: points, Active: true}
}

type pointsRecorder struct {
	mu      sync.Mutex
	totals  map[uint]int
	removed []uint
}

func newPointsRecorder() *pointsRecorder { return &pointsRecorder{totals: map[uint]int{}} }

func (r *pointsRecorder) PointsChanged(_ context.Context, userID uint, total int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.totals[userID] = total
}

func (r *pointsRecorder) UserRemoved(_ context.Context, userID uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.removed = append(r.removed, userID)
}
