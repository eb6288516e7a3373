package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/ehudso7/climate-guardian/gamification"
	"github.com/ehudso7/climate-guardian/repository"
	"github.com/ehudso7/climate-guardian/utils"
)

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "cg-routes")
	if err != nil {
		panic(err)
	}
	os.Setenv("JWT_SECRET", "test-secret")
	os.Setenv("GIN_MODE", "test")
	os.Setenv("GIN_PATH", filepath.Join(dir, "gin.log"))
	os.Setenv("RATE_LIMIT_PER_MINUTE", "6000")
	os.Setenv("ADMIN_USERNAMES", "admin")
	// Nothing listens on port 1, so every redis call fails fast and the fallbacks are exercised.
	utils.SetRedis(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 50 * time.Millisecond, MaxRetries: -1}))

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type api struct {
	t      *testing.T
	router *gin.Engine
	svc    *gamification.Service
	now    time.Time
}

func newAPI(t *testing.T) *api {
	t.Helper()
	a := &api{t: t, now: time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)}
	a.svc = gamification.NewService(repository.NewMemoryStore(),
		gamification.WithClock(gamification.ClockFunc(func() time.Time { return a.now })),
		gamification.WithRandom(func(int) int { return 0 }),
		gamification.WithLogger(zaptest.NewLogger(t)),
	)
	require.NoError(t, a.svc.SeedCatalog(context.Background()))
	a.router = SetupRouter(a.svc, utils.NewLeaderboard(nil, nil))
	return a
}

func (a *api) do(method, path, token string, body any) (int, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	var env envelope
	if w.Header().Get("Content-Type") == "application/json; charset=utf-8" {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w.Code, env
}

type authData struct {
	Token string `json:"token"`
	User  struct {
		ID           uint   `json:"id"`
		Username     string `json:"username"`
		DisplayName  string `json:"display_name"`
		ReferralCode string `json:"referral_code"`
		IsAdmin      bool   `json:"is_admin"`
	} `json:"user"`
	WelcomeBadge *gamification.EarnedBadge    `json:"welcome_badge"`
	Referral     *gamification.ReferralResult `json:"referral"`
}

func (a *api) register(username, referralCode string) authData {
	a.t.Helper()
	status, env := a.do(http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"username":      username,
		"password":      "correct-horse",
		"display_name":  "<b>" + username + "</b>",
		"referral_code": referralCode,
	})
	require.Equal(a.t, http.StatusOK, status, env.Message)
	var out authData
	require.NoError(a.t, json.Unmarshal(env.Data, &out))
	return out
}

func decode[T any](t *testing.T, env envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func TestHealthAndUnknownRoute(t *testing.T) {
	a := newAPI(t)

	status, env := a.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 0, env.Code)

	status, env = a.do(http.MethodGet, "/api/v1/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40400, env.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	a := newAPI(t)
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "climate_guardian_")
}

func TestRegisterGrantsWelcomeBadgeAndSanitizesName(t *testing.T) {
	a := newAPI(t)
	res := a.register("alice", "")

	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "alice", res.User.DisplayName)
	assert.Len(t, res.User.ReferralCode, 8)
	require.NotNil(t, res.WelcomeBadge)
	assert.Equal(t, gamification.WelcomeBadgeSlug, res.WelcomeBadge.Slug)
	assert.Nil(t, res.Referral)
}

func TestRegisterValidation(t *testing.T) {
	a := newAPI(t)
	a.register("alice", "")

	cases := []struct {
		name   string
		body   map[string]string
		status int
		code   int
	}{
		{"duplicate", map[string]string{"username": "alice", "password": "correct-horse"}, http.StatusConflict, 40901},
		{"short username", map[string]string{"username": "al", "password": "correct-horse"}, http.StatusBadRequest, 40002},
		{"bad characters", map[string]string{"username": "al ice!", "password": "correct-horse"}, http.StatusBadRequest, 40002},
		{"weak password", map[string]string{"username": "bobby", "password": "short"}, http.StatusBadRequest, 40003},
		{"missing fields", map[string]string{"username": "bobby"}, http.StatusBadRequest, 40001},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, env := a.do(http.MethodPost, "/api/v1/auth/register", "", tc.body)
			assert.Equal(t, tc.status, status)
			assert.Equal(t, tc.code, env.Code)
		})
	}
}

func TestReferralSignupCreditsReferrer(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice", "")
	bob := a.register("bob-the-builder", alice.User.ReferralCode)

	require.NotNil(t, bob.Referral)
	assert.Equal(t, gamification.ReferralApplied, bob.Referral.Outcome)
	assert.Equal(t, alice.User.ID, bob.Referral.ReferrerID)

	status, env := a.do(http.MethodGet, "/api/v1/referrals", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	sum := decode[gamification.ReferralSummary](t, env)
	assert.Equal(t, alice.User.ReferralCode, sum.Code)
	assert.Equal(t, int64(1), sum.Completed)
	assert.Equal(t, 1, sum.TreesPlanted)

	carol := a.register("carol", "NOPE0000")
	require.NotNil(t, carol.Referral)
	assert.Equal(t, gamification.ReferralIgnored, carol.Referral.Outcome)
}

func TestLoginAndLogout(t *testing.T) {
	a := newAPI(t)
	a.register("alice", "")

	status, env := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40106, env.Code)

	status, env = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "nobody", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40106, env.Code)

	status, env = a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": "correct-horse"})
	require.Equal(t, http.StatusOK, status)
	token := decode[authData](t, env).Token
	require.NotEmpty(t, token)

	status, _ = a.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, _ = a.do(http.MethodPost, "/api/v1/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = a.do(http.MethodGet, "/api/v1/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40104, env.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newAPI(t)
	for _, path := range []string{"/api/v1/missions/today", "/api/v1/progress", "/api/v1/badges", "/api/v1/referrals"} {
		status, env := a.do(http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, status, path)
		assert.Equal(t, 40101, env.Code, path)
	}
	status, env := a.do(http.MethodGet, "/api/v1/progress", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40105, env.Code)
}

func TestMissionLifecycle(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice", "")

	status, env := a.do(http.MethodGet, "/api/v1/missions", "", nil)
	require.Equal(t, http.StatusOK, status)
	catalog := decode[struct {
		Missions []json.RawMessage `json:"missions"`
	}](t, env)
	assert.Len(t, catalog.Missions, len(gamification.DefaultMissions()))

	status, env = a.do(http.MethodGet, "/api/v1/missions/today", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	today := decode[gamification.AssignmentWithMission](t, env)
	assert.Equal(t, "pending", string(today.Assignment.Status))

	status, env = a.do(http.MethodGet, "/api/v1/missions/today", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, today.Assignment.ID, decode[gamification.AssignmentWithMission](t, env).Assignment.ID)

	completePath := fmt.Sprintf("/api/v1/missions/%d/complete", today.Assignment.ID)
	status, env = a.do(http.MethodPost, completePath, alice.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	done := decode[gamification.CompletionResult](t, env)
	assert.Equal(t, today.Mission.Points, done.PointsEarned)
	assert.Equal(t, 1, done.Progress.CurrentStreak)
	assert.Equal(t, 1, done.Progress.TotalMissionsCompleted)

	status, env = a.do(http.MethodPost, completePath, alice.Token, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, 40910, env.Code)

	status, env = a.do(http.MethodPost, fmt.Sprintf("/api/v1/missions/%d/skip", today.Assignment.ID), alice.Token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, 42210, env.Code)

	status, env = a.do(http.MethodGet, "/api/v1/missions/history?limit=5", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	history := decode[struct {
		Items []gamification.AssignmentWithMission `json:"items"`
	}](t, env)
	require.Len(t, history.Items, 1)
	assert.Equal(t, "completed", string(history.Items[0].Assignment.Status))
}

func TestAssignmentErrors(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice", "")
	bob := a.register("bobby", "")

	status, env := a.do(http.MethodGet, "/api/v1/missions/today", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	today := decode[gamification.AssignmentWithMission](t, env)

	status, env = a.do(http.MethodPost, fmt.Sprintf("/api/v1/missions/%d/complete", today.Assignment.ID), bob.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40410, env.Code)

	status, env = a.do(http.MethodPost, "/api/v1/missions/abc/complete", alice.Token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, 40010, env.Code)

	status, _ = a.do(http.MethodPost, fmt.Sprintf("/api/v1/missions/%d/skip", today.Assignment.ID), alice.Token, nil)
	assert.Equal(t, http.StatusOK, status)

	status, env = a.do(http.MethodPost, fmt.Sprintf("/api/v1/missions/%d/complete", today.Assignment.ID), alice.Token, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, 42210, env.Code)
}

func TestProgressBadgesAndDaily(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice", "")

	status, env := a.do(http.MethodGet, "/api/v1/progress", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	view := decode[gamification.ProgressView](t, env)
	assert.Equal(t, 1, view.Level)
	assert.Equal(t, alice.WelcomeBadge.Points, view.TotalPoints)

	status, env = a.do(http.MethodGet, "/api/v1/progress/daily?days=3", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	daily := decode[struct {
		Days []gamification.DayPoint `json:"days"`
	}](t, env)
	assert.Len(t, daily.Days, 3)

	status, env = a.do(http.MethodGet, "/api/v1/badges", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	board := decode[struct {
		Badges []gamification.BadgeStatus `json:"badges"`
	}](t, env)
	earned := 0
	for _, b := range board.Badges {
		if b.Earned {
			earned++
			assert.Equal(t, gamification.WelcomeBadgeSlug, b.Badge.Slug)
		}
	}
	assert.Equal(t, 1, earned)

	status, env = a.do(http.MethodPost, "/api/v1/badges/evaluate", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.JSONEq(t, `{"new_badges":[]}`, string(env.Data))
}

func TestLeaderboardFallsBackToDatabase(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice", "")
	a.register("bobby", alice.User.ReferralCode)

	status, env := a.do(http.MethodGet, "/api/v1/leaderboard?limit=10", "", nil)
	require.Equal(t, http.StatusOK, status)
	lb := decode[struct {
		Source  string                    `json:"source"`
		Entries []gamification.RankedUser `json:"entries"`
	}](t, env)
	assert.Equal(t, "database", lb.Source)
	require.Len(t, lb.Entries, 2)
	assert.Equal(t, 1, lb.Entries[0].Rank)
	assert.GreaterOrEqual(t, lb.Entries[0].TotalPoints, lb.Entries[1].TotalPoints)
}

func TestStats(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice", "")
	a.register("bobby", alice.User.ReferralCode)

	status, env := a.do(http.MethodGet, "/api/v1/stats", "", nil)
	require.Equal(t, http.StatusOK, status)
	totals := decode[repository.Totals](t, env)
	assert.Equal(t, int64(2), totals.Users)
	assert.Equal(t, int64(1), totals.TreesPlanted)
}

func TestAdminGrantPremium(t *testing.T) {
	a := newAPI(t)
	admin := a.register("admin", "")
	alice := a.register("alice", "")
	assert.True(t, admin.User.IsAdmin)
	assert.False(t, alice.User.IsAdmin)

	path := fmt.Sprintf("/api/v1/admin/users/%d/premium", alice.User.ID)
	status, env := a.do(http.MethodPost, path, alice.Token, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, 40301, env.Code)

	status, env = a.do(http.MethodPost, path, admin.Token, nil)
	require.Equal(t, http.StatusOK, status, env.Message)
	granted := decode[struct {
		IsPremium bool                      `json:"is_premium"`
		Badge     *gamification.EarnedBadge `json:"badge"`
	}](t, env)
	assert.True(t, granted.IsPremium)
	require.NotNil(t, granted.Badge)
	assert.Equal(t, gamification.PremiumBadgeSlug, granted.Badge.Slug)

	status, env = a.do(http.MethodPost, "/api/v1/admin/users/9999/premium", admin.Token, nil)
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, 40401, env.Code)
}

func TestDeleteAccount(t *testing.T) {
	a := newAPI(t)
	alice := a.register("alice", "")

	status, _ := a.do(http.MethodDelete, "/api/v1/auth/me", alice.Token, nil)
	require.Equal(t, http.StatusOK, status)

	status, env := a.do(http.MethodPost, "/api/v1/auth/login", "", map[string]string{"username": "alice", "password": "correct-horse"})
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40106, env.Code)

	status, env = a.do(http.MethodGet, "/api/v1/auth/me", alice.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, 40104, env.Code)
}
