package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ehudso7/climate-guardian/models"
)

type dailyKey struct {
	userID uint
	date   time.Time
}

type userBadgeKey struct {
	userID  uint
	badgeID uint
}

type memState struct {
	seq         uint
	users       map[uint]models.User
	missions    map[uint]models.Mission
	assignments map[uint]models.UserMission
	progress    map[uint]models.UserProgress
	daily       map[dailyKey]models.DailyProgress
	badges      map[uint]models.Badge
	userBadges  map[userBadgeKey]models.UserBadge
	referrals   map[uint]models.Referral
}

func newMemState() *memState {
	return &memState{
		users:       map[uint]models.User{},
		missions:    map[uint]models.Mission{},
		assignments: map[uint]models.UserMission{},
		progress:    map[uint]models.UserProgress{},
		daily:       map[dailyKey]models.DailyProgress{},
		badges:      map[uint]models.Badge{},
		userBadges:  map[userBadgeKey]models.UserBadge{},
		referrals:   map[uint]models.Referral{},
	}
}

func cloneMap[K comparable, V any](in map[K]V) map[K]V {
	out := make(map[K]V, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func (st *memState) clone() *memState {
	return &memState{
		seq:         st.seq,
		users:       cloneMap(st.users),
		missions:    cloneMap(st.missions),
		assignments: cloneMap(st.assignments),
		progress:    cloneMap(st.progress),
		daily:       cloneMap(st.daily),
		badges:      cloneMap(st.badges),
		userBadges:  cloneMap(st.userBadges),
		referrals:   cloneMap(st.referrals),
	}
}

func (st *memState) nextID() uint {
	st.seq++
	return st.seq
}

// memTx operates on a state snapshot. mu is nil inside a transaction, where the store lock is already held.
type memTx struct {
	mu *sync.Mutex
	st *memState
}

func (t *memTx) lock() func() {
	if t.mu == nil {
		return func() {}
	}
	t.mu.Lock()
	return t.mu.Unlock
}

// MemoryStore is an in-process Store. Transactions are serialized and applied copy-on-write.
type MemoryStore struct {
	memTx
	mu sync.Mutex
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{}
	s.memTx = memTx{mu: &s.mu, st: newMemState()}
	return s
}

// Transaction runs fn against a private copy of the state and publishes it only when fn succeeds.
func (s *MemoryStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.st.clone()
	if err := fn(&memTx{st: work}); err != nil {
		return err
	}
	*s.st = *work
	return nil
}

func (t *memTx) ListMissions(ctx context.Context) ([]models.Mission, error) {
	defer t.lock()()
	out := make([]models.Mission, 0, len(t.st.missions))
	for _, m := range t.st.missions {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) ActiveMissions(ctx context.Context) ([]models.Mission, error) {
	all, _ := t.ListMissions(ctx)
	out := all[:0]
	for _, m := range all {
		if m.Active {
			out = append(out, m)
		}
	}
	return out, nil
}

func (t *memTx) MissionByID(ctx context.Context, id uint) (*models.Mission, error) {
	defer t.lock()()
	m, ok := t.st.missions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &m, nil
}

func (t *memTx) SeedMission(ctx context.Context, m *models.Mission) error {
	defer t.lock()()
	for _, existing := range t.st.missions {
		if existing.Slug == m.Slug {
			return nil
		}
	}
	if m.ID == 0 {
		m.ID = t.st.nextID()
	}
	m.CreatedAt = time.Now()
	t.st.missions[m.ID] = *m
	return nil
}

func (t *memTx) ActiveBadges(ctx context.Context) ([]models.Badge, error) {
	defer t.lock()()
	out := make([]models.Badge, 0, len(t.st.badges))
	for _, b := range t.st.badges {
		if b.Active {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) BadgeBySlug(ctx context.Context, slug string) (*models.Badge, error) {
	defer t.lock()()
	for _, b := range t.st.badges {
		if b.Slug == slug {
			return &b, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) SeedBadge(ctx context.Context, b *models.Badge) error {
	defer t.lock()()
	for _, existing := range t.st.badges {
		if existing.Slug == b.Slug {
			return nil
		}
	}
	if b.ID == 0 {
		b.ID = t.st.nextID()
	}
	b.CreatedAt = time.Now()
	t.st.badges[b.ID] = *b
	return nil
}

func (t *memTx) AssignmentForDate(ctx context.Context, userID uint, date time.Time) (*models.UserMission, error) {
	defer t.lock()()
	for _, a := range t.st.assignments {
		if a.UserID == userID && a.AssignedDate.Equal(date) {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) AssignmentByID(ctx context.Context, userID, id uint) (*models.UserMission, error) {
	defer t.lock()()
	a, ok := t.st.assignments[id]
	if !ok || a.UserID != userID {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (t *memTx) MissionIDsAssignedBetween(ctx context.Context, userID uint, from, to time.Time) ([]uint, error) {
	defer t.lock()()
	var ids []uint
	for _, a := range t.st.assignments {
		if a.UserID != userID || a.AssignedDate.Before(from) || a.AssignedDate.After(to) {
			continue
		}
		ids = append(ids, a.MissionID)
	}
	return ids, nil
}

func (t *memTx) CreateAssignment(ctx context.Context, a *models.UserMission) error {
	defer t.lock()()
	for _, existing := range t.st.assignments {
		if existing.UserID == a.UserID && existing.AssignedDate.Equal(a.AssignedDate) {
			return ErrDuplicate
		}
	}
	a.ID = t.st.nextID()
	a.CreatedAt = time.Now()
	t.st.assignments[a.ID] = *a
	return nil
}

func (t *memTx) UpdateAssignment(ctx context.Context, a *models.UserMission) error {
	defer t.lock()()
	existing, ok := t.st.assignments[a.ID]
	if !ok {
		return ErrNotFound
	}
	existing.Status = a.Status
	existing.CompletedAt = a.CompletedAt
	existing.SkippedAt = a.SkippedAt
	t.st.assignments[a.ID] = existing
	return nil
}

func (t *memTx) ListAssignments(ctx context.Context, userID uint, limit int) ([]models.UserMission, error) {
	defer t.lock()()
	var out []models.UserMission
	for _, a := range t.st.assignments {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedDate.After(out[j].AssignedDate) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) CreateProgress(ctx context.Context, p *models.UserProgress) error {
	defer t.lock()()
	if _, ok := t.st.progress[p.UserID]; ok {
		return ErrDuplicate
	}
	now := time.Now()
	p.CreatedAt, p.UpdatedAt = now, now
	t.st.progress[p.UserID] = *p
	return nil
}

func (t *memTx) Progress(ctx context.Context, userID uint) (*models.UserProgress, error) {
	defer t.lock()()
	p, ok := t.st.progress[userID]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (t *memTx) ProgressForUpdate(ctx context.Context, userID uint) (*models.UserProgress, error) {
	return t.Progress(ctx, userID)
}

func (t *memTx) SaveProgress(ctx context.Context, p *models.UserProgress) error {
	defer t.lock()()
	if _, ok := t.st.progress[p.UserID]; !ok {
		return ErrNotFound
	}
	p.UpdatedAt = time.Now()
	t.st.progress[p.UserID] = *p
	return nil
}

func (t *memTx) AddDailyProgress(ctx context.Context, userID uint, date time.Time, co2 float64, missions, points int) error {
	defer t.lock()()
	key := dailyKey{userID: userID, date: date}
	row, ok := t.st.daily[key]
	if !ok {
		row = models.DailyProgress{ID: t.st.nextID(), UserID: userID, Date: date, CreatedAt: time.Now()}
	}
	row.CO2Saved += co2
	row.MissionsCompleted += missions
	row.PointsEarned += points
	row.UpdatedAt = time.Now()
	t.st.daily[key] = row
	return nil
}

func (t *memTx) DailyProgressBetween(ctx context.Context, userID uint, from, to time.Time) ([]models.DailyProgress, error) {
	defer t.lock()()
	var out []models.DailyProgress
	for k, row := range t.st.daily {
		if k.userID != userID || k.date.Before(from) || k.date.After(to) {
			continue
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

func (t *memTx) TopProgress(ctx context.Context, limit int) ([]models.UserProgress, error) {
	defer t.lock()()
	out := make([]models.UserProgress, 0, len(t.st.progress))
	for _, p := range t.st.progress {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalPoints != out[j].TotalPoints {
			return out[i].TotalPoints > out[j].TotalPoints
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) Totals(ctx context.Context) (Totals, error) {
	defer t.lock()()
	tot := Totals{Users: int64(len(t.st.users))}
	for _, p := range t.st.progress {
		tot.CO2Saved += p.TotalCO2Saved
		tot.MissionsCompleted += int64(p.TotalMissionsCompleted)
		tot.TreesPlanted += int64(p.TreesPlanted)
	}
	return tot, nil
}

func (t *memTx) EarnedBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	defer t.lock()()
	var out []models.UserBadge
	for k, ub := range t.st.userBadges {
		if k.userID == userID {
			out = append(out, ub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) InsertUserBadge(ctx context.Context, ub *models.UserBadge) (bool, error) {
	defer t.lock()()
	key := userBadgeKey{userID: ub.UserID, badgeID: ub.BadgeID}
	if _, ok := t.st.userBadges[key]; ok {
		return false, nil
	}
	ub.ID = t.st.nextID()
	t.st.userBadges[key] = *ub
	return true, nil
}

func (t *memTx) CreateUser(ctx context.Context, u *models.User) error {
	defer t.lock()()
	for _, existing := range t.st.users {
		if existing.Username == u.Username || existing.ReferralCode == u.ReferralCode {
			return ErrDuplicate
		}
	}
	u.ID = t.st.nextID()
	now := time.Now()
	u.CreatedAt, u.UpdatedAt = now, now
	t.st.users[u.ID] = *u
	return nil
}

func (t *memTx) UserByID(ctx context.Context, id uint) (*models.User, error) {
	defer t.lock()()
	u, ok := t.st.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (t *memTx) UserByUsername(ctx context.Context, username string) (*models.User, error) {
	defer t.lock()()
	for _, u := range t.st.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) UserByReferralCode(ctx context.Context, code string) (*models.User, error) {
	defer t.lock()()
	for _, u := range t.st.users {
		if u.ReferralCode == code {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (t *memTx) SetPremium(ctx context.Context, userID uint, premium bool) error {
	defer t.lock()()
	u, ok := t.st.users[userID]
	if !ok {
		return ErrNotFound
	}
	u.IsPremium = premium
	t.st.users[userID] = u
	return nil
}

func (t *memTx) CreateReferral(ctx context.Context, r *models.Referral) (bool, error) {
	defer t.lock()()
	for _, existing := range t.st.referrals {
		if existing.ReferredID == r.ReferredID {
			return false, nil
		}
	}
	r.ID = t.st.nextID()
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now()
	}
	t.st.referrals[r.ID] = *r
	return true, nil
}

func (t *memTx) CompletedReferralCount(ctx context.Context, referrerID uint) (int64, error) {
	defer t.lock()()
	var n int64
	for _, r := range t.st.referrals {
		if r.ReferrerID == referrerID && r.Status == models.ReferralCompleted {
			n++
		}
	}
	return n, nil
}

func (t *memTx) DeleteUserData(ctx context.Context, userID uint) error {
	defer t.lock()()
	for id, a := range t.st.assignments {
		if a.UserID == userID {
			delete(t.st.assignments, id)
		}
	}
	for k := range t.st.daily {
		if k.userID == userID {
			delete(t.st.daily, k)
		}
	}
	for k := range t.st.userBadges {
		if k.userID == userID {
			delete(t.st.userBadges, k)
		}
	}
	for id, r := range t.st.referrals {
		if r.ReferrerID == userID || r.ReferredID == userID {
			delete(t.st.referrals, id)
		}
	}
	delete(t.st.progress, userID)
	delete(t.st.users, userID)
	return nil
}
