package gamification

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogIsWellFormed(t *testing.T) {
	slugs := map[string]bool{}
	categories := map[string]bool{}
	for _, m := range DefaultMissions() {
		assert.False(t, slugs[m.Slug], "duplicate mission slug %s", m.Slug)
		slugs[m.Slug] = true
		categories[string(m.Category)] = true
		assert.Greater(t, m.CO2Impact, 0.0, m.Slug)
		assert.Greater(t, m.Points, 0, m.Slug)
		assert.True(t, m.Active, m.Slug)
	}
	assert.Len(t, categories, 5)

	for _, b := range DefaultBadges() {
		assert.False(t, slugs[b.Slug], "duplicate slug %s", b.Slug)
		slugs[b.Slug] = true
		assert.True(t, b.RequirementType.Valid(), b.Slug)
	}
}

func TestSeedCatalogIsIdempotent(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.svc.SeedCatalog(f.ctx))
	require.NoError(t, f.svc.SeedCatalog(f.ctx))

	missions, err := f.svc.Missions(f.ctx)
	require.NoError(t, err)
	assert.Len(t, missions, len(DefaultMissions()))

	badges, err := f.store.ActiveBadges(f.ctx)
	require.NoError(t, err)
	assert.Len(t, badges, len(DefaultBadges()))

	_, err = f.store.BadgeBySlug(f.ctx, WelcomeBadgeSlug)
	assert.NoError(t, err)
	_, err = f.store.BadgeBySlug(f.ctx, PremiumBadgeSlug)
	assert.NoError(t, err)
}
