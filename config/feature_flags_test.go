package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeatureFlagsDefaults(t *testing.T) {
	ff := LoadFeatureFlags()

	assert.False(t, ff.IsEnabled(FeatureStrictCompetenceScope, nil))
	assert.True(t, ff.IsEnabled(FeatureModalityWideGrading, nil))
	assert.True(t, ff.IsEnabled(FeatureStatsCache, nil))
	assert.False(t, ff.IsEnabled("unknown.feature", nil))
}

func TestFeatureFlagsEnvironmentOverride(t *testing.T) {
	t.Setenv("FEATURE_STATISTICS_CACHE", "false")
	t.Setenv("FEATURE_GRADING_STRICT_COMPETENCE_SCOPE", "true")

	ff := LoadFeatureFlags()
	assert.False(t, ff.IsEnabled(FeatureStatsCache, nil))
	assert.True(t, ff.IsEnabled(FeatureStrictCompetenceScope, nil))
}

func TestFeatureFlagsEnableDisable(t *testing.T) {
	ff := LoadFeatureFlags()

	require.NoError(t, ff.EnableFeature(FeatureStrictCompetenceScope))
	assert.True(t, ff.IsEnabled(FeatureStrictCompetenceScope, nil))

	require.NoError(t, ff.DisableFeature(FeatureStrictCompetenceScope))
	assert.False(t, ff.IsEnabled(FeatureStrictCompetenceScope, nil))

	assert.Error(t, ff.EnableFeature("unknown.feature"))
}

func TestFeatureFlagsRollout(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureStatsCache, 0))

	// Global evaluation of a partial rollout is off.
	assert.False(t, ff.IsEnabled(FeatureStatsCache, nil))

	// Regular users fall outside a 0% rollout; admins always see it.
	user := &FeatureContext{UserID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}
	assert.False(t, ff.IsEnabled(FeatureStatsCache, user))
	admin := &FeatureContext{UserID: "anything", IsAdmin: true}
	assert.True(t, ff.IsEnabled(FeatureStatsCache, admin))

	assert.Error(t, ff.SetRolloutPercent(FeatureStatsCache, 150))
}

func TestFeatureFlagsRolloutIsDeterministic(t *testing.T) {
	ff := LoadFeatureFlags()
	require.NoError(t, ff.SetRolloutPercent(FeatureStatsCache, 50))

	user := &FeatureContext{UserID: "6ba7b810-9dad-11d1-80b4-00c04fd430c8"}
	first := ff.IsEnabled(FeatureStatsCache, user)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, ff.IsEnabled(FeatureStatsCache, user))
	}
}

func TestFeatureFlagsUserOverride(t *testing.T) {
	ff := LoadFeatureFlags()
	user := &FeatureContext{UserID: "user-1"}

	ff.SetUserOverride("user-1", FeatureStatsCache, false)
	assert.False(t, ff.IsEnabled(FeatureStatsCache, user))

	// Overrides win over the global state in both directions.
	ff.SetUserOverride("user-1", FeatureStrictCompetenceScope, true)
	assert.True(t, ff.IsEnabled(FeatureStrictCompetenceScope, user))

	ff.ClearUserOverrides("user-1")
	assert.True(t, ff.IsEnabled(FeatureStatsCache, user))
	assert.False(t, ff.IsEnabled(FeatureStrictCompetenceScope, user))
}

func TestGetAllFeatures(t *testing.T) {
	ff := LoadFeatureFlags()
	all := ff.GetAllFeatures()

	assert.Contains(t, all, FeatureStatsCache)
	assert.Contains(t, all, FeatureStrictCompetenceScope)

	// Mutating the copy does not affect the live flags.
	f := all[FeatureStrictCompetenceScope]
	f.Enabled = true
	all[FeatureStrictCompetenceScope] = f
	assert.False(t, ff.IsEnabled(FeatureStrictCompetenceScope, nil))
}
