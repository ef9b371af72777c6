package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags manages feature toggles with gradual rollout. Rollout is
// assigned by hashing the user ID, so a user stays in or out of a feature
// consistently across requests.
type FeatureFlags struct {
	mu sync.RWMutex

	features map[string]*Feature

	// Override rules (for testing/debugging).
	userOverrides map[string]map[string]bool // userID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100). Users are assigned by ID hash.
	RolloutPercent int
}

// FeatureContext provides context for feature flag evaluation.
type FeatureContext struct {
	UserID  string // evaluator/admin UUID
	IsAdmin bool
}

// Predefined feature flag names.
const (
	// FeatureStrictCompetenceScope fails grade registration when an exam
	// declares no explicit competence list and no catalog is wired,
	// instead of skipping the scope check.
	FeatureStrictCompetenceScope = "grading.strict_competence_scope"

	// FeatureModalityWideGrading lets any evaluator holding an enrollment
	// in a modality grade every competitor there, not only assigned ones.
	FeatureModalityWideGrading = "grading.modality_wide"

	// FeatureStatsCache toggles the Redis statistics cache.
	FeatureStatsCache = "statistics.cache"

	// FeatureStatsScheduledRefresh toggles the background statistics
	// warm-up job.
	FeatureStatsScheduledRefresh = "statistics.scheduled_refresh"

	// FeatureAuditRequestMeta captures IP and user agent in audit entries.
	FeatureAuditRequestMeta = "audit.request_meta"
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:      make(map[string]*Feature),
		userOverrides: make(map[string]map[string]bool),
	}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

// initializeDefaults sets up all features with default values.
func (ff *FeatureFlags) initializeDefaults() {
	ff.features[FeatureStrictCompetenceScope] = &Feature{
		Name:           FeatureStrictCompetenceScope,
		Description:    "Reject grading when competence scope cannot be verified",
		Enabled:        false,
		RolloutPercent: 100,
	}
	ff.features[FeatureModalityWideGrading] = &Feature{
		Name:           FeatureModalityWideGrading,
		Description:    "Allow modality-wide grading for enrolled evaluators",
		Enabled:        true,
		RolloutPercent: 100,
	}
	ff.features[FeatureStatsCache] = &Feature{
		Name:           FeatureStatsCache,
		Description:    "Cache exam statistics in Redis",
		Enabled:        true,
		RolloutPercent: 100,
	}
	ff.features[FeatureStatsScheduledRefresh] = &Feature{
		Name:           FeatureStatsScheduledRefresh,
		Description:    "Warm exam statistics cache on a schedule",
		Enabled:        true,
		RolloutPercent: 100,
	}
	ff.features[FeatureAuditRequestMeta] = &Feature{
		Name:           FeatureAuditRequestMeta,
		Description:    "Capture request IP and user agent in audit entries",
		Enabled:        true,
		RolloutPercent: 100,
	}
}

// loadFromEnvironment applies FEATURE_* environment overrides.
// FEATURE_GRADING_STRICT_COMPETENCE_SCOPE=false disables that feature.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, feature := range ff.features {
		envKey := featureNameToEnvKey(name)
		if val := os.Getenv(envKey); val != "" {
			if enabled, err := strconv.ParseBool(val); err == nil {
				feature.Enabled = enabled
			}
		}
		if val := os.Getenv(envKey + "_ROLLOUT"); val != "" {
			if percent, err := strconv.Atoi(val); err == nil && percent >= 0 && percent <= 100 {
				feature.RolloutPercent = percent
			}
		}
	}
}

// featureNameToEnvKey converts "grading.strict_competence_scope" to
// "FEATURE_GRADING_STRICT_COMPETENCE_SCOPE".
func featureNameToEnvKey(name string) string {
	key := strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
	return "FEATURE_" + key
}

// IsEnabled evaluates a feature for the given context. A nil context
// evaluates the flag globally (rollout percentage ignored below 100).
func (ff *FeatureFlags) IsEnabled(featureName string, ctx *FeatureContext) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if ctx != nil {
		if overrides, ok := ff.userOverrides[ctx.UserID]; ok {
			if enabled, ok := overrides[featureName]; ok {
				return enabled
			}
		}
	}

	feature, ok := ff.features[featureName]
	if !ok || !feature.Enabled {
		return false
	}
	if feature.RolloutPercent >= 100 {
		return true
	}
	if ctx == nil {
		return false
	}
	if ctx.IsAdmin {
		// Admins always see partially rolled out features.
		return true
	}
	return isInRollout(ctx.UserID, featureName, feature.RolloutPercent)
}

// isInRollout assigns the user into the rollout bucket deterministically.
func isInRollout(userID, featureName string, percent int) bool {
	h := fnv.New32a()
	_, _ = h.Write([]byte(userID + ":" + featureName))
	return int(h.Sum32()%100) < percent
}

// SetUserOverride forces a feature on or off for one user.
func (ff *FeatureFlags) SetUserOverride(userID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.userOverrides[userID] == nil {
		ff.userOverrides[userID] = make(map[string]bool)
	}
	ff.userOverrides[userID][featureName] = enabled
}

// ClearUserOverrides removes all overrides for one user.
func (ff *FeatureFlags) ClearUserOverrides(userID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.userOverrides, userID)
}

// SetRolloutPercent adjusts a feature's rollout at runtime.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	if percent < 0 || percent > 100 {
		return fmt.Errorf("config: rollout percent must be 0-100, got %d", percent)
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return fmt.Errorf("config: unknown feature %q", featureName)
	}
	feature.RolloutPercent = percent
	return nil
}

// EnableFeature turns a feature on globally.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.setEnabled(featureName, true)
}

// DisableFeature turns a feature off globally.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.setEnabled(featureName, false)
}

func (ff *FeatureFlags) setEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	feature, ok := ff.features[featureName]
	if !ok {
		return fmt.Errorf("config: unknown feature %q", featureName)
	}
	feature.Enabled = enabled
	return nil
}

// GetAllFeatures returns a copy of every feature's current state.
func (ff *FeatureFlags) GetAllFeatures() map[string]Feature {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	result := make(map[string]Feature, len(ff.features))
	for name, feature := range ff.features {
		result[name] = *feature
	}
	return result
}
