package config

import (
	"fmt"
	"hash/fnv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags toggles optional API surfaces and rolls them out gradually.
// Learners are bucketed by a hash of their ID, so a learner keeps the same
// answer for a given rollout percentage.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature

	// Override rules (for testing/debugging)
	learnerOverrides map[string]map[string]bool // learnerID -> feature -> enabled
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// Rollout percentage (0-100)
	RolloutPercent int
}

// Predefined feature flag names.
const (
	// Server-side grading of raw quiz answers (POST /modules/{id}/quiz).
	FeatureQuizGrading = "api.quiz_grading"

	// Server-side scoring of mini-game rounds (POST /games/{game}/rounds).
	FeatureGameRounds = "api.game_rounds"

	// Recent achievements feed (GET /activity).
	FeatureActivityFeed = "api.activity_feed"

	// Issuing fresh learner IDs (POST /learners).
	FeatureLearnerSignup = "api.learner_signup"
)

// LoadFeatureFlags loads feature flags from environment variables.
func LoadFeatureFlags() *FeatureFlags {
	ff := NewFeatureFlags()
	ff.loadFromEnvironment()
	return ff
}

// NewFeatureFlags returns flags with default values only.
func NewFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:         make(map[string]*Feature),
		learnerOverrides: make(map[string]map[string]bool),
	}
	ff.initializeDefaults()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	defaults := []Feature{
		{Name: FeatureQuizGrading, Description: "Grade raw quiz answers on the server", Enabled: true, RolloutPercent: 100},
		{Name: FeatureGameRounds, Description: "Score mini-game rounds on the server", Enabled: true, RolloutPercent: 100},
		{Name: FeatureActivityFeed, Description: "Show the recent achievements feed", Enabled: true, RolloutPercent: 100},
		{Name: FeatureLearnerSignup, Description: "Issue new learner IDs", Enabled: true, RolloutPercent: 100},
	}
	for i := range defaults {
		f := defaults[i]
		ff.features[f.Name] = &f
	}
}

// loadFromEnvironment reads FEATURE_<NAME>=true|false and
// FEATURE_<NAME>_ROLLOUT=0..100 for every known feature.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, f := range ff.features {
		key := featureNameToEnvKey(name)

		if val := os.Getenv(key); val != "" {
			if enabled, err := strconv.ParseBool(val); err == nil {
				f.Enabled = enabled
			}
		}
		if val := os.Getenv(key + "_ROLLOUT"); val != "" {
			if percent, err := strconv.Atoi(val); err == nil && percent >= 0 && percent <= 100 {
				f.RolloutPercent = percent
			}
		}
	}
}

// featureNameToEnvKey converts "api.game_rounds" to "FEATURE_API_GAME_ROUNDS".
func featureNameToEnvKey(name string) string {
	return "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

// IsEnabled reports whether the feature is on for the learner.
// Unknown features are disabled.
func (ff *FeatureFlags) IsEnabled(featureName, learnerID string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if overrides, ok := ff.learnerOverrides[learnerID]; ok {
		if enabled, ok := overrides[featureName]; ok {
			return enabled
		}
	}

	f, ok := ff.features[featureName]
	if !ok || !f.Enabled {
		return false
	}
	return inRollout(learnerID, featureName, f.RolloutPercent)
}

func inRollout(learnerID, featureName string, percent int) bool {
	if percent >= 100 {
		return true
	}
	if percent <= 0 {
		return false
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(featureName + ":" + learnerID))
	return int(h.Sum32()%100) < percent
}

// SetLearnerOverride forces a feature on or off for one learner.
func (ff *FeatureFlags) SetLearnerOverride(learnerID, featureName string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.learnerOverrides[learnerID] == nil {
		ff.learnerOverrides[learnerID] = make(map[string]bool)
	}
	ff.learnerOverrides[learnerID][featureName] = enabled
}

// ClearLearnerOverrides removes every override of a learner.
func (ff *FeatureFlags) ClearLearnerOverrides(learnerID string) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	delete(ff.learnerOverrides, learnerID)
}

// SetRolloutPercent changes the rollout percentage of a feature.
func (ff *FeatureFlags) SetRolloutPercent(featureName string, percent int) error {
	if percent < 0 || percent > 100 {
		return &FeatureFlagError{Feature: featureName, Message: fmt.Sprintf("rollout percent %d out of range 0-100", percent)}
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[featureName]
	if !ok {
		return &FeatureFlagError{Feature: featureName, Message: "unknown feature"}
	}
	f.RolloutPercent = percent
	return nil
}

// EnableFeature turns a feature on.
func (ff *FeatureFlags) EnableFeature(featureName string) error {
	return ff.setEnabled(featureName, true)
}

// DisableFeature turns a feature off.
func (ff *FeatureFlags) DisableFeature(featureName string) error {
	return ff.setEnabled(featureName, false)
}

func (ff *FeatureFlags) setEnabled(featureName string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[featureName]
	if !ok {
		return &FeatureFlagError{Feature: featureName, Message: "unknown feature"}
	}
	f.Enabled = enabled
	return nil
}

// EnabledNames returns the globally enabled features, sorted.
func (ff *FeatureFlags) EnabledNames() []string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	names := make([]string, 0, len(ff.features))
	for name, f := range ff.features {
		if f.Enabled && f.RolloutPercent > 0 {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names
}

// FeatureFlagError is returned for invalid flag operations.
type FeatureFlagError struct {
	Feature string
	Message string
}

func (e *FeatureFlagError) Error() string {
	return "feature flag " + e.Feature + ": " + e.Message
}
