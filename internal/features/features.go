package features

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownFlag is returned by Set for names that were never registered.
var ErrUnknownFlag = errors.New("unknown feature flag")

// FeatureFlag represents a feature flag configuration.
type FeatureFlag struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// Manager manages feature flags.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*FeatureFlag
}

// NewManager creates a new feature flag manager.
func NewManager() *Manager {
	return &Manager{
		flags: make(map[string]*FeatureFlag),
	}
}

// NewDefaultManager registers the service's flags with the given states.
// Names missing from enabled start disabled.
func NewDefaultManager(enabled map[string]bool) *Manager {
	m := NewManager()
	m.Register(FeatureNarrationCache, enabled[FeatureNarrationCache], "Cache narrated alternative messages")
	m.Register(FeatureRemoteNarration, enabled[FeatureRemoteNarration], "Narrate alternatives with the remote narration endpoint")
	m.Register(FeatureEventHooks, enabled[FeatureEventHooks], "Publish ranking and catalog events to in-process hooks")
	m.Register(FeatureDayOfWeekFilter, enabled[FeatureDayOfWeekFilter], "Apply constraints.days_of_week to near-time alternatives")
	m.Register(FeaturePlanNormalization, enabled[FeaturePlanNormalization], "Map plan brand and category onto catalog spellings before ranking")
	return m
}

// Register registers a new feature flag.
func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &FeatureFlag{
		Name:        name,
		Enabled:     enabled,
		Description: description,
	}
}

// IsEnabled checks if a feature flag is enabled. Unknown flags are disabled.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, exists := m.flags[name]
	if !exists {
		return false
	}
	return flag.Enabled
}

// Set changes a registered flag and returns its new state.
func (m *Manager) Set(name string, enabled bool) (FeatureFlag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	flag, exists := m.flags[name]
	if !exists {
		return FeatureFlag{}, fmt.Errorf("%w: %s", ErrUnknownFlag, name)
	}
	flag.Enabled = enabled
	return *flag, nil
}

// Enable enables a registered feature flag.
func (m *Manager) Enable(name string) {
	_, _ = m.Set(name, true)
}

// Disable disables a registered feature flag.
func (m *Manager) Disable(name string) {
	_, _ = m.Set(name, false)
}

// List returns copies of all flags ordered by name.
func (m *Manager) List() []FeatureFlag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]FeatureFlag, 0, len(m.flags))
	for _, v := range m.flags {
		result = append(result, *v)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

const (
	// FeatureNarrationCache caches narrated messages in the configured cache
	FeatureNarrationCache = "narration_cache"
	// FeatureRemoteNarration sends alternatives to the narration endpoint
	FeatureRemoteNarration = "remote_narration"
	// FeatureEventHooks enables event-driven hooks
	FeatureEventHooks = "event_hooks"
	// FeatureDayOfWeekFilter restricts near-time alternatives to their listed weekdays
	FeatureDayOfWeekFilter = "day_of_week_filter"
	// FeaturePlanNormalization maps unknown plan brands and categories onto the catalog's
	FeaturePlanNormalization = "plan_normalization"
)
