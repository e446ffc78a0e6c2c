package features

import (
	"sort"
	"sync"
)

// Flag names.
const (
	// LearningAnnotations attaches confidence labels and notes to recommendations.
	LearningAnnotations = "learning_annotations"
	// SpendCache caches spend snapshots from the spend source.
	SpendCache = "spend_cache"
	// EventHooks publishes domain events to subscribed handlers.
	EventHooks = "event_hooks"
	// ExclusiveMatching lets each observed service satisfy at most one required service.
	ExclusiveMatching = "exclusive_matching"
)

// Flag is a named on/off switch.
type Flag struct {
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
}

// Manager holds the feature flags.
type Manager struct {
	mu    sync.RWMutex
	flags map[string]*Flag
}

func NewManager() *Manager {
	return &Manager{flags: make(map[string]*Flag)}
}

// NewDefaultManager registers every known flag with its default state.
func NewDefaultManager() *Manager {
	m := NewManager()
	m.Register(LearningAnnotations, true, "Annotate recommendations with feedback-derived confidence")
	m.Register(SpendCache, true, "Cache spend snapshots between requests")
	m.Register(EventHooks, true, "Publish domain events to subscribers")
	m.Register(ExclusiveMatching, false, "Match each observed service to at most one requirement")
	return m
}

func (m *Manager) Register(name string, enabled bool, description string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.flags[name] = &Flag{Name: name, Enabled: enabled, Description: description}
}

// IsEnabled reports whether the flag is on. Unknown flags are off.
func (m *Manager) IsEnabled(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	flag, ok := m.flags[name]
	return ok && flag.Enabled
}

// Set changes a registered flag and reports whether it exists.
func (m *Manager) Set(name string, enabled bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	flag, ok := m.flags[name]
	if ok {
		flag.Enabled = enabled
	}
	return ok
}

func (m *Manager) Enable(name string)  { m.Set(name, true) }
func (m *Manager) Disable(name string) { m.Set(name, false) }

// Apply sets every flag named in overrides. Unknown names are returned.
func (m *Manager) Apply(overrides map[string]bool) []string {
	var unknown []string
	for name, enabled := range overrides {
		if !m.Set(name, enabled) {
			unknown = append(unknown, name)
		}
	}
	sort.Strings(unknown)
	return unknown
}

// All returns copies of the flags sorted by name.
func (m *Manager) All() []Flag {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Flag, 0, len(m.flags))
	for _, f := range m.flags {
		out = append(out, *f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
