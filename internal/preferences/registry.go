// Package preferences resolves per-user research preferences (citation
// style, detail level, preferred source categories) from a YAML profile
// file, falling back to sane defaults.
package preferences

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/researchpro/orchestrator/internal/research"
)

type profileFile struct {
	Default *research.Preferences           `yaml:"default"`
	Users   map[string]research.Preferences `yaml:"users"`
}

// Registry holds loaded preference profiles.
type Registry struct {
	mu       sync.RWMutex
	defaults research.Preferences
	users    map[string]research.Preferences
}

// NewRegistry returns a registry with built-in defaults and no per-user
// profiles.
func NewRegistry() *Registry {
	return &Registry{
		defaults: research.DefaultPreferences(),
		users:    make(map[string]research.Preferences),
	}
}

// LoadFile reads a YAML profile file into a registry. Missing fields in
// a user profile inherit the default profile.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read preferences file: %w", err)
	}

	var pf profileFile
	if err := yaml.Unmarshal(data, &pf); err != nil {
		return nil, fmt.Errorf("parse preferences file: %w", err)
	}

	r := NewRegistry()
	if pf.Default != nil {
		r.defaults = withFallback(*pf.Default, r.defaults)
	}
	for userID, p := range pf.Users {
		r.users[userID] = withFallback(p, r.defaults)
	}
	return r, nil
}

// Reload re-reads a profile file into an existing registry, replacing
// its contents atomically. Used by the config hot-reload watcher; a
// parse failure leaves the registry unchanged.
func (r *Registry) Reload(path string) error {
	loaded, err := LoadFile(path)
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defaults = loaded.defaults
	r.users = loaded.users
	return nil
}

// ForUser returns the preferences for a user, or the defaults when no
// profile exists.
func (r *Registry) ForUser(userID string) research.Preferences {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.users[userID]; ok {
		return p
	}
	return r.defaults
}

// Set stores a profile for a user.
func (r *Registry) Set(userID string, p research.Preferences) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[userID] = withFallback(p, r.defaults)
}

func withFallback(p, base research.Preferences) research.Preferences {
	if p.CitationStyle == "" {
		p.CitationStyle = base.CitationStyle
	}
	if p.DetailLevel == "" {
		p.DetailLevel = base.DetailLevel
	}
	if len(p.PreferredSources) == 0 {
		p.PreferredSources = base.PreferredSources
	}
	return p
}
