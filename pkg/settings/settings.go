// Package settings holds the user preferences that survive between runs.
//
// A State is created with Load, which reads every persisted preference and falls back to
// defaults for anything never written. There is no teardown; each setter persists
// immediately. States are passed explicitly to whoever needs them.
package settings

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
)

type Theme string

const (
	Light Theme = "light"
	Dark  Theme = "dark"
)

// Persisted keys.
const (
	ThemeKey         = "theme"
	NotificationsKey = "notificationsEnabled"
	AnalyticsKey     = "analyticsEnabled"
	ScanRemindersKey = "scanRemindersEnabled"
)

var flagDefaults = map[string]bool{
	NotificationsKey: true,
	AnalyticsKey:     true,
	ScanRemindersKey: false,
}

// short names accepted on the command line
var flagAliases = map[string]string{
	"notifications":  NotificationsKey,
	"analytics":      AnalyticsKey,
	"reminders":      ScanRemindersKey,
	"scan-reminders": ScanRemindersKey,
}

// KV is the scalar half of the local store.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Put(ctx context.Context, key, value string) error
}

// State is a snapshot of the preferences plus the store they are written to.
type State struct {
	mu    sync.RWMutex
	kv    KV
	theme Theme
	flags map[string]bool
}

// Snapshot is the plain view used for display and JSON.
type Snapshot struct {
	Theme                Theme `json:"theme"`
	NotificationsEnabled bool  `json:"notificationsEnabled"`
	AnalyticsEnabled     bool  `json:"analyticsEnabled"`
	ScanRemindersEnabled bool  `json:"scanRemindersEnabled"`
}

// Load reads all preferences. Unreadable values keep their defaults; only a store
// failure is returned.
func Load(ctx context.Context, kv KV) (*State, error) {
	s := &State{kv: kv, theme: Light, flags: make(map[string]bool, len(flagDefaults))}
	for k, v := range flagDefaults {
		s.flags[k] = v
	}

	v, ok, err := kv.Get(ctx, ThemeKey)
	if err != nil {
		return s, err
	}
	if ok && Theme(v) == Dark {
		s.theme = Dark
	}

	for key := range flagDefaults {
		v, ok, err := kv.Get(ctx, key)
		if err != nil {
			return s, err
		}
		if !ok {
			continue
		}
		if b, perr := strconv.ParseBool(v); perr == nil {
			s.flags[key] = b
		}
	}
	return s, nil
}

func (s *State) Theme() Theme {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.theme
}

// ToggleTheme switches between light and dark and persists the new theme.
func (s *State) ToggleTheme(ctx context.Context) (Theme, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := Dark
	if s.theme == Dark {
		next = Light
	}
	if err := s.kv.Put(ctx, ThemeKey, string(next)); err != nil {
		return s.theme, err
	}
	s.theme = next
	return next, nil
}

// Flag returns a boolean preference by key or alias.
func (s *State) Flag(name string) (bool, error) {
	key, err := resolve(name)
	if err != nil {
		return false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[key], nil
}

// SetFlag persists a boolean preference by key or alias.
func (s *State) SetFlag(ctx context.Context, name string, value bool) error {
	key, err := resolve(name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.kv.Put(ctx, key, strconv.FormatBool(value)); err != nil {
		return err
	}
	s.flags[key] = value
	return nil
}

func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{
		Theme:                s.theme,
		NotificationsEnabled: s.flags[NotificationsKey],
		AnalyticsEnabled:     s.flags[AnalyticsKey],
		ScanRemindersEnabled: s.flags[ScanRemindersKey],
	}
}

// FlagNames lists the short names accepted by SetFlag.
func FlagNames() []string {
	out := make([]string, 0, len(flagAliases))
	for alias := range flagAliases {
		out = append(out, alias)
	}
	sort.Strings(out)
	return out
}

func resolve(name string) (string, error) {
	n := strings.TrimSpace(name)
	if key, ok := flagAliases[strings.ToLower(n)]; ok {
		return key, nil
	}
	if _, ok := flagDefaults[n]; ok {
		return n, nil
	}
	return "", fmt.Errorf("unknown setting %q (valid: %s)", name, strings.Join(FlagNames(), ", "))
}
