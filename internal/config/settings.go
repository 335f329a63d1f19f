package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

// Settings is the single JSON document persisted between server restarts.
// It mirrors the lobby's settings panel: movement tuning, sensitivity,
// default mode, theme, round/team knobs, and per-mode overrides.
type Settings struct {
	Movement MovementConfig `json:"movement"`
	Sensitivity string       `json:"sensitivity"`
	DefaultMode string       `json:"defaultMode"`
	Theme       string       `json:"theme"`

	RoundCount    int  `json:"roundCount"`
	RoundDuration int  `json:"roundDurationMs"`
	TeamsEnabled  bool `json:"teamsEnabled"`
	TeamCount     int  `json:"teamCount"`

	// Domination knobs
	ControlIntervalMs int `json:"controlIntervalMs"`
	PointTarget       int `json:"pointTarget"`

	// Death-Count knobs
	DeathCountRespawnMs int `json:"deathCountRespawnMs"`

	EarbudMode bool `json:"earbudMode"`
}

// legacyFlatSettings is the pre-migration on-disk layout, where movement
// knobs lived at the document root instead of nested under "movement".
type legacyFlatSettings struct {
	DangerThreshold  *float64 `json:"dangerThreshold"`
	DamageMultiplier *float64 `json:"damageMultiplier"`
	OneshotMode      *bool    `json:"oneshotMode"`
	Sensitivity      string   `json:"sensitivity"`
	DefaultMode      string   `json:"defaultMode"`
	Theme            string   `json:"theme"`
	RoundCount       int      `json:"roundCount"`
	RoundDuration    int      `json:"roundDurationMs"`
	TeamsEnabled     bool     `json:"teamsEnabled"`
	TeamCount        int      `json:"teamCount"`
}

// DefaultSettings returns the settings document written on first boot.
func DefaultSettings() Settings {
	return Settings{
		Movement:            DefaultMovement(),
		Sensitivity:         "medium",
		DefaultMode:         "classic",
		Theme:               "dark",
		RoundCount:          3,
		RoundDuration:       60_000,
		TeamsEnabled:        false,
		TeamCount:           2,
		ControlIntervalMs:   1000,
		PointTarget:         100,
		DeathCountRespawnMs: 5000,
		EarbudMode:          false,
	}
}

// Store loads, migrates, and persists a single Settings document. Save is
// best-effort: a write failure is logged by the caller via the returned
// error but never panics the engine. Disable()/Enable() let the test
// harness turn persistence off entirely, the way the teacher's EventLog
// exposes Start()/Stop() to tests.
type Store struct {
	mu       sync.Mutex
	path     string
	disabled bool
	current  Settings
}

// NewStore creates a settings store rooted at path (a single JSON file).
func NewStore(path string) *Store {
	return &Store{path: path, current: DefaultSettings()}
}

// Disable turns off Save(); Load() still works so tests can seed fixtures.
func (s *Store) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = true
}

// Enable turns persistence back on.
func (s *Store) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disabled = false
}

// Current returns the in-memory settings snapshot.
func (s *Store) Current() Settings {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Load reads the settings document from disk. A missing file is not an
// error — defaults are installed and the caller proceeds. A corrupt file
// loads as defaults too (§6: "corrupt files load as null and the system
// proceeds with defaults").
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.current = DefaultSettings()
			return s.current, nil
		}
		return s.current, errors.Wrap(err, "settings: read")
	}

	settings, migrated := parseSettings(data)
	if migrated {
		s.current = settings
		_ = s.saveLocked() // best-effort: persist the migrated shape
		return s.current, nil
	}

	s.current = settings
	return s.current, nil
}

// parseSettings tries the current nested layout first, then falls back to
// the legacy flat layout. A fully corrupt document ("null" or invalid JSON)
// resolves to defaults, never an error the caller must handle.
func parseSettings(data []byte) (Settings, bool) {
	var nested Settings
	if err := json.Unmarshal(data, &nested); err == nil && nested.Movement.DangerThreshold != 0 {
		return nested, false
	}

	var legacy legacyFlatSettings
	if err := json.Unmarshal(data, &legacy); err == nil && (legacy.DangerThreshold != nil || legacy.DamageMultiplier != nil) {
		migrated := DefaultSettings()
		if legacy.DangerThreshold != nil {
			migrated.Movement.DangerThreshold = *legacy.DangerThreshold
		}
		if legacy.DamageMultiplier != nil {
			migrated.Movement.DamageMultiplier = *legacy.DamageMultiplier
		}
		if legacy.OneshotMode != nil {
			migrated.Movement.OneshotMode = *legacy.OneshotMode
		}
		if legacy.Sensitivity != "" {
			migrated.Sensitivity = legacy.Sensitivity
		}
		if legacy.DefaultMode != "" {
			migrated.DefaultMode = legacy.DefaultMode
		}
		if legacy.Theme != "" {
			migrated.Theme = legacy.Theme
		}
		if legacy.RoundCount > 0 {
			migrated.RoundCount = legacy.RoundCount
		}
		if legacy.RoundDuration > 0 {
			migrated.RoundDuration = legacy.RoundDuration
		}
		migrated.TeamsEnabled = legacy.TeamsEnabled
		if legacy.TeamCount > 0 {
			migrated.TeamCount = legacy.TeamCount
		}
		return migrated, true
	}

	// null or garbage: proceed with defaults, as if the file didn't exist.
	return DefaultSettings(), false
}

// Save persists the current settings, creating missing directories as
// needed. A no-op (but not an error) when the store has been Disable()d.
func (s *Store) Save(settings Settings) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = settings
	return s.saveLocked()
}

func (s *Store) saveLocked() error {
	if s.disabled {
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrap(err, "settings: mkdir")
		}
	}

	data, err := json.MarshalIndent(s.current, "", "  ")
	if err != nil {
		return errors.Wrap(err, "settings: marshal")
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		return errors.Wrap(err, "settings: write")
	}
	return nil
}
