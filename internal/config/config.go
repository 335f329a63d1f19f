// Package config is the single source of truth for tunables shared across
// the game engine, the transport layer, and the settings store.
//
// The engine reads its tunables through these constructors. DefaultSettings
// in settings.go repeats some mode defaults (round count/duration, control
// interval, point target, respawn delay) as its own literals, and the
// default sensitivity label is a literal in settings.go and the engine.
package config

import (
	"os"
	"strconv"
	"time"
)

// =============================================================================
// MOVEMENT / DAMAGE CONFIGURATION
// =============================================================================

// MovementConfig controls how accelerometer intensity turns into damage.
// It is the process-wide knob mode installation and game events mutate —
// callers MUST capture and restore the previous value (see the engine's
// pushMovement/popMovement).
type MovementConfig struct {
	DangerThreshold  float64 // intensity above this accumulates damage
	DamageMultiplier float64 // scales (intensity-threshold) into damage
	OneshotMode      bool    // any motion above threshold is instantly lethal
	SmoothingEnabled bool    // average the last few samples before thresholding
	SmoothingWindow  int     // number of samples to average when smoothing

	// NinjaThresholdMultiplier is the single site the Ninja role reads its
	// effective-threshold multiplier from (spec Open Question: canonical
	// value must live at one site, not be hard-coded per fixture).
	NinjaThresholdMultiplier float64
}

// DefaultMovement returns the baseline movement configuration.
func DefaultMovement() MovementConfig {
	return MovementConfig{
		DangerThreshold:          1.5,
		DamageMultiplier:         8.0,
		OneshotMode:              false,
		SmoothingEnabled:         true,
		SmoothingWindow:          3,
		NinjaThresholdMultiplier: 3.0,
	}
}

// MovementFromEnv overrides defaults from the environment, mirroring the
// other FromEnv constructors in this package.
func MovementFromEnv() MovementConfig {
	cfg := DefaultMovement()

	if v := getEnvFloat("DANGER_THRESHOLD", -1); v >= 0 {
		cfg.DangerThreshold = v
	}
	if v := getEnvFloat("DAMAGE_MULTIPLIER", -1); v >= 0 {
		cfg.DamageMultiplier = v
	}
	if os.Getenv("ONESHOT_MODE") == "true" {
		cfg.OneshotMode = true
	}
	if v := getEnvFloat("NINJA_THRESHOLD_MULTIPLIER", -1); v >= 0 {
		cfg.NinjaThresholdMultiplier = v
	}

	return cfg
}

// SensitivityPreset is a named bundle of movement thresholds players pick
// from the lobby UI ("low"/"medium"/"high" sensitivity).
type SensitivityPreset struct {
	Label           string
	DangerThreshold float64
}

// SensitivityPresets is the fixed table of selectable sensitivities.
func SensitivityPresets() map[string]SensitivityPreset {
	return map[string]SensitivityPreset{
		"low":    {Label: "low", DangerThreshold: 2.5},
		"medium": {Label: "medium", DangerThreshold: 1.5},
		"high":   {Label: "high", DangerThreshold: 0.9},
	}
}

// =============================================================================
// RESOURCE LIMITS
// =============================================================================

// ResourceLimits bounds roster size and team/base counts.
type ResourceLimits struct {
	MaxPlayers   int
	MinTeamCount int
	MaxTeamCount int

	// GraceDuration is how long a lobby-disconnected player's number is
	// reserved before the slot is released.
	GraceDuration time.Duration
}

// DefaultLimits returns production-safe defaults.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxPlayers:    64,
		MinTeamCount:  2,
		MaxTeamCount:  4,
		GraceDuration: 30 * time.Second,
	}
}

// =============================================================================
// MODE DEFAULTS
// =============================================================================

// ModeDefaults holds the per-mode knobs mode installation can override.
type ModeDefaults struct {
	CountdownDuration time.Duration
	ReadyDelay        time.Duration
	RoundCount        int
	RoundDuration     time.Duration
	TargetScore       int
	RespawnDelay      time.Duration
	ControlIntervalMs int
	PointTarget       int
	PlacementBonuses  []int // index 0 = 1st place, etc.
}

// DefaultModeDefaults returns baseline values every mode may override a
// subset of at Launch() time.
func DefaultModeDefaults() ModeDefaults {
	return ModeDefaults{
		CountdownDuration: 3 * time.Second,
		ReadyDelay:        2 * time.Second,
		RoundCount:        3,
		RoundDuration:     60 * time.Second,
		TargetScore:       15,
		RespawnDelay:      5 * time.Second,
		ControlIntervalMs: 1000,
		PointTarget:       100,
		PlacementBonuses:  []int{5, 3, 1},
	}
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port int
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{Port: 8080}
}

// ServerFromEnv overrides ServerConfig from the environment.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()
	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	return cfg
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig is the full configuration the process loads at startup.
type AppConfig struct {
	Movement MovementConfig
	Limits   ResourceLimits
	Modes    ModeDefaults
	Server   ServerConfig
}

// Load returns the complete configuration with environment overrides applied.
func Load() AppConfig {
	return AppConfig{
		Movement: MovementFromEnv(),
		Limits:   DefaultLimits(),
		Modes:    DefaultModeDefaults(),
		Server:   ServerFromEnv(),
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}
