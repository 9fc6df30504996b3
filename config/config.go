// Package config loads overlay coordinator settings from file and
// environment via viper.
//
// The resulting Store satisfies the overlay package's Settings
// interface, supplying the global hide toggles and the hitch-detection
// threshold the frame dispatcher consults every tick.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds the overlay coordinator settings.
type Config struct {
	Hide  HideConfig  `mapstructure:"hide"`
	Stats StatsConfig `mapstructure:"stats"`
}

// HideConfig holds the UI suppression toggles.
type HideConfig struct {
	// Automatic enables hiding overlays when the user hides the game UI.
	Automatic bool `mapstructure:"automatic"`

	// DuringCutscene enables hiding overlays while a cutscene plays.
	DuringCutscene bool `mapstructure:"during_cutscene"`

	// DuringGPose enables hiding overlays in group-pose mode.
	DuringGPose bool `mapstructure:"during_gpose"`
}

// StatsConfig holds diagnostic settings.
type StatsConfig struct {
	// HitchThreshold is the tick-to-tick gap above which a session is
	// logged as hitching.
	HitchThreshold time.Duration `mapstructure:"hitch_threshold"`
}

// Store is a thread-safe view over loaded configuration.
// It implements the overlay package's Settings interface.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// Load reads configuration from file and env.
//
// The file is optional: defaults apply when none is found. The lookup
// order is $OVERLAY_CONFIG, then config.toml under
// $HOME/.config/overlay. Env var overrides use prefix OVERLAY_, e.g.
// OVERLAY_HIDE_DURING_CUTSCENE=false.
func Load() (*Store, error) {
	v := viper.New()

	v.SetDefault("hide.automatic", true)
	v.SetDefault("hide.during_cutscene", true)
	v.SetDefault("hide.during_gpose", true)
	v.SetDefault("stats.hitch_threshold", 250*time.Millisecond)

	v.SetConfigType("toml")

	cfgPath := os.Getenv("OVERLAY_CONFIG")
	if cfgPath != "" {
		v.SetConfigFile(cfgPath)
	} else {
		v.AddConfigPath(filepath.Join(os.Getenv("HOME"), ".config", "overlay"))
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("OVERLAY")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// read config file if present
	_ = v.ReadInConfig()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return &Store{cfg: c}, nil
}

// NewStore wraps an explicit configuration, mainly for hosts that
// manage persistence themselves and for tests.
func NewStore(cfg Config) *Store {
	return &Store{cfg: cfg}
}

// Set replaces the stored configuration.
func (s *Store) Set(cfg Config) {
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
}

// Snapshot returns a copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// AutoHideEnabled reports whether overlays hide with the game UI.
func (s *Store) AutoHideEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Hide.Automatic
}

// HideDuringCutscene reports whether overlays hide during cutscenes.
func (s *Store) HideDuringCutscene() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Hide.DuringCutscene
}

// HideDuringGPose reports whether overlays hide in group-pose mode.
func (s *Store) HideDuringGPose() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Hide.DuringGPose
}

// HitchThreshold returns the hitch-detection threshold.
func (s *Store) HitchThreshold() time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.Stats.HitchThreshold
}
