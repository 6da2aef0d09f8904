package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

type GameConfig struct {
	MinPlayers      int `json:"min_players"`
	DefaultCapacity int `json:"default_capacity"`
	MaxCapacity     int `json:"max_capacity"`
	LiberalRequired int `json:"liberal_required"`
	FascistRequired int `json:"fascist_required"`
	// AutostartDelaySeconds configures how many seconds a quorate lobby waits before starting.
	AutostartDelaySeconds int `json:"autostart_delay_seconds"`

	VoiceSecret string `json:"voice_secret"`
	VoiceIssuer string `json:"voice_issuer"`
	VoiceDomain string `json:"voice_domain"`
}

var (
	cfg      *GameConfig
	loadOnce sync.Once
	loadErr  error
)

// LoadGameConfig loads the game configuration from the given path.
func LoadGameConfig(path string) error {
	loadOnce.Do(func() {
		data, err := os.ReadFile(path)
		if err != nil {
			loadErr = fmt.Errorf("failed to read game config: %w", err)
			return
		}

		var c GameConfig
		if err := json.Unmarshal(data, &c); err != nil {
			loadErr = fmt.Errorf("failed to unmarshal game config: %w", err)
			return
		}
		cfg = &c
	})
	return loadErr
}

// GetGameConfig returns the global game configuration.
func GetGameConfig() *GameConfig {
	return cfg
}

// GetMinPlayers returns the configured lobby minimum, or the rulebook default.
func GetMinPlayers() int {
	if cfg == nil || cfg.MinPlayers <= 0 {
		return 5
	}
	return cfg.MinPlayers
}

// GetDefaultCapacity returns the capacity used when a create request omits one.
func GetDefaultCapacity() int {
	if cfg == nil || cfg.DefaultCapacity <= 0 {
		return 10
	}
	return cfg.DefaultCapacity
}

// GetMaxCapacity returns the largest allowed session capacity.
func GetMaxCapacity() int {
	if cfg == nil || cfg.MaxCapacity <= 0 {
		return 10
	}
	return cfg.MaxCapacity
}

// GetLiberalRequired returns the liberal policy victory threshold.
func GetLiberalRequired() int {
	if cfg == nil || cfg.LiberalRequired <= 0 {
		return 5
	}
	return cfg.LiberalRequired
}

// GetFascistRequired returns the fascist policy victory threshold.
func GetFascistRequired() int {
	if cfg == nil || cfg.FascistRequired <= 0 {
		return 6
	}
	return cfg.FascistRequired
}

// GetAutostartDelaySeconds returns the quorate-lobby countdown in seconds.
func GetAutostartDelaySeconds() int {
	if cfg == nil || cfg.AutostartDelaySeconds <= 0 {
		return 30
	}
	return cfg.AutostartDelaySeconds
}
