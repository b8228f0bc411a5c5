package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"
)

// GameConfig carries the tunable values for match rooms and the background
// schedulers. All fields are optional in the JSON file; zero values fall back
// to the defaults below.
type GameConfig struct {
	ScoreToWin int `json:"score_to_win"`
	// GraceSeconds is how long a disconnected player may reconnect before
	// forfeiting the match.
	GraceSeconds          int `json:"grace_seconds"`
	PingSeconds           int `json:"ping_seconds"`
	StartDelaySeconds     int `json:"start_delay_seconds"`
	QueueSweepSeconds     int `json:"queue_sweep_seconds"`
	TournamentScanSeconds int `json:"tournament_scan_seconds"`
}

const (
	defaultScoreToWin            = 5
	defaultGraceSeconds          = 60
	defaultPingSeconds           = 30
	defaultStartDelaySeconds     = 1
	defaultQueueSweepSeconds     = 1
	defaultTournamentScanSeconds = 5
)

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

// ScoreToWin returns the points threshold that ends a game.
func ScoreToWin() int {
	if cfg == nil || cfg.ScoreToWin <= 0 {
		return defaultScoreToWin
	}
	return cfg.ScoreToWin
}

// GraceSeconds returns the reconnect grace window in seconds.
func GraceSeconds() int {
	if cfg == nil || cfg.GraceSeconds <= 0 {
		return defaultGraceSeconds
	}
	return cfg.GraceSeconds
}

// PingSeconds returns the liveness ping interval in seconds.
func PingSeconds() int {
	if cfg == nil || cfg.PingSeconds <= 0 {
		return defaultPingSeconds
	}
	return cfg.PingSeconds
}

// StartDelaySeconds returns the countdown between all-ready and game start.
func StartDelaySeconds() int {
	if cfg == nil || cfg.StartDelaySeconds <= 0 {
		return defaultStartDelaySeconds
	}
	return cfg.StartDelaySeconds
}

// QueueSweepSeconds returns the matchmaking sweep cadence in seconds.
func QueueSweepSeconds() int {
	if cfg == nil || cfg.QueueSweepSeconds <= 0 {
		return defaultQueueSweepSeconds
	}
	return cfg.QueueSweepSeconds
}

// TournamentScanSeconds returns the tournament scan cadence in seconds.
func TournamentScanSeconds() int {
	if cfg == nil || cfg.TournamentScanSeconds <= 0 {
		return defaultTournamentScanSeconds
	}
	return cfg.TournamentScanSeconds
}
