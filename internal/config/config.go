// Package config holds the kiosk's runtime configuration: every key in
// spec.md §6's configuration table, plus connection settings for the local
// and remote stores.
package config

import "time"

// File is the shape decoded from an optional TOML config file. Every field
// is optional; zero values mean "use the default/flag/env value instead".
type File struct {
	LoginCooldownEnabled     *bool    `toml:"login_cooldown_enabled"`
	LoginCooldownMinutes     *int     `toml:"login_cooldown_minutes"`
	LogoutRestrictionEnabled *bool    `toml:"logout_restriction_enabled"`
	SimilarityThreshold      *float64 `toml:"similarity_threshold"`
	StabilizationSeconds     *float64 `toml:"stabilization_seconds"`
	ReverifyCooldownSeconds  *float64 `toml:"reverify_cooldown_seconds"`
	MinFaceRatio             *float64 `toml:"min_face_ratio"`
	MaxFaceRatio             *float64 `toml:"max_face_ratio"`
	PushIntervalSeconds      *int     `toml:"push_interval_seconds"`
	PullIntervalSeconds      *int     `toml:"pull_interval_seconds"`
	DailyAttendancePushWindowDays *int `toml:"daily_attendance_push_window_days"`

	LocalStorePath string `toml:"local_store_path"`
	RemoteDSN      string `toml:"remote_dsn"`
	HealthAddr     string `toml:"health_addr"`
}

// Config is the fully resolved, immutable configuration passed by value into
// every constructor. Nothing downstream reads global flags or env after
// cmd/kiosk's loadConfig returns.
type Config struct {
	// §6 configuration keys.
	LoginCooldownEnabled          bool
	LoginCooldownMinutes          int
	LogoutRestrictionEnabled      bool
	SimilarityThreshold           float64
	StabilizationSeconds          float64
	ReverifyCooldownSeconds       float64
	MinFaceRatio                  float64
	MaxFaceRatio                  float64
	PushIntervalSeconds           int
	PullIntervalSeconds           int
	DailyAttendancePushWindowDays int

	// Connection/runtime settings not named as a §6 key but required to run.
	LocalStorePath string
	RemoteDSN      string
	HealthAddr     string
}

// Default returns the compiled-in defaults from spec.md §6.
func Default() Config {
	return Config{
		LoginCooldownEnabled:          false,
		LoginCooldownMinutes:          60,
		LogoutRestrictionEnabled:      true,
		SimilarityThreshold:           0.6,
		StabilizationSeconds:          1.5,
		ReverifyCooldownSeconds:       3.0,
		MinFaceRatio:                  0.08,
		MaxFaceRatio:                  0.50,
		PushIntervalSeconds:           5,
		PullIntervalSeconds:           60,
		DailyAttendancePushWindowDays: 7,
		LocalStorePath:                "kiosk_local.db",
		HealthAddr:                    ":9090",
	}
}

// ApplyFile overlays non-nil fields of f onto c.
func (c Config) ApplyFile(f File) Config {
	if f.LoginCooldownEnabled != nil {
		c.LoginCooldownEnabled = *f.LoginCooldownEnabled
	}
	if f.LoginCooldownMinutes != nil {
		c.LoginCooldownMinutes = *f.LoginCooldownMinutes
	}
	if f.LogoutRestrictionEnabled != nil {
		c.LogoutRestrictionEnabled = *f.LogoutRestrictionEnabled
	}
	if f.SimilarityThreshold != nil {
		c.SimilarityThreshold = *f.SimilarityThreshold
	}
	if f.StabilizationSeconds != nil {
		c.StabilizationSeconds = *f.StabilizationSeconds
	}
	if f.ReverifyCooldownSeconds != nil {
		c.ReverifyCooldownSeconds = *f.ReverifyCooldownSeconds
	}
	if f.MinFaceRatio != nil {
		c.MinFaceRatio = *f.MinFaceRatio
	}
	if f.MaxFaceRatio != nil {
		c.MaxFaceRatio = *f.MaxFaceRatio
	}
	if f.PushIntervalSeconds != nil {
		c.PushIntervalSeconds = *f.PushIntervalSeconds
	}
	if f.PullIntervalSeconds != nil {
		c.PullIntervalSeconds = *f.PullIntervalSeconds
	}
	if f.DailyAttendancePushWindowDays != nil {
		c.DailyAttendancePushWindowDays = *f.DailyAttendancePushWindowDays
	}
	if f.LocalStorePath != "" {
		c.LocalStorePath = f.LocalStorePath
	}
	if f.RemoteDSN != "" {
		c.RemoteDSN = f.RemoteDSN
	}
	if f.HealthAddr != "" {
		c.HealthAddr = f.HealthAddr
	}
	return c
}

// StabilizationDuration returns StabilizationSeconds as a time.Duration.
func (c Config) StabilizationDuration() time.Duration {
	return time.Duration(c.StabilizationSeconds * float64(time.Second))
}

// ReverifyCooldownDuration returns ReverifyCooldownSeconds as a time.Duration.
func (c Config) ReverifyCooldownDuration() time.Duration {
	return time.Duration(c.ReverifyCooldownSeconds * float64(time.Second))
}

// LoginCooldownDuration returns LoginCooldownMinutes as a time.Duration.
func (c Config) LoginCooldownDuration() time.Duration {
	return time.Duration(c.LoginCooldownMinutes) * time.Minute
}

// PushInterval returns PushIntervalSeconds as a time.Duration.
func (c Config) PushInterval() time.Duration {
	return time.Duration(c.PushIntervalSeconds) * time.Second
}

// PullInterval returns PullIntervalSeconds as a time.Duration.
func (c Config) PullInterval() time.Duration {
	return time.Duration(c.PullIntervalSeconds) * time.Second
}

// DailyAttendancePushWindow returns DailyAttendancePushWindowDays as a
// time.Duration.
func (c Config) DailyAttendancePushWindow() time.Duration {
	return time.Duration(c.DailyAttendancePushWindowDays) * 24 * time.Hour
}
