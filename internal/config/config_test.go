package config

import (
	"testing"
	"time"
)

func TestApplyFileOverlaysOnlySetFields(t *testing.T) {
	base := Default()
	threshold := 0.75
	file := File{SimilarityThreshold: &threshold, RemoteDSN: "user:pass@tcp(db:3306)/kiosk"}

	got := base.ApplyFile(file)
	if got.SimilarityThreshold != 0.75 {
		t.Fatalf("SimilarityThreshold = %v, want 0.75", got.SimilarityThreshold)
	}
	if got.RemoteDSN != "user:pass@tcp(db:3306)/kiosk" {
		t.Fatalf("RemoteDSN = %q", got.RemoteDSN)
	}
	if got.LoginCooldownMinutes != base.LoginCooldownMinutes {
		t.Fatalf("unset field LoginCooldownMinutes changed: got %d, want default %d", got.LoginCooldownMinutes, base.LoginCooldownMinutes)
	}
	if got.LocalStorePath != base.LocalStorePath {
		t.Fatalf("unset field LocalStorePath changed: got %q, want default %q", got.LocalStorePath, base.LocalStorePath)
	}
}

func TestDurationHelpers(t *testing.T) {
	c := Config{
		StabilizationSeconds:          1.5,
		ReverifyCooldownSeconds:       3,
		LoginCooldownMinutes:          60,
		PushIntervalSeconds:           5,
		PullIntervalSeconds:           60,
		DailyAttendancePushWindowDays: 7,
	}
	if got, want := c.StabilizationDuration(), 1500*time.Millisecond; got != want {
		t.Errorf("StabilizationDuration() = %v, want %v", got, want)
	}
	if got, want := c.ReverifyCooldownDuration(), 3*time.Second; got != want {
		t.Errorf("ReverifyCooldownDuration() = %v, want %v", got, want)
	}
	if got, want := c.LoginCooldownDuration(), time.Hour; got != want {
		t.Errorf("LoginCooldownDuration() = %v, want %v", got, want)
	}
	if got, want := c.PushInterval(), 5*time.Second; got != want {
		t.Errorf("PushInterval() = %v, want %v", got, want)
	}
	if got, want := c.PullInterval(), time.Minute; got != want {
		t.Errorf("PullInterval() = %v, want %v", got, want)
	}
	if got, want := c.DailyAttendancePushWindow(), 7*24*time.Hour; got != want {
		t.Errorf("DailyAttendancePushWindow() = %v, want %v", got, want)
	}
}
