package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.Server.Port != "3000" {
		t.Errorf("expected default port 3000, got %q", cfg.Server.Port)
	}
	if cfg.Playback.PollInterval != 500*time.Millisecond {
		t.Errorf("unexpected poll interval %v", cfg.Playback.PollInterval)
	}

	// Each route family gets its own rate-limit bucket.
	limits := map[string]int{
		"play":    cfg.RateLimit.PlayPerMin,
		"fade":    cfg.RateLimit.FadePerMin,
		"control": cfg.RateLimit.ControlPerMin,
		"blend":   cfg.RateLimit.BlendPerMin,
		"radio":   cfg.RateLimit.RadioPerMin,
	}
	for name, limit := range limits {
		if limit <= 0 {
			t.Errorf("%s bucket has no default budget", name)
		}
	}
	if cfg.RateLimit.FadePerMin != 30 {
		t.Errorf("expected fade budget 30, got %d", cfg.RateLimit.FadePerMin)
	}
}
