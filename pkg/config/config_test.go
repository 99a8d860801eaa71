package config

import (
	"testing"
	"time"
)

func TestLoadFromEnvDefaults(t *testing.T) {
	t.Setenv("CODEDRILL_API_KEY", "k")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LiveModel != "gemini-2.0-flash-exp" {
		t.Errorf("LiveModel = %q", cfg.LiveModel)
	}
	if cfg.CaptureBlockSize != 4096 {
		t.Errorf("CaptureBlockSize = %d", cfg.CaptureBlockSize)
	}
	if cfg.ScreenInterval != 500*time.Millisecond {
		t.Errorf("ScreenInterval = %v", cfg.ScreenInterval)
	}
	if cfg.ScreenMaxWidth != 1280 || cfg.ScreenJPEGQuality != 50 {
		t.Errorf("screen defaults = %d, %d", cfg.ScreenMaxWidth, cfg.ScreenJPEGQuality)
	}
}

func TestLoadFromEnvFallbackKey(t *testing.T) {
	t.Setenv("CODEDRILL_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "fallback")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.APIKey != "fallback" {
		t.Errorf("APIKey = %q, want fallback", cfg.APIKey)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("CODEDRILL_SCREEN_INTERVAL", "2s")
	t.Setenv("CODEDRILL_SCREEN_MAX_WIDTH", "800")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ScreenInterval != 2*time.Second {
		t.Errorf("ScreenInterval = %v", cfg.ScreenInterval)
	}
	if cfg.ScreenMaxWidth != 800 {
		t.Errorf("ScreenMaxWidth = %d", cfg.ScreenMaxWidth)
	}
}

func TestLoadFromEnvValidation(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"zero block size", "CODEDRILL_CAPTURE_BLOCK_SIZE", "0"},
		{"zero width", "CODEDRILL_SCREEN_MAX_WIDTH", "0"},
		{"quality too high", "CODEDRILL_SCREEN_JPEG_QUALITY", "101"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			if _, err := LoadFromEnv(); err == nil {
				t.Errorf("%s=%s was accepted", tt.key, tt.value)
			}
		})
	}
}

func TestEnvHelpersIgnoreGarbage(t *testing.T) {
	t.Setenv("CODEDRILL_CAPTURE_BLOCK_SIZE", "not-a-number")
	t.Setenv("CODEDRILL_SCREEN_INTERVAL", "soon")
	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.CaptureBlockSize != 4096 {
		t.Errorf("garbage int did not fall back: %d", cfg.CaptureBlockSize)
	}
	if cfg.ScreenInterval != 500*time.Millisecond {
		t.Errorf("garbage duration did not fall back: %v", cfg.ScreenInterval)
	}
}
