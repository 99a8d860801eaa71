// Package config loads CodeDrill settings from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application settings.
type Config struct {
	// APIKey authenticates against the Gemini API. Required.
	APIKey string

	// LiveModel is the realtime conversation model.
	LiveModel string

	// TextModel is the model for challenge generation, review, and grading.
	TextModel string

	// ImageModel is the model for whiteboard image editing.
	ImageModel string

	// Voice is the prebuilt voice for spoken responses.
	Voice string

	// System is the coaching system instruction for the live session.
	System string

	// CaptureBlockSize is the number of microphone samples per outbound frame.
	CaptureBlockSize int

	// ScreenInterval is how often a screen frame is captured while sharing.
	ScreenInterval time.Duration

	// ScreenMaxWidth bounds the encoded screen frame width in pixels.
	ScreenMaxWidth int

	// ScreenJPEGQuality is the screen frame encoder quality, 1-100.
	ScreenJPEGQuality int

	// DatabaseURL, when set, switches scratch storage from memory to Postgres.
	DatabaseURL string
}

// LoadFromEnv reads Config from CODEDRILL_* variables (API key also falls
// back to GEMINI_API_KEY).
func LoadFromEnv() (Config, error) {
	cfg := Config{
		APIKey:            envOr("CODEDRILL_API_KEY", os.Getenv("GEMINI_API_KEY")),
		LiveModel:         envOr("CODEDRILL_LIVE_MODEL", "gemini-2.0-flash-exp"),
		TextModel:         envOr("CODEDRILL_TEXT_MODEL", "gemini-2.0-flash"),
		ImageModel:        envOr("CODEDRILL_IMAGE_MODEL", "gemini-2.0-flash-exp"),
		Voice:             envOr("CODEDRILL_VOICE", "Puck"),
		System:            envOr("CODEDRILL_SYSTEM", defaultSystem),
		CaptureBlockSize:  envIntOr("CODEDRILL_CAPTURE_BLOCK_SIZE", 4096),
		ScreenInterval:    envDurationOr("CODEDRILL_SCREEN_INTERVAL", 500*time.Millisecond),
		ScreenMaxWidth:    envIntOr("CODEDRILL_SCREEN_MAX_WIDTH", 1280),
		ScreenJPEGQuality: envIntOr("CODEDRILL_SCREEN_JPEG_QUALITY", 50),
		DatabaseURL:       envOr("CODEDRILL_DATABASE_URL", ""),
	}

	if cfg.CaptureBlockSize <= 0 {
		return Config{}, fmt.Errorf("CODEDRILL_CAPTURE_BLOCK_SIZE must be > 0")
	}
	if cfg.ScreenInterval <= 0 {
		return Config{}, fmt.Errorf("CODEDRILL_SCREEN_INTERVAL must be > 0")
	}
	if cfg.ScreenMaxWidth <= 0 {
		return Config{}, fmt.Errorf("CODEDRILL_SCREEN_MAX_WIDTH must be > 0")
	}
	if cfg.ScreenJPEGQuality < 1 || cfg.ScreenJPEGQuality > 100 {
		return Config{}, fmt.Errorf("CODEDRILL_SCREEN_JPEG_QUALITY must be in 1..100")
	}

	return cfg, nil
}

const defaultSystem = "You are an encouraging coding interview coach. " +
	"Keep spoken answers short. When the user shares their screen, refer to " +
	"the code you can see."

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
