package live

import "time"

// SessionState represents the current lifecycle state of a live session.
type SessionState int

const (
	// StateIdle is the resting state with no resources held.
	StateIdle SessionState = iota
	// StateConnecting is the transient state while preconditions are checked,
	// devices opened, and the transport handshake completed.
	StateConnecting
	// StateConnected is the fully operational streaming state.
	StateConnected
	// StateError is a terminal-until-reconnect state carrying a classified error.
	StateError
)

// String returns a human-readable state name.
func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateConnecting:
		return "CONNECTING"
	case StateConnected:
		return "CONNECTED"
	case StateError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// SessionConfig holds all configuration for a live session.
type SessionConfig struct {
	// Model is the realtime model to converse with.
	Model string `json:"model"`

	// Voice is the prebuilt voice name for audio responses.
	Voice string `json:"voice,omitempty"`

	// System is the system instruction for the agent.
	System string `json:"system,omitempty"`

	// APIKey authenticates the transport handshake.
	APIKey string `json:"-"`

	// Capture configures the microphone pipeline.
	Capture CaptureConfig `json:"capture"`

	// Playback configures the speaker pipeline.
	Playback AudioConfig `json:"playback"`

	// Screen configures the display-sharing pipeline.
	Screen ScreenConfig `json:"screen"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:    "gemini-2.0-flash-exp",
		Voice:    "Puck",
		Capture:  DefaultCaptureConfig(),
		Playback: DefaultPlaybackConfig(),
		Screen:   DefaultScreenConfig(),
	}
}

// CaptureConfig configures the microphone pipeline.
type CaptureConfig struct {
	// Audio is the capture-side sample format.
	Audio AudioConfig `json:"audio"`

	// BlockSize is the number of samples accumulated before a frame is
	// encoded and sent. At 16 kHz, 4096 samples is 256 ms of speech.
	BlockSize int `json:"block_size"`
}

// DefaultCaptureConfig returns a CaptureConfig with sensible defaults.
func DefaultCaptureConfig() CaptureConfig {
	return CaptureConfig{
		Audio: AudioConfig{
			SampleRate:    16000,
			Channels:      1,
			BitsPerSample: 16,
		},
		BlockSize: 4096,
	}
}

// DefaultPlaybackConfig returns the speaker-side sample format.
func DefaultPlaybackConfig() AudioConfig {
	return AudioConfig{
		SampleRate:    24000,
		Channels:      1,
		BitsPerSample: 16,
	}
}

// ScreenConfig configures periodic display capture.
type ScreenConfig struct {
	// Interval is how often a frame is grabbed and sent.
	Interval time.Duration `json:"interval"`

	// MaxWidth bounds the encoded frame width. Frames wider than this are
	// downscaled preserving aspect ratio. Narrower frames are never upscaled.
	MaxWidth int `json:"max_width"`

	// JPEGQuality is the encoder quality, 1-100.
	JPEGQuality int `json:"jpeg_quality"`
}

// DefaultScreenConfig returns a ScreenConfig with sensible defaults.
func DefaultScreenConfig() ScreenConfig {
	return ScreenConfig{
		Interval:    500 * time.Millisecond,
		MaxWidth:    1280,
		JPEGQuality: 50,
	}
}

// AudioConfig specifies audio format parameters.
type AudioConfig struct {
	// SampleRate in Hz. Common values: 16000, 24000, 44100, 48000.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int `json:"bits_per_sample"`
}

// BytesPerSecond returns the audio byte rate.
func (c AudioConfig) BytesPerSecond() int {
	return c.SampleRate * c.Channels * (c.BitsPerSample / 8)
}

// DurationMs returns the duration in milliseconds for the given byte count.
func (c AudioConfig) DurationMs(bytes int) int {
	if c.BytesPerSecond() == 0 {
		return 0
	}
	return (bytes * 1000) / c.BytesPerSecond()
}

// BytesForDurationMs returns the byte count for the given duration in milliseconds.
func (c AudioConfig) BytesForDurationMs(ms int) int {
	return (c.BytesPerSecond() * ms) / 1000
}

// SamplesDuration returns the wall-clock duration of n samples at this rate.
func (c AudioConfig) SamplesDuration(n int) time.Duration {
	if c.SampleRate == 0 {
		return 0
	}
	return time.Duration(n) * time.Second / time.Duration(c.SampleRate)
}
