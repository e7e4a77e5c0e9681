package types

import "time"

// BackendConfig describes where the assistant backend lives
type BackendConfig struct {
	URL            string        `yaml:"url" env:"VOICEASSIST_BACKEND_URL"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"VOICEASSIST_REQUEST_TIMEOUT"`
}

// RecordingConfig holds microphone recording settings
type RecordingConfig struct {
	MaxSeconds   int    `yaml:"max_seconds" env:"VOICEASSIST_MAX_RECORDING_SECONDS"`
	UploadFormat string `yaml:"upload_format" env:"VOICEASSIST_UPLOAD_FORMAT"` // "wav" or "ogg"
	KeepFiles    bool   `yaml:"keep_files" env:"VOICEASSIST_KEEP_RECORDINGS"`
}

// PlaybackConfig controls what happens with audio replies
type PlaybackConfig struct {
	Autoplay *bool  `yaml:"autoplay" env:"VOICEASSIST_AUTOPLAY"`
	Player   string `yaml:"player"` // preferred player binary, tried before the fallbacks
}

// NotificationConfig controls desktop notifications and beeps
type NotificationConfig struct {
	Disabled bool `yaml:"disabled" env:"VOICEASSIST_NO_NOTIFY"`
	Sounds   bool `yaml:"sounds"`
}

// KeyBinding is a global key combination
type KeyBinding struct {
	Key   string `yaml:"key"`
	Ctrl  bool   `yaml:"ctrl"`
	Shift bool   `yaml:"shift"`
	Alt   bool   `yaml:"alt"`
	Super bool   `yaml:"super"`
}

type Config struct {
	Backend      BackendConfig      `yaml:"backend"`
	Recording    RecordingConfig    `yaml:"recording"`
	Playback     PlaybackConfig     `yaml:"playback"`
	Notification NotificationConfig `yaml:"notification"`
	// Hotkey toggles recording from anywhere; disabled when Key is empty
	Hotkey KeyBinding `yaml:"hotkey"`
	// DefaultCharacter is selected at startup instead of the first catalog entry when set
	DefaultCharacter string `yaml:"default_character" env:"VOICEASSIST_CHARACTER"`
}

const (
	DefaultBackendURL     = "http://127.0.0.1:5000"
	DefaultRequestTimeout = 60 * time.Second
	DefaultMaxSeconds     = 60
	UploadFormatWAV       = "wav"
	UploadFormatOgg       = "ogg"
)

// GetBackendConfig returns backend configuration with defaults
func (c *Config) GetBackendConfig() BackendConfig {
	config := c.Backend
	if config.URL == "" {
		config.URL = DefaultBackendURL
	}
	if config.RequestTimeout <= 0 {
		config.RequestTimeout = DefaultRequestTimeout
	}
	return config
}

// GetRecordingConfig returns recording configuration with defaults
func (c *Config) GetRecordingConfig() RecordingConfig {
	config := c.Recording
	if config.MaxSeconds <= 0 {
		config.MaxSeconds = DefaultMaxSeconds
	}
	if config.UploadFormat != UploadFormatOgg {
		config.UploadFormat = UploadFormatWAV
	}
	return config
}

// MaxRecordingDuration is the auto-stop limit for a recording session
func (c *Config) MaxRecordingDuration() time.Duration {
	return time.Duration(c.GetRecordingConfig().MaxSeconds) * time.Second
}

// AutoplayEnabled reports whether audio replies are played automatically (default on)
func (c *Config) AutoplayEnabled() bool {
	if c.Playback.Autoplay == nil {
		return true
	}
	return *c.Playback.Autoplay
}
