// Package config loads the interview client configuration from the
// environment. Every knob has an IVK_-prefixed variable and a production
// default; values that cannot be parsed fall back to the default, values
// that parse but cannot work fail validation.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Recovery policies for ambiguous turn signals.
const (
	RecoveryUserTurn = "user_turn"
	RecoveryManual   = "manual"
)

type Config struct {
	// Service connection.
	BaseURL string
	APIKey  string

	// Turn controller.
	AnswerSeconds  int
	TickInterval   time.Duration
	RecoveryPolicy string

	// Microphone capture.
	CaptureSampleRate int
	CaptureChannels   int

	// Spoken prompts and transcription.
	SpeakPrompts       bool
	VoiceID            string
	Language           string
	PlaybackSampleRate int

	// Media uploads.
	UploadChunkSize     int64
	UploadMaxFileSize   int64
	UploadMaxNameLength int
	UploadAllowedMIME   []string

	// Local snapshot persistence.
	SnapshotPath string

	// Observability. An empty MetricsAddr disables the metrics listener.
	MetricsAddr string
	LogLevel    string
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		BaseURL:             envOr("IVK_BASE_URL", "https://api.vetra.ai"),
		APIKey:              strings.TrimSpace(os.Getenv("IVK_API_KEY")),
		AnswerSeconds:       envIntOr("IVK_ANSWER_SECONDS", 120),
		TickInterval:        envDurationOr("IVK_TICK_INTERVAL", time.Second),
		RecoveryPolicy:      envOr("IVK_RECOVERY_POLICY", RecoveryUserTurn),
		CaptureSampleRate:   envIntOr("IVK_CAPTURE_SAMPLE_RATE", 16000),
		CaptureChannels:     envIntOr("IVK_CAPTURE_CHANNELS", 1),
		SpeakPrompts:        envBoolOr("IVK_SPEAK_PROMPTS", true),
		VoiceID:             envOr("IVK_VOICE_ID", ""),
		Language:            envOr("IVK_LANGUAGE", "ko"),
		PlaybackSampleRate:  envIntOr("IVK_PLAYBACK_SAMPLE_RATE", 24000),
		UploadChunkSize:     envInt64Or("IVK_UPLOAD_CHUNK_SIZE", 5<<20),
		UploadMaxFileSize:   envInt64Or("IVK_UPLOAD_MAX_FILE_SIZE", 100<<20),
		UploadMaxNameLength: envIntOr("IVK_UPLOAD_MAX_NAME_LENGTH", 255),
		UploadAllowedMIME:   splitCSV(os.Getenv("IVK_UPLOAD_ALLOWED_MIME")),
		SnapshotPath:        envOr("IVK_SNAPSHOT_PATH", defaultSnapshotPath()),
		MetricsAddr:         envOr("IVK_METRICS_ADDR", ""),
		LogLevel:            strings.ToLower(envOr("IVK_LOG_LEVEL", "info")),
	}

	if strings.TrimSpace(cfg.BaseURL) == "" {
		return Config{}, fmt.Errorf("IVK_BASE_URL must not be empty")
	}
	if cfg.APIKey == "" {
		return Config{}, fmt.Errorf("IVK_API_KEY must be set")
	}
	if cfg.AnswerSeconds <= 0 {
		return Config{}, fmt.Errorf("IVK_ANSWER_SECONDS must be > 0")
	}
	if cfg.TickInterval <= 0 {
		return Config{}, fmt.Errorf("IVK_TICK_INTERVAL must be > 0")
	}
	switch cfg.RecoveryPolicy {
	case RecoveryUserTurn, RecoveryManual:
	default:
		return Config{}, fmt.Errorf("IVK_RECOVERY_POLICY must be one of user_turn|manual")
	}
	if cfg.CaptureSampleRate <= 0 {
		return Config{}, fmt.Errorf("IVK_CAPTURE_SAMPLE_RATE must be > 0")
	}
	if cfg.CaptureChannels < 1 || cfg.CaptureChannels > 2 {
		return Config{}, fmt.Errorf("IVK_CAPTURE_CHANNELS must be 1 or 2")
	}
	if cfg.PlaybackSampleRate <= 0 {
		return Config{}, fmt.Errorf("IVK_PLAYBACK_SAMPLE_RATE must be > 0")
	}
	if cfg.UploadChunkSize <= 0 {
		return Config{}, fmt.Errorf("IVK_UPLOAD_CHUNK_SIZE must be > 0")
	}
	if cfg.UploadMaxFileSize <= 0 {
		return Config{}, fmt.Errorf("IVK_UPLOAD_MAX_FILE_SIZE must be > 0")
	}
	if cfg.UploadChunkSize > cfg.UploadMaxFileSize {
		return Config{}, fmt.Errorf("IVK_UPLOAD_CHUNK_SIZE must be <= IVK_UPLOAD_MAX_FILE_SIZE")
	}
	if cfg.UploadMaxNameLength <= 0 {
		return Config{}, fmt.Errorf("IVK_UPLOAD_MAX_NAME_LENGTH must be > 0")
	}
	if strings.TrimSpace(cfg.SnapshotPath) == "" {
		return Config{}, fmt.Errorf("IVK_SNAPSHOT_PATH must not be empty")
	}
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return Config{}, fmt.Errorf("IVK_LOG_LEVEL must be one of debug|info|warn|error")
	}

	return cfg, nil
}

// SlogLevel maps the configured log level onto slog.
func (c Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaultSnapshotPath() string {
	if dir, err := os.UserCacheDir(); err == nil {
		return filepath.Join(dir, "interviewkit", "session.json")
	}
	return "ivk-session.json"
}

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

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envBoolOr(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	switch strings.ToLower(raw) {
	case "1", "true", "t", "yes", "y", "on":
		return true
	case "0", "false", "f", "no", "n", "off":
		return false
	default:
		return def
	}
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

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
