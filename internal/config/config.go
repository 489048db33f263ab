package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/user/audio-splitter/internal/splitter"
)

type Config struct {
	// Segmentation
	FrameMS     int
	VADMode     int
	VADBackend  string // "webrtc" or "energy"
	SilenceMS   int
	MinChunkSec float64

	// Output
	OutputDir        string
	MaxParallelFiles int

	// STT Backend
	STTBackend string // "none", "vosk" or "deepgram"
	Language   string

	// Vosk settings
	VoskModelPath string

	// Deepgram settings
	DeepgramAPIKey    string
	DeepgramModel     string
	DeepgramPunctuate bool

	MaxParallelSTT int

	// Logging
	LogLevel string
}

// Load reads .env (if present) and the environment. Call Validate after any
// command-line overrides have been applied.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables only")
	}

	cfg := &Config{
		// Segmentation
		FrameMS:     getIntEnvOrDefault("FRAME_MS", 30),
		VADMode:     getIntEnvOrDefault("VAD_MODE", 3),
		VADBackend:  getEnvOrDefault("VAD_BACKEND", "webrtc"),
		SilenceMS:   getIntEnvOrDefault("SILENCE_MS", 1000),
		MinChunkSec: getFloatEnvOrDefault("MIN_CHUNK_SEC", 5.0),

		// Output
		OutputDir:        os.Getenv("OUTPUT_DIR"),
		MaxParallelFiles: getIntEnvOrDefault("MAX_PARALLEL_FILES", 2),

		// STT
		STTBackend: getEnvOrDefault("STT_BACKEND", "none"),
		Language:   getEnvOrDefault("STT_LANGUAGE", "en"),

		// Vosk
		VoskModelPath: getEnvOrDefault("VOSK_MODEL_PATH", "./models/vosk/en"),

		// Deepgram
		DeepgramAPIKey:    os.Getenv("DEEPGRAM_API_KEY"),
		DeepgramModel:     getEnvOrDefault("DEEPGRAM_MODEL", "nova-2"),
		DeepgramPunctuate: getBoolEnvOrDefault("DEEPGRAM_PUNCTUATE", true),

		MaxParallelSTT: getIntEnvOrDefault("MAX_PARALLEL_STT", 4),

		// Logging
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if err := c.SplitOptions().Validate(); err != nil {
		return err
	}

	if c.VADBackend != "webrtc" && c.VADBackend != "energy" {
		return fmt.Errorf("VAD_BACKEND must be 'webrtc' or 'energy'")
	}

	if c.MaxParallelFiles < 1 {
		return fmt.Errorf("MAX_PARALLEL_FILES must be at least 1")
	}

	switch c.STTBackend {
	case "none", "vosk":
	case "deepgram":
		if c.DeepgramAPIKey == "" {
			return fmt.Errorf("DEEPGRAM_API_KEY is required when using deepgram backend")
		}
	default:
		return fmt.Errorf("STT_BACKEND must be 'none', 'vosk' or 'deepgram'")
	}

	if c.MaxParallelSTT < 1 {
		return fmt.Errorf("MAX_PARALLEL_STT must be at least 1")
	}

	return nil
}

// SplitOptions returns the segmentation settings.
func (c *Config) SplitOptions() splitter.Options {
	return splitter.Options{
		FrameMS:     c.FrameMS,
		VADMode:     c.VADMode,
		SilenceMS:   c.SilenceMS,
		MinChunkSec: c.MinChunkSec,
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-integer value")
	}
	return defaultValue
}

func getFloatEnvOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Ignoring non-numeric value")
	}
	return defaultValue
}

func getBoolEnvOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
