// Package config loads the terminal client settings from .env, the
// environment and command-line flags, in increasing precedence.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

const (
	InputMiniaudio = "miniaudio"
	InputPortaudio = "portaudio"

	defaultServerURL = "http://localhost:8000"
)

type Config struct {
	ServerURL          string
	SessionID          string
	InputBackend       string
	PlaybackSampleRate int
	ConstrainedDevice  bool
	TextOnly           bool
	ClipDir            string
	PrintSchema        bool
}

// Load reads .env when present and parses args (without the program name)
// on top of the environment.
func Load(args []string) (Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env file", "error", err)
	}
	return parse(args)
}

func parse(args []string) (Config, error) {
	var cfg Config

	sampleRate, err := envInt("EMA_PLAYBACK_SAMPLE_RATE", 0)
	if err != nil {
		return Config{}, err
	}
	constrained, err := envBool("EMA_CONSTRAINED_DEVICE", false)
	if err != nil {
		return Config{}, err
	}
	textOnly, err := envBool("EMA_TEXT_ONLY", false)
	if err != nil {
		return Config{}, err
	}

	flags := flag.NewFlagSet("ema-voice", flag.ContinueOnError)
	flags.StringVar(&cfg.ServerURL, "server", getEnv("EMA_SERVER_URL", defaultServerURL), "voice backend base URL")
	flags.StringVar(&cfg.SessionID, "session", os.Getenv("EMA_SESSION_ID"), "conversation session id (random when empty)")
	flags.StringVar(&cfg.InputBackend, "input", getEnv("EMA_INPUT_BACKEND", InputMiniaudio), "microphone backend: miniaudio or portaudio")
	flags.IntVar(&cfg.PlaybackSampleRate, "playback-rate", sampleRate, "speaker sample rate (0 uses the device default)")
	flags.BoolVar(&cfg.ConstrainedDevice, "constrained", constrained, "use a wider scheduling margin for underrun-prone devices")
	flags.BoolVar(&cfg.TextOnly, "text-only", textOnly, "do not speak typed answers")
	flags.StringVar(&cfg.ClipDir, "clip-dir", getEnv("EMA_CLIP_DIR", "."), "directory saved clips are written to")
	flags.BoolVar(&cfg.PrintSchema, "schema", false, "print the inbound event schema and exit")
	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.ServerURL = strings.TrimRight(cfg.ServerURL, "/")
	if cfg.SessionID == "" {
		cfg.SessionID = uuid.NewString()
	}
	switch cfg.InputBackend {
	case InputMiniaudio, InputPortaudio:
	default:
		return Config{}, fmt.Errorf("unknown input backend %q", cfg.InputBackend)
	}
	if cfg.PlaybackSampleRate < 0 {
		return Config{}, fmt.Errorf("invalid playback sample rate %d", cfg.PlaybackSampleRate)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(key string, defaultValue int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}

func envBool(key string, defaultValue bool) (bool, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return parsed, nil
}
