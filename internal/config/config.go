package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const appName = "hundred"

type Config struct {
	DBPath            string        `env:"HUNDRED_DB_PATH"`
	LogPath           string        `env:"HUNDRED_LOG_PATH"`
	OpenAIAPIKey      string        `env:"OPENAI_API_KEY"`
	OpenAIBaseURL     string        `env:"HUNDRED_OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1/"`
	WhisperModel      string        `env:"HUNDRED_WHISPER_MODEL" envDefault:"whisper-1"`
	TranscribeTimeout time.Duration `env:"HUNDRED_TRANSCRIBE_TIMEOUT" envDefault:"30s"`
	RecognizerCmd     string        `env:"HUNDRED_RECOGNIZER_CMD"`
	RestartDelay      time.Duration `env:"HUNDRED_RESTART_DELAY" envDefault:"750ms"`
	GitHubRepo        string        `env:"HUNDRED_GITHUB_REPO" envDefault:"sadopc/hundred"`
	CheckUpdates      bool          `env:"HUNDRED_CHECK_UPDATES" envDefault:"true"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads an optional .env file from the working directory, then the
// environment, then fills in default paths.
func Load() (Config, error) {
	if err := LoadDotEnv(".env"); err != nil {
		return Config{}, err
	}
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.DBPath == "" {
		p, err := DefaultDBPath()
		if err != nil {
			return Config{}, err
		}
		cfg.DBPath = p
	}
	if cfg.LogPath == "" {
		cfg.LogPath = filepath.Join(filepath.Dir(cfg.DBPath), appName+".log")
	}
	return cfg, nil
}

// LoadDotEnv loads path into the environment. A missing file is not an error;
// variables already set win.
func LoadDotEnv(path string) error {
	err := godotenv.Load(path)
	if err == nil || errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("load %s: %w", path, err)
}

// DefaultDBPath returns ~/.config/hundred/hundred.db
func DefaultDBPath() (string, error) {
	cfg, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(cfg, appName, appName+".db"), nil
}

// OpenLog opens the append-only log file. The terminal belongs to the TUI,
// so nothing is logged to stderr.
func OpenLog(path string) (*log.Logger, func() error, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log: %w", err)
	}
	return log.New(f, appName+" ", log.LstdFlags), f.Close, nil
}
