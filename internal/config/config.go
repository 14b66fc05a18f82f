package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	APIBaseURL     string
	WSBaseURL      string
	RequestTimeout time.Duration
	PollInterval   time.Duration
	GateInterval   time.Duration
	TypingDecay    time.Duration
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		APIBaseURL:     getEnv("UNIVERSE_API_URL", "http://localhost:8000"),
		WSBaseURL:      getEnv("UNIVERSE_WS_URL", "ws://localhost:8000"),
		RequestTimeout: getDuration("UNIVERSE_REQUEST_TIMEOUT", 30*time.Second),
		PollInterval:   getDuration("UNIVERSE_POLL_INTERVAL", 5*time.Second),
		GateInterval:   getDuration("UNIVERSE_GATE_INTERVAL", 5*time.Second),
		TypingDecay:    getDuration("UNIVERSE_TYPING_DECAY", 2*time.Second),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	val, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}

	return d
}
