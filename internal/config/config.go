// Package config loads client settings from the environment, with an
// optional .env file for development.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv string

	// ServerURL is the REST base (http://host:port). WSURL is the push
	// channel endpoint; when unset it is derived from ServerURL.
	ServerURL string
	WSURL     string

	DBPath   string
	LogFile  string
	LogLevel string

	HTTPTimeout    time.Duration
	ReconnectDelay time.Duration
}

// Load reads configuration from the environment. A .env in the working
// directory is merged in when present.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppEnv:         getenv("APP_ENV", "dev"),
		ServerURL:      getenv("TICKWATCH_SERVER_URL", "http://localhost:8000"),
		WSURL:          getenv("TICKWATCH_WS_URL", ""),
		DBPath:         getenv("TICKWATCH_DB", ""),
		LogFile:        getenv("TICKWATCH_LOG_FILE", ""),
		LogLevel:       getenv("TICKWATCH_LOG_LEVEL", "info"),
		HTTPTimeout:    dur("TICKWATCH_HTTP_TIMEOUT", 15*time.Second),
		ReconnectDelay: dur("TICKWATCH_RECONNECT_DELAY", 3*time.Second),
	}
	if cfg.WSURL == "" {
		cfg.WSURL = deriveWSURL(cfg.ServerURL)
	}
	return cfg
}

// deriveWSURL turns the REST base into the /ws endpoint.
func deriveWSURL(serverURL string) string {
	u := strings.TrimRight(serverURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/ws"
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func dur(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
