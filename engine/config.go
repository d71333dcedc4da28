package engine

import (
	"crypto/tls"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// Config carries everything needed to run the engine for a session.
type Config struct {
	// APIBaseURL is the remote board store.
	APIBaseURL string
	// RedisConnectionString reaches the realtime feed.
	RedisConnectionString string
	// EventsChannel is the pub/sub channel carrying change events.
	EventsChannel string
	// Debounce is the reconciler's coalescing window.
	Debounce time.Duration
	// ReturnStage receives rejected tasks.
	ReturnStage string
}

// FromEnv builds a Config from the environment.
func FromEnv() (Config, error) {
	cfg := Config{
		APIBaseURL:            os.Getenv("BOARD_API_URL"),
		RedisConnectionString: os.Getenv("REDIS_CONNECTION_STRING"),
		EventsChannel:         envString("BOARD_EVENTS_CHANNEL", "board:events"),
		Debounce:              250 * time.Millisecond,
		ReturnStage:           envString("BOARD_RETURN_STAGE", "todo"),
	}
	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("missing BOARD_API_URL")
	}
	if cfg.RedisConnectionString == "" {
		return Config{}, fmt.Errorf("missing REDIS_CONNECTION_STRING")
	}
	if v := os.Getenv("BOARD_RECONCILE_DEBOUNCE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return Config{}, fmt.Errorf("invalid BOARD_RECONCILE_DEBOUNCE: %v", err)
		}
		cfg.Debounce = d
	}
	return cfg, nil
}

// RedisOptions parses the connection string, accepting both redis URLs and
// the comma-separated "host,password=...,ssl=true" form some providers emit.
func (c Config) RedisOptions() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.RedisConnectionString)
	if err == nil {
		return opts, nil
	}
	parts := strings.Split(c.RedisConnectionString, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts, nil
}

func envString(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
