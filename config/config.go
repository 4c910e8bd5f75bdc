// Package config loads process settings from the environment.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultUserAgent is sent to upstream sources unless USER_AGENT overrides it.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

// Config holds every recognized setting.
type Config struct {
	Port       int
	CORSOrigin string
	Debug      bool

	RequestTimeout time.Duration
	// MaxRetries is the proxy's retry count after the first attempt.
	MaxRetries     int
	UserAgent      string

	BlockedHosts      []string
	BlockedIPPrefixes []string
	FilteredHeaders   []string

	RateLimitWindow      time.Duration
	RateLimitMaxRequests int

	HealthCheckInterval  time.Duration
	CacheCleanupInterval time.Duration

	SourcesFile string

	LogFile       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
}

// Load reads an optional .env file and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[config] failed to read .env: %v", err)
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from any key lookup, falling back to defaults for
// missing or malformed values.
func FromLookup(lookup func(string) (string, bool)) Config {
	r := reader{lookup: lookup}
	return Config{
		Port:       r.int("PORT", 8080),
		CORSOrigin: r.str("CORS_ORIGIN", "*"),
		Debug:      r.str("DEBUG", "false") == "true",

		RequestTimeout: time.Duration(r.int("REQUEST_TIMEOUT", 10000)) * time.Millisecond,
		MaxRetries:     r.int("MAX_RETRIES", 3),
		UserAgent:      r.str("USER_AGENT", DefaultUserAgent),

		BlockedHosts:      r.list("BLOCKED_HOSTS", "localhost,127.0.0.1,0.0.0.0,::1"),
		BlockedIPPrefixes: r.list("BLOCKED_IP_PREFIXES", "192.168.,10.,172."),
		FilteredHeaders:   r.list("FILTERED_HEADERS", "content-security-policy,cookie,set-cookie,x-frame-options,access-control-allow-origin"),

		RateLimitWindow:      time.Duration(r.int("RATE_LIMIT_WINDOW_MS", 900000)) * time.Millisecond,
		RateLimitMaxRequests: r.int("RATE_LIMIT_MAX_REQUESTS", 100),

		HealthCheckInterval:  r.duration("HEALTH_CHECK_INTERVAL", 10*time.Minute),
		CacheCleanupInterval: r.duration("CACHE_CLEANUP_INTERVAL", 30*time.Minute),

		SourcesFile: r.str("SOURCES_FILE", ""),

		LogFile:       r.str("LOG_FILE", ""),
		LogMaxSizeMB:  r.int("LOG_MAX_SIZE_MB", 50),
		LogMaxBackups: r.int("LOG_MAX_BACKUPS", 3),
		LogMaxAgeDays: r.int("LOG_MAX_AGE_DAYS", 14),
	}
}

type reader struct {
	lookup func(string) (string, bool)
}

func (r reader) str(key, def string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return def
}

func (r reader) int(key string, def int) int {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		log.Printf("[config] invalid %s=%q, using %d", key, raw, def)
		return def
	}
	return n
}

func (r reader) duration(key string, def time.Duration) time.Duration {
	raw := r.str(key, "")
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		log.Printf("[config] invalid %s=%q, using %s", key, raw, def)
		return def
	}
	return d
}

func (r reader) list(key, def string) []string {
	var out []string
	for _, item := range strings.Split(r.str(key, def), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
