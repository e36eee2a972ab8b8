package ratelimit

import (
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Defaults for the general API limit: 100 requests per client every 15 minutes.
const (
	DefaultLimit  = 100
	DefaultWindow = 15 * time.Minute
)

// Defaults for the login endpoints: 5 attempts per client every 15 minutes.
const (
	DefaultAuthLimit  = 5
	DefaultAuthWindow = 15 * time.Minute
)

// EndpointConfig is the limit for one route. Routes with the same Group share a bucket.
type EndpointConfig struct {
	Path   string // exact path, or a prefix when it ends with "/"
	Method string
	Group  string
	Limit  int
	Window time.Duration
	Burst  int // bucket capacity; Limit when zero
}

func (e *EndpointConfig) key() string {
	if e.Group != "" {
		return e.Group
	}
	return e.Method + " " + e.Path
}

// LoadConfig reads the RATE_LIMIT_* environment variables.
func LoadConfig() *Config {
	if !getEnvBool("RATE_LIMIT_ENABLED", true) {
		return &Config{Enabled: false}
	}

	authLimit := getEnvInt("RATE_LIMIT_AUTH_LIMIT", DefaultAuthLimit)
	authWindow := getEnvDuration("RATE_LIMIT_AUTH_WINDOW", DefaultAuthWindow)

	return &Config{
		Enabled:         true,
		DefaultLimit:    getEnvInt("RATE_LIMIT_DEFAULT_LIMIT", DefaultLimit),
		DefaultWindow:   getEnvDuration("RATE_LIMIT_DEFAULT_WINDOW", DefaultWindow),
		CleanupInterval: getEnvDuration("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		IdleTTL:         getEnvDuration("RATE_LIMIT_IDLE_TTL", time.Hour),
		Whitelist:       parseIPList(getEnvString("RATE_LIMIT_WHITELIST", "")),
		Blacklist:       parseIPList(getEnvString("RATE_LIMIT_BLACKLIST", "")),
		EndpointConfigs: DefaultEndpointConfigs(authLimit, authWindow),
	}
}

// DefaultEndpointConfigs returns the per-route limits. Reads and anything
// unlisted fall through to the general limit; /health is never limited.
func DefaultEndpointConfigs(authLimit int, authWindow time.Duration) []EndpointConfig {
	auth := func(path string) EndpointConfig {
		return EndpointConfig{Path: path, Method: http.MethodPost, Group: "auth", Limit: authLimit, Window: authWindow}
	}
	write := func(path, method string) EndpointConfig {
		return EndpointConfig{Path: path, Method: method, Group: "write", Limit: 60, Window: time.Minute, Burst: 10}
	}
	heavy := func(path string) EndpointConfig {
		return EndpointConfig{Path: path, Method: http.MethodPost, Group: "heavy", Limit: 10, Window: time.Minute, Burst: 3}
	}

	return []EndpointConfig{
		auth("/api/auth/send-otp"),
		auth("/api/auth/verify-otp"),

		// whole-table passes
		heavy("/api/leads/duplicates/scan"),
		heavy("/api/leads/rescore"),
		{Path: "/api/leads/export", Method: http.MethodGet, Group: "heavy", Limit: 10, Window: time.Minute, Burst: 3},

		write("/api/leads", http.MethodPost),
		write("/api/leads/", http.MethodPost),
		write("/api/leads/", http.MethodPut),
		write("/api/leads/", http.MethodDelete),
		write("/api/campaigns", http.MethodPost),
		write("/api/campaigns/", http.MethodPost),
		write("/api/campaigns/", http.MethodPut),
		write("/api/campaigns/", http.MethodDelete),
		write("/api/auth/profile", http.MethodPut),
	}
}

func getEnvString(key string, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvDuration accepts a Go duration ("15m") or a bare number of seconds.
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(value); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

// parseIPList parses a comma-separated list of client addresses into a set.
func parseIPList(list string) map[string]bool {
	result := make(map[string]bool)
	for _, ip := range strings.Split(list, ",") {
		if ip = strings.TrimSpace(ip); ip != "" {
			result[ip] = true
		}
	}
	return result
}
