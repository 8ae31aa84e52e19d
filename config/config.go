// ABOUTME: Configuration loader for the storefront gateway
// ABOUTME: Loads settings from environment variables with defaults and validation

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port               string
	CORSAllowedOrigins []string // allowed CORS origins (empty = block all cross-origin)
	CookieSecure       bool     // Set Secure flag on session cookies (default: true)

	// Upstream marketplace API
	UpstreamAPIURL            string
	UpstreamTimeout           time.Duration // per-request timeout (default 15s)
	UpstreamSkipSSLValidation bool          // explicit opt-in for insecure connections
	UpstreamAllProxy          string        // optional ssh+socks5://user@host:port?private-key=...

	// Chat synchronization
	ChatPollInterval time.Duration // upstream poll cadence (default 5s)
	ChatPageSize     int           // history page size (default 30)

	// Caching
	CacheTTL        int // seconds, default for general cache
	CatalogCacheTTL int // seconds, for catalog responses (default 60s)

	// Session persistence
	SessionDBPath string // SQLite file for durable sessions
	SessionTTL    int    // seconds a session may stay idle before cleanup

	// Rate Limiting
	RateLimitEnabled bool // Enable rate limiting (default: true)
	RateLimitAuth    int  // Requests per minute for auth endpoints (default: 5)
	RateLimitWrite   int  // Requests per minute for write endpoints (default: 30)
	RateLimitDefault int  // Requests per minute for all other endpoints (default: 100)
}

func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		CORSAllowedOrigins: getEnvStringList("CORS_ALLOWED_ORIGINS"),
		CookieSecure:       getEnvBool("COOKIE_SECURE", true),

		UpstreamAPIURL:            ensureScheme(os.Getenv("UPSTREAM_API_URL")),
		UpstreamTimeout:           time.Duration(getEnvInt("UPSTREAM_TIMEOUT_SECONDS", 15)) * time.Second,
		UpstreamSkipSSLValidation: getEnvBool("UPSTREAM_SKIP_SSL_VALIDATION", false),
		UpstreamAllProxy:          os.Getenv("UPSTREAM_ALL_PROXY"),

		ChatPollInterval: time.Duration(getEnvInt("CHAT_POLL_INTERVAL_SECONDS", 5)) * time.Second,
		ChatPageSize:     getEnvInt("CHAT_PAGE_SIZE", 30),

		CacheTTL:        getEnvInt("CACHE_TTL", 300),
		CatalogCacheTTL: getEnvInt("CATALOG_CACHE_TTL", 60),

		SessionDBPath: getEnv("SESSION_DB_PATH", "data/sessions.db"),
		SessionTTL:    getEnvInt("SESSION_TTL", 86400),

		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitAuth:    getEnvInt("RATE_LIMIT_AUTH", 5),
		RateLimitWrite:   getEnvInt("RATE_LIMIT_WRITE", 30),
		RateLimitDefault: getEnvInt("RATE_LIMIT_DEFAULT", 100),
	}

	// Validate required fields
	if cfg.UpstreamAPIURL == "" {
		return nil, fmt.Errorf("UPSTREAM_API_URL is required")
	}

	if cfg.ChatPollInterval < time.Second {
		return nil, fmt.Errorf("CHAT_POLL_INTERVAL_SECONDS must be at least 1, got %v", cfg.ChatPollInterval)
	}
	if cfg.ChatPageSize < 1 || cfg.ChatPageSize > 200 {
		return nil, fmt.Errorf("CHAT_PAGE_SIZE must be between 1 and 200, got %d", cfg.ChatPageSize)
	}

	// Validate rate limit values
	for _, rl := range []struct {
		name  string
		value int
	}{
		{"RATE_LIMIT_AUTH", cfg.RateLimitAuth},
		{"RATE_LIMIT_WRITE", cfg.RateLimitWrite},
		{"RATE_LIMIT_DEFAULT", cfg.RateLimitDefault},
	} {
		if rl.value < 1 || rl.value > 10000 {
			return nil, fmt.Errorf("%s must be between 1 and 10000, got %d", rl.name, rl.value)
		}
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvStringList(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// ensureScheme adds https:// prefix if the URL has no scheme
func ensureScheme(url string) string {
	if url == "" {
		return url
	}
	if !strings.Contains(url, "://") {
		return "https://" + url
	}
	return url
}
