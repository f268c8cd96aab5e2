package config

import (
	"os"
	"strconv"
	"time"
)

const (
	CacheBackendNone   = "none"
	CacheBackendRedis  = "redis"
	CacheBackendMemory = "memory"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string
	CORSOrigins string
	TablePrefix string
	LogDir      string
	// Auth
	AuthMode string // "jwt" or "header"; header mode is refused in prod
	JWKSURL  string
	// Claim holding the tenant id; app_metadata.<claim> is tried as a fallback
	TenantClaim string
	// Subtree cache: "none", "redis" or "memory". The memory backend is
	// per process and only safe with a single server instance.
	CacheBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	// Debug flags
	Debug bool
}

func Load() *Config {
	env := getEnv("ENVIRONMENT", "dev")

	return &Config{
		Port:          getEnv("PORT", "8080"),
		Environment:   env,
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		CORSOrigins:   getEnv("CORS_ORIGINS", "http://localhost:3000"),
		TablePrefix:   getTablePrefix(env),
		LogDir:        getEnv("LOG_DIR", ""),
		AuthMode:      getEnv("AUTH_MODE", getDefaultAuthMode(env)),
		JWKSURL:       getEnv("JWKS_URL", ""),
		TenantClaim:   getEnv("JWT_TENANT_CLAIM", "tenant_id"),
		CacheBackend:  getEnv("CACHE_BACKEND", getDefaultCacheBackend()),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		CacheTTL:      getEnvDuration("CACHE_TTL", 5*time.Minute),
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// HeaderAuthAllowed reports whether tenants may be taken from the X-Tenant-ID header.
func (c *Config) HeaderAuthAllowed() bool {
	return c.AuthMode == "header" && c.Environment != "prod"
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true"
}

func getDefaultAuthMode(env string) string {
	if env == "dev" || env == "test" {
		return "header"
	}
	return "jwt"
}

// getDefaultCacheBackend enables Redis when an address is configured and
// leaves caching off otherwise.
func getDefaultCacheBackend() string {
	if os.Getenv("REDIS_ADDR") != "" {
		return CacheBackendRedis
	}
	return CacheBackendNone
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
