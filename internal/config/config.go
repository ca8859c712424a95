package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

type Config struct {
	// Server
	Port        string
	Environment string
	LogLevel    string

	// Backend
	BackendURL     string
	BackendTimeout time.Duration

	// Media
	MediaUploadURL    string
	MediaFolder       string
	MediaHostPatterns []string
	MaxUploadSize     int64

	// Redis
	EnableRedis bool
	RedisURL    string

	// Cache
	EnableCache  bool
	PageCacheTTL time.Duration

	// Admin sessions
	SessionTTL      time.Duration
	OTPCooldownSecs int

	// CORS
	CORSOrigins []string

	// Rate Limiting
	RateLimitRequests      int
	RateLimitWindow        int
	RateLimitBurst         int
	LoginRateLimitRequests int

	// Features
	EnableMetrics bool
	EnableEmail   bool

	// Email
	ResendAPIKey       string
	EmailFrom          string
	ContactNotifyEmail string

	// Site
	SiteName         string
	TemplatesDir     string
	PageDefaultsFile string
}

func New() *Config {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		BackendURL:     getEnv("BACKEND_URL", "http://localhost:5000/api"),
		BackendTimeout: time.Duration(getEnvAsInt("BACKEND_TIMEOUT_SECONDS", 15)) * time.Second,

		MediaUploadURL:    getEnv("MEDIA_UPLOAD_URL", ""),
		MediaFolder:       getEnv("MEDIA_FOLDER", "firmsite"),
		MediaHostPatterns: getEnvAsList("MEDIA_HOST_PATTERNS", nil),
		MaxUploadSize:     int64(getEnvAsInt("MAX_UPLOAD_SIZE", 5*1024*1024)),

		EnableRedis: getEnvAsBool("ENABLE_REDIS", false),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),

		EnableCache:  getEnvAsBool("ENABLE_CACHE", true),
		PageCacheTTL: time.Duration(getEnvAsInt("PAGE_CACHE_TTL_SECONDS", 300)) * time.Second,

		SessionTTL:      time.Duration(getEnvAsInt("SESSION_TTL_MINUTES", 12*60)) * time.Minute,
		OTPCooldownSecs: getEnvAsInt("OTP_COOLDOWN_SECONDS", 60),

		CORSOrigins: getEnvAsList("CORS_ORIGINS", []string{"http://localhost:3000", "http://localhost:8080"}),

		RateLimitRequests:      getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:        getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		RateLimitBurst:         getEnvAsInt("RATE_LIMIT_BURST", 20),
		LoginRateLimitRequests: getEnvAsInt("LOGIN_RATE_LIMIT_REQUESTS", 10),

		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
		EnableEmail:   getEnvAsBool("ENABLE_EMAIL", false),

		ResendAPIKey:       getEnv("RESEND_API_KEY", ""),
		EmailFrom:          getEnv("EMAIL_FROM", "noreply@firmsite.local"),
		ContactNotifyEmail: getEnv("CONTACT_NOTIFY_EMAIL", ""),

		SiteName:         getEnv("SITE_NAME", "Firmsite"),
		TemplatesDir:     getEnv("TEMPLATES_DIR", "./templates"),
		PageDefaultsFile: getEnv("PAGE_DEFAULTS_FILE", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// EmailConfigured reports whether contact notifications can be sent.
func (c *Config) EmailConfigured() bool {
	return c.EnableEmail && c.ResendAPIKey != "" && c.ContactNotifyEmail != ""
}
