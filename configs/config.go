package config

import (
	"os"
	"strconv"
	"time"
)

type R2 struct {
	AccountID  string
	AccessKey  string
	SecretKey  string
	BucketName string
	PublicURL  string
}

// Publishing holds the retry and scheduling policy.
type Publishing struct {
	RetryEnabled      bool
	MaxRetryAttempts  int
	RetryBaseDelay    time.Duration
	StuckPostMaxAge   time.Duration
	DefaultVisibility string
}

type Analytics struct {
	SyncDelay     time.Duration
	BatchSize     int
	RetentionDays int
	PaceDelay     time.Duration
}

type Config struct {
	LinkedInClientID     string
	LinkedInClientSecret string
	LinkedInRedirectURI  string
	LoginRedirectURI     string
	PostgresURI          string
	RedisURI             string
	FrontendURL          string
	R2                   R2
	Publishing           Publishing
	Analytics            Analytics
	SecretKey            string
	CookieName           string
}

func LoadConfig() *Config {
	return &Config{
		LinkedInClientID:     getEnv("LINKEDIN_CLIENT_ID", ""),
		LinkedInClientSecret: getEnv("LINKEDIN_CLIENT_SECRET", ""),
		LinkedInRedirectURI:  getEnv("LINKEDIN_REDIRECT_URI", ""),
		LoginRedirectURI:     getEnv("LOGIN_REDIRECT_URI", ""),
		PostgresURI:          getEnv("POSTGRES_URI", ""),
		RedisURI:             getEnv("REDIS_URI", ""),
		FrontendURL:          getEnv("FRONTEND_URL", "http://localhost:5173"),
		R2: R2{
			AccountID:  getEnv("R2_ACCOUNT_ID", ""),
			AccessKey:  getEnv("R2_ACCESS_KEY", ""),
			SecretKey:  getEnv("R2_SECRET_KEY", ""),
			BucketName: getEnv("R2_BUCKET_NAME", ""),
			PublicURL:  getEnv("R2_PUBLIC_URL", ""),
		},
		Publishing: Publishing{
			RetryEnabled:      getEnvBool("RETRY_FAILED_POSTS", true),
			MaxRetryAttempts:  getEnvInt("MAX_RETRY_ATTEMPTS", 3),
			RetryBaseDelay:    getEnvDuration("RETRY_BASE_DELAY", 300*time.Second),
			StuckPostMaxAge:   getEnvDuration("STUCK_POST_MAX_AGE", 2*time.Hour),
			DefaultVisibility: getEnv("DEFAULT_VISIBILITY", "PUBLIC"),
		},
		Analytics: Analytics{
			SyncDelay:     getEnvDuration("ANALYTICS_SYNC_DELAY", 300*time.Second),
			BatchSize:     getEnvInt("ANALYTICS_BATCH_SIZE", 50),
			RetentionDays: getEnvInt("ANALYTICS_RETENTION_DAYS", 30),
			PaceDelay:     getEnvDuration("ANALYTICS_PACE_DELAY", time.Second),
		},
		SecretKey:  getEnv("SECRET_KEY", ""),
		CookieName: getEnv("COOKIE_NAME", ""),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
