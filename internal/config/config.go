package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const Version = "1.0.0"

// Store backends.
const (
	BackendMemory    = "memory"
	BackendFirestore = "firestore"
	BackendPostgres  = "postgres"
	BackendRedis     = "redis"
)

// Auth modes.
const (
	AuthFirebase = "firebase"
	AuthJWT      = "jwt"
)

type FirebaseConfig struct {
	ProjectID       string `yaml:"project_id"`
	CredentialsFile string `yaml:"credentials_file"`
}

type GeminiConfig struct {
	APIKey                 string  `yaml:"api_key"`
	Model                  string  `yaml:"model"`
	Temperature            float32 `yaml:"temperature"`
	FreeMaxOutputTokens    int32   `yaml:"free_max_output_tokens"`
	PremiumMaxOutputTokens int32   `yaml:"premium_max_output_tokens"`
	HistoryWindow          int     `yaml:"history_window"`
}

type AuthConfig struct {
	Mode         string `yaml:"mode"`
	JWTSecret    string `yaml:"jwt_secret"`
	AdminKeyHash string `yaml:"admin_key_hash"`
}

type DatabaseConfig struct {
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type Config struct {
	Port        string   `yaml:"port"`
	LogLevel    string   `yaml:"log_level"`
	LogFile     string   `yaml:"log_file"`
	CORSOrigins []string `yaml:"cors_origins"`

	DocumentStore         string `yaml:"document_store"`
	QuotaStore            string `yaml:"quota_store"`
	ResetSchedulerEnabled bool   `yaml:"reset_scheduler_enabled"`

	Quota    QuotaConfig    `yaml:"quota"`
	Redis    RedisConfig    `yaml:"redis"`
	Database DatabaseConfig `yaml:"database"`
	Firebase FirebaseConfig `yaml:"firebase"`
	Gemini   GeminiConfig   `yaml:"gemini"`
	Auth     AuthConfig     `yaml:"auth"`
}

func defaults() *Config {
	return &Config{
		Port:          "5050",
		LogLevel:      "info",
		CORSOrigins:   []string{"http://localhost:8081", "exp://localhost:8081", "*"},
		DocumentStore: BackendFirestore,
		QuotaStore:    BackendFirestore,
		Quota:         *NewQuotaConfig(),
		Redis:         *NewRedisConfig(),
		Database: DatabaseConfig{
			MaxOpenConns: 25,
			MaxIdleConns: 25,
		},
		Gemini: GeminiConfig{
			Model:                  "gemini-2.0-flash",
			Temperature:            0.7,
			FreeMaxOutputTokens:    500,
			PremiumMaxOutputTokens: 1000,
			HistoryWindow:          6,
		},
		Auth: AuthConfig{
			Mode: AuthFirebase,
		},
	}
}

// Load builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (with ${VAR} expansion), then plain environment variables.
func Load() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.loadEnv(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), c); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadEnv() error {
	var err error

	c.Port = getEnv("PORT", c.Port)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)
	c.CORSOrigins = getEnvList("CORS_ORIGINS", c.CORSOrigins)

	c.DocumentStore = strings.ToLower(getEnv("DOCUMENT_STORE", c.DocumentStore))
	c.QuotaStore = strings.ToLower(getEnv("QUOTA_STORE", c.QuotaStore))
	if c.ResetSchedulerEnabled, err = getEnvBool("RESET_SCHEDULER_ENABLED", c.ResetSchedulerEnabled); err != nil {
		return err
	}

	if c.Quota.FreeDailyLimit, err = getEnvInt64("FREE_DAILY_LIMIT", c.Quota.FreeDailyLimit); err != nil {
		return err
	}
	if c.Quota.PremiumDailyLimit, err = getEnvInt64("PREMIUM_DAILY_LIMIT", c.Quota.PremiumDailyLimit); err != nil {
		return err
	}
	c.Quota.Enforcement = Enforcement(strings.ToLower(getEnv("QUOTA_ENFORCEMENT", string(c.Quota.Enforcement))))
	c.Quota.Timezone = getEnv("RESET_TIMEZONE", c.Quota.Timezone)

	c.Redis.Host = getEnv("REDIS_HOST", c.Redis.Host)
	c.Redis.Port = getEnv("REDIS_PORT", c.Redis.Port)
	c.Redis.Password = getEnv("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.KeyPrefix = getEnv("REDIS_KEY_PREFIX", c.Redis.KeyPrefix)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)

	c.Firebase.ProjectID = getEnv("FIREBASE_PROJECT_ID", c.Firebase.ProjectID)
	c.Firebase.CredentialsFile = getEnv("GOOGLE_APPLICATION_CREDENTIALS", c.Firebase.CredentialsFile)

	c.Gemini.APIKey = getEnv("GEMINI_API_KEY", c.Gemini.APIKey)
	c.Gemini.Model = getEnv("GEMINI_MODEL", c.Gemini.Model)

	c.Auth.Mode = strings.ToLower(getEnv("AUTH_MODE", c.Auth.Mode))
	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.AdminKeyHash = getEnv("ADMIN_KEY_HASH", c.Auth.AdminKeyHash)

	return nil
}

func (c *Config) Validate() error {
	if err := c.Quota.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}

	switch c.DocumentStore {
	case BackendMemory, BackendFirestore, BackendPostgres:
	default:
		return fmt.Errorf("config: invalid document_store %q", c.DocumentStore)
	}
	switch c.QuotaStore {
	case BackendMemory, BackendFirestore, BackendPostgres, BackendRedis:
	default:
		return fmt.Errorf("config: invalid quota_store %q", c.QuotaStore)
	}

	if c.UsesBackend(BackendFirestore) && c.Firebase.ProjectID == "" {
		return fmt.Errorf("config: FIREBASE_PROJECT_ID is required for the firestore backend")
	}
	if c.UsesBackend(BackendPostgres) && c.Database.URL == "" {
		return fmt.Errorf("config: DATABASE_URL is required for the postgres backend")
	}

	switch c.Auth.Mode {
	case AuthFirebase:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("config: FIREBASE_PROJECT_ID is required for firebase auth")
		}
	case AuthJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("config: JWT_SECRET is required for jwt auth")
		}
	default:
		return fmt.Errorf("config: invalid auth mode %q", c.Auth.Mode)
	}

	if c.Gemini.HistoryWindow < 0 {
		return fmt.Errorf("config: gemini history_window must not be negative")
	}
	return nil
}

// UsesBackend reports whether either store is served by backend.
func (c *Config) UsesBackend(backend string) bool {
	return c.DocumentStore == backend || c.QuotaStore == backend
}
