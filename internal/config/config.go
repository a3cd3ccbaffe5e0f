package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode  string
	Port     string
	Google   GoogleConfig
	Backend  BackendConfig
	Session  SessionConfig
	Cookie   CookieConfig
	Receipts ReceiptsConfig
	Database DatabaseConfig
}

// GoogleConfig holds Google Identity Services configuration
type GoogleConfig struct {
	ClientID string
	Issuer   string
}

// BackendConfig holds the remote backend endpoint
type BackendConfig struct {
	URL     string
	Timeout time.Duration
}

// SessionConfig holds browser session configuration
type SessionConfig struct {
	Secret     string
	CookieName string
	IdleTTL    time.Duration
	SweepSpec  string
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// ReceiptsConfig toggles submission receipts
type ReceiptsConfig struct {
	Enabled bool
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	config, err := FromEnv()
	if err != nil {
		return nil, err
	}

	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", config.AppMode)
	return config, nil
}

// FromEnv builds the configuration from the process environment only
func FromEnv() (*Config, error) {
	// trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	backend, err := loadBackendConfig()
	if err != nil {
		return nil, err
	}
	session, err := loadSessionConfig(appMode)
	if err != nil {
		return nil, err
	}

	config := &Config{
		AppMode:  appMode,
		Port:     getEnv("PORT", "3000"),
		Google:   loadGoogleConfig(),
		Backend:  backend,
		Session:  session,
		Cookie:   loadCookieConfig(appMode),
		Receipts: ReceiptsConfig{Enabled: getBool("RECEIPTS_ENABLED", false)},
		Database: loadDatabaseConfig(appMode),
	}

	if config.IsProd() {
		if config.Backend.URL == "" {
			return nil, fmt.Errorf("BACKEND_URL is required in prod mode")
		}
		if config.Google.ClientID == "" {
			return nil, fmt.Errorf("GOOGLE_CLIENT_ID is required in prod mode")
		}
		if config.Session.Secret == defaultSessionSecret {
			return nil, fmt.Errorf("PROD_SESSION_SECRET is required in prod mode")
		}
	}

	return config, nil
}

// defaultSessionSecret signs dev cookies only
const defaultSessionSecret = "default_session_secret"

func modePrefix(mode string) string {
	if mode == "prod" {
		return "PROD_"
	}
	return "DEV_"
}

func loadGoogleConfig() GoogleConfig {
	return GoogleConfig{
		ClientID: strings.TrimSpace(getEnv("GOOGLE_CLIENT_ID", "")),
		Issuer:   getEnv("GOOGLE_ISSUER", "https://accounts.google.com"),
	}
}

func loadBackendConfig() (BackendConfig, error) {
	timeout, err := getDuration("BACKEND_TIMEOUT", 30*time.Second)
	if err != nil {
		return BackendConfig{}, err
	}
	return BackendConfig{
		URL:     strings.TrimSpace(getEnv("BACKEND_URL", "")),
		Timeout: timeout,
	}, nil
}

// loadSessionConfig loads session config based on mode
func loadSessionConfig(mode string) (SessionConfig, error) {
	idle, err := getDuration("SESSION_IDLE_TTL", 12*time.Hour)
	if err != nil {
		return SessionConfig{}, err
	}
	return SessionConfig{
		Secret:     getEnv(modePrefix(mode)+"SESSION_SECRET", defaultSessionSecret),
		CookieName: getEnv("SESSION_COOKIE_NAME", "pj_session"),
		IdleTTL:    idle,
		SweepSpec:  getEnv("SESSION_SWEEP_SPEC", "@every 1m"),
	}, nil
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	return CookieConfig{
		Secure:   getBool(modePrefix(mode)+"COOKIE_SECURE", false),
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := modePrefix(mode)
	return DatabaseConfig{
		Host:     getEnv(prefix+"DB_HOST", "localhost"),
		Port:     getEnv(prefix+"DB_PORT", "3306"),
		User:     getEnv(prefix+"DB_USER", "root"),
		Password: getEnv(prefix+"DB_PASS", ""),
		DBName:   getEnv(prefix+"DB_NAME", "point_journaliere"),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(getEnv(key, strconv.FormatBool(defaultValue)))
	if err != nil {
		return defaultValue
	}
	return v
}

func getDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: '%s'", key, raw)
	}
	return d, nil
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		return ""
	}
	return origins
}
