// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App         AppConfig
	Logger      LoggerConfig
	Data        DataConfig
	Experiments ExperimentsConfig
	Server      ServerConfig
	Auth        AuthConfig
	RateLimit   RateLimitConfig
	Admin       AdminConfig
	Notify      NotifyConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// DataConfig holds persistent storage configuration.
type DataConfig struct {
	// BasePath is the directory for the database and the auth key.
	BasePath string
}

// ExperimentsConfig holds experiment artifact configuration.
type ExperimentsConfig struct {
	// ArtifactRoot is the directory experiment files are served from.
	// Catalog rows reference files inside it by basename only.
	ArtifactRoot string
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Name         string
	BaseURL      string        // Externally reachable URL used in invitation and approval links
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key (32 bytes)
	TokenKey []byte
	// SessionTokenDuration bounds session tokens (default: 1h)
	SessionTokenDuration time.Duration
	// LinkTokenDuration bounds invite and approve link tokens (default: 168h)
	LinkTokenDuration time.Duration
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	// Per-IP fixed-window budgets for the auth endpoints.
	LoginLimit    int           // default: 10
	RegisterLimit int           // default: 5
	AttemptWindow time.Duration // default: 15m
	SweepInterval time.Duration // default: 1h

	// Coarse per-IP token bucket over the whole API.
	APIRequestsPerSecond float64 // default: 20
	APIBurst             int     // default: 40
}

// AdminConfig holds the bootstrap administrator account. When no admin
// exists at startup and both values are set, an approved admin is created.
type AdminConfig struct {
	Email    string
	Password string
}

// NotifyConfig holds notification delivery configuration.
type NotifyConfig struct {
	// AdminEmail overrides the recipient for pending-approval
	// notifications. When empty, the first admin account is used.
	AdminEmail string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig() (*Config, error) {
	// Define command-line flags.
	env := flag.String("env", "", "Environment (development, staging, production)")
	logLevel := flag.String("log-level", "", "Log level (debug, info, warn, error)")
	dataPath := flag.String("data-path", "", "Base path for persistent data")
	artifactRoot := flag.String("artifact-root", "", "Directory experiment artifacts are served from")
	serverName := flag.String("server-name", "", "Name for the server")
	serverBaseURL := flag.String("base-url", "", "Externally reachable server URL")

	// Auth flags
	sessionTokenDuration := flag.String("session-token-duration", "", "Session token lifetime (e.g., 1h)")
	linkTokenDuration := flag.String("link-token-duration", "", "Invite/approve link token lifetime (e.g., 168h)")

	// Rate limit flags
	loginLimit := flag.String("login-limit", "", "Login attempts per IP per window (default: 10)")
	registerLimit := flag.String("register-limit", "", "Registrations per IP per window (default: 5)")
	attemptWindow := flag.String("attempt-window", "", "Fixed rate-limit window (default: 15m)")

	// Server flags
	serverPort := flag.String("port", "", "Server port (default: 8080)")
	readTimeout := flag.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := flag.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := flag.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")

	envFile := flag.String("env-file", ".env", "Path to .env file")

	// Parse flags but don't exit on error - we want to handle it gracefully.
	flag.Parse()

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Data: DataConfig{
			BasePath: getConfigValue(*dataPath, "DATA_PATH", ""),
		},
		Experiments: ExperimentsConfig{
			ArtifactRoot: getConfigValue(*artifactRoot, "ARTIFACT_ROOT", ""),
		},
		Server: ServerConfig{
			Name:    getConfigValue(*serverName, "SERVER_NAME", "Vibe Lab"),
			BaseURL: getConfigValue(*serverBaseURL, "SERVER_BASE_URL", "http://localhost:8080"),
			Port:    getConfigValue(*serverPort, "SERVER_PORT", "8080"),
		},
		Auth: AuthConfig{
			TokenKey: nil, // Will be set by auth.LoadOrGenerateKey in main
		},
		RateLimit: RateLimitConfig{
			LoginLimit:           getIntConfigValue(*loginLimit, "LOGIN_LIMIT", 10),
			RegisterLimit:        getIntConfigValue(*registerLimit, "REGISTER_LIMIT", 5),
			APIRequestsPerSecond: float64(getIntConfigValue("", "API_REQUESTS_PER_SECOND", 20)),
			APIBurst:             getIntConfigValue("", "API_BURST", 40),
		},
		Admin: AdminConfig{
			Email:    getConfigValue("", "ADMIN_EMAIL", ""),
			Password: getConfigValue("", "ADMIN_PASSWORD", ""),
		},
		Notify: NotifyConfig{
			AdminEmail: getConfigValue("", "NOTIFY_ADMIN_EMAIL", ""),
		},
	}

	// Parse auth durations.
	sessionDurationStr := getConfigValue(*sessionTokenDuration, "SESSION_TOKEN_DURATION", "1h")
	sessionDuration, err := time.ParseDuration(sessionDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid session token duration %q: %w", sessionDurationStr, err)
	}
	cfg.Auth.SessionTokenDuration = sessionDuration

	linkDurationStr := getConfigValue(*linkTokenDuration, "LINK_TOKEN_DURATION", "168h")
	linkDuration, err := time.ParseDuration(linkDurationStr)
	if err != nil {
		return nil, fmt.Errorf("invalid link token duration %q: %w", linkDurationStr, err)
	}
	cfg.Auth.LinkTokenDuration = linkDuration

	// Parse rate-limit durations.
	attemptWindowStr := getConfigValue(*attemptWindow, "ATTEMPT_WINDOW", "15m")
	attemptWindowDuration, err := time.ParseDuration(attemptWindowStr)
	if err != nil {
		return nil, fmt.Errorf("invalid attempt window %q: %w", attemptWindowStr, err)
	}
	cfg.RateLimit.AttemptWindow = attemptWindowDuration

	sweepIntervalStr := getConfigValue("", "RATE_LIMIT_SWEEP_INTERVAL", "1h")
	sweepInterval, err := time.ParseDuration(sweepIntervalStr)
	if err != nil {
		return nil, fmt.Errorf("invalid sweep interval %q: %w", sweepIntervalStr, err)
	}
	cfg.RateLimit.SweepInterval = sweepInterval

	// Parse server timeouts.
	readTimeoutStr := getConfigValue(*readTimeout, "SERVER_READ_TIMEOUT", "15s")
	readTimeoutDuration, err := time.ParseDuration(readTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid read timeout %q: %w", readTimeoutStr, err)
	}
	cfg.Server.ReadTimeout = readTimeoutDuration

	writeTimeoutStr := getConfigValue(*writeTimeout, "SERVER_WRITE_TIMEOUT", "15s")
	writeTimeoutDuration, err := time.ParseDuration(writeTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid write timeout %q: %w", writeTimeoutStr, err)
	}
	cfg.Server.WriteTimeout = writeTimeoutDuration

	idleTimeoutStr := getConfigValue(*idleTimeout, "SERVER_IDLE_TIMEOUT", "60s")
	idleTimeoutDuration, err := time.ParseDuration(idleTimeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid idle timeout %q: %w", idleTimeoutStr, err)
	}
	cfg.Server.IdleTimeout = idleTimeoutDuration

	// Expand and validate the data path.
	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	// Expand the artifact root (defaults to {data}/experiments).
	if err := cfg.expandArtifactRoot(); err != nil {
		return nil, fmt.Errorf("invalid artifact root: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Data.BasePath == "" {
		return errors.New("data base path cannot be empty after expansion")
	}

	if c.RateLimit.LoginLimit <= 0 || c.RateLimit.RegisterLimit <= 0 {
		return errors.New("rate limit budgets must be positive")
	}
	if c.RateLimit.AttemptWindow <= 0 {
		return errors.New("attempt window must be positive")
	}

	// Admin bootstrap is all-or-nothing.
	if (c.Admin.Email == "") != (c.Admin.Password == "") {
		return errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	// Auth durations are validated during LoadConfig parsing.
	// Auth key is set by auth.LoadOrGenerateKey in main.

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "VibeLab", "data")

	expanded, err := expandPath(c.Data.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Data.BasePath = expanded
	return nil
}

// expandArtifactRoot expands ~ and makes the path absolute.
// Defaults to {data}/experiments if not specified.
func (c *Config) expandArtifactRoot() error {
	defaultPath := filepath.Join(c.Data.BasePath, "experiments")

	expanded, err := expandPath(c.Experiments.ArtifactRoot, defaultPath)
	if err != nil {
		return err
	}
	c.Experiments.ArtifactRoot = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
