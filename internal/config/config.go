// Package config provides client configuration loaded from command-line
// flags, environment variables, and an optional .env file.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// Config holds the client configuration.
type Config struct {
	Server ServerConfig
	Logger LoggerConfig
	Export ExportConfig
	Rate   RateConfig
}

// ServerConfig describes the remote document service.
type ServerConfig struct {
	// URL is the API base, e.g. "https://paperless.example.com/api/".
	URL string
	// Token is the static bearer credential sent as "Authorization: Token <v>".
	Token string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
	JSON  bool
}

// ExportConfig holds artifact export configuration.
type ExportConfig struct {
	// Dir is where downloaded artifacts and merged output land.
	// Defaults to the working directory.
	Dir string
}

// RateConfig paces outbound requests. Requests stay sequential; the
// limiter only spaces them out.
type RateConfig struct {
	RPS   float64
	Burst int
}

// Overrides carries flag-supplied values from the CLI. Empty strings mean
// "not set on the command line".
type Overrides struct {
	ServerURL string
	Token     string
	LogLevel  string
	JSONLogs  bool
	ExportDir string
	EnvFile   string
}

// Load builds configuration with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func Load(ov Overrides) (*Config, error) {
	envFile := ov.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// Load .env if present (silently ignore if not found).
	_ = loadEnvFile(envFile)

	cfg := &Config{
		Server: ServerConfig{
			URL:   getConfigValue(ov.ServerURL, "PAPERDOCK_SERVER_URL", ""),
			Token: getConfigValue(ov.Token, "PAPERDOCK_AUTH_TOKEN", ""),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(ov.LogLevel, "PAPERDOCK_LOG_LEVEL", "info"),
			JSON:  ov.JSONLogs || getConfigValue("", "PAPERDOCK_LOG_JSON", "") == "true",
		},
		Export: ExportConfig{
			Dir: getConfigValue(ov.ExportDir, "PAPERDOCK_EXPORT_DIR", "."),
		},
		Rate: RateConfig{
			RPS:   getFloatConfigValue("PAPERDOCK_RATE_RPS", 5),
			Burst: getIntConfigValue("PAPERDOCK_RATE_BURST", 3),
		},
	}

	if err := cfg.expandExportDir(); err != nil {
		return nil, fmt.Errorf("invalid export dir: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.Server.URL == "" {
		return errors.New("PAPERDOCK_SERVER_URL is required")
	}
	u, err := url.Parse(c.Server.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid server URL: %s", c.Server.URL)
	}
	if c.Server.Token == "" {
		return errors.New("PAPERDOCK_AUTH_TOKEN is required")
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

	if c.Rate.RPS <= 0 || c.Rate.Burst <= 0 {
		return errors.New("rate rps and burst must be positive")
	}

	return nil
}

// BaseURL returns the server URL with a guaranteed trailing slash, so
// endpoint paths can be appended directly.
func (c *Config) BaseURL() string {
	if strings.HasSuffix(c.Server.URL, "/") {
		return c.Server.URL
	}
	return c.Server.URL + "/"
}

// expandExportDir expands ~ and makes the path absolute.
func (c *Config) expandExportDir() error {
	path := c.Export.Dir
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}
	if !filepath.IsAbs(path) {
		abs, err := filepath.Abs(path)
		if err != nil {
			return fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = abs
	}
	c.Export.Dir = filepath.Clean(path)
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from an env var, or the default.
func getIntConfigValue(envKey string, defaultValue int) int {
	strValue := os.Getenv(envKey)
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from an env var, or the default.
func getFloatConfigValue(envKey string, defaultValue float64) float64 {
	strValue := os.Getenv(envKey)
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.Trim(strings.TrimSpace(parts[1]), `"'`)

		// Real env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
