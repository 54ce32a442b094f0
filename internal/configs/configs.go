/*
Package configs is responsible for loading and parsing the application's configuration settings.

It configures the client by reading operating system environment variables, including
the running environment, the REST and socket endpoints, the request timeout ceiling,
the channel reconnection policy, and the credential file location.
*/
package configs

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Reconnection policy defaults, matching the channel's expectations.
const (
	DefaultReconnectAttempts = 5
	DefaultReconnectDelay    = time.Second
	DefaultReconnectDelayMax = 5 * time.Second
)

// AppConfig contains all configuration parameters required for the client to run.
// All configuration values are loaded from environment variables.
type AppConfig struct {
	// General Settings
	Environment string

	// Endpoints
	APIBaseURL string
	SocketURL  string

	// Request Settings
	RequestTimeout time.Duration

	// Channel Reconnection Settings
	ReconnectAttempts int
	ReconnectDelay    time.Duration
	ReconnectDelayMax time.Duration

	// Credential Settings
	CredentialPath string
}

// LoadConfig reads and parses the client configuration from environment variables.
// It provides default values for each configuration item and performs necessary
// type conversions and validation. It returns a pointer to the AppConfig struct
// and any error encountered.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}

	// --- General Settings ---
	// Environment
	cfg.Environment = os.Getenv("ENVIRONMENT")
	if cfg.Environment == "" {
		cfg.Environment = "development"
	}

	// --- Endpoints ---
	// APIBaseURL
	cfg.APIBaseURL = os.Getenv("API_BASE_URL")
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = "http://localhost:3000/api"
	}
	if _, err := url.ParseRequestURI(cfg.APIBaseURL); err != nil {
		return nil, fmt.Errorf("invalid API_BASE_URL environment variable: %w", err)
	}

	// SocketURL
	cfg.SocketURL = os.Getenv("SOCKET_URL")
	if cfg.SocketURL == "" {
		cfg.SocketURL = "http://localhost:3000"
	}
	if _, err := url.ParseRequestURI(cfg.SocketURL); err != nil {
		return nil, fmt.Errorf("invalid SOCKET_URL environment variable: %w", err)
	}

	// --- Request Settings ---
	// RequestTimeout
	timeoutStr := os.Getenv("REQUEST_TIMEOUT")
	if timeoutStr == "" {
		timeoutStr = "10s"
	}
	timeout, err := time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("invalid REQUEST_TIMEOUT environment variable: %w", err)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("REQUEST_TIMEOUT must be positive, got %s", timeout)
	}
	cfg.RequestTimeout = timeout

	// --- Channel Reconnection Settings ---
	// ReconnectAttempts
	attemptsStr := os.Getenv("RECONNECT_ATTEMPTS")
	if attemptsStr == "" {
		attemptsStr = strconv.Itoa(DefaultReconnectAttempts)
	}
	attempts, err := strconv.Atoi(attemptsStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RECONNECT_ATTEMPTS environment variable: %w", err)
	}
	if attempts < 1 {
		return nil, fmt.Errorf("RECONNECT_ATTEMPTS must be at least 1, got %d", attempts)
	}
	cfg.ReconnectAttempts = attempts

	// ReconnectDelay
	delayStr := os.Getenv("RECONNECT_DELAY")
	if delayStr == "" {
		delayStr = DefaultReconnectDelay.String()
	}
	delay, err := time.ParseDuration(delayStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RECONNECT_DELAY environment variable: %w", err)
	}
	cfg.ReconnectDelay = delay

	// ReconnectDelayMax
	delayMaxStr := os.Getenv("RECONNECT_DELAY_MAX")
	if delayMaxStr == "" {
		delayMaxStr = DefaultReconnectDelayMax.String()
	}
	delayMax, err := time.ParseDuration(delayMaxStr)
	if err != nil {
		return nil, fmt.Errorf("invalid RECONNECT_DELAY_MAX environment variable: %w", err)
	}
	if delayMax < delay {
		return nil, fmt.Errorf("RECONNECT_DELAY_MAX (%s) must not be smaller than RECONNECT_DELAY (%s)", delayMax, delay)
	}
	cfg.ReconnectDelayMax = delayMax

	// --- Credential Settings ---
	cfg.CredentialPath = os.Getenv("CREDENTIAL_PATH")
	if cfg.CredentialPath == "" {
		configDir, err := os.UserConfigDir()
		if err != nil {
			return nil, fmt.Errorf("CREDENTIAL_PATH not set and user config directory unavailable: %w", err)
		}
		cfg.CredentialPath = filepath.Join(configDir, "chatify", "credentials")
	}

	return cfg, nil
}
