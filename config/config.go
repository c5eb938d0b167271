// Package config loads server and client configuration. Values are layered:
// defaults, then an optional YAML file, then a .env file, then the process
// environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers understood by the server.
const (
	DriverPebble   = "pebble"
	DriverPostgres = "postgres"
)

// ServerConfig holds configuration for the REST server
type ServerConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	AllowedOrigin   string        `yaml:"allowed_origin"`

	Store StoreConfig `yaml:"store"`
	Auth  AuthConfig  `yaml:"auth"`
	SMTP  SMTPConfig  `yaml:"smtp"`
}

// StoreConfig selects and configures the record store.
type StoreConfig struct {
	Driver     string `yaml:"driver"`
	PebblePath string `yaml:"pebble_path"`
	DSN        string `yaml:"dsn"`
	MachineID  int64  `yaml:"machine_id"`
}

// AuthConfig configures token signing and verification throttling.
type AuthConfig struct {
	JWTSecret         string        `yaml:"jwt_secret"`
	TokenTTL          time.Duration `yaml:"token_ttl"`
	BcryptCost        int           `yaml:"bcrypt_cost"`
	VerifyMaxAttempts int           `yaml:"verify_max_attempts"`
	VerifyWindow      time.Duration `yaml:"verify_window"`
}

// SMTP TLS policies.
const (
	SMTPTLSOpportunistic = "opportunistic"
	SMTPTLSMandatory     = "mandatory"
	SMTPTLSNone          = "none"
)

// SMTPConfig configures outgoing verification mail. An empty Host means codes
// are only logged.
type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	From     string `yaml:"from"`
	// TLSPolicy is one of SMTPTLSOpportunistic, SMTPTLSMandatory, SMTPTLSNone.
	TLSPolicy string `yaml:"tls_policy"`
	// InsecureSkipVerify accepts any relay certificate.
	InsecureSkipVerify bool `yaml:"insecure_skip_verify"`
}

// Addr returns host:port.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// DefaultServerConfig returns the default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            3000,
		ShutdownTimeout: 10 * time.Second,
		AllowedOrigin:   "http://localhost:8080",
		Store: StoreConfig{
			Driver:     DriverPebble,
			PebblePath: "/tmp/finledger",
		},
		Auth: AuthConfig{
			JWTSecret:         "change-me",
			TokenTTL:          24 * time.Hour,
			BcryptCost:        10,
			VerifyMaxAttempts: 5,
			VerifyWindow:      time.Minute,
		},
		SMTP: SMTPConfig{
			Port:      587,
			TLSPolicy: SMTPTLSOpportunistic,
		},
	}
}

// LoadServerConfig builds the server configuration. path may name a YAML
// file; an empty path skips that layer. A .env file in the working directory
// is loaded when present, without overriding variables already set.
func LoadServerConfig(path string) (ServerConfig, error) {
	config := DefaultServerConfig()

	if path != "" {
		if err := loadYAML(path, &config); err != nil {
			return config, err
		}
	}

	if err := loadDotEnv(".env"); err != nil {
		return config, err
	}

	applyServerEnv(&config)

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}

// Validate reports configuration that cannot work.
func (c ServerConfig) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	switch c.Store.Driver {
	case DriverPebble:
		if c.Store.PebblePath == "" {
			return fmt.Errorf("pebble store requires a path")
		}
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("postgres store requires a dsn")
		}
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("jwt secret must not be empty")
	}
	if c.Auth.VerifyMaxAttempts <= 0 {
		return fmt.Errorf("verify_max_attempts must be positive")
	}
	switch c.SMTP.TLSPolicy {
	case "", SMTPTLSOpportunistic, SMTPTLSMandatory, SMTPTLSNone:
	default:
		return fmt.Errorf("unknown smtp tls_policy %q", c.SMTP.TLSPolicy)
	}
	return nil
}

func loadYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func applyServerEnv(c *ServerConfig) {
	if v := os.Getenv("HOST"); v != "" {
		c.Host = v
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Port = port
		}
	}
	if v := os.Getenv("FINLEDGER_SHUTDOWN_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.ShutdownTimeout = d
		}
	}
	if v := os.Getenv("FINLEDGER_ALLOWED_ORIGIN"); v != "" {
		c.AllowedOrigin = v
	}

	if v := os.Getenv("FINLEDGER_STORE"); v != "" {
		c.Store.Driver = v
	}
	if v := os.Getenv("FINLEDGER_PEBBLE_PATH"); v != "" {
		c.Store.PebblePath = v
	}
	if v := os.Getenv("DB_DSN"); v != "" {
		c.Store.DSN = v
	}
	if v := os.Getenv("FINLEDGER_MACHINE_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil && id >= 0 && id <= 1023 {
			c.Store.MachineID = id
		}
	}

	if v := os.Getenv("JWT_SECRET"); v != "" {
		c.Auth.JWTSecret = v
	}
	if v := os.Getenv("FINLEDGER_TOKEN_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Auth.TokenTTL = d
		}
	}
	if v := os.Getenv("FINLEDGER_BCRYPT_COST"); v != "" {
		if cost, err := strconv.Atoi(v); err == nil && cost >= 4 && cost <= 31 {
			c.Auth.BcryptCost = cost
		}
	}

	if v := os.Getenv("SMTP_HOST"); v != "" {
		c.SMTP.Host = v
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.SMTP.Port = port
		}
	}
	if v := os.Getenv("EMAIL_USER"); v != "" {
		c.SMTP.Username = v
		if c.SMTP.From == "" {
			c.SMTP.From = v
		}
	}
	if v := os.Getenv("EMAIL_PASS"); v != "" {
		c.SMTP.Password = v
	}
	if v := os.Getenv("SMTP_TLS_POLICY"); v != "" {
		c.SMTP.TLSPolicy = v
	}
	if v := os.Getenv("SMTP_INSECURE_SKIP_VERIFY"); v != "" {
		if skip, err := strconv.ParseBool(v); err == nil {
			c.SMTP.InsecureSkipVerify = skip
		}
	}
}

// ClientConfig holds configuration for finctl.
type ClientConfig struct {
	ServerURL   string        `yaml:"server_url"`
	SessionPath string        `yaml:"session_path"`
	Timeout     time.Duration `yaml:"timeout"`
}

// DefaultClientConfig returns the default client configuration
func DefaultClientConfig() ClientConfig {
	sessionPath := ".finledger-session.json"
	if home, err := os.UserHomeDir(); err == nil {
		sessionPath = filepath.Join(home, ".finledger", "session.json")
	}
	return ClientConfig{
		ServerURL:   "http://localhost:3000",
		SessionPath: sessionPath,
		Timeout:     15 * time.Second,
	}
}

// LoadClientConfig applies FINLEDGER_SERVER, FINLEDGER_SESSION and
// FINLEDGER_TIMEOUT over the defaults.
func LoadClientConfig() ClientConfig {
	c := DefaultClientConfig()
	if v := os.Getenv("FINLEDGER_SERVER"); v != "" {
		c.ServerURL = v
	}
	if v := os.Getenv("FINLEDGER_SESSION"); v != "" {
		c.SessionPath = v
	}
	if v := os.Getenv("FINLEDGER_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			c.Timeout = d
		}
	}
	return c
}
