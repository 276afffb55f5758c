package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Voting   VotingConfig   `yaml:"voting"`
	AWS      AWSConfig      `yaml:"aws"`
	Admin    AdminConfig    `yaml:"admin"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	SSLMode  string `yaml:"sslmode"`
}

// VotingConfig holds the shared PINs, PIN rate limiting knobs and the
// result cache TTL.
type VotingConfig struct {
	UserPIN         string   `yaml:"user_pin"`
	AdminPIN        string   `yaml:"admin_pin"`
	MaxPINAttempts  int      `yaml:"max_pin_attempts"`
	AttemptWindow   Duration `yaml:"attempt_window"`
	LockoutDuration Duration `yaml:"lockout_duration"`
	ResultCacheTTL  Duration `yaml:"result_cache_ttl"`
}

// Duration decodes YAML values like "60s" or "5m" into a time.Duration.
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	dur, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", value.Value, err)
	}
	*d = Duration(dur)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// AWSConfig holds S3 configuration for candidate image uploads
type AWSConfig struct {
	Region    string `yaml:"region"`
	S3Bucket  string `yaml:"s3_bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Endpoint  string `yaml:"endpoint"` // custom S3-compatible endpoint, optional
}

// AdminConfig holds the admin session configuration
type AdminConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `yaml:"level"`
}

// Load reads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults fills the rate limiter and cache knobs that are rarely
// overridden in deployments.
func (c *Config) applyDefaults() {
	if c.Voting.MaxPINAttempts == 0 {
		c.Voting.MaxPINAttempts = 5
	}
	if c.Voting.AttemptWindow == 0 {
		c.Voting.AttemptWindow = Duration(60 * time.Second)
	}
	if c.Voting.LockoutDuration == 0 {
		c.Voting.LockoutDuration = Duration(5 * time.Minute)
	}
	if c.Voting.ResultCacheTTL == 0 {
		c.Voting.ResultCacheTTL = Duration(2 * time.Minute)
	}
}

// DSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
