package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"
	_ "time/tzdata" // gateway timezone on hosts without zoneinfo

	"evrental-backend/internal/gateway"
	"evrental-backend/internal/service"
	"evrental-backend/internal/utils"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig          `yaml:"server"`
	Database  DatabaseConfig        `yaml:"database"`
	JWT       JWTConfig             `yaml:"jwt"`
	Storage   StorageConfig         `yaml:"storage"`
	Log       LogConfig             `yaml:"log"`
	Gateway   GatewayConfig         `yaml:"gateway"`
	Rental    RentalConfig          `yaml:"rental"`
	Pricing   utils.SurchargePolicy `yaml:"pricing"`
	SendGrid  SendGridConfig        `yaml:"sendgrid"`
	Scheduler SchedulerConfig       `yaml:"scheduler"`
}

// ServerConfig contains HTTP server settings
type ServerConfig struct {
	Host                   string `yaml:"host"`
	Port                   int    `yaml:"port"`
	ShutdownTimeoutSeconds int    `yaml:"shutdown_timeout_seconds"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	User        string `yaml:"user"`
	Password    string `yaml:"password"`
	Database    string `yaml:"database"`
	SSLMode     string `yaml:"ssl_mode"`
	AutoMigrate bool   `yaml:"auto_migrate"`
}

// JWTConfig contains settings for validating the identity provider's tokens
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	Issuer            string `yaml:"issuer"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// StorageConfig contains photo storage settings
type StorageConfig struct {
	Type            string   `yaml:"type"`       // "mock" or "firebase"
	UploadDir       string   `yaml:"upload_dir"` // For mock storage
	BaseURL         string   `yaml:"base_url"`   // Server base URL for mock URLs
	MaxFileSize     int64    `yaml:"max_file_size_mb"`
	AllowedTypes    []string `yaml:"allowed_types"`
	FirebaseProject string   `yaml:"firebase_project_id"`
	FirebaseBucket  string   `yaml:"firebase_bucket"`
	CredentialsFile string   `yaml:"credentials_file"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// GatewayConfig contains the payment gateway merchant settings
type GatewayConfig struct {
	PayURL            string `yaml:"pay_url"`
	TmnCode           string `yaml:"tmn_code"`
	HashSecret        string `yaml:"hash_secret"`
	ReturnURL         string `yaml:"return_url"`
	Version           string `yaml:"version"`
	Locale            string `yaml:"locale"`
	Timezone          string `yaml:"timezone"`
	ExpireMinutes     int    `yaml:"expire_minutes"`
	PaymentTTLMinutes int    `yaml:"payment_ttl_minutes"`
}

// RentalConfig contains booking limits
type RentalConfig struct {
	StartGraceMinutes          int `yaml:"start_grace_minutes"`
	MaxRentalDays              int `yaml:"max_rental_days"`
	ConfirmationTimeoutMinutes int `yaml:"confirmation_timeout_minutes"`
}

// SendGridConfig contains email delivery settings. An empty API key only logs.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// SchedulerConfig contains cron schedule settings (6 fields, seconds first)
type SchedulerConfig struct {
	ExpireStalePayments      string `yaml:"expire_stale_payments"`
	CancelLapsedReservations string `yaml:"cancel_lapsed_reservations"`
}

// Load reads configuration from a YAML file. A .env file in the working
// directory, if present, is loaded into the environment first.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Override with environment variables if present
	cfg.overrideWithEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func envInt(key string, dst *int) {
	if val := os.Getenv(key); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			*dst = n
		}
	}
}

func envString(key string, dst *string) {
	if val := os.Getenv(key); val != "" {
		*dst = val
	}
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() {
	// Database
	envString("DB_HOST", &c.Database.Host)
	envInt("DB_PORT", &c.Database.Port)
	envString("DB_USER", &c.Database.User)
	envString("DB_PASSWORD", &c.Database.Password)
	envString("DB_NAME", &c.Database.Database)
	envString("DB_SSL_MODE", &c.Database.SSLMode)

	// JWT
	envString("JWT_SECRET", &c.JWT.Secret)

	// Server
	envString("SERVER_HOST", &c.Server.Host)
	envInt("SERVER_PORT", &c.Server.Port)

	// Storage
	envString("STORAGE_TYPE", &c.Storage.Type)
	envString("UPLOAD_DIR", &c.Storage.UploadDir)
	envString("FIREBASE_BUCKET", &c.Storage.FirebaseBucket)
	envString("GOOGLE_APPLICATION_CREDENTIALS", &c.Storage.CredentialsFile)

	// Gateway
	envString("VNPAY_TMN_CODE", &c.Gateway.TmnCode)
	envString("VNPAY_HASH_SECRET", &c.Gateway.HashSecret)
	envString("VNPAY_PAY_URL", &c.Gateway.PayURL)
	envString("VNPAY_RETURN_URL", &c.Gateway.ReturnURL)

	// SendGrid
	envString("SENDGRID_API_KEY", &c.SendGrid.APIKey)

	// Log
	envString("LOG_LEVEL", &c.Log.Level)
	envString("LOG_FORMAT", &c.Log.Format)

	// Set defaults for log if not configured
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

// Validate checks if the configuration is valid and fills defaults
func (c *Config) Validate() error {
	// Server validation
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Server.ShutdownTimeoutSeconds <= 0 {
		c.Server.ShutdownTimeoutSeconds = 15
	}

	// Database validation
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}

	// JWT validation
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}
	if c.JWT.AccessTokenExpiry <= 0 {
		c.JWT.AccessTokenExpiry = 60
	}

	// Storage validation
	switch c.Storage.Type {
	case "", "mock":
		c.Storage.Type = "mock"
		if c.Storage.UploadDir == "" {
			return fmt.Errorf("upload directory is required")
		}
	case "firebase":
		if c.Storage.FirebaseBucket == "" {
			return fmt.Errorf("firebase bucket is required for firebase storage")
		}
	default:
		return fmt.Errorf("unsupported storage type: %s", c.Storage.Type)
	}
	if c.Storage.MaxFileSize <= 0 {
		c.Storage.MaxFileSize = 10
	}
	if len(c.Storage.AllowedTypes) == 0 {
		c.Storage.AllowedTypes = []string{"image/jpeg", "image/png"}
	}

	// Gateway validation
	if c.Gateway.PayURL == "" || c.Gateway.TmnCode == "" || c.Gateway.HashSecret == "" {
		return fmt.Errorf("gateway pay_url, tmn_code and hash_secret are required")
	}
	if c.Gateway.Timezone == "" {
		c.Gateway.Timezone = "Asia/Ho_Chi_Minh"
	}
	if _, err := time.LoadLocation(c.Gateway.Timezone); err != nil {
		return fmt.Errorf("invalid gateway timezone %q: %w", c.Gateway.Timezone, err)
	}
	if c.Gateway.ExpireMinutes <= 0 {
		c.Gateway.ExpireMinutes = 15
	}
	if c.Gateway.PaymentTTLMinutes <= 0 {
		c.Gateway.PaymentTTLMinutes = 30
	}

	// Rental defaults
	if c.Rental.StartGraceMinutes < 0 {
		return fmt.Errorf("rental start grace must not be negative")
	}
	if c.Rental.MaxRentalDays <= 0 {
		c.Rental.MaxRentalDays = 30
	}
	if c.Rental.ConfirmationTimeoutMinutes <= 0 {
		c.Rental.ConfirmationTimeoutMinutes = 60
	}

	// Scheduler defaults
	if c.Scheduler.ExpireStalePayments == "" {
		c.Scheduler.ExpireStalePayments = "0 */5 * * * *" // Every 5 minutes
	}
	if c.Scheduler.CancelLapsedReservations == "" {
		c.Scheduler.CancelLapsedReservations = "0 */10 * * * *" // Every 10 minutes
	}

	return nil
}

// GetDatabaseConnectionString returns a PostgreSQL connection string
func (c *Config) GetDatabaseConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Database,
		c.Database.SSLMode,
	)
}

// GetServerAddress returns the HTTP server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GatewaySettings converts the gateway section for gateway.NewVNPay.
func (c *Config) GatewaySettings() gateway.Config {
	loc, err := time.LoadLocation(c.Gateway.Timezone)
	if err != nil {
		loc = time.Local
	}
	return gateway.Config{
		PayURL:      c.Gateway.PayURL,
		TmnCode:     c.Gateway.TmnCode,
		HashSecret:  c.Gateway.HashSecret,
		ReturnURL:   c.Gateway.ReturnURL,
		Version:     c.Gateway.Version,
		Locale:      c.Gateway.Locale,
		Location:    loc,
		ExpireAfter: time.Duration(c.Gateway.ExpireMinutes) * time.Minute,
	}
}

// RentalPolicy converts the rental section for service.NewRentalService.
func (c *Config) RentalPolicy() service.RentalPolicy {
	return service.RentalPolicy{
		StartGrace:    time.Duration(c.Rental.StartGraceMinutes) * time.Minute,
		MaxRentalDays: c.Rental.MaxRentalDays,
	}
}

// PaymentTTL is how long a payment may stay PENDING before it is expired.
func (c *Config) PaymentTTL() time.Duration {
	return time.Duration(c.Gateway.PaymentTTLMinutes) * time.Minute
}

// ConfirmationTimeout is how long past its start a PENDING order survives.
func (c *Config) ConfirmationTimeout() time.Duration {
	return time.Duration(c.Rental.ConfirmationTimeoutMinutes) * time.Minute
}
