package config

import (
	"fmt"
	"os"
	"time"

	"rental-escrow-backend/internal/storage"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Log       LogConfig       `yaml:"log"`
	Storage   StorageConfig   `yaml:"storage"`
	Redis     RedisConfig     `yaml:"redis"`
	RabbitMQ  RabbitMQConfig  `yaml:"rabbitmq"`
	SendGrid  SendGridConfig  `yaml:"sendgrid"`
	Firebase  FirebaseConfig  `yaml:"firebase"`
	Notify    NotifyConfig    `yaml:"notify"`
	JWT       JWTConfig       `yaml:"jwt"`
	Pricing   PricingConfig   `yaml:"pricing"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// ServerConfig contains gRPC server settings
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// HTTPConfig contains the side HTTP listener (metrics, health, images)
type HTTPConfig struct {
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// DatabaseConfig contains PostgreSQL connection settings
type DatabaseConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	User         string `yaml:"user"`
	Password     string `yaml:"password"`
	Database     string `yaml:"database"`
	SSLMode      string `yaml:"ssl_mode"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level  string `yaml:"level"`  // "debug", "info", "warn", "error"
	Format string `yaml:"format"` // "json" or "text"
}

// StorageConfig selects where proof images live
type StorageConfig struct {
	Type     string           `yaml:"type"` // "local" or "s3"
	LocalDir string           `yaml:"local_dir"`
	S3       storage.S3Config `yaml:"s3"`
}

// RedisConfig configures the timeline cache. An empty address disables it.
type RedisConfig struct {
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// RabbitMQConfig configures domain event publishing. An empty URL disables it.
type RabbitMQConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

// SendGridConfig configures email notifications. An empty key disables them.
type SendGridConfig struct {
	APIKey    string `yaml:"api_key"`
	FromEmail string `yaml:"from_email"`
	FromName  string `yaml:"from_name"`
}

// FirebaseConfig configures push notifications. An empty path disables them.
type FirebaseConfig struct {
	CredentialsFile string `yaml:"credentials_file"`
}

// NotifyConfig bounds how long a committed command waits on its notifications
type NotifyConfig struct {
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// JWTConfig contains JWT token settings
type JWTConfig struct {
	Secret            string `yaml:"secret"`
	Issuer            string `yaml:"issuer"`
	AccessTokenExpiry int    `yaml:"access_token_expiry_minutes"`
}

// PricingConfig holds the business rules applied by the lifecycle services
type PricingConfig struct {
	ServiceFeePercent int64 `yaml:"service_fee_percent"`
	MinFeedbackLength int   `yaml:"min_feedback_length"`
	DefaultPageSize   int32 `yaml:"default_page_size"`
	MaxPageSize       int32 `yaml:"max_page_size"`
}

// SchedulerConfig contains cron schedule settings (with seconds, UTC)
type SchedulerConfig struct {
	ExpireStaleRequests  string `yaml:"expire_stale_requests"`
	SendOverdueReminders string `yaml:"send_overdue_reminders"`
}

// envOverrides lists every setting that may come from the environment.
// Unset variables stay nil and leave the file value alone.
type envOverrides struct {
	ServerHost *string `envconfig:"SERVER_HOST"`
	ServerPort *int    `envconfig:"SERVER_PORT"`
	HTTPPort   *int    `envconfig:"HTTP_PORT"`

	DBHost     *string `envconfig:"DB_HOST"`
	DBPort     *int    `envconfig:"DB_PORT"`
	DBUser     *string `envconfig:"DB_USER"`
	DBPassword *string `envconfig:"DB_PASSWORD"`
	DBName     *string `envconfig:"DB_NAME"`
	DBSSLMode  *string `envconfig:"DB_SSL_MODE"`

	LogLevel  *string `envconfig:"LOG_LEVEL"`
	LogFormat *string `envconfig:"LOG_FORMAT"`

	StorageType       *string `envconfig:"STORAGE_TYPE"`
	StorageLocalDir   *string `envconfig:"STORAGE_LOCAL_DIR"`
	S3Bucket          *string `envconfig:"S3_BUCKET"`
	S3Region          *string `envconfig:"S3_REGION"`
	S3Endpoint        *string `envconfig:"S3_ENDPOINT"`
	S3AccessKeyID     *string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretAccessKey *string `envconfig:"S3_SECRET_ACCESS_KEY"`

	RedisAddr     *string `envconfig:"REDIS_ADDR"`
	RedisPassword *string `envconfig:"REDIS_PASSWORD"`

	RabbitMQURL *string `envconfig:"RABBITMQ_URL"`

	SendGridAPIKey *string `envconfig:"SENDGRID_API_KEY"`
	SendGridFrom   *string `envconfig:"SENDGRID_FROM_EMAIL"`

	FirebaseCredentials *string `envconfig:"FIREBASE_CREDENTIALS_FILE"`

	NotifyTimeoutSeconds *int `envconfig:"NOTIFY_TIMEOUT_SECONDS"`

	JWTSecret *string `envconfig:"JWT_SECRET"`

	ServiceFeePercent *int64 `envconfig:"SERVICE_FEE_PERCENT"`
}

// Load reads configuration from a YAML file
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data)
}

// Parse builds a configuration from YAML bytes, then applies environment
// overrides, defaults and validation.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := cfg.overrideWithEnv(); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// overrideWithEnv overrides config values with environment variables
func (c *Config) overrideWithEnv() error {
	var env envOverrides
	if err := envconfig.Process("", &env); err != nil {
		return err
	}

	set(&c.Server.Host, env.ServerHost)
	set(&c.Server.Port, env.ServerPort)
	set(&c.HTTP.Port, env.HTTPPort)

	set(&c.Database.Host, env.DBHost)
	set(&c.Database.Port, env.DBPort)
	set(&c.Database.User, env.DBUser)
	set(&c.Database.Password, env.DBPassword)
	set(&c.Database.Database, env.DBName)
	set(&c.Database.SSLMode, env.DBSSLMode)

	set(&c.Log.Level, env.LogLevel)
	set(&c.Log.Format, env.LogFormat)

	set(&c.Storage.Type, env.StorageType)
	set(&c.Storage.LocalDir, env.StorageLocalDir)
	set(&c.Storage.S3.Bucket, env.S3Bucket)
	set(&c.Storage.S3.Region, env.S3Region)
	set(&c.Storage.S3.Endpoint, env.S3Endpoint)
	set(&c.Storage.S3.AccessKeyID, env.S3AccessKeyID)
	set(&c.Storage.S3.SecretAccessKey, env.S3SecretAccessKey)

	set(&c.Redis.Addr, env.RedisAddr)
	set(&c.Redis.Password, env.RedisPassword)

	set(&c.RabbitMQ.URL, env.RabbitMQURL)

	set(&c.SendGrid.APIKey, env.SendGridAPIKey)
	set(&c.SendGrid.FromEmail, env.SendGridFrom)

	set(&c.Firebase.CredentialsFile, env.FirebaseCredentials)
	set(&c.Notify.TimeoutSeconds, env.NotifyTimeoutSeconds)

	set(&c.JWT.Secret, env.JWTSecret)

	set(&c.Pricing.ServiceFeePercent, env.ServiceFeePercent)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Storage.Type == "" {
		c.Storage.Type = "local"
	}
	if c.Redis.TTLMinutes == 0 {
		c.Redis.TTLMinutes = 10
	}
	if c.RabbitMQ.Exchange == "" {
		c.RabbitMQ.Exchange = "rental.events"
	}
	if c.SendGrid.FromName == "" {
		c.SendGrid.FromName = "Rental Escrow"
	}
	if c.Notify.TimeoutSeconds == 0 {
		c.Notify.TimeoutSeconds = 5
	}
	if c.JWT.Issuer == "" {
		c.JWT.Issuer = "rental-escrow"
	}
	if c.JWT.AccessTokenExpiry == 0 {
		c.JWT.AccessTokenExpiry = 60
	}
	if c.Pricing.MinFeedbackLength == 0 {
		c.Pricing.MinFeedbackLength = 10
	}
	if c.Pricing.DefaultPageSize == 0 {
		c.Pricing.DefaultPageSize = 20
	}
	if c.Pricing.MaxPageSize == 0 {
		c.Pricing.MaxPageSize = 100
	}
	if c.Scheduler.ExpireStaleRequests == "" {
		c.Scheduler.ExpireStaleRequests = "0 0 1 * * *" // 1 AM UTC
	}
	if c.Scheduler.SendOverdueReminders == "" {
		c.Scheduler.SendOverdueReminders = "0 0 3 * * *" // 3 AM UTC
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.HTTP.Port < 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("invalid http port: %d", c.HTTP.Port)
	}
	if c.HTTP.Port != 0 && c.HTTP.Port == c.Server.Port {
		return fmt.Errorf("http port %d collides with the gRPC port", c.HTTP.Port)
	}

	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if c.Database.Database == "" {
		return fmt.Errorf("database name is required")
	}

	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT secret is required")
	}
	if len(c.JWT.Secret) < 32 {
		return fmt.Errorf("JWT secret must be at least 32 characters")
	}

	switch c.Storage.Type {
	case "local":
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("storage local_dir is required for local storage")
		}
	case "s3":
		if c.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage s3 bucket is required for s3 storage")
		}
	default:
		return fmt.Errorf("unknown storage type: %q", c.Storage.Type)
	}

	if c.SendGrid.APIKey != "" && c.SendGrid.FromEmail == "" {
		return fmt.Errorf("sendgrid from_email is required when an api key is set")
	}

	if c.Notify.TimeoutSeconds < 0 {
		return fmt.Errorf("notify timeout must not be negative: %d", c.Notify.TimeoutSeconds)
	}

	if c.Pricing.ServiceFeePercent < 0 || c.Pricing.ServiceFeePercent > 100 {
		return fmt.Errorf("service fee percent must be between 0 and 100: %d", c.Pricing.ServiceFeePercent)
	}
	if c.Pricing.MinFeedbackLength < 1 {
		return fmt.Errorf("min feedback length must be positive")
	}
	if c.Pricing.DefaultPageSize > c.Pricing.MaxPageSize {
		return fmt.Errorf("default page size %d exceeds max page size %d", c.Pricing.DefaultPageSize, c.Pricing.MaxPageSize)
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

// GetServerAddress returns the gRPC server address
func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// GetHTTPAddress returns the side HTTP address, empty when disabled
func (c *Config) GetHTTPAddress() string {
	if c.HTTP.Port == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.Server.Host, c.HTTP.Port)
}

// StorageOptions converts the storage section for storage.New.
func (c *Config) StorageOptions() storage.Config {
	return storage.Config{Type: c.Storage.Type, LocalDir: c.Storage.LocalDir, S3: c.Storage.S3}
}

// CacheTTL is the redis timeline TTL.
// NotifyTimeout is the deadline shared by the notifications of one command.
func (c *Config) NotifyTimeout() time.Duration {
	return time.Duration(c.Notify.TimeoutSeconds) * time.Second
}

func (c *Config) CacheTTL() time.Duration {
	return time.Duration(c.Redis.TTLMinutes) * time.Minute
}

// AccessTokenTTL is the lifetime of issued access tokens.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.JWT.AccessTokenExpiry) * time.Minute
}
