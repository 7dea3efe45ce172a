package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	AWS          AWSConfig          `yaml:"aws"`
	Athena       AthenaConfig       `yaml:"athena"`
	Snowflake    SnowflakeConfig    `yaml:"snowflake"`
	Query        QueryConfig        `yaml:"query"`
	Cache        CacheConfig        `yaml:"cache"`
	Storage      StorageConfig      `yaml:"storage"`
	Verification VerificationConfig `yaml:"verification"`
	Lookup       LookupConfig       `yaml:"lookup"`
	Bulk         BulkConfig         `yaml:"bulk"`
	Auth         AuthConfig         `yaml:"auth"`
	Logging      LoggingConfig      `yaml:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`

	// Bulk pages poll the data lake record by record, so reads and writes
	// get long budgets. Lookups are bounded separately by the request timeout.
	ReadTimeoutSeconds  int `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int `yaml:"idle_timeout_seconds"`
}

// ReadTimeout returns the http.Server read timeout.
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the http.Server write timeout.
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// IdleTimeout returns the http.Server keep-alive idle timeout.
func (c ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// GetHost returns the server host, with ECS detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// AWSConfig holds the credentials and region shared by every AWS client
// (Athena, DynamoDB, S3, SES).
type AWSConfig struct {
	Region    string `yaml:"region"`
	Profile   string `yaml:"profile"` // Empty string uses default credential chain (IAM role on ECS)
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
}

// GetProfile returns the AWS profile, with environment variable override
func (c AWSConfig) GetProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return ""
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.Profile
}

// AthenaConfig holds Athena query settings
type AthenaConfig struct {
	OutputLocation string `yaml:"output_location"` // e.g. s3://bucket/athena-output/
	Database       string `yaml:"database"`
	WorkGroup      string `yaml:"work_group"`
}

// SnowflakeConfig holds Snowflake connection settings for the alternative
// data lake backend
type SnowflakeConfig struct {
	Account   string `yaml:"account"`
	User      string `yaml:"user"`
	Password  string `yaml:"password"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
	Warehouse string `yaml:"warehouse"`
	// ConnectionString is the console export format; fields set above win.
	ConnectionString string `yaml:"connection_string"`
}

// QueryConfig controls the email search against the data lake
type QueryConfig struct {
	Backend           string `yaml:"backend"` // "athena" or "snowflake"
	Table             string `yaml:"table"`
	SubmitAttempts    int    `yaml:"submit_attempts"`
	PollAttempts      int    `yaml:"poll_attempts"`
	PollInitialMillis int    `yaml:"poll_initial_millis"`
	PollMaxMillis     int    `yaml:"poll_max_millis"`
	NotFoundTemplate  string `yaml:"not_found_template"`
}

// CacheConfig holds lookup cache settings
type CacheConfig struct {
	Backend       string `yaml:"backend"` // "dynamodb", "redis", "memory" or "none"
	DynamoDBTable string `yaml:"dynamodb_table"`
	RedisURL      string `yaml:"redis_url"`
	KeyPrefix     string `yaml:"key_prefix"`
	TTLDays       int    `yaml:"ttl_days"`
}

// TTL returns the cache retention window as a duration
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLDays) * 24 * time.Hour
}

// StorageConfig holds results store configuration
type StorageConfig struct {
	Type      string `yaml:"type"`      // "s3" or "local"
	S3Bucket  string `yaml:"s3_bucket"` // "bucket" or "s3://bucket/base/prefix/"
	LocalPath string `yaml:"local_path"`
}

// VerificationConfig holds email verification provider settings.
type VerificationConfig struct {
	Enabled        bool    `yaml:"enabled"`
	Provider       string  `yaml:"provider"` // "ses" or "http"
	Endpoint       string  `yaml:"endpoint"`
	APIKeyEnv      string  `yaml:"api_key_env"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c VerificationConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// APIKey reads the provider key from the configured environment variable.
func (c VerificationConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// LookupConfig holds single-lookup behaviour switches
type LookupConfig struct {
	RequestTimeoutSeconds int  `yaml:"request_timeout_seconds"`
	RetryBypassesCache    bool `yaml:"retry_bypasses_cache"`
}

// RequestTimeout returns the overall deadline for one HTTP request's lookups.
func (c LookupConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// BulkConfig holds bulk upload settings
type BulkConfig struct {
	ChunkSize       int   `yaml:"chunk_size"`
	DailyLimit      int   `yaml:"daily_limit"`
	DefaultPageSize int   `yaml:"default_page_size"`
	MaxPageSize     int   `yaml:"max_page_size"`
	MaxUploadMB     int64 `yaml:"max_upload_mb"`
	LockTTLSeconds  int   `yaml:"lock_ttl_seconds"`

	// FinalizeTimeoutSeconds bounds verification and storage of a page
	// once its lookups have returned.
	FinalizeTimeoutSeconds int `yaml:"finalize_timeout_seconds"`
}

// LockTTL returns how long a duplicate-upload guard is held at most.
func (c BulkConfig) LockTTL() time.Duration {
	return time.Duration(c.LockTTLSeconds) * time.Second
}

// FinalizeTimeout returns the post-lookup budget.
func (c BulkConfig) FinalizeTimeout() time.Duration {
	return time.Duration(c.FinalizeTimeoutSeconds) * time.Second
}

// AuthConfig holds caller identity settings. The service never signs users
// in; it only reads an identity established upstream.
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	Issuer        string `yaml:"issuer"`
	TrustedHeader string `yaml:"trusted_header"`
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"`
}

// ShouldRedact reports whether email addresses are masked in logs (default true).
func (c LoggingConfig) ShouldRedact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

func (cfg *Config) applyDefaults() {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if len(cfg.Server.AllowedOrigins) == 0 {
		cfg.Server.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 300
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 600
	}
	if cfg.Server.IdleTimeoutSeconds == 0 {
		cfg.Server.IdleTimeoutSeconds = 120
	}
	if cfg.AWS.Region == "" {
		cfg.AWS.Region = "ap-south-1"
	}
	if cfg.Query.Backend == "" {
		cfg.Query.Backend = "athena"
	}
	if cfg.Query.Table == "" {
		cfg.Query.Table = "my_table"
	}
	if cfg.Query.SubmitAttempts == 0 {
		cfg.Query.SubmitAttempts = 3
	}
	if cfg.Query.PollAttempts == 0 {
		cfg.Query.PollAttempts = 10
	}
	if cfg.Query.PollInitialMillis == 0 {
		cfg.Query.PollInitialMillis = 1000
	}
	if cfg.Query.PollMaxMillis == 0 {
		cfg.Query.PollMaxMillis = 10000
	}
	if cfg.Cache.Backend == "" {
		cfg.Cache.Backend = "dynamodb"
	}
	if cfg.Cache.DynamoDBTable == "" {
		cfg.Cache.DynamoDBTable = "email-lookup-cache"
	}
	if cfg.Cache.KeyPrefix == "" {
		cfg.Cache.KeyPrefix = "email-lookup:"
	}
	if cfg.Cache.TTLDays == 0 {
		cfg.Cache.TTLDays = 30
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "s3"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data"
	}
	if cfg.Verification.Provider == "" {
		cfg.Verification.Provider = "ses"
	}
	if cfg.Verification.TimeoutSeconds == 0 {
		cfg.Verification.TimeoutSeconds = 30
	}
	if cfg.Lookup.RequestTimeoutSeconds == 0 {
		cfg.Lookup.RequestTimeoutSeconds = 300
	}
	if cfg.Bulk.ChunkSize == 0 {
		cfg.Bulk.ChunkSize = 10
	}
	if cfg.Bulk.DailyLimit == 0 {
		cfg.Bulk.DailyLimit = 1000
	}
	if cfg.Bulk.DefaultPageSize == 0 {
		cfg.Bulk.DefaultPageSize = 100
	}
	if cfg.Bulk.MaxPageSize == 0 {
		cfg.Bulk.MaxPageSize = 1000
	}
	if cfg.Bulk.MaxUploadMB == 0 {
		cfg.Bulk.MaxUploadMB = 20
	}
	if cfg.Bulk.LockTTLSeconds == 0 {
		cfg.Bulk.LockTTLSeconds = 600
	}
	if cfg.Bulk.FinalizeTimeoutSeconds == 0 {
		cfg.Bulk.FinalizeTimeoutSeconds = 60
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("AWS_REGION"); v != "" {
		cfg.AWS.Region = v
	}
	if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
		cfg.AWS.AccessKey = v
	}
	if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
		cfg.AWS.SecretKey = v
	}
	if v := os.Getenv("ATHENA_OUTPUT_LOCATION"); v != "" {
		cfg.Athena.OutputLocation = v
	}
	if v := os.Getenv("ATHENA_DATABASE"); v != "" {
		cfg.Athena.Database = v
	}
	if v := os.Getenv("QUERY_BACKEND"); v != "" {
		cfg.Query.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("SNOWFLAKE_ACCOUNT"); v != "" {
		cfg.Snowflake.Account = v
	}
	if v := os.Getenv("SNOWFLAKE_USER"); v != "" {
		cfg.Snowflake.User = v
	}
	if v := os.Getenv("SNOWFLAKE_PASSWORD"); v != "" {
		cfg.Snowflake.Password = v
	}
	if v := os.Getenv("SNOWFLAKE_CONNECTION_STRING"); v != "" {
		cfg.Snowflake.ConnectionString = v
	}
	if v := os.Getenv("DYNAMODB_CACHE_TABLE"); v != "" {
		cfg.Cache.DynamoDBTable = v
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.RedisURL = v
	}
	if v := os.Getenv("S3_BUCKET_NAME"); v != "" {
		cfg.Storage.S3Bucket = v
	}
	if v := os.Getenv("AUTH_JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("AUTH_TRUSTED_HEADER"); v != "" {
		cfg.Auth.TrustedHeader = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	return cfg, nil
}
