package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Log      LogConfig
	S3       S3Config
	Mailbox  MailboxConfig
	App      AppConfig
	Oracles  OracleConfigs
}

// AppConfig holds recruiting-pipeline-wide settings that aren't specific to
// any one backend (mail copy, candidate-facing links, webhook auth).
type AppConfig struct {
	FrontendURL        string // base URL the screening link token is appended to
	CompanyName        string // used in outbound mail copy
	VoiceWebhookSecret string // HMAC key for the voice-screening webhook; empty disables verification
	VoiceAgentID       string // external voice-agent id handed to the candidate browser to start the call
}

// OracleConfig is one oracle's external-agent id and mock switch, read from
// EXTERNAL_<NAME>_AGENT_ID / <NAME>_MOCK.
type OracleConfig struct {
	AgentID string
	Mock    bool
}

// OracleConfigs bundles the five judgement/generator oracles' configs.
type OracleConfigs struct {
	Classifier         OracleConfig
	ResumeScorer       OracleConfig
	InterviewEvaluator OracleConfig
	Summarizer         OracleConfig
	JobGenerator       OracleConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port string
	Env  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host            string
	Port            string
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxConns        int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	AccessSecret   string
	RefreshSecret  string
	AccessExpiry   time.Duration
	RefreshExpiry  time.Duration
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level     string
	Format    string
	SentryDSN string // empty disables crash reporting
}

// S3Config holds S3 storage configuration
type S3Config struct {
	Endpoint  string
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
}

// MailboxConfig configures the inbound-mail listener: either an OAuth2
// push session against a mailbox API, or a headless-browser poll session
// against a webmail URL, with the latter also serving as the former's
// automatic failover target.
type MailboxConfig struct {
	Mode           string // push | poll
	EmailAddress   string
	APIBaseURL     string // push mode: REST endpoint fronting the mailbox
	WebmailURL     string // poll mode: URL the headless browser drives
	ClientID       string
	ClientSecret   string
	RefreshToken   string
	CredentialsKey string        // derives the AES-GCM key sealing the stored token
	PollInterval   time.Duration
	KeepAlive      time.Duration // push mode long-poll ceiling
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("SERVER_ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "jobber"),
			Password:        getEnv("DB_PASSWORD", "jobber"),
			DBName:          getEnv("DB_NAME", "jobber"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			AccessSecret:   getEnv("JWT_ACCESS_SECRET", ""),
			RefreshSecret:  getEnv("JWT_REFRESH_SECRET", ""),
			AccessExpiry:   getEnvAsDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
			RefreshExpiry:  getEnvAsDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),
		},
		Log: LogConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			Format:    getEnv("LOG_FORMAT", "json"),
			SentryDSN: getEnv("SENTRY_DSN", ""),
		},
		S3: S3Config{
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			Bucket:    getEnv("S3_BUCKET", ""),
			Region:    getEnv("S3_REGION", "eu-central"),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		},
		Mailbox: MailboxConfig{
			Mode:           getEnv("MAILBOX_MODE", "poll"),
			EmailAddress:   getEnv("MAILBOX_EMAIL", ""),
			APIBaseURL:     getEnv("MAILBOX_API_BASE_URL", ""),
			WebmailURL:     getEnv("MAILBOX_WEBMAIL_URL", ""),
			ClientID:       getEnv("MAILBOX_CLIENT_ID", ""),
			ClientSecret:   getEnv("MAILBOX_CLIENT_SECRET", ""),
			RefreshToken:   getEnv("MAILBOX_REFRESH_TOKEN", ""),
			CredentialsKey: getEnv("MAILBOX_CREDENTIALS_KEY", ""),
			PollInterval:   getEnvAsDuration("MAILBOX_POLL_INTERVAL", 30*time.Second),
			KeepAlive:      getEnvAsDuration("MAILBOX_KEEPALIVE", 25*time.Minute),
		},
		App: AppConfig{
			FrontendURL:        getEnv("FRONTEND_URL", "http://localhost:3000"),
			CompanyName:        getEnv("COMPANY_NAME", "Our Company"),
			VoiceWebhookSecret: getEnv("VOICE_WEBHOOK_SECRET", ""),
			VoiceAgentID:       getEnv("VOICE_AGENT_ID", ""),
		},
		Oracles: OracleConfigs{
			Classifier:         loadOracleConfig("CLASSIFIER"),
			ResumeScorer:       loadOracleConfig("RESUME_SCORER"),
			InterviewEvaluator: loadOracleConfig("INTERVIEW_EVALUATOR"),
			Summarizer:         loadOracleConfig("SUMMARIZER"),
			JobGenerator:       loadOracleConfig("JOB_GENERATOR"),
		},
	}

	// Validate required fields
	if cfg.JWT.AccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.JWT.RefreshSecret == "" {
		return nil, fmt.Errorf("JWT_REFRESH_SECRET is required")
	}

	return cfg, nil
}

// DSN returns the database connection string. DATABASE_URL overrides the
// individual DB_* fields when set, for deployments that hand out a single
// connection string (Heroku/Railway-style platforms).
func (c *DatabaseConfig) DSN() string {
	if url := os.Getenv("DATABASE_URL"); url != "" {
		return url
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// loadOracleConfig reads EXTERNAL_<name>_AGENT_ID and <name>_MOCK for one
// oracle, e.g. name="RESUME_SCORER" reads EXTERNAL_RESUME_SCORER_AGENT_ID
// and RESUME_SCORER_MOCK.
func loadOracleConfig(name string) OracleConfig {
	return OracleConfig{
		AgentID: getEnv("EXTERNAL_"+name+"_AGENT_ID", ""),
		Mock:    getEnvAsBool(name+"_MOCK", false),
	}
}
