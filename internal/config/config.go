package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const defaultJWTSecret = "dev-secret"

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Policy       PolicyConfig
	Storage      StorageConfig
	SMS          SMSConfig
	Notification NotificationConfig
	Kafka        KafkaConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior. Format is json or console.
type LoggerConfig struct {
	Level   string
	Format  string
	Service string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// PolicyConfig tunes policy creation.
type PolicyConfig struct {
	NumberPrefix      string
	CreateMaxAttempts int
}

// StorageConfig selects where uploaded claim documents are kept.
type StorageConfig struct {
	Driver           string
	UploadDir        string
	MaxDocuments     int
	MaxDocumentBytes int64
	S3Bucket         string
	S3Region         string
	S3Endpoint       string
}

// SMSConfig holds SMS provider credentials. An empty provider logs messages only.
type SMSConfig struct {
	Provider         string
	TwilioAccountSID string
	TwilioAuthToken  string
	FromNumber       string
	BrandName        string
}

// NotificationConfig controls the outbound notification queue and workers.
// BlockWhenFull makes the memory queue wait for room instead of dropping.
type NotificationConfig struct {
	QueueDriver        string
	QueueKey           string
	QueueBuffer        int
	Workers            int
	SendTimeoutSeconds int
	BlockWhenFull      bool
}

// KafkaConfig enables publishing lifecycle events when brokers are set.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "policy-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level:   getEnv("LOG_LEVEL", "info"),
			Format:  strings.ToLower(getEnv("LOG_FORMAT", "json")),
			Service: getEnv("APP_NAME", "policy-service"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", defaultJWTSecret),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 24*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Policy: PolicyConfig{
			NumberPrefix:      getEnv("POLICY_NUMBER_PREFIX", "POL"),
			CreateMaxAttempts: getEnvAsInt("POLICY_CREATE_MAX_ATTEMPTS", 5),
		},
		Storage: StorageConfig{
			Driver:           strings.ToLower(getEnv("STORAGE_DRIVER", "local")),
			UploadDir:        getEnv("STORAGE_UPLOAD_DIR", "./uploads"),
			MaxDocuments:     getEnvAsInt("STORAGE_MAX_DOCUMENTS", 5),
			MaxDocumentBytes: int64(getEnvAsInt("STORAGE_MAX_DOCUMENT_BYTES", 10<<20)),
			S3Bucket:         os.Getenv("STORAGE_S3_BUCKET"),
			S3Region:         getEnv("AWS_REGION", "us-east-1"),
			S3Endpoint:       os.Getenv("AWS_ENDPOINT_URL"),
		},
		SMS: SMSConfig{
			Provider:         strings.ToLower(getEnv("SMS_PROVIDER", "log")),
			TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
			TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
			FromNumber:       os.Getenv("SMS_FROM_NUMBER"),
			BrandName:        getEnv("SMS_BRAND_NAME", "BONGI TRADE"),
		},
		Notification: NotificationConfig{
			QueueDriver:        strings.ToLower(getEnv("NOTIFY_QUEUE_DRIVER", "redis")),
			BlockWhenFull:      getEnvAsBool("NOTIFY_QUEUE_BLOCK", false),
			QueueKey:           getEnv("NOTIFY_QUEUE_KEY", "policy-service:notifications"),
			QueueBuffer:        getEnvAsInt("NOTIFY_QUEUE_BUFFER", 1024),
			Workers:            getEnvAsInt("NOTIFY_WORKERS", 4),
			SendTimeoutSeconds: getEnvAsInt("NOTIFY_SEND_TIMEOUT_SECONDS", 10),
		},
		Kafka: KafkaConfig{
			Brokers: getEnvAsList("KAFKA_BROKERS"),
			Topic:   getEnv("KAFKA_TOPIC", "policy-events"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects combinations that cannot work at runtime.
func (c *Config) Validate() error {
	var errs []error
	if c.App.Env == "production" && (c.Auth.JWTSecret == "" || c.Auth.JWTSecret == defaultJWTSecret) {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must be set in production"))
	}
	switch c.Storage.Driver {
	case "local":
		if c.Storage.UploadDir == "" {
			errs = append(errs, errors.New("STORAGE_UPLOAD_DIR required for local storage"))
		}
	case "s3":
		if c.Storage.S3Bucket == "" {
			errs = append(errs, errors.New("STORAGE_S3_BUCKET required for s3 storage"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver))
	}
	switch c.SMS.Provider {
	case "log":
	case "twilio":
		if c.SMS.TwilioAccountSID == "" || c.SMS.TwilioAuthToken == "" || c.SMS.FromNumber == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and SMS_FROM_NUMBER required for twilio"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown SMS_PROVIDER %q", c.SMS.Provider))
	}
	switch c.Notification.QueueDriver {
	case "redis", "memory":
	default:
		errs = append(errs, fmt.Errorf("unknown NOTIFY_QUEUE_DRIVER %q", c.Notification.QueueDriver))
	}
	if c.Policy.CreateMaxAttempts <= 0 {
		errs = append(errs, errors.New("POLICY_CREATE_MAX_ATTEMPTS must be positive"))
	}
	if c.Storage.MaxDocuments <= 0 {
		errs = append(errs, errors.New("STORAGE_MAX_DOCUMENTS must be positive"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the lifetime of issued bearer tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// SendTimeout bounds a single provider call.
func (n NotificationConfig) SendTimeout() time.Duration {
	if n.SendTimeoutSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n.SendTimeoutSeconds) * time.Second
}

// MaxUploadBytes is the largest multipart body accepted for a claim.
func (s StorageConfig) MaxUploadBytes() int64 {
	return int64(s.MaxDocuments)*s.MaxDocumentBytes + 1<<20
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
