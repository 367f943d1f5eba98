package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort  string
	AppEnv   string
	LogLevel string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables
	S3BucketName   string
	PresignTTL     time.Duration

	JWTPrivateKeyPath string
	JWTPublicKeyPath  string
	JWTExpiry         time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SMTPEnabled  bool
	SNSRegion    string
	SNSEnabled   bool

	RedisURL          string // empty disables the directory cache
	RedisPoolSize     int    // 0 keeps the go-redis default
	RedisDialTimeout  time.Duration
	RedisIOTimeout    time.Duration
	DirectoryCacheTTL time.Duration

	SubmitRatePerSecond float64
	SubmitBurst         int
	NotifyQueueSize     int
	MaxUploadBytes      int64

	MetricsEnabled bool
	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users         string
	Verifications string
	Notifications string
	Documents     string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort:  getEnv("APP_PORT", "3000"),
		AppEnv:   getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:         getEnv("DYNAMO_TABLE_USERS", "users"),
			Verifications: getEnv("DYNAMO_TABLE_VERIFICATIONS", "kyc_verifications"),
			Notifications: getEnv("DYNAMO_TABLE_NOTIFICATIONS", "notifications"),
			Documents:     getEnv("DYNAMO_TABLE_DOCUMENTS", "kyc_documents"),
		},
		S3BucketName: getEnv("S3_BUCKET_NAME", "kyc-documents"),
		PresignTTL:   getEnvDuration("S3_PRESIGN_TTL", 15*time.Minute),

		JWTPrivateKeyPath: getEnv("JWT_PRIVATE_KEY_PATH", "./private_key.pem"),
		JWTPublicKeyPath:  getEnv("JWT_PUBLIC_KEY_PATH", "./public_key.pem"),
		JWTExpiry:         time.Duration(getEnvInt("JWT_EXPIRY_DAYS", 7)) * 24 * time.Hour,

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPEnabled:  getEnvBool("SMTP_ENABLED", false),
		SNSRegion:    getEnv("SNS_REGION", "us-east-1"),
		SNSEnabled:   getEnvBool("SNS_ENABLED", false),

		RedisURL:          getEnv("REDIS_URL", ""),
		RedisPoolSize:     getEnvInt("REDIS_POOL_SIZE", 0),
		RedisDialTimeout:  getEnvDuration("REDIS_DIAL_TIMEOUT", 2*time.Second),
		RedisIOTimeout:    getEnvDuration("REDIS_IO_TIMEOUT", 500*time.Millisecond),
		DirectoryCacheTTL: getEnvDuration("DIRECTORY_CACHE_TTL", 5*time.Minute),

		SubmitRatePerSecond: getEnvFloat("SUBMIT_RATE_PER_SECOND", 1),
		SubmitBurst:         getEnvInt("SUBMIT_BURST", 3),
		NotifyQueueSize:     getEnvInt("NOTIFY_QUEUE_SIZE", 256),
		MaxUploadBytes:      int64(getEnvInt("MAX_UPLOAD_MB", 10)) << 20,

		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

// IsDevelopment reports whether the service runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go duration strings such as "90s" or "5m".
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
