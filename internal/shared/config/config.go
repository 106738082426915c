package config

import (
	"strings"

	"github.com/spf13/viper"

	"registration-backend/internal/shared/telemetry"
)

const defaultMaxFileBytes = 10 * 1024 * 1024

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	// TrustedProxies lists proxy IPs/CIDRs whose forwarding headers gin honours.
	TrustedProxies  []string
	DatabaseURL     string
	RedisURL        string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	SSEKMSKeyID     string

	QueueBackend string
	SQSQueueURL  string
	NATSURL      string
	NATSSubject  string

	SendGridAPIKey  string
	MailFromAddress string
	MailFromName    string
	RollbarToken    string

	MaxFileBytes    int64
	// MaxRequestBytes caps a submission body; 0 leaves it unbounded.
	MaxRequestBytes int64
	IntakeRate      float64
	IntakeBurst     int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	v.SetDefault("PORT", "8080")
	v.SetDefault("ENV", "dev")
	v.SetDefault("CORS_ALLOW_ORIGINS", "http://localhost:5173")
	v.SetDefault("OBJECT_STORE", "local")
	v.SetDefault("LOCAL_STORE_DIR", "./data")
	v.SetDefault("QUEUE_BACKEND", "")
	v.SetDefault("REGISTRATION_NATS_SUBJECT", "registrations.submitted")
	v.SetDefault("MAIL_FROM_ADDRESS", "noreply@localhost")
	v.SetDefault("MAIL_FROM_NAME", "Student Registration")
	v.SetDefault("REGISTRATION_MAX_FILE_BYTES", defaultMaxFileBytes)
	v.SetDefault("REGISTRATION_MAX_REQUEST_BYTES", 0)
	v.SetDefault("REGISTRATION_RATE_PER_SEC", 0.2)
	v.SetDefault("REGISTRATION_RATE_BURST", 5)
	v.AutomaticEnv()

	env := normalizeEnv(v.GetString("ENV"))
	dbURL := strings.TrimSpace(v.GetString("DATABASE_URL"))

	if env == "production" && dbURL == "" {
		telemetry.Warn("config.database_url_missing", map[string]any{"env": env})
	}

	return Config{
		Port:            v.GetString("PORT"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(v.GetString("CORS_ALLOW_ORIGINS")),
		TrustedProxies:  splitAndTrim(v.GetString("TRUSTED_PROXIES")),
		DatabaseURL:     dbURL,
		RedisURL:        strings.TrimSpace(v.GetString("REDIS_URL")),
		ObjectStoreType: normalizeStoreType(v.GetString("OBJECT_STORE")),
		LocalStoreDir:   v.GetString("LOCAL_STORE_DIR"),
		AWSRegion:       v.GetString("AWS_REGION"),
		S3Bucket:        v.GetString("S3_BUCKET"),
		S3Prefix:        v.GetString("S3_PREFIX"),
		SSEKMSKeyID:     v.GetString("SSE_KMS_KEY_ID"),
		QueueBackend:    normalizeQueueBackend(v.GetString("QUEUE_BACKEND")),
		SQSQueueURL:     strings.TrimSpace(v.GetString("RA_SQS_QUEUE_URL")),
		NATSURL:         strings.TrimSpace(v.GetString("NATS_URL")),
		NATSSubject:     v.GetString("REGISTRATION_NATS_SUBJECT"),
		SendGridAPIKey:  v.GetString("SENDGRID_API_KEY"),
		MailFromAddress: v.GetString("MAIL_FROM_ADDRESS"),
		MailFromName:    v.GetString("MAIL_FROM_NAME"),
		RollbarToken:    v.GetString("ROLLBAR_TOKEN"),
		MaxFileBytes:    positiveInt64(v.GetInt64("REGISTRATION_MAX_FILE_BYTES"), defaultMaxFileBytes),
		MaxRequestBytes: max(v.GetInt64("REGISTRATION_MAX_REQUEST_BYTES"), 0),
		IntakeRate:      v.GetFloat64("REGISTRATION_RATE_PER_SEC"),
		IntakeBurst:     v.GetInt("REGISTRATION_RATE_BURST"),
	}
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "s3":
		return "s3"
	default:
		return "local"
	}
}

func normalizeQueueBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "nats":
		return "nats"
	default:
		return ""
	}
}

func positiveInt64(v, def int64) int64 {
	if v <= 0 {
		return def
	}
	return v
}
