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

// Server captures process-wide configuration.
type Server struct {
	Addr          string
	Environment   string
	LogLevel      string
	JWTSigningKey string
	JWTIssuer     string
	JWTAudience   string
	DatabaseURL   string

	Redis         RedisConfig
	Kafka         KafkaConfig
	Verification  Verification
	Commerce      Commerce
	Media         Media
	ProfileImages ProfileImages
	RateLimit     RateLimit
}

// RedisConfig holds connection settings; an empty URL disables Redis and the
// verification status cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit outbox publisher. No brokers means audit
// events stay in the outbox table.
type KafkaConfig struct {
	Brokers           []string
	AuditTopic        string
	OpsTopic          string
	SecurityTopic     string
	ConsumerGroup     string
	Partitions        int32
	ReplicationFactor int16
	PollInterval      time.Duration
}

// Verification holds the identity-verification policy and the vendor settings.
type Verification struct {
	DaysGoodFor    int
	PlatformName   string
	StatusCacheTTL time.Duration
	SoftwareSecure SoftwareSecure
}

// Validity converts DaysGoodFor into a duration.
func (v Verification) Validity() time.Duration {
	return time.Duration(v.DaysGoodFor) * 24 * time.Hour
}

// SoftwareSecure configures the third-party photo verification vendor.
type SoftwareSecure struct {
	APIURL           string
	APIAccessKey     string
	APISecretKey     string
	FaceImageAESKey  string // hex-encoded 32 byte key
	RSAPublicKeyPEM  string
	CallbackURL      string
	ReviewingService string
	Timeout          time.Duration
	FailureThreshold int
	Cooldown         time.Duration
}

// Commerce configures the ecommerce API client.
type Commerce struct {
	APIURL          string
	SigningKey      string
	ServiceUsername string
	Timeout         time.Duration
}

// Media locates stored blobs: sealed verification photos and profile
// images. With Backend "oss" blobs go to the OSS bucket; otherwise an empty
// Dir keeps them in memory.
type Media struct {
	Backend string
	Dir     string
	BaseURL string
	OSS     OSS
}

type OSS struct {
	Endpoint        string
	AccessKeyID     string
	AccessKeySecret string
	SecurityToken   string
	Bucket          string
	Prefix          string
	BaseURL         string
}

// ProfileImages bounds accepted profile image uploads.
type ProfileImages struct {
	MinBytes  int64
	MaxBytes  int64
	SecretKey string
}

// RateLimit bounds authenticated API calls per user. Zero Requests disables it.
type RateLimit struct {
	Requests int
	Window   time.Duration
}

func (s Server) IsProduction() bool {
	return s.Environment == "production"
}

// LoadDotEnv seeds the environment from the given .env files. Missing files
// are skipped and variables already set in the environment win.
func LoadDotEnv(paths ...string) {
	for _, p := range paths {
		_ = godotenv.Load(p)
	}
}

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() (Server, error) {
	var errs []error
	env := envOr("VERITAS_ENV", "dev")

	cfg := Server{
		Addr:          envOr("VERITAS_ADDR", ":8080"),
		Environment:   env,
		LogLevel:      envOr("LOG_LEVEL", "info"),
		JWTSigningKey: os.Getenv("JWT_SIGNING_KEY"),
		JWTIssuer:     envOr("JWT_ISSUER", "veritas"),
		JWTAudience:   envOr("JWT_AUDIENCE", "veritas-api"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envInt("REDIS_POOL_SIZE", 10, &errs),
			MinIdleConns: envInt("REDIS_MIN_IDLE_CONNS", 2, &errs),
			DialTimeout:  envDuration("REDIS_DIAL_TIMEOUT", 5*time.Second, &errs),
			ReadTimeout:  envDuration("REDIS_READ_TIMEOUT", 3*time.Second, &errs),
			WriteTimeout: envDuration("REDIS_WRITE_TIMEOUT", 3*time.Second, &errs),
		},
		Kafka: KafkaConfig{
			Brokers:           envList("KAFKA_BROKERS"),
			AuditTopic:        envOr("KAFKA_AUDIT_TOPIC", "veritas.audit.verification"),
			OpsTopic:          envOr("KAFKA_OPS_TOPIC", "veritas.audit.ops"),
			SecurityTopic:     envOr("KAFKA_SECURITY_TOPIC", "veritas.audit.security"),
			ConsumerGroup:     envOr("KAFKA_CONSUMER_GROUP", "veritas-audit-archive"),
			Partitions:        int32(envInt("KAFKA_AUDIT_PARTITIONS", 3, &errs)),
			ReplicationFactor: int16(envInt("KAFKA_AUDIT_REPLICATION", 1, &errs)),
			PollInterval:      envDuration("AUDIT_OUTBOX_POLL_INTERVAL", 2*time.Second, &errs),
		},
		Verification: Verification{
			DaysGoodFor:    envInt("VERIFY_DAYS_GOOD_FOR", 365, &errs),
			PlatformName:   envOr("PLATFORM_NAME", "Veritas"),
			StatusCacheTTL: envDuration("VERIFY_STATUS_CACHE_TTL", 5*time.Minute, &errs),
			SoftwareSecure: SoftwareSecure{
				APIURL:           os.Getenv("SOFTWARE_SECURE_API_URL"),
				APIAccessKey:     os.Getenv("SOFTWARE_SECURE_API_ACCESS_KEY"),
				APISecretKey:     os.Getenv("SOFTWARE_SECURE_API_SECRET_KEY"),
				FaceImageAESKey:  os.Getenv("SOFTWARE_SECURE_FACE_IMAGE_AES_KEY"),
				RSAPublicKeyPEM:  os.Getenv("SOFTWARE_SECURE_RSA_PUBLIC_KEY"),
				CallbackURL:      os.Getenv("SOFTWARE_SECURE_CALLBACK_URL"),
				ReviewingService: envOr("SOFTWARE_SECURE_REVIEWING_SERVICE", "SoftwareSecure"),
				Timeout:          envDuration("SOFTWARE_SECURE_TIMEOUT", 10*time.Second, &errs),
				FailureThreshold: envInt("SOFTWARE_SECURE_FAILURE_THRESHOLD", 5, &errs),
				Cooldown:         envDuration("SOFTWARE_SECURE_COOLDOWN", 30*time.Second, &errs),
			},
		},
		Commerce: Commerce{
			APIURL:          os.Getenv("ECOMMERCE_API_URL"),
			SigningKey:      os.Getenv("ECOMMERCE_API_SIGNING_KEY"),
			ServiceUsername: envOr("ECOMMERCE_SERVICE_USERNAME", "veritas_worker"),
			Timeout:         envDuration("ECOMMERCE_API_TIMEOUT", 5*time.Second, &errs),
		},
		Media: Media{
			Backend: envOr("MEDIA_BACKEND", "local"),
			Dir:     os.Getenv("MEDIA_DIR"),
			BaseURL: envOr("MEDIA_BASE_URL", "http://localhost:8080/media"),
			OSS: OSS{
				Endpoint:        os.Getenv("MEDIA_OSS_ENDPOINT"),
				AccessKeyID:     os.Getenv("MEDIA_OSS_ACCESS_KEY"),
				AccessKeySecret: os.Getenv("MEDIA_OSS_SECRET_KEY"),
				SecurityToken:   os.Getenv("MEDIA_OSS_SECURITY_TOKEN"),
				Bucket:          os.Getenv("MEDIA_OSS_BUCKET"),
				Prefix:          envOr("MEDIA_OSS_PREFIX", "veritas"),
				BaseURL:         os.Getenv("MEDIA_OSS_BASE_URL"),
			},
		},
		ProfileImages: ProfileImages{
			MinBytes:  int64(envInt("PROFILE_IMAGE_MIN_BYTES", 100, &errs)),
			MaxBytes:  int64(envInt("PROFILE_IMAGE_MAX_BYTES", 1024*1024, &errs)),
			SecretKey: envOr("PROFILE_IMAGE_SECRET_KEY", "profile-image-secret"),
		},
		RateLimit: RateLimit{
			Requests: envInt("RATE_LIMIT_REQUESTS", 120, &errs),
			Window:   envDuration("RATE_LIMIT_WINDOW", time.Minute, &errs),
		},
	}

	if cfg.JWTSigningKey == "" {
		if cfg.IsProduction() {
			errs = append(errs, errors.New("JWT_SIGNING_KEY is required in production"))
		}
		// Use a default for development - must be overridden in production
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}
	if cfg.Verification.DaysGoodFor <= 0 {
		errs = append(errs, errors.New("VERIFY_DAYS_GOOD_FOR must be positive"))
	}
	switch cfg.Media.Backend {
	case "local":
	case "oss":
		if cfg.Media.OSS.Bucket == "" {
			errs = append(errs, errors.New("MEDIA_OSS_BUCKET is required when MEDIA_BACKEND=oss"))
		}
	default:
		errs = append(errs, fmt.Errorf("MEDIA_BACKEND: unknown backend %q", cfg.Media.Backend))
	}

	if err := errors.Join(errs...); err != nil {
		return Server{}, err
	}
	return cfg, nil
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int, errs *[]error) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration, errs *[]error) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		*errs = append(*errs, fmt.Errorf("%s: %w", key, err))
		return fallback
	}
	return d
}

func envList(key string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
