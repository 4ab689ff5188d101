package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration for the MathMentor API,
// loaded once from the environment at startup.
type Config struct {
	Environment string

	Server        ServerConfig
	Logging       LoggingConfig
	Scylla        ScyllaConfig
	Redis         RedisConfig
	Kafka         KafkaConfig
	Elasticsearch ElasticsearchConfig
	Clickhouse    ClickhouseConfig
	Auth          AuthConfig
	KMS           KMSConfig
	Bucketing     BucketingConfig
}

type ServerConfig struct {
	Host         string
	Port         int
	TLSPort      int
	EnableTLS    bool
	AutoCert     bool
	Domain       string
	CertFile     string
	KeyFile      string
	AutoCertDir  string
	Email        string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ScyllaConfig struct {
	Nodes    []string
	Keyspace string
	Username string
	Password string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
	PoolSize int
}

type KafkaConfig struct {
	Brokers        []string
	AuthEventTopic string
}

type ElasticsearchConfig struct {
	URL      string
	Username string
	Password string

	NoteIndex     string
	MaterialIndex string
}

type ClickhouseConfig struct {
	URL      string
	Username string
	Password string
	Database string
}

// AuthConfig drives the admin login flow: token signing, session
// lifetime and the lockout policy applied to repeated failures.
type AuthConfig struct {
	JWTSecret        string
	SessionTTL       time.Duration
	BcryptCost       int
	MaxVerifyWorkers int
	LockoutThreshold int
	LockoutWindow    time.Duration
	DBTimeout        time.Duration
	LoginRatePerMin  int
}

type KMSConfig struct {
	Enabled bool
	KeyID   string
	Region  string
}

type BucketingConfig struct {
	ProfileBuckets int
}

// DevJWTSecret is only ever used when MATHMENTOR_JWT_SECRET is unset.
// Startup logs a loud warning when it is in effect.
const DevJWTSecret = "mathmentor-dev-secret-do-not-use"

var (
	global *Config
	once   sync.Once
)

// LoadConfig reads configuration from the environment (optionally via a
// .env file) and caches it globally.
func LoadConfig() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		global = &Config{
			Environment: getEnv("MATHMENTOR_ENV", "development"),
			Server: ServerConfig{
				Host:         getEnv("SERVER_HOST", "0.0.0.0"),
				Port:         getEnvInt("SERVER_PORT", 8080),
				TLSPort:      getEnvInt("SERVER_TLS_PORT", 8443),
				EnableTLS:    getEnvBool("SERVER_ENABLE_TLS", false),
				AutoCert:     getEnvBool("SERVER_AUTO_CERT", false),
				Domain:       getEnv("SERVER_DOMAIN", "localhost"),
				CertFile:     getEnv("SERVER_CERT_FILE", ""),
				KeyFile:      getEnv("SERVER_KEY_FILE", ""),
				AutoCertDir:  getEnv("SERVER_AUTOCERT_DIR", "/var/lib/mathmentor/certs"),
				Email:        getEnv("SERVER_ACME_EMAIL", ""),
				ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 15*time.Second),
				WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
				IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			},
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "console"),
			},
			Scylla: ScyllaConfig{
				Nodes:    getEnvList("SCYLLA_NODES", []string{"127.0.0.1:9042"}),
				Keyspace: getEnv("SCYLLA_KEYSPACE", "mathmentor"),
				Username: getEnv("SCYLLA_USERNAME", ""),
				Password: getEnv("SCYLLA_PASSWORD", ""),
			},
			Redis: RedisConfig{
				URL:      getEnv("REDIS_URL", "redis://127.0.0.1:6379"),
				Password: getEnv("REDIS_PASSWORD", ""),
				DB:       getEnvInt("REDIS_DB", 0),
				PoolSize: getEnvInt("REDIS_POOL_SIZE", 50),
			},
			Kafka: KafkaConfig{
				Brokers:        getEnvList("KAFKA_BROKERS", []string{"127.0.0.1:9092"}),
				AuthEventTopic: getEnv("KAFKA_AUTH_EVENT_TOPIC", "mathmentor.auth-events"),
			},
			Elasticsearch: ElasticsearchConfig{
				URL:           getEnv("ELASTICSEARCH_URL", "http://127.0.0.1:9200"),
				Username:      getEnv("ELASTICSEARCH_USERNAME", ""),
				Password:      getEnv("ELASTICSEARCH_PASSWORD", ""),
				NoteIndex:     getEnv("ELASTICSEARCH_NOTE_INDEX", "mathmentor-study-notes"),
				MaterialIndex: getEnv("ELASTICSEARCH_MATERIAL_INDEX", "mathmentor-tutor-materials"),
			},
			Clickhouse: ClickhouseConfig{
				URL:      getEnv("CLICKHOUSE_URL", "127.0.0.1:9000"),
				Username: getEnv("CLICKHOUSE_USERNAME", "default"),
				Password: getEnv("CLICKHOUSE_PASSWORD", ""),
				Database: getEnv("CLICKHOUSE_DATABASE", "mathmentor"),
			},
			Auth: AuthConfig{
				JWTSecret:        getEnv("MATHMENTOR_JWT_SECRET", DevJWTSecret),
				SessionTTL:       getEnvDuration("AUTH_SESSION_TTL", 7*24*time.Hour),
				BcryptCost:       getEnvInt("AUTH_BCRYPT_COST", 12),
				MaxVerifyWorkers: getEnvInt("AUTH_MAX_VERIFY_WORKERS", 8),
				LockoutThreshold: getEnvInt("AUTH_LOCKOUT_THRESHOLD", 5),
				LockoutWindow:    getEnvDuration("AUTH_LOCKOUT_WINDOW", 15*time.Minute),
				DBTimeout:        getEnvDuration("AUTH_DB_TIMEOUT", 5*time.Second),
				LoginRatePerMin:  getEnvInt("AUTH_LOGIN_RATE_PER_MIN", 20),
			},
			KMS: KMSConfig{
				Enabled: getEnvBool("KMS_ENABLED", false),
				KeyID:   getEnv("KMS_KEY_ID", ""),
				Region:  getEnv("KMS_REGION", "ap-south-1"),
			},
			Bucketing: BucketingConfig{
				ProfileBuckets: getEnvInt("PROFILE_BUCKETS", 64),
			},
		}
	})

	return global
}

// Get returns the cached config, loading it on first use.
func Get() *Config {
	if global == nil {
		return LoadConfig()
	}
	return global
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// UsingDevJWTSecret reports whether the insecure development signing
// secret is in effect.
func (c *Config) UsingDevJWTSecret() bool {
	return c.Auth.JWTSecret == DevJWTSecret
}

func (c *Config) GetServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
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

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				out = append(out, trimmed)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return fallback
}
