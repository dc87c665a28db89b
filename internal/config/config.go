package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	envAppEnv                = "APP_ENV"
	envAppSecret             = "APP_SECRET"
	envPort                  = "PORT"
	envServerReadTimeout     = "SERVER_READ_TIMEOUT"
	envServerWriteTimeout    = "SERVER_WRITE_TIMEOUT"
	envServerShutdownTimeout = "SERVER_SHUTDOWN_TIMEOUT"
	envDBHost                = "POSTGRES_HOST"
	envDBPort                = "POSTGRES_PORT"
	envDBName                = "POSTGRES_DB"
	envDBUser                = "POSTGRES_USER"
	envDBPassword            = "POSTGRES_PASSWORD"
	envDBSSLMode             = "POSTGRES_SSL_MODE"
	envDBMaxConns            = "POSTGRES_MAX_CONNECTIONS"
	envDBMinConns            = "POSTGRES_MIN_CONNECTIONS"
	envDBConnectTimeout      = "POSTGRES_CONNECTION_TIMEOUT"
	envDBStatementTimeout    = "POSTGRES_STATEMENT_TIMEOUT"
	envUpstreamURL           = "UPSTREAM_AUTH_URL"
	envUpstreamAnonKey       = "UPSTREAM_ANON_KEY"
	envUpstreamTimeout       = "UPSTREAM_EXCHANGE_TIMEOUT"
	envRedisAddr             = "REDIS_ADDR"
	envRedisPassword         = "REDIS_PASSWORD"
	envSessionCacheTTL       = "SESSION_CACHE_TTL"
	envPaymentAPIURL         = "PAYMENT_API_URL"
	envPaymentSecretKey      = "PAYMENT_SECRET_KEY"
	envPaymentScriptOrigin   = "PAYMENT_SCRIPT_ORIGIN"
	envUpstreamConnectOrigin = "UPSTREAM_CONNECT_ORIGIN"
	envAWSRegion             = "AWS_REGION"
	envAWSAccessKeyID        = "AWS_ACCESS_KEY_ID"
	envAWSSecretAccessKey    = "AWS_SECRET_ACCESS_KEY"
	envAttachmentBucket      = "ATTACHMENT_BUCKET"
	envRateLimitExemptUsers  = "RATE_LIMIT_EXEMPT_USERS"
)

const (
	// insecureDefaultSecret signs CSRF tokens when APP_SECRET is unset.
	// Accepted in development so the service can boot; Validate rejects
	// it in production.
	insecureDefaultSecret = "fallback-secret"

	defaultServerPort         = "8080"
	defaultServerReadTimeout  = 10 * time.Second
	defaultServerWriteTimeout = 10 * time.Second
	defaultServerShutdown     = 10 * time.Second
	defaultDBHost             = "localhost"
	defaultDBPort             = 5433
	defaultDBName             = "forumdb"
	defaultDBUser             = "postgres"
	defaultDBSSLMode          = "disable"
	defaultDBMaxConns         = 15
	defaultDBMinConns         = 2
	defaultDBConnectTimeout   = 2 * time.Second
	defaultDBStatementTimeout = 10 * time.Second
	defaultExchangeTimeout    = 2 * time.Second
	defaultSessionCacheTTL    = time.Minute
	defaultPaymentOrigin      = "https://js.stripe.com"
	defaultConnectOrigin      = "https://*.supabase.co"

	envProduction = "production"
)

type Config struct {
	Env       string
	AppSecret string
	Server    ServerConfig
	Database  DatabaseConfig
	Upstream  UpstreamConfig
	Redis     RedisConfig
	Payment   PaymentConfig
	AWS       AWSConfig
	RateLimit RateLimitConfig
	Security  SecurityConfig
}

type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	Host             string
	Port             int
	Database         string
	User             string
	Password         string
	SSLMode          string
	MaxConns         int
	MinConns         int
	ConnectTimeout   time.Duration
	StatementTimeout time.Duration
}

type UpstreamConfig struct {
	BaseURL         string
	AnonKey         string
	ExchangeTimeout time.Duration
}

type RedisConfig struct {
	Addr            string
	Password        string
	SessionCacheTTL time.Duration
}

type PaymentConfig struct {
	APIBaseURL string
	SecretKey  string
	// PriceToRole maps gateway price ids to subscription roles,
	// e.g. "price_123:premium,price_456:admin".
	PriceToRole map[string]string
	// ProductRoles maps one-time product ids to custom role grants,
	// e.g. "prod_abc:gym=member;sauna=guest".
	ProductRoles map[string]map[string][]string
}

type AWSConfig struct {
	Region           string
	AccessKeyID      string
	SecretAccessKey  string
	AttachmentBucket string
}

type RateLimitConfig struct {
	IPLimit        int
	IPWindow       time.Duration
	UserLimit      int
	UserWindow     time.Duration
	EndpointLimit  int
	EndpointWindow time.Duration
	ExemptUserIDs  []string
}

type SecurityConfig struct {
	PaymentScriptOrigin   string
	UpstreamConnectOrigin string
}

func Load() (*Config, error) {
	cfg := &Config{
		Env:       getEnv(envAppEnv, "development"),
		AppSecret: getEnv(envAppSecret, insecureDefaultSecret),
		Server: ServerConfig{
			Port:            getEnv(envPort, defaultServerPort),
			ReadTimeout:     getDurationEnv(envServerReadTimeout, defaultServerReadTimeout),
			WriteTimeout:    getDurationEnv(envServerWriteTimeout, defaultServerWriteTimeout),
			ShutdownTimeout: getDurationEnv(envServerShutdownTimeout, defaultServerShutdown),
		},
		Database: DatabaseConfig{
			Host:             getEnv(envDBHost, defaultDBHost),
			Port:             getIntEnv(envDBPort, defaultDBPort),
			Database:         getEnv(envDBName, defaultDBName),
			User:             getEnv(envDBUser, defaultDBUser),
			Password:         os.Getenv(envDBPassword),
			SSLMode:          getEnv(envDBSSLMode, defaultDBSSLMode),
			MaxConns:         getIntEnv(envDBMaxConns, defaultDBMaxConns),
			MinConns:         getIntEnv(envDBMinConns, defaultDBMinConns),
			ConnectTimeout:   getDurationEnv(envDBConnectTimeout, defaultDBConnectTimeout),
			StatementTimeout: getDurationEnv(envDBStatementTimeout, defaultDBStatementTimeout),
		},
		Upstream: UpstreamConfig{
			BaseURL:         os.Getenv(envUpstreamURL),
			AnonKey:         os.Getenv(envUpstreamAnonKey),
			ExchangeTimeout: getDurationEnv(envUpstreamTimeout, defaultExchangeTimeout),
		},
		Redis: RedisConfig{
			Addr:            os.Getenv(envRedisAddr),
			Password:        os.Getenv(envRedisPassword),
			SessionCacheTTL: getDurationEnv(envSessionCacheTTL, defaultSessionCacheTTL),
		},
		Payment: PaymentConfig{
			APIBaseURL:   os.Getenv(envPaymentAPIURL),
			SecretKey:    os.Getenv(envPaymentSecretKey),
			PriceToRole:  parsePriceToRole(os.Getenv("PAYMENT_PRICE_TO_ROLE")),
			ProductRoles: parseProductRoles(os.Getenv("PAYMENT_PRODUCT_ROLES")),
		},
		AWS: AWSConfig{
			Region:           os.Getenv(envAWSRegion),
			AccessKeyID:      os.Getenv(envAWSAccessKeyID),
			SecretAccessKey:  os.Getenv(envAWSSecretAccessKey),
			AttachmentBucket: os.Getenv(envAttachmentBucket),
		},
		RateLimit: RateLimitConfig{
			IPLimit:        getIntEnv("RATE_LIMIT_IP", 60),
			IPWindow:       getDurationEnv("RATE_LIMIT_IP_WINDOW", time.Minute),
			UserLimit:      getIntEnv("RATE_LIMIT_USER", 100),
			UserWindow:     getDurationEnv("RATE_LIMIT_USER_WINDOW", time.Minute),
			EndpointLimit:  getIntEnv("RATE_LIMIT_ENDPOINT", 30),
			EndpointWindow: getDurationEnv("RATE_LIMIT_ENDPOINT_WINDOW", time.Minute),
			ExemptUserIDs:  splitList(os.Getenv(envRateLimitExemptUsers)),
		},
		Security: SecurityConfig{
			PaymentScriptOrigin:   getEnv(envPaymentScriptOrigin, defaultPaymentOrigin),
			UpstreamConnectOrigin: getEnv(envUpstreamConnectOrigin, defaultConnectOrigin),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	if cfg.AppSecret == insecureDefaultSecret {
		log.Println("WARNING: APP_SECRET is not set; CSRF tokens are signed with the insecure default secret")
	}

	return cfg, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == envProduction
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT must not be empty")
	}

	if c.IsProduction() && c.AppSecret == insecureDefaultSecret {
		return fmt.Errorf("APP_SECRET must be set in production")
	}

	if c.Upstream.BaseURL == "" {
		return fmt.Errorf("%s must be set", envUpstreamURL)
	}

	if c.Upstream.ExchangeTimeout <= 0 {
		return fmt.Errorf("%s must be positive", envUpstreamTimeout)
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// parsePriceToRole parses "price_id:role,price_id:role" pairs.
func parsePriceToRole(raw string) map[string]string {
	out := make(map[string]string)
	for _, pair := range splitList(raw) {
		parts := strings.SplitN(pair, ":", 2)
		if len(parts) == 2 && parts[0] != "" && parts[1] != "" {
			out[parts[0]] = parts[1]
		}
	}
	return out
}

// parseProductRoles parses "product_id:role=sub1|sub2;role2=sub3,..." grants.
func parseProductRoles(raw string) map[string]map[string][]string {
	out := make(map[string]map[string][]string)
	for _, entry := range splitList(raw) {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 || parts[0] == "" {
			continue
		}
		grants := make(map[string][]string)
		for _, grant := range strings.Split(parts[1], ";") {
			kv := strings.SplitN(grant, "=", 2)
			if len(kv) != 2 || kv[0] == "" {
				continue
			}
			grants[kv[0]] = strings.Split(kv[1], "|")
		}
		if len(grants) > 0 {
			out[parts[0]] = grants
		}
	}
	return out
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		if millis, err := strconv.Atoi(value); err == nil {
			return time.Duration(millis) * time.Millisecond
		}
	}
	return defaultValue
}
