package config

import (
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/convenios/prioridades/internal/storage"
)

// Store backends selectable through STORE_BACKEND.
const (
	StoreMemory    = "memory"
	StoreMongo     = "mongo"
	StorePostgres  = "postgres"
	StoreFirestore = "firestore"
)

// Config holds application configuration
type Config struct {
	Server    ServerConfig
	LogLevel  string
	LogFormat string
	Store     StoreConfig
	MongoDB   MongoDBConfig
	Postgres  PostgresConfig
	Firestore FirestoreConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	JWT       JWTConfig
	RateLimit RateLimitConfig
	NATS      NATSConfig
	MinIO     storage.MinIOConfig
	GCS       storage.GCSConfig
	Report    ReportConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type StoreConfig struct {
	Backend string
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type PostgresConfig struct {
	DSN      string
	Attempts int
	Backoff  time.Duration
}

type FirestoreConfig struct {
	ProjectID       string
	DatabaseID      string
	CredentialsFile string
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	port := r.Port
	if port == "" {
		port = "6379"
	}
	return r.Host + ":" + port
}

type KeycloakConfig struct {
	URL      string
	Realm    string
	ClientID string
	// Insecure skips signature checks on bearer tokens. Local use only.
	Insecure bool
}

// Issuer returns the realm issuer URL or "" when Keycloak is not configured.
func (k KeycloakConfig) Issuer() string {
	if k.URL == "" || k.Realm == "" {
		return ""
	}
	return strings.TrimSuffix(k.URL, "/") + "/realms/" + k.Realm
}

type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
}

type RateLimitConfig struct {
	Enabled bool
	RPS     float64
	Burst   int
	Window  time.Duration
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type ReportConfig struct {
	Timezone string
	Header   []string
}

// Location resolves the report timezone, falling back to UTC.
func (r ReportConfig) Location() *time.Location {
	if r.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(r.Timezone)
	if err != nil {
		log.Printf("WARNING: unknown REPORT_TIMEZONE %q, using UTC", r.Timezone)
		return time.UTC
	}
	return loc
}

var defaultReportHeader = []string{
	"PREFEITURA MUNICIPAL DE CERRO AZUL - PR",
	"SECRETARIA DE PLANEJAMENTO INTEGRADO",
	"CAPTAÇÃO DE RECURSOS E DESENVOLVIMENTO ECONÔMICO",
}

// LoadConfig loads configuration from environment variables and .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load(".env")

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "text")
	viper.SetDefault("STORE_BACKEND", StoreMemory)
	viper.SetDefault("MONGODB_DATABASE", "prioridades")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("POSTGRES_CONNECT_ATTEMPTS", 10)
	viper.SetDefault("POSTGRES_CONNECT_BACKOFF", 2)
	viper.SetDefault("FIRESTORE_DATABASE", "(default)")
	viper.SetDefault("JWT_ACCESS_TOKEN_TTL", 15)
	viper.SetDefault("RATE_LIMIT_ENABLED", true)
	viper.SetDefault("RATE_LIMIT_RPS", 10.0)
	viper.SetDefault("RATE_LIMIT_BURST", 20)
	viper.SetDefault("RATE_LIMIT_WINDOW", 60)
	viper.SetDefault("NATS_SUBJECT_PREFIX", "prioridades")
	viper.SetDefault("REPORT_TIMEZONE", "America/Sao_Paulo")

	header := defaultReportHeader
	if h := viper.GetString("REPORT_HEADER"); h != "" {
		header = strings.Split(h, "|")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		LogLevel:  viper.GetString("LOG_LEVEL"),
		LogFormat: viper.GetString("LOG_FORMAT"),
		Store: StoreConfig{
			Backend: strings.ToLower(viper.GetString("STORE_BACKEND")),
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Postgres: PostgresConfig{
			DSN:      viper.GetString("POSTGRES_DSN"),
			Attempts: viper.GetInt("POSTGRES_CONNECT_ATTEMPTS"),
			Backoff:  time.Duration(viper.GetInt("POSTGRES_CONNECT_BACKOFF")) * time.Second,
		},
		Firestore: FirestoreConfig{
			ProjectID:       viper.GetString("FIRESTORE_PROJECT_ID"),
			DatabaseID:      viper.GetString("FIRESTORE_DATABASE"),
			CredentialsFile: viper.GetString("FIRESTORE_CREDENTIALS_FILE"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		Keycloak: KeycloakConfig{
			URL:      viper.GetString("KEYCLOAK_URL"),
			Realm:    viper.GetString("KEYCLOAK_REALM"),
			ClientID: viper.GetString("KEYCLOAK_CLIENT_ID"),
			Insecure: viper.GetBool("ALLOW_INSECURE_TOKEN"),
		},
		JWT: JWTConfig{
			Secret:         os.Getenv("JWT_SECRET"),
			AccessTokenTTL: time.Duration(viper.GetInt("JWT_ACCESS_TOKEN_TTL")) * time.Minute,
		},
		RateLimit: RateLimitConfig{
			Enabled: viper.GetBool("RATE_LIMIT_ENABLED"),
			RPS:     viper.GetFloat64("RATE_LIMIT_RPS"),
			Burst:   viper.GetInt("RATE_LIMIT_BURST"),
			Window:  time.Duration(viper.GetInt("RATE_LIMIT_WINDOW")) * time.Second,
		},
		NATS: NATSConfig{
			URL:           viper.GetString("NATS_URL"),
			SubjectPrefix: viper.GetString("NATS_SUBJECT_PREFIX"),
		},
		MinIO: *storage.LoadMinIOConfig(),
		GCS:   *storage.LoadGCSConfig(),
		Report: ReportConfig{
			Timezone: viper.GetString("REPORT_TIMEZONE"),
			Header:   header,
		},
	}

	switch cfg.Store.Backend {
	case StoreMemory, StoreMongo, StorePostgres, StoreFirestore:
	default:
		log.Printf("WARNING: unknown STORE_BACKEND %q, using memory", cfg.Store.Backend)
		cfg.Store.Backend = StoreMemory
	}
	if cfg.JWT.Secret == "" && cfg.Keycloak.Issuer() == "" && !cfg.Keycloak.Insecure {
		log.Println("WARNING: neither JWT_SECRET nor KEYCLOAK_URL/KEYCLOAK_REALM is set; all API requests will be rejected")
	}

	return cfg, nil
}
