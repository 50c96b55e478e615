package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Record store backends.
const (
	BackendMemory   = "memory"
	BackendRedis    = "redis"
	BackendPostgres = "postgres"
	BackendFile     = "file"
)

// Record store write policies.
const (
	WritePolicyLastWriteWins = "last_write_wins"
	WritePolicySerialized    = "serialized"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Store    StoreConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	CORS     CORSConfig
	Log      LogConfig
	Latency  LatencyConfig
	Stats    StatsConfig
	Audit    AuditConfig

	// AdminWallets are registered as Admin users at startup when absent.
	AdminWallets []string
}

// StoreConfig selects where the three record collections live.
type StoreConfig struct {
	Backend     string
	WritePolicy string
	FileDir     string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host        string
	Port        int
	Password    string
	DB          int
	DialTimeout time.Duration
}

type JWTConfig struct {
	Secret     string
	Expiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// LatencyConfig holds the simulated network delay applied before each write operation.
// A per-operation value of zero falls back to Default.
type LatencyConfig struct {
	Default   time.Duration
	Register  time.Duration
	Classroom time.Duration
	Grade     time.Duration
}

// StatsConfig tunes statistics caching and the polling refresher.
type StatsConfig struct {
	CacheEnabled    bool
	CacheTTL        time.Duration
	RefreshInterval time.Duration
	RecentWindow    time.Duration
}

// AuditConfig sizes the asynchronous audit queue.
type AuditConfig struct {
	Workers    int
	BufferSize int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) *Config {
	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Store = StoreConfig{
		Backend:     normaliseBackend(v.GetString("STORE_BACKEND")),
		WritePolicy: normalisePolicy(v.GetString("STORE_WRITE_POLICY")),
		FileDir:     v.GetString("STORE_FILE_DIR"),
	}

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:        v.GetString("REDIS_HOST"),
		Port:        v.GetInt("REDIS_PORT"),
		Password:    v.GetString("REDIS_PASSWORD"),
		DB:          v.GetInt("REDIS_DB"),
		DialTimeout: parseDuration(v.GetString("REDIS_DIAL_TIMEOUT"), 5*time.Second),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	base := parseDuration(v.GetString("SIMULATED_LATENCY"), 0)
	cfg.Latency = LatencyConfig{
		Default:   base,
		Register:  parseDuration(v.GetString("REGISTER_LATENCY"), base),
		Classroom: parseDuration(v.GetString("CLASSROOM_LATENCY"), base),
		Grade:     parseDuration(v.GetString("GRADE_LATENCY"), base),
	}

	cfg.Stats = StatsConfig{
		CacheEnabled:    v.GetBool("ENABLE_STATS_CACHE"),
		CacheTTL:        parseDuration(v.GetString("STATS_CACHE_TTL"), 30*time.Second),
		RefreshInterval: parseDuration(v.GetString("REFRESH_INTERVAL"), 30*time.Second),
		RecentWindow:    parseDuration(v.GetString("RECENT_WINDOW"), 24*time.Hour),
	}

	cfg.Audit = AuditConfig{
		Workers:    v.GetInt("AUDIT_WORKERS"),
		BufferSize: v.GetInt("AUDIT_BUFFER"),
	}

	cfg.AdminWallets = splitAndTrim(v.GetString("ADMIN_WALLETS"))

	return cfg
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("STORE_BACKEND", BackendMemory)
	v.SetDefault("STORE_WRITE_POLICY", WritePolicyLastWriteWins)
	v.SetDefault("STORE_FILE_DIR", "./data")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "unigrading")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_DIAL_TIMEOUT", "5s")

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SIMULATED_LATENCY", "1500ms")
	v.SetDefault("REGISTER_LATENCY", "2s")
	v.SetDefault("CLASSROOM_LATENCY", "1500ms")
	v.SetDefault("GRADE_LATENCY", "1s")

	v.SetDefault("ENABLE_STATS_CACHE", false)
	v.SetDefault("STATS_CACHE_TTL", "30s")
	v.SetDefault("REFRESH_INTERVAL", "30s")
	v.SetDefault("RECENT_WINDOW", "24h")

	v.SetDefault("AUDIT_WORKERS", 1)
	v.SetDefault("AUDIT_BUFFER", 64)

	v.SetDefault("ADMIN_WALLETS", "")
}

func normaliseBackend(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case BackendRedis:
		return BackendRedis
	case BackendPostgres, "postgresql":
		return BackendPostgres
	case BackendFile:
		return BackendFile
	default:
		return BackendMemory
	}
}

func normalisePolicy(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), WritePolicySerialized) {
		return WritePolicySerialized
	}
	return WritePolicyLastWriteWins
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
