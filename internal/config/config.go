package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	AppEnv  string `mapstructure:"APP_ENV"`
	AppPort string `mapstructure:"APP_PORT"`

	DBHost     string `mapstructure:"DB_HOST"`
	DBPort     int    `mapstructure:"DB_PORT"`
	DBUser     string `mapstructure:"DB_USER"`
	DBPassword string `mapstructure:"DB_PASSWORD"`
	DBName     string `mapstructure:"DB_NAME"`
	DBScheme   string `mapstructure:"DB_SCHEME"`

	// --- S3 ---
	S3Endpoint      string        `mapstructure:"S3_ENDPOINT"`
	S3Region        string        `mapstructure:"S3_REGION"`
	S3Bucket        string        `mapstructure:"S3_BUCKET"`
	S3AccessKey     string        `mapstructure:"S3_ACCESS_KEY"`
	S3SecretKey     string        `mapstructure:"S3_SECRET_KEY"`
	S3UseSSL        bool          `mapstructure:"S3_USE_SSL"`
	S3PathStyle     bool          `mapstructure:"S3_PATH_STYLE"`
	S3PublicBaseURL string        `mapstructure:"S3_PUBLIC_BASE_URL"` // если бакет публичный
	S3PresignTTL    time.Duration `mapstructure:"S3_PRESIGN_TTL"`

	// --- Redis ---
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisDB       int    `mapstructure:"REDIS_DB"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`

	// --- Identity provider ---
	AuthJWTSecret string `mapstructure:"AUTH_JWT_SECRET"`
	AuthIssuer    string `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL   string `mapstructure:"AUTH_JWKS_URL"`

	// --- Права ---
	AdminEmail                string `mapstructure:"ADMIN_EMAIL"`
	PermissionsMigrateOnStart bool   `mapstructure:"PERMISSIONS_MIGRATE_ON_START"`

	// --- Кеши ---
	CacheListTTL     int           `mapstructure:"CACHE_LIST_TTL"` // секунд
	CacheDocTTL      int           `mapstructure:"CACHE_DOC_TTL"`  // секунд
	ProfileCacheSize int           `mapstructure:"PROFILE_CACHE_SIZE"`
	ProfileCacheTTL  time.Duration `mapstructure:"PROFILE_CACHE_TTL"`
}

// String реализует интерфейс Stringer
func (c *Config) String() string {
	var sb strings.Builder
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("  AppEnv: %s\n", c.AppEnv))
	sb.WriteString(fmt.Sprintf("  AppPort: %s\n", c.AppPort))
	sb.WriteString(fmt.Sprintf("  DBHost: %s\n", c.DBHost))
	sb.WriteString(fmt.Sprintf("  DBPort: %d\n", c.DBPort))
	sb.WriteString(fmt.Sprintf("  DBUser: %s\n", c.DBUser))
	sb.WriteString(fmt.Sprintf("  DBName: %s\n", c.DBName))
	sb.WriteString(fmt.Sprintf("  DBScheme: %s\n", c.DBScheme))
	sb.WriteString(mask("DBPassword", c.DBPassword))

	// S3
	sb.WriteString(fmt.Sprintf("  S3Endpoint: %s\n", c.S3Endpoint))
	sb.WriteString(fmt.Sprintf("  S3Region: %s\n", c.S3Region))
	sb.WriteString(fmt.Sprintf("  S3Bucket: %s\n", c.S3Bucket))
	sb.WriteString(mask("S3AccessKey", c.S3AccessKey))
	sb.WriteString(mask("S3SecretKey", c.S3SecretKey))
	sb.WriteString(fmt.Sprintf("  S3UseSSL: %v\n", c.S3UseSSL))
	sb.WriteString(fmt.Sprintf("  S3PathStyle: %v\n", c.S3PathStyle))
	sb.WriteString(fmt.Sprintf("  S3PublicBaseURL: %s\n", c.S3PublicBaseURL))
	sb.WriteString(fmt.Sprintf("  S3PresignTTL: %s\n", c.S3PresignTTL))

	// Redis
	sb.WriteString(fmt.Sprintf("  RedisAddr: %s\n", c.RedisAddr))
	sb.WriteString(fmt.Sprintf("  RedisDB: %d\n", c.RedisDB))
	sb.WriteString(mask("RedisPassword", c.RedisPassword))

	// Auth
	sb.WriteString(mask("AuthJWTSecret", c.AuthJWTSecret))
	sb.WriteString(fmt.Sprintf("  AuthIssuer: %s\n", c.AuthIssuer))
	sb.WriteString(fmt.Sprintf("  AuthJWKSURL: %s\n", c.AuthJWKSURL))
	sb.WriteString(fmt.Sprintf("  AdminEmail: %s\n", c.AdminEmail))
	sb.WriteString(fmt.Sprintf("  PermissionsMigrateOnStart: %v\n", c.PermissionsMigrateOnStart))

	sb.WriteString(fmt.Sprintf("  CacheListTTL: %ds\n", c.CacheListTTL))
	sb.WriteString(fmt.Sprintf("  CacheDocTTL: %ds\n", c.CacheDocTTL))
	sb.WriteString(fmt.Sprintf("  ProfileCacheSize: %d\n", c.ProfileCacheSize))
	sb.WriteString(fmt.Sprintf("  ProfileCacheTTL: %s\n", c.ProfileCacheTTL))

	return sb.String()
}

// секреты маскируем
func mask(name, val string) string {
	if val != "" {
		return fmt.Sprintf("  %s: ********\n", name)
	}
	return fmt.Sprintf("  %s: (empty)\n", name)
}

// Регистрируем интересующие ключи окружения
var envKeys = []string{
	"APP_ENV", "APP_PORT",
	"DB_HOST", "DB_PORT", "DB_USER", "DB_PASSWORD", "DB_NAME", "DB_SCHEME",
	"S3_ENDPOINT", "S3_REGION", "S3_BUCKET", "S3_ACCESS_KEY", "S3_SECRET_KEY",
	"S3_USE_SSL", "S3_PATH_STYLE", "S3_PUBLIC_BASE_URL", "S3_PRESIGN_TTL",
	"REDIS_ADDR", "REDIS_DB", "REDIS_PASSWORD",
	"AUTH_JWT_SECRET", "AUTH_ISSUER", "AUTH_JWKS_URL",
	"ADMIN_EMAIL", "PERMISSIONS_MIGRATE_ON_START",
	"CACHE_LIST_TTL", "CACHE_DOC_TTL", "PROFILE_CACHE_SIZE", "PROFILE_CACHE_TTL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "production")
	v.SetDefault("APP_PORT", ":8080")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SCHEME", "public")
	v.SetDefault("S3_BUCKET", "worksheets")
	v.SetDefault("S3_PRESIGN_TTL", "15m")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("PERMISSIONS_MIGRATE_ON_START", true)
	v.SetDefault("CACHE_LIST_TTL", 30)
	v.SetDefault("CACHE_DOC_TTL", 60)
	v.SetDefault("PROFILE_CACHE_SIZE", 1024)
	v.SetDefault("PROFILE_CACHE_TTL", "5m")
}

// LoadFromEnv загружает конфигурацию из переменных окружения
func LoadFromEnv() (*Config, error) {
	// Загружаем .env только для локальной разработки
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, errors.New("failed to load .env")
		}
	}

	v := viper.New()
	v.AutomaticEnv()
	setDefaults(v)
	for _, k := range envKeys {
		_ = v.BindEnv(k)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate проверяет то, без чего сервис не может принимать решения о правах.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.AdminEmail) == "" {
		return errors.New("ADMIN_EMAIL is required")
	}
	if c.AuthJWTSecret == "" && c.AuthJWKSURL == "" {
		return errors.New("one of AUTH_JWT_SECRET or AUTH_JWKS_URL is required")
	}
	if c.S3Bucket == "" {
		return errors.New("S3_BUCKET is required")
	}
	return nil
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev" || c.AppEnv == "local"
}

// GetDSN: search_path указывает на DB_SCHEME, туда же попадают миграции.
func (c *Config) GetDSN() string {
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=disable",
		url.QueryEscape(c.DBUser),
		url.QueryEscape(c.DBPassword),
		c.DBHost,
		c.DBPort,
		c.DBName,
	)
	if c.DBScheme != "" {
		dsn += "&search_path=" + url.QueryEscape(c.DBScheme)
	}
	return dsn
}
