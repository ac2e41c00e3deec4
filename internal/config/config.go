package config

import (
	"fmt"
	"strings"
	"time"
)

// Config es la configuración completa de la API. Se construye una vez en main.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Storage  StorageConfig  `yaml:"storage"`
	CORS     CORSConfig     `yaml:"cors"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"PORT"                    env-default:"8000"`
	APIPrefix       string        `yaml:"api_prefix"       env:"API_PREFIX"              env-default:"/api/v1"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// DatabaseConfig: DSN vacío => adapters en memoria.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns"     env:"DATABASE_MAX_OPEN_CONNS"     env-default:"10"`
	MaxIdleConns    int           `yaml:"max_idle_conns"     env:"DATABASE_MAX_IDLE_CONNS"     env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"  env:"DATABASE_CONN_MAX_LIFETIME"  env-default:"30m"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time" env:"DATABASE_CONN_MAX_IDLE_TIME" env-default:"5m"`
	AutoMigrate     bool          `yaml:"auto_migrate"       env:"DATABASE_AUTO_MIGRATE"       env-default:"true"`
}

func (d DatabaseConfig) InMemory() bool {
	return strings.TrimSpace(d.DSN) == ""
}

// AuthConfig: con DevMode se acepta el header X-Debug-User-ID en lugar de un token.
type AuthConfig struct {
	JWTSecret   string        `yaml:"jwt_secret"   env:"AUTH_JWT_SECRET"`
	JWTIssuer   string        `yaml:"jwt_issuer"   env:"AUTH_JWT_ISSUER"`
	JWTAudience string        `yaml:"jwt_audience" env:"AUTH_JWT_AUDIENCE" env-default:"authenticated"`
	Leeway      time.Duration `yaml:"leeway"       env:"AUTH_LEEWAY"       env-default:"30s"`
	DevMode     bool          `yaml:"dev_mode"     env:"AUTH_DEV_MODE"     env-default:"false"`
}

// StorageConfig: URL vacía => object store en memoria.
type StorageConfig struct {
	URL           string        `yaml:"url"             env:"STORAGE_URL"`
	ServiceKey    string        `yaml:"service_key"     env:"STORAGE_SERVICE_KEY"`
	Bucket        string        `yaml:"bucket"          env:"STORAGE_BUCKET"          env-default:"dog-photos"`
	PublicBaseURL string        `yaml:"public_base_url" env:"STORAGE_PUBLIC_BASE_URL" env-default:"http://localhost:8000/files"`
	Timeout       time.Duration `yaml:"timeout"         env:"STORAGE_TIMEOUT"         env-default:"30s"`

	MaxImageSize       int64  `yaml:"max_image_size"       env:"STORAGE_MAX_IMAGE_SIZE"       env-default:"5242880"`
	MaxCertificateSize int64  `yaml:"max_certificate_size" env:"STORAGE_MAX_CERTIFICATE_SIZE" env-default:"10485760"`
	AllowedImageTypes  string `yaml:"allowed_image_types"  env:"STORAGE_ALLOWED_IMAGE_TYPES"  env-default:"image/jpeg,image/png"`
	MaxPhotosPerDog    int    `yaml:"max_photos_per_dog"   env:"STORAGE_MAX_PHOTOS_PER_DOG"   env-default:"5"`
}

func (s StorageConfig) InMemory() bool {
	return strings.TrimSpace(s.URL) == ""
}

// ImageTypes parsea AllowedImageTypes ("image/jpeg,image/png").
func (s StorageConfig) ImageTypes() []string {
	return splitList(s.AllowedImageTypes)
}

type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"http://localhost:3000"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"600"`
}

func (c CORSConfig) Origins() []string {
	return splitList(c.AllowedOrigins)
}

type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"text"`
	App    string `yaml:"app"    env:"APP_NAME"   env-default:"pura-pata-api"`
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
