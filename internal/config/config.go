// config предоставляет структуру конфигурации blog-service и функции
// загрузки из файла/переменных окружения с предсказуемым приоритетом.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Константы окружения.
const (
	EnvLocal = "local"
	EnvDev   = "dev"
	EnvProd  = "prod"
)

// Драйверы хранилищ.
const (
	DBDriverPostgres = "postgres"
	DBDriverMemory   = "memory"

	BlobDriverLocal = "local"
	BlobDriverMinio = "minio"
	BlobDriverS3    = "s3"
)

// Config — корневая конфигурация сервиса.
// Источники значений (по убыванию приоритета):
//  1. явный путь через флаг --config;
//  2. путь в переменной окружения CONFIG_PATH;
//  3. файл local.yaml из рабочей директории;
//  4. переменные окружения (cleanenv).
type Config struct {
	Env      string        `yaml:"env" env:"ENV" env-default:"local"`
	HTTP     HTTPConfig    `yaml:"http"`
	Metrics  MetricsConfig `yaml:"metrics"`
	Auth     AuthConfig    `yaml:"auth"`
	DB       DBConfig      `yaml:"db"`
	Blob     BlobConfig    `yaml:"blob"`
	Upload   UploadConfig  `yaml:"upload"`
	Timeouts TimeoutConfig `yaml:"timeouts"`
}

// IsProd сообщает, запущен ли сервис в продовом окружении.
func (c *Config) IsProd() bool {
	return c.Env == EnvProd
}

// HTTPConfig — публичный REST-сервер.
type HTTPConfig struct {
	Host     string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"HTTP_PORT" env-default:"3000"`
	BasePath string `yaml:"base_path" env:"HTTP_BASE_PATH" env-default:"/api/v1"`
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string { return net.JoinHostPort(h.Host, h.Port) }

// MetricsConfig — отдельный HTTP для /metrics, /livez, /healthz.
type MetricsConfig struct {
	Host string `yaml:"host" env:"METRICS_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"METRICS_PORT" env-default:"3001"`
}

// Addr возвращает адрес в формате host:port.
func (m MetricsConfig) Addr() string { return net.JoinHostPort(m.Host, m.Port) }

// AuthConfig содержит параметры выпуска и валидации токенов.
// Access и refresh подписываются разными секретами.
type AuthConfig struct {
	AccessSecret    string        `yaml:"access_secret" env:"JWT_ACCESS_SECRET" env-required:"true"`
	RefreshSecret   string        `yaml:"refresh_secret" env:"JWT_REFRESH_SECRET" env-required:"true"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"ACCESS_TOKEN_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"REFRESH_TOKEN_TTL" env-default:"168h"`
	BcryptCost      int           `yaml:"bcrypt_cost" env:"BCRYPT_COST" env-default:"12"`
}

// DBConfig — настройки реляционного хранилища.
// Driver: "postgres" (по умолчанию) или "memory" (локальная разработка).
type DBConfig struct {
	Driver      string `yaml:"driver" env:"DB_DRIVER" env-default:"postgres"`
	DatabaseURL string `yaml:"db_url" env:"DATABASE_URL"`
}

// BlobConfig — настройки хранилища изображений.
// Driver: "local" (по умолчанию), "minio" или "s3".
type BlobConfig struct {
	Driver string          `yaml:"driver" env:"BLOB_DRIVER" env-default:"local"`
	Local  LocalBlobConfig `yaml:"local"`
	S3     S3Config        `yaml:"s3"`
}

// LocalBlobConfig — хранение файлов на локальном диске.
type LocalBlobConfig struct {
	Dir          string `yaml:"dir" env:"BLOB_LOCAL_DIR" env-default:"public/uploads"`
	PublicPrefix string `yaml:"public_prefix" env:"BLOB_LOCAL_PUBLIC_PREFIX" env-default:"/public/uploads"`
}

// S3Config — параметры S3-совместимого хранилища (MinIO или AWS S3).
type S3Config struct {
	Endpoint      string `yaml:"endpoint" env:"S3_ENDPOINT"`
	Region        string `yaml:"region" env:"S3_REGION" env-default:"us-east-1"`
	AccessKey     string `yaml:"access_key" env:"S3_ACCESS_KEY"`
	SecretKey     string `yaml:"secret_key" env:"S3_SECRET_KEY"`
	Bucket        string `yaml:"bucket" env:"S3_BUCKET" env-default:"posts"`
	PublicBaseURL string `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
	UsePathStyle  bool   `yaml:"use_path_style" env:"S3_USE_PATH_STYLE" env-default:"true"`
}

// UploadConfig — ограничения на загружаемые изображения.
type UploadConfig struct {
	MaxSizeBytes        int64    `yaml:"max_size_bytes" env:"UPLOAD_MAX_SIZE_BYTES" env-default:"5242880"`
	AllowedContentTypes []string `yaml:"allowed_content_types" env:"UPLOAD_ALLOWED_CONTENT_TYPES" env-default:"image/png,image/jpeg,image/jpg"`
}

// TimeoutConfig — таймауты HTTP-слоя. Request == 0 отключает общий дедлайн запроса.
type TimeoutConfig struct {
	Request  time.Duration `yaml:"request" env:"REQUEST_TIMEOUT" env-default:"0s"`
	Shutdown time.Duration `yaml:"shutdown" env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// MustLoad — обёртка над Load с panic при ошибке.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

// Load загружает конфигурацию по приоритету:
// 1) явный путь; 2) CONFIG_PATH; 3) ./local.yaml; 4) ENV.
// После чтения файла ENV-переменные накладываются поверх значений из YAML.
func Load(path string) (*Config, error) {
	var cfg Config

	tryRead := func(p string) (*Config, error) {
		if p == "" {
			return nil, fmt.Errorf("empty config path")
		}

		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}

		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}

		if err := cleanenv.ReadEnv(&cfg); err != nil {
			return nil, fmt.Errorf("failed to overlay env: %w", err)
		}

		return finalize(&cfg)
	}

	// 1) --config
	if path != "" {
		return tryRead(path)
	}

	// 2) CONFIG_PATH
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}

	// 3) ./local.yaml
	if _, err := os.Stat("local.yaml"); err == nil {
		return tryRead("local.yaml")
	}

	// 4) только ENV
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
	}

	return finalize(&cfg)
}

// finalize возвращает конфиг только после успешной валидации.
func finalize(cfg *Config) (*Config, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validate проверяет согласованность значений, которые cleanenv проверить не может.
func (c *Config) validate() error {
	switch c.DB.Driver {
	case DBDriverPostgres:
		if c.DB.DatabaseURL == "" {
			return fmt.Errorf("config: db.db_url is required for driver %q", c.DB.Driver)
		}
	case DBDriverMemory:
	default:
		return fmt.Errorf("config: unknown db driver %q", c.DB.Driver)
	}

	switch c.Blob.Driver {
	case BlobDriverLocal:
		if c.Blob.Local.Dir == "" {
			return fmt.Errorf("config: blob.local.dir is required")
		}
	case BlobDriverMinio, BlobDriverS3:
		if c.Blob.S3.Endpoint == "" && c.Blob.Driver == BlobDriverMinio {
			return fmt.Errorf("config: blob.s3.endpoint is required for driver %q", c.Blob.Driver)
		}

		if c.Blob.S3.Bucket == "" {
			return fmt.Errorf("config: blob.s3.bucket is required")
		}
	default:
		return fmt.Errorf("config: unknown blob driver %q", c.Blob.Driver)
	}

	if c.Auth.AccessSecret == c.Auth.RefreshSecret {
		return fmt.Errorf("config: access and refresh secrets must differ")
	}

	if c.Upload.MaxSizeBytes <= 0 {
		return fmt.Errorf("config: upload.max_size_bytes must be positive")
	}

	return nil
}
