// Package config — конфигурация forum-service: загрузка из YAML/ENV с предсказуемым приоритетом.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config — корневая конфигурация сервиса.
// Приоритет источников:
//  1. явный путь, переданный в MustLoad/Load;
//  2. переменная окружения CONFIG_PATH;
//  3. файл ./local.yaml из рабочей директории;
//  4. переменные окружения.
//
// Значения из файла всегда перекрываются переменными окружения.
type Config struct {
	Env      string         `yaml:"env" env:"ENV" env-default:"local"`
	GRPC     GRPCConfig     `yaml:"grpc"`
	HTTP     HTTPConfig     `yaml:"http"`
	Postgres PostgresConfig `yaml:"postgres"`
	Mongo    MongoConfig    `yaml:"mongo"`
	Redis    RedisConfig    `yaml:"redis"`
	S3       S3Config       `yaml:"s3"`
	Avatar   AvatarConfig   `yaml:"avatar"`
	Auth     AuthConfig     `yaml:"auth"`
	Limits   LimitsConfig   `yaml:"limits"`
	Live     LiveConfig     `yaml:"live"`
	Timeouts TimeoutConfig  `yaml:"timeouts"`
}

// GRPCConfig — сетевые настройки gRPC-сервера.
type GRPCConfig struct {
	Host string `yaml:"host" env:"GRPC_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"GRPC_PORT" env-default:"50060"`
}

// HTTPConfig — REST, websocket /live, health и metrics.
type HTTPConfig struct {
	Host string `yaml:"host" env:"HTTP_HOST" env-default:"0.0.0.0"`
	Port string `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
}

// Addr возвращает адрес в формате host:port.
func (g GRPCConfig) Addr() string {
	return net.JoinHostPort(g.Host, g.Port)
}

// Addr возвращает адрес в формате host:port.
func (h HTTPConfig) Addr() string {
	return net.JoinHostPort(h.Host, h.Port)
}

// PostgresConfig — блоги, посты, пользователи, профили.
type PostgresConfig struct {
	URL string `yaml:"url" env:"POSTGRES_URL" env-required:"true"`
}

// MongoConfig — комментарии к постам.
type MongoConfig struct {
	URL string `yaml:"url" env:"MONGO_URL" env-required:"true"`
}

// RedisConfig — шина изменений. Пустой Addr — шина в памяти процесса.
type RedisConfig struct {
	Addr     string `yaml:"addr" env:"REDIS_ADDR"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
	Channel  string `yaml:"channel" env:"REDIS_CHANNEL" env-default:"forum:changes"`
}

// S3Config — объектное хранилище аватаров и изображений.
type S3Config struct {
	Endpoint      string        `yaml:"endpoint" env:"S3_ENDPOINT" env-required:"true"`
	RootUser      string        `yaml:"root_user" env:"S3_ROOT_USER" env-required:"true"`
	RootPassword  string        `yaml:"root_password" env:"S3_ROOT_PASSWORD" env-required:"true"`
	Bucket        string        `yaml:"bucket" env:"S3_BUCKET" env-required:"true"`
	ImagesPrefix  string        `yaml:"images_prefix" env:"S3_IMAGES_PREFIX" env-default:"images/"`
	PresignTTL    time.Duration `yaml:"presign_ttl" env:"S3_PRESIGN_TTL" env-default:"10m"`
	PublicBaseURL string        `yaml:"public_base_url" env:"S3_PUBLIC_BASE_URL"`
}

// AvatarConfig — ограничения на загружаемые аватары.
type AvatarConfig struct {
	MaxSizeBytes        int64    `yaml:"max_size_bytes" env:"AVATAR_MAX_SIZE_BYTES" env-default:"5242880"`
	AllowedContentTypes []string `yaml:"allowed_content_types" env:"AVATAR_ALLOWED_CONTENT_TYPES" env-separator:"," env-default:"image/jpeg,image/png"`
}

// AuthConfig — выпуск и проверка access-токенов.
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	Issuer     string        `yaml:"issuer" env:"AUTH_ISSUER" env-default:"forum-service"`
	Audience   string        `yaml:"audience" env:"AUTH_AUDIENCE" env-default:"forum"`
	AccessTTL  time.Duration `yaml:"access_ttl" env:"AUTH_ACCESS_TTL" env-default:"1h"`
	BcryptCost int           `yaml:"bcrypt_cost" env:"AUTH_BCRYPT_COST" env-default:"10"`
}

// LimitsConfig — лимиты выдачи и содержимого.
type LimitsConfig struct {
	// Пагинация: page_size=0 -> берём Default; верхняя граница — Max.
	Default          int `yaml:"default" env:"DEFAULT_LIMIT" env-default:"5"`
	Max              int `yaml:"max" env:"MAX_LIMIT" env-default:"100"`
	MaxCommentLength int `yaml:"max_comment_length" env:"MAX_COMMENT_LENGTH" env-default:"2000"`
}

// LiveConfig — движок живых публикаций.
type LiveConfig struct {
	// Debounce — окно склейки уведомлений шины перед перезапуском запроса.
	Debounce time.Duration `yaml:"debounce" env:"LIVE_DEBOUNCE" env-default:"50ms"`
	// SendBuffer — буфер исходящих событий одной подписки.
	SendBuffer int `yaml:"send_buffer" env:"LIVE_SEND_BUFFER" env-default:"256"`
}

// TimeoutConfig — серверные таймауты.
type TimeoutConfig struct {
	Service  time.Duration `yaml:"service" env:"SERVICE_TIMEOUT" env-default:"5s"`
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
func Load(path string) (*Config, error) {
	var cfg Config

	file, err := resolvePath(path)
	if err != nil {
		return nil, err
	}

	if file != "" {
		if err := cleanenv.ReadConfig(file, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config %q: %w", file, err)
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		if file == "" {
			return nil, fmt.Errorf("config not found: provide --config, CONFIG_PATH, local.yaml or env vars: %w", err)
		}

		return nil, fmt.Errorf("failed to overlay env: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// resolvePath выбирает файл конфигурации; "" — только ENV.
// Явно указанный путь (аргумент или CONFIG_PATH) обязан существовать.
func resolvePath(path string) (string, error) {
	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("config file %q stat failed: %w", path, err)
		}

		return path, nil
	}

	if _, err := os.Stat("local.yaml"); err == nil {
		return "local.yaml", nil
	}

	return "", nil
}

// validate — базовая валидация значений.
func (c *Config) validate() error {
	var errs []error

	if c.Postgres.URL == "" {
		errs = append(errs, errors.New("postgres.url is required"))
	}

	if c.Mongo.URL == "" {
		errs = append(errs, errors.New("mongo.url is required"))
	}

	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("auth.jwt_secret must be at least 16 bytes"))
	}

	if c.Auth.AccessTTL <= 0 {
		errs = append(errs, errors.New("auth.access_ttl must be > 0"))
	}

	if c.Limits.Default <= 0 {
		errs = append(errs, errors.New("limits.default must be > 0"))
	}

	if c.Limits.Max <= 0 {
		errs = append(errs, errors.New("limits.max must be > 0"))
	}

	if c.Limits.Default > c.Limits.Max {
		errs = append(errs, errors.New("limits.default must be <= limits.max"))
	}

	if c.Limits.MaxCommentLength <= 0 {
		errs = append(errs, errors.New("limits.max_comment_length must be > 0"))
	}

	if c.Avatar.MaxSizeBytes <= 0 {
		errs = append(errs, errors.New("avatar.max_size_bytes must be > 0"))
	}

	if c.Live.SendBuffer <= 0 {
		errs = append(errs, errors.New("live.send_buffer must be > 0"))
	}

	if c.Live.Debounce < 0 {
		errs = append(errs, errors.New("live.debounce must be >= 0"))
	}

	return errors.Join(errs...)
}
