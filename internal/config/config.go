package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"time"

	"taskflow/internal/mailer"

	"github.com/ilyakaznacheev/cleanenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "config.yml"

const (
	RepositoryPostgres = "postgres"
	RepositoryInMemory = "inmemory"
)

// Config читается из config.yml, переменные окружения (и .env) перекрывают файл.
// Незаданные поля получают env-default.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Logging    LoggingConfig    `yaml:"logging"`
	Repository RepositoryConfig `yaml:"repository"`
	Mail       MailConfig       `yaml:"mail"`
	Worker     WorkerConfig     `yaml:"worker"`
}

type ServerConfig struct {
	Host            string        `yaml:"host" env:"SERVER_HOST" env-default:"0.0.0.0"`
	Port            string        `yaml:"port" env:"SERVER_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env:"SERVER_READ_TIMEOUT" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env:"SERVER_WRITE_TIMEOUT" env-default:"15s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout" env:"SERVER_IDLE_TIMEOUT" env-default:"60s"`
	RequestTimeout  time.Duration `yaml:"request_timeout" env:"SERVER_REQUEST_TIMEOUT" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	RateLimit       int           `yaml:"rate_limit" env:"SERVER_RATE_LIMIT" env-default:"100"`
	CORSOrigins     []string      `yaml:"cors_origins" env:"SERVER_CORS_ORIGINS" env-separator:"," env-default:"*"`
}

type DatabaseConfig struct {
	URL            string        `yaml:"url" env:"DATABASE_URL"`
	MaxConnections int32         `yaml:"max_connections" env:"DATABASE_MAX_CONNECTIONS" env-default:"10"`
	MinConnections int32         `yaml:"min_connections" env:"DATABASE_MIN_CONNECTIONS" env-default:"2"`
	IdleTimeout    time.Duration `yaml:"idle_timeout" env:"DATABASE_IDLE_TIMEOUT" env-default:"5m"`
	SkipMigrations bool          `yaml:"skip_migrations" env:"DATABASE_SKIP_MIGRATIONS"`
}

type LoggingConfig struct {
	Development bool   `yaml:"development" env:"LOG_DEVELOPMENT"`
	Level       string `yaml:"level" env:"LOG_LEVEL"`
}

type RepositoryConfig struct {
	Type string `yaml:"type" env:"REPOSITORY_TYPE" env-default:"inmemory"` // "postgres" или "inmemory"
}

// MailConfig - пустой Host означает, что письма только пишутся в лог
type MailConfig struct {
	Host     string `yaml:"host" env:"SMTP_HOST"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"587"`
	Username string `yaml:"username" env:"SMTP_USER"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM" env-default:"taskflow@localhost"`
}

type WorkerConfig struct {
	Disabled  bool          `yaml:"disabled" env:"WORKER_DISABLED"`
	Schedule  string        `yaml:"schedule" env:"WORKER_SCHEDULE" env-default:"@every 1h"`
	DueSoon   time.Duration `yaml:"due_soon" env:"WORKER_DUE_SOON" env-default:"24h"`
	BatchSize int           `yaml:"batch_size" env:"WORKER_BATCH_SIZE" env-default:"100"`
}

// Load читает path; отсутствие файла по умолчанию не ошибка, конфиг целиком из окружения
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}

	var cfg Config
	if err := readFile(path, &cfg); err != nil {
		if !(errors.Is(err, fs.ErrNotExist) && path == DefaultPath) {
			return nil, err
		}
	}

	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("ошибка чтения окружения: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func readFile(path string, cfg *Config) error {
	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("не могу открыть %s: %w", path, err)
	}
	defer file.Close()

	if err := yaml.NewDecoder(file).Decode(cfg); err != nil {
		return fmt.Errorf("ошибка парсинга %s: %w", path, err)
	}
	return nil
}

func (c *Config) Validate() error {
	switch c.Repository.Type {
	case RepositoryInMemory:
	case RepositoryPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url обязателен для postgres")
		}
	default:
		return fmt.Errorf("неизвестный repository.type %q", c.Repository.Type)
	}

	if c.Server.Port == "" {
		return errors.New("server.port не задан")
	}
	if c.Worker.BatchSize <= 0 {
		return errors.New("worker.batch_size должен быть больше нуля")
	}
	return nil
}

func (c *Config) GetServerAddr() string {
	return net.JoinHostPort(c.Server.Host, c.Server.Port)
}

func (m MailConfig) Enabled() bool {
	return m.Host != ""
}

func (m MailConfig) Mailer() mailer.Config {
	return mailer.Config{
		Host:     m.Host,
		Port:     m.Port,
		Username: m.Username,
		Password: m.Password,
		From:     m.From,
	}
}
