package app

import (
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	log "github.com/sirupsen/logrus"
)

// Поддерживаемые драйверы хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Форматы логов.
const (
	LogFormatText = "text"
	LogFormatJSON = "json"
)

const envPrefix = "OMS"

// Config описывает настройки запуска. Значения читаются из OMS_* переменных
// окружения и необязательного config.yaml поверх значений по умолчанию.
type Config struct {
	HTTPAddr    string `default:":8080" env:"HTTP_ADDR" yaml:"http_addr" usage:"HTTP API listen address"`
	GRPCAddr    string `default:":50051" env:"GRPC_ADDR" yaml:"grpc_addr" usage:"gRPC health listen address"`
	MetricsAddr string `default:":9090" env:"METRICS_ADDR" yaml:"metrics_addr" usage:"metrics and health listen address"`

	StorageDriver       string `default:"memory" env:"STORAGE_DRIVER" yaml:"storage_driver" usage:"memory|postgres"`
	PostgresDSN         string `env:"POSTGRES_DSN" yaml:"postgres_dsn" usage:"PostgreSQL DSN"`
	PostgresAutoMigrate bool   `default:"true" env:"POSTGRES_AUTO_MIGRATE" yaml:"postgres_auto_migrate"`

	KafkaBrokers []string `env:"KAFKA_BROKERS" yaml:"kafka_brokers" usage:"comma separated broker list"`
	KafkaTopic   string   `default:"oms.order.events" env:"KAFKA_TOPIC" yaml:"kafka_topic"`

	OutboxPollInterval time.Duration `default:"1s" env:"OUTBOX_POLL_INTERVAL" yaml:"outbox_poll_interval"`
	OutboxBatchSize    int           `default:"100" env:"OUTBOX_BATCH_SIZE" yaml:"outbox_batch_size"`
	OutboxMaxAttempts  int           `default:"3" env:"OUTBOX_MAX_ATTEMPTS" yaml:"outbox_max_attempts"`
	OutboxRetryDelay   time.Duration `default:"50ms" env:"OUTBOX_RETRY_DELAY" yaml:"outbox_retry_delay"`
	// OutboxMaxPending и OutboxMaxAge — пороги деградации в /healthz.
	OutboxMaxPending int           `default:"1000" env:"OUTBOX_MAX_PENDING" yaml:"outbox_max_pending"`
	OutboxMaxAge     time.Duration `default:"5m" env:"OUTBOX_MAX_AGE" yaml:"outbox_max_age"`

	LogLevel        string `default:"info" env:"LOG_LEVEL" yaml:"log_level"`
	LogFormat       string `default:"text" env:"LOG_FORMAT" yaml:"log_format" usage:"text|json"`
	DefaultCurrency string `default:"USD" env:"DEFAULT_CURRENCY" yaml:"default_currency"`
}

// DefaultConfig возвращает значения по умолчанию без чтения окружения и файлов.
func DefaultConfig() Config {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		SkipFiles: true,
		SkipEnv:   true,
		SkipFlags: true,
	})
	if err := loader.Load(); err != nil {
		// Теги default статичны, ошибка здесь означает опечатку в коде.
		panic(errors.Wrap(err, "load default config"))
	}
	return cfg
}

// LoadConfig читает конфигурацию из окружения и config.yaml (если он есть).
// Флаги командной строки не разбираются.
func LoadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{"config.yaml", "/etc/oms/config.yaml"}
	}

	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix:          envPrefix,
		SkipFlags:          true,
		AllowUnknownEnvs:   true,
		AllowUnknownFields: true,
		Files:              files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}

	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) normalize() {
	c.StorageDriver = strings.ToLower(strings.TrimSpace(c.StorageDriver))
	c.PostgresDSN = strings.TrimSpace(c.PostgresDSN)
	c.LogFormat = strings.ToLower(strings.TrimSpace(c.LogFormat))
	c.KafkaTopic = strings.TrimSpace(c.KafkaTopic)

	brokers := make([]string, 0, len(c.KafkaBrokers))
	for _, b := range c.KafkaBrokers {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	c.KafkaBrokers = brokers
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("OMS_POSTGRES_DSN is required for postgres storage")
		}
	default:
		return errors.Errorf("unsupported storage driver %q", c.StorageDriver)
	}

	switch c.LogFormat {
	case LogFormatText, LogFormatJSON:
	default:
		return errors.Errorf("unsupported log format %q", c.LogFormat)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return errors.Wrap(err, "parse log level")
	}

	switch {
	case c.OutboxPollInterval <= 0:
		return errors.New("outbox poll interval must be > 0")
	case c.OutboxBatchSize <= 0:
		return errors.New("outbox batch size must be > 0")
	case c.OutboxMaxAttempts <= 0:
		return errors.New("outbox max attempts must be > 0")
	case c.OutboxRetryDelay < 0:
		return errors.New("outbox retry delay must be >= 0")
	case c.OutboxMaxPending < 0:
		return errors.New("outbox max pending must be >= 0")
	}
	return nil
}

// ConfigureLogger применяет уровень и формат к глобальному логгеру logrus.
func ConfigureLogger(cfg Config) error {
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		return errors.Wrap(err, "parse log level")
	}
	log.SetLevel(level)

	if cfg.LogFormat == LogFormatJSON {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return nil
}
