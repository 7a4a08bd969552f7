package env

import (
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"
	"github.com/tamasbrandstadter/banking-gateway/internal/amount"
)

type Cfg struct {
	Port int `envconfig:"PORT" default:"8080"`

	BankAPIURL      string        `envconfig:"BANK_API_URL" default:"http://localhost:8081/api"`
	BankAPITimeout  time.Duration `envconfig:"BANK_API_TIMEOUT" default:"10s"`
	ReadAttempts    uint          `envconfig:"BANK_API_READ_ATTEMPTS" default:"3"`
	ReadRetryDelay  time.Duration `envconfig:"BANK_API_READ_RETRY_DELAY" default:"200ms"`
	BreakerFailures uint32        `envconfig:"BANK_API_BREAKER_FAILURES" default:"5"`
	BreakerTimeout  time.Duration `envconfig:"BANK_API_BREAKER_TIMEOUT" default:"30s"`

	DepositLimit    amount.Amount `envconfig:"DEPOSIT_LIMIT" default:"10000"`
	WithdrawalLimit amount.Amount `envconfig:"WITHDRAWAL_LIMIT" default:"5000"`
	TransferLimit   amount.Amount `envconfig:"TRANSFER_LIMIT" default:"10000"`

	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	SnapshotTTL time.Duration `envconfig:"SNAPSHOT_TTL" default:"5m"`

	DBUser string `envconfig:"DB_USER"`
	DBPass string `envconfig:"DB_PASSWORD"`
	DBHost string `envconfig:"DB_HOST" default:"localhost"`
	DBName string `envconfig:"DB_NAME"`
	DBPort int    `envconfig:"DB_PORT" default:"5432"`

	MQUser         string `envconfig:"MQ_USER"`
	MQPass         string `envconfig:"MQ_PASSWORD"`
	MQHost         string `envconfig:"MQ_HOST"`
	MQPort         int    `envconfig:"MQ_PORT" default:"5672"`
	MQMaxReconnect int    `envconfig:"MQ_MAX_RECONNECT" default:"5"`

	CacheHost      string        `envconfig:"CACHE_HOST" default:"localhost"`
	CachePass      string        `envconfig:"CACHE_PASSWORD"`
	CachePort      int           `envconfig:"CACHE_PORT" default:"6379"`
	CacheLocalSize int           `envconfig:"CACHE_LOCAL_SIZE" default:"1000"`
	CacheLocalTTL  time.Duration `envconfig:"CACHE_LOCAL_TTL" default:"1m"`

	ReadTimeout     time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout    time.Duration `envconfig:"WRITE_TIMEOUT" default:"15s"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"5s"`
}

func GetEnvCfg() (Cfg, error) {
	var cfg Cfg

	if err := envconfig.Process("APP", &cfg); err != nil {
		return Cfg{}, errors.Wrap(err, "parse environment variables")
	}

	if !cfg.DepositLimit.IsPositive() || !cfg.WithdrawalLimit.IsPositive() || !cfg.TransferLimit.IsPositive() {
		return Cfg{}, errors.New("transaction limits must be positive")
	}

	return cfg, nil
}
