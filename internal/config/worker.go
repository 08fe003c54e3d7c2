package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

type WorkerRedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	Group    string
	Consumer string
}

type QueueConfig struct {
	ClaimInterval time.Duration
	MaxDeliveries int64
}

type LoggingConfig struct {
	Level string
}

// WorkerConfig configures the mail delivery worker.
type WorkerConfig struct {
	Environment string
	Redis       WorkerRedisConfig
	Queues      QueueConfig
	SMTP        SMTPConfig
	From        string
	Logging     LoggingConfig
}

func LoadWorker() (*WorkerConfig, error) {
	v := viper.New()
	v.SetConfigName("worker")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("../config")
	v.SetEnvPrefix("BLOOGLE_WORKER")
	v.SetEnvKeyReplacer(envKeyReplacer)
	v.AutomaticEnv()

	setWorkerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	var cfg WorkerConfig
	if err := v.Unmarshal(&cfg, decoderOptions); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	if cfg.Queues.ClaimInterval <= 0 {
		return nil, fmt.Errorf("queues.claiminterval must be positive")
	}

	return &cfg, nil
}

func setWorkerDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")
	v.SetDefault("redis.addr", "127.0.0.1:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "mail:outbound")
	v.SetDefault("redis.group", "mail-senders")
	v.SetDefault("redis.consumer", "worker-1")

	v.SetDefault("queues.claiminterval", "30s")
	v.SetDefault("queues.maxdeliveries", 5)

	v.SetDefault("smtp.host", "127.0.0.1")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("from", "Team Bloogle <no-reply@bloogle.local>")

	v.SetDefault("logging.level", "info")
}
