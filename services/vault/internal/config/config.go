package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	base "github.com/guardiavault-oss/Paradexx-sub007/libs/config"
	"github.com/spf13/viper"
)

type DBConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

type KafkaTopics struct {
	Notifications       string
	DistributionRequest string
	DistributionResults string
	DeadLetter          string
}

type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
	Topics        KafkaTopics
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type MonitorConfig struct {
	SweepInterval time.Duration
	SweepTimeout  time.Duration
	MaxConcurrent int64
	BatchSize     int
	BackoffBase   time.Duration
	BackoffMax    time.Duration
}

type ReconcilerConfig struct {
	Interval   time.Duration
	RetryAfter time.Duration
	BatchSize  int
}

type RateLimitConfig struct {
	Enabled bool
	Limit   int
	Window  time.Duration
}

type VaultConfig struct {
	DefaultQuorumBps    int
	DefaultBypassWindow time.Duration
}

type Config struct {
	App             base.AppConfig
	DB              DBConfig
	Kafka           KafkaConfig
	Redis           RedisConfig
	Monitor         MonitorConfig
	Reconciler      ReconcilerConfig
	RateLimit       RateLimitConfig
	Vault           VaultConfig
	JWTSecret       string
	ExecutorKeyHash string
}

func Load() (*Config, error) {
	appCfg, err := base.Load(os.Getenv("GVX_CONFIG"))
	if err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetEnvPrefix("GVX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path := os.Getenv("GVX_CONFIG")
	if path == "" {
		path = "config.yaml"
	}
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.consumer_group", "vault-service")
	v.SetDefault("kafka.topics.notifications", "vault.notifications")
	v.SetDefault("kafka.topics.distribution_requested", "distribution.requested")
	v.SetDefault("kafka.topics.distribution_results", "distribution.results")
	v.SetDefault("kafka.topics.dead_letter", "dead_letter")
	v.SetDefault("jwt_secret", "")

	cfg := &Config{
		App: *appCfg,
		DB: DBConfig{
			Host:     envString("DB_HOST", envString("POSTGRES_HOST", "localhost")),
			Port:     envInt("DB_PORT", envInt("POSTGRES_PORT", 5432)),
			Name:     envString("DB_NAME", envString("POSTGRES_DB", "guardia_vault")),
			User:     envString("DB_USER", envString("POSTGRES_USER", "gvx")),
			Password: envString("DB_PASSWORD", envString("POSTGRES_PASSWORD", "gvx")),
			SSLMode:  envString("DB_SSLMODE", envString("POSTGRES_SSLMODE", "disable")),
		},
		Kafka: KafkaConfig{
			Brokers:       envCSV("KAFKA_BROKERS", v.GetStringSlice("kafka.brokers")),
			ConsumerGroup: envString("KAFKA_CONSUMER_GROUP", v.GetString("kafka.consumer_group")),
			Topics: KafkaTopics{
				Notifications:       envString("KAFKA_NOTIFICATIONS_TOPIC", v.GetString("kafka.topics.notifications")),
				DistributionRequest: envString("KAFKA_DISTRIBUTION_REQUESTED_TOPIC", v.GetString("kafka.topics.distribution_requested")),
				DistributionResults: envString("KAFKA_DISTRIBUTION_RESULTS_TOPIC", v.GetString("kafka.topics.distribution_results")),
				DeadLetter:          envString("KAFKA_DLQ_TOPIC", v.GetString("kafka.topics.dead_letter")),
			},
		},
		Redis: RedisConfig{
			Addr:     envString("REDIS_ADDR", "localhost:6379"),
			Password: envString("REDIS_PASSWORD", ""),
			DB:       envInt("REDIS_DB", 0),
		},
		Monitor: MonitorConfig{
			SweepInterval: envDuration("MONITOR_SWEEP_INTERVAL", time.Minute),
			SweepTimeout:  envDuration("MONITOR_SWEEP_TIMEOUT", 30*time.Second),
			MaxConcurrent: int64(envInt("MONITOR_MAX_CONCURRENT", 8)),
			BatchSize:     envInt("MONITOR_BATCH_SIZE", 500),
			BackoffBase:   envDuration("MONITOR_BACKOFF_BASE", 5*time.Second),
			BackoffMax:    envDuration("MONITOR_BACKOFF_MAX", 10*time.Minute),
		},
		Reconciler: ReconcilerConfig{
			Interval:   envDuration("RECONCILE_INTERVAL", 5*time.Minute),
			RetryAfter: envDuration("RECONCILE_RETRY_AFTER", 10*time.Minute),
			BatchSize:  envInt("RECONCILE_BATCH_SIZE", 100),
		},
		RateLimit: RateLimitConfig{
			Enabled: envBool("RATE_LIMIT_ENABLED", true),
			Limit:   envInt("RATE_LIMIT_MAX", 30),
			Window:  envDuration("RATE_LIMIT_WINDOW", time.Minute),
		},
		Vault: VaultConfig{
			DefaultQuorumBps:    envInt("DEFAULT_QUORUM_BPS", 5000),
			DefaultBypassWindow: envDuration("DEFAULT_BYPASS_WINDOW", 7*24*time.Hour),
		},
		JWTSecret:       envString("JWT_SECRET", v.GetString("jwt_secret")),
		ExecutorKeyHash: envString("EXECUTOR_KEY_HASH", ""),
	}

	if len(cfg.Kafka.Brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers required")
	}
	if cfg.Kafka.ConsumerGroup == "" {
		return nil, fmt.Errorf("kafka consumer group required")
	}
	if cfg.Kafka.Topics.Notifications == "" || cfg.Kafka.Topics.DistributionRequest == "" || cfg.Kafka.Topics.DistributionResults == "" {
		return nil, fmt.Errorf("kafka topics required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("GVX_JWT_SECRET is required")
	}
	if cfg.Vault.DefaultQuorumBps <= 0 || cfg.Vault.DefaultQuorumBps > 10000 {
		return nil, fmt.Errorf("default quorum must be within (0, 10000] basis points")
	}
	if cfg.RateLimit.Enabled && cfg.RateLimit.Limit <= 0 {
		return nil, fmt.Errorf("rate limit must be positive when enabled")
	}

	return cfg, nil
}

func envString(key, def string) string {
	if v := os.Getenv("GVX_" + key); v != "" {
		return v
	}
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv("GVX_" + key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	if v := os.Getenv("GVX_" + key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}

func envDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv("GVX_" + key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func envCSV(key string, def []string) []string {
	if v := os.Getenv("GVX_" + key); v != "" {
		if out := splitCSV(v); len(out) > 0 {
			return out
		}
	}
	if v := os.Getenv(key); v != "" {
		if out := splitCSV(v); len(out) > 0 {
			return out
		}
	}
	return def
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
