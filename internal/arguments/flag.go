package arguments

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
)

const (
	StoragePostgres = "postgres"
	StorageMongo    = "mongo"
	StorageMemory   = "memory"
)

type ServerConfig struct {
	HPServer           string `env:"HTTP_URL"`
	Storage            string `env:"STORAGE"`
	PostgresDSN        string `env:"POSTGRES_DSN"`
	MongoURI           string `env:"MONGO_URI"`
	MongoDB            string `env:"MONGO_DB"`
	NatsURL            string `env:"NATS_URL"`
	NatsSubject        string `env:"NATS_SUBJECT"`
	CacheSize          int    `env:"CACHE_SIZE"`
	CacheTimeLimitSecs int    `env:"CACHE_LIMIT_SECS"`
	LogLevel           string `env:"LOG_LEVEL"`
}

func (c *ServerConfig) CacheTTL() time.Duration {
	return time.Second * time.Duration(c.CacheTimeLimitSecs)
}

// ParseArgsServer reads flags from args; non-empty environment variables win.
func ParseArgsServer(args []string) (*ServerConfig, error) {
	var cfg ServerConfig
	fs := flag.NewFlagSet("server", flag.ContinueOnError)
	fs.StringVar(&cfg.HPServer, "s", "0.0.0.0:8000", "HTTP <host>:<port> to listen on")
	fs.StringVar(&cfg.Storage, "storage", StoragePostgres, "Storage backend: postgres, mongo or memory")
	fs.StringVar(&cfg.PostgresDSN, "p", "postgres://localhost:5432/users?sslmode=disable", "Postgres connection string")
	fs.StringVar(&cfg.MongoURI, "m", "mongodb://localhost:27017", "Mongo connection URI")
	fs.StringVar(&cfg.MongoDB, "mdb", "user-management", "Mongo database name")
	fs.StringVar(&cfg.NatsURL, "n", "", "Nats <host>:<port> to import users from, empty disables import")
	fs.StringVar(&cfg.NatsSubject, "subj", "users.import", "Nats subject with users to import")
	fs.IntVar(&cfg.CacheSize, "cs", 128, "Cache max capacity")
	fs.IntVar(&cfg.CacheTimeLimitSecs, "ctl", 60, "Cache time limit on value in seconds")
	fs.StringVar(&cfg.LogLevel, "l", "info", "Log level")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("Problem with parsing of flags: %w", err)
	}
	var envCfg ServerConfig
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("Problem with parsing of env variables: %w", err)
	}
	override(&cfg.HPServer, envCfg.HPServer)
	override(&cfg.Storage, envCfg.Storage)
	override(&cfg.PostgresDSN, envCfg.PostgresDSN)
	override(&cfg.MongoURI, envCfg.MongoURI)
	override(&cfg.MongoDB, envCfg.MongoDB)
	override(&cfg.NatsURL, envCfg.NatsURL)
	override(&cfg.NatsSubject, envCfg.NatsSubject)
	override(&cfg.LogLevel, envCfg.LogLevel)
	if envCfg.CacheSize != 0 {
		cfg.CacheSize = envCfg.CacheSize
	}
	if envCfg.CacheTimeLimitSecs != 0 {
		cfg.CacheTimeLimitSecs = envCfg.CacheTimeLimitSecs
	}
	switch cfg.Storage {
	case StoragePostgres, StorageMongo, StorageMemory:
	default:
		return nil, fmt.Errorf("unknown storage %q", cfg.Storage)
	}
	if cfg.CacheSize < 1 {
		return nil, fmt.Errorf("cache size must be positive, got %d", cfg.CacheSize)
	}
	return &cfg, nil
}

func override(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
