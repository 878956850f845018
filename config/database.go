package config

import "time"

// DBConfig contains PostgreSQL database configuration.
type DBConfig struct {
	Host     string `env:"HOST"     envDefault:"localhost"`
	Port     int    `env:"PORT"     envDefault:"5432"`
	User     string `env:"USER"     envDefault:"opsdeck"`
	Password string `env:"PASSWORD" envDefault:"opsdeck"`
	Name     string `env:"NAME"     envDefault:"opsdeck"`
	SSLMode  string `env:"SSL_MODE" envDefault:"disable"` // Use 'disable' for local dev, 'require' for production
	// RunMigrationsOnStart controls whether the application automatically applies migrations during startup.
	RunMigrationsOnStart bool `env:"RUN_MIGRATIONS_ON_START" envDefault:"true"`
}

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// CacheConfig contains cache configuration (Redis-based).
type CacheConfig struct {
	// ContextTTL is the TTL for cached tenant context summaries. The context
	// aggregator is read-only and re-runnable, so a short TTL only trades a
	// little staleness for fewer cross-entity scans.
	ContextTTL time.Duration `env:"CACHE_CONTEXT_TTL" envDefault:"5m"`
}
