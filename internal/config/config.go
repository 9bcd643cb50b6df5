package config

import "time"

// Config is the root server configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Auth      AuthConfig      `yaml:"auth"`
	Inventory InventoryConfig `yaml:"inventory"`
	Log       LogConfig       `yaml:"log"`
	CORS      CORSConfig      `yaml:"cors"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins   string `yaml:"allowed_origins"   env:"CORS_ALLOWED_ORIGINS"   env-default:"*"`
	AllowedMethods   string `yaml:"allowed_methods"   env:"CORS_ALLOWED_METHODS"   env-default:"GET,POST,PATCH,DELETE,OPTIONS"`
	AllowedHeaders   string `yaml:"allowed_headers"   env:"CORS_ALLOWED_HEADERS"   env-default:"Authorization,Content-Type,X-Request-Id"`
	AllowCredentials bool   `yaml:"allow_credentials" env:"CORS_ALLOW_CREDENTIALS" env-default:"true"`
	MaxAge           int    `yaml:"max_age"           env:"CORS_MAX_AGE"           env-default:"86400"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host            string        `yaml:"host"             env:"SERVER_HOST"             env-default:"0.0.0.0"`
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"30s"`
	IdleTimeout     time.Duration `yaml:"idle_timeout"     env:"SERVER_IDLE_TIMEOUT"     env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"                env:"DATABASE_DSN"                env-required:"true"`
	MaxConns        int32         `yaml:"max_conns"          env:"DATABASE_MAX_CONNS"          env-default:"25"`
	MinConns        int32         `yaml:"min_conns"          env:"DATABASE_MIN_CONNS"          env-default:"5"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"  env:"DATABASE_MAX_CONN_LIFETIME"  env-default:"1h"`
	MaxConnIdleTime time.Duration `yaml:"max_conn_idle_time" env:"DATABASE_MAX_CONN_IDLE_TIME" env-default:"30m"`
}

// AuthConfig holds bearer token validation settings. Tokens are issued
// elsewhere; this service only verifies them.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret" env:"AUTH_JWT_SECRET" env-required:"true"`
	JWTIssuer string `yaml:"jwt_issuer" env:"AUTH_JWT_ISSUER" env-default:"beautyshelf"`
}

// InventoryConfig holds reconciliation and inference parameters.
type InventoryConfig struct {
	SizeTolerance          float64 `yaml:"size_tolerance"            env:"INVENTORY_SIZE_TOLERANCE"            env-default:"10"`
	DefaultShelfLifeMonths int     `yaml:"default_shelf_life_months" env:"INVENTORY_DEFAULT_SHELF_LIFE_MONTHS" env-default:"36"`
	MaxOwnedPerUser        int     `yaml:"max_owned_per_user"        env:"INVENTORY_MAX_OWNED_PER_USER"        env-default:"5000"`
	RecountPageSize        int     `yaml:"recount_page_size"         env:"INVENTORY_RECOUNT_PAGE_SIZE"         env-default:"500"`
	RecountConcurrency     int     `yaml:"recount_concurrency"       env:"INVENTORY_RECOUNT_CONCURRENCY"       env-default:"4"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// RateLimitConfig holds per-client request limits for the API.
type RateLimitConfig struct {
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"RATE_LIMIT_RPM"             env-default:"300"`
	CleanupInterval   time.Duration `yaml:"cleanup_interval"    env:"RATE_LIMIT_CLEANUP_INTERVAL" env-default:"5m"`
}

// ClientConfig is the root configuration of the shelfctl client.
type ClientConfig struct {
	API    APIConfig    `yaml:"api"`
	Mirror MirrorConfig `yaml:"mirror"`
	Sync   SyncConfig   `yaml:"sync"`
	Log    LogConfig    `yaml:"log"`
}

// APIConfig points the client at the server.
type APIConfig struct {
	BaseURL        string        `yaml:"base_url"        env:"SHELF_API_BASE_URL"        env-default:"http://localhost:8080"`
	Token          string        `yaml:"token"           env:"SHELF_API_TOKEN"`
	RequestTimeout time.Duration `yaml:"request_timeout" env:"SHELF_API_REQUEST_TIMEOUT" env-default:"15s"`
}

// MirrorConfig locates the local SQLite mirror.
type MirrorConfig struct {
	Path string `yaml:"path" env:"SHELF_MIRROR_PATH" env-default:"./shelf.db"`
}

// SyncConfig tunes the sync mediator's retry policy.
type SyncConfig struct {
	MaxAttempts    int           `yaml:"max_attempts"    env:"SHELF_SYNC_MAX_ATTEMPTS"    env-default:"5"`
	InitialBackoff time.Duration `yaml:"initial_backoff" env:"SHELF_SYNC_INITIAL_BACKOFF" env-default:"500ms"`
	MaxBackoff     time.Duration `yaml:"max_backoff"     env:"SHELF_SYNC_MAX_BACKOFF"     env-default:"30s"`
	Concurrency    int           `yaml:"concurrency"     env:"SHELF_SYNC_CONCURRENCY"     env-default:"4"`
}
