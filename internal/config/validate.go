package config

import (
	"fmt"
	"net/url"
)

// Validate performs business-rule validation on the loaded configuration.
// It must be called after loading; Load calls it automatically.
func (c *Config) Validate() error {
	if len(c.Auth.JWTSecret) < 32 {
		return fmt.Errorf("auth.jwt_secret must be at least 32 characters (got %d)", len(c.Auth.JWTSecret))
	}

	if c.Database.MinConns > c.Database.MaxConns {
		return fmt.Errorf("database.min_conns (%d) exceeds max_conns (%d)", c.Database.MinConns, c.Database.MaxConns)
	}

	if err := c.Inventory.validate(); err != nil {
		return fmt.Errorf("inventory: %w", err)
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		return fmt.Errorf("rate_limit.requests_per_minute must be >= 0 (got %d)", c.RateLimit.RequestsPerMinute)
	}

	return nil
}

func (i *InventoryConfig) validate() error {
	if i.SizeTolerance < 0 {
		return fmt.Errorf("size_tolerance must be >= 0 (got %v)", i.SizeTolerance)
	}
	if i.DefaultShelfLifeMonths <= 0 || i.DefaultShelfLifeMonths > 120 {
		return fmt.Errorf("default_shelf_life_months must be in [1, 120] (got %d)", i.DefaultShelfLifeMonths)
	}
	if i.MaxOwnedPerUser < 0 {
		return fmt.Errorf("max_owned_per_user must be >= 0 (got %d)", i.MaxOwnedPerUser)
	}
	if i.RecountPageSize <= 0 {
		return fmt.Errorf("recount_page_size must be > 0 (got %d)", i.RecountPageSize)
	}
	if i.RecountConcurrency <= 0 {
		return fmt.Errorf("recount_concurrency must be > 0 (got %d)", i.RecountConcurrency)
	}
	return nil
}

// Validate checks the client configuration.
func (c *ClientConfig) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("api.base_url must be an absolute URL (got %q)", c.API.BaseURL)
	}
	if c.Mirror.Path == "" {
		return fmt.Errorf("mirror.path is required")
	}
	if c.Sync.MaxAttempts < 1 {
		return fmt.Errorf("sync.max_attempts must be >= 1 (got %d)", c.Sync.MaxAttempts)
	}
	if c.Sync.InitialBackoff <= 0 || c.Sync.MaxBackoff < c.Sync.InitialBackoff {
		return fmt.Errorf("sync backoff must satisfy 0 < initial_backoff <= max_backoff")
	}
	if c.Sync.Concurrency < 1 {
		return fmt.Errorf("sync.concurrency must be >= 1 (got %d)", c.Sync.Concurrency)
	}
	return nil
}
