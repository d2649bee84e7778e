package datasource

import (
	"fmt"
	"time"
)

// Config is the connection configuration of one store.
type Config struct {
	Host           string            `koanf:"host" yaml:"host"`
	Port           int               `koanf:"port" yaml:"port"`
	Database       string            `koanf:"database" yaml:"database"` // file path for sqlite
	Username       string            `koanf:"username" yaml:"username"`
	Password       string            `koanf:"password" yaml:"password"`
	SSLMode        string            `koanf:"ssl_mode" yaml:"ssl_mode"`
	Params         map[string]string `koanf:"params" yaml:"params"`
	Pool           PoolConfig        `koanf:"pool" yaml:"pool"`
	ConnectTimeout time.Duration     `koanf:"connect_timeout" yaml:"connect_timeout"`
	Retry          *RetryConfig      `koanf:"retry" yaml:"retry,omitempty"`
}

// PoolConfig defines connection pool settings.
type PoolConfig struct {
	MaxOpen     int           `koanf:"max_open" yaml:"max_open"`
	MaxIdle     int           `koanf:"max_idle" yaml:"max_idle"`
	MaxLifetime time.Duration `koanf:"max_lifetime" yaml:"max_lifetime"`
	MaxIdleTime time.Duration `koanf:"max_idle_time" yaml:"max_idle_time"`
}

// RetryConfig defines connection retry behavior.
type RetryConfig struct {
	MaxRetries int           `koanf:"max_retries" yaml:"max_retries"`
	BaseDelay  time.Duration `koanf:"base_delay" yaml:"base_delay"`
	MaxDelay   time.Duration `koanf:"max_delay" yaml:"max_delay"`
}

// ClusterConfig is one store group: a primary and its read replicas.
type ClusterConfig struct {
	Provider     string   `koanf:"provider" yaml:"provider"`
	Primary      Config   `koanf:"primary" yaml:"primary"`
	Replicas     []Config `koanf:"replicas" yaml:"replicas"`
	ReadStrategy string   `koanf:"read_strategy" yaml:"read_strategy"`
}

// Validate validates cluster configuration.
func (cc *ClusterConfig) Validate() error {
	if cc.Provider == "" {
		return fmt.Errorf("provider is required")
	}
	if _, err := NewBalancer(cc.ReadStrategy); err != nil {
		return err
	}
	return nil
}

// RegistryConfig describes every store group and which owner uses which.
type RegistryConfig struct {
	Groups  map[string]ClusterConfig `koanf:"groups" yaml:"groups"`
	Owners  map[string]string        `koanf:"owners" yaml:"owners"` // owner id -> group
	Default string                   `koanf:"default" yaml:"default"`
}

// Validate checks that every reference names a configured group.
func (rc *RegistryConfig) Validate() error {
	if len(rc.Groups) == 0 {
		return fmt.Errorf("no store groups configured")
	}
	for name, g := range rc.Groups {
		if err := g.Validate(); err != nil {
			return fmt.Errorf("group %s: %w", name, err)
		}
	}
	for owner, group := range rc.Owners {
		if _, ok := rc.Groups[group]; !ok {
			return fmt.Errorf("owner %s: unknown group %q", owner, group)
		}
	}
	if rc.Default != "" {
		if _, ok := rc.Groups[rc.Default]; !ok {
			return fmt.Errorf("unknown default group %q", rc.Default)
		}
	}
	return nil
}
