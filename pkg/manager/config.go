package manager

import (
	"time"

	"github.com/zosbridge/commongo/pkg/rescapabilities"
)

// DefaultTimeoutSeconds bounds every external tool invocation and native call
// when the configuration does not say otherwise.
const DefaultTimeoutSeconds = 30

// ResourceConfig describes how to reach one external resource plus the two
// backend-selection knobs. It is produced by the configuration loader,
// consumed read-only by the factory and the backends, and re-read on every
// Create*Manager call; the factory never caches it.
type ResourceConfig struct {
	// Connection details
	Host     string `json:"host" mapstructure:"host"`
	Port     int    `json:"port" mapstructure:"port"`
	User     string `json:"user" mapstructure:"user"`
	Password string `json:"password" mapstructure:"password"`

	// Name is the database name (database resources).
	Name string `json:"name,omitempty" mapstructure:"name"`

	// Schema is the default schema (database resources).
	Schema string `json:"schema,omitempty" mapstructure:"schema"`

	// QueueManager is the broker's queue manager name (messaging resources).
	QueueManager string `json:"queue_manager,omitempty" mapstructure:"queue_manager"`

	// Channel is the server-connection channel (messaging resources).
	Channel string `json:"channel,omitempty" mapstructure:"channel"`

	// Timeout bounds each external invocation or native call, in seconds.
	Timeout int `json:"timeout,omitempty" mapstructure:"timeout"`

	// Implementation selects the backend strategy: "cli" or "library".
	// Empty means "cli".
	Implementation string `json:"implementation,omitempty" mapstructure:"implementation"`

	// AutoFallback controls whether a "library" request degrades to the CLI
	// backend when the native driver is unavailable. Nil means true.
	AutoFallback *bool `json:"auto_fallback,omitempty" mapstructure:"auto_fallback"`
}

// ImplementationOrDefault returns the configured implementation selector,
// defaulting to cli. The value is not validated here; the factory rejects
// unknown selectors.
func (c ResourceConfig) ImplementationOrDefault() Implementation {
	if c.Implementation == "" {
		return ImplementationCLI
	}
	return Implementation(c.Implementation)
}

// AutoFallbackEnabled reports whether library→cli fallback is permitted.
// Unset defaults to true.
func (c ResourceConfig) AutoFallbackEnabled() bool {
	if c.AutoFallback == nil {
		return true
	}
	return *c.AutoFallback
}

// TimeoutDuration returns the per-invocation timeout as a duration,
// applying the package default when unset or non-positive.
func (c ResourceConfig) TimeoutDuration() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeoutSeconds * time.Second
	}
	return time.Duration(c.Timeout) * time.Second
}

// HostOrDefault returns the configured host, defaulting to localhost.
func (c ResourceConfig) HostOrDefault() string {
	if c.Host == "" {
		return "localhost"
	}
	return c.Host
}

// PortOrDefault returns the configured port, defaulting to the conventional
// listener port for the resource kind.
func (c ResourceConfig) PortOrDefault(kind rescapabilities.ResourceKind) int {
	if c.Port != 0 {
		return c.Port
	}
	return rescapabilities.MustGet(kind).DefaultPort
}
