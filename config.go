package signoff

import (
	"context"
	"errors"
	"fmt"

	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/signoff/internal/env"
	"github.com/viant/signoff/internal/retry"
	"github.com/viant/signoff/service/event"
	"github.com/viant/signoff/tracing"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
)

// Config is a serialisable representation of the service configuration. It
// can be populated from YAML or JSON; fields left out keep their defaults.
type Config struct {
	Engine        EngineConfig  `json:"engine" yaml:"engine"`
	Store         StoreConfig   `json:"store" yaml:"store"`
	Notifications event.Config  `json:"notifications" yaml:"notifications"`
	Retry         retry.Policy  `json:"retry" yaml:"retry"`
	Tracing       tracing.Config `json:"tracing" yaml:"tracing"`
	Logging       LoggingConfig `json:"logging" yaml:"logging"`
}

// EngineConfig controls approval semantics.
type EngineConfig struct {
	// AutoApproveWithoutFlow approves submissions no flow governs; when false
	// they fail with engine.ErrFlowNotFound.
	AutoApproveWithoutFlow bool `json:"autoApproveWithoutFlow" yaml:"autoApproveWithoutFlow"`
	StrictVoting           bool `json:"strictVoting" yaml:"strictVoting"`
}

// StoreConfig selects the request store and flow repository.
type StoreConfig struct {
	Driver       string `json:"driver" yaml:"driver"`
	DSN          string `json:"dsn,omitempty" yaml:"dsn,omitempty"`
	EnsureSchema bool   `json:"ensureSchema,omitempty" yaml:"ensureSchema,omitempty"`
}

type LoggingConfig struct {
	Level       string `json:"level" yaml:"level"`
	Development bool   `json:"development" yaml:"development"`
}

// DefaultConfig returns the configuration New uses when none is supplied.
func DefaultConfig() *Config {
	return &Config{
		Engine:        EngineConfig{AutoApproveWithoutFlow: true},
		Store:         StoreConfig{Driver: DriverMemory},
		Notifications: event.DefaultConfig(),
		Retry:         *retry.Default(),
		Tracing:       tracing.Config{ServiceName: "signoff", ServiceVersion: "0.1.0"},
		Logging:       LoggingConfig{Level: "info"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	switch c.Store.Driver {
	case "", DriverMemory:
	case DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, fmt.Errorf("store.dsn is required for %v", DriverPostgres))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported store.driver: %q", c.Store.Driver))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.maxAttempts must be > 0"))
	}
	if c.Notifications.Enabled && len(c.Notifications.Channels) == 0 {
		errs = append(errs, fmt.Errorf("notifications.channels must not be empty when enabled"))
	}
	if c.Notifications.UseQueue && c.Notifications.Queue.QueueBuffer <= 0 {
		errs = append(errs, fmt.Errorf("notifications.queue.queueBuffer must be > 0"))
	}
	if c.Logging.Level != "" {
		var level zapcore.Level
		if err := level.UnmarshalText([]byte(c.Logging.Level)); err != nil {
			errs = append(errs, fmt.Errorf("logging.level: %w", err))
		}
	}
	return errors.Join(errs...)
}

// LoadConfig reads a YAML configuration from URL on top of DefaultConfig;
// ${env.NAME} references are replaced with environment values first.
func LoadConfig(ctx context.Context, URL string, options ...storage.Option) (*Config, error) {
	data, err := afs.New().DownloadWithURL(ctx, URL, options...)
	if err != nil {
		return nil, fmt.Errorf("failed to download config %v: %w", URL, err)
	}
	ret := DefaultConfig()
	if err = yaml.Unmarshal([]byte(env.ExpandOS(string(data))), ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
	}
	if err = ret.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %v: %w", URL, err)
	}
	return ret, nil
}
