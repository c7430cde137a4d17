package saga

import (
	"fmt"
	"time"
)

// 默认重试与超时参数.
const (
	// DefaultTimeout 默认单次尝试超时.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxRetries 默认最大重试次数.
	DefaultMaxRetries = 3

	// DefaultBackoffBase 默认退避基数.
	DefaultBackoffBase = time.Second

	// DefaultBackoffCap 默认退避上限.
	DefaultBackoffCap = 30 * time.Second
)

// Config 编排器配置，可通过 config 包从文件或环境变量加载:
//
//	cfg, err := config.Load[saga.Config]("saga.yaml")
//	orch, err := saga.New(def, saga.WithConfig(cfg))
type Config struct {
	// DefaultTimeout 步骤未指定超时时使用的默认值.
	DefaultTimeout time.Duration `json:"default_timeout" yaml:"default_timeout" mapstructure:"default_timeout"`

	// DefaultMaxRetries 步骤未指定重试次数时使用的默认值.
	DefaultMaxRetries int `json:"default_max_retries" yaml:"default_max_retries" mapstructure:"default_max_retries"`

	// BackoffBase 重试退避基数，第 n 次重试前等待 base * 2^(n-1).
	BackoffBase time.Duration `json:"backoff_base" yaml:"backoff_base" mapstructure:"backoff_base"`

	// BackoffCap 重试退避上限.
	BackoffCap time.Duration `json:"backoff_cap" yaml:"backoff_cap" mapstructure:"backoff_cap"`
}

// DefaultConfig 返回默认配置.
func DefaultConfig() *Config {
	return &Config{
		DefaultTimeout:    DefaultTimeout,
		DefaultMaxRetries: DefaultMaxRetries,
		BackoffBase:       DefaultBackoffBase,
		BackoffCap:        DefaultBackoffCap,
	}
}

// Validate 验证配置.
func (c *Config) Validate() error {
	if c.DefaultTimeout < 0 {
		return fmt.Errorf("%w: default_timeout 不能为负", ErrInvalidConfig)
	}
	if c.DefaultMaxRetries < 0 {
		return fmt.Errorf("%w: default_max_retries 不能为负", ErrInvalidConfig)
	}
	if c.BackoffBase < 0 {
		return fmt.Errorf("%w: backoff_base 不能为负", ErrInvalidConfig)
	}
	if c.BackoffCap < 0 {
		return fmt.Errorf("%w: backoff_cap 不能为负", ErrInvalidConfig)
	}
	if c.BackoffCap > 0 && c.BackoffBase > c.BackoffCap {
		return fmt.Errorf("%w: backoff_base 不能大于 backoff_cap", ErrInvalidConfig)
	}
	return nil
}

// ApplyDefaults 应用默认值.
func (c *Config) ApplyDefaults() {
	if c.DefaultTimeout == 0 {
		c.DefaultTimeout = DefaultTimeout
	}
	if c.DefaultMaxRetries == 0 {
		c.DefaultMaxRetries = DefaultMaxRetries
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = DefaultBackoffBase
	}
	if c.BackoffCap == 0 {
		c.BackoffCap = DefaultBackoffCap
	}
}
