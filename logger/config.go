package logger

import (
	"fmt"
	"strings"
)

// Config 日志配置.
type Config struct {
	// ServiceName 服务名称，作为固定字段输出.
	ServiceName string `json:"service_name" yaml:"service_name" mapstructure:"service_name"`

	// Level 日志级别: debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format 输出格式: json, console.
	Format string `json:"format" yaml:"format" mapstructure:"format"`

	// EnableCaller 是否记录调用者信息.
	EnableCaller bool `json:"enable_caller" yaml:"enable_caller" mapstructure:"enable_caller"`

	// EnableStacktrace 是否在 Error 级别记录堆栈.
	EnableStacktrace bool `json:"enable_stacktrace" yaml:"enable_stacktrace" mapstructure:"enable_stacktrace"`

	// CallerSkip 调用者跳过层数.
	CallerSkip int `json:"caller_skip" yaml:"caller_skip" mapstructure:"caller_skip"`
}

// ConfigError 配置错误.
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("logger config error [%s]: %s", e.Field, e.Message)
}

// Validate 验证配置.
func (c *Config) Validate() error {
	if c == nil {
		return &ConfigError{Field: "config", Message: "config cannot be nil"}
	}

	if c.Level != "" && !isValidLevel(c.Level) {
		return &ConfigError{Field: "level", Message: "invalid log level: " + c.Level}
	}

	if c.Format != "" && !isValidFormat(c.Format) {
		return &ConfigError{Field: "format", Message: "invalid format: " + c.Format}
	}

	return nil
}

// ApplyDefaults 应用默认值.
func (c *Config) ApplyDefaults() {
	if c.Level == "" {
		c.Level = LevelInfo
	}
	if c.Format == "" {
		c.Format = FormatJSON
	}
	if c.ServiceName == "" {
		c.ServiceName = "sagakit"
	}
}

// isValidLevel 检查日志级别是否有效.
func isValidLevel(level string) bool {
	switch strings.ToLower(level) {
	case LevelDebug, LevelInfo, LevelWarn, "warning", LevelError:
		return true
	}
	return false
}

// isValidFormat 检查格式是否有效.
func isValidFormat(format string) bool {
	switch strings.ToLower(format) {
	case FormatJSON, FormatConsole:
		return true
	}
	return false
}

// DefaultConfig 返回默认配置.
func DefaultConfig() *Config {
	config := &Config{}
	config.ApplyDefaults()
	return config
}

// NewDevConfig 返回开发环境配置.
func NewDevConfig() *Config {
	return &Config{
		Level:        LevelDebug,
		Format:       FormatConsole,
		EnableCaller: true,
	}
}
