package eventsink

import (
	"github.com/Tsukikage7/sagakit/logger"
)

// Option Sink 配置选项函数.
type Option func(*options)

type options struct {
	logger      logger.Logger
	serviceName string
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger 设置日志记录器.
//
// 用于记录 Sink 启动、发布错误等日志.
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		o.logger = log
	}
}

// WithTracing 启用链路追踪.
//
// serviceName 作为 otel tracer 名称，发布时会创建 producer span
// 并将追踪上下文注入消息头.
func WithTracing(serviceName string) Option {
	return func(o *options) {
		o.serviceName = serviceName
	}
}
