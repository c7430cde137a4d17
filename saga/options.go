package saga

import (
	"time"

	"github.com/Tsukikage7/sagakit/eventsink"
	"github.com/Tsukikage7/sagakit/logger"
	"github.com/Tsukikage7/sagakit/metrics"
)

// Option 编排器配置选项函数.
type Option func(*options)

// options 编排器配置.
type options struct {
	logger            logger.Logger
	sink              eventsink.Sink
	store             Store
	metrics           *sagaMetrics
	tracer            *sagaTracer
	defaultTimeout    time.Duration
	defaultMaxRetries int
	backoffBase       time.Duration
	backoffCap        time.Duration
}

// defaultOptions 返回默认配置.
func defaultOptions() *options {
	return &options{
		logger:            logger.NewNop(),
		store:             NewNopStore(),
		defaultTimeout:    DefaultTimeout,
		defaultMaxRetries: DefaultMaxRetries,
		backoffBase:       DefaultBackoffBase,
		backoffCap:        DefaultBackoffCap,
	}
}

// applyOptions 应用配置选项.
func applyOptions(opts []Option) *options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger 设置日志记录器，默认不输出.
func WithLogger(log logger.Logger) Option {
	return func(o *options) {
		if log != nil {
			o.logger = log
		}
	}
}

// WithSink 设置生命周期事件的发布通道.
//
// 不设置时不发布事件。发布失败记录日志和指标后继续，
// 不会中断运行.
func WithSink(sink eventsink.Sink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithStore 设置运行记录存储.
//
// 不设置时使用 NopStore（不保存记录）。保存失败只记录日志，
// 不影响运行结果.
func WithStore(store Store) Option {
	return func(o *options) {
		if store != nil {
			o.store = store
		}
	}
}

// WithMetrics 设置指标收集器.
func WithMetrics(collector *metrics.PrometheusCollector) Option {
	return func(o *options) {
		o.metrics = newSagaMetrics(collector)
	}
}

// WithTracing 启用链路追踪.
//
// serviceName 作为 otel tracer 名称，每次运行、每次步骤尝试和
// 每次补偿都会产生 span.
func WithTracing(serviceName string) Option {
	return func(o *options) {
		o.tracer = newSagaTracer(serviceName)
	}
}

// WithDefaultTimeout 设置步骤默认超时.
func WithDefaultTimeout(timeout time.Duration) Option {
	return func(o *options) {
		if timeout > 0 {
			o.defaultTimeout = timeout
		}
	}
}

// WithDefaultMaxRetries 设置默认最大重试次数.
func WithDefaultMaxRetries(maxRetries int) Option {
	return func(o *options) {
		if maxRetries >= 0 {
			o.defaultMaxRetries = maxRetries
		}
	}
}

// WithBackoff 设置重试退避参数.
func WithBackoff(base, maxDelay time.Duration) Option {
	return func(o *options) {
		if base > 0 {
			o.backoffBase = base
		}
		if maxDelay > 0 {
			o.backoffCap = maxDelay
		}
	}
}

// WithConfig 从配置结构应用重试与超时参数.
func WithConfig(cfg *Config) Option {
	return func(o *options) {
		if cfg == nil {
			return
		}
		if cfg.DefaultTimeout > 0 {
			o.defaultTimeout = cfg.DefaultTimeout
		}
		if cfg.DefaultMaxRetries >= 0 {
			o.defaultMaxRetries = cfg.DefaultMaxRetries
		}
		if cfg.BackoffBase > 0 {
			o.backoffBase = cfg.BackoffBase
		}
		if cfg.BackoffCap > 0 {
			o.backoffCap = cfg.BackoffCap
		}
	}
}

// StartOption 单次运行的启动选项.
type StartOption func(*startOptions)

type startOptions struct {
	userID string
}

// WithInitiator 设置本次运行的发起用户标识.
func WithInitiator(userID string) StartOption {
	return func(o *startOptions) {
		o.userID = userID
	}
}
