package eventsink

import "errors"

// 预定义错误.
//
// 所有错误均可通过 errors.Is 进行判断:
//
//	if errors.Is(err, eventsink.ErrSinkClosed) {
//	    // 处理 Sink 已关闭的情况
//	}
var (
	// ErrNilEvent 事件为空.
	ErrNilEvent = errors.New("eventsink: 事件为空")

	// ErrEmptyType 事件类型为空.
	ErrEmptyType = errors.New("eventsink: 事件类型为空")

	// ErrEmptySubject 事件主体为空.
	ErrEmptySubject = errors.New("eventsink: 事件主体为空")

	// ErrEncodeEvent 事件序列化失败.
	ErrEncodeEvent = errors.New("eventsink: 事件序列化失败")

	// ErrSinkClosed Sink 已关闭.
	ErrSinkClosed = errors.New("eventsink: Sink 已关闭")

	// ErrPublish 事件发布失败.
	ErrPublish = errors.New("eventsink: 事件发布失败")

	// ErrNilConfig 配置为空.
	ErrNilConfig = errors.New("eventsink: 配置为空")

	// ErrNoBrokers 未配置服务器地址.
	ErrNoBrokers = errors.New("eventsink: 未配置服务器地址")

	// ErrEmptyTopic 未配置主题.
	ErrEmptyTopic = errors.New("eventsink: 未配置主题")

	// ErrUnsupportedType 不支持的 Sink 类型.
	ErrUnsupportedType = errors.New("eventsink: 不支持的 Sink 类型")

	// ErrCreateSink 创建 Sink 失败.
	ErrCreateSink = errors.New("eventsink: 创建 Sink 失败")
)
