// Package eventsink 提供 Saga 生命周期事件的发布通道.
//
// 编排器在每次状态转换时向 Sink 追加一条事件，Sink 只写不读.
// 事件携带 saga id 和 correlation id，外部观察者无需访问上下文对象
// 即可重建完整的运行过程.
//
// 基本用法:
//
//	sink, err := eventsink.New(&eventsink.Config{
//	    Type:    "kafka",
//	    Topic:   "saga-events",
//	    Brokers: []string{"localhost:9092"},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer sink.Close()
//
//	err = sink.Publish(ctx, &eventsink.Event{
//	    Type:          "saga.create-order.started",
//	    Subject:       sagaID,
//	    CorrelationID: correlationID,
//	    Payload:       payload,
//	})
package eventsink

import (
	"context"
	"encoding/json"
	"time"
)

// Sink 类型常量.
const (
	TypeMemory   = "memory"
	TypeKafka    = "kafka"
	TypeRabbitMQ = "rabbitmq"
	TypeRedis    = "redis"
)

// Event 事件信封.
//
// Type 为点分命名的事件类型，例如 saga.create-order.step_completed.
// Subject 为 saga id，CorrelationID 用于跨系统追踪一次运行产生的
// 全部事件与副作用记录.
type Event struct {
	// Type 事件类型，必填.
	Type string `json:"type"`

	// Subject 事件主体（saga id），必填.
	Subject string `json:"subject"`

	// CorrelationID 关联标识.
	CorrelationID string `json:"correlation_id"`

	// UserID 发起用户标识（可选）.
	UserID string `json:"user_id,omitempty"`

	// Payload 事件负载，结构由事件类型决定.
	Payload any `json:"payload,omitempty"`

	// Timestamp 事件时间戳，为零值时由 Sink 填充.
	Timestamp time.Time `json:"timestamp"`
}

// Sink 事件发布接口.
type Sink interface {
	// Publish 发布事件.
	Publish(ctx context.Context, evt *Event) error

	// Close 关闭 Sink，释放资源.
	Close() error
}

// validateEvent 校验事件必填字段并填充时间戳.
func validateEvent(evt *Event) error {
	if evt == nil {
		return ErrNilEvent
	}
	if evt.Type == "" {
		return ErrEmptyType
	}
	if evt.Subject == "" {
		return ErrEmptySubject
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}
	return nil
}

// encodeEvent 将事件信封序列化为 JSON.
func encodeEvent(evt *Event) ([]byte, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return nil, ErrEncodeEvent
	}
	return data, nil
}
