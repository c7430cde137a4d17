package eventsink

import (
	"context"
	"sync"
)

// Handler 事件处理回调.
type Handler func(ctx context.Context, evt *Event) error

// MemorySink 内存事件通道.
//
// 事件按发布顺序记录在内存中，并同步分发给已订阅的处理器.
// 适用于单进程部署和测试场景.
type MemorySink struct {
	mu       sync.RWMutex
	events   []*Event
	handlers []Handler
	closed   bool
}

// NewMemorySink 创建内存事件通道.
func NewMemorySink() *MemorySink {
	return &MemorySink{
		events: make([]*Event, 0),
	}
}

// Subscribe 订阅所有事件.
//
// 处理器按订阅顺序同步调用，处理器返回的错误会作为发布错误返回.
func (s *MemorySink) Subscribe(handler Handler) {
	if handler == nil {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = append(s.handlers, handler)
}

// Publish 发布事件.
func (s *MemorySink) Publish(ctx context.Context, evt *Event) error {
	if err := validateEvent(evt); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSinkClosed
	}

	// 浅拷贝信封，调用方后续修改不影响记录
	copied := *evt
	s.events = append(s.events, &copied)
	handlers := make([]Handler, len(s.handlers))
	copy(handlers, s.handlers)
	s.mu.Unlock()

	for _, h := range handlers {
		if err := h(ctx, &copied); err != nil {
			return err
		}
	}

	return nil
}

// Events 返回已记录事件的快照.
func (s *MemorySink) Events() []*Event {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshot := make([]*Event, len(s.events))
	copy(snapshot, s.events)
	return snapshot
}

// EventTypes 返回已记录事件类型的快照，按发布顺序.
func (s *MemorySink) EventTypes() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	types := make([]string, len(s.events))
	for i, evt := range s.events {
		types[i] = evt.Type
	}
	return types
}

// Reset 清空已记录的事件.
func (s *MemorySink) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = s.events[:0]
}

// Close 关闭 Sink.
func (s *MemorySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
