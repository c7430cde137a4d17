package eventsink

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type MemorySinkTestSuite struct {
	suite.Suite
	sink *MemorySink
}

func (s *MemorySinkTestSuite) SetupTest() {
	s.sink = NewMemorySink()
}

func (s *MemorySinkTestSuite) TestPublishRecordsEvents() {
	ctx := context.Background()

	err := s.sink.Publish(ctx, &Event{Type: "saga.order.started", Subject: "saga-1"})
	s.NoError(err)
	err = s.sink.Publish(ctx, &Event{Type: "saga.order.completed", Subject: "saga-1"})
	s.NoError(err)

	events := s.sink.Events()
	s.Len(events, 2)
	s.Equal([]string{"saga.order.started", "saga.order.completed"}, s.sink.EventTypes())
}

func (s *MemorySinkTestSuite) TestPublishFillsTimestamp() {
	err := s.sink.Publish(context.Background(), &Event{Type: "saga.order.started", Subject: "saga-1"})
	s.NoError(err)

	events := s.sink.Events()
	s.Require().Len(events, 1)
	s.False(events[0].Timestamp.IsZero())
}

func (s *MemorySinkTestSuite) TestPublishKeepsGivenTimestamp() {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	err := s.sink.Publish(context.Background(), &Event{
		Type:      "saga.order.started",
		Subject:   "saga-1",
		Timestamp: ts,
	})
	s.NoError(err)
	s.Equal(ts, s.sink.Events()[0].Timestamp)
}

func (s *MemorySinkTestSuite) TestPublishValidation() {
	ctx := context.Background()

	s.ErrorIs(s.sink.Publish(ctx, nil), ErrNilEvent)
	s.ErrorIs(s.sink.Publish(ctx, &Event{Subject: "saga-1"}), ErrEmptyType)
	s.ErrorIs(s.sink.Publish(ctx, &Event{Type: "saga.order.started"}), ErrEmptySubject)
}

func (s *MemorySinkTestSuite) TestSubscribeDispatch() {
	var received []string
	s.sink.Subscribe(func(ctx context.Context, evt *Event) error {
		received = append(received, evt.Type)
		return nil
	})

	err := s.sink.Publish(context.Background(), &Event{Type: "saga.order.started", Subject: "saga-1"})
	s.NoError(err)
	s.Equal([]string{"saga.order.started"}, received)
}

func (s *MemorySinkTestSuite) TestHandlerErrorPropagates() {
	wantErr := errors.New("处理失败")
	s.sink.Subscribe(func(ctx context.Context, evt *Event) error {
		return wantErr
	})

	err := s.sink.Publish(context.Background(), &Event{Type: "saga.order.started", Subject: "saga-1"})
	s.ErrorIs(err, wantErr)

	// 事件仍被记录
	s.Len(s.sink.Events(), 1)
}

func (s *MemorySinkTestSuite) TestEventsSnapshotIsolated() {
	err := s.sink.Publish(context.Background(), &Event{Type: "saga.order.started", Subject: "saga-1"})
	s.NoError(err)

	snapshot := s.sink.Events()
	snapshot[0] = nil

	s.NotNil(s.sink.Events()[0])
}

func (s *MemorySinkTestSuite) TestReset() {
	err := s.sink.Publish(context.Background(), &Event{Type: "saga.order.started", Subject: "saga-1"})
	s.NoError(err)

	s.sink.Reset()
	s.Empty(s.sink.Events())
}

func (s *MemorySinkTestSuite) TestPublishAfterClose() {
	s.NoError(s.sink.Close())

	err := s.sink.Publish(context.Background(), &Event{Type: "saga.order.started", Subject: "saga-1"})
	s.ErrorIs(err, ErrSinkClosed)
}

func TestMemorySinkTestSuite(t *testing.T) {
	suite.Run(t, new(MemorySinkTestSuite))
}
