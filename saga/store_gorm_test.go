package saga

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/Tsukikage7/sagakit/database"
	"github.com/Tsukikage7/sagakit/logger"
)

type GormStoreTestSuite struct {
	suite.Suite
	store *GormStore
}

func (s *GormStoreTestSuite) SetupTest() {
	db, err := database.Open(&database.Config{
		Driver:   database.DriverSQLite,
		DSN:      ":memory:",
		LogLevel: "silent",
	}, logger.NewNop())
	s.Require().NoError(err)

	store, err := NewGormStore(db)
	s.Require().NoError(err)
	s.store = store
}

func (s *GormStoreTestSuite) TestNilDB() {
	_, err := NewGormStore(nil)
	s.Error(err)
}

func (s *GormStoreTestSuite) TestSaveGetRoundTrip() {
	ctx := context.Background()
	run := testRun("saga-1", StatusCompensated)

	s.Require().NoError(s.store.Save(ctx, run))

	got, err := s.store.Get(ctx, "saga-1")
	s.Require().NoError(err)

	s.Equal(run.SagaID, got.SagaID)
	s.Equal(run.SagaType, got.SagaType)
	s.Equal(run.Status, got.Status)
	s.Equal(run.CurrentStep, got.CurrentStep)
	s.Equal(run.CurrentStepName, got.CurrentStepName)
	s.Equal(run.CorrelationID, got.CorrelationID)
	s.Equal(run.UserID, got.UserID)

	// 错误列表和补偿日志经 JSON 列往返
	s.Require().Len(got.Errors, 1)
	s.Equal("charge", got.Errors[0].StepName)
	s.Equal("支付被拒", got.Errors[0].Message)

	s.Require().Len(got.CompensationLog, 1)
	s.Equal("reserve", got.CompensationLog[0].StepName)
	s.Equal(CompensationStatusCompensated, got.CompensationLog[0].Status)
	s.Require().NotNil(got.CompensationLog[0].Compensation)
	s.Equal("act-2", got.CompensationLog[0].Compensation.ActionID)
}

func (s *GormStoreTestSuite) TestSaveUpdatesExistingRow() {
	ctx := context.Background()
	run := testRun("saga-1", StatusRunning)
	s.Require().NoError(s.store.Save(ctx, run))

	now := time.Now()
	run.Status = StatusCompleted
	run.CompletedAt = &now
	s.Require().NoError(s.store.Save(ctx, run))

	got, err := s.store.Get(ctx, "saga-1")
	s.Require().NoError(err)
	s.Equal(StatusCompleted, got.Status)
	s.NotNil(got.CompletedAt)

	// 更新而不是插入新行
	runs, err := s.store.List(ctx, StatusCompleted, 0)
	s.Require().NoError(err)
	s.Len(runs, 1)
}

func (s *GormStoreTestSuite) TestGetNotFound() {
	_, err := s.store.Get(context.Background(), "不存在")
	s.ErrorIs(err, ErrRunNotFound)
}

func (s *GormStoreTestSuite) TestDelete() {
	ctx := context.Background()
	s.Require().NoError(s.store.Save(ctx, testRun("saga-1", StatusCompleted)))

	s.Require().NoError(s.store.Delete(ctx, "saga-1"))

	_, err := s.store.Get(ctx, "saga-1")
	s.ErrorIs(err, ErrRunNotFound)
}

func (s *GormStoreTestSuite) TestListByStatus() {
	ctx := context.Background()

	first := testRun("saga-1", StatusCompleted)
	first.StartedAt = time.Now().Add(-2 * time.Hour)
	s.Require().NoError(s.store.Save(ctx, first))

	second := testRun("saga-2", StatusCompleted)
	second.StartedAt = time.Now().Add(-time.Hour)
	s.Require().NoError(s.store.Save(ctx, second))

	s.Require().NoError(s.store.Save(ctx, testRun("saga-3", StatusFailed)))

	completed, err := s.store.List(ctx, StatusCompleted, 0)
	s.Require().NoError(err)
	s.Require().Len(completed, 2)

	// 按开始时间倒序
	s.Equal("saga-2", completed[0].SagaID)
	s.Equal("saga-1", completed[1].SagaID)

	limited, err := s.store.List(ctx, StatusCompleted, 1)
	s.Require().NoError(err)
	s.Len(limited, 1)
}

func TestGormStoreTestSuite(t *testing.T) {
	suite.Run(t, new(GormStoreTestSuite))
}
