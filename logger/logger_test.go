package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
)

// LoggerTestSuite logger 测试套件.
type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (s *LoggerTestSuite) TestNewLogger_NilConfig() {
	log, err := NewLogger(nil)
	s.Error(err)
	s.Nil(log)
}

func (s *LoggerTestSuite) TestNewLogger_DefaultConfig() {
	log, err := NewLogger(DefaultConfig())
	s.NoError(err)
	s.NotNil(log)
	defer log.Close()
}

func (s *LoggerTestSuite) TestNewLogger_DevConfig() {
	log, err := NewLogger(NewDevConfig())
	s.NoError(err)
	s.NotNil(log)
	defer log.Close()
}

func (s *LoggerTestSuite) TestNewLogger_InvalidLevel() {
	config := &Config{Level: "invalid"}
	log, err := NewLogger(config)
	s.Error(err)
	s.Nil(log)

	var configErr *ConfigError
	s.ErrorAs(err, &configErr)
	s.Equal("level", configErr.Field)
}

func (s *LoggerTestSuite) TestNewLogger_InvalidFormat() {
	config := &Config{Format: "invalid"}
	log, err := NewLogger(config)
	s.Error(err)
	s.Nil(log)
}

func (s *LoggerTestSuite) TestMustNewLogger_Panics() {
	s.Panics(func() {
		MustNewLogger(&Config{Level: "invalid"})
	})
}

func (s *LoggerTestSuite) TestConfig_ApplyDefaults() {
	config := &Config{}
	config.ApplyDefaults()

	s.Equal(LevelInfo, config.Level)
	s.Equal(FormatJSON, config.Format)
	s.Equal("sagakit", config.ServiceName)
}

func (s *LoggerTestSuite) TestWith_ReturnsNewLogger() {
	log := NewNop()
	child := log.With(String("step", "reserve-inventory"), Int("index", 2))
	s.NotNil(child)

	// 原 logger 不受影响
	s.NotSame(log, child)
}

func (s *LoggerTestSuite) TestWithContext_NoIDs() {
	log := NewNop()

	// 没有运行标识时返回自身
	same := log.WithContext(context.Background())
	s.Same(log, same)
}

func (s *LoggerTestSuite) TestWithContext_SagaIDs() {
	log := NewNop()

	ctx := ContextWithSagaID(context.Background(), "saga-123")
	ctx = ContextWithCorrelationID(ctx, "corr-456")

	child := log.WithContext(ctx)
	s.NotSame(log, child)
}

func (s *LoggerTestSuite) TestFieldConstructors() {
	now := time.Now()
	err := errors.New("boom")

	tests := []struct {
		field Field
		key   string
	}{
		{String("s", "v"), "s"},
		{Int("i", 1), "i"},
		{Int64("i64", 2), "i64"},
		{Float64("f", 1.5), "f"},
		{Bool("b", true), "b"},
		{Time("t", now), "t"},
		{Duration("d", time.Second), "d"},
		{Err(err), "error"},
		{Any("a", struct{}{}), "a"},
	}

	for _, tt := range tests {
		s.Equal(tt.key, tt.field.Key)
	}
}

func (s *LoggerTestSuite) TestToZapField_Types() {
	s.Equal(zap.String("k", "v"), toZapField(Field{Key: "k", Value: "v"}))
	s.Equal(zap.Int("k", 42), toZapField(Field{Key: "k", Value: 42}))
	s.Equal(zap.Bool("k", true), toZapField(Field{Key: "k", Value: true}))
	s.Equal(zap.Duration("k", time.Minute), toZapField(Field{Key: "k", Value: time.Minute}))
}

func (s *LoggerTestSuite) TestNop_DoesNotPanic() {
	log := NewNop()
	log.Debug("debug")
	log.Infof("info %d", 1)
	log.Warn("warn")
	log.Errorf("error %v", errors.New("x"))
	s.NoError(log.Sync())
	s.NoError(log.Close())
}
