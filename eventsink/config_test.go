package eventsink

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		config  *Config
		wantErr error
	}{
		{
			name:   "空类型默认memory",
			config: &Config{},
		},
		{
			name:   "memory",
			config: &Config{Type: TypeMemory},
		},
		{
			name:   "kafka完整配置",
			config: &Config{Type: TypeKafka, Brokers: []string{"localhost:9092"}},
		},
		{
			name:    "kafka缺少brokers",
			config:  &Config{Type: TypeKafka},
			wantErr: ErrNoBrokers,
		},
		{
			name:   "rabbitmq完整配置",
			config: &Config{Type: TypeRabbitMQ, URL: "amqp://localhost:5672/"},
		},
		{
			name:    "rabbitmq缺少url",
			config:  &Config{Type: TypeRabbitMQ},
			wantErr: ErrNoBrokers,
		},
		{
			name:   "redis完整配置",
			config: &Config{Type: TypeRedis, Addr: "localhost:6379"},
		},
		{
			name:    "redis缺少addr",
			config:  &Config{Type: TypeRedis},
			wantErr: ErrNoBrokers,
		},
		{
			name:    "不支持的类型",
			config:  &Config{Type: "nats"},
			wantErr: ErrUnsupportedType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfigApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.ApplyDefaults()

	assert.Equal(t, TypeMemory, cfg.Type)
	assert.Equal(t, "saga-events", cfg.Topic)
}

func TestNewNilConfig(t *testing.T) {
	sink, err := New(nil)
	assert.Nil(t, sink)
	assert.ErrorIs(t, err, ErrNilConfig)
}

func TestNewMemory(t *testing.T) {
	sink, err := New(&Config{})
	require.NoError(t, err)
	defer sink.Close()

	_, ok := sink.(*MemorySink)
	assert.True(t, ok)
}

func TestNewUnsupportedType(t *testing.T) {
	sink, err := New(&Config{Type: "sqs"})
	assert.Nil(t, sink)
	assert.ErrorIs(t, err, ErrUnsupportedType)
}

func TestNewKafkaSinkValidation(t *testing.T) {
	_, err := NewKafkaSink(nil, "saga-events")
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, err = NewKafkaSink([]string{"localhost:9092"}, "")
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func TestNewRedisSinkValidation(t *testing.T) {
	_, err := NewRedisSink("", "saga-events")
	assert.ErrorIs(t, err, ErrNoBrokers)

	_, err = NewRedisSink("localhost:6379", "")
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func TestNewRabbitMQSinkValidation(t *testing.T) {
	_, err := NewRabbitMQSink(nil)
	assert.ErrorIs(t, err, ErrNilConfig)

	_, err = NewRabbitMQSink(&Config{Type: TypeRabbitMQ})
	assert.ErrorIs(t, err, ErrNoBrokers)
}
