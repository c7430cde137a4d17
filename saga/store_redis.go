package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// redisStoreDefaultTTL 运行记录默认保留时长.
const redisStoreDefaultTTL = 7 * 24 * time.Hour

// RedisStore 基于 Redis 的运行记录存储.
//
// 记录以 JSON 存于 <prefix><sagaID>，并按状态维护索引集合
// <prefix>index:<status>，供 List 查询。记录带 TTL，状态索引随
// 记录过期而出现的悬空成员在 List 时惰性清理.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
}

// RedisStoreOption RedisStore 配置选项.
type RedisStoreOption func(*RedisStore)

// WithRunTTL 设置记录保留时长，默认 7 天.
func WithRunTTL(ttl time.Duration) RedisStoreOption {
	return func(s *RedisStore) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithKeyPrefix 设置键前缀，默认 "saga:run:".
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// NewRedisStore 创建 Redis 存储.
//
// 客户端生命周期由调用方管理.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) (*RedisStore, error) {
	if client == nil {
		return nil, errors.New("saga: redis 客户端为空")
	}

	s := &RedisStore{
		client: client,
		prefix: "saga:run:",
		ttl:    redisStoreDefaultTTL,
	}
	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

func (s *RedisStore) runKey(sagaID string) string {
	return s.prefix + sagaID
}

func (s *RedisStore) indexKey(status Status) string {
	return s.prefix + "index:" + string(status)
}

// 状态索引集合的全集，Save/Delete 时从旧集合移除.
var allStatuses = []Status{
	StatusPending, StatusRunning, StatusCompleted,
	StatusCompensating, StatusCompensated, StatusFailed,
}

// Save 保存运行记录.
func (s *RedisStore) Save(ctx context.Context, run *Context) error {
	data, err := json.Marshal(run)
	if err != nil {
		return fmt.Errorf("saga: 序列化运行记录失败: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.runKey(run.SagaID), data, s.ttl)
	for _, status := range allStatuses {
		if status == run.Status {
			pipe.SAdd(ctx, s.indexKey(status), run.SagaID)
			pipe.Expire(ctx, s.indexKey(status), s.ttl)
		} else {
			pipe.SRem(ctx, s.indexKey(status), run.SagaID)
		}
	}

	_, err = pipe.Exec(ctx)
	return err
}

// Get 按 saga id 获取运行记录.
func (s *RedisStore) Get(ctx context.Context, sagaID string) (*Context, error) {
	data, err := s.client.Get(ctx, s.runKey(sagaID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	var run Context
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("saga: 反序列化运行记录失败: %w", err)
	}

	return &run, nil
}

// Delete 删除运行记录.
func (s *RedisStore) Delete(ctx context.Context, sagaID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.runKey(sagaID))
	for _, status := range allStatuses {
		pipe.SRem(ctx, s.indexKey(status), sagaID)
	}

	_, err := pipe.Exec(ctx)
	return err
}

// List 列出指定状态的运行记录.
func (s *RedisStore) List(ctx context.Context, status Status, limit int) ([]*Context, error) {
	ids, err := s.client.SMembers(ctx, s.indexKey(status)).Result()
	if err != nil {
		return nil, err
	}

	var result []*Context
	for _, id := range ids {
		run, err := s.Get(ctx, id)
		if errors.Is(err, ErrRunNotFound) {
			// 记录已过期，清理悬空的索引成员
			s.client.SRem(ctx, s.indexKey(status), id)
			continue
		}
		if err != nil {
			return nil, err
		}

		result = append(result, run)
		if limit > 0 && len(result) >= limit {
			break
		}
	}

	return result, nil
}
