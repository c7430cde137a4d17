package saga

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// RunRecord 运行记录的数据库行.
//
// 错误列表和补偿日志以 JSON 文本列存储，三种方言通用.
type RunRecord struct {
	SagaID          string     `gorm:"column:saga_id;primaryKey;size:36"`
	SagaType        string     `gorm:"column:saga_type;size:128;index"`
	Status          string     `gorm:"column:status;size:32;index"`
	CurrentStep     int        `gorm:"column:current_step"`
	CurrentStepName string     `gorm:"column:current_step_name;size:128"`
	StartedAt       time.Time  `gorm:"column:started_at;index"`
	CompletedAt     *time.Time `gorm:"column:completed_at"`
	CorrelationID   string     `gorm:"column:correlation_id;size:36;index"`
	UserID          string     `gorm:"column:user_id;size:64"`
	Errors          string     `gorm:"column:errors;type:text"`
	CompensationLog string     `gorm:"column:compensation_log;type:text"`
	UpdatedTime     time.Time  `gorm:"column:updated_time;autoUpdateTime"`
}

// TableName 指定表名.
func (RunRecord) TableName() string {
	return "saga_runs"
}

// GormStore 基于关系库的运行记录存储，每次运行一行.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore 创建关系库存储并迁移表结构.
//
// 连接通过 database.Open 获取，生命周期由调用方管理.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if db == nil {
		return nil, errors.New("saga: 数据库连接为空")
	}

	if err := db.AutoMigrate(&RunRecord{}); err != nil {
		return nil, fmt.Errorf("saga: 迁移运行记录表失败: %w", err)
	}

	return &GormStore{db: db}, nil
}

// Save 保存运行记录.
func (s *GormStore) Save(ctx context.Context, run *Context) error {
	rec, err := toRunRecord(run)
	if err != nil {
		return err
	}

	return s.db.WithContext(ctx).Save(rec).Error
}

// Get 按 saga id 获取运行记录.
func (s *GormStore) Get(ctx context.Context, sagaID string) (*Context, error) {
	var rec RunRecord
	err := s.db.WithContext(ctx).First(&rec, "saga_id = ?", sagaID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRunNotFound
		}
		return nil, err
	}

	return fromRunRecord(&rec)
}

// Delete 删除运行记录.
func (s *GormStore) Delete(ctx context.Context, sagaID string) error {
	return s.db.WithContext(ctx).Delete(&RunRecord{}, "saga_id = ?", sagaID).Error
}

// List 列出指定状态的运行记录，按开始时间倒序.
func (s *GormStore) List(ctx context.Context, status Status, limit int) ([]*Context, error) {
	query := s.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("started_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var recs []RunRecord
	if err := query.Find(&recs).Error; err != nil {
		return nil, err
	}

	result := make([]*Context, 0, len(recs))
	for i := range recs {
		run, err := fromRunRecord(&recs[i])
		if err != nil {
			return nil, err
		}
		result = append(result, run)
	}

	return result, nil
}

// toRunRecord 将运行上下文转换为数据库行.
func toRunRecord(run *Context) (*RunRecord, error) {
	errorsJSON, err := json.Marshal(run.Errors)
	if err != nil {
		return nil, fmt.Errorf("saga: 序列化错误列表失败: %w", err)
	}
	logJSON, err := json.Marshal(run.CompensationLog)
	if err != nil {
		return nil, fmt.Errorf("saga: 序列化补偿日志失败: %w", err)
	}

	return &RunRecord{
		SagaID:          run.SagaID,
		SagaType:        run.SagaType,
		Status:          string(run.Status),
		CurrentStep:     run.CurrentStep,
		CurrentStepName: run.CurrentStepName,
		StartedAt:       run.StartedAt,
		CompletedAt:     run.CompletedAt,
		CorrelationID:   run.CorrelationID,
		UserID:          run.UserID,
		Errors:          string(errorsJSON),
		CompensationLog: string(logJSON),
	}, nil
}

// fromRunRecord 将数据库行还原为运行上下文.
func fromRunRecord(rec *RunRecord) (*Context, error) {
	run := &Context{
		SagaID:          rec.SagaID,
		SagaType:        rec.SagaType,
		Status:          Status(rec.Status),
		CurrentStep:     rec.CurrentStep,
		CurrentStepName: rec.CurrentStepName,
		StartedAt:       rec.StartedAt,
		CompletedAt:     rec.CompletedAt,
		CorrelationID:   rec.CorrelationID,
		UserID:          rec.UserID,
	}

	if rec.Errors != "" {
		if err := json.Unmarshal([]byte(rec.Errors), &run.Errors); err != nil {
			return nil, fmt.Errorf("saga: 反序列化错误列表失败: %w", err)
		}
	}
	if rec.CompensationLog != "" {
		if err := json.Unmarshal([]byte(rec.CompensationLog), &run.CompensationLog); err != nil {
			return nil, fmt.Errorf("saga: 反序列化补偿日志失败: %w", err)
		}
	}

	return run, nil
}
