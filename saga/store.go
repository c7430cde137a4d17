package saga

import (
	"context"
	"sync"
	"time"
)

// Store 运行记录存储接口.
//
// 保存的是 Context 的审计快照（启动时和终态转换时各一次），不是
// 恢复检查点：运行不可中断续跑。存储失败只记录日志，不影响运行.
type Store interface {
	// Save 保存运行记录.
	Save(ctx context.Context, run *Context) error

	// Get 按 saga id 获取运行记录.
	Get(ctx context.Context, sagaID string) (*Context, error)

	// Delete 删除运行记录.
	Delete(ctx context.Context, sagaID string) error

	// List 列出指定状态的运行记录.
	List(ctx context.Context, status Status, limit int) ([]*Context, error)
}

// cloneRun 深拷贝运行记录.
func cloneRun(run *Context) *Context {
	copied := *run

	if run.CompletedAt != nil {
		t := *run.CompletedAt
		copied.CompletedAt = &t
	}
	if run.Errors != nil {
		copied.Errors = append([]ErrorRecord(nil), run.Errors...)
	}
	if run.CompensationLog != nil {
		copied.CompensationLog = make([]CompensationLogEntry, len(run.CompensationLog))
		copy(copied.CompensationLog, run.CompensationLog)
		for i := range copied.CompensationLog {
			if c := copied.CompensationLog[i].Compensation; c != nil {
				cc := *c
				copied.CompensationLog[i].Compensation = &cc
			}
		}
	}

	return &copied
}

// MemoryStore 基于内存的运行记录存储.
//
// 适用于单机部署和测试场景，后台定期清理到达终态超过 24 小时的记录.
type MemoryStore struct {
	mu      sync.RWMutex
	runs    map[string]*Context
	closeCh chan struct{}
}

// NewMemoryStore 创建内存存储.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		runs:    make(map[string]*Context),
		closeCh: make(chan struct{}),
	}

	go s.cleanup()

	return s
}

// Save 保存运行记录.
func (s *MemoryStore) Save(ctx context.Context, run *Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.runs[run.SagaID] = cloneRun(run)
	return nil
}

// Get 按 saga id 获取运行记录.
func (s *MemoryStore) Get(ctx context.Context, sagaID string) (*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	run, ok := s.runs[sagaID]
	if !ok {
		return nil, ErrRunNotFound
	}

	return cloneRun(run), nil
}

// Delete 删除运行记录.
func (s *MemoryStore) Delete(ctx context.Context, sagaID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.runs, sagaID)
	return nil
}

// List 列出指定状态的运行记录.
func (s *MemoryStore) List(ctx context.Context, status Status, limit int) ([]*Context, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Context
	for _, run := range s.runs {
		if run.Status == status {
			result = append(result, cloneRun(run))
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}

	return result, nil
}

// Close 关闭存储，停止后台清理.
func (s *MemoryStore) Close() error {
	close(s.closeCh)
	return nil
}

// cleanup 定期清理终态记录.
func (s *MemoryStore) cleanup() {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-s.closeCh:
			return
		case <-ticker.C:
			s.doCleanup()
		}
	}
}

func (s *MemoryStore) doCleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, run := range s.runs {
		if run.Status.IsTerminal() && run.CompletedAt != nil {
			if now.Sub(*run.CompletedAt) > 24*time.Hour {
				delete(s.runs, id)
			}
		}
	}
}

// NopStore 空存储，不保存任何记录.
//
// 默认存储，适用于不需要审计记录的场景.
type NopStore struct{}

// NewNopStore 创建空存储.
func NewNopStore() *NopStore {
	return &NopStore{}
}

// Save 保存记录（空实现）.
func (s *NopStore) Save(ctx context.Context, run *Context) error {
	return nil
}

// Get 获取记录（始终返回未找到）.
func (s *NopStore) Get(ctx context.Context, sagaID string) (*Context, error) {
	return nil, ErrRunNotFound
}

// Delete 删除记录（空实现）.
func (s *NopStore) Delete(ctx context.Context, sagaID string) error {
	return nil
}

// List 列出记录（返回空列表）.
func (s *NopStore) List(ctx context.Context, status Status, limit int) ([]*Context, error) {
	return nil, nil
}
