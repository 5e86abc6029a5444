package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"broadoak/internal/model"
	"broadoak/internal/reconcile"
)

// MemoryStore 内存数据存储，与 SQLite 存储行为一致，用于测试与 memory 后端
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]model.User
	shifts   map[string]model.Shift
	logs     map[string]model.ImportLog
	failures map[string][]model.Failure
	events   []model.ShiftEvent
	seen     map[string]bool

	batchErr error
	batches  int
}

// NewMemoryStore 创建内存存储
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:    make(map[string]model.User),
		shifts:   make(map[string]model.Shift),
		logs:     make(map[string]model.ImportLog),
		failures: make(map[string][]model.Failure),
		seen:     make(map[string]bool),
	}
}

// ListUsers 获取全部用户，按 ID 排序
func (s *MemoryStore) ListUsers(_ context.Context) ([]model.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].ID < users[j].ID })
	return users, nil
}

// CreateUser 新增用户
func (s *MemoryStore) CreateUser(_ context.Context, name string) (model.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.User{}, ErrInvalidUser
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	u := model.User{ID: uuid.NewString(), Name: name}
	s.users[u.ID] = u
	return u, nil
}

// UpsertUsers 按 ID 写入用户
func (s *MemoryStore) UpsertUsers(_ context.Context, users []model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range users {
		if strings.TrimSpace(u.Name) == "" {
			return ErrInvalidUser
		}
		if u.ID == "" {
			u.ID = uuid.NewString()
		}
		s.users[u.ID] = u
	}
	return nil
}

// PutShifts 直接写入班次（用于准备测试数据）
func (s *MemoryStore) PutShifts(shifts ...model.Shift) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, sh := range shifts {
		if sh.ID == "" {
			sh.ID = uuid.NewString()
		}
		s.shifts[sh.ID] = sh
	}
}

// ListShiftsInRange 查询日期在 [from, to] 内的班次
func (s *MemoryStore) ListShiftsInRange(_ context.Context, from, to time.Time) ([]model.Shift, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var shifts []model.Shift
	for _, sh := range s.shifts {
		if sh.Date.Before(from) || sh.Date.After(to) {
			continue
		}
		shifts = append(shifts, sh)
	}
	sort.Slice(shifts, func(i, j int) bool {
		if !shifts[i].Date.Equal(shifts[j].Date) {
			return shifts[i].Date.Before(shifts[j].Date)
		}
		return shifts[i].ID < shifts[j].ID
	})
	return shifts, nil
}

// Count 班次总数
func (s *MemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.shifts)
}

// Batches 成功提交的批次数
func (s *MemoryStore) Batches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.batches
}

// FailBatches 使之后的 ApplyBatch 返回 err；传 nil 恢复正常
func (s *MemoryStore) FailBatches(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batchErr = err
}

// ApplyBatch 原子地执行一批操作：先在副本上执行，全部成功后替换
func (s *MemoryStore) ApplyBatch(_ context.Context, ops []model.ShiftOp, protected model.StatusSet) (model.BatchResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.batchErr != nil {
		return model.BatchResult{}, s.batchErr
	}

	next := make(map[string]model.Shift, len(s.shifts)+len(ops))
	for id, sh := range s.shifts {
		next[id] = sh
	}

	res := model.BatchResult{Applied: make([]model.ShiftOp, 0, len(ops))}
	for _, op := range ops {
		switch op.Kind {
		case model.OpCreate:
			sh := op.Shift
			if sh.ID == "" {
				sh.ID = uuid.NewString()
			}
			if sh.Status == "" {
				sh.Status = model.StatusPendingConfirmation
			}
			next[sh.ID] = sh
			op.Shift = sh
		case model.OpUpdate:
			if op.Update == nil {
				return model.BatchResult{}, fmt.Errorf("update op without field changes")
			}
			cur, ok := next[op.Update.ID]
			if !ok {
				return model.BatchResult{}, fmt.Errorf("failed to update shift %s: %w", op.Update.ID, ErrShiftNotFound)
			}
			if protected.Has(cur.Status) {
				res.Skipped = append(res.Skipped, op)
				continue
			}
			next[cur.ID] = op.Update.Apply(cur)
		case model.OpDelete:
			if cur, ok := next[op.Shift.ID]; ok && protected.Has(cur.Status) {
				res.Skipped = append(res.Skipped, op)
				continue
			}
			delete(next, op.Shift.ID)
		default:
			return model.BatchResult{}, fmt.Errorf("unknown op kind %q", op.Kind)
		}
		res.Applied = append(res.Applied, op)
	}

	s.shifts = next
	s.batches++
	return res, nil
}

// SaveImportLog 写入或更新导入日志
func (s *MemoryStore) SaveImportLog(_ context.Context, log model.ImportLog, failures []model.Failure) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.logs[log.ID] = log
	s.failures[log.ID] = append([]model.Failure{}, failures...)
	return nil
}

// GetImportLog 按 ID 查询导入日志
func (s *MemoryStore) GetImportLog(_ context.Context, id string) (model.ImportLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	log, ok := s.logs[id]
	if !ok {
		return model.ImportLog{}, ErrImportNotFound
	}
	return log, nil
}

// ListImportLogs 按开始时间倒序列出导入日志
func (s *MemoryStore) ListImportLogs(_ context.Context, limit int) ([]model.ImportLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	logs := make([]model.ImportLog, 0, len(s.logs))
	for _, l := range s.logs {
		logs = append(logs, l)
	}
	sort.Slice(logs, func(i, j int) bool {
		if !logs[i].StartedAt.Equal(logs[j].StartedAt) {
			return logs[i].StartedAt.After(logs[j].StartedAt)
		}
		return logs[i].ID < logs[j].ID
	})
	if limit > 0 && len(logs) > limit {
		logs = logs[:limit]
	}
	return logs, nil
}

// ListImportFailures 查询某次导入的失败记录
func (s *MemoryStore) ListImportFailures(_ context.Context, importID string) ([]model.Failure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.logs[importID]; !ok {
		return nil, ErrImportNotFound
	}
	return append([]model.Failure{}, s.failures[importID]...), nil
}

// RecordChanges 写入班次变更日志，按签名去重
func (s *MemoryStore) RecordChanges(_ context.Context, importID string, changes []reconcile.ChangeSet) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recorded := 0
	for _, c := range changes {
		if c.Kind == reconcile.ChangeUnchanged {
			continue
		}
		sig := c.Signature()
		if s.seen[sig] {
			continue
		}
		s.seen[sig] = true
		s.events = append(s.events, model.ShiftEvent{
			ID:        int64(len(s.events) + 1),
			ImportID:  importID,
			ShiftID:   c.ShiftID,
			Kind:      string(c.Kind),
			Fields:    c.Fields,
			Signature: sig,
			CreatedAt: time.Now().UTC(),
		})
		recorded++
	}
	return recorded, nil
}

// ListShiftEvents 查询变更日志（最新在前）
func (s *MemoryStore) ListShiftEvents(_ context.Context, shiftID string, limit int) ([]model.ShiftEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := []model.ShiftEvent{}
	for i := len(s.events) - 1; i >= 0; i-- {
		e := s.events[i]
		if shiftID != "" && e.ShiftID != shiftID {
			continue
		}
		events = append(events, e)
		if limit > 0 && len(events) >= limit {
			break
		}
	}
	return events, nil
}
