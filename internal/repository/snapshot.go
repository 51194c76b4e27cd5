// Package repository 会话内的快照缓存
package repository

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/langchou/r5gazer/internal/models"
)

// ErrNotFound 尚未抓取到任何快照
var ErrNotFound = errors.New("no snapshot available")

// SnapshotRepository 保存最近一次成功聚合的快照（只在内存中）
type SnapshotRepository struct {
	mu        sync.RWMutex
	snapshot  *models.VehicleSnapshot
	savedAt   time.Time
	lastError error
	failedAt  time.Time
}

// NewSnapshotRepository 创建快照仓库
func NewSnapshotRepository() *SnapshotRepository {
	return &SnapshotRepository{}
}

// Save 替换当前快照并清除上次的错误
func (r *SnapshotRepository) Save(ctx context.Context, snap *models.VehicleSnapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if snap == nil {
		return errors.New("save snapshot: nil snapshot")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.snapshot = snap
	r.savedAt = time.Now()
	r.lastError = nil
	return nil
}

// RecordFailure 记录刷新失败，保留已有快照
func (r *SnapshotRepository) RecordFailure(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastError = err
	r.failedAt = time.Now()
}

// Latest 获取最近的快照
func (r *SnapshotRepository) Latest(ctx context.Context) (*models.VehicleSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.snapshot == nil {
		return nil, ErrNotFound
	}
	return r.snapshot, nil
}

// SavedAt 最近一次保存时间，零值表示从未保存
func (r *SnapshotRepository) SavedAt() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.savedAt
}

// LastFailure 最近一次刷新失败的时间和原因
func (r *SnapshotRepository) LastFailure() (time.Time, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.failedAt, r.lastError
}
