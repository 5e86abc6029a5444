package server

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"broadoak/internal/api"
	"broadoak/internal/config"
	"broadoak/internal/importer"
	"broadoak/internal/model"
	"broadoak/internal/remote"
	"broadoak/internal/store"
)

// ShiftBackend 用户目录与班次存储（sqlite / firestore / memory）
type ShiftBackend interface {
	importer.ShiftStore
	CreateUser(ctx context.Context, name string) (model.User, error)
}

// JournalBackend 导入日志与变更日志；始终位于本地数据库（或内存）
type JournalBackend interface {
	importer.Journal
	api.History
}

// Backend 已打开的存储组合
type Backend struct {
	Name    string
	Shifts  ShiftBackend
	Journal JournalBackend
	closers []func() error
}

// DatabaseFile 本地 SQLite 数据库文件名
const DatabaseFile = "broadoak.db"

// OpenBackend 按配置打开存储后端
func OpenBackend(ctx context.Context, cfg *config.AppConfig, logger *zap.Logger) (*Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Backend{Name: cfg.Store.Backend}

	if cfg.Store.Backend == config.BackendMemory {
		mem := store.NewMemoryStore()
		b.Shifts, b.Journal = mem, mem
		logger.Warn("using in-memory store; data is lost on exit")
		return b, nil
	}

	dataDir, err := config.EnsureDataDir(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare data dir: %w", err)
	}
	sqliteStore, err := store.New(filepath.Join(dataDir, DatabaseFile), logger)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, sqliteStore.Close)
	b.Shifts, b.Journal = sqliteStore, sqliteStore

	if cfg.Store.Backend == config.BackendFirestore {
		fs, err := remote.New(ctx, remote.Config{
			ProjectID:        cfg.Store.FirestoreProject,
			CredentialsFile:  cfg.Store.FirestoreCredentials,
			UsersCollection:  cfg.Store.UsersCollection,
			ShiftsCollection: cfg.Store.ShiftsCollection,
		}, logger)
		if err != nil {
			_ = b.Close()
			return nil, err
		}
		b.closers = append(b.closers, fs.Close)
		b.Shifts = fs
	}
	return b, nil
}

// Close 关闭全部底层连接
func (b *Backend) Close() error {
	var errs []error
	for i := len(b.closers) - 1; i >= 0; i-- {
		if err := b.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	b.closers = nil
	return errors.Join(errs...)
}
