package service

import (
	"context"
	"fmt"

	"prompt-runner/internal/config"
	"prompt-runner/internal/db"
	"prompt-runner/internal/logging"

	"go.uber.org/zap"
)

// ServiceContext 进程内共享的依赖；由 main 构造后注入 handler 和命令
type ServiceContext struct {
	Config   *config.Config
	Backend  Backend
	Catalog  Catalog
	Recorder *LogRecorder
	Runner   *Runner
	Logger   *zap.Logger

	closers []func() error
}

func NewServiceContext(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*ServiceContext, error) {
	logger = logging.OrNop(logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	backend, err := NewBackend(ctx, cfg.GenAI, logger.Named("backend"))
	if err != nil {
		return nil, err
	}

	catalog, err := LoadCatalog(cfg.Catalog.Path)
	if err != nil {
		return nil, err
	}

	svc := &ServiceContext{
		Config:  cfg,
		Backend: backend,
		Catalog: catalog,
		Logger:  logger,
	}

	store, closeStore, err := OpenLogStore(cfg, logger.Named("db"))
	if err != nil {
		return nil, err
	}
	svc.closers = append(svc.closers, closeStore)
	svc.Recorder = NewLogRecorder(store, cfg.LogStore.Capacity, logger.Named("recorder"))
	svc.Runner = NewRunner(
		catalog,
		NewFactExtractor(backend, logger.Named("facts")),
		NewItemSelector(backend, logger.Named("selector")),
		NewPipeline(backend, logger.Named("pipeline")),
		svc.Recorder,
		logger.Named("runner"),
	)
	return svc, nil
}

// NewServiceContextWith 直接使用给定依赖组装，测试和嵌入场景用
func NewServiceContextWith(cfg *config.Config, backend Backend, catalog Catalog, store LogStore, logger *zap.Logger) *ServiceContext {
	logger = logging.OrNop(logger)
	recorder := NewLogRecorder(store, cfg.LogStore.Capacity, logger)
	return &ServiceContext{
		Config:   cfg,
		Backend:  backend,
		Catalog:  catalog,
		Recorder: recorder,
		Runner: NewRunner(catalog,
			NewFactExtractor(backend, logger),
			NewItemSelector(backend, logger),
			NewPipeline(backend, logger),
			recorder,
			logger),
		Logger: logger,
	}
}

// OpenLogStore 按 log_store.kind 打开执行日志存储；返回的 close 用于释放数据库连接
func OpenLogStore(cfg *config.Config, logger *zap.Logger) (LogStore, func() error, error) {
	switch cfg.LogStore.Kind {
	case config.StoreKindDB:
		conn, err := db.Open(cfg.Database, logger)
		if err != nil {
			return nil, nil, fmt.Errorf("初始化数据库失败: %w", err)
		}
		sqlDB, err := conn.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("获取数据库连接失败: %w", err)
		}
		return db.NewGormLogStore(conn), sqlDB.Close, nil
	default:
		return db.NewFileLogStore(cfg.LogStore.Path), func() error { return nil }, nil
	}
}

// Close 释放数据库连接等资源
func (s *ServiceContext) Close() error {
	var firstErr error
	for _, c := range s.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
