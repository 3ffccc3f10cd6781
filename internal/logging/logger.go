package logging

import (
	"fmt"
	"strings"

	"prompt-runner/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New 按配置构造 zap logger：development 为彩色控制台输出，否则为 JSON
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if lvl := strings.TrimSpace(cfg.Level); lvl != "" {
		var l zapcore.Level
		if err := l.UnmarshalText([]byte(lvl)); err != nil {
			return nil, fmt.Errorf("无效的日志级别 %q: %w", lvl, err)
		}
		zc.Level = zap.NewAtomicLevelAt(l)
	}

	logger, err := zc.Build()
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	return logger, nil
}

// OrNop 服务构造时允许传 nil
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
