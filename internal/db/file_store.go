package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"prompt-runner/internal/model"
)

// ErrCorrupt 日志文件存在但无法解析
var ErrCorrupt = errors.New("日志文件已损坏")

// FileLogStore 单个 JSON 文件保存全部执行日志
type FileLogStore struct {
	path string
}

func NewFileLogStore(path string) *FileLogStore {
	return &FileLogStore{path: path}
}

// Load 文件不存在视为空列表；内容损坏返回错误，由调用方决定是否降级
func (s *FileLogStore) Load(ctx context.Context) ([]model.ExecutionLog, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []model.ExecutionLog{}, nil
		}
		return nil, fmt.Errorf("读取日志文件失败: %w", err)
	}

	var logs []model.ExecutionLog
	if err := json.Unmarshal(data, &logs); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if logs == nil {
		logs = []model.ExecutionLog{}
	}
	return logs, nil
}

// Replace 先写临时文件再 rename，避免写一半留下损坏的文件
func (s *FileLogStore) Replace(ctx context.Context, logs []model.ExecutionLog) error {
	if logs == nil {
		logs = []model.ExecutionLog{}
	}
	data, err := json.MarshalIndent(logs, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化日志失败: %w", err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("创建日志目录失败: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".execution_logs-*.json")
	if err != nil {
		return fmt.Errorf("创建临时文件失败: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("写入日志文件失败: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("写入日志文件失败: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("替换日志文件失败: %w", err)
	}
	return nil
}
