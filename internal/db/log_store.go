package db

import (
	"context"
	"fmt"

	"prompt-runner/internal/model"

	"gorm.io/gorm"
)

// GormLogStore 把执行日志存到 execution_logs / execution_log_items 两张表
type GormLogStore struct {
	db *gorm.DB
}

func NewGormLogStore(conn *gorm.DB) *GormLogStore {
	return &GormLogStore{db: conn}
}

// Load 按 position 升序返回，即最新的在前
func (s *GormLogStore) Load(ctx context.Context) ([]model.ExecutionLog, error) {
	var logs []model.ExecutionLog
	err := s.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB {
			return tx.Order("seq ASC")
		}).
		Order("position ASC").
		Find(&logs).Error
	if err != nil {
		return nil, fmt.Errorf("查询执行日志失败: %w", err)
	}
	return logs, nil
}

// Replace 在一个事务里整体替换
func (s *GormLogStore) Replace(ctx context.Context, logs []model.ExecutionLog) error {
	rows := make([]model.ExecutionLog, len(logs))
	for i, l := range logs {
		l.Position = i
		items := make([]model.ExecutionLogItem, len(l.Items))
		for j, it := range l.Items {
			it.ID = 0
			it.LogID = l.ID
			it.Seq = j
			items[j] = it
		}
		l.Items = items
		rows[i] = l
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.ExecutionLogItem{}).Error; err != nil {
			return fmt.Errorf("清空日志条目失败: %w", err)
		}
		if err := tx.Where("1 = 1").Delete(&model.ExecutionLog{}).Error; err != nil {
			return fmt.Errorf("清空日志失败: %w", err)
		}
		if len(rows) == 0 {
			return nil
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("写入执行日志失败: %w", err)
		}
		return nil
	})
}
