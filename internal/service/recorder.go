package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"prompt-runner/internal/config"
	"prompt-runner/internal/db"
	"prompt-runner/internal/model"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// LogStore 执行日志的整体读写；顺序即存储顺序（新的在前）
type LogStore interface {
	Load(ctx context.Context) ([]model.ExecutionLog, error)
	Replace(ctx context.Context, logs []model.ExecutionLog) error
}

// LogRecorder 组装并保存执行日志，条数上限固定，最新的在最前
type LogRecorder struct {
	store    LogStore
	capacity int
	logger   *zap.Logger
	now      func() time.Time

	// 读-改-写整个列表期间互斥，避免并发保存丢失更新
	mu sync.Mutex
}

func NewLogRecorder(store LogStore, capacity int, logger *zap.Logger) *LogRecorder {
	if capacity <= 0 || capacity > config.MaxLogCapacity {
		capacity = config.MaxLogCapacity
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogRecorder{store: store, capacity: capacity, logger: logger, now: time.Now}
}

// Record 按 ItemID 合并模板快照与执行结果；没有结果的项直接跳过
func (r *LogRecorder) Record(input model.InputData, items []model.SelectedItem, results []model.ExecutionResult) model.ExecutionLog {
	byID := make(map[string]model.ExecutionResult, len(results))
	for _, res := range results {
		if _, ok := byID[res.ItemID]; !ok {
			byID[res.ItemID] = res
		}
	}

	log := model.ExecutionLog{
		ID:             uuid.NewString(),
		ExecutedAt:     r.now(),
		InputText:      input.RawText,
		ExtractedFacts: input.ExtractedFacts,
		Items:          make([]model.ExecutionLogItem, 0, len(items)),
	}
	for _, item := range items {
		res, ok := byID[item.ID]
		if !ok {
			continue
		}
		log.Items = append(log.Items, model.ExecutionLogItem{
			ItemID:         item.ID,
			ItemTitle:      item.Title,
			PromptTemplate: item.PromptTemplate,
			UserNote:       item.UserNote,
			ResultContent:  res.Content,
			Success:        res.Success,
			ErrorMessage:   res.ErrorMessage,
		})
	}
	return log
}

// Save 插到最前，超过容量时丢弃最旧的
func (r *LogRecorder) Save(ctx context.Context, log model.ExecutionLog) error {
	ctx, span := tracer.Start(ctx, "logs.save")
	span.SetAttributes(attribute.String("log.id", log.ID))

	r.mu.Lock()
	defer r.mu.Unlock()

	logs, err := r.loadForWrite(ctx)
	if err != nil {
		endSpan(span, err)
		return err
	}
	logs = append([]model.ExecutionLog{log}, logs...)
	if len(logs) > r.capacity {
		logs = logs[:r.capacity]
	}

	err = r.replace(ctx, logs)
	endSpan(span, err)
	return err
}

func (r *LogRecorder) List(ctx context.Context) []model.ExecutionLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(ctx)
}

func (r *LogRecorder) Get(ctx context.Context, id string) (model.ExecutionLog, bool) {
	for _, l := range r.List(ctx) {
		if l.ID == id {
			return l, true
		}
	}
	return model.ExecutionLog{}, false
}

// Delete 删除不存在的 id 不算错误
func (r *LogRecorder) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	logs, err := r.loadForWrite(ctx)
	if err != nil {
		return err
	}
	kept := logs[:0]
	for _, l := range logs {
		if l.ID != id {
			kept = append(kept, l)
		}
	}
	return r.replace(ctx, kept)
}

func (r *LogRecorder) Clear(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.replace(ctx, []model.ExecutionLog{})
}

// load 读失败（不存在、损坏、不可读）一律降级为空列表
func (r *LogRecorder) load(ctx context.Context) []model.ExecutionLog {
	logs, err := r.store.Load(ctx)
	if err != nil {
		r.logger.Warn("读取执行日志失败，按空列表处理", zap.Error(err))
		return []model.ExecutionLog{}
	}
	if logs == nil {
		return []model.ExecutionLog{}
	}
	return logs
}

// loadForWrite 写路径只在文件损坏时降级为空列表，其他读错误返回 PersistenceError
func (r *LogRecorder) loadForWrite(ctx context.Context) ([]model.ExecutionLog, error) {
	logs, err := r.store.Load(ctx)
	switch {
	case err == nil:
		if logs == nil {
			logs = []model.ExecutionLog{}
		}
		return logs, nil
	case errors.Is(err, db.ErrCorrupt):
		r.logger.Warn("执行日志已损坏，按空列表重写", zap.Error(err))
		return []model.ExecutionLog{}, nil
	default:
		return nil, &PersistenceError{Op: "读取", Err: err}
	}
}

func (r *LogRecorder) replace(ctx context.Context, logs []model.ExecutionLog) error {
	if err := r.store.Replace(ctx, logs); err != nil {
		return &PersistenceError{Op: "写入", Err: err}
	}
	return nil
}
