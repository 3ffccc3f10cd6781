package service

import (
	"context"
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"prompt-runner/internal/model"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	noUserNote = "none"
	noFacts    = "none"
)

// Progress 每执行完一项发出一次；只是通知，不影响执行
type Progress struct {
	Index     int    `json:"index"` // 从 1 开始
	Total     int    `json:"total"`
	ItemID    string `json:"item_id"`
	ItemTitle string `json:"item_title"`
	Success   bool   `json:"success"`
}

type ProgressFunc func(Progress)

// Pipeline 严格串行地逐项执行选中的模板，单项失败只记录在该项结果里
type Pipeline struct {
	backend Backend
	logger  *zap.Logger
	now     func() time.Time
}

func NewPipeline(backend Backend, logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{backend: backend, logger: logger, now: time.Now}
}

// SortSelection 按 (Order, Title) 稳定排序并把 Order 重编为 0..n-1；不修改入参
func SortSelection(items []model.SelectedItem) []model.SelectedItem {
	sorted := make([]model.SelectedItem, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i].Selection, sorted[j].Selection
		if a.Order != b.Order {
			return a.Order < b.Order
		}
		return sorted[i].Title < sorted[j].Title
	})
	for i := range sorted {
		sorted[i].Selection.Order = i
	}
	return sorted
}

// RenderPrompt 替换模板中的全部占位符
func RenderPrompt(template string, input model.InputData, userNote string) string {
	note := userNote
	if note == "" {
		note = noUserNote
	}
	facts := noFacts
	if input.ExtractedFacts != nil {
		facts = *input.ExtractedFacts
	}
	return strings.NewReplacer(
		model.PlaceholderInputText, input.RawText,
		model.PlaceholderUserNote, note,
		model.PlaceholderFacts, facts,
	).Replace(template)
}

// Steps 惰性、有限、只能消费一次的执行序列；每次 yield 前都已完成一次后端调用。
// ctx 在每项开始前检查，取消后正在进行的调用仍会完成
func (p *Pipeline) Steps(ctx context.Context, input model.InputData, items []model.SelectedItem) iter.Seq2[model.SelectedItem, model.ExecutionResult] {
	sorted := SortSelection(items)
	var consumed atomic.Bool
	return func(yield func(model.SelectedItem, model.ExecutionResult) bool) {
		if !consumed.CompareAndSwap(false, true) {
			return
		}
		for _, item := range sorted {
			if ctx.Err() != nil {
				return
			}
			if !yield(item, p.executeItem(ctx, item, input)) {
				return
			}
		}
	}
}

// Run 执行全部选中项。返回排序后的选中项与等长、同序的结果；
// ctx 被取消时返回已完成部分以及 ctx.Err()
func (p *Pipeline) Run(ctx context.Context, input model.InputData, items []model.SelectedItem, onProgress ProgressFunc) ([]model.SelectedItem, []model.ExecutionResult, error) {
	total := len(items)
	executed := make([]model.SelectedItem, 0, total)
	results := make([]model.ExecutionResult, 0, total)

	for item, result := range p.Steps(ctx, input, items) {
		executed = append(executed, item)
		results = append(results, result)
		if onProgress != nil {
			onProgress(Progress{
				Index:     len(results),
				Total:     total,
				ItemID:    item.ID,
				ItemTitle: item.Title,
				Success:   result.Success,
			})
		}
	}

	if len(results) < total {
		p.logger.Warn("运行被取消", zap.Int("completed", len(results)), zap.Int("total", total))
		return executed, results, ctx.Err()
	}
	return executed, results, nil
}

func (p *Pipeline) executeItem(ctx context.Context, item model.SelectedItem, input model.InputData) model.ExecutionResult {
	// 已发出的调用不随运行取消而中断
	callCtx, span := tracer.Start(context.WithoutCancel(ctx), "pipeline.item")
	span.SetAttributes(
		attribute.String("item.id", item.ID),
		attribute.Int("item.order", item.Selection.Order),
	)

	prompt := RenderPrompt(item.PromptTemplate, input, item.UserNote)
	answer, err := p.backend.Generate(callCtx, prompt)
	endSpan(span, err)

	result := model.ExecutionResult{
		ItemID:      item.ID,
		ItemTitle:   item.Title,
		CompletedAt: p.now(),
	}
	if err != nil {
		p.logger.Warn("模板执行失败", zap.String("item_id", item.ID), zap.Error(err))
		result.ErrorMessage = fmt.Sprintf("API call error: %v", err)
		return result
	}
	result.Success = true
	result.Content = answer
	return result
}
