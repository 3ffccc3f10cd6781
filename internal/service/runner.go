package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"prompt-runner/internal/model"

	"go.uber.org/zap"
)

const (
	manualReason   = "selected manually"
	favoriteReason = "run from favorites"
)

// RunRequest 一次运行的输入。ItemIDs 非空时跳过 AI 选择，按给定顺序执行
type RunRequest struct {
	Text         string            `json:"text"`
	ExtractFacts bool              `json:"extract_facts"`
	ItemIDs      []string          `json:"item_ids,omitempty"`
	Favorite     bool              `json:"favorite,omitempty"`
	Notes        map[string]string `json:"notes,omitempty"`
}

// RunReport 一次运行的完整产出；Warning 只用于提示日志保存失败
type RunReport struct {
	Input    model.InputData         `json:"input"`
	Items    []model.SelectedItem    `json:"items"`
	Results  []model.ExecutionResult `json:"results"`
	Summary  model.RunSummary        `json:"summary"`
	Log      model.ExecutionLog      `json:"log"`
	Warning  string                  `json:"warning,omitempty"`
	Canceled bool                    `json:"canceled,omitempty"`
}

// Runner 串起 事实抽取 → 选择 → 执行 → 记录
type Runner struct {
	catalog  Catalog
	facts    *FactExtractor
	selector *ItemSelector
	pipeline *Pipeline
	recorder *LogRecorder
	logger   *zap.Logger
}

func NewRunner(catalog Catalog, facts *FactExtractor, selector *ItemSelector, pipeline *Pipeline, recorder *LogRecorder, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		catalog:  catalog,
		facts:    facts,
		selector: selector,
		pipeline: pipeline,
		recorder: recorder,
		logger:   logger,
	}
}

// ExtractFacts 单独暴露事实抽取
func (r *Runner) ExtractFacts(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyInput
	}
	return r.facts.Extract(ctx, text), nil
}

// Select 只做选择，不执行
func (r *Runner) Select(ctx context.Context, text string) ([]model.SelectedItem, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyInput
	}
	catalog, err := r.catalog.Templates(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取模板目录失败: %w", err)
	}
	return SortSelection(r.selector.Select(ctx, text, catalog)), nil
}

// Run 执行一次完整运行。ctx 被取消时已完成的结果仍会记录，
// 返回的 report 有效，err 为 ctx.Err()
func (r *Runner) Run(ctx context.Context, req RunRequest, onProgress ProgressFunc) (*RunReport, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, ErrEmptyInput
	}

	catalog, err := r.catalog.Templates(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取模板目录失败: %w", err)
	}

	input := model.InputData{RawText: req.Text, CreatedAt: time.Now()}
	if req.ExtractFacts {
		facts := r.facts.Extract(ctx, req.Text)
		input.ExtractedFacts = &facts
	}

	var selected []model.SelectedItem
	if len(req.ItemIDs) > 0 {
		reason := manualReason
		if req.Favorite {
			reason = favoriteReason
		}
		selected, err = ManualSelection(catalog, req.ItemIDs, reason)
		if err != nil {
			return nil, err
		}
	} else {
		selected = r.selector.Select(ctx, req.Text, catalog)
	}
	for i := range selected {
		selected[i].UserNote = req.Notes[selected[i].ID]
	}

	r.logger.Info("开始运行",
		zap.Int("items", len(selected)),
		zap.Bool("facts", req.ExtractFacts),
		zap.Bool("manual", len(req.ItemIDs) > 0))

	executed, results, runErr := r.pipeline.Run(ctx, input, selected, onProgress)

	report := &RunReport{
		Input:    input,
		Items:    executed,
		Results:  results,
		Summary:  model.Summarize(results),
		Canceled: runErr != nil,
	}

	report.Log = r.recorder.Record(input, executed, results)
	// 取消后仍保存已完成部分
	if err := r.recorder.Save(context.WithoutCancel(ctx), report.Log); err != nil {
		r.logger.Warn("执行日志保存失败", zap.String("log_id", report.Log.ID), zap.Error(err))
		report.Warning = err.Error()
	}

	r.logger.Info("运行结束",
		zap.String("log_id", report.Log.ID),
		zap.Int("succeeded", report.Summary.Succeeded),
		zap.Int("total", report.Summary.Total))

	return report, runErr
}

// ManualSelection 按给定 id 顺序构造选择结果，置信度 1.0；未知 id 直接报错
func ManualSelection(catalog []model.TaskTemplate, ids []string, reason string) ([]model.SelectedItem, error) {
	items := make([]model.SelectedItem, 0, len(ids))
	var unknown []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		tpl, ok := findTemplate(catalog, id)
		if !ok {
			unknown = append(unknown, id)
			continue
		}
		items = append(items, model.SelectedItem{
			TaskTemplate: tpl,
			Selection: model.SelectionOutcome{
				ID:         tpl.ID,
				Confidence: 1.0,
				Reason:     reason,
				Order:      len(items),
			},
		})
	}
	if len(unknown) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTemplate, strings.Join(unknown, ", "))
	}
	return items, nil
}

// SummaryText 完成提示
func SummaryText(s model.RunSummary) string {
	return fmt.Sprintf("%d of %d items succeeded", s.Succeeded, s.Total)
}

// IsCanceled 运行因 ctx 结束而提前停止
func IsCanceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
