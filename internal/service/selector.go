package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"prompt-runner/internal/model"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const (
	// MinSelections AI 选出的有效条目少于该值时整体走兜底
	MinSelections = 3
	// MaxSelections 只写进提示词，不做截断
	MaxSelections = 3 + 7

	fallbackConfidence = 0.5
	fallbackReason     = "default selection (no backend response)"
	defaultAIReason    = "selected by AI"
)

// ItemSelector 让后端从目录中挑选与输入相关的模板
type ItemSelector struct {
	backend Backend
	logger  *zap.Logger
}

func NewItemSelector(backend Backend, logger *zap.Logger) *ItemSelector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ItemSelector{backend: backend, logger: logger}
}

// selectionEntry 后端返回数组中的一项；encoding/json 字段名匹配本身不区分大小写
type selectionEntry struct {
	ID         string  `json:"id"`
	Confidence float64 `json:"confidence"`
	Reason     *string `json:"reason"`
}

// Select 不向调用方返回错误：后端失败、解析失败或有效条目不足都走确定性的兜底
func (s *ItemSelector) Select(ctx context.Context, inputText string, catalog []model.TaskTemplate) []model.SelectedItem {
	ctx, span := tracer.Start(ctx, "selector.select")
	span.SetAttributes(attribute.Int("catalog.size", len(catalog)))

	items, err := s.selectFromBackend(ctx, inputText, catalog)
	endSpan(span, err)
	if err != nil {
		s.logger.Warn("AI 选择不可用，使用默认选择", zap.Error(err))
		return FallbackSelection(catalog)
	}
	return items
}

func (s *ItemSelector) selectFromBackend(ctx context.Context, inputText string, catalog []model.TaskTemplate) ([]model.SelectedItem, error) {
	answer, err := s.backend.Generate(ctx, buildSelectionPrompt(inputText, catalog))
	if err != nil {
		return nil, err
	}

	entries, err := parseSelection(answer)
	if err != nil {
		return nil, err
	}

	items := resolveSelection(entries, catalog)
	if len(items) < MinSelections {
		return nil, fmt.Errorf("%w: %d < %d", ErrTooFewSelections, len(items), MinSelections)
	}
	return items, nil
}

// parseSelection 截取第一个 [...] 片段再按选择结果数组解析
func parseSelection(raw string) ([]selectionEntry, error) {
	frag, ok := firstJSONArray(raw)
	if !ok {
		return nil, ErrNoJSONArray
	}
	var entries []selectionEntry
	if err := json.Unmarshal([]byte(frag), &entries); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedSelection, err)
	}
	return entries, nil
}

// firstJSONArray 从第一个 '[' 开始做括号配对，跳过字符串字面量中的括号
func firstJSONArray(s string) (string, bool) {
	start := strings.IndexByte(s, '[')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		ch := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '[':
			depth++
		case ']':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}

// resolveSelection 丢弃目录中不存在的 id（以及重复 id），Order 为保留项中的位置
func resolveSelection(entries []selectionEntry, catalog []model.TaskTemplate) []model.SelectedItem {
	items := make([]model.SelectedItem, 0, len(entries))
	seen := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		tpl, ok := findTemplate(catalog, e.ID)
		if !ok {
			continue
		}
		if _, dup := seen[tpl.ID]; dup {
			continue
		}
		seen[tpl.ID] = struct{}{}

		reason := defaultAIReason
		if e.Reason != nil {
			reason = *e.Reason
		}
		items = append(items, model.SelectedItem{
			TaskTemplate: tpl,
			Selection: model.SelectionOutcome{
				ID:         tpl.ID,
				Confidence: e.Confidence,
				Reason:     reason,
				Order:      len(items),
			},
		})
	}
	return items
}

// FallbackSelection 目录前 3 项，置信度 0.5，Order 为目录下标
func FallbackSelection(catalog []model.TaskTemplate) []model.SelectedItem {
	n := MinSelections
	if len(catalog) < n {
		n = len(catalog)
	}
	items := make([]model.SelectedItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, model.SelectedItem{
			TaskTemplate: catalog[i],
			Selection: model.SelectionOutcome{
				ID:         catalog[i].ID,
				Confidence: fallbackConfidence,
				Reason:     fallbackReason,
				Order:      i,
			},
		})
	}
	return items
}

func buildSelectionPrompt(inputText string, catalog []model.TaskTemplate) string {
	var prompt strings.Builder
	prompt.WriteString("You are an assistant that analyzes the input text and selects suitable checklist items.\n\n")
	prompt.WriteString("[Input text]\n")
	prompt.WriteString(inputText)
	prompt.WriteString("\n\n[Available checklist items]\n")
	for _, t := range catalog {
		prompt.WriteString(fmt.Sprintf("- ID: %s, Title: %s, Category: %s, Description: %s\n",
			t.ID, t.Title, t.Category.DisplayName(), t.Description))
	}
	prompt.WriteString("\n[Task]\n")
	prompt.WriteString(fmt.Sprintf("Based on the input text, select the %d to %d most suitable checklist items.\n", MinSelections, MaxSelections))
	prompt.WriteString("For each item give the reason for selecting it and a confidence between 0.0 and 1.0.\n\n")
	prompt.WriteString("[Output format]\n")
	prompt.WriteString("Answer with the following JSON only. Do not include any other text:\n")
	prompt.WriteString("```json\n[\n  {\"id\": \"item id\", \"confidence\": 0.8, \"reason\": \"why it was selected\"},\n  ...\n]\n```")
	return prompt.String()
}
