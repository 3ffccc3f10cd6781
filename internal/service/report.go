package service

import (
	"fmt"
	"strings"
	"time"

	"prompt-runner/internal/model"
)

// RenderRunMarkdown 把一次运行的日志导出为 Markdown
func RenderRunMarkdown(log model.ExecutionLog) string {
	var b strings.Builder
	b.WriteString("# Prompt Runner results\n\n")
	b.WriteString(fmt.Sprintf("- executed_at: %s\n", log.ExecutedAt.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("- log_id: %s\n", log.ID))
	b.WriteString(fmt.Sprintf("- summary: %s\n\n", SummaryText(SummarizeLog(log))))

	b.WriteString("## Input text\n\n")
	b.WriteString(log.InputText)
	b.WriteString("\n\n")

	if log.ExtractedFacts != nil && strings.TrimSpace(*log.ExtractedFacts) != "" {
		b.WriteString("## Extracted facts\n\n")
		b.WriteString(*log.ExtractedFacts)
		b.WriteString("\n\n")
	}

	b.WriteString("## Results\n\n")
	for _, it := range log.Items {
		b.WriteString(fmt.Sprintf("### %s\n\n", it.ItemTitle))
		if it.UserNote != "" {
			b.WriteString(fmt.Sprintf("> note: %s\n\n", it.UserNote))
		}
		if it.Success {
			b.WriteString(it.ResultContent)
		} else {
			b.WriteString(fmt.Sprintf("**Error**: %s", it.ErrorMessage))
		}
		b.WriteString("\n\n---\n\n")
	}
	return b.String()
}

func SummarizeLog(log model.ExecutionLog) model.RunSummary {
	s := model.RunSummary{Total: len(log.Items)}
	for _, it := range log.Items {
		if it.Success {
			s.Succeeded++
		}
	}
	return s
}
