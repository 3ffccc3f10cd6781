package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
)

const noFactsExtracted = "no facts could be extracted."

// FactExtractor 可选的前置步骤：把输入整理成事实要点，失败时返回可读的错误文本
type FactExtractor struct {
	backend Backend
	logger  *zap.Logger
}

func NewFactExtractor(backend Backend, logger *zap.Logger) *FactExtractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FactExtractor{backend: backend, logger: logger}
}

// Extract 永远不返回 error，这一步只是参考信息，不能中断流水线
func (e *FactExtractor) Extract(ctx context.Context, inputText string) string {
	ctx, span := tracer.Start(ctx, "facts.extract")

	answer, err := e.backend.Generate(ctx, buildFactsPrompt(inputText))
	endSpan(span, err)
	if err != nil {
		e.logger.Warn("事实抽取失败", zap.Error(err))
		return fmt.Sprintf("fact extraction error: %v", err)
	}
	if strings.TrimSpace(answer) == "" {
		return noFactsExtracted
	}
	return answer
}

func buildFactsPrompt(inputText string) string {
	var prompt strings.Builder
	prompt.WriteString("Extract the important facts and information from the text below.\n\n")
	prompt.WriteString("[Input text]\n")
	prompt.WriteString(inputText)
	prompt.WriteString("\n\n[Task]\n")
	prompt.WriteString("List the important facts contained in the input text as bullet points, covering:\n")
	prompt.WriteString("- main topics and themes\n")
	prompt.WriteString("- people, organizations and product names\n")
	prompt.WriteString("- dates, times, numbers and statistics\n")
	prompt.WriteString("- problems and issues\n")
	prompt.WriteString("- proposals and ideas\n")
	prompt.WriteString("- any other important information\n\n")
	prompt.WriteString("Put each fact on its own line, starting with \"・\".")
	return prompt.String()
}
