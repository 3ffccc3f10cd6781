package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"prompt-runner/internal/config"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Backend 无状态的一问一答文本生成服务
type Backend interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// BackendFunc 让普通函数满足 Backend
type BackendFunc func(ctx context.Context, prompt string) (string, error)

func (f BackendFunc) Generate(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

type generateContentFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// GenAIBackend 基于 Google GenAI（Gemini）的后端
type GenAIBackend struct {
	modelName string
	genConfig *genai.GenerateContentConfig
	generate  generateContentFunc
	logger    *zap.Logger
}

// NewBackend 按 provider 构造后端；API Key 缺失直接返回 ConfigurationError
func NewBackend(ctx context.Context, cfg config.GenAIConfig, logger *zap.Logger) (Backend, error) {
	switch cfg.Provider {
	case config.ProviderDify:
		if strings.TrimSpace(cfg.APIKey) == "" {
			return nil, &config.ConfigurationError{Field: "genai.api_key", Msg: "未设置 API Key"}
		}
		return NewDifyClient(cfg.BaseURL, cfg.APIKey, cfg.AppType, cfg.TimeoutSeconds), nil
	default:
		return NewGenAIBackend(ctx, cfg, logger)
	}
}

func NewGenAIBackend(ctx context.Context, cfg config.GenAIConfig, logger *zap.Logger) (*GenAIBackend, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, &config.ConfigurationError{Field: "genai.api_key", Msg: "未设置 Google AI API Key"}
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 GenAI 客户端失败: %w", err)
	}

	b := newGenAIBackend(cfg, client.Models.GenerateContent, logger)
	b.logger.Info("GenAI 后端初始化完成",
		zap.String("model", b.modelName),
		zap.Int("api_key_len", len(cfg.APIKey)))
	return b, nil
}

func newGenAIBackend(cfg config.GenAIConfig, generate generateContentFunc, logger *zap.Logger) *GenAIBackend {
	gc := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(float32(cfg.Temperature)),
	}
	if cfg.MaxOutputTokens > 0 {
		gc.MaxOutputTokens = int32(cfg.MaxOutputTokens)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GenAIBackend{
		modelName: cfg.ModelName,
		genConfig: gc,
		generate:  generate,
		logger:    logger,
	}
}

// Generate 单次请求，不重试
func (b *GenAIBackend) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := b.generate(ctx, b.modelName, genai.Text(prompt), b.genConfig)
	if err != nil {
		return "", &ProviderError{Op: "generate", Err: err}
	}
	if resp == nil {
		return "", &ProviderError{Op: "generate", Err: errors.New("空响应")}
	}
	return resp.Text(), nil
}
