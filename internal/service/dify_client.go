package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

// DifyClient 通过 Dify 应用转发的后端（completion / chat 二选一，不做端点回退）
type DifyClient struct {
	BaseURL string
	APIKey  string
	AppType string
	Client  *http.Client
}

func NewDifyClient(baseURL, apiKey, appType string, timeoutSeconds int) *DifyClient {
	if appType == "" {
		appType = "completion"
	}
	if timeoutSeconds <= 0 {
		timeoutSeconds = 120
	}
	return &DifyClient{
		BaseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		APIKey:  apiKey,
		AppType: appType,
		Client: &http.Client{
			Timeout: time.Duration(timeoutSeconds) * time.Second,
		},
	}
}

type difyRequest struct {
	Inputs       map[string]interface{} `json:"inputs"`
	Query        string                 `json:"query"`
	ResponseMode string                 `json:"response_mode"`
	User         string                 `json:"user"`
}

type difyResponse struct {
	MessageID string `json:"message_id"`
	Answer    string `json:"answer"`
}

// Generate 实现 Backend；blocking 模式，一次请求
func (c *DifyClient) Generate(ctx context.Context, prompt string) (string, error) {
	endpoint := "completion-messages"
	if c.AppType == "chat" {
		endpoint = "chat-messages"
	}
	url := fmt.Sprintf("%s/%s", c.BaseURL, endpoint)

	reqBody := difyRequest{
		Inputs:       map[string]interface{}{"query": prompt},
		Query:        prompt,
		ResponseMode: "blocking",
		User:         "prompt-runner",
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", &ProviderError{Op: "dify", Err: fmt.Errorf("序列化请求失败: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", &ProviderError{Op: "dify", Err: fmt.Errorf("创建请求失败: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.APIKey))

	resp, err := c.Client.Do(req)
	if err != nil {
		return "", &ProviderError{Op: "dify", Err: fmt.Errorf("请求失败: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		var errResp map[string]interface{}
		if json.Unmarshal(body, &errResp) == nil {
			if msg, ok := errResp["message"].(string); ok {
				return "", &ProviderError{Op: "dify", Err: fmt.Errorf("API返回错误: %d, %s", resp.StatusCode, msg)}
			}
		}
		return "", &ProviderError{Op: "dify", Err: fmt.Errorf("API返回错误: %d, %s", resp.StatusCode, truncate(string(body), 500))}
	}

	var out difyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ProviderError{Op: "dify", Err: fmt.Errorf("解析响应失败: %w", err)}
	}
	return out.Answer, nil
}

// truncate 按字节上限截断，但不切开多字节字符
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
