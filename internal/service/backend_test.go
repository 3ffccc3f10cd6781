package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"prompt-runner/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestNewBackend_MissingKey(t *testing.T) {
	for _, provider := range []string{config.ProviderGemini, config.ProviderDify} {
		t.Run(provider, func(t *testing.T) {
			_, err := NewBackend(context.Background(), config.GenAIConfig{Provider: provider}, nil)
			var cerr *config.ConfigurationError
			require.True(t, errors.As(err, &cerr))
			assert.Equal(t, "genai.api_key", cerr.Field)
		})
	}
}

func TestGenAIBackend_Generate(t *testing.T) {
	var gotModel string
	var gotCfg *genai.GenerateContentConfig
	var gotText string
	fake := func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		gotModel, gotCfg = model, cfg
		gotText = contents[0].Parts[0].Text
		return &genai.GenerateContentResponse{
			Candidates: []*genai.Candidate{{Content: genai.NewContentFromText("generated", genai.RoleModel)}},
		}, nil
	}

	b := newGenAIBackend(config.GenAIConfig{ModelName: "gemini-2.5-flash", MaxOutputTokens: 8192, Temperature: 0.7}, fake, nil)
	out, err := b.Generate(context.Background(), "hello")
	require.NoError(t, err)

	assert.Equal(t, "generated", out)
	assert.Equal(t, "gemini-2.5-flash", gotModel)
	assert.Equal(t, "hello", gotText)
	assert.Equal(t, int32(8192), gotCfg.MaxOutputTokens)
	require.NotNil(t, gotCfg.Temperature)
	assert.InDelta(t, 0.7, *gotCfg.Temperature, 1e-6)
}

func TestGenAIBackend_ErrorsAreProviderErrors(t *testing.T) {
	boom := errors.New("429 resource exhausted")
	tests := []struct {
		name string
		fn   generateContentFunc
	}{
		{"call failed", func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, boom
		}},
		{"nil response", func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
			return nil, nil
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newGenAIBackend(config.GenAIConfig{ModelName: "m"}, tt.fn, nil).Generate(context.Background(), "p")
			var perr *ProviderError
			require.True(t, errors.As(err, &perr))
			assert.Equal(t, "generate", perr.Op)
		})
	}
}

func TestDifyClient_Generate(t *testing.T) {
	tests := []struct {
		name     string
		appType  string
		wantPath string
	}{
		{"completion app", "completion", "/completion-messages"},
		{"chat app", "chat", "/chat-messages"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, tt.wantPath, r.URL.Path)
				assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
				var req difyRequest
				assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
				assert.Equal(t, "the prompt", req.Query)
				assert.Equal(t, "blocking", req.ResponseMode)
				_ = json.NewEncoder(w).Encode(difyResponse{MessageID: "m1", Answer: "dify answer"})
			}))
			defer srv.Close()

			c := NewDifyClient(srv.URL+"/", "secret", tt.appType, 5)
			defer c.Client.CloseIdleConnections()

			out, err := c.Generate(context.Background(), "the prompt")
			require.NoError(t, err)
			assert.Equal(t, "dify answer", out)
		})
	}
}

func TestDifyClient_ErrorStatus(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"invalid key"}`))
	}))
	defer srv.Close()

	c := NewDifyClient(srv.URL, "bad", "", 5)
	defer c.Client.CloseIdleConnections()

	_, err := c.Generate(context.Background(), "p")
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Contains(t, err.Error(), "invalid key")
	assert.Equal(t, 1, calls, "no retry and no endpoint fallback")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))

	// "错误" 每个字 3 字节，上限落在字符中间时退到字符边界
	got := truncate("错误信息", 4)
	assert.Equal(t, "错...", got)
	assert.True(t, utf8.ValidString(got))
}
