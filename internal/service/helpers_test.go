package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"prompt-runner/internal/model"

	"go.uber.org/goleak"
)

// scriptedBackend 按调用次序返回预设响应，并记录收到的提示词
type scriptedBackend struct {
	mu      sync.Mutex
	replies []reply
	prompts []string
}

type reply struct {
	text string
	err  error
}

func ok(text string) reply { return reply{text: text} }

func fail(msg string) reply { return reply{err: errors.New(msg)} }

func newScripted(r ...reply) *scriptedBackend { return &scriptedBackend{replies: r} }

func (b *scriptedBackend) Generate(ctx context.Context, prompt string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	i := len(b.prompts)
	b.prompts = append(b.prompts, prompt)
	if i >= len(b.replies) {
		return "", fmt.Errorf("unexpected call #%d", i+1)
	}
	r := b.replies[i]
	if r.err != nil {
		return "", &ProviderError{Op: "generate", Err: r.err}
	}
	return r.text, nil
}

func (b *scriptedBackend) calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.prompts...)
}

func testCatalog(ids ...string) []model.TaskTemplate {
	out := make([]model.TaskTemplate, 0, len(ids))
	for _, id := range ids {
		out = append(out, model.TaskTemplate{
			ID:             id,
			Title:          strings.ToUpper(id),
			Description:    "desc " + id,
			Category:       model.CategorySummary,
			PromptTemplate: "[" + id + "] {InputText} | {UserNote} | {Facts}",
		})
	}
	return out
}

func selectedIDs(items []model.SelectedItem) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func mustCatalog(t *testing.T, ids ...string) *StaticCatalog {
	t.Helper()
	c, err := NewStaticCatalog(testCatalog(ids...))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	return c
}

// memStore 内存 LogStore，可注入读写错误
type memStore struct {
	mu      sync.Mutex
	logs    []model.ExecutionLog
	loadErr error
	saveErr error
	writes  int
}

func (s *memStore) Load(ctx context.Context) ([]model.ExecutionLog, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.loadErr != nil {
		return nil, s.loadErr
	}
	return append([]model.ExecutionLog(nil), s.logs...), nil
}

func (s *memStore) Replace(ctx context.Context, logs []model.ExecutionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return s.saveErr
	}
	s.writes++
	s.logs = append([]model.ExecutionLog(nil), logs...)
	return nil
}

// verifyNoLeaks genai 依赖的 opencensus 在 init 中启动常驻 worker
func verifyNoLeaks(t *testing.T) {
	t.Helper()
	goleak.VerifyNone(t, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}
