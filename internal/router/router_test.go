package router

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"prompt-runner/internal/config"
	"prompt-runner/internal/db"
	"prompt-runner/internal/model"
	"prompt-runner/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// echoBackend 选择请求返回固定 JSON，其余请求回显提示词首行
type echoBackend struct {
	mu        sync.Mutex
	selection string
	failOn    string
}

func (b *echoBackend) Generate(ctx context.Context, prompt string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if strings.Contains(prompt, "[Available checklist items]") {
		return b.selection, nil
	}
	first := strings.SplitN(prompt, "\n", 2)[0]
	if b.failOn != "" && strings.Contains(first, b.failOn) {
		return "", &service.ProviderError{Op: "generate", Err: errors.New("boom")}
	}
	return "out " + first, nil
}

func setup(t *testing.T, backend service.Backend) (*gin.Engine, *service.ServiceContext) {
	t.Helper()
	catalog, err := service.NewStaticCatalog([]model.TaskTemplate{
		{ID: "a", Title: "A", Category: model.CategorySummary, PromptTemplate: "[a] {InputText}"},
		{ID: "b", Title: "B", Category: model.CategoryAnalysis, PromptTemplate: "[b] {InputText}"},
		{ID: "c", Title: "C", Category: model.CategoryWriting, PromptTemplate: "[c] {InputText}"},
		{ID: "d", Title: "D", Category: model.CategoryWriting, PromptTemplate: "[d] {InputText}"},
	})
	require.NoError(t, err)

	cfg := config.Default()
	store := db.NewFileLogStore(filepath.Join(t.TempDir(), "logs.json"))
	svc := service.NewServiceContextWith(&cfg, backend, catalog, store, nil)
	return SetupRouter(svc), svc
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestTemplates(t *testing.T) {
	r, _ := setup(t, &echoBackend{})

	w := do(r, http.MethodGet, "/api/templates?category=writing", "")
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Templates  []model.TaskTemplate `json:"templates"`
		Categories []struct{ ID, Name string }
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body.Templates, 2)
	assert.Len(t, body.Categories, len(model.Categories))

	w = do(r, http.MethodGet, "/api/templates?category=poetry", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRunAndLogs(t *testing.T) {
	backend := &echoBackend{
		selection: `Sure: [{"id":"c","confidence":0.9,"reason":"fits"},{"id":"a","confidence":0.8},{"id":"d","confidence":0.3,"reason":"maybe"}]`,
		failOn:    "[d]",
	}
	r, _ := setup(t, backend)

	w := do(r, http.MethodPost, "/api/runs", `{"text":"quarterly review"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run struct {
		Report  service.RunReport `json:"report"`
		Message string            `json:"message"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	require.Len(t, run.Report.Results, 3)
	assert.Equal(t, "out [c] quarterly review", run.Report.Results[0].Content)
	assert.Equal(t, "selected by AI", run.Report.Items[1].Selection.Reason)
	assert.False(t, run.Report.Results[2].Success)
	assert.Equal(t, "2 of 3 items succeeded", run.Message)

	w = do(r, http.MethodGet, "/api/logs", "")
	require.Equal(t, http.StatusOK, w.Code)
	var list struct {
		Logs  []model.ExecutionLog `json:"logs"`
		Total int                  `json:"total"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Equal(t, 1, list.Total)
	id := list.Logs[0].ID
	assert.Equal(t, run.Report.Log.ID, id)

	w = do(r, http.MethodGet, "/api/logs/"+id+"/export", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "2 of 3 items succeeded")

	w = do(r, http.MethodGet, "/api/stats", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"runs":1`)

	w = do(r, http.MethodDelete, "/api/logs/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	w = do(r, http.MethodGet, "/api/logs/"+id, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRun_BadRequests(t *testing.T) {
	r, _ := setup(t, &echoBackend{})

	tests := []struct {
		name string
		path string
		body string
	}{
		{"missing text", "/api/facts", `{}`},
		{"blank text", "/api/runs", `{"text":"   "}`},
		{"unknown template", "/api/runs", `{"text":"x","item_ids":["zzz"]}`},
		{"bad json", "/api/selections", `{`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
		})
	}
}

func TestSelections_FallbackOnGarbage(t *testing.T) {
	r, _ := setup(t, &echoBackend{selection: "I cannot help with that"})

	w := do(r, http.MethodPost, "/api/selections", `{"text":"anything"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Items []model.SelectedItem `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Items, 3)
	assert.Equal(t, "a", body.Items[0].ID)
	assert.Equal(t, 0.5, body.Items[0].Selection.Confidence)
}

func TestRunStream(t *testing.T) {
	r, svc := setup(t, &echoBackend{})
	srv := httptest.NewServer(r)
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/api/runs/stream", "application/json",
		strings.NewReader(`{"text":"hello","item_ids":["b","a"],"notes":{"a":"short"}}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	body := string(raw)

	assert.Equal(t, 2, strings.Count(body, "event:progress"))
	assert.Contains(t, body, "event:done")
	assert.Less(t, strings.Index(body, `"item_id":"b"`), strings.Index(body, `"item_id":"a"`))
	assert.Len(t, svc.Recorder.List(context.Background()), 1)
}

func TestCORSPreflight(t *testing.T) {
	r, _ := setup(t, &echoBackend{})
	w := do(r, http.MethodOptions, "/api/runs", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
