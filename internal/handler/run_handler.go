package handler

import (
	"io"
	"net/http"

	"prompt-runner/internal/logging"
	"prompt-runner/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RunHandler struct {
	runner *service.Runner
	logger *zap.Logger
}

func NewRunHandler(runner *service.Runner, logger *zap.Logger) *RunHandler {
	logger = logging.OrNop(logger)
	return &RunHandler{runner: runner, logger: logger}
}

type textRequest struct {
	Text string `json:"text" binding:"required"`
}

// ExtractFacts 只做事实抽取
func (h *RunHandler) ExtractFacts(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	facts, err := h.runner.ExtractFacts(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"facts": facts,
	})
}

// SelectItems 只做选择，返回排序后的选中项
func (h *RunHandler) SelectItems(c *gin.Context) {
	var req textRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	items, err := h.runner.Select(c.Request.Context(), req.Text)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"items": items,
	})
}

// Run 同步执行一次完整运行
func (h *RunHandler) Run(c *gin.Context) {
	var req service.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	report, err := h.runner.Run(c.Request.Context(), req, nil)
	if err != nil && report == nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"report":  report,
		"message": service.SummaryText(report.Summary),
	})
}

type sseEvent struct {
	name string
	data interface{}
}

// RunStream 以 SSE 推送每一项的进度，最后发送 done 或 error 事件
func (h *RunHandler) RunStream(c *gin.Context) {
	var req service.RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	events := make(chan sseEvent, 8)
	send := func(ev sseEvent) {
		select {
		case events <- ev:
		case <-ctx.Done():
		}
	}

	go func() {
		defer close(events)
		report, err := h.runner.Run(ctx, req, func(p service.Progress) {
			send(sseEvent{name: "progress", data: p})
		})
		if report == nil {
			send(sseEvent{name: "error", data: gin.H{"error": err.Error()}})
			return
		}
		if err != nil {
			h.logger.Info("流式运行提前结束", zap.Error(err))
		}
		send(sseEvent{name: "done", data: gin.H{
			"report":  report,
			"message": service.SummaryText(report.Summary),
		}})
	}()

	c.Stream(func(w io.Writer) bool {
		ev, ok := <-events
		if !ok {
			return false
		}
		c.SSEvent(ev.name, ev.data)
		return true
	})

	// 客户端断开后等待后台运行收尾，避免 goroutine 泄漏
	for range events {
	}
}
