package handler

import (
	"fmt"
	"net/http"
	"strconv"

	"prompt-runner/internal/service"

	"github.com/gin-gonic/gin"
)

type LogHandler struct {
	recorder *service.LogRecorder
}

func NewLogHandler(recorder *service.LogRecorder) *LogHandler {
	return &LogHandler{recorder: recorder}
}

// ListLogs 列出执行日志，最新的在前
func (h *LogHandler) ListLogs(c *gin.Context) {
	logs := h.recorder.List(c.Request.Context())

	if limit := c.Query("limit"); limit != "" {
		if l, err := strconv.Atoi(limit); err == nil && l >= 0 && l < len(logs) {
			logs = logs[:l]
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"logs":  logs,
		"total": len(logs),
	})
}

// GetLog 获取单条日志
func (h *LogHandler) GetLog(c *gin.Context) {
	log, ok := h.recorder.Get(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "日志不存在"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"log": log,
	})
}

// ExportLog 以 Markdown 导出单条日志
func (h *LogHandler) ExportLog(c *gin.Context) {
	log, ok := h.recorder.Get(c.Request.Context(), c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "日志不存在"})
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "run-"+log.ID+".md"))
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(service.RenderRunMarkdown(log)))
}

// DeleteLog 删除单条日志
func (h *LogHandler) DeleteLog(c *gin.Context) {
	if err := h.recorder.Delete(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "删除成功",
	})
}

// ClearLogs 清空全部日志
func (h *LogHandler) ClearLogs(c *gin.Context) {
	if err := h.recorder.Clear(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "已清空",
	})
}

// GetStats 各模板在已保存日志中的成功/失败统计
func (h *LogHandler) GetStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"stats": service.ComputeLogStats(h.recorder.List(c.Request.Context())),
	})
}
