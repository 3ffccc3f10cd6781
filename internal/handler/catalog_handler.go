package handler

import (
	"net/http"

	"prompt-runner/internal/model"
	"prompt-runner/internal/service"

	"github.com/gin-gonic/gin"
)

type CatalogHandler struct {
	catalog service.Catalog
}

func NewCatalogHandler(catalog service.Catalog) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type categoryView struct {
	ID   model.Category `json:"id"`
	Name string         `json:"name"`
}

// ListTemplates 列出模板目录，可按 category 过滤
func (h *CatalogHandler) ListTemplates(c *gin.Context) {
	templates, err := h.catalog.Templates(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	if cat := model.Category(c.Query("category")); cat != "" {
		if !cat.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"error": "未知分类: " + string(cat)})
			return
		}
		filtered := make([]model.TaskTemplate, 0, len(templates))
		for _, t := range templates {
			if t.Category == cat {
				filtered = append(filtered, t)
			}
		}
		templates = filtered
	}

	categories := make([]categoryView, 0, len(model.Categories))
	for _, cat := range model.Categories {
		categories = append(categories, categoryView{ID: cat, Name: cat.DisplayName()})
	}

	c.JSON(http.StatusOK, gin.H{
		"templates":  templates,
		"categories": categories,
	})
}
