package service

import (
	"context"
	_ "embed"
	"fmt"
	"os"
	"strings"

	"prompt-runner/internal/model"

	"gopkg.in/yaml.v3"
)

//go:embed default_catalog.yaml
var defaultCatalogYAML []byte

// Catalog 只读模板目录；每次调用返回一份快照
type Catalog interface {
	Templates(ctx context.Context) ([]model.TaskTemplate, error)
}

// StaticCatalog 启动时加载、之后不再变化的目录
type StaticCatalog struct {
	templates []model.TaskTemplate
}

func NewStaticCatalog(templates []model.TaskTemplate) (*StaticCatalog, error) {
	if err := validateTemplates(templates); err != nil {
		return nil, err
	}
	cp := make([]model.TaskTemplate, len(templates))
	copy(cp, templates)
	return &StaticCatalog{templates: cp}, nil
}

// LoadCatalog path 为空时加载内置目录，否则读取 YAML 文件
func LoadCatalog(path string) (*StaticCatalog, error) {
	data := defaultCatalogYAML
	if strings.TrimSpace(path) != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取模板目录失败: %w", err)
		}
		data = b
	}

	var templates []model.TaskTemplate
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("解析模板目录失败: %w", err)
	}
	return NewStaticCatalog(templates)
}

func (c *StaticCatalog) Templates(ctx context.Context) ([]model.TaskTemplate, error) {
	cp := make([]model.TaskTemplate, len(c.templates))
	copy(cp, c.templates)
	return cp, nil
}

func validateTemplates(templates []model.TaskTemplate) error {
	seen := make(map[string]struct{}, len(templates))
	for i, t := range templates {
		if strings.TrimSpace(t.ID) == "" {
			return fmt.Errorf("第 %d 个模板缺少 id", i)
		}
		if _, dup := seen[t.ID]; dup {
			return fmt.Errorf("模板 id 重复: %s", t.ID)
		}
		seen[t.ID] = struct{}{}
		if !t.Category.Valid() {
			return fmt.Errorf("模板 %s 的分类无效: %q", t.ID, t.Category)
		}
	}
	return nil
}

// findTemplate 在快照中按 id 查找
func findTemplate(catalog []model.TaskTemplate, id string) (model.TaskTemplate, bool) {
	for _, t := range catalog {
		if t.ID == id {
			return t, true
		}
	}
	return model.TaskTemplate{}, false
}
