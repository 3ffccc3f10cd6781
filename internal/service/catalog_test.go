package service

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"prompt-runner/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadCatalog_Default(t *testing.T) {
	c, err := LoadCatalog("")
	require.NoError(t, err)

	templates, err := c.Templates(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(templates), MinSelections)

	seen := map[model.Category]bool{}
	for _, tpl := range templates {
		assert.NotEmpty(t, tpl.Title, tpl.ID)
		assert.Contains(t, tpl.PromptTemplate, model.PlaceholderInputText, tpl.ID)
		seen[tpl.Category] = true
	}
	for _, cat := range model.Categories {
		assert.True(t, seen[cat], "category %s has no template", cat)
	}
}

func TestLoadCatalog_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
- id: one
  title: One
  description: first
  category: writing
  prompt_template: "{InputText}"
`), 0o644))

	c, err := LoadCatalog(path)
	require.NoError(t, err)
	templates, _ := c.Templates(context.Background())
	require.Len(t, templates, 1)
	assert.Equal(t, model.CategoryWriting, templates[0].Category)
}

func TestNewStaticCatalog_Invalid(t *testing.T) {
	tests := []struct {
		name      string
		templates []model.TaskTemplate
	}{
		{"missing id", []model.TaskTemplate{{Category: model.CategorySummary}}},
		{"duplicate id", append(testCatalog("a"), testCatalog("a")...)},
		{"bad category", []model.TaskTemplate{{ID: "x", Category: "poetry"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewStaticCatalog(tt.templates)
			assert.Error(t, err)
		})
	}
}

func TestStaticCatalog_ReturnsSnapshot(t *testing.T) {
	c := mustCatalog(t, "a", "b")
	first, _ := c.Templates(context.Background())
	first[0].Title = "mutated"

	second, _ := c.Templates(context.Background())
	assert.Equal(t, "A", second[0].Title)
}
