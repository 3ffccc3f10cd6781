package service

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"prompt-runner/internal/config"
	"prompt-runner/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewServiceContext_MissingKey(t *testing.T) {
	cfg := config.Default()
	_, err := NewServiceContext(context.Background(), &cfg, nil)

	var cerr *config.ConfigurationError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, "genai.api_key", cerr.Field)
}

func TestNewServiceContext_Stores(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		edit func(*config.Config)
	}{
		{"file", func(c *config.Config) { c.LogStore.Path = filepath.Join(dir, "logs.json") }},
		{"sqlite", func(c *config.Config) {
			c.LogStore.Kind = config.StoreKindDB
			c.Database.Path = filepath.Join(dir, "runner.db")
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			cfg.GenAI.Provider = config.ProviderDify
			cfg.GenAI.BaseURL = "http://127.0.0.1:1/v1"
			cfg.GenAI.APIKey = "k"
			tt.edit(&cfg)

			svc, err := NewServiceContext(context.Background(), &cfg, nil)
			require.NoError(t, err)
			defer svc.Close()

			assert.IsType(t, &DifyClient{}, svc.Backend)
			require.NoError(t, svc.Recorder.Save(context.Background(), svc.Recorder.Record(
				model.InputData{RawText: "hello"}, nil, nil)))
			assert.Len(t, svc.Recorder.List(context.Background()), 1)
		})
	}
}
