package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	GenAI     GenAIConfig     `yaml:"genai"`
	Database  DatabaseConfig  `yaml:"database"`
	LogStore  LogStoreConfig  `yaml:"log_store"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Logging   LoggingConfig   `yaml:"logging"`
}

type ServerConfig struct {
	Port int `yaml:"port"`
}

// GenAIConfig 生成式后端配置
type GenAIConfig struct {
	// provider: gemini（默认）/ dify
	Provider        string  `yaml:"provider"`
	APIKey          string  `yaml:"api_key"`
	ModelName       string  `yaml:"model_name"`
	MaxOutputTokens int     `yaml:"max_output_tokens"`
	Temperature     float64 `yaml:"temperature"`
	// 以下仅 dify 使用
	BaseURL string `yaml:"base_url"`
	// dify 应用类型：completion / chat
	AppType string `yaml:"app_type"`
	// 单次请求超时（秒）
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

type DatabaseConfig struct {
	// driver: mysql / sqlite
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
	Charset  string `yaml:"charset"`
	// sqlite 文件路径
	Path string `yaml:"path"`
}

// LogStoreConfig 执行日志存储：file 为单个 JSON 文件，db 走数据库
type LogStoreConfig struct {
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path"`
	Capacity int    `yaml:"capacity"`
}

type CatalogConfig struct {
	// 为空时使用内置目录
	Path string `yaml:"path"`
}

type TelemetryConfig struct {
	Enabled        bool   `yaml:"enabled"`
	ServiceName    string `yaml:"service_name"`
	ServiceVersion string `yaml:"service_version"`
	OTLPEndpoint   string `yaml:"otlp_endpoint"`
	Insecure       bool   `yaml:"insecure"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

const (
	ProviderGemini = "gemini"
	ProviderDify   = "dify"

	StoreKindFile = "file"
	StoreKindDB   = "db"

	DefaultLogCapacity = 100
	// MaxLogCapacity 执行日志条数的硬上限，配置只能调小
	MaxLogCapacity = 100
)

func Default() Config {
	return Config{
		Server: ServerConfig{Port: 8080},
		GenAI: GenAIConfig{
			Provider:        ProviderGemini,
			ModelName:       "gemini-2.5-flash",
			MaxOutputTokens: 8192,
			Temperature:     0.7,
			AppType:         "completion",
			TimeoutSeconds:  120,
		},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Port:    3306,
			Charset: "utf8mb4",
			Path:    "data/prompt-runner.db",
		},
		LogStore: LogStoreConfig{
			Kind:     StoreKindFile,
			Path:     "data/execution_logs.json",
			Capacity: DefaultLogCapacity,
		},
		Telemetry: TelemetryConfig{ServiceName: "prompt-runner"},
		Logging:   LoggingConfig{Level: "info"},
	}
}

// ConfigurationError 配置不可用（例如缺少 API Key），必须在构造阶段失败
type ConfigurationError struct {
	Field string
	Msg   string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("配置错误 %s: %s", e.Field, e.Msg)
}

// LoadConfig 读取 YAML 配置；文件不存在时使用默认值，随后叠加 .env / 环境变量
func LoadConfig(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// .env 可选，不存在不算错误
	_ = godotenv.Load()
	cfg.applyEnvOverrides()
	cfg.fillDefaults()

	return &cfg, nil
}

func (c *Config) applyEnvOverrides() {
	for _, k := range []string{"GEMINI_API_KEY", "GOOGLE_API_KEY", "PROMPT_RUNNER_API_KEY"} {
		if v := strings.TrimSpace(os.Getenv(k)); v != "" {
			c.GenAI.APIKey = v
		}
	}
	if v := strings.TrimSpace(os.Getenv("PROMPT_RUNNER_MODEL")); v != "" {
		c.GenAI.ModelName = v
	}
}

// yaml 中显式写了 0 / 空字符串的字段回退到默认值
func (c *Config) fillDefaults() {
	def := Default()
	if c.Server.Port == 0 {
		c.Server.Port = def.Server.Port
	}
	if c.GenAI.Provider == "" {
		c.GenAI.Provider = def.GenAI.Provider
	}
	if c.GenAI.ModelName == "" {
		c.GenAI.ModelName = def.GenAI.ModelName
	}
	if c.GenAI.MaxOutputTokens == 0 {
		c.GenAI.MaxOutputTokens = def.GenAI.MaxOutputTokens
	}
	if c.GenAI.TimeoutSeconds == 0 {
		c.GenAI.TimeoutSeconds = def.GenAI.TimeoutSeconds
	}
	if c.LogStore.Kind == "" {
		c.LogStore.Kind = def.LogStore.Kind
	}
	if c.LogStore.Path == "" {
		c.LogStore.Path = def.LogStore.Path
	}
	if c.LogStore.Capacity <= 0 {
		c.LogStore.Capacity = def.LogStore.Capacity
	}
	if c.Database.Driver == "" {
		c.Database.Driver = def.Database.Driver
	}
	if c.Telemetry.ServiceName == "" {
		c.Telemetry.ServiceName = def.Telemetry.ServiceName
	}
}

// Validate 只校验运行流水线所必需的字段
func (c *Config) Validate() error {
	if strings.TrimSpace(c.GenAI.APIKey) == "" {
		return &ConfigurationError{Field: "genai.api_key", Msg: "未设置 API Key，请在配置文件或 GEMINI_API_KEY 中提供"}
	}
	if c.GenAI.MaxOutputTokens < 0 {
		return &ConfigurationError{Field: "genai.max_output_tokens", Msg: "必须为正数"}
	}
	switch c.GenAI.Provider {
	case ProviderGemini:
	case ProviderDify:
		if strings.TrimSpace(c.GenAI.BaseURL) == "" {
			return &ConfigurationError{Field: "genai.base_url", Msg: "dify 需要 base_url"}
		}
	default:
		return &ConfigurationError{Field: "genai.provider", Msg: fmt.Sprintf("不支持的 provider: %q", c.GenAI.Provider)}
	}
	if c.LogStore.Capacity < 1 || c.LogStore.Capacity > MaxLogCapacity {
		return &ConfigurationError{Field: "log_store.capacity", Msg: fmt.Sprintf("必须在 1 到 %d 之间", MaxLogCapacity)}
	}
	switch c.LogStore.Kind {
	case StoreKindFile, StoreKindDB:
	default:
		return &ConfigurationError{Field: "log_store.kind", Msg: fmt.Sprintf("不支持的存储类型: %q", c.LogStore.Kind)}
	}
	return nil
}
