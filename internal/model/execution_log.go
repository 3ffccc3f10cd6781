package model

import (
	"time"
)

// InputData 一次运行的输入（原文 + 可选的事实摘要）
type InputData struct {
	RawText        string    `json:"raw_text"`
	ExtractedFacts *string   `json:"extracted_facts,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ExecutionResult 单个模板的执行结果；ErrorMessage 仅在 Success=false 时有值
type ExecutionResult struct {
	ItemID       string    `json:"item_id"`
	ItemTitle    string    `json:"item_title"`
	Content      string    `json:"content"`
	CompletedAt  time.Time `json:"completed_at"`
	Success      bool      `json:"success"`
	ErrorMessage string    `json:"error_message,omitempty"`
}

// RunSummary 一次运行没有整体成败，只有成功数/总数
type RunSummary struct {
	Succeeded int `json:"succeeded"`
	Total     int `json:"total"`
}

func Summarize(results []ExecutionResult) RunSummary {
	s := RunSummary{Total: len(results)}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		}
	}
	return s
}

// ExecutionLog 一次完整运行的持久化记录，与目录后续的变更无关
type ExecutionLog struct {
	ID             string             `gorm:"primarykey;type:varchar(64)" json:"id"`
	Position       int                `gorm:"index" json:"-"`
	ExecutedAt     time.Time          `gorm:"index" json:"executed_at"`
	InputText      string             `gorm:"type:longtext" json:"input_text"`
	ExtractedFacts *string            `gorm:"type:longtext" json:"extracted_facts,omitempty"`
	Items          []ExecutionLogItem `gorm:"foreignKey:LogID;constraint:OnDelete:CASCADE" json:"items"`
}

// ExecutionLogItem 模板快照与执行结果合并后的扁平记录
type ExecutionLogItem struct {
	ID    uint   `gorm:"primarykey" json:"-"`
	LogID string `gorm:"type:varchar(64);not null;index" json:"-"`
	Seq   int    `json:"-"`

	ItemID         string `gorm:"type:varchar(200);not null" json:"item_id"`
	ItemTitle      string `gorm:"type:varchar(500)" json:"item_title"`
	PromptTemplate string `gorm:"type:longtext" json:"prompt_template"`
	UserNote       string `gorm:"type:text" json:"user_note"`
	ResultContent  string `gorm:"type:longtext" json:"result_content"`
	Success        bool   `json:"success"`
	ErrorMessage   string `gorm:"type:text" json:"error_message,omitempty"`
}
