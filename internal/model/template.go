package model

// Category 任务模板分类（固定枚举）
type Category string

const (
	CategorySummary     Category = "summary"
	CategoryAnalysis    Category = "analysis"
	CategoryIdeation    Category = "ideation"
	CategoryWriting     Category = "writing"
	CategoryTranslation Category = "translation"
	CategoryLearning    Category = "learning"
	CategoryPlanning    Category = "planning"
	CategoryExecution   Category = "execution"
)

// Categories 按展示顺序列出全部分类
var Categories = []Category{
	CategorySummary,
	CategoryAnalysis,
	CategoryIdeation,
	CategoryWriting,
	CategoryTranslation,
	CategoryLearning,
	CategoryPlanning,
	CategoryExecution,
}

// DisplayName 用于拼进提示词的分类名
func (c Category) DisplayName() string {
	switch c {
	case CategorySummary:
		return "Summary"
	case CategoryAnalysis:
		return "Analysis"
	case CategoryIdeation:
		return "Ideation"
	case CategoryWriting:
		return "Writing"
	case CategoryTranslation:
		return "Translation"
	case CategoryLearning:
		return "Learning"
	case CategoryPlanning:
		return "Planning & Design"
	case CategoryExecution:
		return "Execution Support"
	default:
		return "Unknown"
	}
}

func (c Category) Valid() bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// 模板占位符
const (
	PlaceholderInputText = "{InputText}"
	PlaceholderUserNote  = "{UserNote}"
	PlaceholderFacts     = "{Facts}"
)

// TaskTemplate 目录中的一个任务模板，单次运行内不可变
type TaskTemplate struct {
	ID             string   `yaml:"id" json:"id"`
	Title          string   `yaml:"title" json:"title"`
	Description    string   `yaml:"description" json:"description"`
	Category       Category `yaml:"category" json:"category"`
	PromptTemplate string   `yaml:"prompt_template" json:"prompt_template"`
}

// SelectionOutcome AI（或兜底策略）对某个模板的选择结果
// Confidence 语义上是 0.0~1.0，但不做截断，原样透传
type SelectionOutcome struct {
	ID         string  `json:"id"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
	Order      int     `json:"order"`
}

// SelectedItem 选中的模板 + 选择结果 + 用户补充说明，是流水线的执行单元
type SelectedItem struct {
	TaskTemplate
	Selection SelectionOutcome `json:"selection"`
	UserNote  string           `json:"user_note"`
}
