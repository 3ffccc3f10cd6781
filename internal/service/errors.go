package service

import (
	"errors"
	"fmt"
)

// ProviderError 生成式后端调用失败（网络、鉴权、配额、空响应等）
type ProviderError struct {
	Op  string
	Err error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// PersistenceError 执行日志存储读写失败
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("日志存储%s失败: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

var (
	// ErrNoJSONArray 后端响应中找不到 [...] 片段
	ErrNoJSONArray = errors.New("响应中没有 JSON 数组")
	// ErrMalformedSelection 找到了 [...] 但无法解析成选择结果
	ErrMalformedSelection = errors.New("选择结果 JSON 格式错误")
	// ErrTooFewSelections 过滤后有效条目少于下限
	ErrTooFewSelections = errors.New("有效选择条目不足")
	// ErrUnknownTemplate 手动指定的模板 ID 不在目录中
	ErrUnknownTemplate = errors.New("模板不存在")
	// ErrEmptyInput 输入文本为空
	ErrEmptyInput = errors.New("输入文本为空")
)
