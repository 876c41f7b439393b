// Package query 解析用户在表单中提交的查询输入。
package query

import (
	"strings"
	"unicode"

	"ZhaoYaoJing/internal/model"
)

// ValidationError 输入无效，对应 HTTP 400
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ParseSoftware 解析 "名称 [版本]" 格式的输入
//
// 输入按第一段空白拆成最多两部分：第一部分为软件名，其余部分为版本。
func ParseSoftware(raw string) (model.SoftwareQuery, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.SoftwareQuery{}, &ValidationError{
			Field:   "software",
			Message: "Error: Please provide software name and optionally a version",
		}
	}

	idx := strings.IndexFunc(raw, unicode.IsSpace)
	if idx == -1 {
		return model.SoftwareQuery{Name: raw}, nil
	}

	return model.SoftwareQuery{
		Name:    raw[:idx],
		Version: strings.TrimSpace(raw[idx:]),
	}, nil
}

// ParseKeywords 按空白拆分关键词，空输入返回空列表
func ParseKeywords(raw string) []string {
	return strings.Fields(raw)
}

