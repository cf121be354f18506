// Package diffengine 提供合同版本之间的文本 diff 和字段 delta 计算
package diffengine

import (
	"reflect"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

// 行类型
const (
	LineContext = "context"
	LineAdded   = "added"
	LineRemoved = "removed"
	LineHeader  = "header"
	LineHunk    = "hunk"
)

// Line 结构化 diff 中的一行
type Line struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// FieldDelta 单个字段在两个版本间的变化
type FieldDelta struct {
	Field string      `json:"field"`
	From  interface{} `json:"from"`
	To    interface{} `json:"to"`
}

// LineDiff 文本 diff 的完整结果
type LineDiff struct {
	Unified string `json:"unified"`
	Lines   []Line `json:"lines"`
}

// DiffText 计算两段合同文本的统一 diff。文本相同时返回空结果
func DiffText(textA, textB string) (*LineDiff, error) {
	if textA == textB {
		return &LineDiff{Lines: []Line{}}, nil
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(textA),
		B:        difflib.SplitLines(textB),
		FromFile: "Version A",
		ToFile:   "Version B",
		Context:  3,
	}
	unified, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, err
	}

	lines := make([]Line, 0)
	for _, raw := range strings.Split(unified, "\n") {
		if raw == "" {
			continue
		}
		lines = append(lines, Line{Type: classifyLine(raw), Text: raw})
	}
	return &LineDiff{Unified: unified, Lines: lines}, nil
}

func classifyLine(raw string) string {
	switch {
	case strings.HasPrefix(raw, "---") || strings.HasPrefix(raw, "+++"):
		return LineHeader
	case strings.HasPrefix(raw, "@@"):
		return LineHunk
	case strings.HasPrefix(raw, "+"):
		return LineAdded
	case strings.HasPrefix(raw, "-"):
		return LineRemoved
	default:
		return LineContext
	}
}

// DiffFields 计算两个字段集合间的 delta。遍历两边 key 的并集，
// 值相等的字段不出现在结果中。输出按字段名排序以保证确定性
func DiffFields(fieldsA, fieldsB map[string]interface{}) []FieldDelta {
	keys := make(map[string]struct{}, len(fieldsA)+len(fieldsB))
	for k := range fieldsA {
		keys[k] = struct{}{}
	}
	for k := range fieldsB {
		keys[k] = struct{}{}
	}

	sorted := make([]string, 0, len(keys))
	for k := range keys {
		sorted = append(sorted, k)
	}
	sort.Strings(sorted)

	deltas := make([]FieldDelta, 0)
	for _, k := range sorted {
		from := fieldsA[k]
		to := fieldsB[k]
		if reflect.DeepEqual(from, to) {
			continue
		}
		deltas = append(deltas, FieldDelta{Field: k, From: from, To: to})
	}
	return deltas
}
