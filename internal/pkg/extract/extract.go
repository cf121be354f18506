// Package extract 从上传文件中提取合同纯文本
package extract

import (
	"bytes"
	"path/filepath"
	"strings"
)

// MinTextLength 可解析文本的最小长度，短于此视为提取质量不合格
const MinTextLength = 50

// ExtractText 按扩展名提取文本。纯文本格式直接透传，
// 二进制格式（pdf、docx、doc）当前不支持，返回空串。
// 第二个返回值表示该扩展名是否受支持
func ExtractText(filename string, data []byte) (string, bool) {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".txt", ".md", ".text", "":
		return string(bytes.ToValidUTF8(data, []byte(""))), true
	case ".pdf", ".docx", ".doc":
		return "", false
	default:
		return "", false
	}
}

// QualityOK 判断提取文本是否达到可解析质量
func QualityOK(text string) bool {
	return len(strings.TrimSpace(text)) >= MinTextLength
}
