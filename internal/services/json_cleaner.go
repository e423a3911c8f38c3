// internal/services/json_cleaner.go
package services

import (
	"strings"
	"unicode"
)

// 模型回复中常见的包裹与噪声
var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\ufeff", "",
	"\u00a0", " ",
	"\u2028", "\n",
	"\u2029", "\n",
)

// extractJSONObject 从模型回复中截取第一个完整的JSON对象
// 找不到对象时返回空字符串
func extractJSONObject(s string) string {
	s = jsonNoiseReplacer.Replace(s)

	// 移除零宽字符及除换行/制表符外的控制字符
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	start := strings.IndexByte(s, '{')
	if start == -1 {
		return ""
	}
	s = s[start:]

	// 简单的括号计数匹配，忽略字符串内的括号
	balance := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		char := s[i]
		if escaped {
			escaped = false
			continue
		}
		if char == '\\' && inString {
			escaped = true
			continue
		}
		if char == '"' {
			inString = !inString
			continue
		}
		if inString {
			continue
		}
		switch char {
		case '{':
			balance++
		case '}':
			balance--
			if balance == 0 {
				return s[:i+1]
			}
		}
	}

	// 没有匹配的结束符时退回到最后一个 }
	if end := strings.LastIndexByte(s, '}'); end > 0 {
		return s[:end+1]
	}
	return ""
}
