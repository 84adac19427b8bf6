// Package textutil 提供检索与生成流程共用的文本处理工具函数。
package textutil

import (
	"crypto/sha256"
	"encoding/hex"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// CosineSimilarity 计算两个向量的余弦相似度。
// 维度不一致、为空或存在零向量时返回 0。
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}
	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Clamp01 将数值限制在 [0, 1]，NaN 视为 0。
func Clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}

// TruncateString 截断字符串到指定的最大 Unicode 字符数。
func TruncateString(s string, maxLen int) string {
	if maxLen < 0 {
		maxLen = 0
	}
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return string([]rune(s)[:maxLen])
}

// TruncateWithEllipsis 截断超长字符串并追加省略号。
func TruncateWithEllipsis(s string, maxLen int) string {
	if utf8.RuneCountInString(s) <= maxLen {
		return s
	}
	return strings.TrimRightFunc(TruncateString(s, maxLen), unicode.IsSpace) + "..."
}

var sentenceEnd = regexp.MustCompile(`[.!?]+(\s+|$)`)

// FirstSentences 返回文本的前 n 个句子，句子以 . ! ? 结尾。
// 没有句末标点的尾部文本也计为一个句子。
func FirstSentences(text string, n int) string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" || n <= 0 {
		return ""
	}

	ends := sentenceEnd.FindAllStringIndex(text, -1)
	if len(ends) < n {
		return text
	}
	return strings.TrimSpace(text[:ends[n-1][1]])
}

// LastWords 返回文本最后 n 个以空白分隔的单词。
func LastWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) > n {
		words = words[len(words)-n:]
	}
	return strings.Join(words, " ")
}

// Words 将文本切分为小写的字母数字单词。
func Words(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// HashKey 计算各部分拼接后的 SHA256 哈希值，部分之间以 NUL 分隔。
func HashKey(parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return hex.EncodeToString(hash[:])
}

// ContainsString 检查字符串切片是否包含指定元素。
func ContainsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
