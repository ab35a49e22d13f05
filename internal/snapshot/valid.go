package snapshot

import "strings"

// SentinelNumber 上游 Extractor 约定的"未知"数值哨兵。
const SentinelNumber = -999

// 无效占位串集合（与上游约定保持一致）。
var invalidText = map[string]struct{}{
	"":     {},
	"N/A":  {},
	"unknown": {},
	"数据不足": {},
}

// ValidNumber 数值叶子有效：非 nil 且非哨兵。
func ValidNumber(v *float64) bool {
	return v != nil && *v != SentinelNumber
}

// ValidText 文本叶子有效：非空白且不在占位串集合中。
func ValidText(s string) bool {
	_, bad := invalidText[strings.TrimSpace(s)]
	return !bad
}

// ValidFlag 布尔叶子有效：只要被观测过（非 nil）。
func ValidFlag(b *bool) bool { return b != nil }
