// Package symbol normalizes ticker spellings coming from upstream payloads.
package symbol

import (
	"regexp"
	"strings"
)

var (
	tickerRe = regexp.MustCompile(`\b([A-Z]{1,5})\b`)
	exactRe  = regexp.MustCompile(`^[A-Z]{1,5}$`)
)

// Normalize 将 "aapl us" / "TSLA" 之类的输入标准化为大写代码。
// 解析失败时返回 "UNKNOWN"。
func Normalize(input string) string {
	m := tickerRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(input)))
	if m == nil {
		return "UNKNOWN"
	}
	return m[1]
}

// IsTicker 判断是否为 1-5 位大写股票代码。
func IsTicker(text string) bool {
	return exactRe.MatchString(strings.ToUpper(strings.TrimSpace(text)))
}
