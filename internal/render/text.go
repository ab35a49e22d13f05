package render

import (
	"fmt"
	"strings"
	"time"

	"gexwatch/internal/drift"
	"gexwatch/internal/quant"
	"gexwatch/internal/ranking"
)

// 中文说明：
// 决策与漂移报告的纯文本摘要。用于日志落盘与 Telegram 推送，
// 不做 HTML 报表。段落统一走 code block，避免 Markdown 注入。

const maxMessageLen = 3800

// Section 摘要里的一个段落。
type Section struct {
	Title string
	Lines []string
}

// Message 统一格式的推送消息。
type Message struct {
	Icon      string
	Title     string
	Sections  []Section
	Footer    string
	Timestamp time.Time
}

// Render 生成最终文本，超长自动截断。
func (m Message) Render() string {
	var b strings.Builder
	if header := strings.TrimSpace(m.Icon + " " + m.Title); header != "" {
		b.WriteString(header + "\n\n")
	}
	if block := renderSections(m.Sections); block != "" {
		b.WriteString(block)
	}
	if footer := strings.TrimSpace(m.Footer); footer != "" {
		b.WriteString(sanitize(footer) + "\n")
	}
	if !m.Timestamp.IsZero() {
		b.WriteString("时间：" + m.Timestamp.Format("2006-01-02 15:04:05 MST"))
	}
	body := strings.TrimSpace(b.String())
	if len(body) > maxMessageLen {
		body = body[:maxMessageLen] + "..."
	}
	return body
}

// DecisionMessage 决策输出 + 排名的摘要。
func DecisionMessage(symbol string, out *quant.Output, ranked []ranking.RankedStrategy) Message {
	msg := Message{Title: fmt.Sprintf("%s 期权结构决策", symbol), Timestamp: time.Now()}
	if out == nil {
		msg.Icon = "❓"
		msg.Footer = "无决策输出"
		return msg
	}
	if out.Vetoed() {
		msg.Icon = "⛔"
		msg.Sections = append(msg.Sections, Section{
			Title: "一票否决",
			Lines: []string{
				"原因: " + out.VetoReason,
				"量价信号: " + out.Validation.NetVolumeSignal,
				"情景: " + out.Meta.PrimaryScenario,
			},
		})
	} else {
		msg.Icon = "📊"
		core := Section{Title: "核心参数", Lines: []string{
			fmt.Sprintf("Spot %.2f / EM1 $%.2f / IVR %.0f", out.Meta.Spot, out.Meta.EM1, out.Meta.IVR),
			"Gamma 区: " + out.Meta.GammaRegime,
			"策略偏好: " + out.Validation.StrategyBias,
			"周度摩擦: " + out.Validation.WeeklyFrictionState,
		}}
		if out.DTE != nil {
			core.Lines = append(core.Lines, fmt.Sprintf("建议 DTE: %d (%s)", out.DTE.Final, out.DTE.Rationale))
		}
		msg.Sections = append(msg.Sections, core)
	}
	if len(ranked) > 0 {
		sec := Section{Title: "策略排名"}
		for _, r := range ranked {
			mark := ""
			if r.Vetoed {
				mark = " [否决]"
			}
			sec.Lines = append(sec.Lines, fmt.Sprintf("#%d %s %.1f分%s", r.Rank, r.Structure, r.Score, mark))
		}
		msg.Sections = append(msg.Sections, sec)
	}
	return msg
}

// DriftMessage 漂移报告摘要。
func DriftMessage(rep *drift.Report) Message {
	msg := Message{Timestamp: time.Now()}
	if rep == nil {
		msg.Icon = "❓"
		msg.Title = "漂移报告缺失"
		return msg
	}
	msg.Title = fmt.Sprintf("%s 结构漂移 [%s]", rep.Symbol, rep.Status)
	switch rep.Status {
	case drift.StatusDanger:
		msg.Icon = "🔥"
	case drift.StatusCaution:
		msg.Icon = "⚠️"
	default:
		msg.Icon = "✅"
	}
	if len(rep.Changes) > 0 {
		msg.Sections = append(msg.Sections, Section{Title: "结构变化", Lines: rep.Changes})
	}
	if len(rep.Alerts) > 0 {
		msg.Sections = append(msg.Sections, Section{Title: "警示", Lines: rep.Alerts})
	}
	if len(rep.Actions) > 0 {
		sec := Section{Title: "操作建议"}
		for _, a := range rep.Actions {
			sec.Lines = append(sec.Lines, fmt.Sprintf("%s (%s): %s", a.Type, a.Side, a.Reason))
		}
		msg.Sections = append(msg.Sections, sec)
	}
	msg.Footer = rep.Summary
	return msg
}

func renderSections(secs []Section) string {
	hasContent := false
	for _, sec := range secs {
		if len(cleanLines(sec.Lines)) > 0 {
			hasContent = true
			break
		}
	}
	if !hasContent {
		return ""
	}
	var b strings.Builder
	b.WriteString("```\n")
	for idx, sec := range secs {
		lines := cleanLines(sec.Lines)
		if len(lines) == 0 {
			continue
		}
		if title := strings.TrimSpace(sec.Title); title != "" {
			b.WriteString(sanitize(title) + "\n")
		}
		for _, line := range lines {
			b.WriteString("- " + sanitize(line) + "\n")
		}
		if idx != len(secs)-1 {
			b.WriteString("\n")
		}
	}
	b.WriteString("```\n\n")
	return b.String()
}

func cleanLines(lines []string) []string {
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if text := strings.TrimSpace(line); text != "" {
			out = append(out, text)
		}
	}
	return out
}

func sanitize(s string) string {
	return strings.ReplaceAll(s, "```", "'''")
}
