package drift

import (
	"fmt"

	"gexwatch/internal/config"
	"gexwatch/internal/snapshot"
)

// 中文说明：
// 结构漂移引擎。对比上一份完整快照与当前快照，跑八项独立风控检查，
// 产出状态 + 操作建议。监控永不报错：数据无效时降级为 STABLE 报告。

// 漂移状态，按严重度递增。
const (
	StatusStable  = "STABLE"
	StatusCaution = "CAUTION"
	StatusDanger  = "DANGER"
)

var severityRank = map[string]int{
	StatusStable:  0,
	StatusCaution: 1,
	StatusDanger:  2,
}

// Action 建议操作。
type Action struct {
	Type   string `json:"type"`
	Side   string `json:"side"`
	Reason string `json:"reason"`
}

// Signals 三条信号线的归纳状态。
type Signals struct {
	Walls string `json:"walls"` // stable / ceiling_down / floor_breach
	Flow  string `json:"flow"`  // neutral / organic / hollow
	Vol   string `json:"vol"`   // calm / spike / inverted
}

// Report 单次对比的完整输出。每次调用新建，不做累积。
type Report struct {
	Symbol    string   `json:"symbol"`
	Status    string   `json:"status"`
	Signals   Signals  `json:"signals"`
	Changes   []string `json:"changes,omitempty"`
	Alerts    []string `json:"alerts,omitempty"`
	Actions   []Action `json:"actions,omitempty"`
	Summary   string   `json:"summary"`
	DataValid bool     `json:"data_valid"`
}

// Engine 漂移引擎。无内部状态，可并发使用。
type Engine struct {
	cfg config.DriftConfig
}

func NewEngine(cfg config.DriftConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Compare 对比 prior（上一份完整快照）与 curr。各检查相互独立，
// 最终状态取所有检查的最高严重度。
func (e *Engine) Compare(prior, curr *snapshot.TargetRecord) *Report {
	rep := &Report{
		Status:  StatusStable,
		Signals: Signals{Walls: "stable", Flow: "neutral", Vol: "calm"},
	}
	if curr != nil {
		rep.Symbol = curr.Symbol
	}
	if prior == nil || curr == nil {
		rep.Summary = "缺少对比基线，跳过漂移检查"
		return rep
	}
	spot := curr.Spot()
	if spot == 0 {
		// 监控不允许中断长循环，坏数据降级为无效报告
		rep.Summary = "数据无效 (Spot=0)"
		return rep
	}
	rep.DataValid = true

	e.checkWallShift(prior, curr, rep)
	e.checkGammaRegime(prior, curr, spot, rep)
	e.checkDexMomentum(prior, curr, spot, rep)
	e.checkIVSpike(prior, curr, rep)
	e.checkTermInversion(curr, rep)
	e.checkWallStrength(prior, curr, rep)
	e.checkStructureDivergence(prior, curr, spot, rep)
	e.checkTermSlope(curr, rep)

	if len(rep.Changes) == 0 && len(rep.Alerts) == 0 {
		rep.Summary = "结构稳定，建议持有"
	} else {
		rep.Summary = fmt.Sprintf("监控触发: %d变化, %d警示 -> %d条建议",
			len(rep.Changes), len(rep.Alerts), len(rep.Actions))
	}
	return rep
}

func (e *Engine) escalate(rep *Report, status string) {
	if severityRank[status] > severityRank[rep.Status] {
		rep.Status = status
	}
}

// checkWallShift 墙位移动。天花板下压建议止盈，防线破位为最高警报。
func (e *Engine) checkWallShift(prior, curr *snapshot.TargetRecord, rep *Report) {
	if lc, cc, ok := pairValid(prior.Walls.CallWall, curr.Walls.CallWall); ok && lc != cc {
		pct := (cc - lc) / lc
		if abs(pct) > e.cfg.WallShiftPct {
			if pct < 0 {
				rep.Changes = append(rep.Changes, fmt.Sprintf("Call Wall 下压: %.2f->%.2f", lc, cc))
				rep.Actions = append(rep.Actions, Action{Type: "take_profit", Side: "long", Reason: fmt.Sprintf("天花板下压 (%.1f%%)", pct*100)})
				rep.Signals.Walls = "ceiling_down"
				e.escalate(rep, StatusCaution)
			} else {
				rep.Changes = append(rep.Changes, fmt.Sprintf("Call Wall 上移: %.2f->%.2f", lc, cc))
				rep.Actions = append(rep.Actions, Action{Type: "hold", Side: "long", Reason: "阻力位上移，趋势延续"})
			}
		}
	}
	if lp, cp, ok := pairValid(prior.Walls.PutWall, curr.Walls.PutWall); ok && lp != cp {
		pct := (cp - lp) / lp
		if abs(pct) > e.cfg.WallShiftPct {
			if pct < 0 {
				rep.Changes = append(rep.Changes, fmt.Sprintf("Put Wall 破位: %.2f->%.2f", lp, cp))
				rep.Actions = append(rep.Actions, Action{Type: "stop_loss", Side: "long", Reason: fmt.Sprintf("防线溃退 (%.1f%%)", pct*100)})
				rep.Signals.Walls = "floor_breach"
				e.escalate(rep, StatusDanger)
			} else {
				rep.Changes = append(rep.Changes, fmt.Sprintf("Put Wall 上抬: %.2f->%.2f", lp, cp))
			}
		}
	}
}

// checkGammaRegime 现价穿越 vol_trigger 即为 regime 翻转。跌入负 Gamma 区最危险。
func (e *Engine) checkGammaRegime(prior, curr *snapshot.TargetRecord, spot float64, rep *Report) {
	cTrig := numOr(curr.Gamma.VolTrigger, 0)
	if cTrig <= 0 {
		return
	}
	isBelow := spot < cTrig
	wasBelow := false
	if lTrig := numOr(prior.Gamma.VolTrigger, 0); lTrig > 0 && prior.Spot() > 0 {
		wasBelow = prior.Spot() < lTrig
	}
	switch {
	case isBelow && !wasBelow:
		rep.Alerts = append(rep.Alerts, fmt.Sprintf("跌破 Vol Trigger (%.2f)，进入负Gamma区", cTrig))
		rep.Actions = append(rep.Actions, Action{Type: "reduce_risk", Side: "all", Reason: "Regime Change (高波警报)"})
		e.escalate(rep, StatusDanger)
	case !isBelow && wasBelow:
		rep.Changes = append(rep.Changes, "收复 Vol Trigger，回归正Gamma区")
	}
}

// checkDexMomentum 价涨量缩即为空心上涨；价涨且库存跟进记为有机信号。
func (e *Engine) checkDexMomentum(prior, curr *snapshot.TargetRecord, spot float64, rep *Report) {
	priorSpot := prior.Spot()
	if priorSpot <= 0 {
		return
	}
	priceChg := (spot - priorSpot) / spot
	if priceChg <= e.cfg.PriceChangeMinPct {
		return
	}
	lDex, cDex, ok := pairValid(prior.Directional.DexSameDirPct, curr.Directional.DexSameDirPct)
	if !ok {
		return
	}
	if cDex-lDex < -e.cfg.DexDivergence {
		rep.Alerts = append(rep.Alerts, "DEX 动能背离 (价涨量缩)")
		rep.Actions = append(rep.Actions, Action{Type: "tighten_stop", Side: "long", Reason: "上涨缺乏Dealer库存支持"})
		rep.Signals.Flow = "hollow"
		e.escalate(rep, StatusCaution)
	} else {
		rep.Signals.Flow = "organic"
	}
}

// checkIVSpike 30 日隐波（缺失退 14 日）单日跳升超阈值。
func (e *Engine) checkIVSpike(prior, curr *snapshot.TargetRecord, rep *Report) {
	lIV := prior.ATMIV.IV30OrFallback()
	cIV := curr.ATMIV.IV30OrFallback()
	if lIV <= 0 || cIV <= 0 {
		return
	}
	chg := (cIV - lIV) / lIV
	if chg > e.cfg.IVSpikePct {
		rep.Alerts = append(rep.Alerts, fmt.Sprintf("IV 异常飙升 (%+.1f%%)", chg*100))
		rep.Actions = append(rep.Actions, Action{Type: "exit", Side: "vanna_long", Reason: "IV飙升破坏Vanna助涨逻辑"})
		if rep.Signals.Vol == "calm" {
			rep.Signals.Vol = "spike"
		}
		e.escalate(rep, StatusCaution)
	}
}

// checkTermInversion 7 日/30 日隐波倒挂，宏观恐慌信号。
func (e *Engine) checkTermInversion(curr *snapshot.TargetRecord, rep *Report) {
	iv7 := numOr(curr.ATMIV.IV7D, 0)
	iv30 := curr.ATMIV.IV30OrFallback()
	if iv7 <= 0 || iv30 <= 0 {
		return
	}
	if ratio := iv7 / iv30; ratio > e.cfg.IVInversionRatio {
		rep.Alerts = append(rep.Alerts, fmt.Sprintf("期限结构倒挂 (Ratio: %.2f)", ratio))
		rep.Actions = append(rep.Actions, Action{Type: "clear_position", Side: "all", Reason: "宏观恐慌 (Term Inversion)"})
		rep.Signals.Vol = "inverted"
		e.escalate(rep, StatusDanger)
	}
}

// checkWallStrength 月度聚集簇 GEX 强度衰减，支撑虚化。
func (e *Engine) checkWallStrength(prior, curr *snapshot.TargetRecord, rep *Report) {
	lGex, cGex, ok := pairValid(prior.Gamma.MonthlyCluster.AbsGEX, curr.Gamma.MonthlyCluster.AbsGEX)
	if !ok || lGex <= 0 {
		return
	}
	if decay := (cGex - lGex) / lGex; decay < -e.cfg.WallDecayPct {
		rep.Alerts = append(rep.Alerts, fmt.Sprintf("Put Wall 强度衰减 %.1f%% (支撑虚化)", decay*100))
		rep.Actions = append(rep.Actions, Action{Type: "tighten_stop", Side: "long", Reason: "主力防守资金撤退"})
		e.escalate(rep, StatusCaution)
	}
}

// checkStructureDivergence 价格领先结构且周度峰位原地不动，上涨空心化。
func (e *Engine) checkStructureDivergence(prior, curr *snapshot.TargetRecord, spot float64, rep *Report) {
	cPeak := weeklyPeakPrice(curr)
	if cPeak <= 0 {
		return
	}
	divergence := (spot - cPeak) / spot
	if divergence <= e.cfg.SpotDivergencePct {
		return
	}
	rep.Changes = append(rep.Changes, fmt.Sprintf("价格乖离: 领先结构 %.1f%%", divergence*100))
	if lPeak := weeklyPeakPrice(prior); lPeak == cPeak {
		rep.Alerts = append(rep.Alerts, "上涨空心化 (价格涨但GEX结构未跟进)")
		rep.Actions = append(rep.Actions, Action{Type: "take_profit", Side: "long", Reason: "结构滞后，防范均值回归"})
		rep.Signals.Flow = "hollow"
		e.escalate(rep, StatusCaution)
	}
}

// checkTermSlope 期限斜率落入 (0, 阈值) 区间视为平坦化。
func (e *Engine) checkTermSlope(curr *snapshot.TargetRecord, rep *Report) {
	iv7 := numOr(curr.ATMIV.IV7D, 0)
	iv30 := curr.ATMIV.IV30OrFallback()
	if iv7 <= 0 || iv30 <= 0 {
		return
	}
	if slope := iv30 - iv7; slope > 0 && slope < e.cfg.TermFlatteningSlope {
		rep.Alerts = append(rep.Alerts, fmt.Sprintf("Term结构平坦化 (Slope: %.1f)", slope))
		rep.Actions = append(rep.Actions, Action{Type: "reduce_risk", Side: "all", Reason: "短期避险情绪升温"})
		e.escalate(rep, StatusCaution)
	}
}

func weeklyPeakPrice(rec *snapshot.TargetRecord) float64 {
	if v := numOr(rec.Gamma.WeeklyCluster.Price, 0); v > 0 {
		return v
	}
	return numOr(rec.Gamma.NearbyPeak.Price, 0)
}

func pairValid(a, b *float64) (float64, float64, bool) {
	if !snapshot.ValidNumber(a) || !snapshot.ValidNumber(b) {
		return 0, 0, false
	}
	return *a, *b, true
}

func numOr(p *float64, def float64) float64 {
	if snapshot.ValidNumber(p) {
		return *p
	}
	return def
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
