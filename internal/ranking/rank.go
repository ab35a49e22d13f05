package ranking

import (
	"fmt"
	"math"
	"sort"

	"gexwatch/internal/config"
	"gexwatch/internal/quant"
)

// RankedStrategy 打分后的候选策略。Adjustments 记录每项加减分的来由。
type RankedStrategy struct {
	Rank        int      `json:"rank"`
	Name        string   `json:"name"`
	Structure   string   `json:"structure"`
	Family      string   `json:"family"`
	Direction   string   `json:"direction"`
	Score       float64  `json:"score"`
	RRRatio     float64  `json:"rr_ratio,omitempty"`
	PwEstimate  float64  `json:"pw_estimate,omitempty"`
	Vetoed      bool     `json:"vetoed,omitempty"`
	Adjustments []string `json:"adjustments,omitempty"`
}

// Engine 策略排名引擎。纯函数打分，无副作用。
type Engine struct {
	cfg config.ScoringConfig
}

func NewEngine(cfg config.ScoringConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Rank 对候选策略逐个打分并按分数降序排列。
// 基础分 + RR 分 + 胜率分，再做质量修正；分数钳到 0 以上。
// 全局否决对方向性候选是硬性清零，不是减分惩罚。
func (e *Engine) Rank(candidates []Strategy, out *quant.Output) []RankedStrategy {
	ranked := make([]RankedStrategy, 0, len(candidates))
	for _, s := range candidates {
		ranked = append(ranked, e.score(s, out))
	}
	// 稳定排序：同分保持目录顺序
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score > ranked[j].Score
	})
	assignDenseRanks(ranked)
	return ranked
}

func (e *Engine) score(s Strategy, out *quant.Output) RankedStrategy {
	r := RankedStrategy{
		Name:      s.Name,
		Structure: s.Structure,
		Family:    s.Family,
		Direction: s.Direction,
	}
	score := e.cfg.BaseScore

	if out != nil {
		if rr, ok := out.RR[s.RRKey]; ok && s.RRKey != "" {
			r.RRRatio = rr.Ratio
			score += math.Min(rr.Ratio*e.cfg.RRCoef, e.cfg.RRCap)
			r.Adjustments = append(r.Adjustments, fmt.Sprintf("RR %.2f +%.1f", rr.Ratio, math.Min(rr.Ratio*e.cfg.RRCoef, e.cfg.RRCap)))
		}
		if pw, ok := out.Pw[s.PwKey]; ok && s.PwKey != "" {
			r.PwEstimate = pw.Estimate
			if pct := pw.Estimate * 100; pct > 50 {
				bonus := (pct - 50) * e.cfg.PwCoef
				score += bonus
				r.Adjustments = append(r.Adjustments, fmt.Sprintf("Pw %.0f%% +%.1f", pct, bonus))
			}
		}
	}

	score = e.applyQuality(s, out, score, &r)

	if score < 0 {
		score = 0
	}
	r.Score = math.Round(score*10) / 10
	return r
}

// applyQuality 质量修正：否决清零、周度摩擦、偏好错配、建仓质量、资金流对齐。
func (e *Engine) applyQuality(s Strategy, out *quant.Output, score float64, r *RankedStrategy) float64 {
	if out != nil && s.Directional() {
		if out.Vetoed() {
			// 一票否决：方向性候选直接归零
			r.Vetoed = true
			r.Adjustments = append(r.Adjustments, "量价否决，方向性策略清零")
			return 0
		}
		if out.Validation.WeeklyFrictionState == quant.FrictionObstructed {
			score -= e.cfg.WeeklyResistancePenalty
			r.Adjustments = append(r.Adjustments, fmt.Sprintf("周度摩擦 -%.0f", e.cfg.WeeklyResistancePenalty))
		}
	}

	if out != nil && biasMismatch(s.Family, out.Validation.StrategyBias) {
		score -= e.cfg.BiasMismatchPenalty
		r.Adjustments = append(r.Adjustments, fmt.Sprintf("偏好错配(%s) -%.0f", out.Validation.StrategyBias, e.cfg.BiasMismatchPenalty))
	}

	switch s.SetupQuality {
	case QualityHigh:
		score += e.cfg.QualityHighBonus
		r.Adjustments = append(r.Adjustments, fmt.Sprintf("建仓质量高 +%.0f", e.cfg.QualityHighBonus))
	case QualityMedium:
		// 默认建仓质量中不加分，仅当配置显式给出奖励时记一条调整
		if e.cfg.QualityMediumBonus != 0 {
			score += e.cfg.QualityMediumBonus
			r.Adjustments = append(r.Adjustments, fmt.Sprintf("建仓质量中 +%.0f", e.cfg.QualityMediumBonus))
		}
	case QualityLow:
		score -= e.cfg.QualityLowPenalty
		r.Adjustments = append(r.Adjustments, fmt.Sprintf("建仓质量低 -%.0f", e.cfg.QualityLowPenalty))
	}

	if s.FlowAligned {
		score += e.cfg.FlowAlignedBonus
		r.Adjustments = append(r.Adjustments, fmt.Sprintf("资金流对齐 +%.0f", e.cfg.FlowAlignedBonus))
	}
	return score
}

// biasMismatch 偏好与结构族冲突：偏 credit 却是 debit 族，反之亦然。
// 单腿买方与蝶式按 debit 性质处理。
func biasMismatch(family, bias string) bool {
	switch bias {
	case quant.BiasCreditFavored:
		return family == FamilyDebit || family == FamilyLong
	case quant.BiasDebitFavored:
		return family == FamilyCredit
	}
	return false
}

// assignDenseRanks 密集名次：同分共享名次，下一档名次只加一。
func assignDenseRanks(ranked []RankedStrategy) {
	rank := 0
	prev := math.Inf(1)
	for i := range ranked {
		if ranked[i].Score < prev {
			rank++
			prev = ranked[i].Score
		}
		ranked[i].Rank = rank
	}
}
