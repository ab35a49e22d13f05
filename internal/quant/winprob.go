package quant

import (
	"gexwatch/internal/config"
)

// 因子模型的信号缺省值（数据未观测时的中性假设）。
const (
	defaultClusterStrength = 1.0
)

// creditWinProb 信用结构胜率：线性因子模型与理论基准按权重混合后夹取。
func creditWinProb(cluster, gapEM1, techScore float64, cfg config.WinProbConfig) WinProb {
	c := cfg.Credit
	if cluster <= 0 {
		cluster = defaultClusterStrength
	}
	if gapEM1 <= 0 {
		gapEM1 = defaultGapEM1
	}
	factor := c.Base + c.ClusterCoef*cluster - c.DistancePenaltyCoef*gapEM1 + c.TechCoef*techScore
	blended := factor*cfg.FactorWeight + c.Theoretical*cfg.TheoreticalWeight
	return WinProb{
		Estimate:        round3(clampF(blended, c.Min, c.Max)),
		TheoreticalBase: c.Theoretical,
		Formula:         "Hybrid",
		Note:            "Credit",
	}
}

// debitWinProb 借贷结构胜率：基准 + 技术分修正。
func debitWinProb(techScore float64, cfg config.WinProbConfig) WinProb {
	d := cfg.Debit
	factor := d.Base + d.TechCoef*techScore
	blended := factor*cfg.FactorWeight + d.Theoretical*cfg.TheoreticalWeight
	return WinProb{
		Estimate:        round3(clampF(blended, d.Min, d.Max)),
		TheoreticalBase: d.Theoretical,
		Formula:         "Hybrid",
		Note:            "Debit",
	}
}

// butterflyWinProb 蝶式用固定估计值，合法性由配置加载期保证。
func butterflyWinProb(cfg config.WinProbConfig) WinProb {
	est := cfg.ButterflyEstimate
	return WinProb{
		Estimate:        est,
		TheoreticalBase: est,
		Formula:         "Fixed",
		Note:            "Butterfly",
	}
}
