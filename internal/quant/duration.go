package quant

import (
	"fmt"
	"math"

	"gexwatch/internal/config"
)

const defaultGapEM1 = 2.0

// computeDTE 估算建仓到期天数：base × t_scale × gap_mult，月度簇托底，最后夹取。
func computeDTE(gapEM1 *float64, monthlyOverride bool, mkt MarketContext, cfg config.DurationConfig) DTEResult {
	gap := defaultGapEM1
	if gapEM1 != nil && *gapEM1 > 0 {
		gap = *gapEM1
	}

	tScale, source := resolveTScale(mkt, cfg)

	gapMult := cfg.GapMidMult
	gapLevel := "mid"
	switch {
	case gap > cfg.GapHighMin:
		gapMult, gapLevel = cfg.GapHighMult, "high"
	case gap < cfg.GapLowMax:
		gapMult, gapLevel = cfg.GapLowMult, "low"
	}

	raw := cfg.BaseDays * tScale * gapMult
	if monthlyOverride && raw < cfg.MonthlyFloorDays {
		raw = cfg.MonthlyFloorDays
	}
	final := int(math.Max(float64(cfg.MinDays), math.Min(float64(cfg.MaxDays), raw)))

	return DTEResult{
		Final:           final,
		Base:            int(cfg.BaseDays),
		TScale:          round3(tScale),
		TScaleSource:    source,
		GapLevel:        gapLevel,
		MonthlyOverride: monthlyOverride,
		Rationale:       fmt.Sprintf("基准%d×T%.2f×Gap%.1f→%dd", int(cfg.BaseDays), tScale, gapMult, final),
	}
}

// resolveTScale 优先用上游缓存；否则由 (hv20/iv30)^exp 本地计算并夹取。
func resolveTScale(mkt MarketContext, cfg config.DurationConfig) (float64, string) {
	if mkt.TScale != nil && *mkt.TScale > 0 {
		return *mkt.TScale, "上游缓存"
	}
	if mkt.HV20 > 0 && mkt.IV30 > 0 {
		t := math.Pow(mkt.HV20/mkt.IV30, cfg.TScaleExponent)
		return clampF(t, cfg.TScaleMin, cfg.TScaleMax), "本地计算"
	}
	return 1.0, "Default"
}

func clampF(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
