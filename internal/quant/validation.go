package quant

import (
	"fmt"
	"math"
	"strings"

	"gexwatch/internal/config"
	"gexwatch/internal/snapshot"
)

// 量价信号常量（抽取端输出）。
const (
	SignalBullishCallBuy = "Bullish_Call_Buy"
	SignalBearishPutBuy  = "Bearish_Put_Buy"
	VegaShort            = "Short_Vega"
	VegaLong             = "Long_Vega"
)

// deriveValidation 验证层：周度摩擦、量价背离否决、Vega 偏好。
func deriveValidation(rec *snapshot.TargetRecord, primaryScenario string, cfg config.QuantConfig) ValidationFlags {
	flags := ValidationFlags{
		WeeklyFrictionState: FrictionClear,
		StrategyBias:        BiasNeutral,
	}

	state, note := weeklyFriction(rec, cfg.FrictionPct)
	flags.WeeklyFrictionState = state
	if state == FrictionObstructed {
		flags.ExecutionGuidance = fmt.Sprintf("%s。建议：等待突破或回踩确认，放弃市价追单。", note)
	} else {
		flags.ExecutionGuidance = "结构通畅，可按计划执行。"
	}

	volSignal := rec.Validation.NetVolumeSignal
	flags.NetVolumeSignal = volSignal

	isBullish := containsAny(primaryScenario, cfg.BullishKeywords)
	isBearish := containsAny(primaryScenario, cfg.BearishKeywords)
	if snapshot.ValidText(volSignal) && volSignal != "Neutral" && volSignal != "Unknown" {
		switch {
		case isBullish && volSignal == SignalBearishPutBuy:
			flags.IsVetoed = true
			flags.VetoReason = "GEX看涨但实时成交量看跌(量价背离)"
		case isBearish && volSignal == SignalBullishCallBuy:
			flags.IsVetoed = true
			flags.VetoReason = "GEX看跌但实时成交量看涨(量价背离)"
		}
	}

	vega := rec.Validation.NetVegaExposure
	flags.NetVegaExposure = vega
	switch vega {
	case VegaShort:
		flags.StrategyBias = BiasCreditFavored
		flags.StrategyBiasReason = "Dealer Short Vega，压制波动"
	case VegaLong:
		flags.StrategyBias = BiasDebitFavored
		flags.StrategyBiasReason = "Dealer Long Vega，放大波动"
	}

	return flags
}

// weeklyFriction 现价距周度 nearby peak 的相对距离小于阈值视为受阻。
func weeklyFriction(rec *snapshot.TargetRecord, frictionPct float64) (string, string) {
	spot := rec.Spot()
	peak := rec.Gamma.NearbyPeak.Price
	if !snapshot.ValidNumber(peak) || spot == 0 {
		return FrictionClear, "无周度结构阻挡"
	}
	distance := math.Abs(spot-*peak) / spot
	if distance < frictionPct {
		return FrictionObstructed, fmt.Sprintf("受周度结构 %.2f 压制 (距离 %.1f%%)", *peak, distance*100)
	}
	return FrictionClear, "周度路径通畅"
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
