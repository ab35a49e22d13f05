package quant

import (
	"gexwatch/internal/config"
	"gexwatch/internal/snapshot"

	"github.com/shopspring/decimal"
)

// 墙位缺失时的兜底系数。
const (
	fallbackCallWallMult = 1.05
	fallbackPutWallMult  = 0.95
)

// buildStrikeLadder 按 wall ± offset × EM1 展开各结构模板的行权价。
// 价格用 decimal 归整到美分，避免二进制浮点的尾差进报告。
func buildStrikeLadder(rec *snapshot.TargetRecord, spot, em1 float64, cfg config.StrikesConfig) *StrikeLadder {
	callWall := wallOr(rec.Walls.CallWall, spot*fallbackCallWallMult)
	putWall := wallOr(rec.Walls.PutWall, spot*fallbackPutWallMult)

	cons := cfg.ConservativeLongOffset
	agg := cfg.AggressiveLongOffset

	condorWidth := cents(cons * em1)
	return &StrikeLadder{
		IronCondor: IronCondorStrikes{
			ShortCall: cents(callWall),
			LongCall:  cents(callWall + cons*em1),
			ShortPut:  cents(putWall),
			LongPut:   cents(putWall - cons*em1),
			WidthCall: condorWidth,
			WidthPut:  condorWidth,
		},
		BullCallSpread: VerticalStrikes{
			Long:  cents(spot + agg*em1),
			Short: cents(callWall),
			Width: cents(callWall - (spot + agg*em1)),
		},
		BearPutSpread: VerticalStrikes{
			Long:  cents(spot - agg*em1),
			Short: cents(putWall),
			Width: cents((spot - agg*em1) - putWall),
		},
		LongCall: SingleStrike{Strike: cents(spot + agg*em1)},
		LongPut:  SingleStrike{Strike: cents(spot - agg*em1)},
	}
}

func wallOr(wall *float64, fallback float64) float64 {
	if snapshot.ValidNumber(wall) && *wall > 0 {
		return *wall
	}
	return fallback
}

func cents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
