package quant

import (
	"math"

	"gexwatch/internal/snapshot"
)

// EM1Dollar 近端 IV 隐含的 1σ 美元波动：spot × min(iv_7d, iv_14d)/100 × factor。
// 任一输入缺失时返回 0，由调用方按前置条件处理。
func EM1Dollar(rec *snapshot.TargetRecord, factor float64) float64 {
	spot := rec.Spot()
	if spot <= 0 || factor <= 0 {
		return 0
	}
	iv := nearTermIV(rec)
	if iv <= 0 {
		return 0
	}
	return spot * (iv / 100.0) * factor
}

func nearTermIV(rec *snapshot.TargetRecord) float64 {
	iv7, iv14 := 0.0, 0.0
	if snapshot.ValidNumber(rec.ATMIV.IV7D) {
		iv7 = *rec.ATMIV.IV7D
	}
	if snapshot.ValidNumber(rec.ATMIV.IV14D) {
		iv14 = *rec.ATMIV.IV14D
	}
	switch {
	case iv7 > 0 && iv14 > 0:
		return math.Min(iv7, iv14)
	case iv7 > 0:
		return iv7
	default:
		return iv14
	}
}
