package technical

import (
	"fmt"
	"math"

	talib "github.com/markcheno/go-talib"
)

// 中文说明：
// 技术面打分。从日线收盘序列算 RSI / MACD / 布林带三个子信号，
// 归一成 0-2 的 ta_score 供决策引擎调权；另提供 HV20 历史波动率。

const (
	rsiPeriod    = 14
	bbPeriod     = 20
	macdFast     = 12
	macdSlow     = 26
	macdSignal   = 9
	hvPeriod     = 20
	tradingDays  = 252
	minBars      = macdSlow + macdSignal // MACD 需要的最短序列
)

// Result 技术面快照。Score ∈ [0,2]，1 为中性。
type Result struct {
	Score      float64 `json:"ta_score"`
	RSI        float64 `json:"rsi"`
	MACDHist   float64 `json:"macd_hist"`
	BBPosition float64 `json:"bb_position"` // 收盘在布林带内的相对位置 [0,1]
	Commentary string  `json:"ta_commentary"`
}

// Score 基于收盘序列计算技术面得分。
// 三个子信号各投 ±1 票：RSI 在 50 上方、MACD 柱为正、价格在带宽上半区。
// 得分 = 1 + 票数/3，落在 [0,2]。
func Score(closes []float64) (Result, error) {
	if len(closes) < minBars {
		return Result{}, fmt.Errorf("收盘序列过短: 需要至少 %d 根，收到 %d", minBars, len(closes))
	}

	rsi := last(talib.Rsi(closes, rsiPeriod))
	_, _, hist := talib.Macd(closes, macdFast, macdSlow, macdSignal)
	macdHist := last(hist)
	upper, _, lower := talib.BBands(closes, bbPeriod, 2.0, 2.0, talib.SMA)

	lastClose := closes[len(closes)-1]
	bbPos := 0.5
	if band := last(upper) - last(lower); band > 0 {
		bbPos = clamp01((lastClose - last(lower)) / band)
	}

	votes := 0
	if rsi > 50 {
		votes++
	} else {
		votes--
	}
	if macdHist > 0 {
		votes++
	} else {
		votes--
	}
	if bbPos > 0.5 {
		votes++
	} else {
		votes--
	}

	res := Result{
		Score:      math.Round((1+float64(votes)/3)*100) / 100,
		RSI:        math.Round(rsi*100) / 100,
		MACDHist:   macdHist,
		BBPosition: math.Round(bbPos*1000) / 1000,
	}
	switch {
	case votes >= 2:
		res.Commentary = "多头排列，技术面顺风"
	case votes <= -2:
		res.Commentary = "空头排列，技术面逆风"
	default:
		res.Commentary = "信号分歧，技术面中性"
	}
	return res, nil
}

// HV20 由收盘序列计算 20 日年化历史波动率（百分数）。
func HV20(closes []float64) (float64, error) {
	if len(closes) < hvPeriod+1 {
		return 0, fmt.Errorf("收盘序列过短: HV%d 需要至少 %d 根", hvPeriod, hvPeriod+1)
	}
	rets := make([]float64, 0, len(closes)-1)
	for i := 1; i < len(closes); i++ {
		if closes[i-1] <= 0 || closes[i] <= 0 {
			return 0, fmt.Errorf("收盘价必须为正")
		}
		rets = append(rets, math.Log(closes[i]/closes[i-1]))
	}
	sd := last(talib.StdDev(rets, hvPeriod, 1.0))
	return sd * math.Sqrt(tradingDays) * 100, nil
}

func last(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	return vals[len(vals)-1]
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
