package marketstate

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gexwatch/internal/config"
)

// ErrDivisionUndefined 表示 hv20 <= 0，VRP 无法计算。调用方必须先校验 hv20。
var ErrDivisionUndefined = errors.New("hv20 must be positive to compute vrp")

// Regime 市场状态分类。
type Regime string

const (
	RegimeSqueezePanic Regime = "Squeeze/Panic"
	RegimeGrindLowVol  Regime = "Grind/Low Vol"
	RegimeGrindHighVix Regime = "Grind/High VIX"
	RegimeNormalTrend  Regime = "Normal/Trend"
)

// Bucket 到期周期的分辨率档位。
type Bucket string

const (
	BucketWeekly    Bucket = "weekly"
	BucketMonthly   Bucket = "monthly"
	BucketQuarterly Bucket = "quarterly"
	BucketAny       Bucket = "any"
)

// Horizon 一个扫描期限：天数 + 到期档位。
type Horizon struct {
	Days   int    `json:"days"`
	Bucket Bucket `json:"bucket"`
}

// Inputs 四维市场输入。
type Inputs struct {
	VIX  float64 `json:"vix"`
	IVR  float64 `json:"ivr"`
	IV30 float64 `json:"iv30"`
	HV20 float64 `json:"hv20"`
}

// TermStructure 期限结构对期限的偏置（1.0 = 不调整）。
type TermStructure struct {
	Label string  `json:"label,omitempty"`
	Short float64 `json:"short"`
	Mid   float64 `json:"mid"`
	Long  float64 `json:"long"`
}

// Params 派生出的扫描参数，单次请求内有效，不落盘。
type Params struct {
	StrikeCount int     `json:"strike_count"`
	Short       Horizon `json:"horizon_short"`
	Mid         Horizon `json:"horizon_mid"`
	Long        Horizon `json:"horizon_long"`
	ScanWindow  int     `json:"scan_window"`
	Regime      Regime  `json:"regime"`
	// Branch 是命中的具体分支（macro/idio 之分），仅用于日志。
	Branch string  `json:"branch"`
	VRP    float64 `json:"vrp"`
}

const (
	termBiasScale  = 0.3
	termBiasMin    = 0.5
	termBiasMax    = 1.5
	horizonDaysMin = 3
	horizonDaysMax = 365
	scanWindowMin  = 10
	scanWindowMax  = 120
)

// Derive 把 VIX/IVR/IV30/HV20 映射为扫描参数包。分支为有序判定，首个命中生效。
// 唯一的失败模式是 hv20 <= 0；其余取值范围由调用方用 ValidateInputs 把关。
func Derive(in Inputs, ts *TermStructure, cfg config.MarketStateConfig) (Params, error) {
	if in.HV20 <= 0 {
		return Params{}, fmt.Errorf("%w: hv20=%v", ErrDivisionUndefined, in.HV20)
	}
	vrp := in.IV30 / in.HV20

	var (
		regime Regime
		branch string
		rp     config.RegimeParams
	)
	switch {
	case (vrp > cfg.VRPHigh || in.IVR > cfg.IVRHigh) && in.VIX > cfg.VIXMacro:
		// 双高 + 大盘恐慌：只看眼前，最短期限。
		regime, branch, rp = RegimeSqueezePanic, "macro", cfg.MacroPanic
	case vrp > cfg.VRPHigh || in.IVR > cfg.IVRHigh:
		// 个股独角戏：大盘稳，关注稍长的爆发期。
		regime, branch, rp = RegimeSqueezePanic, "idio", cfg.IdioPanic
	case (vrp < cfg.VRPLow || in.IVR < cfg.IVRLow) && in.VIX < cfg.VIXCalm:
		// 死鱼行情：需极长期限才能看到结构。
		regime, branch, rp = RegimeGrindLowVol, "low_vol", cfg.LowVolGrind
	case vrp < cfg.VRPLow || in.IVR < cfg.IVRLow:
		// 背离：大盘恐慌个股抗跌。
		regime, branch, rp = RegimeGrindHighVix, "high_vix", cfg.HighVixGrind
	default:
		regime, branch, rp = RegimeNormalTrend, "normal", cfg.Normal
	}

	p := Params{
		StrikeCount: rp.Strikes,
		Short:       Horizon{Days: rp.ShortDays, Bucket: parseBucket(rp.ShortBucket)},
		Mid:         Horizon{Days: rp.MidDays, Bucket: parseBucket(rp.MidBucket)},
		Long:        Horizon{Days: rp.LongDays, Bucket: parseBucket(rp.LongBucket)},
		ScanWindow:  rp.Window,
		Regime:      regime,
		Branch:      branch,
		VRP:         vrp,
	}
	if ts != nil {
		applyTermBias(&p, ts)
	}
	return p, nil
}

// ValidateInputs 对宏观输入做取值范围检查，入口层在派生前调用。
func ValidateInputs(in Inputs) error {
	if in.HV20 <= 0 {
		return fmt.Errorf("%w: hv20=%v", ErrDivisionUndefined, in.HV20)
	}
	if in.IVR < 0 || in.IVR > 100 {
		return fmt.Errorf("ivr 必须在 0-100 之间，当前值: %v", in.IVR)
	}
	if in.VIX < 0 {
		return fmt.Errorf("vix 必须为非负数，当前值: %v", in.VIX)
	}
	if in.IV30 < 0 {
		return fmt.Errorf("iv30 必须为非负数，当前值: %v", in.IV30)
	}
	return nil
}

func applyTermBias(p *Params, ts *TermStructure) {
	bShort := biasOrNeutral(ts.Short)
	bMid := biasOrNeutral(ts.Mid)
	bLong := biasOrNeutral(ts.Long)

	p.Short.Days = scaleDays(p.Short.Days, bShort)
	p.Mid.Days = scaleDays(p.Mid.Days, bMid)
	p.Long.Days = scaleDays(p.Long.Days, bLong)

	avg := (bShort + bMid + bLong) / 3.0
	factor := clamp(1.0+termBiasScale*(avg-1.0), termBiasMin, termBiasMax)
	p.ScanWindow = clampInt(int(math.Round(float64(p.ScanWindow)*factor)), scanWindowMin, scanWindowMax)
}

func scaleDays(days int, bias float64) int {
	factor := clamp(1.0+termBiasScale*(bias-1.0), termBiasMin, termBiasMax)
	return clampInt(int(math.Round(float64(days)*factor)), horizonDaysMin, horizonDaysMax)
}

func biasOrNeutral(v float64) float64 {
	if v <= 0 {
		return 1.0
	}
	return v
}

func parseBucket(s string) Bucket {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "weekly":
		return BucketWeekly
	case "monthly":
		return BucketMonthly
	case "quarterly":
		return BucketQuarterly
	default:
		return BucketAny
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
