package quant

import (
	"fmt"
	"math"

	"gexwatch/internal/config"

	"github.com/shopspring/decimal"
)

// ratioForIVR IVR 分桶查表。未命中时显式失败，禁止静默默认。
func ratioForIVR(buckets []config.RatioBucket, ivr float64, table string) (float64, error) {
	if len(buckets) == 0 {
		return 0, fmt.Errorf("%w: %s 分桶表为空", ErrUnmappedConfig, table)
	}
	if ivr < 0 {
		return 0, fmt.Errorf("%w: %s ivr=%v 低于 0", ErrUnmappedConfig, table, ivr)
	}
	for _, b := range buckets {
		if ivr < b.MaxIVR {
			return b.Ratio, nil
		}
	}
	// 上边界含入最后一桶（ivr=100 合法）。
	if last := buckets[len(buckets)-1]; ivr == last.MaxIVR {
		return last.Ratio, nil
	}
	return 0, fmt.Errorf("%w: %s ivr=%v 超出分桶上限", ErrUnmappedConfig, table, ivr)
}

// creditRR 信用价差：credit = width × ratio(ivr)，风险 = width − credit。
// Credit 结构几乎达不到 edge 阈值，MeetsEdge 恒按比值判定。
func creditRR(width, ivr float64, cfg config.RRConfig) (RiskReward, error) {
	ratio, err := ratioForIVR(cfg.CreditBuckets, ivr, "credit_buckets")
	if err != nil {
		return RiskReward{}, err
	}
	credit := width * ratio
	risk := width - credit
	rValue := 0.0
	if risk > 0 {
		rValue = credit / risk
	}
	ratioStr := "N/A"
	if rValue > 0 {
		ratioStr = fmt.Sprintf("1:%.1f", 1/rValue)
	}
	return RiskReward{
		Width:     cents(width),
		IVR:       ivr,
		Cost:      -cents(credit),
		MaxProfit: cents(credit),
		MaxLoss:   cents(risk),
		Ratio:     round2(rValue),
		RatioStr:  ratioStr,
		MeetsEdge: rValue >= cfg.EdgeThreshold,
		Formula:   "Est Credit",
	}, nil
}

// debitRR 借贷价差：debit = width × ratio(ivr)，利润 = width − debit。
// meets_edge 用 >=：边界值恰好等于阈值时视为达标。
func debitRR(width, ivr float64, cfg config.RRConfig) (RiskReward, error) {
	ratio, err := ratioForIVR(cfg.DebitBuckets, ivr, "debit_buckets")
	if err != nil {
		return RiskReward{}, err
	}
	debit := width * ratio
	profit := width - debit
	rValue := 0.0
	if debit > 0 {
		rValue = profit / debit
	}
	return RiskReward{
		Width:     cents(width),
		IVR:       ivr,
		Cost:      cents(debit),
		MaxProfit: cents(profit),
		MaxLoss:   cents(debit),
		Ratio:     round2(rValue),
		RatioStr:  fmt.Sprintf("%.1f:1", rValue),
		MeetsEdge: rValue >= cfg.EdgeThreshold,
		Formula:   "Est Cost",
	}, nil
}

func round2(v float64) float64 {
	d := decimal.NewFromFloat(v).Round(2)
	f, _ := d.Float64()
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
