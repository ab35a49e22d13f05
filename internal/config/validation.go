package config

import (
	"fmt"
	"math"
	"strings"
)

// validate 对配置进行基础校验。缺失/畸形的阈值在加载期直接失败，
// 不允许在计算内部静默取默认。
func validate(c *Config) error {
	if err := c.MarketState.validate(); err != nil {
		return err
	}
	if err := c.Quant.validate(); err != nil {
		return err
	}
	if err := c.Scoring.validate(); err != nil {
		return err
	}
	if err := c.Drift.validate(); err != nil {
		return err
	}
	if strings.TrimSpace(c.Storage.SnapshotDB) == "" {
		return fmt.Errorf("storage.snapshot_db cannot be empty")
	}
	if c.Inbox.Enabled && strings.TrimSpace(c.Inbox.Dir) == "" {
		return fmt.Errorf("inbox.dir required when inbox.enabled")
	}
	if c.Notify.Telegram.Enabled {
		if strings.TrimSpace(c.Notify.Telegram.BotToken) == "" || strings.TrimSpace(c.Notify.Telegram.ChatID) == "" {
			return fmt.Errorf("notify.telegram requires bot_token and chat_id when enabled")
		}
	}
	return nil
}

var validBuckets = map[string]bool{"weekly": true, "monthly": true, "quarterly": true, "any": true}

func (m *MarketStateConfig) validate() error {
	if m.VRPHigh <= m.VRPLow {
		return fmt.Errorf("market_state.vrp_high must exceed vrp_low")
	}
	if m.IVRHigh <= m.IVRLow {
		return fmt.Errorf("market_state.ivr_high must exceed ivr_low")
	}
	if m.VIXMacro <= m.VIXCalm {
		return fmt.Errorf("market_state.vix_macro must exceed vix_calm")
	}
	for name, rp := range map[string]RegimeParams{
		"macro_panic": m.MacroPanic, "idio_panic": m.IdioPanic,
		"low_vol_grind": m.LowVolGrind, "high_vix_grind": m.HighVixGrind, "normal": m.Normal,
	} {
		if err := rp.validate(); err != nil {
			return fmt.Errorf("market_state.%s: %w", name, err)
		}
	}
	return nil
}

func (r RegimeParams) validate() error {
	if r.Strikes <= 0 || r.Window <= 0 {
		return fmt.Errorf("strikes and window must be > 0")
	}
	if !(r.ShortDays < r.MidDays && r.MidDays < r.LongDays) {
		return fmt.Errorf("horizons must be strictly increasing (short < mid < long)")
	}
	for _, b := range []string{r.ShortBucket, r.MidBucket, r.LongBucket} {
		if !validBuckets[strings.ToLower(b)] {
			return fmt.Errorf("invalid horizon bucket: %q", b)
		}
	}
	return nil
}

func (q *QuantConfig) validate() error {
	if q.EM1Factor <= 0 {
		return fmt.Errorf("quant.em1_factor must be > 0")
	}
	if q.FrictionPct <= 0 || q.FrictionPct >= 1 {
		return fmt.Errorf("quant.friction_pct must be in (0,1)")
	}
	d := q.Duration
	if d.MinDays <= 0 || d.MaxDays <= d.MinDays {
		return fmt.Errorf("quant.duration requires 0 < min_days < max_days")
	}
	if d.TScaleMin <= 0 || d.TScaleMax <= d.TScaleMin {
		return fmt.Errorf("quant.duration requires 0 < t_scale_min < t_scale_max")
	}
	if d.GapHighMin <= d.GapLowMax {
		return fmt.Errorf("quant.duration.gap_high_min must exceed gap_low_max")
	}
	if q.RiskReward.EdgeThreshold <= 0 {
		return fmt.Errorf("quant.risk_reward.edge_threshold must be > 0")
	}
	if err := validateBuckets("credit_buckets", q.RiskReward.CreditBuckets); err != nil {
		return err
	}
	if err := validateBuckets("debit_buckets", q.RiskReward.DebitBuckets); err != nil {
		return err
	}
	w := q.WinProb
	if math.Abs(w.FactorWeight+w.TheoreticalWeight-1) > 1e-9 {
		return fmt.Errorf("quant.win_prob weights must sum to 1")
	}
	for name, band := range map[string]WinProbBand{"credit": w.Credit, "debit": w.Debit} {
		if band.Min <= 0 || band.Max <= band.Min || band.Max > 1 {
			return fmt.Errorf("quant.win_prob.%s requires 0 < min < max <= 1", name)
		}
	}
	if w.ButterflyEstimate <= 0 || w.ButterflyEstimate >= 1 {
		return fmt.Errorf("quant.win_prob.butterfly_estimate must be in (0,1)")
	}
	if len(q.BullishKeywords) == 0 || len(q.BearishKeywords) == 0 {
		return fmt.Errorf("quant keyword lists cannot be empty")
	}
	return nil
}

func validateBuckets(name string, buckets []RatioBucket) error {
	if len(buckets) == 0 {
		return fmt.Errorf("quant.risk_reward.%s cannot be empty", name)
	}
	prev := 0.0
	for i, b := range buckets {
		if b.MaxIVR <= prev {
			return fmt.Errorf("quant.risk_reward.%s must be strictly increasing by max_ivr (entry %d)", name, i)
		}
		if b.Ratio <= 0 || b.Ratio >= 1 {
			return fmt.Errorf("quant.risk_reward.%s ratio must be in (0,1) (entry %d)", name, i)
		}
		prev = b.MaxIVR
	}
	if buckets[len(buckets)-1].MaxIVR < 100 {
		return fmt.Errorf("quant.risk_reward.%s must cover IVR up to 100", name)
	}
	return nil
}

func (s *ScoringConfig) validate() error {
	for name, v := range map[string]float64{
		"base_score": s.BaseScore, "rr_coef": s.RRCoef, "rr_cap": s.RRCap, "pw_coef": s.PwCoef,
		"weekly_resistance_penalty": s.WeeklyResistancePenalty,
		"bias_mismatch_penalty":     s.BiasMismatchPenalty,
	} {
		if v <= 0 {
			return fmt.Errorf("scoring.%s must be > 0", name)
		}
	}
	return nil
}

func (d *DriftConfig) validate() error {
	for name, v := range map[string]float64{
		"wall_shift_pct": d.WallShiftPct, "price_change_min_pct": d.PriceChangeMinPct,
		"dex_divergence": d.DexDivergence, "iv_spike_pct": d.IVSpikePct,
		"wall_decay_pct": d.WallDecayPct, "spot_divergence_pct": d.SpotDivergencePct,
		"term_flattening_slope": d.TermFlatteningSlope,
	} {
		if v <= 0 {
			return fmt.Errorf("drift.%s must be > 0", name)
		}
	}
	if d.IVInversionRatio <= 1 {
		return fmt.Errorf("drift.iv_inversion_ratio must be > 1")
	}
	return nil
}
