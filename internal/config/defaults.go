package config

import "strings"

// 默认值常量
const (
	defaultAppEnv      = "dev"
	defaultAppLogLevel = "info"
	defaultAppHTTPAddr = ":9992"
	defaultAppLogPath  = ""

	defaultSnapshotDB  = "data/gexwatch/snapshots.db"
	defaultDriftLogDB  = "data/gexwatch/drift_log.db"
	defaultHistoryKeep = 30

	defaultEM1Factor   = 0.0524 // ≈ sqrt(1/365)，单日 1σ 折算
	defaultFrictionPct = 0.01

	defaultEdgeThreshold = 1.8

	defaultCatalogPath = "configs/strategies.yaml"
	defaultInboxDir    = "data/inbox"
)

// applyDefaults 为所有子配置应用默认值。
func (c *Config) applyDefaults(keys keySet) {
	c.App.applyDefaults(keys)
	c.Storage.applyDefaults(keys)
	c.MarketState.applyDefaults(keys)
	c.Quant.applyDefaults(keys)
	c.Scoring.applyDefaults(keys)
	c.Drift.applyDefaults(keys)
	c.Catalog.applyDefaults(keys)
	c.Inbox.applyDefaults(keys)
}

func (a *AppConfig) applyDefaults(keys keySet) {
	if a == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("app.env", &a.Env, defaultAppEnv),
		stringFieldDefault("app.log_level", &a.LogLevel, defaultAppLogLevel),
		stringFieldDefault("app.http_addr", &a.HTTPAddr, defaultAppHTTPAddr),
		stringFieldDefault("app.log_path", &a.LogPath, defaultAppLogPath),
	)
}

func (s *StorageConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("storage.snapshot_db", &s.SnapshotDB, defaultSnapshotDB),
		stringFieldDefault("storage.drift_log_db", &s.DriftLogDB, defaultDriftLogDB),
		fieldDefault{
			key:   "storage.history_keep",
			need:  func() bool { return s.HistoryKeep <= 0 },
			apply: func() { s.HistoryKeep = defaultHistoryKeep },
		},
	)
}

func (m *MarketStateConfig) applyDefaults(keys keySet) {
	if m == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("market_state.vrp_high", &m.VRPHigh, 1.15),
		floatFieldDefault("market_state.ivr_high", &m.IVRHigh, 80),
		floatFieldDefault("market_state.vix_macro", &m.VIXMacro, 25),
		floatFieldDefault("market_state.vrp_low", &m.VRPLow, 0.9),
		floatFieldDefault("market_state.ivr_low", &m.IVRLow, 30),
		floatFieldDefault("market_state.vix_calm", &m.VIXCalm, 15),
	)
	// 场景参数表：源自 Alpha-Beta 矩阵的抓取参数。
	m.MacroPanic.applyDefaults(RegimeParams{
		Strikes: 50, ShortDays: 3, ShortBucket: "weekly", MidDays: 7, MidBucket: "weekly",
		LongDays: 14, LongBucket: "weekly", Window: 20,
	})
	m.IdioPanic.applyDefaults(RegimeParams{
		Strikes: 45, ShortDays: 7, ShortBucket: "weekly", MidDays: 14, MidBucket: "weekly",
		LongDays: 30, LongBucket: "weekly", Window: 45,
	})
	m.LowVolGrind.applyDefaults(RegimeParams{
		Strikes: 25, ShortDays: 30, ShortBucket: "weekly", MidDays: 60, MidBucket: "monthly",
		LongDays: 90, LongBucket: "monthly", Window: 90,
	})
	m.HighVixGrind.applyDefaults(RegimeParams{
		Strikes: 35, ShortDays: 21, ShortBucket: "weekly", MidDays: 45, MidBucket: "weekly",
		LongDays: 60, LongBucket: "monthly", Window: 60,
	})
	m.Normal.applyDefaults(RegimeParams{
		Strikes: 30, ShortDays: 14, ShortBucket: "weekly", MidDays: 30, MidBucket: "weekly",
		LongDays: 60, LongBucket: "monthly", Window: 60,
	})
}

func (r *RegimeParams) applyDefaults(def RegimeParams) {
	if r.Strikes <= 0 {
		r.Strikes = def.Strikes
	}
	if r.ShortDays <= 0 {
		r.ShortDays = def.ShortDays
	}
	if strings.TrimSpace(r.ShortBucket) == "" {
		r.ShortBucket = def.ShortBucket
	}
	if r.MidDays <= 0 {
		r.MidDays = def.MidDays
	}
	if strings.TrimSpace(r.MidBucket) == "" {
		r.MidBucket = def.MidBucket
	}
	if r.LongDays <= 0 {
		r.LongDays = def.LongDays
	}
	if strings.TrimSpace(r.LongBucket) == "" {
		r.LongBucket = def.LongBucket
	}
	if r.Window <= 0 {
		r.Window = def.Window
	}
}

func (q *QuantConfig) applyDefaults(keys keySet) {
	if q == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("quant.em1_factor", &q.EM1Factor, defaultEM1Factor),
		floatFieldDefault("quant.friction_pct", &q.FrictionPct, defaultFrictionPct),
		floatFieldDefault("quant.strikes.conservative_long_offset", &q.Strikes.ConservativeLongOffset, 1.5),
		floatFieldDefault("quant.strikes.balanced_wing_offset", &q.Strikes.BalancedWingOffset, 1.0),
		floatFieldDefault("quant.strikes.aggressive_long_offset", &q.Strikes.AggressiveLongOffset, 0.2),

		floatFieldDefault("quant.duration.base_days", &q.Duration.BaseDays, 21),
		floatFieldDefault("quant.duration.gap_low_max", &q.Duration.GapLowMax, 1.0),
		floatFieldDefault("quant.duration.gap_high_min", &q.Duration.GapHighMin, 3.0),
		floatFieldDefault("quant.duration.gap_low_mult", &q.Duration.GapLowMult, 0.8),
		floatFieldDefault("quant.duration.gap_mid_mult", &q.Duration.GapMidMult, 1.0),
		floatFieldDefault("quant.duration.gap_high_mult", &q.Duration.GapHighMult, 1.2),
		floatFieldDefault("quant.duration.monthly_floor_days", &q.Duration.MonthlyFloorDays, 25),
		floatFieldDefault("quant.duration.t_scale_exponent", &q.Duration.TScaleExponent, 0.8),
		floatFieldDefault("quant.duration.t_scale_min", &q.Duration.TScaleMin, 0.5),
		floatFieldDefault("quant.duration.t_scale_max", &q.Duration.TScaleMax, 2.0),
		fieldDefault{
			key:   "quant.duration.min_days",
			need:  func() bool { return q.Duration.MinDays <= 0 },
			apply: func() { q.Duration.MinDays = 5 },
		},
		fieldDefault{
			key:   "quant.duration.max_days",
			need:  func() bool { return q.Duration.MaxDays <= 0 },
			apply: func() { q.Duration.MaxDays = 45 },
		},

		floatFieldDefault("quant.risk_reward.edge_threshold", &q.RiskReward.EdgeThreshold, defaultEdgeThreshold),

		floatFieldDefault("quant.win_prob.factor_weight", &q.WinProb.FactorWeight, 0.7),
		floatFieldDefault("quant.win_prob.theoretical_weight", &q.WinProb.TheoreticalWeight, 0.3),
		floatFieldDefault("quant.win_prob.butterfly_estimate", &q.WinProb.ButterflyEstimate, 0.55),
	)
	if len(q.RiskReward.CreditBuckets) == 0 {
		q.RiskReward.CreditBuckets = []RatioBucket{
			{MaxIVR: 25, Ratio: 0.225},
			{MaxIVR: 50, Ratio: 0.275},
			{MaxIVR: 75, Ratio: 0.325},
			{MaxIVR: 100, Ratio: 0.375},
		}
	}
	// 低 IVR 档成本占比 0.35，盈亏比约 1.86，可过 edge 线
	if len(q.RiskReward.DebitBuckets) == 0 {
		q.RiskReward.DebitBuckets = []RatioBucket{
			{MaxIVR: 33, Ratio: 0.35},
			{MaxIVR: 66, Ratio: 0.40},
			{MaxIVR: 100, Ratio: 0.45},
		}
	}
	q.WinProb.Credit.applyDefaults(WinProbBand{
		Base: 0.62, ClusterCoef: 0.04, DistancePenaltyCoef: 0.03, TechCoef: 0.01,
		Min: 0.50, Max: 0.80, Theoretical: 0.65,
	})
	q.WinProb.Debit.applyDefaults(WinProbBand{
		Base: 0.42, ClusterCoef: 0, DistancePenaltyCoef: 0, TechCoef: 0.015,
		Min: 0.30, Max: 0.55, Theoretical: 0.45,
	})
	if len(q.BullishKeywords) == 0 {
		q.BullishKeywords = []string{"上行", "突破", "看涨", "bullish", "Bullish"}
	}
	if len(q.BearishKeywords) == 0 {
		q.BearishKeywords = []string{"下行", "跌破", "看跌", "bearish", "Bearish"}
	}
}

func (b *WinProbBand) applyDefaults(def WinProbBand) {
	if b.Base <= 0 {
		b.Base = def.Base
	}
	if b.ClusterCoef == 0 {
		b.ClusterCoef = def.ClusterCoef
	}
	if b.DistancePenaltyCoef == 0 {
		b.DistancePenaltyCoef = def.DistancePenaltyCoef
	}
	if b.TechCoef == 0 {
		b.TechCoef = def.TechCoef
	}
	if b.Min <= 0 {
		b.Min = def.Min
	}
	if b.Max <= 0 {
		b.Max = def.Max
	}
	if b.Theoretical <= 0 {
		b.Theoretical = def.Theoretical
	}
}

func (s *ScoringConfig) applyDefaults(keys keySet) {
	if s == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("scoring.base_score", &s.BaseScore, 50),
		floatFieldDefault("scoring.rr_coef", &s.RRCoef, 10),
		floatFieldDefault("scoring.rr_cap", &s.RRCap, 30),
		floatFieldDefault("scoring.pw_coef", &s.PwCoef, 0.5),
		floatFieldDefault("scoring.weekly_resistance_penalty", &s.WeeklyResistancePenalty, 20),
		floatFieldDefault("scoring.bias_mismatch_penalty", &s.BiasMismatchPenalty, 15),
		floatFieldDefault("scoring.quality_high_bonus", &s.QualityHighBonus, 15),
		floatFieldDefault("scoring.quality_medium_bonus", &s.QualityMediumBonus, 0),
		floatFieldDefault("scoring.quality_low_penalty", &s.QualityLowPenalty, 30),
		floatFieldDefault("scoring.flow_aligned_bonus", &s.FlowAlignedBonus, 10),
	)
}

func (d *DriftConfig) applyDefaults(keys keySet) {
	if d == nil {
		return
	}
	applyFieldDefaults(keys,
		floatFieldDefault("drift.wall_shift_pct", &d.WallShiftPct, 0.01),
		floatFieldDefault("drift.price_change_min_pct", &d.PriceChangeMinPct, 0.005),
		floatFieldDefault("drift.dex_divergence", &d.DexDivergence, 0.05),
		floatFieldDefault("drift.iv_spike_pct", &d.IVSpikePct, 0.10),
		floatFieldDefault("drift.iv_inversion_ratio", &d.IVInversionRatio, 1.05),
		floatFieldDefault("drift.wall_decay_pct", &d.WallDecayPct, 0.20),
		floatFieldDefault("drift.spot_divergence_pct", &d.SpotDivergencePct, 0.02),
		floatFieldDefault("drift.term_flattening_slope", &d.TermFlatteningSlope, 0.5),
	)
}

func (c *CatalogConfig) applyDefaults(keys keySet) {
	if c == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("catalog.path", &c.Path, defaultCatalogPath),
	)
}

func (i *InboxConfig) applyDefaults(keys keySet) {
	if i == nil {
		return
	}
	applyFieldDefaults(keys,
		stringFieldDefault("inbox.dir", &i.Dir, defaultInboxDir),
	)
}

// Helper functions

func applyFieldDefaults(keys keySet, defs ...fieldDefault) {
	for _, def := range defs {
		if def.apply == nil {
			continue
		}
		if def.key != "" && keys.isSet(def.key) {
			continue
		}
		if def.need != nil && !def.need() {
			continue
		}
		def.apply()
	}
}

func stringFieldDefault(key string, target *string, def string) fieldDefault {
	return fieldDefault{
		key: key,
		need: func() bool {
			return target != nil && strings.TrimSpace(*target) == ""
		},
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}

func floatFieldDefault(key string, target *float64, def float64) fieldDefault {
	return fieldDefault{
		key:  key,
		need: func() bool { return target != nil && *target == 0 },
		apply: func() {
			if target != nil {
				*target = def
			}
		},
	}
}
