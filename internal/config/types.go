package config

import "strings"

// Config 是 gexwatch 的主配置载体。
// 所有阈值与常量集中在这里一次性加载、校验，组件只接收不取默认。
type Config struct {
	App         AppConfig         `toml:"app"`
	Storage     StorageConfig     `toml:"storage"`
	MarketState MarketStateConfig `toml:"market_state"`
	Quant       QuantConfig       `toml:"quant"`
	Scoring     ScoringConfig     `toml:"scoring"`
	Drift       DriftConfig       `toml:"drift"`
	Catalog     CatalogConfig     `toml:"catalog"`
	Inbox       InboxConfig       `toml:"inbox"`
	Notify      NotifyConfig      `toml:"notify"`
}

type AppConfig struct {
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	HTTPAddr string `toml:"http_addr"`
	LogPath  string `toml:"log_path"`
}

type StorageConfig struct {
	SnapshotDB  string `toml:"snapshot_db"`
	DriftLogDB  string `toml:"drift_log_db"`
	HistoryKeep int    `toml:"history_keep"` // 确认快照滚动保留条数
}

// MarketStateConfig 市场状态解算：分类阈值 + 每个场景的抓取参数表。
type MarketStateConfig struct {
	VRPHigh  float64 `toml:"vrp_high"`
	IVRHigh  float64 `toml:"ivr_high"`
	VIXMacro float64 `toml:"vix_macro"`
	VRPLow   float64 `toml:"vrp_low"`
	IVRLow   float64 `toml:"ivr_low"`
	VIXCalm  float64 `toml:"vix_calm"`

	MacroPanic   RegimeParams `toml:"macro_panic"`
	IdioPanic    RegimeParams `toml:"idio_panic"`
	LowVolGrind  RegimeParams `toml:"low_vol_grind"`
	HighVixGrind RegimeParams `toml:"high_vix_grind"`
	Normal       RegimeParams `toml:"normal"`
}

// RegimeParams 单个市场场景下的扫描参数。bucket 取值 weekly/monthly/quarterly/any。
type RegimeParams struct {
	Strikes     int    `toml:"strikes"`
	ShortDays   int    `toml:"short_days"`
	ShortBucket string `toml:"short_bucket"`
	MidDays     int    `toml:"mid_days"`
	MidBucket   string `toml:"mid_bucket"`
	LongDays    int    `toml:"long_days"`
	LongBucket  string `toml:"long_bucket"`
	Window      int    `toml:"window"`
}

// QuantConfig 策略计算引擎的全部常量。
type QuantConfig struct {
	EM1Factor       float64        `toml:"em1_factor"`   // EM1$ = spot × minIV/100 × factor
	FrictionPct     float64        `toml:"friction_pct"` // 周度摩擦判定距离
	Strikes         StrikesConfig  `toml:"strikes"`
	Duration        DurationConfig `toml:"duration"`
	RiskReward      RRConfig       `toml:"risk_reward"`
	WinProb         WinProbConfig  `toml:"win_prob"`
	BullishKeywords []string       `toml:"bullish_keywords"`
	BearishKeywords []string       `toml:"bearish_keywords"`
}

type StrikesConfig struct {
	ConservativeLongOffset float64 `toml:"conservative_long_offset"`
	BalancedWingOffset     float64 `toml:"balanced_wing_offset"`
	AggressiveLongOffset   float64 `toml:"aggressive_long_offset"`
}

type DurationConfig struct {
	BaseDays         float64 `toml:"base_days"`
	GapLowMax        float64 `toml:"gap_low_max"`  // gap/EM1 < 此值 → 低档
	GapHighMin       float64 `toml:"gap_high_min"` // gap/EM1 > 此值 → 高档
	GapLowMult       float64 `toml:"gap_low_mult"`
	GapMidMult       float64 `toml:"gap_mid_mult"`
	GapHighMult      float64 `toml:"gap_high_mult"`
	MonthlyFloorDays float64 `toml:"monthly_floor_days"`
	MinDays          int     `toml:"min_days"`
	MaxDays          int     `toml:"max_days"`
	TScaleExponent   float64 `toml:"t_scale_exponent"`
	TScaleMin        float64 `toml:"t_scale_min"`
	TScaleMax        float64 `toml:"t_scale_max"`
}

// RatioBucket IVR 分桶：ivr < MaxIVR 时命中。桶表按 MaxIVR 升序排列。
type RatioBucket struct {
	MaxIVR float64 `toml:"max_ivr"`
	Ratio  float64 `toml:"ratio"`
}

type RRConfig struct {
	EdgeThreshold float64       `toml:"edge_threshold"`
	CreditBuckets []RatioBucket `toml:"credit_buckets"`
	DebitBuckets  []RatioBucket `toml:"debit_buckets"`
}

type WinProbConfig struct {
	FactorWeight      float64     `toml:"factor_weight"`
	TheoreticalWeight float64     `toml:"theoretical_weight"`
	Credit            WinProbBand `toml:"credit"`
	Debit             WinProbBand `toml:"debit"`
	ButterflyEstimate float64     `toml:"butterfly_estimate"`
}

// WinProbBand 单个结构族的胜率参数：线性因子模型 + 理论基准常量。
// Theoretical 是占位常量（未接入触达概率模型），不要赋予其模型含义。
type WinProbBand struct {
	Base                float64 `toml:"base"`
	ClusterCoef         float64 `toml:"cluster_coef"`
	DistancePenaltyCoef float64 `toml:"distance_penalty_coef"`
	TechCoef            float64 `toml:"tech_coef"`
	Min                 float64 `toml:"min"`
	Max                 float64 `toml:"max"`
	Theoretical         float64 `toml:"theoretical"`
}

// ScoringConfig 策略排名打分常量。
type ScoringConfig struct {
	BaseScore               float64 `toml:"base_score"`
	RRCoef                  float64 `toml:"rr_coef"`
	RRCap                   float64 `toml:"rr_cap"`
	PwCoef                  float64 `toml:"pw_coef"`
	WeeklyResistancePenalty float64 `toml:"weekly_resistance_penalty"`
	BiasMismatchPenalty     float64 `toml:"bias_mismatch_penalty"`
	QualityHighBonus        float64 `toml:"quality_high_bonus"`
	QualityMediumBonus      float64 `toml:"quality_medium_bonus"`
	QualityLowPenalty       float64 `toml:"quality_low_penalty"`
	FlowAlignedBonus        float64 `toml:"flow_aligned_bonus"`
}

// DriftConfig 结构漂移监控阈值。
type DriftConfig struct {
	WallShiftPct        float64 `toml:"wall_shift_pct"`
	PriceChangeMinPct   float64 `toml:"price_change_min_pct"`
	DexDivergence       float64 `toml:"dex_divergence"`
	IVSpikePct          float64 `toml:"iv_spike_pct"`
	IVInversionRatio    float64 `toml:"iv_inversion_ratio"`
	WallDecayPct        float64 `toml:"wall_decay_pct"`
	SpotDivergencePct   float64 `toml:"spot_divergence_pct"`
	TermFlatteningSlope float64 `toml:"term_flattening_slope"`
}

type CatalogConfig struct {
	Path string `toml:"path"`
}

type InboxConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

type NotifyConfig struct {
	Telegram TelegramConfig `toml:"telegram"`
}

type TelegramConfig struct {
	Enabled  bool   `toml:"enabled"`
	BotToken string `toml:"bot_token"`
	ChatID   string `toml:"chat_id"`
}

// keySet 用于追踪配置文件中显式设置的字段路径。
type keySet map[string]struct{}

func (k keySet) mark(path string) {
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return
	}
	k[path] = struct{}{}
}

func (k keySet) isSet(path string) bool {
	if len(k) == 0 {
		return false
	}
	path = strings.ToLower(strings.TrimSpace(path))
	if path == "" {
		return false
	}
	_, ok := k[path]
	return ok
}

// fieldDefault 描述单个字段的默认值设置规则。
type fieldDefault struct {
	key   string
	need  func() bool
	apply func()
}
