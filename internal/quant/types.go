package quant

// TradeStatus 引擎输出的终态。VETOED 是成功的终止态，不是错误。
const (
	StatusActive = "ACTIVE"
	StatusVetoed = "VETOED"
)

// 周度摩擦状态。
const (
	FrictionClear      = "Clear"
	FrictionObstructed = "Obstructed"
)

// 策略偏好。
const (
	BiasNeutral       = "Neutral"
	BiasCreditFavored = "Credit_Favored"
	BiasDebitFavored  = "Debit_Favored"
)

// Scenario 外部情景分类。引擎只对 PrimaryScenario 做关键词匹配，
// Probability 仅透传进 meta。
type Scenario struct {
	PrimaryScenario string `json:"primary_scenario"`
	Probability     int    `json:"scenario_probability"`
}

// MarketContext 上游派生的波动率环境。TScale 为上游缓存，nil 时本地计算。
type MarketContext struct {
	IVR          float64  `json:"ivr"`
	IV30         float64  `json:"iv30"`
	HV20         float64  `json:"hv20"`
	TScale       *float64 `json:"t_scale,omitempty"`
	LambdaFactor float64  `json:"lambda_factor,omitempty"`
}

// ValidationFlags 验证层输出：否决、摩擦、偏好。每次计算重新派生，不落盘。
type ValidationFlags struct {
	IsVetoed            bool    `json:"is_vetoed"`
	VetoReason          string  `json:"veto_reason,omitempty"`
	WeeklyFrictionState string  `json:"weekly_friction_state"`
	ExecutionGuidance   string  `json:"execution_guidance"`
	StrategyBias        string  `json:"strategy_bias"`
	StrategyBiasReason  string  `json:"strategy_bias_reason,omitempty"`
	NetVolumeSignal     string  `json:"net_volume_signal,omitempty"`
	NetVegaExposure     string  `json:"net_vega_exposure,omitempty"`
	ConfidencePenalty   float64 `json:"confidence_penalty"`
}

// DTEResult 到期天数估算及其来龙去脉。
type DTEResult struct {
	Final           int     `json:"final"`
	Base            int     `json:"base"`
	TScale          float64 `json:"t_scale"`
	TScaleSource    string  `json:"t_scale_source"`
	GapLevel        string  `json:"gap_level"`
	MonthlyOverride bool    `json:"monthly_override"`
	Rationale       string  `json:"rationale"`
}

// RiskReward 单个结构的盈亏比。Ratio 为数值便于比较，RatioStr 供展示。
type RiskReward struct {
	Width     float64 `json:"width"`
	IVR       float64 `json:"ivr"`
	Cost      float64 `json:"cost"`
	MaxProfit float64 `json:"max_profit"`
	MaxLoss   float64 `json:"max_loss"`
	Ratio     float64 `json:"ratio"`
	RatioStr  string  `json:"ratio_str"`
	MeetsEdge bool    `json:"meets_edge"`
	Formula   string  `json:"formula"`
}

// WinProb 胜率估算。TheoreticalBase 是配置常量占位，非定价模型输出。
type WinProb struct {
	Estimate        float64 `json:"estimate"`
	TheoreticalBase float64 `json:"theoretical_base"`
	Formula         string  `json:"formula"`
	Note            string  `json:"note"`
}

// IronCondorStrikes 铁鹰四腿。
type IronCondorStrikes struct {
	ShortCall float64 `json:"short_call"`
	LongCall  float64 `json:"long_call"`
	ShortPut  float64 `json:"short_put"`
	LongPut   float64 `json:"long_put"`
	WidthCall float64 `json:"width_call"`
	WidthPut  float64 `json:"width_put"`
}

// VerticalStrikes 垂直价差两腿。
type VerticalStrikes struct {
	Long  float64 `json:"long"`
	Short float64 `json:"short"`
	Width float64 `json:"width"`
}

// SingleStrike 单腿。
type SingleStrike struct {
	Strike float64 `json:"strike"`
}

// StrikeLadder 各结构模板的行权价。
type StrikeLadder struct {
	IronCondor     IronCondorStrikes `json:"iron_condor"`
	BullCallSpread VerticalStrikes   `json:"bull_call_spread"`
	BearPutSpread  VerticalStrikes   `json:"bear_put_spread"`
	LongCall       SingleStrike      `json:"long_call"`
	LongPut        SingleStrike      `json:"long_put"`
}

// VolatilityBlock 输出里的波动率摘要。
type VolatilityBlock struct {
	TScale       float64 `json:"t_scale"`
	VRP          float64 `json:"vrp"`
	IVR          float64 `json:"ivr"`
	LambdaFactor float64 `json:"lambda_factor"`
}

// Meta 供下游排名使用的上下文块。
type Meta struct {
	Spot                float64 `json:"spot"`
	EM1                 float64 `json:"em1"`
	IVR                 float64 `json:"ivr"`
	TechnicalScore      float64 `json:"technical_score"`
	PrimaryScenario     string  `json:"primary_scenario"`
	ScenarioProbability int     `json:"scenario_probability"`
	GammaRegime         string  `json:"gamma_regime"`
	StrategyBias        string  `json:"strategy_bias"`
}

// Output 引擎输出。VETOED 时只有 Validation 与 Meta 有意义。
type Output struct {
	TradeStatus string                `json:"trade_status"`
	VetoReason  string                `json:"veto_reason,omitempty"`
	Validation  ValidationFlags       `json:"validation"`
	Strikes     *StrikeLadder         `json:"strikes,omitempty"`
	DTE         *DTEResult            `json:"dte,omitempty"`
	Volatility  *VolatilityBlock      `json:"volatility,omitempty"`
	RR          map[string]RiskReward `json:"rr,omitempty"`
	Pw          map[string]WinProb    `json:"pw,omitempty"`
	Meta        Meta                  `json:"meta"`
}

// Vetoed 是否被一票否决。
func (o *Output) Vetoed() bool {
	return o != nil && o.TradeStatus == StatusVetoed
}
