package quant

import (
	"fmt"

	"gexwatch/internal/config"
	"gexwatch/internal/logger"
	"gexwatch/internal/snapshot"
)

// Engine 策略计算引擎。纯计算，无副作用；阈值全部来自注入的配置。
type Engine struct {
	cfg config.QuantConfig
}

// NewEngine 构造引擎。
func NewEngine(cfg config.QuantConfig) *Engine {
	return &Engine{cfg: cfg}
}

// Compute 对一份完整快照执行验证 → 否决/行权价 → DTE → RR → Pw 的完整计算。
// spot 与 EM1 任一为零即前置失败；VETOED 是正常返回而非错误。
func (e *Engine) Compute(rec *snapshot.TargetRecord, scenario Scenario, mkt MarketContext, technicalScore float64) (*Output, error) {
	if rec == nil {
		return nil, fmt.Errorf("%w: target record 为空", ErrMissingCoreField)
	}
	spot := rec.Spot()
	em1 := EM1Dollar(rec, e.cfg.EM1Factor)
	if spot == 0 || em1 == 0 {
		return nil, fmt.Errorf("%w: spot_price 或 em1_dollar", ErrMissingCoreField)
	}

	validation := deriveValidation(rec, scenario.PrimaryScenario, e.cfg)

	meta := Meta{
		Spot:                spot,
		EM1:                 em1,
		IVR:                 mkt.IVR,
		TechnicalScore:      technicalScore,
		PrimaryScenario:     scenario.PrimaryScenario,
		ScenarioProbability: scenario.Probability,
		GammaRegime:         rec.Gamma.SpotVsTrigger,
		StrategyBias:        validation.StrategyBias,
	}

	if validation.IsVetoed {
		logger.Infof("[%s] 策略被否决: %s", rec.Symbol, validation.VetoReason)
		return &Output{
			TradeStatus: StatusVetoed,
			VetoReason:  validation.VetoReason,
			Validation:  validation,
			Meta:        meta,
		}, nil
	}

	strikes := buildStrikeLadder(rec, spot, em1, e.cfg.Strikes)
	dte := computeDTE(rec.Gamma.GapDistanceEM1, monthlyOverride(rec), mkt, e.cfg.Duration)

	rrCredit, err := creditRR(strikes.IronCondor.WidthCall, mkt.IVR, e.cfg.RiskReward)
	if err != nil {
		return nil, err
	}
	rrDebit, err := debitRR(strikes.BullCallSpread.Width, mkt.IVR, e.cfg.RiskReward)
	if err != nil {
		return nil, err
	}

	// Edge 修正：只有 Debit 达标且偏好中性时升级偏好。
	if rrDebit.MeetsEdge && !rrCredit.MeetsEdge && validation.StrategyBias == BiasNeutral {
		validation.StrategyBias = BiasDebitFavored
		validation.StrategyBiasReason = fmt.Sprintf("Debit策略盈亏比 ≥ %.1f (Edge优先)", e.cfg.RiskReward.EdgeThreshold)
		meta.StrategyBias = validation.StrategyBias
	}

	pwCredit := creditWinProb(clusterStrength(rec), gapEM1Value(rec), technicalScore, e.cfg.WinProb)
	pwDebit := debitWinProb(technicalScore, e.cfg.WinProb)
	pwButterfly := butterflyWinProb(e.cfg.WinProb)

	vrp := 0.0
	if mkt.HV20 > 0 {
		vrp = mkt.IV30 / mkt.HV20
	}

	return &Output{
		TradeStatus: StatusActive,
		Validation:  validation,
		Strikes:     strikes,
		DTE:         &dte,
		Volatility: &VolatilityBlock{
			TScale:       dte.TScale,
			VRP:          round3(vrp),
			IVR:          mkt.IVR,
			LambdaFactor: mkt.LambdaFactor,
		},
		RR: map[string]RiskReward{
			"iron_condor":      rrCredit,
			"bull_call_spread": rrDebit,
		},
		Pw: map[string]WinProb{
			"credit":    pwCredit,
			"debit":     pwDebit,
			"butterfly": pwButterfly,
		},
		Meta: meta,
	}, nil
}

func monthlyOverride(rec *snapshot.TargetRecord) bool {
	return rec.Gamma.MonthlyOverride != nil && *rec.Gamma.MonthlyOverride
}

func clusterStrength(rec *snapshot.TargetRecord) float64 {
	if snapshot.ValidNumber(rec.Gamma.ClusterStrength) {
		return *rec.Gamma.ClusterStrength
	}
	return 0
}

func gapEM1Value(rec *snapshot.TargetRecord) float64 {
	if snapshot.ValidNumber(rec.Gamma.GapDistanceEM1) {
		return *rec.Gamma.GapDistanceEM1
	}
	return 0
}
