package quant

import (
	"testing"

	"gexwatch/internal/config"
	"gexwatch/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func baseRecord() *snapshot.TargetRecord {
	rec := &snapshot.TargetRecord{}
	rec.Symbol = "AAPL"
	rec.SpotPrice = snapshot.Number(180)
	rec.Walls.CallWall = snapshot.Number(190)
	rec.Walls.PutWall = snapshot.Number(170)
	rec.Gamma.NearbyPeak = snapshot.ClusterPoint{Price: snapshot.Number(185), AbsGEX: snapshot.Number(8e8)}
	rec.Gamma.SpotVsTrigger = "above"
	rec.ATMIV.IV7D = snapshot.Number(32)
	rec.ATMIV.IV14D = snapshot.Number(30)
	rec.Validation.NetVolumeSignal = "Neutral"
	rec.Validation.NetVegaExposure = "Short_Vega"
	return rec
}

func TestComputeActivePath(t *testing.T) {
	cfg := config.Default().Quant
	eng := NewEngine(cfg)

	out, err := eng.Compute(baseRecord(), Scenario{PrimaryScenario: "看涨突破"}, MarketContext{IVR: 40, IV30: 40, HV20: 40}, 1.0)
	require.NoError(t, err)

	assert.Equal(t, StatusActive, out.TradeStatus)
	assert.Equal(t, BiasCreditFavored, out.Validation.StrategyBias)
	assert.Equal(t, FrictionClear, out.Validation.WeeklyFrictionState)

	// 行权价：wall ± offset × EM1。EM1 = 180 × 30/100 × 0.0524
	em1 := 180 * 0.30 * cfg.EM1Factor
	assert.InDelta(t, em1, out.Meta.EM1, 1e-9)
	assert.InDelta(t, 190, out.Strikes.IronCondor.ShortCall, 1e-9)
	assert.InDelta(t, 190+cfg.Strikes.ConservativeLongOffset*em1, out.Strikes.IronCondor.LongCall, 0.01)

	// hv20/iv30 = 1 → t_scale 1 → DTE = 21 (gap 缺省走 mid 档)
	assert.Equal(t, 21, out.DTE.Final)
	assert.Equal(t, "mid", out.DTE.GapLevel)
	assert.Equal(t, "本地计算", out.DTE.TScaleSource)

	require.Contains(t, out.RR, "iron_condor")
	require.Contains(t, out.RR, "bull_call_spread")
	require.Contains(t, out.Pw, "butterfly")
	assert.InDelta(t, cfg.WinProb.ButterflyEstimate, out.Pw["butterfly"].Estimate, 1e-9)
}

func TestComputeVetoOnVolumeDivergence(t *testing.T) {
	cfg := config.Default().Quant
	eng := NewEngine(cfg)

	rec := baseRecord()
	rec.Validation.NetVolumeSignal = SignalBearishPutBuy
	out, err := eng.Compute(rec, Scenario{PrimaryScenario: "上方空间打开，突破在即"}, MarketContext{IVR: 40, IV30: 40, HV20: 40}, 0)
	require.NoError(t, err)

	assert.True(t, out.Vetoed())
	assert.Equal(t, StatusVetoed, out.TradeStatus)
	assert.Contains(t, out.VetoReason, "量价背离")
	assert.Nil(t, out.Strikes, "否决后不再计算行权价")

	// 反向：看跌情景 + 看涨成交量
	rec2 := baseRecord()
	rec2.Validation.NetVolumeSignal = SignalBullishCallBuy
	out2, err := eng.Compute(rec2, Scenario{PrimaryScenario: "Bearish breakdown below trigger"}, MarketContext{IVR: 40, IV30: 40, HV20: 40}, 0)
	require.NoError(t, err)
	assert.True(t, out2.Vetoed())
}

func TestComputeMissingCoreField(t *testing.T) {
	eng := NewEngine(config.Default().Quant)

	rec := &snapshot.TargetRecord{}
	rec.ATMIV.IV7D = snapshot.Number(30)
	_, err := eng.Compute(rec, Scenario{}, MarketContext{IVR: 40}, 0)
	assert.ErrorIs(t, err, ErrMissingCoreField)

	// spot 有值但近端 IV 全缺 → EM1 为零，同样前置失败
	rec2 := &snapshot.TargetRecord{}
	rec2.SpotPrice = snapshot.Number(100)
	_, err = eng.Compute(rec2, Scenario{}, MarketContext{IVR: 40}, 0)
	assert.ErrorIs(t, err, ErrMissingCoreField)
}

func TestComputeWeeklyFrictionObstructed(t *testing.T) {
	cfg := config.Default().Quant
	eng := NewEngine(cfg)

	rec := baseRecord()
	// 距离 0.5% < 1% 阈值
	rec.Gamma.NearbyPeak.Price = snapshot.Number(180.9)
	out, err := eng.Compute(rec, Scenario{PrimaryScenario: "盘整"}, MarketContext{IVR: 40, IV30: 40, HV20: 40}, 0)
	require.NoError(t, err)
	assert.Equal(t, FrictionObstructed, out.Validation.WeeklyFrictionState)
}

func TestComputeUnmappedIVRFailsClosed(t *testing.T) {
	eng := NewEngine(config.Default().Quant)
	_, err := eng.Compute(baseRecord(), Scenario{PrimaryScenario: "盘整"}, MarketContext{IVR: 150, IV30: 40, HV20: 40}, 0)
	assert.ErrorIs(t, err, ErrUnmappedConfig)
}

func TestRatioForIVRBuckets(t *testing.T) {
	buckets := []config.RatioBucket{
		{MaxIVR: 25, Ratio: 0.225},
		{MaxIVR: 50, Ratio: 0.275},
		{MaxIVR: 75, Ratio: 0.325},
		{MaxIVR: 100, Ratio: 0.375},
	}
	cases := []struct {
		ivr  float64
		want float64
	}{
		{0, 0.225},
		{24.9, 0.225},
		{25, 0.275}, // 桶边界归入上一档
		{74.9, 0.325},
		{100, 0.375}, // 上边界含入
	}
	for _, tc := range cases {
		got, err := ratioForIVR(buckets, tc.ivr, "credit_buckets")
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "ivr=%v", tc.ivr)
	}

	_, err := ratioForIVR(buckets, 100.1, "credit_buckets")
	assert.ErrorIs(t, err, ErrUnmappedConfig)
	_, err = ratioForIVR(buckets, -1, "credit_buckets")
	assert.ErrorIs(t, err, ErrUnmappedConfig)
}

func TestDebitMeetsEdgeBoundaryInclusive(t *testing.T) {
	// ratio = 5/16 → 盈亏比恰为 2.2，阈值同为 2.2：== 也算达标
	cfg := config.RRConfig{
		EdgeThreshold: 2.2,
		DebitBuckets:  []config.RatioBucket{{MaxIVR: 100, Ratio: 0.3125}},
	}
	rr, err := debitRR(16, 40, cfg)
	require.NoError(t, err)
	assert.True(t, rr.MeetsEdge, "盈亏比等于阈值必须视为达标")

	cfg.EdgeThreshold = 2.2000001
	rr, err = debitRR(16, 40, cfg)
	require.NoError(t, err)
	assert.False(t, rr.MeetsEdge)
}

func TestComputeEdgeBiasUpgrade(t *testing.T) {
	cfg := config.Default().Quant
	eng := NewEngine(cfg)

	rec := baseRecord()
	rec.Validation.NetVegaExposure = "" // 无 Vega 信号，偏好初始为 Neutral
	// 低 IVR 档 debit 成本占比 0.35 → 盈亏比 0.65/0.35 ≈ 1.86 ≥ 1.8，升级为 Debit_Favored
	out, err := eng.Compute(rec, Scenario{PrimaryScenario: "盘整"}, MarketContext{IVR: 10, IV30: 40, HV20: 40}, 0)
	require.NoError(t, err)
	assert.Equal(t, BiasDebitFavored, out.Validation.StrategyBias)
	assert.Contains(t, out.Validation.StrategyBiasReason, "Edge优先")

	// 中档 IVR → 成本占比 0.40 → 盈亏比 1.5 < 1.8，维持 Neutral
	rec2 := baseRecord()
	rec2.Validation.NetVegaExposure = ""
	out2, err := eng.Compute(rec2, Scenario{PrimaryScenario: "盘整"}, MarketContext{IVR: 50, IV30: 40, HV20: 40}, 0)
	require.NoError(t, err)
	assert.Equal(t, BiasNeutral, out2.Validation.StrategyBias)
}

func TestComputeDTEMonthlyFloor(t *testing.T) {
	cfg := config.Default().Quant
	eng := NewEngine(cfg)

	rec := baseRecord()
	rec.Gamma.MonthlyOverride = snapshot.Flag(true)
	rec.Gamma.GapDistanceEM1 = snapshot.Number(0.5) // low 档 → mult 0.8 → 16.8 天
	out, err := eng.Compute(rec, Scenario{PrimaryScenario: "盘整"}, MarketContext{IVR: 40, IV30: 40, HV20: 40}, 0)
	require.NoError(t, err)
	// 月度簇托底强制到 25 天
	assert.Equal(t, 25, out.DTE.Final)
	assert.True(t, out.DTE.MonthlyOverride)
}

func TestComputeDTEClamps(t *testing.T) {
	cfg := config.Default().Quant
	eng := NewEngine(cfg)

	rec := baseRecord()
	rec.Gamma.GapDistanceEM1 = snapshot.Number(5) // high 档 → mult 1.2
	// hv20/iv30 = 2 → t_scale clamp 到 2.0 → 21×2×1.2 = 50.4 → 封顶 45
	out, err := eng.Compute(rec, Scenario{PrimaryScenario: "盘整"}, MarketContext{IVR: 40, IV30: 20, HV20: 40}, 0)
	require.NoError(t, err)
	assert.Equal(t, 45, out.DTE.Final)

	// hv20/iv30 = 0.25 → (0.25)^0.8 ≈ 0.33 → clamp 0.5 → 21×0.5×1.2 = 12.6
	out, err = eng.Compute(rec, Scenario{PrimaryScenario: "盘整"}, MarketContext{IVR: 40, IV30: 80, HV20: 20}, 0)
	require.NoError(t, err)
	assert.Equal(t, 12, out.DTE.Final)
}
