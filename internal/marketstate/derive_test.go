package marketstate

import (
	"testing"

	"gexwatch/internal/config"

	"github.com/stretchr/testify/assert"
)

func TestDeriveMacroPanic(t *testing.T) {
	cfg := config.Default().MarketState
	// vrp = 50/40 = 1.25 且 vix > 25 → 宏观挤压分支
	p, err := Derive(Inputs{VIX: 30, IVR: 85, IV30: 50, HV20: 40}, nil, cfg)
	assert.NoError(t, err)
	assert.Equal(t, RegimeSqueezePanic, p.Regime)
	assert.Equal(t, "macro", p.Branch)
	assert.Equal(t, 50, p.StrikeCount)
	assert.Equal(t, Horizon{Days: 3, Bucket: BucketWeekly}, p.Short)
	assert.Equal(t, Horizon{Days: 7, Bucket: BucketWeekly}, p.Mid)
	assert.Equal(t, Horizon{Days: 14, Bucket: BucketWeekly}, p.Long)
	assert.Equal(t, 20, p.ScanWindow)
	assert.InDelta(t, 1.25, p.VRP, 1e-9)
}

func TestDeriveBranchSelection(t *testing.T) {
	cfg := config.Default().MarketState
	cases := []struct {
		name   string
		in     Inputs
		regime Regime
		branch string
		strike int
	}{
		{"idio_panic", Inputs{VIX: 18, IVR: 85, IV30: 40, HV20: 38}, RegimeSqueezePanic, "idio", 45},
		{"low_vol_grind", Inputs{VIX: 12, IVR: 20, IV30: 20, HV20: 25}, RegimeGrindLowVol, "low_vol", 25},
		{"high_vix_grind", Inputs{VIX: 22, IVR: 20, IV30: 20, HV20: 25}, RegimeGrindHighVix, "high_vix", 35},
		{"normal_trend", Inputs{VIX: 18, IVR: 50, IV30: 40, HV20: 40}, RegimeNormalTrend, "normal", 30},
		{"vrp_alone_triggers_panic", Inputs{VIX: 18, IVR: 50, IV30: 50, HV20: 40}, RegimeSqueezePanic, "idio", 45},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := Derive(tc.in, nil, cfg)
			assert.NoError(t, err)
			assert.Equal(t, tc.regime, p.Regime)
			assert.Equal(t, tc.branch, p.Branch)
			assert.Equal(t, tc.strike, p.StrikeCount)
		})
	}
}

func TestDeriveRejectsNonPositiveHV20(t *testing.T) {
	cfg := config.Default().MarketState
	_, err := Derive(Inputs{VIX: 18, IVR: 50, IV30: 40, HV20: 0}, nil, cfg)
	assert.ErrorIs(t, err, ErrDivisionUndefined)

	_, err = Derive(Inputs{VIX: 18, IVR: 50, IV30: 40, HV20: -1}, nil, cfg)
	assert.ErrorIs(t, err, ErrDivisionUndefined)
}

func TestValidateInputsRejectsOutOfRange(t *testing.T) {
	assert.Error(t, ValidateInputs(Inputs{VIX: 18, IVR: 120, IV30: 40, HV20: 40}))
	assert.Error(t, ValidateInputs(Inputs{VIX: -1, IVR: 50, IV30: 40, HV20: 40}))
	assert.Error(t, ValidateInputs(Inputs{VIX: 18, IVR: 50, IV30: -5, HV20: 40}))
	assert.ErrorIs(t, ValidateInputs(Inputs{VIX: 18, IVR: 50, IV30: 40, HV20: 0}), ErrDivisionUndefined)
	assert.NoError(t, ValidateInputs(Inputs{VIX: 18, IVR: 50, IV30: 40, HV20: 40}))
}

func TestDeriveOnlyGuardsHV20(t *testing.T) {
	cfg := config.Default().MarketState
	// 取值范围检查归 ValidateInputs，Derive 本身不拦越界的 IVR/VIX
	p, err := Derive(Inputs{VIX: 18, IVR: 120, IV30: 40, HV20: 40}, nil, cfg)
	assert.NoError(t, err)
	assert.NotEmpty(t, p.Regime)
}

func TestDeriveTermStructureBias(t *testing.T) {
	cfg := config.Default().MarketState
	// normal 档：short=14, mid=30, long=60, window=60
	ts := &TermStructure{Short: 2.0, Mid: 1.0, Long: 0.5}
	p, err := Derive(Inputs{VIX: 18, IVR: 50, IV30: 40, HV20: 40}, ts, cfg)
	assert.NoError(t, err)
	// bias 2.0 → factor 1.3 → 14*1.3 = 18.2 → 18
	assert.Equal(t, 18, p.Short.Days)
	// bias 1.0 不变
	assert.Equal(t, 30, p.Mid.Days)
	// bias 0.5 → factor 0.85 → 60*0.85 = 51
	assert.Equal(t, 51, p.Long.Days)
	// window 用均值 (2.0+1.0+0.5)/3 ≈ 1.1667 → factor 1.05 → 63
	assert.Equal(t, 63, p.ScanWindow)
}

func TestDeriveTermBiasClamps(t *testing.T) {
	cfg := config.Default().MarketState
	// 极端 bias 被 clamp 到 [0.5, 1.5]
	ts := &TermStructure{Short: 100, Mid: 100, Long: 100}
	p, err := Derive(Inputs{VIX: 18, IVR: 50, IV30: 40, HV20: 40}, ts, cfg)
	assert.NoError(t, err)
	assert.Equal(t, 21, p.Short.Days) // 14 * 1.5
	assert.Equal(t, 90, p.ScanWindow) // 60 * 1.5，低于上限 120

	// bias 趋零时 factor 收敛到 0.7
	ts = &TermStructure{Short: 0.0001, Mid: 0.0001, Long: 0.0001}
	p, err = Derive(Inputs{VIX: 18, IVR: 50, IV30: 40, HV20: 40}, ts, cfg)
	assert.NoError(t, err)
	assert.Equal(t, 10, p.Short.Days) // 14 * 0.7 = 9.8
	assert.Equal(t, 42, p.ScanWindow) // 60 * 0.7
}
