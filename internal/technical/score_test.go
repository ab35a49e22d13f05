package technical

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// trend 生成单调序列：每根按 step 递增（负数即下跌）。
func trend(start, step float64, n int) []float64 {
	out := make([]float64, n)
	v := start
	for i := range out {
		out[i] = v
		v += step
	}
	return out
}

func TestScoreUptrend(t *testing.T) {
	res, err := Score(trend(100, 0.5, 60))
	require.NoError(t, err)

	// 持续上行：RSI 高、MACD 柱为正、价格贴上轨 -> 满分 2
	assert.InDelta(t, 2.0, res.Score, 0.01)
	assert.Greater(t, res.RSI, 50.0)
	assert.Greater(t, res.MACDHist, 0.0)
	assert.Greater(t, res.BBPosition, 0.5)
	assert.Contains(t, res.Commentary, "多头")
}

func TestScoreDowntrend(t *testing.T) {
	res, err := Score(trend(200, -0.5, 60))
	require.NoError(t, err)
	assert.InDelta(t, 0.0, res.Score, 0.01)
	assert.Contains(t, res.Commentary, "空头")
}

func TestScoreBoundsAlways(t *testing.T) {
	// 震荡序列也必须落在 [0,2]
	closes := make([]float64, 80)
	for i := range closes {
		closes[i] = 100 + 3*math.Sin(float64(i)/4)
	}
	res, err := Score(closes)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, res.Score, 0.0)
	assert.LessOrEqual(t, res.Score, 2.0)
	assert.GreaterOrEqual(t, res.BBPosition, 0.0)
	assert.LessOrEqual(t, res.BBPosition, 1.0)
}

func TestScoreRejectsShortSeries(t *testing.T) {
	_, err := Score(trend(100, 1, 10))
	assert.Error(t, err)
}

func TestHV20(t *testing.T) {
	// 恒定对数收益 -> 波动率为 0
	flat := make([]float64, 30)
	v := 100.0
	for i := range flat {
		flat[i] = v
		v *= 1.01
	}
	hv, err := HV20(flat)
	require.NoError(t, err)
	assert.InDelta(t, 0, hv, 1e-6)

	// 有扰动的序列波动率必须为正
	noisy := make([]float64, 30)
	for i := range noisy {
		noisy[i] = 100 + 2*math.Sin(float64(i))
	}
	hv, err = HV20(noisy)
	require.NoError(t, err)
	assert.Greater(t, hv, 0.0)

	_, err = HV20([]float64{100, 101})
	assert.Error(t, err)
	_, err = HV20(append(make([]float64, 20), trend(-5, 1, 10)...))
	assert.Error(t, err)
}
