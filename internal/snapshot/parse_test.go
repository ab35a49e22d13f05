package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePayloadTargetsObject(t *testing.T) {
	raw := []byte(`{
		"targets": {
			"symbol": "aapl us",
			"spot_price": 180.5,
			"walls": {"call_wall": 190, "put_wall": -999, "major_wall_type": "N/A"},
			"gamma_metrics": {
				"vol_trigger": 175,
				"spot_vs_trigger": "above",
				"nearby_peak": {"price": 185, "abs_gex": 8.2e8},
				"monthly_cluster_override": true
			},
			"atm_iv": {"iv_7d": 32, "iv_14d": "30.5"},
			"validation_metrics": {"net_volume_signal": "Bullish_Call_Buy"}
		}
	}`)

	rec, err := ParsePayload(raw)
	require.NoError(t, err)

	// 代码标准化为大写 ticker
	assert.Equal(t, "AAPL", rec.Symbol)
	require.NotNil(t, rec.SpotPrice)
	assert.Equal(t, 180.5, *rec.SpotPrice)

	// 哨兵数值被保留为指针值，有效性由 ValidNumber 判定
	require.NotNil(t, rec.Walls.PutWall)
	assert.False(t, ValidNumber(rec.Walls.PutWall))
	assert.True(t, ValidNumber(rec.Walls.CallWall))

	// 字符串形态的数字做归一
	require.NotNil(t, rec.ATMIV.IV14D)
	assert.Equal(t, 30.5, *rec.ATMIV.IV14D)

	require.NotNil(t, rec.Gamma.MonthlyOverride)
	assert.True(t, *rec.Gamma.MonthlyOverride)
	assert.Equal(t, "Bullish_Call_Buy", rec.Validation.NetVolumeSignal)
}

func TestParsePayloadCodeFence(t *testing.T) {
	raw := []byte("```json\n{\"symbol\": \"TSLA\", \"spot_price\": 250}\n```")
	rec, err := ParsePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, "TSLA", rec.Symbol)
	assert.Equal(t, 250.0, *rec.SpotPrice)
}

func TestParsePayloadTargetsArray(t *testing.T) {
	raw := []byte(`{"targets": [{"symbol": "NVDA", "spot_price": 130}]}`)
	rec, err := ParsePayload(raw)
	require.NoError(t, err)
	assert.Equal(t, "NVDA", rec.Symbol)
}

func TestParsePayloadRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"非法JSON":  `{"symbol": `,
		"找不到记录":   `{"other": 1}`,
		"spot为对象": `{"symbol": "SPY", "spot_price": {"v": 1}}`,
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParsePayload([]byte(raw))
			assert.Error(t, err)
		})
	}
}

func TestParsePayloadPlaceholderStringBecomesAbsent(t *testing.T) {
	raw := []byte(`{"symbol": "SPY", "spot_price": "N/A", "atm_iv": {"iv_7d": "数据不足"}}`)
	rec, err := ParsePayload(raw)
	require.NoError(t, err)
	assert.Nil(t, rec.SpotPrice)
	assert.Nil(t, rec.ATMIV.IV7D)
}

func TestParsePayloadUnparseableStringBecomesAbsent(t *testing.T) {
	// 占位表以外的乱码串也必须归于缺失，不能落成有效的 0
	raw := []byte(`{"symbol": "AAPL", "spot_price": 100, "walls": {"call_wall": "garbage", "put_wall": "17O"}}`)
	rec, err := ParsePayload(raw)
	require.NoError(t, err)
	require.NotNil(t, rec.SpotPrice)
	assert.Nil(t, rec.Walls.CallWall)
	assert.Nil(t, rec.Walls.PutWall)
}
