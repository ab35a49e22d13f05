package drift

import (
	"testing"

	"gexwatch/internal/config"
	"gexwatch/internal/snapshot"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stableRecord() *snapshot.TargetRecord {
	rec := &snapshot.TargetRecord{}
	rec.Symbol = "NVDA"
	rec.SpotPrice = snapshot.Number(100)
	rec.Walls.CallWall = snapshot.Number(110)
	rec.Walls.PutWall = snapshot.Number(95)
	rec.Gamma.VolTrigger = snapshot.Number(98)
	rec.Gamma.WeeklyCluster = snapshot.ClusterPoint{Price: snapshot.Number(100), AbsGEX: snapshot.Number(5e8)}
	rec.Gamma.MonthlyCluster = snapshot.ClusterPoint{Price: snapshot.Number(95), AbsGEX: snapshot.Number(9e8)}
	rec.Directional.DexSameDirPct = snapshot.Number(0.65)
	rec.ATMIV.IV7D = snapshot.Number(28)
	rec.ATMIV.IV30D = snapshot.Number(30)
	return rec
}

func TestCompareStable(t *testing.T) {
	eng := NewEngine(config.Default().Drift)
	rep := eng.Compare(stableRecord(), stableRecord())
	assert.Equal(t, StatusStable, rep.Status)
	assert.True(t, rep.DataValid)
	assert.Empty(t, rep.Actions)
	assert.Equal(t, "结构稳定，建议持有", rep.Summary)
}

func TestComparePutWallBreach(t *testing.T) {
	eng := NewEngine(config.Default().Drift)
	prior := stableRecord()
	curr := stableRecord()
	// 95 -> 90，下移 5.3%，防线溃退
	curr.Walls.PutWall = snapshot.Number(90)

	rep := eng.Compare(prior, curr)
	assert.Equal(t, StatusDanger, rep.Status)
	assert.Equal(t, "floor_breach", rep.Signals.Walls)
	require.NotEmpty(t, rep.Actions)
	found := false
	for _, a := range rep.Actions {
		if a.Type == "stop_loss" {
			found = true
		}
	}
	assert.True(t, found, "破位必须生成 stop_loss 建议")
}

func TestCompareCallWallDown(t *testing.T) {
	eng := NewEngine(config.Default().Drift)
	curr := stableRecord()
	curr.Walls.CallWall = snapshot.Number(105)

	rep := eng.Compare(stableRecord(), curr)
	assert.Equal(t, StatusCaution, rep.Status)
	assert.Equal(t, "ceiling_down", rep.Signals.Walls)
	require.Len(t, rep.Actions, 1)
	assert.Equal(t, "take_profit", rep.Actions[0].Type)
}

func TestCompareGammaFlip(t *testing.T) {
	eng := NewEngine(config.Default().Drift)
	curr := stableRecord()
	// 现价跌破 vol_trigger，进入负 Gamma 区
	curr.SpotPrice = snapshot.Number(96)

	rep := eng.Compare(stableRecord(), curr)
	assert.Equal(t, StatusDanger, rep.Status)
	hasReduce := false
	for _, a := range rep.Actions {
		if a.Type == "reduce_risk" && a.Side == "all" {
			hasReduce = true
		}
	}
	assert.True(t, hasReduce)

	// 反向收复只记变化，不升级状态
	rep2 := eng.Compare(curr, stableRecord())
	assert.NotEqual(t, StatusDanger, rep2.Status)
	assert.NotEmpty(t, rep2.Changes)
}

func TestCompareHollowRally(t *testing.T) {
	eng := NewEngine(config.Default().Drift)
	curr := stableRecord()
	curr.SpotPrice = snapshot.Number(102)
	curr.Gamma.VolTrigger = nil // 只验证资金流检查
	curr.Directional.DexSameDirPct = snapshot.Number(0.55) // 缩水 10%

	prior := stableRecord()
	prior.Gamma.VolTrigger = nil
	rep := eng.Compare(prior, curr)
	assert.Equal(t, "hollow", rep.Signals.Flow)
	assert.Equal(t, StatusCaution, rep.Status)

	// 库存跟进则为有机上涨，无动作
	curr.Directional.DexSameDirPct = snapshot.Number(0.70)
	rep = eng.Compare(prior, curr)
	assert.Equal(t, "organic", rep.Signals.Flow)
	assert.Equal(t, StatusStable, rep.Status)
}

func TestCompareIVSpike(t *testing.T) {
	eng := NewEngine(config.Default().Drift)
	curr := stableRecord()
	// 30 -> 34，+13.3% 超过 10% 阈值
	curr.ATMIV.IV30D = snapshot.Number(34)
	curr.ATMIV.IV7D = snapshot.Number(30)

	rep := eng.Compare(stableRecord(), curr)
	assert.Equal(t, "spike", rep.Signals.Vol)
	hasExit := false
	for _, a := range rep.Actions {
		if a.Type == "exit" && a.Side == "vanna_long" {
			hasExit = true
		}
	}
	assert.True(t, hasExit)
}

func TestCompareTermInversion(t *testing.T) {
	eng := NewEngine(config.Default().Drift)
	curr := stableRecord()
	// 7D 33 / 30D 30 = 1.10 > 1.05 倒挂
	curr.ATMIV.IV7D = snapshot.Number(33)

	rep := eng.Compare(stableRecord(), curr)
	assert.Equal(t, StatusDanger, rep.Status)
	assert.Equal(t, "inverted", rep.Signals.Vol)
}

func TestCompareStructureDivergence(t *testing.T) {
	eng := NewEngine(config.Default().Drift)
	curr := stableRecord()
	// 价格领先周度峰 3%，峰位原地不动 -> 上涨空心化
	curr.SpotPrice = snapshot.Number(103.1)
	curr.Directional.DexSameDirPct = snapshot.Number(0.65)

	rep := eng.Compare(stableRecord(), curr)
	assert.Equal(t, "hollow", rep.Signals.Flow)
	hasTP := false
	for _, a := range rep.Actions {
		if a.Type == "take_profit" {
			hasTP = true
		}
	}
	assert.True(t, hasTP)
}

func TestCompareInvalidSpotNeverRaises(t *testing.T) {
	eng := NewEngine(config.Default().Drift)
	curr := &snapshot.TargetRecord{Symbol: "NVDA"}

	// 监控循环里坏数据降级为无效报告，绝不中断
	rep := eng.Compare(stableRecord(), curr)
	assert.Equal(t, StatusStable, rep.Status)
	assert.False(t, rep.DataValid)
	assert.Contains(t, rep.Summary, "数据无效")

	assert.NotNil(t, eng.Compare(nil, nil))
}
