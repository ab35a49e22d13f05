package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func completeRecord() *TargetRecord {
	r := &TargetRecord{Symbol: "AAPL"}
	r.SpotPrice = Number(180)
	r.Walls = Walls{CallWall: Number(190), PutWall: Number(170), MajorWall: Number(190), MajorWallType: "call"}
	r.Gamma = GammaMetrics{
		VolTrigger:        Number(175),
		SpotVsTrigger:     "above",
		NetGEX:            Number(1.2e9),
		GapDistanceDollar: Number(5),
		NearbyPeak:        ClusterPoint{Price: Number(185), AbsGEX: Number(8e8)},
		NextClusterPeak:   ClusterPoint{Price: Number(195), AbsGEX: Number(6e8)},
		WeeklyCluster:     ClusterPoint{Price: Number(185), AbsGEX: Number(8e8)},
		MonthlyCluster:    ClusterPoint{Price: Number(175), AbsGEX: Number(9e8)},
	}
	r.Directional = DirectionalMetrics{DexSameDirPct: Number(0.68), VannaDir: "up", VannaConfidence: "high"}
	r.ATMIV = ATMIV{IV7D: Number(32), IV14D: Number(30), IVSource: "chain"}
	r.Validation = ValidationMetrics{NetVolumeSignal: "Bullish_Call_Buy", NetVegaExposure: "Short_Vega"}
	return r
}

func TestComputeCompletenessFull(t *testing.T) {
	c := ComputeCompleteness(completeRecord())
	assert.Equal(t, 25, c.Required, "必需字段集 = symbol + 24 个必需叶子")
	assert.Equal(t, c.Required, c.Provided)
	assert.Equal(t, 100, c.Rate)
	assert.True(t, c.IsComplete)
	assert.Empty(t, c.MissingFields)
}

func TestComputeCompletenessPartial(t *testing.T) {
	r := completeRecord()
	r.Walls.PutWall = Number(SentinelNumber) // 哨兵视同缺失
	r.Directional.VannaDir = "N/A"
	r.ATMIV.IV30D = nil // 可选字段缺失不计入

	c := ComputeCompleteness(r)
	assert.False(t, c.IsComplete)
	assert.Equal(t, 23, c.Provided)
	assert.Contains(t, c.MissingFields, "walls.put_wall")
	assert.Contains(t, c.MissingFields, "directional_metrics.vanna_dir")
	assert.Equal(t, 23*100/25, c.Rate)
}

func TestComputeCompletenessEmpty(t *testing.T) {
	c := ComputeCompleteness(&TargetRecord{})
	assert.Zero(t, c.Provided)
	assert.False(t, c.IsComplete)
	assert.Zero(t, c.Rate)
}

func TestLeafValidityAndPresence(t *testing.T) {
	r := &TargetRecord{}
	r.SpotPrice = Number(SentinelNumber)
	r.Walls.MajorWallType = "N/A"

	var spotLeaf, typeLeaf, putLeaf Leaf
	for _, l := range r.Leaves() {
		switch l.Path {
		case "spot_price":
			spotLeaf = l
		case "walls.major_wall_type":
			typeLeaf = l
		case "walls.put_wall":
			putLeaf = l
		}
	}

	// 哨兵：给了值但无效
	assert.True(t, spotLeaf.Present())
	assert.False(t, spotLeaf.Valid())
	// 占位串同理
	assert.True(t, typeLeaf.Present())
	assert.False(t, typeLeaf.Valid())
	// 完全没给
	assert.False(t, putLeaf.Present())
	assert.False(t, putLeaf.Valid())
}

func TestLeavesPairwiseAlignment(t *testing.T) {
	a := completeRecord()
	b := &TargetRecord{}
	la, lb := a.Leaves(), b.Leaves()
	require.Equal(t, len(la), len(lb), "两份记录的叶子序列必须按位对齐")
	for i := range la {
		assert.Equal(t, la[i].Path, lb[i].Path)
		assert.Equal(t, la[i].Kind, lb[i].Kind)
	}
}

func TestLeafCopyFromIsDeep(t *testing.T) {
	src := &TargetRecord{SpotPrice: Number(100)}
	dst := &TargetRecord{}
	dst.Leaves()[0].CopyFrom(src.Leaves()[0])

	require.NotNil(t, dst.SpotPrice)
	assert.Equal(t, 100.0, *dst.SpotPrice)
	// 深拷贝：改源不影响目标
	*src.SpotPrice = 200
	assert.Equal(t, 100.0, *dst.SpotPrice)
}

func TestCloneIsIndependent(t *testing.T) {
	orig := completeRecord()
	cp := orig.Clone()
	*cp.SpotPrice = 999
	cp.Walls.MajorWallType = "put"
	assert.Equal(t, 180.0, *orig.SpotPrice)
	assert.Equal(t, "call", orig.Walls.MajorWallType)
}
