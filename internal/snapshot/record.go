package snapshot

import "encoding/json"

// 中文说明：
// 本文件定义单标的的结构化市场快照（TargetRecord）。
// 所有叶子字段在被观测到之前都是"未知"：数值叶子用指针表达缺失，
// -999 为上游约定的无效哨兵；枚举/文本叶子用固定占位串表达无效。

// ClusterPoint 描述一个 GEX 聚集峰（价格 + 绝对 GEX 强度）。
type ClusterPoint struct {
	Price  *float64 `json:"price"`
	AbsGEX *float64 `json:"abs_gex"`
}

// Walls 关键墙位。
type Walls struct {
	CallWall      *float64 `json:"call_wall"`
	PutWall       *float64 `json:"put_wall"`
	MajorWall     *float64 `json:"major_wall"`
	MajorWallType string   `json:"major_wall_type"` // call / put / N/A
}

// GammaMetrics Gamma 结构指标。
type GammaMetrics struct {
	VolTrigger        *float64     `json:"vol_trigger"`
	SpotVsTrigger     string       `json:"spot_vs_trigger"` // above / below / near
	NetGEX            *float64     `json:"net_gex"`
	NetGEXSign        string       `json:"net_gex_sign"`
	GapDistanceDollar *float64     `json:"gap_distance_dollar"`
	GapDistanceEM1    *float64     `json:"gap_distance_em1_multiple"`
	ClusterStrength   *float64     `json:"cluster_strength_ratio"`
	NearbyPeak        ClusterPoint `json:"nearby_peak"`
	NextClusterPeak   ClusterPoint `json:"next_cluster_peak"`
	WeeklyCluster     ClusterPoint `json:"weekly_cluster"`
	MonthlyCluster    ClusterPoint `json:"monthly_cluster"`
	MonthlyOverride   *bool        `json:"monthly_cluster_override"`
}

// DirectionalMetrics 方向性资金流指标。
type DirectionalMetrics struct {
	DexSameDirPct    *float64 `json:"dex_same_dir_pct"`
	VannaDir         string   `json:"vanna_dir"`        // up / down / flat
	VannaConfidence  string   `json:"vanna_confidence"` // high / medium / low
	IVPath           string   `json:"iv_path"`
	IVPathConfidence string   `json:"iv_path_confidence"`
}

// ATMIV 平值隐波快照。30 日值若缺失，下游按约定回落到 14 日。
type ATMIV struct {
	IV7D     *float64 `json:"iv_7d"`
	IV14D    *float64 `json:"iv_14d"`
	IV30D    *float64 `json:"iv_30d"`
	IVSource string   `json:"iv_source"` // 7d / 14d / 21d_fallback
}

// ValidationMetrics 实时验证信号（量价 / Vega 敞口）。
type ValidationMetrics struct {
	NetVolumeSignal string `json:"net_volume_signal"` // Bullish_Call_Buy / Bearish_Put_Buy / Neutral
	NetVegaExposure string `json:"net_vega_exposure"` // Short_Vega / Long_Vega
}

// TargetRecord 单标的结构快照。多轮上传逐步补全。
type TargetRecord struct {
	Symbol      string             `json:"symbol"`
	SpotPrice   *float64           `json:"spot_price"`
	Walls       Walls              `json:"walls"`
	Gamma       GammaMetrics       `json:"gamma_metrics"`
	Directional DirectionalMetrics `json:"directional_metrics"`
	ATMIV       ATMIV              `json:"atm_iv"`
	Validation  ValidationMetrics  `json:"validation_metrics"`
}

// Clone 深拷贝。聚合器之外的组件只拿副本，不回写存储。
func (r *TargetRecord) Clone() *TargetRecord {
	if r == nil {
		return nil
	}
	raw, err := json.Marshal(r)
	if err != nil {
		cp := *r
		return &cp
	}
	var cp TargetRecord
	if err := json.Unmarshal(raw, &cp); err != nil {
		cp = *r
	}
	return &cp
}

// Spot 返回现价，未知时为 0。
func (r *TargetRecord) Spot() float64 {
	if ValidNumber(r.SpotPrice) {
		return *r.SpotPrice
	}
	return 0
}

// IV30OrFallback 返回 30 日隐波，缺失时退到 14 日，再缺失返回 0。
func (a ATMIV) IV30OrFallback() float64 {
	if ValidNumber(a.IV30D) {
		return *a.IV30D
	}
	if ValidNumber(a.IV14D) {
		return *a.IV14D
	}
	return 0
}

// Number 便捷构造：返回指向 v 的指针（测试与解析共用）。
func Number(v float64) *float64 { return &v }

// Flag 便捷构造：返回指向 b 的指针。
func Flag(b bool) *bool { return &b }
