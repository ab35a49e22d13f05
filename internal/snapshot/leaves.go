package snapshot

// 中文说明：
// 叶子遍历是聚合与完整度统计的共同地基：
// 两份记录的 Leaves() 顺序完全一致，合并时按位对齐即可。

type LeafKind int

const (
	KindNumber LeafKind = iota
	KindText
	KindFlag
)

// Leaf 指向记录中的一个叶子字段。Num/Text/Bool 三者恰有其一非 nil。
type Leaf struct {
	Path     string
	Kind     LeafKind
	Required bool

	Num  **float64
	Text *string
	Bool **bool
}

// Valid 叶子当前值是否有效。
func (l Leaf) Valid() bool {
	switch l.Kind {
	case KindNumber:
		return ValidNumber(*l.Num)
	case KindText:
		return ValidText(*l.Text)
	case KindFlag:
		return ValidFlag(*l.Bool)
	}
	return false
}

// Present 叶子是否携带了值（包括 -999 / "N/A" 等无效占位）。
// 用于区分“上游没给”与“上游明确给了无效值”。
func (l Leaf) Present() bool {
	switch l.Kind {
	case KindNumber:
		return *l.Num != nil
	case KindText:
		return *l.Text != ""
	case KindFlag:
		return *l.Bool != nil
	}
	return false
}

// Equal 两个对齐叶子的值是否相等（按有效值比较）。
func (l Leaf) Equal(other Leaf) bool {
	switch l.Kind {
	case KindNumber:
		a, b := *l.Num, *other.Num
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	case KindText:
		return *l.Text == *other.Text
	case KindFlag:
		a, b := *l.Bool, *other.Bool
		if a == nil || b == nil {
			return a == b
		}
		return *a == *b
	}
	return false
}

// CopyFrom 将 src 的值写入本叶子。
func (l Leaf) CopyFrom(src Leaf) {
	switch l.Kind {
	case KindNumber:
		if v := *src.Num; v != nil {
			cp := *v
			*l.Num = &cp
		} else {
			*l.Num = nil
		}
	case KindText:
		*l.Text = *src.Text
	case KindFlag:
		if v := *src.Bool; v != nil {
			cp := *v
			*l.Bool = &cp
		} else {
			*l.Bool = nil
		}
	}
}

func number(path string, required bool, p **float64) Leaf {
	return Leaf{Path: path, Kind: KindNumber, Required: required, Num: p}
}

func text(path string, required bool, p *string) Leaf {
	return Leaf{Path: path, Kind: KindText, Required: required, Text: p}
}

func flag(path string, required bool, p **bool) Leaf {
	return Leaf{Path: path, Kind: KindFlag, Required: required, Bool: p}
}

// Leaves 返回记录全部叶子。顺序固定，Required 标记构成确认所需字段集。
// symbol 单独处理（合并键，不在叶子集中）。
func (r *TargetRecord) Leaves() []Leaf {
	g := &r.Gamma
	d := &r.Directional
	return []Leaf{
		number("spot_price", true, &r.SpotPrice),

		number("walls.call_wall", true, &r.Walls.CallWall),
		number("walls.put_wall", true, &r.Walls.PutWall),
		number("walls.major_wall", true, &r.Walls.MajorWall),
		text("walls.major_wall_type", false, &r.Walls.MajorWallType),

		number("gamma_metrics.vol_trigger", true, &g.VolTrigger),
		text("gamma_metrics.spot_vs_trigger", true, &g.SpotVsTrigger),
		number("gamma_metrics.net_gex", true, &g.NetGEX),
		text("gamma_metrics.net_gex_sign", false, &g.NetGEXSign),
		number("gamma_metrics.gap_distance_dollar", true, &g.GapDistanceDollar),
		number("gamma_metrics.gap_distance_em1_multiple", false, &g.GapDistanceEM1),
		number("gamma_metrics.cluster_strength_ratio", false, &g.ClusterStrength),
		number("gamma_metrics.nearby_peak.price", true, &g.NearbyPeak.Price),
		number("gamma_metrics.nearby_peak.abs_gex", true, &g.NearbyPeak.AbsGEX),
		number("gamma_metrics.next_cluster_peak.price", true, &g.NextClusterPeak.Price),
		number("gamma_metrics.next_cluster_peak.abs_gex", true, &g.NextClusterPeak.AbsGEX),
		number("gamma_metrics.weekly_cluster.price", true, &g.WeeklyCluster.Price),
		number("gamma_metrics.weekly_cluster.abs_gex", true, &g.WeeklyCluster.AbsGEX),
		number("gamma_metrics.monthly_cluster.price", true, &g.MonthlyCluster.Price),
		number("gamma_metrics.monthly_cluster.abs_gex", true, &g.MonthlyCluster.AbsGEX),
		flag("gamma_metrics.monthly_cluster_override", false, &g.MonthlyOverride),

		number("directional_metrics.dex_same_dir_pct", true, &d.DexSameDirPct),
		text("directional_metrics.vanna_dir", true, &d.VannaDir),
		text("directional_metrics.vanna_confidence", true, &d.VannaConfidence),
		text("directional_metrics.iv_path", false, &d.IVPath),
		text("directional_metrics.iv_path_confidence", false, &d.IVPathConfidence),

		number("atm_iv.iv_7d", true, &r.ATMIV.IV7D),
		number("atm_iv.iv_14d", true, &r.ATMIV.IV14D),
		number("atm_iv.iv_30d", false, &r.ATMIV.IV30D),
		text("atm_iv.iv_source", true, &r.ATMIV.IVSource),

		text("validation_metrics.net_volume_signal", true, &r.Validation.NetVolumeSignal),
		text("validation_metrics.net_vega_exposure", true, &r.Validation.NetVegaExposure),
	}
}

// CountValid 统计当前有效叶子数量（含 symbol）。
func (r *TargetRecord) CountValid() int {
	n := 0
	if ValidText(r.Symbol) {
		n++
	}
	for _, l := range r.Leaves() {
		if l.Valid() {
			n++
		}
	}
	return n
}
