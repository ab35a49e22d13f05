package snapshot

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"gexwatch/internal/pkg/convert"
	"gexwatch/internal/pkg/symbol"
)

// 中文说明：
// Extractor 的 JSON 可能把记录放在顶层、targets 对象或 targets 数组首元素里，
// 偶尔还会包一层 ```json 代码块。这里统一宽松定位后再做形状校验与类型化。

// ParsePayload 从原始负载中解析出一条 TargetRecord。
func ParsePayload(raw []byte) (*TargetRecord, error) {
	text := stripCodeFence(string(raw))
	if !gjson.Valid(text) {
		return nil, fmt.Errorf("负载不是合法 JSON")
	}
	node := locateRecord(gjson.Parse(text))
	if !node.Exists() || !node.IsObject() {
		return nil, fmt.Errorf("负载中未找到目标记录")
	}

	var doc any
	if err := json.Unmarshal([]byte(node.Raw), &doc); err != nil {
		return nil, fmt.Errorf("目标记录反序列化失败: %w", err)
	}
	if err := ValidateShape(doc); err != nil {
		return nil, err
	}
	return recordFromNode(node), nil
}

func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) > 0 && strings.HasPrefix(lines[0], "```") {
		lines = lines[1:]
	}
	if len(lines) > 0 && strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

// locateRecord 依次尝试 targets 对象、targets[0]、顶层。
func locateRecord(root gjson.Result) gjson.Result {
	if t := root.Get("targets"); t.Exists() {
		if t.IsObject() {
			return t
		}
		if t.IsArray() {
			arr := t.Array()
			if len(arr) > 0 {
				return arr[0]
			}
		}
	}
	if root.Get("spot_price").Exists() || root.Get("symbol").Exists() {
		return root
	}
	return gjson.Result{}
}

func recordFromNode(node gjson.Result) *TargetRecord {
	r := &TargetRecord{}
	if s := node.Get("symbol"); s.Exists() {
		r.Symbol = symbol.Normalize(s.String())
	}
	r.SpotPrice = numPtr(node.Get("spot_price"))

	w := node.Get("walls")
	r.Walls = Walls{
		CallWall:      numPtr(w.Get("call_wall")),
		PutWall:       numPtr(w.Get("put_wall")),
		MajorWall:     numPtr(w.Get("major_wall")),
		MajorWallType: textOf(w.Get("major_wall_type")),
	}

	g := node.Get("gamma_metrics")
	r.Gamma = GammaMetrics{
		VolTrigger:        numPtr(g.Get("vol_trigger")),
		SpotVsTrigger:     textOf(g.Get("spot_vs_trigger")),
		NetGEX:            numPtr(g.Get("net_gex")),
		NetGEXSign:        textOf(g.Get("net_gex_sign")),
		GapDistanceDollar: numPtr(g.Get("gap_distance_dollar")),
		GapDistanceEM1:    numPtr(g.Get("gap_distance_em1_multiple")),
		ClusterStrength:   numPtr(g.Get("cluster_strength_ratio")),
		NearbyPeak:        clusterOf(g.Get("nearby_peak")),
		NextClusterPeak:   clusterOf(g.Get("next_cluster_peak")),
		WeeklyCluster:     clusterOf(g.Get("weekly_cluster")),
		MonthlyCluster:    clusterOf(g.Get("monthly_cluster")),
		MonthlyOverride:   flagPtr(g.Get("monthly_cluster_override")),
	}

	d := node.Get("directional_metrics")
	r.Directional = DirectionalMetrics{
		DexSameDirPct:    numPtr(d.Get("dex_same_dir_pct")),
		VannaDir:         textOf(d.Get("vanna_dir")),
		VannaConfidence:  textOf(d.Get("vanna_confidence")),
		IVPath:           textOf(d.Get("iv_path")),
		IVPathConfidence: textOf(d.Get("iv_path_confidence")),
	}

	iv := node.Get("atm_iv")
	r.ATMIV = ATMIV{
		IV7D:     numPtr(iv.Get("iv_7d")),
		IV14D:    numPtr(iv.Get("iv_14d")),
		IV30D:    numPtr(iv.Get("iv_30d")),
		IVSource: textOf(iv.Get("iv_source")),
	}

	v := node.Get("validation_metrics")
	r.Validation = ValidationMetrics{
		NetVolumeSignal: textOf(v.Get("net_volume_signal")),
		NetVegaExposure: textOf(v.Get("net_vega_exposure")),
	}
	return r
}

func clusterOf(node gjson.Result) ClusterPoint {
	return ClusterPoint{
		Price:  numPtr(node.Get("price")),
		AbsGEX: numPtr(node.Get("abs_gex")),
	}
}

func numPtr(res gjson.Result) *float64 {
	if !res.Exists() || res.Type == gjson.Null {
		return nil
	}
	switch res.Type {
	case gjson.Number:
		v := res.Float()
		return &v
	case gjson.String:
		// 上游偶发把数字写成字符串；"N/A" 等占位串与解析失败一律按缺失处理，不产出零值。
		s := strings.TrimSpace(res.String())
		if !ValidText(s) {
			return nil
		}
		v, ok := convert.ToFloat64(s)
		if !ok {
			return nil
		}
		return &v
	default:
		return nil
	}
}

func textOf(res gjson.Result) string {
	if !res.Exists() || res.Type == gjson.Null {
		return ""
	}
	return strings.TrimSpace(res.String())
}

func flagPtr(res gjson.Result) *bool {
	if !res.Exists() || res.Type == gjson.Null {
		return nil
	}
	switch res.Type {
	case gjson.True, gjson.False:
		v := res.Bool()
		return &v
	default:
		return nil
	}
}
