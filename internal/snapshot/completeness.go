package snapshot

// Completeness 单次聚合后的完整度快照。
type Completeness struct {
	Required      int      `json:"required"`
	Provided      int      `json:"provided"`
	MissingFields []string `json:"missing_fields,omitempty"`
	Rate          int      `json:"completion_rate"` // 0-100
	IsComplete    bool     `json:"is_complete"`
}

// ComputeCompleteness 基于固定必需字段集统计完整度。
// 必需集 = symbol + Leaves() 中 Required 标记的叶子；100% 时记录可确认。
func ComputeCompleteness(r *TargetRecord) Completeness {
	c := Completeness{Required: 1, Provided: 0}
	if ValidText(r.Symbol) {
		c.Provided++
	} else {
		c.MissingFields = append(c.MissingFields, "symbol")
	}
	for _, l := range r.Leaves() {
		if !l.Required {
			continue
		}
		c.Required++
		if l.Valid() {
			c.Provided++
		} else {
			c.MissingFields = append(c.MissingFields, l.Path)
		}
	}
	if c.Required > 0 {
		c.Rate = c.Provided * 100 / c.Required
	}
	c.IsComplete = len(c.MissingFields) == 0
	return c
}
