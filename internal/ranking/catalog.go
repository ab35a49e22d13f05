package ranking

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// 中文说明：
// 候选策略目录。策略模板由 YAML 文件维护，运行时只读；
// 打分所需的 RR/Pw 键指向决策输出里的对应结构。

// 结构族。credit 吃权利金，debit 付权利金，long 为单腿买方。
const (
	FamilyCredit    = "credit"
	FamilyDebit     = "debit"
	FamilyButterfly = "butterfly"
	FamilyLong      = "long"
)

// 方向。
const (
	DirectionBullish = "bullish"
	DirectionBearish = "bearish"
	DirectionNeutral = "neutral"
)

// 建仓质量档位。
const (
	QualityHigh   = "High"
	QualityMedium = "Medium"
	QualityLow    = "Low"
)

// Strategy 单个候选策略模板。
type Strategy struct {
	Name         string `yaml:"name" json:"name"`
	Structure    string `yaml:"structure" json:"structure"`
	Family       string `yaml:"family" json:"family"`
	Direction    string `yaml:"direction" json:"direction"`
	RRKey        string `yaml:"rr_key,omitempty" json:"rr_key,omitempty"`
	PwKey        string `yaml:"pw_key,omitempty" json:"pw_key,omitempty"`
	SetupQuality string `yaml:"setup_quality,omitempty" json:"setup_quality,omitempty"`
	FlowAligned  bool   `yaml:"flow_aligned,omitempty" json:"flow_aligned,omitempty"`
	Description  string `yaml:"description,omitempty" json:"description,omitempty"`
}

// Directional 是否带方向敞口。中性结构不受否决与摩擦惩罚影响。
func (s Strategy) Directional() bool {
	return s.Direction == DirectionBullish || s.Direction == DirectionBearish
}

// Catalog 策略目录。
type Catalog struct {
	Strategies []Strategy `yaml:"strategies"`
}

// LoadCatalog 从 YAML 文件读取策略目录并校验。
func LoadCatalog(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取策略目录失败: %w", err)
	}
	var cat Catalog
	if err := yaml.Unmarshal(raw, &cat); err != nil {
		return nil, fmt.Errorf("解析策略目录失败: %w", err)
	}
	if err := cat.validate(); err != nil {
		return nil, err
	}
	return &cat, nil
}

// DefaultCatalog 内置目录，覆盖行权价阶梯支持的全部结构模板。
func DefaultCatalog() *Catalog {
	return &Catalog{Strategies: []Strategy{
		{
			Name: "iron_condor", Structure: "Iron Condor", Family: FamilyCredit,
			Direction: DirectionNeutral, RRKey: "iron_condor", PwKey: "credit",
			SetupQuality: QualityHigh, Description: "双边卖权利金，吃区间震荡",
		},
		{
			Name: "bull_call_spread", Structure: "Bull Call Spread", Family: FamilyDebit,
			Direction: DirectionBullish, RRKey: "bull_call_spread", PwKey: "debit",
			SetupQuality: QualityMedium, Description: "看涨垂直价差",
		},
		{
			Name: "bear_put_spread", Structure: "Bear Put Spread", Family: FamilyDebit,
			Direction: DirectionBearish, RRKey: "bull_call_spread", PwKey: "debit",
			SetupQuality: QualityMedium, Description: "看跌垂直价差",
		},
		{
			Name: "long_call", Structure: "Long Call", Family: FamilyLong,
			Direction: DirectionBullish, PwKey: "debit",
			SetupQuality: QualityLow, Description: "单腿买购，高赔率低胜率",
		},
		{
			Name: "long_put", Structure: "Long Put", Family: FamilyLong,
			Direction: DirectionBearish, PwKey: "debit",
			SetupQuality: QualityLow, Description: "单腿买沽",
		},
		{
			Name: "iron_butterfly", Structure: "Iron Butterfly", Family: FamilyButterfly,
			Direction: DirectionNeutral, PwKey: "butterfly",
			SetupQuality: QualityMedium, Description: "钉住聚集峰的蝶式",
		},
	}}
}

func (c *Catalog) validate() error {
	if len(c.Strategies) == 0 {
		return fmt.Errorf("策略目录不能为空")
	}
	seen := make(map[string]bool, len(c.Strategies))
	for i, s := range c.Strategies {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("strategies[%d].name 必填", i)
		}
		if seen[s.Name] {
			return fmt.Errorf("策略名重复: %s", s.Name)
		}
		seen[s.Name] = true
		switch s.Family {
		case FamilyCredit, FamilyDebit, FamilyButterfly, FamilyLong:
		default:
			return fmt.Errorf("策略 %s family 非法: %q", s.Name, s.Family)
		}
		switch s.Direction {
		case DirectionBullish, DirectionBearish, DirectionNeutral:
		default:
			return fmt.Errorf("策略 %s direction 非法: %q", s.Name, s.Direction)
		}
		switch s.SetupQuality {
		case "", QualityHigh, QualityMedium, QualityLow:
		default:
			return fmt.Errorf("策略 %s setup_quality 非法: %q", s.Name, s.SetupQuality)
		}
	}
	return nil
}
