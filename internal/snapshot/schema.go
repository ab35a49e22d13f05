package snapshot

import (
	"fmt"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// 中文说明：
// Extractor 输出的结构校验。只约束形状（对象/数值/枚举类型），
// 不约束取值——字段级的有效性由哨兵判定负责。
// 数值叶子允许字符串形态，字符串到数值的归一在解析层完成。

const payloadSchemaJSON = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "properties": {
    "symbol": {"type": "string"},
    "spot_price": {"type": ["number", "string", "null"]},
    "walls": {
      "type": "object",
      "properties": {
        "call_wall": {"type": ["number", "string", "null"]},
        "put_wall": {"type": ["number", "string", "null"]},
        "major_wall": {"type": ["number", "string", "null"]},
        "major_wall_type": {"type": "string"}
      }
    },
    "gamma_metrics": {
      "type": "object",
      "properties": {
        "vol_trigger": {"type": ["number", "string", "null"]},
        "spot_vs_trigger": {"type": "string"},
        "net_gex": {"type": ["number", "string", "null"]},
        "net_gex_sign": {"type": "string"},
        "gap_distance_dollar": {"type": ["number", "string", "null"]},
        "gap_distance_em1_multiple": {"type": ["number", "string", "null"]},
        "cluster_strength_ratio": {"type": ["number", "string", "null"]},
        "nearby_peak": {"$ref": "#/$defs/cluster"},
        "next_cluster_peak": {"$ref": "#/$defs/cluster"},
        "weekly_cluster": {"$ref": "#/$defs/cluster"},
        "monthly_cluster": {"$ref": "#/$defs/cluster"},
        "monthly_cluster_override": {"type": ["boolean", "null"]}
      }
    },
    "directional_metrics": {
      "type": "object",
      "properties": {
        "dex_same_dir_pct": {"type": ["number", "string", "null"]},
        "vanna_dir": {"type": "string"},
        "vanna_confidence": {"type": "string"},
        "iv_path": {"type": "string"},
        "iv_path_confidence": {"type": "string"}
      }
    },
    "atm_iv": {
      "type": "object",
      "properties": {
        "iv_7d": {"type": ["number", "string", "null"]},
        "iv_14d": {"type": ["number", "string", "null"]},
        "iv_30d": {"type": ["number", "string", "null"]},
        "iv_source": {"type": "string"}
      }
    },
    "validation_metrics": {
      "type": "object",
      "properties": {
        "net_volume_signal": {"type": "string"},
        "net_vega_exposure": {"type": "string"}
      }
    }
  },
  "$defs": {
    "cluster": {
      "type": ["object", "null"],
      "properties": {
        "price": {"type": ["number", "string", "null"]},
        "abs_gex": {"type": ["number", "string", "null"]}
      }
    }
  }
}`

var payloadSchema = jsonschema.MustCompileString("target_record.json", payloadSchemaJSON)

// ValidateShape 对定位后的记录节点做形状校验。
func ValidateShape(doc any) error {
	if err := payloadSchema.Validate(doc); err != nil {
		var ve *jsonschema.ValidationError
		if ok := asValidationError(err, &ve); ok {
			return fmt.Errorf("快照形状校验失败: %s", flattenCause(ve))
		}
		return fmt.Errorf("快照形状校验失败: %w", err)
	}
	return nil
}

func asValidationError(err error, target **jsonschema.ValidationError) bool {
	ve, ok := err.(*jsonschema.ValidationError)
	if ok {
		*target = ve
	}
	return ok
}

func flattenCause(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		loc = "(root)"
	}
	return fmt.Sprintf("%s: %s", loc, ve.Message)
}
