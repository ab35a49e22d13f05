package quant

import "errors"

var (
	// ErrMissingCoreField spot 或 EM1 缺失/为零，前置条件不满足。
	ErrMissingCoreField = errors.New("missing core field")

	// ErrUnmappedConfig 配置查表未命中（如 IVR 超出分桶范围）。
	// 必须显式失败，不允许静默取默认值。
	ErrUnmappedConfig = errors.New("unmapped configuration")
)
