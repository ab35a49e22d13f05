package model

import "gorm.io/datatypes"

// SnapshotModel 每个标的一行：工作副本 + 最近一次确认副本。
type SnapshotModel struct {
	ID               int64          `gorm:"column:id;primaryKey"`
	Symbol           string         `gorm:"column:symbol;uniqueIndex"`
	WorkingJSON      datatypes.JSON `gorm:"column:working_json"`
	ConfirmedJSON    datatypes.JSON `gorm:"column:confirmed_json"`
	CompletenessRate float64        `gorm:"column:completeness_rate"`
	IsComplete       int            `gorm:"column:is_complete"`
	MergeCount       int            `gorm:"column:merge_count"`
	TraceID          string         `gorm:"column:trace_id"`
	FirstSeenUnix    int64          `gorm:"column:first_seen"`
	UpdatedAtUnix    int64          `gorm:"column:updated_at"`
}

func (SnapshotModel) TableName() string { return "symbol_snapshots" }

// MergeLogModel 记录每次合并的审计信息。
type MergeLogModel struct {
	ID               int64   `gorm:"column:id;primaryKey"`
	Symbol           string  `gorm:"column:symbol;index"`
	TraceID          string  `gorm:"column:trace_id;index"`
	Outcome          string  `gorm:"column:outcome"`
	Round            int     `gorm:"column:round"`
	FieldsAdded      int     `gorm:"column:fields_added"`
	FieldsUpdated    int     `gorm:"column:fields_updated"`
	FieldsPreserved  int     `gorm:"column:fields_preserved"`
	InvalidRejected  int     `gorm:"column:invalid_rejected"`
	CompletenessRate float64 `gorm:"column:completeness_rate"`
	Reason           string  `gorm:"column:reason"`
	CreatedAtUnix    int64   `gorm:"column:created_at;index"`
}

func (MergeLogModel) TableName() string { return "merge_log" }

// ConfirmedHistoryModel 确认快照的历史版本，供漂移基线回溯。
type ConfirmedHistoryModel struct {
	ID               int64          `gorm:"column:id;primaryKey"`
	Symbol           string         `gorm:"column:symbol;index"`
	RecordJSON       datatypes.JSON `gorm:"column:record_json"`
	CompletenessRate float64        `gorm:"column:completeness_rate"`
	TraceID          string         `gorm:"column:trace_id"`
	CreatedAtUnix    int64          `gorm:"column:created_at;index"`
}

func (ConfirmedHistoryModel) TableName() string { return "confirmed_history" }
