package store

import (
	"context"
	"time"

	"gexwatch/internal/snapshot"
)

// MergeOutcome 合并结果分类。
type MergeOutcome string

const (
	MergeOutcomeFirstParse       MergeOutcome = "first_parse"
	MergeOutcomeIncrementalMerge MergeOutcome = "incremental_merge"
	MergeOutcomeMergeFailed      MergeOutcome = "merge_failed"
)

// MergeLogEntry 一次合并的审计记录。
type MergeLogEntry struct {
	Symbol           string
	TraceID          string
	Outcome          MergeOutcome
	Round            int
	FieldsAdded      int
	FieldsUpdated    int
	FieldsPreserved  int
	InvalidRejected  int
	CompletenessRate float64
	Reason           string
	CreatedAt        time.Time
}

// WorkingState 标的当前工作副本的持久化视图。
type WorkingState struct {
	Record           *snapshot.TargetRecord
	CompletenessRate float64
	IsComplete       bool
	MergeCount       int
	TraceID          string
	FirstSeen        time.Time
	UpdatedAt        time.Time
}

// ConfirmedVersion 一个历史确认版本。
type ConfirmedVersion struct {
	Record           *snapshot.TargetRecord
	CompletenessRate float64
	TraceID          string
	CreatedAt        time.Time
}

// SnapshotStore 负责快照聚合状态的落盘。
type SnapshotStore interface {
	// SaveWorking 覆盖写入某标的的工作副本。
	SaveWorking(ctx context.Context, symbol string, state WorkingState) error
	// LoadWorking 读取工作副本；不存在时 ok=false。
	LoadWorking(ctx context.Context, symbol string) (WorkingState, bool, error)
	// PromoteConfirmed 将完整的工作副本提升为确认副本，并追加历史版本。
	PromoteConfirmed(ctx context.Context, symbol string, v ConfirmedVersion) error
	// LoadConfirmed 读取最近一次确认副本；从未确认过时 ok=false。
	LoadConfirmed(ctx context.Context, symbol string) (ConfirmedVersion, bool, error)
	// ListConfirmedHistory 按时间倒序返回确认历史。
	ListConfirmedHistory(ctx context.Context, symbol string, limit int) ([]ConfirmedVersion, error)
	// ListSymbols 返回当前跟踪的全部标的。
	ListSymbols(ctx context.Context) ([]string, error)

	AppendMergeLog(ctx context.Context, entry MergeLogEntry) error
	ListMergeLog(ctx context.Context, symbol string, limit int) ([]MergeLogEntry, error)

	Close() error
}
