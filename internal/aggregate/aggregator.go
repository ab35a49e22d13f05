package aggregate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"gexwatch/internal/logger"
	"gexwatch/internal/snapshot"
	"gexwatch/internal/store"
)

// Aggregator 增量合并器：把每次抽取到的（可能残缺的）快照合并进每个标的
// 的工作副本。同一标的的读-合并-写必须串行，由每标的互斥锁保证。
type Aggregator struct {
	store store.SnapshotStore

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Result 一次合并的输出。
type Result struct {
	Record          *snapshot.TargetRecord
	Completeness    snapshot.Completeness
	Outcome         store.MergeOutcome
	Round           int
	FieldsAdded     int
	FieldsUpdated   int
	FieldsPreserved int
	InvalidRejected int
	Promoted        bool
	FailureReason   string
}

// New 构造聚合器。
func New(st store.SnapshotStore) *Aggregator {
	return &Aggregator{
		store: st,
		locks: make(map[string]*sync.Mutex),
	}
}

func (a *Aggregator) symbolLock(symbol string) *sync.Mutex {
	a.mu.Lock()
	defer a.mu.Unlock()
	l, ok := a.locks[symbol]
	if !ok {
		l = &sync.Mutex{}
		a.locks[symbol] = l
	}
	return l
}

// Merge 把 incoming 合并进 symbol 的工作副本。每次调用恰好追加一条合并日志，
// 即便合并失败也会记录；失败时存量数据保持不变。
func (a *Aggregator) Merge(ctx context.Context, symbol string, incoming *snapshot.TargetRecord, traceID string) (Result, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if symbol == "" {
		return Result{}, fmt.Errorf("merge: symbol 必填")
	}
	if incoming == nil {
		return Result{}, fmt.Errorf("merge: incoming record 不能为空")
	}

	lock := a.symbolLock(symbol)
	lock.Lock()
	defer lock.Unlock()

	state, exists, err := a.store.LoadWorking(ctx, symbol)
	if err != nil {
		return Result{}, fmt.Errorf("读取工作副本失败: %w", err)
	}

	var res Result
	if !exists {
		res = a.firstParse(symbol, incoming)
	} else {
		res = mergeInto(state.Record, incoming)
		res.Round = state.MergeCount + 1
	}

	entry := store.MergeLogEntry{
		Symbol:           symbol,
		TraceID:          traceID,
		Outcome:          res.Outcome,
		Round:            res.Round,
		FieldsAdded:      res.FieldsAdded,
		FieldsUpdated:    res.FieldsUpdated,
		FieldsPreserved:  res.FieldsPreserved,
		InvalidRejected:  res.InvalidRejected,
		CompletenessRate: float64(res.Completeness.Rate),
		Reason:           res.FailureReason,
		CreatedAt:        time.Now(),
	}

	if res.Outcome == store.MergeOutcomeMergeFailed {
		// 存量不动，只记一笔失败日志。
		if err := a.store.AppendMergeLog(ctx, entry); err != nil {
			return Result{}, fmt.Errorf("写入合并日志失败: %w", err)
		}
		logger.Warnf("[%s] 合并失败: %s (trace=%s)", symbol, res.FailureReason, traceID)
		return res, nil
	}

	firstSeen := time.Now()
	if exists {
		firstSeen = state.FirstSeen
	}
	if err := a.store.SaveWorking(ctx, symbol, store.WorkingState{
		Record:           res.Record,
		CompletenessRate: float64(res.Completeness.Rate),
		IsComplete:       res.Completeness.IsComplete,
		MergeCount:       res.Round,
		TraceID:          traceID,
		FirstSeen:        firstSeen,
	}); err != nil {
		return Result{}, fmt.Errorf("落盘工作副本失败: %w", err)
	}

	if res.Completeness.IsComplete {
		if err := a.store.PromoteConfirmed(ctx, symbol, store.ConfirmedVersion{
			Record:           res.Record,
			CompletenessRate: float64(res.Completeness.Rate),
			TraceID:          traceID,
			CreatedAt:        time.Now(),
		}); err != nil {
			return Result{}, fmt.Errorf("提升确认副本失败: %w", err)
		}
		res.Promoted = true
		logger.Infof("[%s] 快照完整，已确认 (第%d轮, %d/%d 字段)",
			symbol, res.Round, res.Completeness.Provided, res.Completeness.Required)
	}

	if err := a.store.AppendMergeLog(ctx, entry); err != nil {
		return Result{}, fmt.Errorf("写入合并日志失败: %w", err)
	}
	logger.Debugf("[%s] 合并完成: %s 新增=%d 更新=%d 完整度=%d%%",
		symbol, res.Outcome, res.FieldsAdded, res.FieldsUpdated, res.Completeness.Rate)
	return res, nil
}

func (a *Aggregator) firstParse(symbol string, incoming *snapshot.TargetRecord) Result {
	rec := incoming.Clone()
	rec.Symbol = symbol
	return Result{
		Record:       rec,
		Completeness: snapshot.ComputeCompleteness(rec),
		Outcome:      store.MergeOutcomeFirstParse,
		Round:        1,
		FieldsAdded:  rec.CountValid(),
	}
}

// mergeInto 叶子级合并：新值有效才可能写入；有效值永远不会被无效值覆盖。
func mergeInto(existing, incoming *snapshot.TargetRecord) Result {
	if incoming.CountValid() == 0 {
		return Result{
			Record:        existing,
			Completeness:  snapshot.ComputeCompleteness(existing),
			Outcome:       store.MergeOutcomeMergeFailed,
			FailureReason: "新数据无有效字段",
		}
	}

	merged := existing.Clone()
	res := Result{Outcome: store.MergeOutcomeIncrementalMerge}

	oldLeaves := merged.Leaves()
	newLeaves := incoming.Leaves()
	for i := range oldLeaves {
		oldLeaf, newLeaf := oldLeaves[i], newLeaves[i]
		switch {
		case newLeaf.Valid() && !oldLeaf.Valid():
			oldLeaf.CopyFrom(newLeaf)
			res.FieldsAdded++
		case newLeaf.Valid() && !oldLeaf.Equal(newLeaf):
			// 后写覆盖：不做冲突仲裁，以最近一次抽取为准。
			oldLeaf.CopyFrom(newLeaf)
			res.FieldsUpdated++
		case newLeaf.Present() && !newLeaf.Valid() && oldLeaf.Valid():
			res.InvalidRejected++
			res.FieldsPreserved++
		case oldLeaf.Valid():
			res.FieldsPreserved++
		}
	}

	res.Record = merged
	res.Completeness = snapshot.ComputeCompleteness(merged)
	return res
}
