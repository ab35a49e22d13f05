package gormstore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"gexwatch/internal/snapshot"
	"gexwatch/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *GormStore {
	t.Helper()
	st, err := NewGormStore(filepath.Join(t.TempDir(), "snapshots.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleRecord(spot float64) *snapshot.TargetRecord {
	rec := &snapshot.TargetRecord{}
	rec.Symbol = "AAPL"
	rec.SpotPrice = snapshot.Number(spot)
	rec.Walls.CallWall = snapshot.Number(spot + 10)
	return rec
}

func TestSaveAndLoadWorking(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveWorking(ctx, "aapl", store.WorkingState{
		Record:           sampleRecord(180),
		CompletenessRate: 0.56,
		MergeCount:       1,
		TraceID:          "t-1",
	}))

	ws, ok, err := st.LoadWorking(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "AAPL", ws.Record.Symbol)
	require.NotNil(t, ws.Record.SpotPrice)
	assert.InDelta(t, 180, *ws.Record.SpotPrice, 1e-9)
	assert.InDelta(t, 0.56, ws.CompletenessRate, 1e-9)
	assert.Equal(t, 1, ws.MergeCount)

	// 覆盖写入走 upsert，不新增行
	require.NoError(t, st.SaveWorking(ctx, "AAPL", store.WorkingState{
		Record:           sampleRecord(182),
		CompletenessRate: 0.88,
		MergeCount:       2,
		TraceID:          "t-2",
	}))
	ws, ok, err = st.LoadWorking(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 182, *ws.Record.SpotPrice, 1e-9)
	assert.Equal(t, 2, ws.MergeCount)

	symbols, err := st.ListSymbols(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL"}, symbols)
}

func TestLoadWorkingMissing(t *testing.T) {
	st := newStore(t)
	_, ok, err := st.LoadWorking(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestPromoteConfirmedKeepsHistory(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	require.NoError(t, st.SaveWorking(ctx, "AAPL", store.WorkingState{Record: sampleRecord(180)}))

	base := time.Now().Add(-time.Hour)
	for i, spot := range []float64{180, 181, 182} {
		require.NoError(t, st.PromoteConfirmed(ctx, "AAPL", store.ConfirmedVersion{
			Record:    sampleRecord(spot),
			TraceID:   "t",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	cv, ok, err := st.LoadConfirmed(ctx, "AAPL")
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 182, *cv.Record.SpotPrice, 1e-9)

	// 历史按时间倒序，最新在前
	history, err := st.ListConfirmedHistory(ctx, "AAPL", 2)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.InDelta(t, 182, *history[0].Record.SpotPrice, 1e-9)
	assert.InDelta(t, 181, *history[1].Record.SpotPrice, 1e-9)
}

func TestPromoteConfirmedRequiresWorkingRow(t *testing.T) {
	st := newStore(t)
	err := st.PromoteConfirmed(context.Background(), "GME", store.ConfirmedVersion{Record: sampleRecord(25)})
	require.Error(t, err)
}

func TestMergeLogRoundTrip(t *testing.T) {
	st := newStore(t)
	ctx := context.Background()

	for round := 1; round <= 3; round++ {
		require.NoError(t, st.AppendMergeLog(ctx, store.MergeLogEntry{
			Symbol:           "NVDA",
			TraceID:          "t",
			Outcome:          store.MergeOutcomeIncrementalMerge,
			Round:            round,
			FieldsAdded:      round,
			CompletenessRate: float64(round) / 3,
			CreatedAt:        time.Now().Add(time.Duration(round) * time.Second),
		}))
	}

	entries, err := st.ListMergeLog(ctx, "nvda", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 3, entries[0].Round)
	assert.Equal(t, store.MergeOutcomeIncrementalMerge, entries[0].Outcome)
}
