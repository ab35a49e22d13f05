package inbox

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"gexwatch/internal/aggregate"
	"gexwatch/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memStore 内存实现，只覆盖监听器测试用到的路径。
type memStore struct {
	mu      sync.Mutex
	working map[string]store.WorkingState
	logs    []store.MergeLogEntry
}

func newMemStore() *memStore {
	return &memStore{working: make(map[string]store.WorkingState)}
}

func (m *memStore) SaveWorking(_ context.Context, symbol string, ws store.WorkingState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.working[symbol] = ws
	return nil
}

func (m *memStore) LoadWorking(_ context.Context, symbol string) (store.WorkingState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ws, ok := m.working[symbol]
	return ws, ok, nil
}

func (m *memStore) PromoteConfirmed(context.Context, string, store.ConfirmedVersion) error {
	return nil
}

func (m *memStore) LoadConfirmed(context.Context, string) (store.ConfirmedVersion, bool, error) {
	return store.ConfirmedVersion{}, false, nil
}

func (m *memStore) ListConfirmedHistory(context.Context, string, int) ([]store.ConfirmedVersion, error) {
	return nil, nil
}

func (m *memStore) ListSymbols(context.Context) ([]string, error) { return nil, nil }

func (m *memStore) AppendMergeLog(_ context.Context, e store.MergeLogEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logs = append(m.logs, e)
	return nil
}

func (m *memStore) ListMergeLog(context.Context, string, int) ([]store.MergeLogEntry, error) {
	return nil, nil
}

func (m *memStore) Close() error { return nil }

func TestWatcherIngestsDroppedPayload(t *testing.T) {
	dir := t.TempDir()
	st := newMemStore()
	agg := aggregate.New(st)

	merged := make(chan aggregate.Result, 4)
	w, err := NewWatcher(dir, agg, func(_ context.Context, _ string, res aggregate.Result) {
		merged <- res
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	payload := `{"symbol": "AAPL", "spot_price": 180.5}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aapl_1.json"), []byte(payload), 0o644))

	select {
	case res := <-merged:
		assert.Equal(t, store.MergeOutcomeFirstParse, res.Outcome)
	case <-time.After(3 * time.Second):
		t.Fatal("监听器未在期限内摄入负载")
	}

	// 处理完的文件应被归档
	assert.Eventually(t, func() bool {
		_, err := os.Stat(filepath.Join(dir, "aapl_1.json.done"))
		return err == nil
	}, 2*time.Second, 50*time.Millisecond)

	st.mu.Lock()
	_, ok := st.working["AAPL"]
	logCount := len(st.logs)
	st.mu.Unlock()
	assert.True(t, ok)
	assert.Equal(t, 1, logCount)
}

func TestWatcherSweepsExistingFiles(t *testing.T) {
	dir := t.TempDir()
	// 启动前就躺在目录里的存量文件
	require.NoError(t, os.WriteFile(filepath.Join(dir, "tsla.json"), []byte(`{"symbol":"TSLA","spot_price":250}`), 0o644))

	st := newMemStore()
	merged := make(chan aggregate.Result, 1)
	w, err := NewWatcher(dir, aggregate.New(st), func(_ context.Context, _ string, res aggregate.Result) {
		merged <- res
	})
	require.NoError(t, err)
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	select {
	case <-merged:
	case <-time.After(3 * time.Second):
		t.Fatal("补扫未摄入存量文件")
	}
}

func TestWatcherQuarantinesBadPayload(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWatcher(dir, aggregate.New(newMemStore()), nil)
	require.NoError(t, err)
	defer w.Close()

	bad := filepath.Join(dir, "junk.json")
	require.NoError(t, os.WriteFile(bad, []byte("not json"), 0o644))
	w.ingest(context.Background(), bad)

	_, err = os.Stat(bad + ".bad")
	assert.NoError(t, err, "坏负载应被隔离而不是删除")
}

func TestNewWatcherValidation(t *testing.T) {
	_, err := NewWatcher("", aggregate.New(newMemStore()), nil)
	assert.Error(t, err)
	_, err = NewWatcher(t.TempDir(), nil, nil)
	assert.Error(t, err)
}
