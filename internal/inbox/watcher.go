package inbox

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gexwatch/internal/aggregate"
	"gexwatch/internal/logger"
	"gexwatch/internal/snapshot"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
)

// 中文说明：
// 收件箱监听器。Extractor 把解析好的快照 JSON 丢进目录，
// 这里监听新文件、解析并交给聚合器合并。处理完的文件改名加 .done 后缀，
// 避免进程重启后重复摄入。

const settleDelay = 200 * time.Millisecond // 等写入方把文件写完

// MergeHook 合并完成后的回调（完整度驱动的下游分析由 app 层挂载）。
type MergeHook func(ctx context.Context, symbol string, res aggregate.Result)

type Watcher struct {
	dir     string
	agg     *aggregate.Aggregator
	fw      *fsnotify.Watcher
	onMerge MergeHook
}

func NewWatcher(dir string, agg *aggregate.Aggregator, onMerge MergeHook) (*Watcher, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("inbox 目录必填")
	}
	if agg == nil {
		return nil, fmt.Errorf("inbox 需要聚合器")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建 inbox 目录失败: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("监听 inbox 目录失败: %w", err)
	}
	return &Watcher{dir: dir, agg: agg, fw: fw, onMerge: onMerge}, nil
}

// Run 阻塞运行直到 ctx 取消。启动时先补扫目录里的存量文件。
func (w *Watcher) Run(ctx context.Context) error {
	w.sweep(ctx)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case evt, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if !evt.Op.Has(fsnotify.Create) && !evt.Op.Has(fsnotify.Write) {
				continue
			}
			if !isPayloadFile(evt.Name) {
				continue
			}
			time.Sleep(settleDelay)
			w.ingest(ctx, evt.Name)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			// 监听故障不终止循环
			logger.Warnf("inbox 监听错误: %v", err)
		}
	}
}

func (w *Watcher) Close() error {
	return w.fw.Close()
}

// sweep 摄入目录中已有的待处理文件。
func (w *Watcher) sweep(ctx context.Context) {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warnf("扫描 inbox 目录失败: %v", err)
		return
	}
	for _, e := range entries {
		if e.IsDir() || !isPayloadFile(e.Name()) {
			continue
		}
		w.ingest(ctx, filepath.Join(w.dir, e.Name()))
	}
}

// ingest 单个文件：解析失败只改名隔离，绝不让坏负载打断监听循环。
func (w *Watcher) ingest(ctx context.Context, path string) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("读取负载失败 %s: %v", path, err)
		}
		return
	}
	rec, err := snapshot.ParsePayload(raw)
	if err != nil {
		logger.Warnf("负载解析失败 %s: %v", filepath.Base(path), err)
		w.markDone(path, ".bad")
		return
	}

	traceID := uuid.NewString()
	res, err := w.agg.Merge(ctx, rec.Symbol, rec, traceID)
	if err != nil {
		// 存储故障：文件留在原地，等下一轮补扫重试
		logger.Errorf("合并失败 %s (%s): %v", rec.Symbol, traceID, err)
		return
	}
	logger.Infof("inbox 摄入 %s: %s 完整度 %d%%", rec.Symbol, res.Outcome, res.Completeness.Rate)
	w.markDone(path, ".done")
	if w.onMerge != nil {
		w.onMerge(ctx, rec.Symbol, res)
	}
}

func (w *Watcher) markDone(path, suffix string) {
	if err := os.Rename(path, path+suffix); err != nil {
		logger.Warnf("归档负载失败 %s: %v", path, err)
	}
}

func isPayloadFile(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".json")
}
