package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"gexwatch/internal/aggregate"
	"gexwatch/internal/app"
	gwcfg "gexwatch/internal/config"
	"gexwatch/internal/inbox"
	"gexwatch/internal/logger"
	"gexwatch/internal/notifier"
	"gexwatch/internal/ranking"
	"gexwatch/internal/store/driftlog"
	"gexwatch/internal/store/gormstore"
	apihttp "gexwatch/internal/transport/http"

	"golang.org/x/sync/errgroup"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfgPath := os.Getenv("GEXWATCH_CONFIG")
	if cfgPath == "" {
		cfgPath = "configs/config.yaml"
	}

	cfg, err := gwcfg.Load(cfgPath)
	if err != nil {
		log.Fatalf("读取配置失败: %v", err)
	}
	logFile, err := setupLogOutput(cfg.App.LogPath)
	if err != nil {
		log.Fatalf("初始化日志文件失败: %v", err)
	}
	if logFile != nil {
		defer logFile.Close()
	}
	logger.SetLevel(cfg.App.LogLevel)
	logger.Infof("✓ 配置加载成功（环境=%s）", cfg.App.Env)

	st, err := gormstore.NewGormStore(cfg.Storage.SnapshotDB)
	if err != nil {
		log.Fatalf("初始化快照库失败: %v", err)
	}
	defer st.Close()

	var dl *driftlog.DriftLogStore
	if strings.TrimSpace(cfg.Storage.DriftLogDB) != "" {
		dl, err = driftlog.NewDriftLogStore(cfg.Storage.DriftLogDB)
		if err != nil {
			log.Fatalf("初始化漂移日志库失败: %v", err)
		}
		defer dl.Close()
	}

	registry, err := ranking.NewRegistry(cfg.Catalog.Path)
	if err != nil {
		log.Fatalf("加载策略目录失败: %v", err)
	}

	var notify notifier.TextNotifier = notifier.Nop{}
	if cfg.Notify.Telegram.Enabled {
		notify = notifier.NewTelegram(cfg.Notify.Telegram)
	}

	pipeline := app.NewPipeline(cfg, st, dl, registry, notify)

	server, err := apihttp.NewServer(apihttp.ServerConfig{
		Addr:     cfg.App.HTTPAddr,
		Pipeline: pipeline,
		Store:    st,
	})
	if err != nil {
		log.Fatalf("初始化 HTTP 服务失败: %v", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Infof("HTTP 服务启动 %s", server.Addr())
		return server.Start(gctx)
	})

	if cfg.Inbox.Enabled {
		watcher, err := inbox.NewWatcher(cfg.Inbox.Dir, pipeline.Aggregator(), func(hctx context.Context, sym string, res aggregate.Result) {
			if res.Promoted {
				pipeline.OnPromotion(hctx, sym)
			}
		})
		if err != nil {
			log.Fatalf("初始化 inbox 监听失败: %v", err)
		}
		defer watcher.Close()
		g.Go(func() error {
			logger.Infof("inbox 监听启动 %s", cfg.Inbox.Dir)
			return watcher.Run(gctx)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Fatalf("运行失败: %v", err)
	}
	logger.Infof("服务退出")
}

func setupLogOutput(path string) (*os.File, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, nil
	}
	dir := filepath.Dir(trimmed)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	file, err := os.OpenFile(trimmed, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	mw := io.MultiWriter(os.Stdout, file)
	log.SetOutput(mw)
	logger.SetOutput(mw)
	return file, nil
}
