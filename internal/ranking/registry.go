package ranking

import (
	"sync"

	"gexwatch/internal/logger"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Registry 持有当前生效的策略目录，支持文件热更新。
// 目录文件被改写时自动重载；解析或校验失败则保留旧目录继续服务。
type Registry struct {
	mu      sync.RWMutex
	catalog *Catalog
	v       *viper.Viper
}

// NewRegistry 从 path 加载目录并开启监听。path 为空时使用内置目录，不监听。
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{}
	if path == "" {
		r.catalog = DefaultCatalog()
		return r, nil
	}
	cat, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}
	r.catalog = cat

	v := viper.New()
	v.SetConfigFile(path)
	v.OnConfigChange(func(e fsnotify.Event) {
		next, err := LoadCatalog(e.Name)
		if err != nil {
			logger.Warnf("策略目录热更新失败，沿用旧目录: %v", err)
			return
		}
		r.mu.Lock()
		r.catalog = next
		r.mu.Unlock()
		logger.Infof("策略目录已热更新: %d 个候选", len(next.Strategies))
	})
	v.WatchConfig()
	r.v = v
	return r, nil
}

// Strategies 返回当前目录的候选副本。
func (r *Registry) Strategies() []Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Strategy, len(r.catalog.Strategies))
	copy(out, r.catalog.Strategies)
	return out
}
