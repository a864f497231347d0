package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher 监听配置文件变更并回调最新配置。
// 带冷却时间，避免编辑器连续写入触发频繁重载。
type Watcher struct {
	Path     string
	Cooldown time.Duration
}

// Start 开始监听；onUpdate 在配置变更且校验通过后收到新配置。
// 解析失败或校验失败的变更被忽略，当前配置继续生效。
func (w Watcher) Start(ctx context.Context, onUpdate func(AppConfig)) error {
	if w.Cooldown <= 0 {
		w.Cooldown = 5 * time.Second
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// 监听目录：部分编辑器用 rename+create 方式写文件。
	dir := filepath.Dir(w.Path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	var lastReload time.Time
	target := filepath.Clean(w.Path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if time.Since(lastReload) < w.Cooldown {
				continue
			}
			cfg, err := LoadWithEnvOverrides(w.Path)
			if err != nil {
				continue
			}
			lastReload = time.Now()
			if onUpdate != nil {
				onUpdate(cfg)
			}
		case _, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
		}
	}
}
