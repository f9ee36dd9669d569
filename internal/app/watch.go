package app

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch runs the evaluation once and again after every change to an entity
// file, until ctx is done. Failed runs are logged and do not stop watching.
func (a *App) Watch(ctx context.Context) error {
	ctx = a.context(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	dirs, err := watchDirs(a.config.EntityPaths)
	if err != nil {
		return err
	}
	for _, dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}
	a.logger.Info("Watching entity files.", "dirs", len(dirs))

	if a.config.ListenAddr != "" {
		a.startServer(ctx, a.config.ListenAddr)
	}

	a.runLogged(ctx)
	extensions := a.loader.Extensions()
	var rerun <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			a.logger.Info("Watch stopped.")
			return nil

		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = watcher.Add(ev.Name)
					continue
				}
			}
			if !slices.Contains(extensions, filepath.Ext(ev.Name)) {
				continue
			}
			a.logger.Debug("Entity file changed.", "file", ev.Name, "op", ev.Op.String())
			rerun = time.After(a.watchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			a.logger.Warn("File watcher error.", "error", err)

		case <-rerun:
			rerun = nil
			a.runLogged(ctx)
		}
	}
}

func (a *App) runLogged(ctx context.Context) {
	report, err := a.Run(ctx)
	if err != nil {
		a.logger.Error("Run failed.", "error", err)
		return
	}
	a.logger.Info("Run finished.", "run_id", report.RunID, "failed", report.Failed)
}

// watchDirs returns every directory to watch: each directory path with its
// subdirectories, and the parent of each file path.
func watchDirs(paths []string) ([]string, error) {
	seen := make(map[string]struct{})
	var dirs []string
	add := func(dir string) {
		if _, ok := seen[dir]; !ok {
			seen[dir] = struct{}{}
			dirs = append(dirs, dir)
		}
	}
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", p, err)
		}
		if !info.IsDir() {
			add(filepath.Dir(p))
			continue
		}
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return dirs, nil
}
