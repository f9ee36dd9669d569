package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/vk/formulagrid/internal/ctxlog"
	"github.com/vk/formulagrid/internal/fsutil"
)

// Registry dispatches entity files to the Loader registered for their
// extension and merges the results into one Model.
type Registry struct {
	loaders map[string]Loader
}

// NewRegistry creates a Registry from loaders. Two loaders claiming the same
// extension is an error.
func NewRegistry(loaders ...Loader) (*Registry, error) {
	r := &Registry{loaders: make(map[string]Loader)}
	for _, l := range loaders {
		for _, ext := range l.Extensions() {
			if _, exists := r.loaders[ext]; exists {
				return nil, fmt.Errorf("extension %q is claimed by more than one loader", ext)
			}
			r.loaders[ext] = l
		}
	}
	return r, nil
}

// Extensions returns every registered extension, sorted.
func (r *Registry) Extensions() []string {
	exts := make([]string, 0, len(r.loaders))
	for ext := range r.loaders {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// Load discovers the entity files under paths and loads them. Directories
// are searched for every registered extension; files named explicitly must
// have a registered extension.
func (r *Registry) Load(ctx context.Context, paths ...string) (*Model, error) {
	logger := ctxlog.FromContext(ctx)
	if len(r.loaders) == 0 {
		return nil, fmt.Errorf("no loaders registered")
	}

	files, err := fsutil.FindFiles(paths, r.Extensions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to discover entity files: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no entity files found in %v", paths)
	}

	// Group files per loader, keeping the first-seen loader order so
	// the merged entity order is stable.
	var order []Loader
	groups := make(map[Loader][]string)
	for _, f := range files {
		l, ok := r.loaders[filepath.Ext(f)]
		if !ok {
			return nil, fmt.Errorf("no loader registered for %s", f)
		}
		if _, seen := groups[l]; !seen {
			order = append(order, l)
		}
		groups[l] = append(groups[l], f)
	}

	model := &Model{}
	for _, l := range order {
		logger.Debug("Loading entity files.", "files", groups[l])
		m, err := l.Load(ctx, groups[l]...)
		if err != nil {
			return nil, err
		}
		model.Merge(m)
	}
	logger.Info("Entity files loaded.", "files", len(files), "model", model.String())
	return model, nil
}
