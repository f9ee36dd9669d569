package hcl_adapter

import (
	"context"
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/vk/formulagrid/internal/config"
	"github.com/vk/formulagrid/internal/ctxlog"
)

// Loader is the HCL-specific implementation of the config.Loader interface.
type Loader struct{}

// NewLoader creates a new HCL entity loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".hcl"}
}

// Load parses every file and translates its entity blocks. All problems of
// one file are reported together as hcl.Diagnostics.
func (l *Loader) Load(ctx context.Context, files ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("HCL loader started.", "file_count", len(files))

	model := &config.Model{}
	parser := hclparse.NewParser()

	for _, file := range files {
		hclFile, diags := parser.ParseHCLFile(file)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to parse HCL file %s: %w", file, diags)
		}
		entities, diags := l.decodeFile(ctx, hclFile)
		if diags.HasErrors() {
			return nil, fmt.Errorf("failed to decode HCL file %s: %w", file, diags)
		}
		model.Entities = append(model.Entities, entities...)
	}

	logger.Debug("HCL loading complete.", "entities", len(model.Entities))
	return model, nil
}

func (l *Loader) decodeFile(ctx context.Context, file *hcl.File) ([]*config.Entity, hcl.Diagnostics) {
	content, diags := file.Body.Content(fileSchema)
	if diags.HasErrors() {
		return nil, diags
	}
	var entities []*config.Entity
	for _, block := range content.Blocks {
		entity, entityDiags := l.translateEntity(ctx, block)
		diags = diags.Extend(entityDiags)
		if entity != nil {
			entities = append(entities, entity)
		}
	}
	return entities, diags
}
