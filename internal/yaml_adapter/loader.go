// Package yaml_adapter loads entity definitions from YAML files. Formula
// strings use the same expression grammar as HCL entity files and are
// translated by hcl_adapter.
package yaml_adapter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/vk/formulagrid/internal/config"
	"github.com/vk/formulagrid/internal/ctxlog"
	"github.com/vk/formulagrid/internal/expr"
	"github.com/vk/formulagrid/internal/hcl_adapter"
	"gopkg.in/yaml.v3"
)

// Loader is the YAML implementation of config.Loader.
type Loader struct{}

// NewLoader creates a new YAML entity loader.
func NewLoader() *Loader {
	return &Loader{}
}

var _ config.Loader = (*Loader)(nil)

// Extensions implements config.Loader.
func (l *Loader) Extensions() []string {
	return []string{".yaml", ".yml"}
}

// Load decodes every file and translates its entities.
func (l *Loader) Load(ctx context.Context, files ...string) (*config.Model, error) {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("YAML loader started.", "file_count", len(files))

	model := &config.Model{}
	for _, file := range files {
		root, err := decodeFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to decode YAML file %s: %w", file, err)
		}
		var diags hcl.Diagnostics
		for _, doc := range root.Entities {
			entity, entityDiags := translateEntity(file, doc)
			diags = diags.Extend(entityDiags)
			if entity != nil {
				model.Entities = append(model.Entities, entity)
			}
		}
		if diags.HasErrors() {
			return nil, fmt.Errorf("invalid entities in YAML file %s: %w", file, diags)
		}
	}

	logger.Debug("YAML loading complete.", "entities", len(model.Entities))
	return model, nil
}

func decodeFile(path string) (*fileRoot, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var root fileRoot
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&root); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &root, nil
}

func translateEntity(file string, doc *entityDoc) (*config.Entity, hcl.Diagnostics) {
	declRange := pointRange(file, doc.line, doc.column)
	var diags hcl.Diagnostics
	if !hclsyntax.ValidIdentifier(doc.Name) {
		diags = diags.Append(diagf(declRange, "Invalid entity name", "%q is not a valid identifier; formulas could not reference it.", doc.Name))
	}

	entity := &config.Entity{
		Name:        doc.Name,
		Description: doc.Description,
		DeclRange:   declRange,
	}
	hasFormula := doc.Value != nil || len(doc.Steps) > 0
	switch {
	case hasFormula && len(doc.Outputs) > 0:
		diags = diags.Append(diagf(declRange, "Conflicting entity definition", "An entity defines either a value (or steps) or outputs, not both."))

	case len(doc.Outputs) > 0:
		seen := make(map[string]struct{}, len(doc.Outputs))
		for _, od := range doc.Outputs {
			if _, dup := seen[od.Name]; dup {
				diags = diags.Append(diagf(declRange, "Duplicate output", "Entity %q already defines an output named %q.", doc.Name, od.Name))
				continue
			}
			seen[od.Name] = struct{}{}
			if !hclsyntax.ValidIdentifier(od.Name) {
				diags = diags.Append(diagf(declRange, "Invalid output name", "%q is not a valid identifier.", od.Name))
				continue
			}
			out, outDiags := translateFormula(file, od.Name, od.Value, od.Steps, declRange)
			diags = diags.Extend(outDiags)
			if out == nil {
				continue
			}
			// An output without its own depends_on inherits the entity's.
			deps := od.DependsOn
			if deps == nil {
				deps = doc.DependsOn
			}
			out.DependsOn = dependsOn(deps)
			entity.Outputs = append(entity.Outputs, out)
		}

	default:
		out, outDiags := translateFormula(file, "", doc.Value, doc.Steps, declRange)
		diags = diags.Extend(outDiags)
		if out != nil {
			out.DependsOn = dependsOn(doc.DependsOn)
			entity.Outputs = append(entity.Outputs, out)
		}
	}

	if diags.HasErrors() {
		return nil, diags
	}
	return entity, diags
}

func translateFormula(file, name string, value *formula, steps []*formula, declRange hcl.Range) (*config.Output, hcl.Diagnostics) {
	label := "The entity"
	if name != "" {
		label = fmt.Sprintf("Output %q", name)
	}
	switch {
	case value != nil && len(steps) > 0:
		return nil, hcl.Diagnostics{diagf(declRange, "Conflicting formula", "%s sets both value and steps; only one is allowed.", label)}
	case value == nil && len(steps) == 0:
		return nil, hcl.Diagnostics{diagf(declRange, "Missing formula", "%s must set either value or steps.", label)}
	}

	if value != nil {
		n, diags := hcl_adapter.ParseFormula(value.Src, file, value.pos())
		if diags.HasErrors() {
			return nil, diags
		}
		return &config.Output{Name: name, Formula: n, DeclRange: pointRange(file, value.line, value.column)}, nil
	}

	block := &expr.Block{}
	var diags hcl.Diagnostics
	for _, step := range steps {
		n, stepDiags := hcl_adapter.ParseFormula(step.Src, file, step.pos())
		diags = diags.Extend(stepDiags)
		block.Steps = append(block.Steps, n)
	}
	if diags.HasErrors() {
		return nil, diags
	}
	return &config.Output{Name: name, Formula: block, DeclRange: pointRange(file, steps[0].line, steps[0].column)}, nil
}

// dependsOn turns an optional YAML list into the model's nil-or-slice form.
func dependsOn(deps *[]string) []string {
	if deps == nil {
		return nil
	}
	if *deps == nil {
		return []string{}
	}
	return *deps
}

func pointRange(file string, line, column int) hcl.Range {
	pos := hcl.Pos{Line: line, Column: column}
	return hcl.Range{Filename: file, Start: pos, End: pos}
}

func diagf(rng hcl.Range, summary, format string, args ...any) *hcl.Diagnostic {
	return &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   fmt.Sprintf(format, args...),
		Subject:  rng.Ptr(),
	}
}
