package yaml_adapter

import (
	"fmt"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"gopkg.in/yaml.v3"
)

// fileRoot is the top-level document of a YAML entity file.
type fileRoot struct {
	Entities []*entityDoc `yaml:"entities"`
}

type entityDoc struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description"`
	DependsOn   *[]string    `yaml:"depends_on"`
	Value       *formula     `yaml:"value"`
	Steps       []*formula   `yaml:"steps"`
	Outputs     []*outputDoc `yaml:"outputs"`

	line, column int
}

type outputDoc struct {
	Name      string     `yaml:"name"`
	DependsOn *[]string  `yaml:"depends_on"`
	Value     *formula   `yaml:"value"`
	Steps     []*formula `yaml:"steps"`
}

// UnmarshalYAML records where the entity starts for diagnostics. Node.Decode
// does not inherit the decoder's KnownFields setting, so keys are checked here.
func (e *entityDoc) UnmarshalYAML(value *yaml.Node) error {
	if err := checkKeys(value, "entity", "name", "description", "depends_on", "value", "steps", "outputs"); err != nil {
		return err
	}
	type plain entityDoc
	if err := value.Decode((*plain)(e)); err != nil {
		return err
	}
	e.line, e.column = value.Line, value.Column
	return nil
}

func (o *outputDoc) UnmarshalYAML(value *yaml.Node) error {
	if err := checkKeys(value, "output", "name", "depends_on", "value", "steps"); err != nil {
		return err
	}
	type plain outputDoc
	return value.Decode((*plain)(o))
}

func checkKeys(value *yaml.Node, what string, allowed ...string) error {
	if value.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: an %s must be a mapping, got a %s", value.Line, what, kindName(value.Kind))
	}
	for i := 0; i < len(value.Content); i += 2 {
		key := value.Content[i]
		if !slices.Contains(allowed, key.Value) {
			return fmt.Errorf("line %d: field %s not found in %s", key.Line, key.Value, what)
		}
	}
	return nil
}

// formula is formula source text together with its position in the file.
// Text values must be quoted inside the formula: value: '"bread"'.
type formula struct {
	Src          string
	line, column int
}

func (f *formula) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: a formula must be a scalar, got a %s", value.Line, kindName(value.Kind))
	}
	f.Src = value.Value
	f.line, f.column = value.Line, value.Column
	return nil
}

func (f *formula) pos() hcl.Pos {
	return hcl.Pos{Line: f.line, Column: f.column}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	case yaml.AliasNode:
		return "alias"
	case yaml.ScalarNode:
		return "scalar"
	default:
		return "document"
	}
}
