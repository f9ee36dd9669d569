package hcl_adapter

import (
	"github.com/hashicorp/hcl/v2"
)

// fileSchema lists the top-level blocks of an entity file.
var fileSchema = &hcl.BodySchema{
	Blocks: []hcl.BlockHeaderSchema{
		{Type: "entity", LabelNames: []string{"name"}},
	},
}

// entityBody is the content of an `entity "name" { ... }` block. An entity
// either has a single formula (value or steps) or one or more output blocks.
type entityBody struct {
	Description string         `hcl:"description,optional"`
	DependsOn   hcl.Expression `hcl:"depends_on,optional"`
	Value       hcl.Expression `hcl:"value,optional"`
	Steps       hcl.Expression `hcl:"steps,optional"`
	Outputs     []*outputBlock `hcl:"output,block"`
}

// outputBlock is one named formula of an entity.
type outputBlock struct {
	Name      string         `hcl:"name,label"`
	DependsOn hcl.Expression `hcl:"depends_on,optional"`
	Value     hcl.Expression `hcl:"value,optional"`
	Steps     hcl.Expression `hcl:"steps,optional"`
}
