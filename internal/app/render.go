package app

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/vk/formulagrid/internal/expr"
	"github.com/vk/formulagrid/internal/scheduler"
	"github.com/vk/formulagrid/internal/value"
	"github.com/zclconf/go-cty/cty"
	ctyjson "github.com/zclconf/go-cty/cty/json"
)

// Render formats a report as "json" or "text".
func Render(format string, report *scheduler.Report) ([]byte, error) {
	switch format {
	case "json":
		return RenderJSON(report)
	case "text":
		return []byte(RenderText(report)), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// RenderJSON renders the report as an indented JSON document with sorted
// keys. Failed nodes carry "error" and, for evaluation errors, "kind"
// instead of "value".
func RenderJSON(report *scheduler.Report) ([]byte, error) {
	results := make(map[string]cty.Value, len(report.Results))
	for key, res := range report.Results {
		attrs := map[string]cty.Value{
			"status": cty.StringVal(res.Status.String()),
		}
		if res.OK() {
			attrs["value"] = jsonValue(res.Value)
		} else {
			attrs["error"] = cty.StringVal(res.Err.Error())
			if kind := expr.KindOf(res.Err); kind != 0 {
				attrs["kind"] = cty.StringVal(kind.String())
			}
		}
		results[key] = cty.ObjectVal(attrs)
	}

	detached := cty.ListValEmpty(cty.String)
	if len(report.Detached) > 0 {
		keys := make([]cty.Value, len(report.Detached))
		for i, k := range report.Detached {
			keys[i] = cty.StringVal(k)
		}
		detached = cty.ListVal(keys)
	}

	doc := cty.ObjectVal(map[string]cty.Value{
		"run_id":   cty.StringVal(report.RunID),
		"layers":   cty.NumberIntVal(int64(len(report.Layers))),
		"failed":   cty.NumberIntVal(int64(report.Failed)),
		"detached": detached,
		"results":  cty.ObjectVal(results),
	})
	raw, err := ctyjson.Marshal(doc, doc.Type())
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

// jsonValue converts v for JSON output. JSON has no infinities, so they are
// rendered as strings.
func jsonValue(v value.Value) cty.Value {
	if f, ok := v.AsNumber(); ok && math.IsInf(f, 0) {
		return cty.StringVal(v.String())
	}
	return value.ToCty(v)
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// RenderText renders the report as a table sorted by key, followed by a
// summary line.
func RenderText(report *scheduler.Report) string {
	keys := make([]string, 0, len(report.Results))
	for key := range report.Results {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rows := make([][]string, len(keys))
	for i, key := range keys {
		res := report.Results[key]
		if res.OK() {
			rows[i] = []string{key, res.Status.String(), res.Value.String()}
		} else {
			rows[i] = []string{key, res.Status.String(), res.Err.Error()}
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("KEY", "STATUS", "RESULT").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})

	return fmt.Sprintf("%s\n%d nodes, %d failed, %d layers, %d detached (run %s)\n",
		t.String(), len(report.Results), report.Failed, len(report.Layers), len(report.Detached), report.RunID)
}
