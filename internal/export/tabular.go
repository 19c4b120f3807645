package export

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ToTabular renders the given items as quoted-comma-delimited text. The
// column set is the union of all flattened keys across items, ordered by
// first appearance in the item sequence. Every field is quoted and embedded
// quote characters are doubled. Items missing a column render an empty
// string. Empty input yields an empty string, not a header-only document.
func ToTabular(items []any) string {
	if len(items) == 0 {
		return ""
	}

	var columns []string
	seen := make(map[string]bool)
	rows := make([]map[string]string, 0, len(items))

	for _, item := range items {
		fields := flattenOrdered(item)
		row := make(map[string]string, len(fields))
		for _, f := range fields {
			row[f.Key] = f.Value
			if !seen[f.Key] {
				seen[f.Key] = true
				columns = append(columns, f.Key)
			}
		}
		rows = append(rows, row)
	}

	var b strings.Builder
	writeRow(&b, columns, func(col string) string { return col })
	for _, row := range rows {
		b.WriteByte('\n')
		writeRow(&b, columns, func(col string) string { return row[col] })
	}
	return b.String()
}

// writeRow emits one delimited line, quoting every cell.
func writeRow(b *strings.Builder, columns []string, cell func(string) string) {
	for i, col := range columns {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(cell(col), `"`, `""`))
		b.WriteByte('"')
	}
}

// ToInterchangeText pretty-prints the full object graph as indented JSON,
// preserving all nested structure. Used for downloadable exports.
func ToInterchangeText(v any) (string, error) {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize export payload: %w", err)
	}
	return string(raw), nil
}
