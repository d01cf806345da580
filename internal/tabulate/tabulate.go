// Package tabulate formats query rows for humans and clients.
package tabulate

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
)

// Tuples renders each row as a tuple, e.g. (1, 1, 'SF'), and joins the rows
// with single spaces. This is the body the plain POST endpoint returns.
func Tuples(rows [][]any) string {
	parts := make([]string, len(rows))
	for i, row := range rows {
		parts[i] = Tuple(row)
	}
	return strings.Join(parts, " ")
}

// Tuple renders one row. A single value keeps its trailing comma.
func Tuple(row []any) string {
	vals := make([]string, len(row))
	for i, v := range row {
		vals[i] = literal(v)
	}
	if len(vals) == 1 {
		return "(" + vals[0] + ",)"
	}
	return "(" + strings.Join(vals, ", ") + ")"
}

func literal(v any) string {
	switch x := v.(type) {
	case nil:
		return "None"
	case bool:
		if x {
			return "True"
		}
		return "False"
	case string:
		return quote(x)
	case []byte:
		return "b" + quote(string(x))
	case float32:
		return floatLiteral(float64(x))
	case float64:
		return floatLiteral(x)
	default:
		return fmt.Sprint(x)
	}
}

func floatLiteral(f float64) string {
	s := strconv.FormatFloat(f, 'g', -1, 64)
	if strings.ContainsAny(s, ".eIN") {
		return s
	}
	return s + ".0"
}

// quote prefers single quotes and switches to double quotes only when the
// text holds a single quote and no double quote.
func quote(s string) string {
	q := "'"
	if strings.Contains(s, "'") && !strings.Contains(s, `"`) {
		q = `"`
	}
	var b strings.Builder
	b.WriteString(q)
	for _, r := range s {
		switch {
		case r == '\\':
			b.WriteString(`\\`)
		case string(r) == q:
			b.WriteString(`\` + q)
		case r == '\n':
			b.WriteString(`\n`)
		case r == '\t':
			b.WriteString(`\t`)
		default:
			b.WriteRune(r)
		}
	}
	b.WriteString(q)
	return b.String()
}

// Table writes rows as a bordered text table.
func Table(w io.Writer, columns []string, rows [][]any) {
	table := tablewriter.NewWriter(w)
	table.SetHeader(columns)
	table.SetAutoFormatHeaders(false)
	table.SetAutoWrapText(false)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)

	for _, row := range rows {
		record := make([]string, len(row))
		for i, v := range row {
			record[i] = cell(v)
		}
		table.Append(record)
	}
	table.SetFooter(footer(len(columns), len(rows)))
	table.Render()
}

func footer(width, total int) []string {
	if width == 0 {
		return nil
	}
	f := make([]string, width)
	f[width-1] = fmt.Sprintf("%d rows", total)
	if total == 1 {
		f[width-1] = "1 row"
	}
	return f
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

// JSONRows converts rows to JSON objects keyed by column name. Duplicate
// column names keep the last value.
func JSONRows(columns []string, rows [][]any) ([]json.RawMessage, error) {
	out := make([]json.RawMessage, 0, len(rows))
	for _, row := range rows {
		obj := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(row) {
				obj[col] = row[i]
			}
		}
		data, err := json.Marshal(obj)
		if err != nil {
			return nil, err
		}
		out = append(out, data)
	}
	return out, nil
}
