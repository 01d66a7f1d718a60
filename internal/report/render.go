package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/signalnine/trialbook/internal/errdefs"
	"github.com/signalnine/trialbook/internal/table"
)

// Formats accepted by Render.
var Formats = []string{"table", "markdown", "json", "csv"}

// Render writes tbl in the given format.
func Render(w io.Writer, tbl *table.Table, format string) error {
	switch format {
	case "table", "":
		return writeTable(tbl, w)
	case "markdown":
		return writeMarkdown(tbl, w)
	case "json":
		return writeJSON(tbl, w)
	case "csv":
		return writeCSV(tbl, w)
	default:
		return errdefs.InvalidArgumentf("unknown format %q (want one of %s)", format, strings.Join(Formats, ", "))
	}
}

func writeTable(tbl *table.Table, w io.Writer) error {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(tbl.Columns())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	tw.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	tw.SetAlignment(tablewriter.ALIGN_LEFT)
	tw.SetCenterSeparator("")
	tw.SetColumnSeparator("")
	tw.SetRowSeparator("")
	tw.SetHeaderLine(false)
	tw.SetBorder(false)
	tw.SetTablePadding("\t")
	tw.SetNoWhiteSpace(true)
	for i := 0; i < tbl.Len(); i++ {
		tw.Append(displayRow(tbl.Row(i).Values()))
	}
	tw.Render()
	return nil
}

func writeMarkdown(tbl *table.Table, w io.Writer) error {
	cols := tbl.Columns()
	fmt.Fprintf(w, "| %s |\n", strings.Join(cols, " | "))
	fmt.Fprintf(w, "|%s\n", strings.Repeat("---|", len(cols)))
	for i := 0; i < tbl.Len(); i++ {
		cells := displayRow(tbl.Row(i).Values())
		for j, c := range cells {
			cells[j] = strings.ReplaceAll(c, "|", `\|`)
		}
		if _, err := fmt.Fprintf(w, "| %s |\n", strings.Join(cells, " | ")); err != nil {
			return err
		}
	}
	return nil
}

// writeJSON writes an array of row objects with keys in column order.
func writeJSON(tbl *table.Table, w io.Writer) error {
	cols := tbl.Columns()
	rows := make([]orderedRow, tbl.Len())
	for i := range rows {
		rows[i] = orderedRow{columns: cols, values: tbl.Row(i).Values()}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(rows)
}

func writeCSV(tbl *table.Table, w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(tbl.Columns()); err != nil {
		return err
	}
	for i := 0; i < tbl.Len(); i++ {
		vals := tbl.Row(i).Values()
		rec := make([]string, len(vals))
		for j, v := range vals {
			rec[j] = exactString(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type orderedRow struct {
	columns []string
	values  []any
}

func (o orderedRow) MarshalJSON() ([]byte, error) {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	for i, c := range o.columns {
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		v := o.values[i]
		if table.IsMissing(v) {
			v = nil
		}
		val, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func displayRow(vals []any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = displayValue(v)
	}
	return out
}

// displayValue formats a cell for humans: floats with at most six decimals
// and no trailing zeros, missing values as blanks.
func displayValue(v any) string {
	if table.IsMissing(v) {
		return ""
	}
	switch u := v.(type) {
	case float64:
		if math.IsInf(u, 0) {
			return strconv.FormatFloat(u, 'g', -1, 64)
		}
		return humanize.FtoaWithDigits(u, 6)
	case float32:
		return humanize.FtoaWithDigits(float64(u), 6)
	case time.Time:
		return u.Format(time.RFC3339)
	case fmt.Stringer:
		return u.String()
	default:
		return fmt.Sprintf("%+v", u)
	}
}

// exactString formats a cell without losing precision.
func exactString(v any) string {
	if table.IsMissing(v) {
		return ""
	}
	switch u := v.(type) {
	case float64:
		return strconv.FormatFloat(u, 'g', -1, 64)
	case time.Time:
		return u.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(u)
	}
}
