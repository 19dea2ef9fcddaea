package tablequery

import (
	"bufio"
	"io"
	"slices"
	"strings"
)

// ExportCSV renders records as CSV text. See WriteCSV for the format. An
// empty record set exports as "".
func ExportCSV(records []Record, fields []string) string {
	var b strings.Builder
	_ = WriteCSV(&b, records, fields)
	return b.String()
}

// WriteCSV writes a header row followed by one row per record, in input
// order. Every cell is double-quoted with embedded quotes doubled, so commas
// and newlines inside values survive a round trip. When fields is empty the
// first record's keys are used, sorted. Nil values are written as empty
// cells. Nothing is written for an empty record set, or when there are no
// columns to write.
func WriteCSV(w io.Writer, records []Record, fields []string) error {
	if len(records) == 0 {
		return nil
	}
	if len(fields) == 0 {
		fields = Keys(records[0])
	}
	if len(fields) == 0 {
		return nil
	}

	bw := bufio.NewWriter(w)
	writeRow(bw, fields)
	row := make([]string, len(fields))
	for _, rec := range records {
		for i, f := range fields {
			row[i] = Text(rec.Value(f))
		}
		writeRow(bw, row)
	}
	return bw.Flush()
}

// Keys returns the record's field names in sorted order.
func Keys(r Record) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// writeRow errors are surfaced by the final Flush.
func writeRow(w *bufio.Writer, cells []string) {
	for i, cell := range cells {
		if i > 0 {
			w.WriteByte(',')
		}
		w.WriteByte('"')
		w.WriteString(strings.ReplaceAll(cell, `"`, `""`))
		w.WriteByte('"')
	}
	w.WriteByte('\n')
}
