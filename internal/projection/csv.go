package projection

import (
	"bufio"
	"encoding/csv"
	"io"
	"strings"
)

// WriteCSV writes the header row followed by one record per item. Every field
// is quoted and embedded quotes are doubled, so commas, quotes and newlines in
// user text survive a round trip through any CSV reader.
func WriteCSV[T any](w io.Writer, d *Descriptor[T], items []T) error {
	bw := bufio.NewWriter(w)
	if err := writeRecord(bw, d.Headers()); err != nil {
		return err
	}
	for _, it := range items {
		if err := writeRecord(bw, d.Row(it)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func writeRecord(w *bufio.Writer, fields []string) error {
	for i, f := range fields {
		if i > 0 {
			if err := w.WriteByte(','); err != nil {
				return err
			}
		}
		if _, err := w.WriteString(quote(f)); err != nil {
			return err
		}
	}
	return w.WriteByte('\n')
}

func quote(field string) string {
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// ReadCSV parses a document written by WriteCSV, header row included.
func ReadCSV(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	return cr.ReadAll()
}
