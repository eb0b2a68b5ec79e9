// Package output provides tab-delimited formatters for project data.
package output

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/varsift/internal/store"
)

// Missing is written for NULL and empty values.
const Missing = "-"

// TabWriter writes rows in tab-delimited format.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer with the given columns.
func NewTabWriter(w io.Writer, columns ...string) *TabWriter {
	return &TabWriter{
		w:       bufio.NewWriter(w),
		columns: columns,
	}
}

// Columns returns the header columns.
func (tw *TabWriter) Columns() []string {
	return tw.columns
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString("#" + strings.Join(tw.columns, "\t") + "\n")
	return err
}

// WriteRow writes one row of values. Values are formatted with FormatValue.
func (tw *TabWriter) WriteRow(values ...any) error {
	if len(values) != len(tw.columns) {
		return fmt.Errorf("row has %d values, want %d", len(values), len(tw.columns))
	}
	cells := make([]string, len(values))
	for i, v := range values {
		cells[i] = FormatValue(v)
	}
	_, err := tw.w.WriteString(strings.Join(cells, "\t") + "\n")
	return err
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// FormatValue renders a stored value as a cell.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return Missing
	case string:
		if x == "" {
			return Missing
		}
		// Tabs and newlines would break the row.
		return strings.NewReplacer("\t", " ", "\n", " ").Replace(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case int:
		return strconv.Itoa(x)
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	}
	return fmt.Sprint(v)
}

// WriteResult writes a variants query result with its header.
func WriteResult(w io.Writer, res *store.Result) error {
	tw := NewTabWriter(w, res.Columns...)
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, row := range res.Rows {
		if err := tw.WriteRow(row...); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteSamples writes samples in pedigree column order.
func WriteSamples(w io.Writer, samples []store.Sample) error {
	tw := NewTabWriter(w, "family", "sample", "father", "mother", "sex", "phenotype")
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, s := range samples {
		if err := tw.WriteRow(s.Family, s.Name, s.Father, s.Mother, s.Sex, s.Phenotype); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteFields writes field definitions.
func WriteFields(w io.Writer, fields []store.Field) error {
	tw := NewTabWriter(w, "name", "category", "type", "description")
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, f := range fields {
		if err := tw.WriteRow(f.Name, f.Category, f.Type, f.Description); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// WriteSelections writes selections with their variant counts.
func WriteSelections(w io.Writer, sels []store.Selection) error {
	tw := NewTabWriter(w, "name", "count", "query")
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, s := range sels {
		if err := tw.WriteRow(s.Name, s.Count, s.Query); err != nil {
			return err
		}
	}
	return tw.Flush()
}
