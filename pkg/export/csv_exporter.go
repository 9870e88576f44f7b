package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"strings"
)

// CSVExporter writes datasets as RFC 4180 CSV.
type CSVExporter struct {
	// Comment, when set, is emitted as a leading "# ..." line.
	Comment string
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render writes the header row followed by one record per dataset row.
// Cells that a spreadsheet would evaluate as formulas are prefixed with a quote.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, errors.New("csv export needs headers")
	}
	var buf bytes.Buffer
	if e.Comment != "" {
		buf.WriteString("# " + strings.ReplaceAll(e.Comment, "\n", " ") + "\n")
	}
	w := csv.NewWriter(&buf)
	records := make([][]string, 0, len(data.Rows)+1)
	records = append(records, data.Headers)
	for _, row := range data.Rows {
		rec := make([]string, len(data.Headers))
		for i := range data.Headers {
			rec[i] = neutralize(row[data.Headers[i]])
		}
		records = append(records, rec)
	}
	if err := w.WriteAll(records); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func neutralize(cell string) string {
	if cell == "" {
		return cell
	}
	switch cell[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + cell
	}
	return cell
}
