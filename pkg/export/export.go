// Package export renders tabular datasets as CSV or PDF documents.
package export

import (
	"fmt"
	"strings"
)

// Dataset defines tabular export content.
type Dataset struct {
	Headers []string
	Rows    []map[string]string
}

// Format names a supported output format.
type Format string

const (
	FormatCSV Format = "csv"
	FormatPDF Format = "pdf"
)

// ParseFormat validates a user supplied format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch Format(raw) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatPDF:
		return FormatPDF, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type for the format.
func (f Format) ContentType() string {
	if f == FormatPDF {
		return "application/pdf"
	}
	return "text/csv"
}

// Document is a rendered export ready for download.
type Document struct {
	Filename    string
	ContentType string
	Body        []byte
}

// Renderer dispatches datasets to the exporter for the requested format.
type Renderer struct {
	csv *CSVExporter
	pdf *PDFExporter
}

// NewRenderer wires the CSV and PDF exporters.
func NewRenderer() *Renderer {
	return &Renderer{csv: NewCSVExporter(), pdf: NewPDFExporter()}
}

// Render produces a document named base.<format>. CSV output carries the
// subtitles as a leading comment line.
func (r *Renderer) Render(format Format, data Dataset, base, title string, subtitle ...string) (*Document, error) {
	var (
		body []byte
		err  error
	)
	switch format {
	case FormatPDF:
		body, err = r.pdf.Render(data, title, subtitle...)
	case FormatCSV:
		exporter := *r.csv
		exporter.Comment = strings.Join(subtitle, " | ")
		body, err = exporter.Render(data)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    fmt.Sprintf("%s.%s", base, format),
		ContentType: format.ContentType(),
		Body:        body,
	}, nil
}
