// Package pdfpages counts and extracts pages of PDF documents.
package pdfpages

import (
	"bytes"
	"fmt"
	"io"
	"strconv"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/noah-isme/dmr-api/pkg/pagerange"
)

func init() {
	// keep pdfcpu from creating a config directory under $HOME
	model.ConfigPath = "disable"
}

// Extractor wraps pdfcpu with a relaxed validation configuration.
type Extractor struct{}

// NewExtractor constructs an Extractor.
func NewExtractor() *Extractor {
	return &Extractor{}
}

func (e *Extractor) conf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount returns the number of pages in the document.
func (e *Extractor) PageCount(rs io.ReadSeeker) (int, error) {
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return 0, fmt.Errorf("rewind pdf: %w", err)
	}
	n, err := api.PageCount(rs, e.conf())
	if err != nil {
		return 0, fmt.Errorf("count pdf pages: %w", err)
	}
	return n, nil
}

// Extract writes a new PDF containing only the selected pages.
func (e *Extractor) Extract(rs io.ReadSeeker, pages pagerange.Range) ([]byte, error) {
	if pages.Empty() {
		return nil, fmt.Errorf("extract pdf pages: %w", pagerange.ErrEmpty)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewind pdf: %w", err)
	}
	selected := make([]string, 0, pages.Len())
	for _, p := range pages.Pages() {
		selected = append(selected, strconv.Itoa(p))
	}
	buf := &bytes.Buffer{}
	if err := api.Trim(rs, buf, selected, e.conf()); err != nil {
		return nil, fmt.Errorf("extract pdf pages: %w", err)
	}
	return buf.Bytes(), nil
}
