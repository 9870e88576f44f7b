package pdfpages

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/jung-kurt/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/dmr-api/pkg/pagerange"
)

func samplePDF(t *testing.T, pages int) []byte {
	t.Helper()
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	for i := 1; i <= pages; i++ {
		pdf.AddPage()
		pdf.Cell(40, 10, fmt.Sprintf("page %d", i))
	}
	buf := &bytes.Buffer{}
	require.NoError(t, pdf.Output(buf))
	return buf.Bytes()
}

func TestPageCount(t *testing.T) {
	e := NewExtractor()
	n, err := e.PageCount(bytes.NewReader(samplePDF(t, 4)))
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}

func TestExtractSelectedPages(t *testing.T) {
	e := NewExtractor()
	out, err := e.Extract(bytes.NewReader(samplePDF(t, 6)), pagerange.MustParse("2-3,5"))
	require.NoError(t, err)

	n, err := e.PageCount(bytes.NewReader(out))
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestExtractRejectsEmptySelection(t *testing.T) {
	_, err := NewExtractor().Extract(bytes.NewReader(samplePDF(t, 1)), pagerange.Range{})
	assert.ErrorIs(t, err, pagerange.ErrEmpty)
}

func TestPageCountRejectsGarbage(t *testing.T) {
	_, err := NewExtractor().PageCount(bytes.NewReader([]byte("not a pdf")))
	assert.Error(t, err)
}
