package export

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a tabular A4 PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render creates a PDF document with the dataset title and one filled row per record.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Headers) == 0 {
		return nil, fmt.Errorf("pdf requires at least one header")
	}
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.AddPage()

	if data.Title != "" {
		pdf.SetFont("Arial", "B", 14)
		pdf.CellFormat(0, 10, data.Title, "", 1, "C", false, 0, "")
		pdf.Ln(4)
	}

	// gofpdf core fonts are cp1252; the en dash used in pending titles needs translating.
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	colWidth := 190.0 / float64(len(data.Headers))
	pdf.SetFont("Arial", "B", 10)
	for _, header := range data.Headers {
		pdf.CellFormat(colWidth, 8, tr(header), "1", 0, "C", false, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for i, row := range data.Rows {
		fill := false
		if i < len(data.RowColors) {
			if r, g, b, ok := parseHexColor(data.RowColors[i]); ok {
				pdf.SetFillColor(r, g, b)
				fill = true
			}
		}
		for _, header := range data.Headers {
			pdf.CellFormat(colWidth, 7, tr(row[header]), "1", 0, "", fill, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// parseHexColor accepts #RRGGBB and #RRGGBBAA; the alpha channel is blended onto white.
func parseHexColor(raw string) (int, int, int, bool) {
	hex := strings.TrimPrefix(raw, "#")
	if len(hex) != 6 && len(hex) != 8 {
		return 0, 0, 0, false
	}
	value, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return 0, 0, 0, false
	}
	alpha := uint64(255)
	if len(hex) == 8 {
		alpha = value & 0xFF
		value >>= 8
	}
	blend := func(channel uint64) int {
		return int((channel*alpha + 255*(255-alpha)) / 255)
	}
	return blend(value >> 16 & 0xFF), blend(value >> 8 & 0xFF), blend(value & 0xFF), true
}
