package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
)

// Dataset defines tabular export content. RowColors optionally tints each row in formats that support it.
type Dataset struct {
	Title     string
	Headers   []string
	Rows      []map[string]string
	RowColors []string
}

// CSVOption tweaks CSV output.
type CSVOption func(*CSVExporter)

// WithExcelBOM prefixes output with a UTF-8 byte order mark so spreadsheet tools keep the en dash in pending titles.
func WithExcelBOM() CSVOption {
	return func(e *CSVExporter) { e.bom = true }
}

// CSVExporter writes datasets as CSV, one record per row in header order.
type CSVExporter struct {
	bom bool
}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter(opts ...CSVOption) *CSVExporter {
	e := &CSVExporter{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Render returns the dataset as CSV bytes.
func (e *CSVExporter) Render(data Dataset) ([]byte, error) {
	var buf bytes.Buffer
	if err := e.Write(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Write streams the dataset to w.
func (e *CSVExporter) Write(w io.Writer, data Dataset) error {
	if len(data.Headers) == 0 {
		return fmt.Errorf("csv requires at least one header")
	}
	if e.bom {
		if _, err := w.Write([]byte("\xEF\xBB\xBF")); err != nil {
			return fmt.Errorf("write csv bom: %w", err)
		}
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(data.Headers); err != nil {
		return fmt.Errorf("write csv headers: %w", err)
	}
	record := make([]string, len(data.Headers))
	for n, row := range data.Rows {
		for i, header := range data.Headers {
			record[i] = row[header]
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row %d: %w", n+1, err)
		}
	}
	cw.Flush()
	return cw.Error()
}
