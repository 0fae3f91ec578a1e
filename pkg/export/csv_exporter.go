package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
)

// Table is one titled grid of an export.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

// Report is a titled sequence of tables.
type Report struct {
	Title  string
	Tables []Table
}

func (r Report) validate() error {
	if len(r.Tables) == 0 {
		return fmt.Errorf("report %q has no tables", r.Title)
	}
	for _, table := range r.Tables {
		if len(table.Headers) == 0 {
			return fmt.Errorf("table %q requires at least one header", table.Title)
		}
	}
	return nil
}

// CSVExporter renders reports as CSV. Tables are separated by an empty record and introduced
// by their title.
type CSVExporter struct{}

// NewCSVExporter builds a CSV exporter.
func NewCSVExporter() *CSVExporter {
	return &CSVExporter{}
}

// Render produces CSV encoded bytes for the report.
func (e *CSVExporter) Render(report Report) ([]byte, error) {
	if err := report.validate(); err != nil {
		return nil, err
	}
	buf := &bytes.Buffer{}
	writer := csv.NewWriter(buf)
	for i, table := range report.Tables {
		if i > 0 {
			if err := writer.Write([]string{""}); err != nil {
				return nil, fmt.Errorf("write csv separator: %w", err)
			}
		}
		if table.Title != "" {
			if err := writer.Write([]string{table.Title}); err != nil {
				return nil, fmt.Errorf("write csv title: %w", err)
			}
		}
		if err := writer.Write(table.Headers); err != nil {
			return nil, fmt.Errorf("write csv headers: %w", err)
		}
		for _, row := range table.Rows {
			record := make([]string, len(table.Headers))
			copy(record, row)
			if err := writer.Write(record); err != nil {
				return nil, fmt.Errorf("write csv row: %w", err)
			}
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
