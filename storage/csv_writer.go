package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"engagement-dashboard/models"
)

// CSVWriter writes the combined table to a CSV file using the declared
// column names as header. It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(models.Schema()); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends every row of the table. Undefined ratios are written as NaN.
func (c *CSVWriter) Write(table *models.CombinedTable) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, p := range table.Rows {
		if err := c.writer.Write(record(p)); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.writer.Flush()
	return c.file.Close()
}

// CSVReader loads a table previously written by CSVWriter.
type CSVReader struct {
	path string
}

func NewCSVReader(path string) *CSVReader {
	return &CSVReader{path: path}
}

// FetchAll parses the whole file. The header must match the declared schema.
func (c *CSVReader) FetchAll() (*models.CombinedTable, error) {
	f, err := os.Open(c.path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", c.path, err)
	}
	defer f.Close()
	return ReadCSV(f)
}

func (c *CSVReader) Close() error { return nil }

// ReadCSV parses CSV produced by CSVWriter from r.
func ReadCSV(r io.Reader) (*models.CombinedTable, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(insertColumns)

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	for i, col := range insertColumns {
		if header[i] != col {
			return nil, fmt.Errorf("csv: column %d is %q, want %q", i, header[i], col)
		}
	}

	var rows []*models.AnnotatedPost
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: %w", err)
		}
		p, err := fromRecord(rec)
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		rows = append(rows, p)
	}
	return models.NewCombinedTable(rows), nil
}
