package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// DefaultNAValues are the tokens read as missing when no list is given.
// They match the defaults used by common dataframe readers, so CMS exports
// load the same way they do in notebook tooling.
var DefaultNAValues = []string{
	"", "#N/A", "#N/A N/A", "#NA", "-1.#IND", "-1.#QNAN", "-NaN", "-nan",
	"1.#IND", "1.#QNAN", "<NA>", "N/A", "NA", "NULL", "NaN", "None",
	"n/a", "nan", "null",
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ReadOptions configures CSV parsing
type ReadOptions struct {
	// NAValues are read as missing. Nil means DefaultNAValues.
	NAValues []string
	// Comma is the field delimiter. Zero means ','.
	Comma rune
}

// WriteOptions configures CSV writing behavior
type WriteOptions struct {
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// ReadCSV parses a table from r. The first record is the header.
func ReadCSV(r io.Reader, name string, opts ReadOptions) (*Table, error) {
	br := bufio.NewReader(r)
	if head, err := br.Peek(len(utf8BOM)); err == nil && bytes.Equal(head, utf8BOM) {
		_, _ = br.Discard(len(utf8BOM))
	}

	reader := csv.NewReader(br)
	if opts.Comma != 0 {
		reader.Comma = opts.Comma
	}
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("table %q: empty input", name)
	}
	if err != nil {
		return nil, fmt.Errorf("table %q: failed to read header: %w", name, err)
	}

	na := opts.NAValues
	if na == nil {
		na = DefaultNAValues
	}
	naSet := make(map[string]bool, len(na))
	for _, v := range na {
		naSet[v] = true
	}

	t := New(name, header...)
	line := 1
	for {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("table %q: failed to read record %d: %w", name, line, err)
		}
		if len(rec) != len(header) {
			return nil, fmt.Errorf("table %q: record %d has %d fields, header has %d", name, line, len(rec), len(header))
		}

		row := make([]Cell, len(rec))
		for i, v := range rec {
			if naSet[v] {
				row[i] = Null()
			} else {
				row[i] = String(v)
			}
		}
		t.Rows = append(t.Rows, row)
	}

	return t, nil
}

// ReadCSVFile reads a table from a CSV file. The table is named after the file stem.
func ReadCSVFile(path string, opts ReadOptions) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	return ReadCSV(f, Stem(path), opts)
}

// WriteCSV writes the header and all rows to w
func WriteCSV(w io.Writer, t *Table, opts WriteOptions) error {
	if opts.BOMPrefix {
		if _, err := w.Write(utf8BOM); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(t.Columns); err != nil {
		return fmt.Errorf("failed to write headers: %w", err)
	}
	for i, rec := range t.Records() {
		if err := writer.Write(rec); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteCSVFile writes the table to path, creating parent directories
func WriteCSVFile(path string, t *Table, opts WriteOptions) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}

	if err := WriteCSV(file, t, opts); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Stem returns the file name without directory and without anything after the first dot
func Stem(path string) string {
	base := filepath.Base(path)
	if i := strings.Index(base, "."); i > 0 {
		return base[:i]
	}
	return base
}
