package tsv

// tsv.go — cell grid for one exported worksheet.
//
// Every worksheet arrives as a tab-separated file with a single header row.
// Header names and cell values are whitespace-trimmed on read. A cell holding
// "|" carries a multi-value list (line breaks inside a spreadsheet cell are
// rewritten to "|" at export time, see CleanCell).

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Sheet is the parsed content of one TSV file.
type Sheet struct {
	// Path is the file the sheet was read from; empty for in-memory input.
	Path   string
	Header []string
	Rows   []Row
}

// Row is one data row keyed by trimmed header name.
type Row struct {
	// Line is the 1-based line number of the row in its source file.
	Line  int
	cells map[string]Cell
}

// Cell is a trimmed cell value. Parts holds the trimmed "|"-separated items
// when the cell carries more than one.
type Cell struct {
	Text  string
	Parts []string
}

// IsList reports whether the cell holds a multi-value list.
func (c Cell) IsList() bool { return len(c.Parts) > 1 }

// Cell returns the cell under column col. Missing columns read as empty.
func (r Row) Cell(col string) Cell {
	return r.cells[col]
}

// Get returns the trimmed text of column col.
func (r Row) Get(col string) string {
	return r.cells[col].Text
}

// Has reports whether the row has a non-empty value in every named column.
func (r Row) Has(cols ...string) bool {
	for _, c := range cols {
		if r.cells[c].Text == "" {
			return false
		}
	}
	return true
}

// NewRow builds a row from a column → value map. Values are cleaned the same
// way Read cleans file input.
func NewRow(line int, values map[string]string) Row {
	cells := make(map[string]Cell, len(values))
	for k, v := range values {
		cells[strings.TrimSpace(k)] = newCell(v)
	}
	return Row{Line: line, cells: cells}
}

func newCell(raw string) Cell {
	text := strings.TrimSpace(raw)
	c := Cell{Text: text}
	if strings.Contains(text, "|") {
		parts := strings.Split(text, "|")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		c.Parts = parts
	}
	return c
}

// ReadFile reads and parses the TSV file at path.
func ReadFile(path string) (*Sheet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	s, err := Read(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	s.Path = path
	return s, nil
}

// Read parses tab-separated input. An empty input yields a sheet with no
// header and no rows. Short rows are padded with empty cells; cells beyond
// the header are dropped.
func Read(r io.Reader) (*Sheet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data = stripBOM(data)

	cr := csv.NewReader(bytes.NewReader(data))
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	s := &Sheet{}
	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("header: %w", err)
	}
	for _, h := range header {
		s.Header = append(s.Header, strings.TrimSpace(h))
	}

	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if blank(rec) {
			continue
		}
		cells := make(map[string]Cell, len(s.Header))
		for i, col := range s.Header {
			if col == "" {
				continue
			}
			if i < len(rec) {
				cells[col] = newCell(rec[i])
			}
		}
		s.Rows = append(s.Rows, Row{Line: line, cells: cells})
	}
	return s, nil
}

func blank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}

func stripBOM(data []byte) []byte {
	if len(data) >= 3 && data[0] == 0xEF && data[1] == 0xBB && data[2] == 0xBF {
		return data[3:]
	}
	return data
}

// ---------------------------------------------------------------------------
// Writing
// ---------------------------------------------------------------------------

// CleanCell normalises a raw spreadsheet cell for TSV export: surrounding
// whitespace is trimmed, line feeds become "|" and carriage returns are
// removed.
func CleanCell(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, "\r", "")
	return strings.ReplaceAll(s, "\n", "|")
}

// Write emits rows as tab-separated lines. Every cell passes through
// CleanCell; trailing empty rows are dropped.
func Write(w io.Writer, rows [][]string) error {
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	cw := csv.NewWriter(w)
	cw.Comma = '\t'
	for _, row := range rows {
		out := make([]string, len(row))
		for i, c := range row {
			out[i] = CleanCell(c)
		}
		if err := cw.Write(out); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
