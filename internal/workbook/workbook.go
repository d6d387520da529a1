// Package workbook re-exports a downloaded xlsx spreadsheet as TSV files,
// one per worksheet, the same way the Drive downloader writes them.
package workbook

import (
	"bytes"
	"fmt"
	"path/filepath"

	"github.com/tealeg/xlsx"

	"amfcheck/internal/settings"
	"amfcheck/internal/support"
	"amfcheck/internal/tsv"
)

// maxColumns matches the A:Z range fetched from Drive.
const maxColumns = 26

// Worksheet is one sheet's cell text.
type Worksheet struct {
	Title string
	Rows  [][]string
}

// Read returns the worksheets of an xlsx file in workbook order. At most
// rows rows and 26 columns are read from each sheet; trailing empty cells
// are dropped from every row.
func Read(path string, rows int) ([]Worksheet, error) {
	if rows <= 0 {
		rows = settings.DefaultRows
	}
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", path, err)
	}
	out := make([]Worksheet, 0, len(f.Sheets))
	for _, sh := range f.Sheets {
		ws := Worksheet{Title: sh.Name}
		for i, r := range sh.Rows {
			if i >= rows {
				break
			}
			var row []string
			if r != nil {
				for j, c := range r.Cells {
					if j >= maxColumns {
						break
					}
					v := ""
					if c != nil {
						if v, err = c.FormattedValue(); err != nil {
							return nil, fmt.Errorf("%s: sheet %q row %d: %w", path, sh.Name, i+1, err)
						}
					}
					row = append(row, v)
				}
			}
			for len(row) > 0 && row[len(row)-1] == "" {
				row = row[:len(row)-1]
			}
			ws.Rows = append(ws.Rows, row)
		}
		out = append(out, ws)
	}
	return out, nil
}

// ExportTSV writes <dir>/<title>.tsv for every worksheet and returns the
// written paths.
func ExportTSV(path, dir string, rows int) ([]string, error) {
	sheets, err := Read(path, rows)
	if err != nil {
		return nil, err
	}
	var written []string
	for _, ws := range sheets {
		var buf bytes.Buffer
		if err := tsv.Write(&buf, ws.Rows); err != nil {
			return written, fmt.Errorf("sheet %q: %w", ws.Title, err)
		}
		p := filepath.Join(dir, ws.Title+".tsv")
		if err := support.WriteFileAtomic(p, buf.Bytes()); err != nil {
			return written, err
		}
		written = append(written, p)
	}
	return written, nil
}
