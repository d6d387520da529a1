package workbook

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/tealeg/xlsx"
)

func writeWorkbook(t *testing.T, sheets map[string][][]string, order ...string) string {
	t.Helper()
	f := xlsx.NewFile()
	for _, name := range order {
		sh, err := f.AddSheet(name)
		if err != nil {
			t.Fatal(err)
		}
		for _, r := range sheets[name] {
			row := sh.AddRow()
			for _, v := range r {
				row.AddCell().SetString(v)
			}
		}
	}
	p := filepath.Join(t.TempDir(), "soil.xlsx")
	if err := f.Save(p); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestReadOrderAndTrim(t *testing.T) {
	p := writeWorkbook(t, map[string][][]string{
		"variables-specific": {
			{"Variable", "Attribute", "Value"},
			{"soil_temperature", "", ""},
			{"", "units", "K"},
		},
		"dimensions-specific": {
			{"Name", "Length", "units"},
		},
	}, "variables-specific", "dimensions-specific")

	sheets, err := Read(p, 0)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(sheets) != 2 || sheets[0].Title != "variables-specific" || sheets[1].Title != "dimensions-specific" {
		t.Fatalf("sheets = %+v", sheets)
	}
	if got := sheets[0].Rows[1]; len(got) != 1 || got[0] != "soil_temperature" {
		t.Errorf("trailing empty cells kept: %q", got)
	}
}

func TestReadRowLimit(t *testing.T) {
	p := writeWorkbook(t, map[string][][]string{
		"s": {{"a"}, {"b"}, {"c"}},
	}, "s")
	sheets, err := Read(p, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(sheets[0].Rows) != 2 {
		t.Errorf("rows = %d, want 2", len(sheets[0].Rows))
	}
}

func TestExportTSV(t *testing.T) {
	p := writeWorkbook(t, map[string][][]string{
		"variables-specific": {
			{"Variable", "Attribute", "Value"},
			{"soil_temperature ", "", ""},
			{"", "comment", "line one\nline two"},
		},
	}, "variables-specific")
	dir := filepath.Join(t.TempDir(), "tsv", "soil")

	written, err := ExportTSV(p, dir, 0)
	if err != nil {
		t.Fatalf("ExportTSV: %v", err)
	}
	if len(written) != 1 {
		t.Fatalf("written = %v", written)
	}
	data, err := os.ReadFile(filepath.Join(dir, "variables-specific.tsv"))
	if err != nil {
		t.Fatal(err)
	}
	want := "Variable\tAttribute\tValue\nsoil_temperature\n\tcomment\tline one|line two\n"
	if string(data) != want {
		t.Errorf("tsv =\n%q\nwant\n%q", data, want)
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := Read(filepath.Join(t.TempDir(), "none.xlsx"), 0); err == nil {
		t.Error("want error for missing workbook")
	}
}
