package tsv

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestReadTrimsHeaderAndCells(t *testing.T) {
	in := " Variable \t Attribute\tValue \n wind_speed \t\t\n\t name \t wind_speed \n"
	s, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	want := []string{"Variable", "Attribute", "Value"}
	if !reflect.DeepEqual(s.Header, want) {
		t.Errorf("header = %q, want %q", s.Header, want)
	}
	if len(s.Rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(s.Rows))
	}
	if got := s.Rows[0].Get("Variable"); got != "wind_speed" {
		t.Errorf("row 0 Variable = %q", got)
	}
	if got := s.Rows[1].Get("Attribute"); got != "name" {
		t.Errorf("row 1 Attribute = %q", got)
	}
	if s.Rows[1].Line != 3 {
		t.Errorf("row 1 Line = %d, want 3", s.Rows[1].Line)
	}
}

func TestReadSkipsBlankLines(t *testing.T) {
	in := "Name\tLength\tunits\n\n \t \t \ntime\t<i>\t1\n"
	s, err := Read(strings.NewReader(in))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(s.Rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(s.Rows))
	}
	if s.Rows[0].Line != 4 {
		t.Errorf("Line = %d, want 4", s.Rows[0].Line)
	}
}

func TestReadSplitsPipeCells(t *testing.T) {
	s, err := Read(strings.NewReader("Value\n a | b |c\nplain\n"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	c := s.Rows[0].Cell("Value")
	if !c.IsList() {
		t.Fatalf("expected list cell, got %+v", c)
	}
	if want := []string{"a", "b", "c"}; !reflect.DeepEqual(c.Parts, want) {
		t.Errorf("Parts = %q, want %q", c.Parts, want)
	}
	if s.Rows[1].Cell("Value").IsList() {
		t.Error("plain cell reported as list")
	}
}

func TestReadShortRowsAndMissingColumns(t *testing.T) {
	s, err := Read(strings.NewReader("A\tB\tC\nx\n"))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	r := s.Rows[0]
	if r.Get("A") != "x" || r.Get("B") != "" || r.Get("Nope") != "" {
		t.Errorf("unexpected cells: A=%q B=%q", r.Get("A"), r.Get("B"))
	}
	if r.Has("A", "B") {
		t.Error("Has(A, B) = true on a short row")
	}
}

func TestReadEmptyInput(t *testing.T) {
	s, err := Read(strings.NewReader(""))
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if len(s.Header) != 0 || len(s.Rows) != 0 {
		t.Errorf("expected empty sheet, got %+v", s)
	}
}

func TestReadFileStripsBOMAndRecordsPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sheet.tsv")
	if err := os.WriteFile(path, []byte("\xEF\xBB\xBFName\nx\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if s.Path != path {
		t.Errorf("Path = %q", s.Path)
	}
	if s.Rows[0].Get("Name") != "x" {
		t.Errorf("BOM not stripped: header %q", s.Header)
	}
}

func TestCleanCell(t *testing.T) {
	cases := map[string]string{
		"  plain ":          "plain",
		"line one\nline 2":  "line one|line 2",
		"crlf\r\nnext\r\n ": "crlf|next",
		"":                  "",
	}
	for in, want := range cases {
		if got := CleanCell(in); got != want {
			t.Errorf("CleanCell(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestWriteRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	rows := [][]string{
		{"Name", "Description"},
		{" a ", "first\nsecond"},
		{"", ""},
	}
	if err := Write(&buf, rows); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if got, want := buf.String(), "Name\tDescription\na\tfirst|second\n"; got != want {
		t.Errorf("Write output = %q, want %q", got, want)
	}
	s, err := Read(&buf)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !s.Rows[0].Cell("Description").IsList() {
		t.Error("multi-line cell did not read back as a list")
	}
}
