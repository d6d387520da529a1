package docs

// docs.go — write-workflow-docs: render the manifest as Markdown.
//
// Every manifest section becomes a "## <header>" block with its text and a
// pipe table of its columns, in manifest order. The output is a pure
// function of the manifest so repeated runs are byte-identical.

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"amfcheck/internal/manifest"
	"amfcheck/internal/support"
)

// Filename is the generated document's name.
const Filename = "amf-check-workflow.md"

// Title heads the document.
const Title = "Workflow diagram for AMF Check Writer: Checks and Vocabularies"

// newPara marks a paragraph break inside section text.
const newPara = "[NEW_PARA]"

const sep = " | "

// Generate renders the workflow document. No files are written.
func Generate(m *manifest.Manifest) string {
	var b strings.Builder
	b.WriteString("# " + Title + "\n\n")
	for _, s := range m.Sections {
		b.WriteString(section(s))
	}
	return b.String()
}

func section(s manifest.Section) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("## %s\n\n", s.Header))
	b.WriteString(strings.ReplaceAll(s.Text, newPara, "\n\n") + "\n\n")
	b.WriteString(table(s.Columns))
	return b.String()
}

// table lays columns side by side. Shorter columns are padded with empty
// cells.
func table(cols []manifest.Column) string {
	if len(cols) == 0 {
		return ""
	}
	var b strings.Builder
	names := make([]string, len(cols))
	rule := make([]string, len(cols))
	rows := 0
	for i, c := range cols {
		names[i] = c.Name
		rule[i] = "--"
		rows = max(rows, len(c.Values))
	}
	b.WriteString(strings.Join(names, sep) + "\n")
	b.WriteString(strings.Join(rule, sep) + "\n")
	for r := 0; r < rows; r++ {
		cells := make([]string, len(cols))
		for i, c := range cols {
			if r < len(c.Values) {
				cells[i] = c.Values[r]
			}
		}
		b.WriteString(strings.Join(cells, sep) + "\n")
	}
	return b.String()
}

// Meta is the optional YAML front matter, for static site generators.
type Meta struct {
	Title    string   `yaml:"title"`
	Sections []string `yaml:"sections"`
	Tags     []string `yaml:"tags,omitempty"`
}

// Render returns the document, prefixed with front matter when withMeta is
// set.
func Render(m *manifest.Manifest, withMeta bool) ([]byte, error) {
	body := Generate(m)
	if !withMeta {
		return []byte(body), nil
	}
	meta := Meta{Title: Title, Tags: []string{"amf", "workflow"}}
	for _, s := range m.Sections {
		meta.Sections = append(meta.Sections, s.Key)
	}
	return withFrontMatter(meta, body)
}

// withFrontMatter marshals v between --- delimiters ahead of body.
func withFrontMatter(v any, body string) ([]byte, error) {
	fm, err := yaml.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("front matter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(fm)
	buf.WriteString("---\n\n")
	buf.WriteString(body)
	return buf.Bytes(), nil
}

// Write renders the document into outDir and returns its path.
func Write(m *manifest.Manifest, outDir string, withMeta bool) (string, error) {
	data, err := Render(m, withMeta)
	if err != nil {
		return "", err
	}
	path := filepath.Join(outDir, Filename)
	if err := support.WriteFileAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}
