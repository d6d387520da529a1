package manifest

// manifest.go — declarative list of the files a run must produce.
//
// The manifest is a YAML document of sections. Section order and column
// order are preserved so the same data can drive the workflow docs.

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed manifest.yaml
var defaultManifest []byte

// Categories checked by Verify.
const (
	CategoryJSON   = "json-cvs"
	CategoryYAML   = "yaml_checks"
	CategoryVocabs = "vocabs"
	CategoryDrive  = "google_drive_content"
)

// Column names inside json-cvs and yaml_checks.
const (
	ColumnCommon     = "common"
	ColumnPerProduct = "per-product"
	ColumnWorksheets = "worksheets"
)

// Section is one top-level manifest block.
type Section struct {
	Key     string
	Header  string
	Text    string
	Columns []Column
}

// Column is a named list of values inside a section.
type Column struct {
	Name   string
	Values []string
}

// Column returns the values of the named column.
func (s Section) Column(name string) []string {
	for _, c := range s.Columns {
		if c.Name == name {
			return c.Values
		}
	}
	return nil
}

// Exception waives a missing-file set for versions newer than After.
type Exception struct {
	Category string   `yaml:"category"`
	After    string   `yaml:"after"`
	Files    []string `yaml:"files"`
	Reason   string   `yaml:"reason"`
}

// Manifest is the parsed document.
type Manifest struct {
	Sections   []Section
	Exceptions []Exception
}

// Default returns the built-in manifest.
func Default() (*Manifest, error) {
	return Parse(defaultManifest)
}

// Load reads a manifest file.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a manifest document.
func Parse(data []byte) (*Manifest, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	if len(root.Content) == 0 || root.Content[0].Kind != yaml.MappingNode {
		return nil, fmt.Errorf("manifest: top level must be a mapping")
	}
	top := root.Content[0]

	m := &Manifest{}
	for i := 0; i+1 < len(top.Content); i += 2 {
		key, val := top.Content[i].Value, top.Content[i+1]
		if key == "exceptions" {
			if err := val.Decode(&m.Exceptions); err != nil {
				return nil, fmt.Errorf("manifest: exceptions: %w", err)
			}
			continue
		}
		sec, err := parseSection(key, val)
		if err != nil {
			return nil, err
		}
		m.Sections = append(m.Sections, sec)
	}
	return m, nil
}

func parseSection(key string, n *yaml.Node) (Section, error) {
	if n.Kind != yaml.MappingNode {
		return Section{}, fmt.Errorf("manifest: section %q must be a mapping", key)
	}
	s := Section{Key: key}
	for i := 0; i+1 < len(n.Content); i += 2 {
		name, val := n.Content[i].Value, n.Content[i+1]
		switch name {
		case "header":
			s.Header = val.Value
		case "text":
			s.Text = val.Value
		default:
			var values []string
			if err := val.Decode(&values); err != nil {
				return Section{}, fmt.Errorf("manifest: %s.%s: %w", key, name, err)
			}
			s.Columns = append(s.Columns, Column{Name: name, Values: values})
		}
	}
	return s, nil
}

// Section returns the section with the given key.
func (m *Manifest) Section(key string) (Section, bool) {
	for _, s := range m.Sections {
		if s.Key == key {
			return s, true
		}
	}
	return Section{}, false
}

// ---------------------------------------------------------------------------
// Versions
// ---------------------------------------------------------------------------

// CompareVersions orders "vN.M" version strings numerically.
func CompareVersions(a, b string) (int, error) {
	pa, err := parseVersion(a)
	if err != nil {
		return 0, err
	}
	pb, err := parseVersion(b)
	if err != nil {
		return 0, err
	}
	for i := range pa {
		if pa[i] != pb[i] {
			if pa[i] < pb[i] {
				return -1, nil
			}
			return 1, nil
		}
	}
	return 0, nil
}

func parseVersion(v string) ([2]int, error) {
	var out [2]int
	major, minor, ok := strings.Cut(strings.TrimPrefix(v, "v"), ".")
	if !ok || !strings.HasPrefix(v, "v") {
		return out, fmt.Errorf("invalid version %q (want vN.M)", v)
	}
	var err error
	if out[0], err = strconv.Atoi(major); err != nil {
		return out, fmt.Errorf("invalid version %q: %w", v, err)
	}
	if out[1], err = strconv.Atoi(minor); err != nil {
		return out, fmt.Errorf("invalid version %q: %w", v, err)
	}
	return out, nil
}
