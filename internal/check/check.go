package check

// check.go — compliance-checker suite model.
//
// A Suite is one YAML document understood by the external checker:
//
//	suite_name: <namespace>_checks:<version>
//	description: Check '<facets>' in AMF files
//	checks:
//	  - check_id: ...
//	    check_name: checklib.register.<register>.<Check>
//	    check_level: HIGH          (optional)
//	    parameters: {...}
//	    comments: ...              (optional)
//
// Wrapper suites list {__INCLUDE__: <file>.yml} items instead of checks.
// Keys are emitted in the order above so output is byte-for-byte stable.

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"amfcheck/internal/cv"
)

const (
	fileChecksRegister   = "checklib.register.file_checks_register"
	ncFileChecksRegister = "checklib.register.nc_file_checks_register"

	// VocabularyRef is the pyessv authority:scope the checker resolves
	// vocabulary lookups against.
	VocabularyRef = "ncas:amf"
)

// Level is the severity reported when a check fails.
type Level string

const (
	LevelLow  Level = "LOW"
	LevelHigh Level = "HIGH"
)

// Param is one named check argument. Value is any YAML-encodable value.
type Param struct {
	Key   string
	Value any
}

// Check is a single item in a suite. When Include is set the check is a
// reference to another suite file and every other field is ignored.
type Check struct {
	ID       string
	Name     string
	Level    Level
	Params   []Param
	Comments string
	Include  string
}

// Param returns the named parameter value.
func (c Check) Param(key string) (any, bool) {
	for _, p := range c.Params {
		if p.Key == key {
			return p.Value, true
		}
	}
	return nil, false
}

// Suite is a named, ordered list of checks.
type Suite struct {
	facets      []string
	namespace   string
	Description string
	Checks      []Check
}

// NewSuite builds a suite whose identity is facets. facets is copied.
func NewSuite(facets []string, checks []Check) *Suite {
	f := append([]string{}, facets...)
	return &Suite{
		facets:      f,
		namespace:   cv.Namespace(f),
		Description: fmt.Sprintf("Check '%s' in AMF files", strings.Join(f, " ")),
		Checks:      checks,
	}
}

func (s *Suite) Facets() []string  { return append([]string{}, s.facets...) }
func (s *Suite) Namespace() string { return s.namespace }

// Filename returns AMF_<namespace>.yml.
func (s *Suite) Filename() string { return cv.Filename(s.namespace, "yml") }

// Name returns the suite name, suffixed with ":<version>" when version is
// not empty.
func (s *Suite) Name(version string) string {
	name := s.namespace + "_checks"
	if version != "" {
		name += ":" + version
	}
	return name
}

// YAML renders the suite document.
func (s *Suite) YAML(version string) ([]byte, error) {
	checks := &yaml.Node{Kind: yaml.SequenceNode}
	for _, c := range s.Checks {
		n, err := c.node()
		if err != nil {
			return nil, fmt.Errorf("%s: check %q: %w", s.namespace, c.ID, err)
		}
		checks.Content = append(checks.Content, n)
	}

	doc := mapping()
	addScalar(doc, "suite_name", s.Name(version))
	addScalar(doc, "description", s.Description)
	doc.Content = append(doc.Content, scalar("checks"), checks)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode %s: %w", s.namespace, err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c Check) node() (*yaml.Node, error) {
	m := mapping()
	if c.Include != "" {
		addScalar(m, "__INCLUDE__", c.Include)
		return m, nil
	}
	addScalar(m, "check_id", c.ID)
	addScalar(m, "check_name", c.Name)
	if c.Level != "" {
		addScalar(m, "check_level", string(c.Level))
	}
	params := mapping()
	for _, p := range c.Params {
		var v yaml.Node
		if err := v.Encode(p.Value); err != nil {
			return nil, fmt.Errorf("parameter %q: %w", p.Key, err)
		}
		params.Content = append(params.Content, scalar(p.Key), &v)
	}
	m.Content = append(m.Content, scalar("parameters"), params)
	if c.Comments != "" {
		addScalar(m, "comments", c.Comments)
	}
	return m, nil
}

func mapping() *yaml.Node {
	return &yaml.Node{Kind: yaml.MappingNode}
}

func scalar(s string) *yaml.Node {
	return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: s}
}

func addScalar(m *yaml.Node, key, value string) {
	m.Content = append(m.Content, scalar(key), scalar(value))
}
