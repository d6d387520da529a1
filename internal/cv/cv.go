package cv

// cv.go — in-memory controlled vocabulary.
//
// A Vocabulary is built by parsing exactly one sheet and is read-only
// afterwards. Its identity is an ordered facet list; the namespace is the
// facets joined with "_" and names both the JSON file and every check suite
// derived from it.
//
// JSON shape:
//
//	{"<namespace>": {"<entry>": {"<attr>": <value>, ...}, ...}}
//	{"<namespace>": ["<term>", ...]}          (products)

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// FilePrefix starts every generated filename.
const FilePrefix = "AMF_"

// Namespace joins facets into a namespace string.
func Namespace(facets []string) string {
	return strings.Join(facets, "_")
}

// Filename returns the output filename for namespace with extension ext
// ("json", "yml").
func Filename(namespace, ext string) string {
	return FilePrefix + namespace + "." + ext
}

// Attr is one named attribute of an entry.
type Attr struct {
	Name  string
	Value Value
}

// Entry is a named vocabulary item with attributes in source order.
type Entry struct {
	Name  string
	Attrs []Attr
}

// Get returns the value of the named attribute.
func (e Entry) Get(name string) (Value, bool) {
	for _, a := range e.Attrs {
		if a.Name == name {
			return a.Value, true
		}
	}
	return Value{}, false
}

// set replaces an existing attribute in place or appends a new one.
func (e *Entry) set(name string, v Value) {
	for i := range e.Attrs {
		if e.Attrs[i].Name == name {
			e.Attrs[i].Value = v
			return
		}
	}
	e.Attrs = append(e.Attrs, Attr{Name: name, Value: v})
}

// Vocabulary is one parsed controlled vocabulary.
type Vocabulary struct {
	facets    []string
	namespace string
	kind      Kind
	source    string

	entries []Entry
	index   map[string]int
	terms   []string
}

// New returns an empty vocabulary. facets is copied.
func New(kind Kind, facets []string) *Vocabulary {
	f := append([]string{}, facets...)
	return &Vocabulary{
		facets:    f,
		namespace: Namespace(f),
		kind:      kind,
		index:     make(map[string]int),
	}
}

func (v *Vocabulary) Facets() []string  { return append([]string{}, v.facets...) }
func (v *Vocabulary) Namespace() string { return v.namespace }
func (v *Vocabulary) Kind() Kind        { return v.kind }

// Source is the path of the sheet the vocabulary was parsed from.
func (v *Vocabulary) Source() string { return v.source }

// Filename returns AMF_<namespace>.<ext>.
func (v *Vocabulary) Filename(ext string) string {
	return Filename(v.namespace, ext)
}

// Entries returns the keyed entries in insertion order. Empty for products.
func (v *Vocabulary) Entries() []Entry {
	return v.entries
}

// Entry looks up an entry by name.
func (v *Vocabulary) Entry(name string) (Entry, bool) {
	i, ok := v.index[name]
	if !ok {
		return Entry{}, false
	}
	return v.entries[i], true
}

// Terms returns the flat term list of a products vocabulary.
func (v *Vocabulary) Terms() []string {
	return append([]string{}, v.terms...)
}

// Len is the number of entries or terms.
func (v *Vocabulary) Len() int {
	if v.kind == KindProduct {
		return len(v.terms)
	}
	return len(v.entries)
}

// add appends a new entry and returns it. It returns nil when name is taken.
func (v *Vocabulary) add(name string) *Entry {
	if _, dup := v.index[name]; dup {
		return nil
	}
	v.index[name] = len(v.entries)
	v.entries = append(v.entries, Entry{Name: name})
	return &v.entries[len(v.entries)-1]
}

// JSON renders the vocabulary as an indented JSON document.
func (v *Vocabulary) JSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if err := writeJSONString(&buf, v.namespace); err != nil {
		return nil, err
	}
	buf.WriteByte(':')
	if v.kind == KindProduct {
		terms := v.terms
		if terms == nil {
			terms = []string{}
		}
		b, err := marshal(terms)
		if err != nil {
			return nil, err
		}
		buf.Write(b)
	} else {
		buf.WriteByte('{')
		for i, e := range v.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeJSONString(&buf, e.Name); err != nil {
				return nil, err
			}
			buf.WriteByte(':')
			if err := writeAttrs(&buf, e.Attrs); err != nil {
				return nil, fmt.Errorf("entry %q: %w", e.Name, err)
			}
		}
		buf.WriteByte('}')
	}
	buf.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, buf.Bytes(), "", "    "); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

func writeAttrs(buf *bytes.Buffer, attrs []Attr) error {
	buf.WriteByte('{')
	for i, a := range attrs {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := writeJSONString(buf, a.Name); err != nil {
			return err
		}
		buf.WriteByte(':')
		b, err := a.Value.MarshalJSON()
		if err != nil {
			return err
		}
		buf.Write(b)
	}
	buf.WriteByte('}')
	return nil
}

func writeJSONString(buf *bytes.Buffer, s string) error {
	b, err := marshal(s)
	if err != nil {
		return err
	}
	buf.Write(b)
	return nil
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

var (
	// ErrCVParse marks a structural problem that invalidates a whole sheet.
	ErrCVParse = errors.New("cv parse error")
	// ErrNoRows marks a sheet with no qualifying rows. Callers skip the
	// sheet rather than fail.
	ErrNoRows = errors.New("no rows found")
)

// ParseError locates a parse failure. Err is one of the package sentinels
// (or check.ErrInvalidRow) so errors.Is works through it.
type ParseError struct {
	Path   string
	Line   int
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	loc := e.Path
	if loc == "" {
		loc = "<input>"
	}
	if e.Line > 0 {
		loc = fmt.Sprintf("%s:%d", loc, e.Line)
	}
	if e.Reason == "" {
		return fmt.Sprintf("%s: %v", loc, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", loc, e.Err, e.Reason)
}

func (e *ParseError) Unwrap() error { return e.Err }
