package cv

// parse.go — sheet → Vocabulary parsers, one per Kind.
//
// Parsers never abort a file for a single odd row: rows with missing key
// cells are skipped. Two conditions are reported to the caller instead:
// ErrCVParse (the sheet cannot be trusted) and ErrNoRows (nothing to emit).
// Keyed kinds keep the first occurrence of a duplicated key and log the rest.

import (
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"amfcheck/internal/tsv"
)

// Options tunes parsing.
type Options struct {
	// KeepVariableName keeps the "name" attribute rows of variable sheets.
	// By default they are dropped because they repeat the entry key.
	KeepVariableName bool
	// Logger receives duplicate and skip warnings. nil discards them.
	Logger *slog.Logger
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return o.Logger
}

// numericAttrs are variable attributes emitted as numbers unless the value is
// a "<...>" placeholder.
var numericAttrs = map[string]bool{
	"valid_min":  true,
	"valid_max":  true,
	"_FillValue": true,
}

// Parse builds a vocabulary of the given kind from sheet.
func Parse(sheet *tsv.Sheet, kind Kind, facets []string, opts Options) (*Vocabulary, error) {
	v := New(kind, facets)
	v.source = sheet.Path
	p := parser{sheet: sheet, v: v, log: opts.logger().With("path", sheet.Path, "namespace", v.namespace)}

	var err error
	switch kind {
	case KindVariable:
		err = p.variables(opts.KeepVariableName)
	case KindDimension:
		err = p.dimensions()
	case KindGlobalAttribute:
		err = p.globalAttributes()
	case KindInstrument:
		p.instruments()
	case KindPlatform:
		p.platforms()
	case KindScientist:
		p.scientists()
	case KindProduct:
		p.products()
	default:
		return nil, fmt.Errorf("parse %s: unsupported kind %v", sheet.Path, kind)
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}

type parser struct {
	sheet *tsv.Sheet
	v     *Vocabulary
	log   *slog.Logger
}

func (p *parser) fail(line int, sentinel error, format string, args ...any) error {
	return &ParseError{Path: p.sheet.Path, Line: line, Reason: fmt.Sprintf(format, args...), Err: sentinel}
}

// entry adds a keyed entry, logging and returning nil on a duplicate key.
func (p *parser) entry(key string, line int) *Entry {
	e := p.v.add(key)
	if e == nil {
		p.log.Warn("duplicate key, keeping first", "kind", p.v.kind.String(), "key", key, "row", line)
	}
	return e
}

// cellValue turns a cell into an attribute value, keeping lists as lists.
func cellValue(c tsv.Cell) Value {
	if c.IsList() {
		return List(c.Parts...)
	}
	return String(c.Text)
}

func (p *parser) variables(keepName bool) error {
	var current *Entry
	skipping := false
	for _, row := range p.sheet.Rows {
		if name := row.Get("Variable"); name != "" {
			if strings.HasSuffix(name, "?") {
				return p.fail(row.Line, ErrCVParse, "invalid variable name %q", name)
			}
			current = p.entry(name, row.Line)
			skipping = current == nil
			continue
		}
		attr, val := row.Get("Attribute"), row.Cell("Value")
		if attr == "" || val.Text == "" {
			continue
		}
		if attr == "name" && !keepName {
			continue
		}
		if current == nil {
			if !skipping {
				p.log.Warn("attribute row before any variable", "attribute", attr, "row", row.Line)
			}
			continue
		}
		value := cellValue(val)
		if numericAttrs[attr] && !strings.HasPrefix(val.Text, "<") {
			f, err := strconv.ParseFloat(val.Text, 64)
			if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
				return p.fail(row.Line, ErrCVParse, "variable %q: %s = %q is not a finite number", current.Name, attr, val.Text)
			}
			value = Number(f)
		}
		current.set(attr, value)
	}
	return nil
}

func (p *parser) dimensions() error {
	for _, row := range p.sheet.Rows {
		if !row.Has("Name", "Length", "units") {
			continue
		}
		e := p.entry(row.Get("Name"), row.Line)
		if e == nil {
			continue
		}
		e.set("length", cellValue(row.Cell("Length")))
		e.set("units", cellValue(row.Cell("units")))
	}
	if len(p.v.entries) == 0 {
		return p.fail(0, ErrNoRows, "no dimensions found")
	}
	return nil
}

func (p *parser) globalAttributes() error {
	for _, row := range p.sheet.Rows {
		name := row.Get("Name")
		if name == "" {
			continue
		}
		e := p.entry(name, row.Line)
		if e == nil {
			continue
		}
		e.set("global_attribute_id", String(name))
		e.set("description", cellValue(row.Cell("Description")))
		e.set("fixed_value", cellValue(row.Cell("Fixed Value")))
		e.set("compliance_checking_rules", cellValue(row.Cell("Compliance checking rules")))
		e.set("convention_providence", cellValue(row.Cell("Convention Providence")))
	}
	if len(p.v.entries) == 0 {
		return p.fail(0, ErrNoRows, "no global attributes found")
	}
	return nil
}

func (p *parser) instruments() {
	for _, row := range p.sheet.Rows {
		id := row.Get("New Instrument Name")
		if id == "" {
			continue
		}
		e := p.entry(id, row.Line)
		if e == nil {
			continue
		}
		var prev []string
		for _, old := range strings.Split(row.Get("Old Instrument Name"), ",") {
			if old = strings.TrimSpace(old); old != "" {
				prev = append(prev, old)
			}
		}
		e.set("instrument_id", String(id))
		e.set("previous_instrument_ids", List(prev...))
		e.set("description", cellValue(row.Cell("Descriptor")))
		e.set("instrument_pid", String(row.Get("PID")))
	}
}

func (p *parser) platforms() {
	for _, row := range p.sheet.Rows {
		id := row.Get("Platform ID")
		if id == "" {
			continue
		}
		e := p.entry(id, row.Line)
		if e == nil {
			continue
		}
		e.set("platform_id", String(id))
		e.set("description", cellValue(row.Cell("Platform Description")))
	}
}

func (p *parser) scientists() {
	for _, row := range p.sheet.Rows {
		email := row.Get("email")
		if email == "" {
			continue
		}
		e := p.entry(email, row.Line)
		if e == nil {
			continue
		}
		orcid := Null()
		if o := row.Get("orcid"); o != "" {
			orcid = String(o)
		}
		e.set("name", cellValue(row.Cell("name")))
		e.set("primary_email", String(email))
		e.set("previous_emails", List())
		e.set("orcid", orcid)
	}
}

func (p *parser) products() {
	for _, row := range p.sheet.Rows {
		if name := row.Get("Data Product"); name != "" {
			p.v.terms = append(p.v.terms, name)
		}
	}
}
