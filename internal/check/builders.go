package check

import (
	"errors"
	"fmt"
	"log/slog"

	"amfcheck/internal/cv"
	"amfcheck/internal/tsv"
)

// Facets of the suites that apply to every product and mode.
var (
	FileInfoFacets      = []string{"file_info"}
	FileStructureFacets = []string{"file_structure"}
	GlobalAttrsFacets   = []string{"global_attrs"}
)

// FileInfo returns the static file-level checks: soft and hard size limits
// (in GB) and filename structure.
func FileInfo() *Suite {
	var checks []Check
	for _, limit := range []struct {
		strictness string
		threshold  int
		level      Level
	}{
		{"soft", 2, LevelLow},
		{"hard", 4, LevelHigh},
	} {
		checks = append(checks, Check{
			ID:    fmt.Sprintf("check_%s_file_size_limit", limit.strictness),
			Name:  fileChecksRegister + ".FileSizeCheck",
			Level: limit.level,
			Params: []Param{
				{"strictness", limit.strictness},
				{"threshold", limit.threshold},
			},
		})
	}
	checks = append(checks, Check{
		ID:     "check_filename_structure",
		Name:   fileChecksRegister + ".FileNameStructureCheck",
		Level:  LevelHigh,
		Params: []Param{{"delimiter", "_"}, {"extension", ".nc"}},
	})
	return NewSuite(FileInfoFacets, checks)
}

// FileStructure returns the static NetCDF format check.
func FileStructure() *Suite {
	return NewSuite(FileStructureFacets, []Check{{
		ID:     "check_valid_netcdf4_file",
		Name:   ncFileChecksRegister + ".NetCDFFormatCheck",
		Params: []Param{{"format", "NETCDF4_CLASSIC"}},
	}})
}

// Variables returns one attribute check per variable, plus a type check for
// every variable that declares a "type".
func Variables(v *cv.Vocabulary, log *slog.Logger) *Suite {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	ns := v.Namespace()
	var checks []Check
	for _, e := range v.Entries() {
		checks = append(checks, Check{
			ID:   fmt.Sprintf("check_%s_variable_attrs", e.Name),
			Name: ncFileChecksRegister + ".NCVariableMetadataCheck",
			Params: []Param{
				{"var_id", e.Name},
				{"vocabulary_ref", VocabularyRef},
				{"pyessv_namespace", ns},
			},
			Comments: fmt.Sprintf("Checks the variable attributes for '%s'", e.Name),
		})
		dtype, ok := e.Get("type")
		if !ok {
			log.Warn("variable has no type, skipping type check", "path", v.Source(), "namespace", ns, "variable", e.Name)
			continue
		}
		checks = append(checks, Check{
			ID:   fmt.Sprintf("check_%s_variable_type", e.Name),
			Name: ncFileChecksRegister + ".VariableTypeCheck",
			Params: []Param{
				{"vocabulary_ref", VocabularyRef},
				{"var_id", e.Name},
				{"dtype", dtype.String()},
			},
			Comments: fmt.Sprintf("Checks the type of variable '%s'", e.Name),
		})
	}
	return NewSuite(v.Facets(), checks)
}

// GlobalAttributes compiles the rule column of a global-attributes sheet.
// Rows that cannot be compiled are logged and skipped; the first row for a
// duplicated attribute wins.
func GlobalAttributes(facets []string, sheet *tsv.Sheet, log *slog.Logger) *Suite {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	seen := make(map[string]bool)
	var checks []Check
	for _, row := range sheet.Rows {
		name := row.Get("Name")
		if name != "" && seen[name] {
			log.Warn("duplicate global attribute, keeping first", "path", sheet.Path, "attribute", name, "row", row.Line)
			continue
		}
		seen[name] = true

		rule, err := CompileRule(RuleInput{
			Attribute:  name,
			Rule:       row.Get("Compliance checking rules"),
			FixedValue: row.Get("Fixed Value"),
			Vocabulary: row.Get("Vocabulary"),
		})
		if err != nil {
			perr := &cv.ParseError{Path: sheet.Path, Line: row.Line, Reason: err.Error(), Err: ErrInvalidRow}
			if errors.Is(err, ErrUnknownRule) {
				perr.Err = ErrUnknownRule
			}
			log.Warn("skipping global attribute row", "path", sheet.Path, "row", row.Line, "attribute", name, "err", perr)
			continue
		}
		checks = append(checks, rule.check())
	}
	return NewSuite(facets, checks)
}

func (r Rule) check() Check {
	c := Check{ID: fmt.Sprintf("check_%s_global_attribute", r.Attribute)}
	switch r.Kind {
	case RuleVocab:
		c.Name = ncFileChecksRegister + ".GlobalAttrVocabCheck"
		c.Params = []Param{
			{"attribute", r.Attribute},
			{"vocab_lookup", r.VocabLookup},
			{"vocabulary_ref", VocabularyRef},
		}
	default:
		c.Name = ncFileChecksRegister + ".GlobalAttrRegexCheck"
		c.Params = []Param{{"attribute", r.Attribute}, {"regex", r.Regex}}
	}
	return c
}

// FromSource builds the suite for a vocabulary whose kind supports checks.
// sheet is the vocabulary's source sheet. ok is false for kinds that do not
// produce checks.
func FromSource(v *cv.Vocabulary, sheet *tsv.Sheet, log *slog.Logger) (s *Suite, ok bool) {
	if !v.Kind().SupportsYAMLChecks() {
		return nil, false
	}
	switch v.Kind() {
	case cv.KindVariable:
		return Variables(v, log), true
	case cv.KindGlobalAttribute:
		return GlobalAttributes(v.Facets(), sheet, log), true
	}
	return nil, false
}
