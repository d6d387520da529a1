package check

// rules.go — global attribute rule compiler.
//
// The "Compliance checking rules" column of a global-attributes sheet holds a
// short human-readable rule. Each rule compiles to either an anchored regular
// expression or a vocabulary lookup.

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidRow marks a sheet row that cannot be read as a rule at all
	// (missing attribute name or rule). Only the row is skipped.
	ErrInvalidRow = errors.New("invalid row")
	// ErrUnknownRule marks a rule string no compiler recognises.
	ErrUnknownRule = errors.New("unrecognised compliance checking rule")
)

const notApplicable = `(N/A)|(NA)|(N A)|(n/a)|(na)|(n a)|` +
	`(Not Applicable)|(Not applicable)|(Not available)|(Not Available)|` +
	`(not applicable)|(not available)`

const timestamp = `\d{4}-\d{2}-\d{2}T\d{2}:\d{2}:\d{2}(\.\d+)?`

var staticRules = map[string]string{
	"Integer":                                  `-?\d+`,
	"Valid email":                              `[^@\s]+@[^@\s]+\.[^\s@]+`,
	"Valid URL":                                `https?://[^\s]+\.[^\s]*[^\s\.](/[^\s]+)?`,
	"Valid URL _or_ N/A":                       `(https?://[^\s]+\.[^\s]*[^\s\.](/[^\s]+))|` + notApplicable,
	"Match: vN.M":                              `v\d\.\d`,
	`Match: YYYY-MM-DDThh:mm:ss\.\d+`:          timestamp,
	`Match: YYYY-MM-DDThh:mm:ss\.\d+ _or_ N/A`: `(` + timestamp + `)|` + notApplicable,
	"Exact match: <number> m":                  `-?\d+(\.\d+)? m`,
}

var (
	minCharsRule = regexp.MustCompile(`^String: min (?P<count>\d+) characters?`)
	oneOfRule    = regexp.MustCompile(`^One of:\s+(?P<choices>.+)`)
)

// RuleKind selects which checker implementation validates an attribute.
type RuleKind int

const (
	RuleRegex RuleKind = iota + 1
	RuleVocab
)

// Rule is a compiled compliance rule for one global attribute.
type Rule struct {
	Attribute string
	Kind      RuleKind
	// Regex is set for RuleRegex and is always anchored with ^...$.
	Regex string
	// VocabLookup is set for RuleVocab: space-separated "term:data:field"
	// references.
	VocabLookup string
}

// RuleInput is the subset of a global-attributes row the compiler reads.
type RuleInput struct {
	Attribute  string
	Rule       string
	FixedValue string
	Vocabulary string
}

// CompileRule compiles one row's rule.
func CompileRule(in RuleInput) (Rule, error) {
	attr, rule := strings.TrimSpace(in.Attribute), strings.TrimSpace(in.Rule)
	if attr == "" || rule == "" {
		return Rule{}, ErrInvalidRow
	}

	if re, ok := staticRules[rule]; ok {
		return regexRule(attr, re), nil
	}
	if m := minCharsRule.FindStringSubmatch(rule); m != nil {
		return regexRule(attr, ".{"+m[1]+",}"), nil
	}
	if m := oneOfRule.FindStringSubmatch(rule); m != nil {
		var choices []string
		for _, c := range strings.Split(m[1], ",") {
			choices = append(choices, regexp.QuoteMeta(strings.TrimSpace(c)))
		}
		return regexRule(attr, "("+strings.Join(choices, "|")+")"), nil
	}

	switch strings.ToLower(rule) {
	case "exact match", "exact match of text to the left":
		return regexRule(attr, regexp.QuoteMeta(in.FixedValue)), nil
	case "exact match in vocabulary":
		lookup, err := vocabLookup(in.Vocabulary)
		if err != nil {
			return Rule{}, fmt.Errorf("%w: %s: %v", ErrInvalidRow, attr, err)
		}
		return Rule{Attribute: attr, Kind: RuleVocab, VocabLookup: lookup}, nil
	}
	return Rule{}, fmt.Errorf("%w: %q", ErrUnknownRule, rule)
}

func regexRule(attr, re string) Rule {
	return Rule{Attribute: attr, Kind: RuleRegex, Regex: Anchor(re)}
}

// vocabLookup turns "instrument:instrument_id platform:platform_id" into
// "instrument:data:instrument_id platform:data:platform_id".
func vocabLookup(col string) (string, error) {
	fields := strings.Fields(col)
	if len(fields) == 0 {
		return "", errors.New("empty Vocabulary column")
	}
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		term, lookup, ok := strings.Cut(f, ":")
		if !ok || term == "" || lookup == "" {
			return "", fmt.Errorf("bad vocabulary reference %q", f)
		}
		out = append(out, term+":data:"+lookup)
	}
	return strings.Join(out, " "), nil
}

// Anchor wraps re in ^...$. A top-level alternation is grouped first so the
// anchors bind to every branch.
func Anchor(re string) string {
	if hasTopLevelAlternation(re) {
		return "^(?:" + re + ")$"
	}
	return "^" + re + "$"
}

func hasTopLevelAlternation(re string) bool {
	depth := 0
	inClass := false
	for i := 0; i < len(re); i++ {
		switch c := re[i]; {
		case c == '\\':
			i++
		case inClass:
			if c == ']' {
				inClass = false
			}
		case c == '[':
			inClass = true
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == '|' && depth == 0:
			return true
		}
	}
	return false
}
