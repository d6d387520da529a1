package manifest

import (
	"fmt"
	"sort"
	"strings"
)

// OptionalMarker flags a per-product template whose file may be absent.
const OptionalMarker = "*"

// Expectation is the expanded file set for one category.
type Expectation struct {
	Expected []string
	Optional []string
}

// Expand substitutes {product} and {mode} into the section's common and
// per-product templates. Results are sorted and de-duplicated.
func (s Section) Expand(products, modes []string) Expectation {
	expected := make(map[string]bool)
	optional := make(map[string]bool)
	add := func(name string) {
		if strings.Contains(name, OptionalMarker) {
			optional[strings.ReplaceAll(name, OptionalMarker, "")] = true
			return
		}
		expected[name] = true
	}
	for _, tmpl := range s.Column(ColumnCommon) {
		for _, name := range expandMode(tmpl, modes) {
			add(name)
		}
	}
	for _, tmpl := range s.Column(ColumnPerProduct) {
		for _, p := range products {
			for _, name := range expandMode(strings.ReplaceAll(tmpl, "{product}", p), modes) {
				add(name)
			}
		}
	}
	return Expectation{Expected: sortedKeys(expected), Optional: sortedKeys(optional)}
}

func expandMode(tmpl string, modes []string) []string {
	if !strings.Contains(tmpl, "{mode}") {
		return []string{tmpl}
	}
	out := make([]string, 0, len(modes))
	for _, m := range modes {
		out = append(out, strings.ReplaceAll(tmpl, "{mode}", m))
	}
	return out
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// IntegrityError reports mandatory files a run did not produce.
type IntegrityError struct {
	Category string
	Missing  []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity check failed: expected %s files were not created: %s",
		e.Category, strings.Join(e.Missing, ", "))
}

// Verify compares the files actually produced against exp. Files outside
// Expected and Optional are tolerated. When the whole shortfall matches a
// version-gated exception the exception is returned and err is nil, so the
// caller can report it.
func (m *Manifest) Verify(category, version string, exp Expectation, actual []string) (waived *Exception, err error) {
	have := make(map[string]bool, len(actual))
	for _, a := range actual {
		have[a] = true
	}
	var missing []string
	for _, e := range exp.Expected {
		if !have[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return nil, nil
	}
	for i := range m.Exceptions {
		ex := &m.Exceptions[i]
		if ex.Category != category || !sameSet(ex.Files, missing) {
			continue
		}
		cmp, err := CompareVersions(version, ex.After)
		if err == nil && cmp > 0 {
			return ex, nil
		}
	}
	return nil, &IntegrityError{Category: category, Missing: missing}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, x := range a {
		set[x] = true
	}
	for _, x := range b {
		if !set[x] {
			return false
		}
	}
	return true
}

// Worksheets returns the worksheet titles the Drive spreadsheets may carry,
// with {mode} expanded and optional markers and .tsv suffixes removed.
func (m *Manifest) Worksheets(modes []string) map[string]bool {
	sec, ok := m.Section(CategoryDrive)
	if !ok {
		return nil
	}
	out := make(map[string]bool)
	for _, line := range sec.Column(ColumnWorksheets) {
		for _, name := range strings.Split(line, ",") {
			name = strings.TrimSuffix(strings.ReplaceAll(strings.TrimSpace(name), OptionalMarker, ""), ".tsv")
			if name == "" {
				continue
			}
			for _, w := range expandMode(name, modes) {
				out[w] = true
			}
		}
	}
	return out
}
